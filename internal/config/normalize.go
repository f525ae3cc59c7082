package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSite()
	c.normalizeDownload()
	if err := c.normalizeBrowser(); err != nil {
		return err
	}
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.KeyFile) == "" {
		c.Paths.KeyFile = defaultKeyFile
	}
	if c.Paths.KeyFile, err = expandPath(c.Paths.KeyFile); err != nil {
		return fmt.Errorf("paths.key_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.ScriptFile) == "" {
		c.Paths.ScriptFile = defaultScriptFile
	}
	if c.Paths.ScriptFile, err = expandPath(c.Paths.ScriptFile); err != nil {
		return fmt.Errorf("paths.script_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSite() {
	c.Site.BaseURL = strings.TrimRight(strings.TrimSpace(c.Site.BaseURL), "/")
	c.Site.Slug = strings.Trim(strings.TrimSpace(c.Site.Slug), "/")
	c.Site.Server = strings.TrimSpace(c.Site.Server)
	c.Site.EmbedPrefix = strings.TrimSpace(c.Site.EmbedPrefix)
	if c.Site.EmbedPrefix != "" && !strings.HasSuffix(c.Site.EmbedPrefix, "/") {
		c.Site.EmbedPrefix += "/"
	}
	c.Site.UserAgent = strings.TrimSpace(c.Site.UserAgent)
	if c.Site.UserAgent == "" {
		c.Site.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeDownload() {
	command := make([]string, 0, len(c.Download.Command))
	for _, part := range c.Download.Command {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			command = append(command, trimmed)
		}
	}
	c.Download.Command = command
	c.Download.Quality = strings.TrimSpace(c.Download.Quality)
	if c.Download.Quality == "" {
		c.Download.Quality = defaultDownloaderQuality
	}
	if c.Download.MinFileMB < 0 {
		c.Download.MinFileMB = 0
	}
}

func (c *Config) normalizeBrowser() error {
	c.Browser.ExecPath = strings.TrimSpace(c.Browser.ExecPath)
	if c.Browser.ExecPath == "" {
		return nil
	}
	var err error
	if c.Browser.ExecPath, err = expandPath(c.Browser.ExecPath); err != nil {
		return fmt.Errorf("browser.exec_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	var err error
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
