package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file and directory locations.
type Paths struct {
	KeyFile    string `toml:"key_file"`
	ScriptFile string `toml:"script_file"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
}

// Site describes the streaming site that hosts episode pages.
type Site struct {
	BaseURL     string `toml:"base_url"`
	Slug        string `toml:"slug"`
	Server      string `toml:"server"`
	EmbedPrefix string `toml:"embed_prefix"`
	UserAgent   string `toml:"user_agent"`
}

// Harvest contains key harvester settings.
type Harvest struct {
	Start          int `toml:"start"`
	End            int `toml:"end"`
	Workers        int `toml:"workers"`
	RequestTimeout int `toml:"request_timeout"`
	IndexWidth     int `toml:"index_width"`
}

// Download contains episode downloader settings.
type Download struct {
	Concurrency     int      `toml:"concurrency"`
	NavigateTimeout int      `toml:"navigate_timeout"`
	SettleTimeout   int      `toml:"settle_timeout"`
	Command         []string `toml:"command"`
	Quality         string   `toml:"quality"`
	// SkipMissingKeys keeps episodes whose key is the sentinel out of the
	// download batch. They are reported as skipped.
	SkipMissingKeys bool `toml:"skip_missing_keys"`
	MinFileMB       int  `toml:"min_file_mb"`
}

// Browser contains headless browser launch settings.
type Browser struct {
	ExecPath  string `toml:"exec_path"`
	Headless  bool   `toml:"headless"`
	NoSandbox bool   `toml:"no_sandbox"`
}

// History contains run history database settings.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for reelkey.
//
// Configuration sections by subsystem:
//   - Paths: key file, generated script, video output and log directories
//   - Site: episode page URL template and player embed prefix
//   - Harvest: episode range, worker pool size, request timeout
//   - Download: concurrency limit, browser timeouts, downloader command
//   - Browser: Chromium executable and launch flags
//   - History: SQLite run history
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Site     Site     `toml:"site"`
	Harvest  Harvest  `toml:"harvest"`
	Download Download `toml:"download"`
	Browser  Browser  `toml:"browser"`
	History  History  `toml:"history"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelkey/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelkey.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log directory and the parent of the history
// database. The video output directory is created by the downloader right
// before a batch starts.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
	}
	if c.History.Enabled && strings.TrimSpace(c.History.Path) != "" {
		dir := filepath.Dir(c.History.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}
	return nil
}

// EpisodeURL renders the episode page URL for a formatted index.
func (c *Config) EpisodeURL(index string) string {
	base := strings.TrimRight(c.Site.BaseURL, "/")
	return fmt.Sprintf("%s/series/%s/?server=%s&episode=%s",
		base, c.Site.Slug, url.QueryEscape(c.Site.Server), url.QueryEscape(index))
}

// SeriesTitle turns the site slug into a display title.
func (c *Config) SeriesTitle() string {
	words := strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(c.Site.Slug))
	if len(words) == 0 {
		return "Unknown Series"
	}
	return cases.Title(language.Und).String(strings.Join(words, " "))
}

// OutputPath returns the destination video path for an episode index.
func (c *Config) OutputPath(index string) string {
	return filepath.Join(c.Paths.OutputDir, index+".mp4")
}

// RequestTimeout returns the harvester per-request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Harvest.RequestTimeout) * time.Second
}

// NavigateTimeout returns the downloader page load timeout.
func (c *Config) NavigateTimeout() time.Duration {
	return time.Duration(c.Download.NavigateTimeout) * time.Second
}

// SettleTimeout returns the downloader network-idle wait budget.
func (c *Config) SettleTimeout() time.Duration {
	return time.Duration(c.Download.SettleTimeout) * time.Second
}

// MinFileBytes returns the size below which a finished download is flagged.
func (c *Config) MinFileBytes() int64 {
	return int64(c.Download.MinFileMB) * 1024 * 1024
}

// LogPath returns today's log file. Log files rotate daily and older ones are
// pruned according to logging.retention_days.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, LogFilePrefix+"-"+time.Now().Format("20060102")+".log")
}

// LogFilePrefix names the daily log files in paths.log_dir.
const LogFilePrefix = "reelkey"

// LockPath returns the run lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "reelkey.lock")
}

// DownloaderBinary returns the executable that starts the external downloader.
func (c *Config) DownloaderBinary() string {
	if len(c.Download.Command) == 0 {
		return ""
	}
	return c.Download.Command[0]
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
