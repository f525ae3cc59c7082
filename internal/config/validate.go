package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSite(); err != nil {
		return err
	}
	if err := c.validateHarvest(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSite() error {
	if strings.TrimSpace(c.Site.BaseURL) == "" {
		return errors.New("site.base_url must be set")
	}
	parsed, err := url.Parse(c.Site.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("site.base_url %q must be an absolute URL", c.Site.BaseURL)
	}
	if c.Site.Slug == "" {
		return errors.New("site.slug must be set")
	}
	if c.Site.Server == "" {
		return errors.New("site.server must be set")
	}
	if c.Site.EmbedPrefix == "" {
		return errors.New("site.embed_prefix must be set")
	}
	return nil
}

func (c *Config) validateHarvest() error {
	if err := ensurePositiveMap(map[string]int{
		"harvest.workers":         c.Harvest.Workers,
		"harvest.request_timeout": c.Harvest.RequestTimeout,
		"harvest.index_width":     c.Harvest.IndexWidth,
	}); err != nil {
		return err
	}
	if c.Harvest.Start < 0 {
		return errors.New("harvest.start must be >= 0")
	}
	if c.Harvest.End < c.Harvest.Start {
		return fmt.Errorf("harvest.end (%d) must be >= harvest.start (%d)", c.Harvest.End, c.Harvest.Start)
	}
	return nil
}

func (c *Config) validateDownload() error {
	if err := ensurePositiveMap(map[string]int{
		"download.concurrency":      c.Download.Concurrency,
		"download.navigate_timeout": c.Download.NavigateTimeout,
		"download.settle_timeout":   c.Download.SettleTimeout,
	}); err != nil {
		return err
	}
	if len(c.Download.Command) == 0 {
		return errors.New("download.command must name the downloader executable")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
