package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"reelkey/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLogDir := filepath.Join(tempHome, ".local", "share", "reelkey", "logs")
	if cfg.Paths.LogDir != wantLogDir {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogDir)
	}
	if !filepath.IsAbs(cfg.Paths.KeyFile) || filepath.Base(cfg.Paths.KeyFile) != "episodes.txt" {
		t.Fatalf("unexpected key file: %q", cfg.Paths.KeyFile)
	}
	if !strings.HasSuffix(cfg.Paths.OutputDir, filepath.Join("tv", "SSNHP")) {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Harvest.Start != 1 || cfg.Harvest.End != 167 {
		t.Fatalf("unexpected harvest range %d-%d", cfg.Harvest.Start, cfg.Harvest.End)
	}
	if cfg.Harvest.Workers != 10 {
		t.Fatalf("expected 10 harvest workers, got %d", cfg.Harvest.Workers)
	}
	if cfg.Download.Concurrency != 3 {
		t.Fatalf("expected download concurrency 3, got %d", cfg.Download.Concurrency)
	}
	if !cfg.Download.SkipMissingKeys {
		t.Fatal("expected sentinel episodes to be skipped by default")
	}
	if got := strings.Join(cfg.Download.Command, " "); got != "java -jar abyss-dl.jar" {
		t.Fatalf("unexpected downloader command %q", got)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if info, err := os.Stat(cfg.Paths.LogDir); err != nil || !info.IsDir() {
		t.Fatalf("expected log directory to exist: %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "reelkey.toml")

	type payload struct {
		Site struct {
			BaseURL string `toml:"base_url"`
			Slug    string `toml:"slug"`
		} `toml:"site"`
		Harvest struct {
			Start int `toml:"start"`
			End   int `toml:"end"`
		} `toml:"harvest"`
		Download struct {
			SkipMissingKeys bool     `toml:"skip_missing_keys"`
			Command         []string `toml:"command"`
		} `toml:"download"`
	}
	custom := payload{}
	custom.Site.BaseURL = "https://example.com/"
	custom.Site.Slug = "/my-show/"
	custom.Harvest.Start = 5
	custom.Harvest.End = 9
	custom.Download.Command = []string{" abyss-dl ", ""}
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Site.BaseURL != "https://example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Site.BaseURL)
	}
	if cfg.Site.Slug != "my-show" {
		t.Fatalf("expected slug trimmed, got %q", cfg.Site.Slug)
	}
	if cfg.Harvest.Start != 5 || cfg.Harvest.End != 9 {
		t.Fatalf("unexpected range %d-%d", cfg.Harvest.Start, cfg.Harvest.End)
	}
	if cfg.Download.SkipMissingKeys {
		t.Fatal("expected skip_missing_keys=false from file")
	}
	if len(cfg.Download.Command) != 1 || cfg.DownloaderBinary() != "abyss-dl" {
		t.Fatalf("unexpected command %v", cfg.Download.Command)
	}
	if cfg.Harvest.Workers != config.Default().Harvest.Workers {
		t.Fatalf("expected default worker count, got %d", cfg.Harvest.Workers)
	}
}

func TestEpisodeURLAndOutputPath(t *testing.T) {
	cfg := config.Default()
	got := cfg.EpisodeURL("007")
	want := "https://wlext.is/series/sin-senos-no-hay-paraiso-2008/?server=shorticu&episode=007"
	if got != want {
		t.Fatalf("EpisodeURL = %q, want %q", got, want)
	}

	cfg.Paths.OutputDir = "/data/out"
	if got := cfg.OutputPath("012"); got != filepath.Join("/data/out", "012.mp4") {
		t.Fatalf("OutputPath = %q", got)
	}
}

func TestSeriesTitle(t *testing.T) {
	cfg := config.Default()
	if got := cfg.SeriesTitle(); got != "Sin Senos No Hay Paraiso 2008" {
		t.Fatalf("SeriesTitle = %q", got)
	}
	cfg.Site.Slug = ""
	if got := cfg.SeriesTitle(); got != "Unknown Series" {
		t.Fatalf("SeriesTitle for empty slug = %q", got)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	def := config.Default()
	if cfg.Harvest.End != def.Harvest.End || cfg.Download.Concurrency != def.Download.Concurrency {
		t.Fatalf("sample config drifted from defaults: %+v", cfg)
	}
	if cfg.Site.EmbedPrefix != def.Site.EmbedPrefix {
		t.Fatalf("sample embed prefix %q, want %q", cfg.Site.EmbedPrefix, def.Site.EmbedPrefix)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero workers", func(c *config.Config) { c.Harvest.Workers = 0 }},
		{"inverted range", func(c *config.Config) { c.Harvest.Start, c.Harvest.End = 10, 2 }},
		{"zero concurrency", func(c *config.Config) { c.Download.Concurrency = 0 }},
		{"zero settle timeout", func(c *config.Config) { c.Download.SettleTimeout = 0 }},
		{"empty command", func(c *config.Config) { c.Download.Command = nil }},
		{"relative base url", func(c *config.Config) { c.Site.BaseURL = "wlext.is" }},
		{"missing slug", func(c *config.Config) { c.Site.Slug = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
