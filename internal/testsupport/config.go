package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"reelkey/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.KeyFile = filepath.Join(base, "episodes.txt")
	cfgVal.Paths.ScriptFile = filepath.Join(base, "download.sh")
	cfgVal.Paths.OutputDir = filepath.Join(base, "tv")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.History.Path = filepath.Join(base, "history", "history.db")
	cfgVal.Site.BaseURL = "http://127.0.0.1:0"
	cfgVal.Harvest.Start = 1
	cfgVal.Harvest.End = 3

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSite points the episode page URLs at baseURL, typically an httptest server.
func WithSite(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Site.BaseURL = baseURL
	}
}

// WithRange overrides the harvested episode range.
func WithRange(start, end int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Harvest.Start = start
		b.cfg.Harvest.End = end
	}
}

// WithDownloaderCommand overrides the external downloader command line.
func WithDownloaderCommand(command ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Download.Command = command
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default external binaries
// (java and chromium) are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"java", "chromium"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.KeyFile)
}
