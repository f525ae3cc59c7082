package preflight

import (
	"context"
	"path/filepath"

	"reelkey/internal/config"
	"reelkey/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, fromStatus(status))
	}
	results = append(results, CheckDownloaderJar(cfg))
	results = append(results, CheckDirectoryAccess("Key file directory", filepath.Dir(cfg.Paths.KeyFile)))
	results = append(results, CheckOutputDirectory(cfg.Paths.OutputDir))
	results = append(results, CheckSite(ctx, cfg))
	return results
}

// Failed reports whether any required check in results did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}

func fromStatus(status deps.Status) Result {
	detail := status.Command
	if !status.Available {
		detail = status.Detail
		if status.Optional {
			return Result{Name: status.Name, Passed: true, Detail: detail + " (optional)"}
		}
	}
	return Result{Name: status.Name, Passed: status.Available, Detail: detail}
}
