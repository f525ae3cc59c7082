package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"reelkey/internal/config"
	"reelkey/internal/deps"
	"reelkey/internal/episodes"
)

const siteCheckTimeout = 10 * time.Second

// CheckSite verifies the episode site answers for the first episode page.
func CheckSite(ctx context.Context, cfg *config.Config) Result {
	const name = "Episode site"

	checkCtx, cancel := context.WithTimeout(ctx, siteCheckTimeout)
	defer cancel()

	index := episodes.FormatIndex(cfg.Harvest.Start, cfg.Harvest.IndexWidth)
	url := cfg.EpisodeURL(index)
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("bad url (%v)", err)}
	}
	req.Header.Set("User-Agent", cfg.Site.UserAgent)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d)", cfg.Site.BaseURL, resp.StatusCode)}
	}
	return Result{Name: name, Detail: fmt.Sprintf("%s returned %d", url, resp.StatusCode)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckOutputDirectory passes when the output directory is writable, or does
// not exist yet but its nearest existing ancestor is writable.
func CheckOutputDirectory(path string) Result {
	const name = "Output directory"
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path)
	}
	ancestor := filepath.Dir(path)
	for {
		if _, err := os.Stat(ancestor); err == nil {
			break
		}
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			break
		}
		ancestor = parent
	}
	if err := unix.Access(ancestor, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, ancestor, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckDownloaderJar verifies that a `-jar <file>` argument in the downloader
// command points at a readable file. Commands without -jar pass.
func CheckDownloaderJar(cfg *config.Config) Result {
	const name = "Downloader jar"
	command := cfg.Download.Command
	for i := 0; i < len(command)-1; i++ {
		if command[i] != "-jar" {
			continue
		}
		jar := command[i+1]
		if err := unix.Access(jar, unix.R_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", jar, err)}
		}
		abs, err := filepath.Abs(jar)
		if err != nil {
			abs = jar
		}
		return Result{Name: name, Passed: true, Detail: abs}
	}
	return Result{Name: name, Passed: true, Detail: "not a jar command"}
}

// CheckSystemDeps evaluates the external programs the pipelines invoke.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	browserCmd := strings.TrimSpace(cfg.Browser.ExecPath)
	if browserCmd == "" {
		browserCmd = deps.ResolveChromium()
	}
	requirements := []deps.Requirement{
		{
			Name:        "Downloader",
			Command:     cfg.DownloaderBinary(),
			Description: "Runs abyss-dl for each episode",
		},
		{
			Name:        "Chromium",
			Command:     browserCmd,
			Description: "Visits episode pages before each download",
		},
	}
	return deps.CheckBinaries(requirements)
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out (site unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "request timed out (site unreachable)"
	}
	return err.Error()
}
