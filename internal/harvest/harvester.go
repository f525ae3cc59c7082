package harvest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"reelkey/internal/config"
	"reelkey/internal/episodes"
	"reelkey/internal/logging"
	"reelkey/internal/services"
)

const (
	pipelineName = "harvest"
	maxBodyBytes = 8 << 20
)

// Option configures the harvester.
type Option func(*Harvester)

// WithHTTPClient injects a custom HTTP client (primarily for tests).
func WithHTTPClient(client *http.Client) Option {
	return func(h *Harvester) {
		if client != nil {
			h.client = client
		}
	}
}

// Harvester fetches episode pages and extracts their player keys.
type Harvester struct {
	cfg       *config.Config
	client    *http.Client
	extractor *Extractor
	logger    *slog.Logger
}

// Report is the outcome of a harvest: one result per index in range, sorted.
type Report struct {
	Results []episodes.Result
	Records []episodes.Record
	Elapsed time.Duration
}

// New constructs a harvester for the configured range and site.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Harvester, error) {
	if cfg == nil {
		return nil, errors.New("harvester requires config")
	}
	h := &Harvester{
		cfg:       cfg,
		client:    &http.Client{},
		extractor: NewExtractor(cfg.Site.EmbedPrefix),
		logger:    logging.NewComponentLogger(logger, "harvester"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Harvest fetches every index in [start, end] with a fixed pool of workers and
// returns exactly one result per index, sorted ascending. Per-item failures
// never abort the batch. If ctx is canceled, indices that were not fetched are
// reported as failed so the one-result-per-index contract still holds.
func (h *Harvester) Harvest(ctx context.Context) *Report {
	ctx = services.WithPipeline(ctx, pipelineName)
	start := time.Now()
	first, last := h.cfg.Harvest.Start, h.cfg.Harvest.End
	total := last - first + 1
	workers := h.cfg.Harvest.Workers
	if workers > total {
		workers = total
	}

	logging.WithContext(ctx, h.logger).Info("harvest started",
		logging.Args(
			logging.Int("start", first),
			logging.Int("end", last),
			logging.Int("workers", workers),
		)...)

	jobs := make(chan int)
	results := make(chan episodes.Result)

	go func() {
		defer close(jobs)
		for i := first; i <= last; i++ {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range jobs {
				results <- h.fetchEpisode(ctx, n)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make(map[string]episodes.Result, total)
	for result := range results {
		collected[result.Index] = result
		h.logResult(ctx, result)
	}

	ordered := make([]episodes.Result, 0, total)
	for i := first; i <= last; i++ {
		index := episodes.FormatIndex(i, h.cfg.Harvest.IndexWidth)
		result, ok := collected[index]
		if !ok {
			err := ctx.Err()
			if err == nil {
				err = errors.New("episode was never dispatched")
			}
			result = episodes.Result{Index: index, Key: episodes.MissingKey, Status: episodes.StatusFailed, Err: err}
		}
		ordered = append(ordered, result)
	}

	report := &Report{
		Results: ordered,
		Records: episodes.Records(ordered),
		Elapsed: time.Since(start),
	}
	summary := episodes.Summarize(ordered)
	logging.WithContext(ctx, h.logger).Info("harvest finished",
		logging.Args(
			logging.Int("episodes", summary.Total),
			logging.Int("keys_found", summary.Succeeded),
			logging.Int("keys_missing", summary.Missing),
			logging.Int("fetch_failures", summary.Failed),
			logging.Duration("elapsed", report.Elapsed),
		)...)
	return report
}

// Run harvests keys, then overwrites the key file and regenerates the script.
// An interrupted harvest leaves both files untouched.
func (h *Harvester) Run(ctx context.Context) (*Report, error) {
	report := h.Harvest(ctx)
	if err := ctx.Err(); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, h.logger), "harvest interrupted", "harvest_interrupted",
			logging.Error(err),
			logging.String("key_file", h.cfg.Paths.KeyFile),
			logging.Hint("rerun reelkey harvest to completion"),
			logging.Impact("key file and script left unchanged"),
		)
		return report, fmt.Errorf("harvest interrupted, key file not written: %w", err)
	}

	if err := episodes.WriteKeyFile(h.cfg.Paths.KeyFile, report.Records); err != nil {
		return report, fmt.Errorf("write key file: %w", err)
	}
	h.logger.Info("key file written", logging.Args(
		logging.String("path", h.cfg.Paths.KeyFile),
		logging.Int("records", len(report.Records)),
	)...)

	for _, r := range report.Records {
		if !r.HasKey() {
			h.logger.Info("script skips episode without key", logging.String(logging.FieldEpisode, r.Index))
		}
	}
	opts := episodes.ScriptOptions{
		OutputDir: h.cfg.Paths.OutputDir,
		Command:   h.cfg.Download.Command,
		Quality:   h.cfg.Download.Quality,
	}
	if err := episodes.WriteScript(h.cfg.Paths.ScriptFile, report.Records, opts); err != nil {
		return report, fmt.Errorf("write script: %w", err)
	}
	h.logger.Info("download script written", logging.String("path", h.cfg.Paths.ScriptFile))
	return report, nil
}

func (h *Harvester) fetchEpisode(ctx context.Context, n int) episodes.Result {
	index := episodes.FormatIndex(n, h.cfg.Harvest.IndexWidth)
	started := time.Now()
	result := episodes.Result{Index: index, Key: episodes.MissingKey}

	body, err := h.fetch(services.WithEpisode(ctx, index), h.cfg.EpisodeURL(index))
	result.Duration = time.Since(started)
	if err != nil {
		result.Status = episodes.StatusFailed
		result.Err = err
		return result
	}

	key, ok := h.extractor.Extract(body)
	if !ok {
		result.Status = episodes.StatusMissing
		return result
	}
	result.Key = key
	result.Status = episodes.StatusOK
	return result
}

func (h *Harvester) fetch(ctx context.Context, url string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, h.cfg.RequestTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, pipelineName, "build request", url, err)
	}
	req.Header.Set("User-Agent", h.cfg.Site.UserAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrTimeout, pipelineName, "fetch", url, err)
		}
		return nil, services.Wrap(services.ErrTransient, pipelineName, "fetch", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		marker := services.ErrTransient
		if resp.StatusCode == http.StatusNotFound {
			marker = services.ErrNotFound
		}
		return nil, services.Wrap(marker, pipelineName, "fetch", fmt.Sprintf("%s returned %s", url, resp.Status), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrTimeout, pipelineName, "read body", url, err)
		}
		return nil, services.Wrap(services.ErrTransient, pipelineName, "read body", url, err)
	}
	return body, nil
}

func (h *Harvester) logResult(ctx context.Context, result episodes.Result) {
	logger := logging.WithContext(services.WithEpisode(ctx, result.Index), h.logger)
	switch result.Status {
	case episodes.StatusOK:
		logger.Info("key found", logging.String("key", result.Key))
	case episodes.StatusMissing:
		logger.Info("key not found on page")
	case episodes.StatusFailed:
		logging.WarnWithContext(logger, "episode fetch failed", "fetch_failed",
			logging.Error(result.Err),
			logging.Hint("check site availability and harvest.request_timeout"),
			logging.Impact("episode recorded without key"),
		)
	}
}
