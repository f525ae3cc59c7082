package downloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"reelkey/internal/browser"
	"reelkey/internal/config"
	"reelkey/internal/episodes"
	"reelkey/internal/logging"
	"reelkey/internal/services"
	"reelkey/internal/services/abyssdl"
)

const pipelineName = "download"

// Fetcher runs the external downloader for one key.
type Fetcher interface {
	Download(ctx context.Context, key, outputPath string) error
}

const defaultProgressInterval = 5 * time.Second

// Option configures the downloader.
type Option func(*Downloader)

// WithProgressInterval sets how often the output file is polled while the
// external downloader runs. Zero or less disables polling.
func WithProgressInterval(interval time.Duration) Option {
	return func(d *Downloader) {
		d.progressInterval = interval
	}
}

// Downloader coordinates browser pages and external downloader processes.
type Downloader struct {
	cfg              *config.Config
	browser          browser.Browser
	fetcher          Fetcher
	logger           *slog.Logger
	progressInterval time.Duration
}

// Report is the outcome of a download batch, one result per key file record.
type Report struct {
	Results []episodes.Result
	Skipped []episodes.SkippedLine
	Elapsed time.Duration
}

// New constructs a downloader. The browser is shared by all items and is not
// closed by the downloader.
func New(cfg *config.Config, b browser.Browser, fetcher Fetcher, logger *slog.Logger, opts ...Option) (*Downloader, error) {
	if cfg == nil {
		return nil, errors.New("downloader requires config")
	}
	if b == nil {
		return nil, errors.New("downloader requires a browser")
	}
	if fetcher == nil {
		return nil, errors.New("downloader requires a fetcher")
	}
	d := &Downloader{
		cfg:              cfg,
		browser:          b,
		fetcher:          fetcher,
		logger:           logging.NewComponentLogger(logger, "downloader"),
		progressInterval: defaultProgressInterval,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// RunFile reads the configured key file and downloads every record in it.
func (d *Downloader) RunFile(ctx context.Context) (*Report, error) {
	kf, err := episodes.ReadKeyFile(d.cfg.Paths.KeyFile)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, pipelineName, "read key file", d.cfg.Paths.KeyFile, err)
	}
	for _, skipped := range kf.Skipped {
		logging.WarnWithContext(d.logger, "key file line ignored", "keyfile_line_skipped",
			logging.Int("line", skipped.Line),
			logging.String("text", skipped.Text),
			logging.String("reason", skipped.Reason),
			logging.Hint("fix the line or rerun reelkey harvest"),
			logging.Impact("no download for this line"),
		)
	}
	report, err := d.Run(ctx, kf.Records)
	if report != nil {
		report.Skipped = kf.Skipped
	}
	return report, err
}

// Run downloads records with bounded concurrency and returns one result per
// record in input order. Item failures are reported in the results; the error
// return is reserved for failures that prevent the batch from starting.
func (d *Downloader) Run(ctx context.Context, records []episodes.Record) (*Report, error) {
	ctx = services.WithPipeline(ctx, pipelineName)
	start := time.Now()
	logger := logging.WithContext(ctx, d.logger)

	if err := os.MkdirAll(d.cfg.Paths.OutputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, pipelineName, "create output directory", d.cfg.Paths.OutputDir, err)
	}

	concurrency := d.cfg.Download.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	logger.Info("download started",
		logging.Int("episodes", len(records)),
		logging.Int("concurrency", concurrency),
		logging.String("output_dir", d.cfg.Paths.OutputDir),
	)

	results := make([]episodes.Result, len(records))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, rec := range records {
		if !rec.HasKey() && d.cfg.Download.SkipMissingKeys {
			results[i] = episodes.Result{Index: rec.Index, Key: rec.Key, Status: episodes.StatusSkipped}
			logging.WithContext(services.WithEpisode(ctx, rec.Index), d.logger).
				Info("episode skipped, no key harvested")
			continue
		}
		// Slots are taken here so items start in file order.
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			results[i] = episodes.Result{Index: rec.Index, Key: rec.Key, Status: episodes.StatusFailed, Err: ctx.Err()}
			continue
		}
		wg.Add(1)
		go func(i int, rec episodes.Record) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = d.processSafely(ctx, rec)
		}(i, rec)
	}
	wg.Wait()

	report := &Report{Results: results, Elapsed: time.Since(start)}
	summary := episodes.Summarize(results)
	logger.Info("download finished",
		logging.Int("episodes", summary.Total),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

func (d *Downloader) processSafely(ctx context.Context, rec episodes.Record) (result episodes.Result) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			logging.ErrorWithContext(logging.WithContext(services.WithEpisode(ctx, rec.Index), d.logger),
				"episode pipeline panicked", "item_panic",
				logging.Error(err),
				logging.String("stack", string(debug.Stack())),
			)
			result = episodes.Result{Index: rec.Index, Key: rec.Key, Status: episodes.StatusFailed, Err: err}
		}
	}()
	return d.process(ctx, rec)
}

func (d *Downloader) process(ctx context.Context, rec episodes.Record) episodes.Result {
	ctx = services.WithEpisode(ctx, rec.Index)
	logger := logging.WithContext(ctx, d.logger)
	started := time.Now()
	result := episodes.Result{Index: rec.Index, Key: rec.Key}

	fail := func(stage string, err error) episodes.Result {
		result.Status = episodes.StatusFailed
		result.Err = err
		result.Duration = time.Since(started)
		attrs := []logging.Attr{
			logging.String(logging.FieldStage, stage),
			logging.Error(err),
			logging.String("error_kind", services.Kind(err)),
		}
		if stderr := abyssdl.StderrOf(err); stderr != "" {
			attrs = append(attrs, logging.String("stderr", stderr))
		}
		logging.ErrorWithContext(logger, "episode download failed", "download_failed", attrs...)
		return result
	}

	if err := ctx.Err(); err != nil {
		return fail("open_page", err)
	}
	page, err := d.browser.NewPage(ctx)
	if err != nil {
		return fail("open_page", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Debug("page close failed", logging.Error(err))
		}
	}()

	url := d.cfg.EpisodeURL(rec.Index)
	logger.Info("loading episode page", logging.String("url", url))
	if err := page.Navigate(services.WithStage(ctx, "navigate"), url, d.cfg.NavigateTimeout()); err != nil {
		return fail("navigate", err)
	}

	if err := page.WaitNetworkIdle(services.WithStage(ctx, "settle"), d.cfg.SettleTimeout()); err != nil {
		if !errors.Is(err, services.ErrTimeout) {
			return fail("settle", err)
		}
		logging.WarnWithContext(logger, "network did not settle", "settle_timeout",
			logging.Error(err),
			logging.Duration("timeout", d.cfg.SettleTimeout()),
			logging.Hint("raise download.settle_timeout if downloads fail"),
			logging.Impact("continuing to download without idle network"),
		)
	}

	out := d.cfg.OutputPath(rec.Index)
	logger.Info("starting downloader", logging.String("key", rec.Key), logging.String("output", out))
	stopProgress := d.watchProgress(ctx, logger, out)
	err = d.fetcher.Download(services.WithStage(ctx, "fetch"), rec.Key, out)
	stopProgress()
	if err != nil {
		if info, statErr := os.Stat(out); statErr == nil {
			result.Bytes = info.Size()
			logging.WarnWithContext(logger, "partial output left behind", "output_partial",
				logging.String("output", out),
				logging.String("size", humanize.IBytes(uint64(info.Size()))),
				logging.Hint("delete the file before retrying this episode"),
				logging.Impact("file is likely truncated"),
			)
		}
		return fail("fetch", err)
	}

	result.Status = episodes.StatusOK
	result.Duration = time.Since(started)
	result.Bytes = d.reportSize(logger, out)
	logger.Info("episode downloaded",
		logging.String("output", out),
		logging.Duration("elapsed", result.Duration),
	)
	return result
}

// watchProgress polls path until the returned stop function is called and
// logs the file size whenever it changes.
func (d *Downloader) watchProgress(ctx context.Context, logger *slog.Logger, path string) (stop func()) {
	if d.progressInterval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(d.progressInterval)
		defer ticker.Stop()
		last := int64(-1)
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			info, err := os.Stat(path)
			if err != nil || info.Size() == last {
				continue
			}
			last = info.Size()
			logger.Info("download progress",
				logging.String("size", humanize.IBytes(uint64(last))),
				logging.Int64("bytes", last),
			)
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

// reportSize logs the size of a finished download and flags files that are
// suspiciously small. It returns 0 when the file cannot be read.
func (d *Downloader) reportSize(logger *slog.Logger, path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		logging.WarnWithContext(logger, "downloaded file missing", "output_missing",
			logging.String("output", path),
			logging.Error(err),
			logging.Hint("check downloader output in debug logs"),
			logging.Impact("episode may need to be downloaded again"),
		)
		return 0
	}
	size := info.Size()
	logger.Info("output size", logging.String("size", humanize.IBytes(uint64(size))))
	if threshold := d.cfg.MinFileBytes(); threshold > 0 && size < threshold {
		logging.WarnWithContext(logger, "downloaded file is unusually small", "output_small",
			logging.String("size", humanize.IBytes(uint64(size))),
			logging.String("threshold", humanize.IBytes(uint64(threshold))),
			logging.Hint("inspect the file; the key may have expired"),
			logging.Impact("episode may be incomplete"),
		)
	}
	return size
}
