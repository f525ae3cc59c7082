package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"reelkey/internal/config"
	"reelkey/internal/logging"
	"reelkey/internal/services"
)

const stageName = "browser"

// Browser hands out pages from a running browser process.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is one browser tab.
type Page interface {
	// Navigate loads url and waits for the load event, bounded by timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// WaitNetworkIdle blocks until no requests have been in flight for the
	// quiet period, or returns an ErrTimeout-marked error after timeout.
	WaitNetworkIdle(ctx context.Context, timeout time.Duration) error
	Close() error
}

// Chrome is a Browser backed by a chromedp-managed Chromium process.
type Chrome struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	logger        *slog.Logger
	quietPeriod   time.Duration

	closeOnce sync.Once
	closeErr  error
}

// Launch starts a headless browser using the browser section of cfg. The
// returned handle must be closed by the caller.
func Launch(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Chrome, error) {
	if cfg == nil {
		return nil, errors.New("browser launch requires config")
	}
	logger = logging.NewComponentLogger(logger, "browser")

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Browser.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("mute-audio", true),
		chromedp.UserAgent(cfg.Site.UserAgent),
	)
	if cfg.Browser.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if path := strings.TrimSpace(cfg.Browser.ExecPath); path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), logging.String(logging.FieldEventType, "devtools_error"))
		}),
	)

	// An empty Run starts the process and attaches to the initial tab.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, services.Wrap(services.ErrExternalTool, stageName, "launch", "start chromium", err)
	}
	logger.Info("browser launched",
		logging.Bool("headless", cfg.Browser.Headless),
		logging.String("exec_path", cfg.Browser.ExecPath),
	)

	return &Chrome{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		logger:        logger,
		quietPeriod:   defaultQuietPeriod,
	}, nil
}

// NewPage opens a fresh tab with network tracking enabled.
func (c *Chrome) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tabCtx, tabCancel := chromedp.NewContext(c.browserCtx)
	tracker := newIdleTracker(c.quietPeriod)
	chromedp.ListenTarget(tabCtx, tracker.observe)

	stop := context.AfterFunc(ctx, tabCancel)
	err := chromedp.Run(tabCtx, network.Enable())
	stop()
	if err != nil {
		tabCancel()
		return nil, services.Wrap(services.ErrExternalTool, stageName, "new page", "open tab", err)
	}
	return &tab{ctx: tabCtx, cancel: tabCancel, tracker: tracker}, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (c *Chrome) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = chromedp.Cancel(c.browserCtx)
		c.browserCancel()
		c.allocCancel()
		if c.closeErr != nil && errors.Is(c.closeErr, context.Canceled) {
			c.closeErr = nil
		}
		c.logger.Debug("browser closed")
	})
	return c.closeErr
}

type tab struct {
	ctx     context.Context
	cancel  context.CancelFunc
	tracker *idleTracker
	once    sync.Once
}

func (t *tab) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	runCtx, cancel := context.WithTimeout(t.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, stageName, "navigate",
				fmt.Sprintf("%s did not load within %s", url, timeout), err)
		}
		return services.Wrap(services.ErrTransient, stageName, "navigate", url, err)
	}
	return nil
}

func (t *tab) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	return t.tracker.wait(ctx, timeout)
}

func (t *tab) Close() error {
	t.once.Do(t.cancel)
	return nil
}
