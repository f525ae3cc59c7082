package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"

	"reelkey/internal/services"
)

const (
	defaultQuietPeriod = 500 * time.Millisecond
	idlePollInterval   = 50 * time.Millisecond
)

// idleTracker counts in-flight requests from DevTools network events. The
// page is idle once nothing has been in flight for the quiet period.
type idleTracker struct {
	mu           sync.Mutex
	inflight     map[network.RequestID]struct{}
	lastActivity time.Time
	quiet        time.Duration
	now          func() time.Time
}

func newIdleTracker(quiet time.Duration) *idleTracker {
	if quiet <= 0 {
		quiet = defaultQuietPeriod
	}
	return &idleTracker{
		inflight:     make(map[network.RequestID]struct{}),
		lastActivity: time.Now(),
		quiet:        quiet,
		now:          time.Now,
	}
}

func (t *idleTracker) observe(ev any) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.start(e.RequestID)
	case *network.EventLoadingFinished:
		t.finish(e.RequestID)
	case *network.EventLoadingFailed:
		t.finish(e.RequestID)
	}
}

func (t *idleTracker) start(id network.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight[id] = struct{}{}
	t.lastActivity = t.now()
}

func (t *idleTracker) finish(id network.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inflight, id)
	t.lastActivity = t.now()
}

func (t *idleTracker) idle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) == 0 && t.now().Sub(t.lastActivity) >= t.quiet
}

func (t *idleTracker) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}

func (t *idleTracker) wait(ctx context.Context, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(idlePollInterval)
	defer ticker.Stop()

	for {
		if t.idle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return services.Wrap(services.ErrTimeout, stageName, "wait network idle",
				fmt.Sprintf("%d requests still in flight after %s", t.pending(), timeout), nil)
		case <-ticker.C:
		}
	}
}
