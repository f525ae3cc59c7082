package browser

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"

	"reelkey/internal/services"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTracker(clock *fakeClock) *idleTracker {
	tr := newIdleTracker(500 * time.Millisecond)
	tr.now = clock.Now
	tr.lastActivity = clock.Now()
	return tr
}

func TestIdleTrackerRequiresQuietPeriod(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tr := newTestTracker(clock)

	if tr.idle() {
		t.Fatal("tracker should not be idle before the quiet period elapses")
	}
	clock.Advance(600 * time.Millisecond)
	if !tr.idle() {
		t.Fatal("tracker should be idle after quiet period with no requests")
	}
}

func TestIdleTrackerCountsInflightRequests(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tr := newTestTracker(clock)

	tr.observe(&network.EventRequestWillBeSent{RequestID: "a"})
	tr.observe(&network.EventRequestWillBeSent{RequestID: "b"})
	clock.Advance(time.Second)
	if tr.idle() {
		t.Fatal("tracker should be busy with requests in flight")
	}

	tr.observe(&network.EventLoadingFinished{RequestID: "a"})
	clock.Advance(time.Second)
	if tr.idle() {
		t.Fatal("one request still in flight")
	}

	tr.observe(&network.EventLoadingFailed{RequestID: "b"})
	if tr.idle() {
		t.Fatal("quiet period restarts on the last completion")
	}
	clock.Advance(500 * time.Millisecond)
	if !tr.idle() {
		t.Fatal("expected idle after all requests settled")
	}
}

func TestIdleTrackerIgnoresUnrelatedEvents(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tr := newTestTracker(clock)
	tr.observe(&network.EventResponseReceived{RequestID: "x"})
	if tr.pending() != 0 {
		t.Fatalf("expected no pending requests, got %d", tr.pending())
	}
}

func TestIdleTrackerWaitTimesOut(t *testing.T) {
	tr := newIdleTracker(50 * time.Millisecond)
	tr.observe(&network.EventRequestWillBeSent{RequestID: "stream"})

	start := time.Now()
	err := tr.wait(context.Background(), 150*time.Millisecond)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Fatalf("wait returned too early: %s", elapsed)
	}
}

func TestIdleTrackerWaitReturnsWhenSettled(t *testing.T) {
	tr := newIdleTracker(30 * time.Millisecond)
	tr.observe(&network.EventRequestWillBeSent{RequestID: "doc"})
	go func() {
		time.Sleep(40 * time.Millisecond)
		tr.observe(&network.EventLoadingFinished{RequestID: "doc"})
	}()

	if err := tr.wait(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("expected idle, got %v", err)
	}
}

func TestIdleTrackerWaitHonoursCancel(t *testing.T) {
	tr := newIdleTracker(time.Second)
	tr.observe(&network.EventRequestWillBeSent{RequestID: "slow"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tr.wait(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
