package timer

import (
	"context"
	"log/slog"
	"time"
)

// TickFunc receives each tick. ctx is cancelled when the ticker stops, so a
// tick blocked on delivery can give up.
type TickFunc func(ctx context.Context, now time.Time)

// Ticker calls a tick function periodically until stopped
type Ticker struct {
	interval time.Duration
	tick     TickFunc
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewTicker creates a ticker worker
func NewTicker(interval time.Duration, tick TickFunc) *Ticker {
	if interval <= 0 {
		interval = time.Second
	}

	return &Ticker{
		interval: interval,
		tick:     tick,
	}
}

// Start begins ticking in a goroutine. Calling Start on a running ticker is a no-op.
func (t *Ticker) Start(ctx context.Context) {
	if t.cancel != nil {
		return
	}
	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})
	go t.run(ctx, t.done)
}

// Stop cancels the ticker and waits for its goroutine to exit
func (t *Ticker) Stop() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	<-t.done
	t.cancel = nil
	t.done = nil
}

// Running reports whether Start was called without a matching Stop
func (t *Ticker) Running() bool {
	return t.cancel != nil
}

// run is the main loop for the ticker
func (t *Ticker) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	slog.Debug("countdown ticker started", "interval", t.interval)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("countdown ticker stopped")
			return
		case now := <-ticker.C:
			t.tick(ctx, now)
		}
	}
}
