package timer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/terra-clan/assessment-engine/internal/models"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestCountdown_Display(t *testing.T) {
	c := Start(&models.AssessmentSession{DurationMinutes: 45, RemainingSeconds: 100}, t0)

	tests := []struct {
		after time.Duration
		want  int
	}{
		{0, 100},
		{999 * time.Millisecond, 100},
		{time.Second, 99},
		{90 * time.Second, 10},
		{100 * time.Second, 0},
		{time.Hour, 0},
		{-time.Minute, 100},
	}

	for _, tt := range tests {
		if got := c.Display(t0.Add(tt.after)); got != tt.want {
			t.Errorf("Display(+%v) = %d, want %d", tt.after, got, tt.want)
		}
	}

	if c.Expired(t0.Add(99 * time.Second)) {
		t.Error("should not be expired with 1s left")
	}
	if !c.Expired(t0.Add(100 * time.Second)) {
		t.Error("should be expired at zero")
	}
}

func TestCountdown_PauseResume(t *testing.T) {
	s := &models.AssessmentSession{DurationMinutes: 10, RemainingSeconds: 600}
	c := Start(s, t0)

	c = c.Pause(t0.Add(60 * time.Second))
	if got := c.Display(t0.Add(10 * time.Minute)); got != 540 {
		t.Errorf("paused display = %d, want 540", got)
	}

	// Pausing twice keeps the first checkpoint
	again := c.Pause(t0.Add(5 * time.Minute))
	if again != c {
		t.Errorf("second pause changed countdown: %+v -> %+v", c, again)
	}

	c = c.Resume(t0.Add(5 * time.Minute))
	if got := c.Display(t0.Add(5*time.Minute + 40*time.Second)); got != 500 {
		t.Errorf("resumed display = %d, want 500", got)
	}

	if s.DurationMinutes != 10 || s.RemainingSeconds != 600 {
		t.Errorf("session was modified: %+v", s)
	}
}

func TestCountdown_StartsPausedWithSession(t *testing.T) {
	c := Start(&models.AssessmentSession{DurationMinutes: 1, RemainingSeconds: 30, IsPaused: true}, t0)
	if got := c.Display(t0.Add(time.Hour)); got != 30 {
		t.Errorf("expected frozen 30, got %d", got)
	}
}

func TestCountdown_ZeroValueExpired(t *testing.T) {
	var c Countdown
	if !c.Expired(t0) {
		t.Error("zero countdown should be expired")
	}
}

func TestTicker_StartStop(t *testing.T) {
	var ticks atomic.Int32
	got := make(chan struct{}, 1)

	ticker := NewTicker(5*time.Millisecond, func(ctx context.Context, now time.Time) {
		if ticks.Add(1) == 3 {
			got <- struct{}{}
		}
	})

	ticker.Start(context.Background())
	ticker.Start(context.Background())
	if !ticker.Running() {
		t.Fatal("ticker should be running")
	}

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("ticker did not tick")
	}

	ticker.Stop()
	if ticker.Running() {
		t.Error("ticker should be stopped")
	}
	stopped := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	if ticks.Load() != stopped {
		t.Error("ticker kept ticking after Stop")
	}

	ticker.Stop()
}

func TestTicker_StopUnblocksTick(t *testing.T) {
	ticker := NewTicker(time.Millisecond, func(ctx context.Context, now time.Time) {
		<-ctx.Done()
	})
	ticker.Start(context.Background())
	time.Sleep(10 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		ticker.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a pending tick")
	}
}
