// Package timer derives the live remaining time of an assessment session.
package timer

import (
	"time"

	"github.com/terra-clan/assessment-engine/internal/models"
)

// Countdown is the remaining time at a checkpoint. Display values are derived
// from it and a clock reading; the session's duration is never rewritten.
// The zero value is an expired countdown.
type Countdown struct {
	Remaining  int       `json:"remaining"`  // seconds left at Checkpoint
	Checkpoint time.Time `json:"checkpoint"` // last pause/resume boundary
	Paused     bool      `json:"paused"`
}

// Start begins counting down from the session's remaining seconds
func Start(s *models.AssessmentSession, now time.Time) Countdown {
	return Countdown{
		Remaining:  s.RemainingSeconds,
		Checkpoint: now,
		Paused:     s.IsPaused,
	}
}

// Display returns the seconds left at now, frozen while paused
func (c Countdown) Display(now time.Time) int {
	if c.Paused {
		return max(0, c.Remaining)
	}
	elapsed := int(now.Sub(c.Checkpoint) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	return max(0, c.Remaining-elapsed)
}

// Expired reports the zero boundary the runtime view uses to auto-submit
func (c Countdown) Expired(now time.Time) bool {
	return c.Display(now) == 0
}

// Pause freezes the countdown at its current display value
func (c Countdown) Pause(now time.Time) Countdown {
	if c.Paused {
		return c
	}
	return Countdown{Remaining: c.Display(now), Checkpoint: now, Paused: true}
}

// Resume continues counting from the frozen value
func (c Countdown) Resume(now time.Time) Countdown {
	if !c.Paused {
		return c
	}
	return Countdown{Remaining: c.Remaining, Checkpoint: now, Paused: false}
}
