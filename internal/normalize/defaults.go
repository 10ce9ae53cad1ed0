package normalize

import (
	"fmt"

	"github.com/terra-clan/assessment-engine/internal/models"
)

// Defaults fills fields the backend leaves out of a start payload. Older
// records carry no task metadata, so these are used instead of failing.
type Defaults struct {
	DurationMinutes int                `yaml:"duration_minutes" json:"duration_minutes"`
	IsPaused        bool               `yaml:"is_paused" json:"is_paused"`
	PauseReason     models.PauseReason `yaml:"pause_reason" json:"pause_reason"`
	// Indent used when rendering non-text repo file contents
	ContentIndent string `yaml:"content_indent" json:"content_indent"`
}

// MaxDurationMinutes is the longest accepted attempt (one week). Longer
// durations from the backend are treated as absent.
const MaxDurationMinutes = 7 * 24 * 60

// maxNumber bounds numeric payload fields so seconds arithmetic stays in range
const maxNumber = 1 << 53

// DefaultTable returns the built-in defaults
func DefaultTable() Defaults {
	return Defaults{
		DurationMinutes: 30,
		IsPaused:        false,
		PauseReason:     models.PauseReasonNone,
		ContentIndent:   "  ",
	}
}

// Validate checks the table is usable
func (d Defaults) Validate() error {
	if d.DurationMinutes <= 0 || d.DurationMinutes > MaxDurationMinutes {
		return fmt.Errorf("default duration out of range (1..%d): %d", MaxDurationMinutes, d.DurationMinutes)
	}
	return nil
}
