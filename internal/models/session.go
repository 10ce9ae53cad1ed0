package models

// PauseReason explains why the assessment timer is paused. The set of reasons
// is owned by the backend and carried through as sent; PauseReasonNone stands
// for a null reason.
type PauseReason string

const PauseReasonNone PauseReason = ""

// RepoFile is one file of the task repository shown to the candidate
type RepoFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// RubricCategory is one scoring category. Weights are not required to sum to 1.
type RubricCategory struct {
	Category string  `json:"category"`
	Weight   float64 `json:"weight"`
}

// Budget tracks AI-assistant spend for the attempt
type Budget struct {
	LimitUSD    float64 `json:"limit_usd"`
	ConsumedUSD float64 `json:"consumed_usd"`
}

// Exhausted reports whether the consumed amount reached the limit
func (b *Budget) Exhausted() bool {
	if b == nil || b.LimitUSD <= 0 {
		return false
	}
	return b.ConsumedUSD >= b.LimitUSD
}

// AssessmentSession is the canonical in-memory form of one candidate attempt.
// It is never mutated after normalization; derived values are read from it.
type AssessmentSession struct {
	ID                string           `json:"id"`
	Token             string           `json:"token"`
	StarterCode       string           `json:"starter_code"`
	DurationMinutes   int              `json:"duration_minutes"`
	RemainingSeconds  int              `json:"remaining_seconds"`
	TaskName          string           `json:"task_name"`
	Description       string           `json:"description"`
	Scenario          string           `json:"scenario"`
	RepoFiles         []RepoFile       `json:"repo_files"`
	RubricCategories  []RubricCategory `json:"rubric_categories"`
	CloneCommand      *string          `json:"clone_command"`
	Budget            *Budget          `json:"budget"`
	IsPaused          bool             `json:"is_paused"`
	PauseReason       PauseReason      `json:"pause_reason,omitempty"`
	ProctoringEnabled bool             `json:"proctoring_enabled"`
}

// DurationSeconds returns the full length of the attempt in seconds
func (s *AssessmentSession) DurationSeconds() int {
	return s.DurationMinutes * 60
}

// WithPause returns a copy of the session with the pause fields replaced
func (s *AssessmentSession) WithPause(paused bool, reason PauseReason) *AssessmentSession {
	cp := *s
	cp.IsPaused = paused
	if paused {
		cp.PauseReason = reason
	} else {
		cp.PauseReason = ""
	}
	return &cp
}
