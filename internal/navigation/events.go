package navigation

import (
	"time"

	"github.com/terra-clan/assessment-engine/internal/models"
	"github.com/terra-clan/assessment-engine/internal/session"
)

// Event is one trigger applied to a tab's navigation state
type Event interface {
	eventName() string
}

// LocationChanged is sent when the browser location changes, including hash
// changes the user triggers by pasting a link.
type LocationChanged struct {
	Href string
}

// AuthChanged carries a new status from the auth collaborator
type AuthChanged struct {
	State models.AuthState
}

// LoggedOut is the auth collaborator's logout signal
type LoggedOut struct{}

// Navigate is an in-app page change that does not come from the location
type Navigate struct {
	Page   models.Page
	Params map[string]string
}

// DocumentUploaded confirms the candidate's CV is uploaded
type DocumentUploaded struct{}

// StartRequested is the candidate's start action
type StartRequested struct{}

// Submitted is the runtime view's submit action
type Submitted struct{}

// PauseChanged is sent when the backend pauses or resumes the timer
type PauseChanged struct {
	Paused bool
	Reason models.PauseReason
}

// Tick is a periodic timer reading
type Tick struct {
	Now time.Time
}

// startCompleted carries a start call's outcome back into the loop
type startCompleted struct {
	session.Completion
}

func (LocationChanged) eventName() string  { return "location_changed" }
func (AuthChanged) eventName() string      { return "auth_changed" }
func (LoggedOut) eventName() string        { return "logged_out" }
func (Navigate) eventName() string         { return "navigate" }
func (DocumentUploaded) eventName() string { return "document_uploaded" }
func (StartRequested) eventName() string   { return "start_requested" }
func (Submitted) eventName() string        { return "submitted" }
func (PauseChanged) eventName() string     { return "pause_changed" }
func (Tick) eventName() string             { return "tick" }
func (startCompleted) eventName() string   { return "start_completed" }
