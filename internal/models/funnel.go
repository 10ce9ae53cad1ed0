package models

// FunnelState represents where a candidate is in the assessment funnel
type FunnelState string

const (
	FunnelNone             FunnelState = ""
	FunnelInvited          FunnelState = "invited"           // Arrived via invite link, no CV yet
	FunnelDocumentsPending FunnelState = "documents_pending" // CV uploaded, waiting for start
	FunnelStarting         FunnelState = "starting"          // Start call in flight
	FunnelRunning          FunnelState = "running"           // Session held, timer ticking
	FunnelSubmitted        FunnelState = "submitted"         // Candidate submitted
	FunnelError            FunnelState = "error"             // Unrecoverable, needs a new invite
)

var funnelTransitions = map[FunnelState][]FunnelState{
	FunnelNone:             {FunnelInvited, FunnelError},
	FunnelInvited:          {FunnelDocumentsPending, FunnelError},
	FunnelDocumentsPending: {FunnelStarting, FunnelError},
	FunnelStarting:         {FunnelRunning, FunnelDocumentsPending, FunnelError},
	FunnelRunning:          {FunnelSubmitted, FunnelError},
	FunnelSubmitted:        {FunnelError},
}

// CanTransition reports whether the funnel may move from s to next
func (s FunnelState) CanTransition(next FunnelState) bool {
	for _, allowed := range funnelTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the state has no outgoing transition within one attempt
func (s FunnelState) IsTerminal() bool {
	return s == FunnelSubmitted || s == FunnelError
}

// HoldsSession returns true if a normalized session is attached in this state
func (s FunnelState) HoldsSession() bool {
	return s == FunnelRunning || s == FunnelSubmitted
}
