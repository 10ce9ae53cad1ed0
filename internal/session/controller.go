// Package session drives a candidate's assessment funnel from invite link to
// submission. A Controller is owned by a single goroutine; only the start call
// runs elsewhere and reports back through the deliver function.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/assessment-engine/internal/models"
	"github.com/terra-clan/assessment-engine/internal/normalize"
)

var ErrNoStarter = errors.New("no assessment starter configured")

const (
	msgMissingToken   = "This invite link is missing its access token. Ask your recruiter for a new link."
	msgInvalidSession = "The assessment could not be loaded. Ask your recruiter for a new invite link."
	msgStartFailed    = "Could not start the assessment. Please try again."
)

// Starter is the backend collaborator that creates an assessment attempt.
// It is not idempotent: every call may create a new attempt.
type Starter interface {
	StartAssessment(ctx context.Context, token string) ([]byte, error)
}

// Completion is the outcome of one start call, tagged with the request it answers
type Completion struct {
	RequestID uuid.UUID
	Token     string
	Raw       []byte
	Err       error
}

// Transition is one recorded funnel state change
type Transition struct {
	Token string             `json:"token"`
	From  models.FunnelState `json:"from"`
	To    models.FunnelState `json:"to"`
	At    time.Time          `json:"at"`
}

// Snapshot is the part of a funnel that survives a reconnect
type Snapshot struct {
	State            models.FunnelState        `json:"state"`
	Token            string                    `json:"token"`
	DocumentUploaded bool                      `json:"document_uploaded"`
	Session          *models.AssessmentSession `json:"session,omitempty"`
	FatalError       string                    `json:"fatal_error,omitempty"`
}

type request struct {
	id     uuid.UUID
	token  string
	cancel context.CancelFunc
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithTransitionHook is called after every funnel state change
func WithTransitionHook(hook func(Transition)) Option {
	return func(c *Controller) {
		c.onTransition = hook
	}
}

// WithClock sets the clock used to timestamp transitions
func WithClock(clock func() time.Time) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// Controller is the funnel state machine for one tab
type Controller struct {
	starter      Starter
	normalizer   *normalize.Normalizer
	deliver      func(Completion)
	logger       *slog.Logger
	onTransition func(Transition)
	clock        func() time.Time

	state            models.FunnelState
	token            string
	documentUploaded bool
	session          *models.AssessmentSession
	startErr         string
	fatalErr         string
	inflight         *request
}

// NewController creates a controller. deliver receives start completions from
// the start goroutine and must hand them back to the owning goroutine.
func NewController(starter Starter, normalizer *normalize.Normalizer, deliver func(Completion), opts ...Option) *Controller {
	c := &Controller{
		starter:    starter,
		normalizer: normalizer,
		deliver:    deliver,
		logger:     slog.Default(),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.normalizer == nil {
		c.normalizer = normalize.New(normalize.DefaultTable())
	}
	return c
}

// Enter is called whenever the candidate-welcome page is reached.
// A route for the token already held keeps the funnel and its session as they
// are; a different token starts a new attempt.
func (c *Controller) Enter(route models.RouteDescriptor) {
	token := route.Token()
	if token == "" {
		c.cancelInflight("invite token missing")
		c.token = ""
		c.session = nil
		c.documentUploaded = false
		c.startErr = ""
		c.fatalErr = msgMissingToken
		c.transition(models.FunnelError)
		return
	}

	if token == c.token && c.state != models.FunnelNone {
		if c.session != nil {
			c.logger.Debug("reusing held assessment session", "token", maskToken(token), "funnel", c.state)
		}
		return
	}

	c.cancelInflight("route token changed")
	c.token = token
	c.session = nil
	c.documentUploaded = false
	c.startErr = ""
	c.fatalErr = ""
	c.transition(models.FunnelInvited)
}

// Leave is called when navigation moves off the candidate pages. A pending
// start call is cancelled; a held session is kept for back-navigation.
func (c *Controller) Leave() {
	if c.inflight == nil {
		return
	}
	c.cancelInflight("navigated away")
	c.transition(models.FunnelDocumentsPending)
}

// ConfirmDocument records that the required CV is uploaded
func (c *Controller) ConfirmDocument() bool {
	if c.state != models.FunnelInvited {
		return false
	}
	c.documentUploaded = true
	c.transition(models.FunnelDocumentsPending)
	return true
}

// CanStart reports whether a start action would be accepted
func (c *Controller) CanStart() bool {
	return c.state == models.FunnelDocumentsPending && c.documentUploaded && c.inflight == nil
}

// RequestStart issues the start call. It is a no-op unless the funnel is
// waiting in DocumentsPending, so repeated clicks while Starting issue nothing.
func (c *Controller) RequestStart(ctx context.Context) bool {
	if !c.CanStart() {
		c.logger.Debug("start ignored", "funnel", c.state, "token", maskToken(c.token))
		return false
	}
	if c.starter == nil {
		c.startErr = msgStartFailed
		c.logger.Error("failed to start assessment", "error", ErrNoStarter)
		return false
	}

	reqCtx, cancel := context.WithCancel(ctx)
	req := &request{id: uuid.New(), token: c.token, cancel: cancel}
	c.inflight = req
	c.startErr = ""
	c.transition(models.FunnelStarting)

	c.logger.Info("starting assessment", "token", maskToken(req.token), "request_id", req.id)

	go func() {
		raw, err := c.starter.StartAssessment(reqCtx, req.token)
		c.deliver(Completion{RequestID: req.id, Token: req.token, Raw: raw, Err: err})
	}()
	return true
}

// Complete applies a start completion. activeToken is the token of the route
// currently shown; a completion for any other token or request is discarded.
// Returns true if the completion was applied.
func (c *Controller) Complete(done Completion, activeToken string) bool {
	if c.inflight == nil || done.RequestID != c.inflight.id {
		c.logger.Info("discarding stale start completion",
			"request_id", done.RequestID,
			"token", maskToken(done.Token),
		)
		return false
	}

	req := c.inflight
	c.inflight = nil
	req.cancel()

	if done.Token != activeToken || done.Token != c.token {
		c.logger.Info("discarding start completion for inactive token",
			"request_id", done.RequestID,
			"token", maskToken(done.Token),
			"active_token", maskToken(activeToken),
		)
		c.transition(models.FunnelDocumentsPending)
		return false
	}

	if done.Err != nil {
		c.startErr = errorDetail(done.Err)
		c.logger.Warn("assessment start failed", "error", done.Err, "token", maskToken(done.Token))
		c.transition(models.FunnelDocumentsPending)
		return true
	}

	s, report, err := c.normalizer.NormalizeWithReport(done.Raw)
	if err != nil {
		c.fatalErr = msgInvalidSession
		c.logger.Error("invalid assessment start payload", "error", err, "token", maskToken(done.Token))
		c.transition(models.FunnelError)
		return true
	}
	if !report.Clean() {
		c.logger.Warn("repo files adjusted during normalization",
			"assessment_id", s.ID,
			"dropped", report.DroppedFiles,
			"overwritten", report.OverwrittenPaths,
		)
	}

	c.session = s
	c.transition(models.FunnelRunning)
	c.logger.Info("assessment running", "assessment_id", s.ID, "token", maskToken(done.Token))
	return true
}

// Submit records the runtime view's submission
func (c *Controller) Submit() bool {
	if c.state != models.FunnelRunning {
		return false
	}
	c.transition(models.FunnelSubmitted)
	return true
}

// SetPaused replaces the held session with a copy carrying the pause fields
func (c *Controller) SetPaused(paused bool, reason models.PauseReason) bool {
	if c.state != models.FunnelRunning || c.session == nil {
		return false
	}
	if c.session.IsPaused == paused && (!paused || c.session.PauseReason == reason) {
		return false
	}
	c.session = c.session.WithPause(paused, reason)
	return true
}

// Restore loads a snapshot into a fresh controller. A snapshot taken while
// Starting comes back as DocumentsPending since its call did not survive.
func (c *Controller) Restore(s Snapshot) bool {
	if c.state != models.FunnelNone || s.State == models.FunnelNone {
		return false
	}
	if s.State.HoldsSession() && s.Session == nil {
		return false
	}

	c.token = s.Token
	c.documentUploaded = s.DocumentUploaded
	c.session = s.Session
	c.fatalErr = s.FatalError
	c.state = s.State
	if c.state == models.FunnelStarting {
		c.state = models.FunnelDocumentsPending
	}
	c.logger.Info("funnel restored", "token", maskToken(c.token), "funnel", c.state)
	return true
}

// Snapshot returns the restorable part of the funnel
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		State:            c.state,
		Token:            c.token,
		DocumentUploaded: c.documentUploaded,
		Session:          c.session,
		FatalError:       c.fatalErr,
	}
}

// Close cancels a pending start call
func (c *Controller) Close() {
	c.cancelInflight("closed")
}

func (c *Controller) State() models.FunnelState          { return c.state }
func (c *Controller) Token() string                      { return c.token }
func (c *Controller) Session() *models.AssessmentSession { return c.session }
func (c *Controller) DocumentUploaded() bool             { return c.documentUploaded }
func (c *Controller) StartError() string                 { return c.startErr }
func (c *Controller) FatalError() string                 { return c.fatalErr }

func (c *Controller) cancelInflight(reason string) {
	if c.inflight == nil {
		return
	}
	c.logger.Info("cancelling assessment start",
		"reason", reason,
		"request_id", c.inflight.id,
		"token", maskToken(c.inflight.token),
	)
	c.inflight.cancel()
	c.inflight = nil
}

// transition moves to next. Entering Invited or Error starts a new attempt
// and is allowed from any state.
func (c *Controller) transition(next models.FunnelState) {
	prev := c.state
	if prev == next {
		return
	}
	if !prev.CanTransition(next) && next != models.FunnelInvited && next != models.FunnelError {
		c.logger.Error("invalid funnel transition", "from", prev, "to", next)
		return
	}

	c.state = next
	if c.onTransition != nil {
		c.onTransition(Transition{Token: c.token, From: prev, To: next, At: c.clock()})
	}
}

// detailer is implemented by backend errors carrying a human-readable detail
type detailer interface {
	Detail() string
}

func errorDetail(err error) string {
	var d detailer
	if errors.As(err, &d) && d.Detail() != "" {
		return d.Detail()
	}
	return msgStartFailed
}

// maskToken returns first 8 chars of a token for safe logging
func maskToken(token string) string {
	if len(token) < 8 {
		return "***"
	}
	return token[:8] + "..."
}
