// Package navigation owns a tab's NavigationState. Every trigger (location and
// auth changes, user actions, start completions, timer ticks) is an Event
// applied one at a time by a single goroutine.
package navigation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/terra-clan/assessment-engine/internal/authgate"
	"github.com/terra-clan/assessment-engine/internal/models"
	"github.com/terra-clan/assessment-engine/internal/normalize"
	"github.com/terra-clan/assessment-engine/internal/routing"
	"github.com/terra-clan/assessment-engine/internal/session"
	"github.com/terra-clan/assessment-engine/internal/timer"
)

var ErrClosed = errors.New("dispatcher closed")

const eventBuffer = 64

// State is the navigation state of one tab
type State struct {
	CurrentPage models.Page               `json:"current_page"`
	RouteParams map[string]string         `json:"route_params"`
	Session     *models.AssessmentSession `json:"session,omitempty"`
	Funnel      models.FunnelState        `json:"funnel,omitempty"`
}

// View is what the tab renders after an event
type View struct {
	Page           models.Page               `json:"page"`
	Params         map[string]string         `json:"params"`
	Funnel         models.FunnelState        `json:"funnel,omitempty"`
	Session        *models.AssessmentSession `json:"session,omitempty"`
	DisplaySeconds int                       `json:"display_seconds"`
	Expired        bool                      `json:"expired"`
	Loading        bool                      `json:"loading"`
	Waiting        bool                      `json:"waiting"`
	CanStart       bool                      `json:"can_start"`
	StartError     string                    `json:"start_error,omitempty"`
	FatalError     string                    `json:"fatal_error,omitempty"`
	Href           string                    `json:"href,omitempty"` // location to write, if any
}

// Snapshot is the restorable state of a tab
type Snapshot struct {
	Funnel    session.Snapshot `json:"funnel"`
	Countdown timer.Countdown  `json:"countdown"`
}

// Options configures a Dispatcher
type Options struct {
	TickInterval time.Duration
	Clock        func() time.Time
	Logger       *slog.Logger
	Normalizer   *normalize.Normalizer
	// Publish receives the view after each event handled by Run
	Publish func(View)
	// Persist receives the snapshot whenever it changes
	Persist func(Snapshot)
	// OnTransition receives every funnel state change
	OnTransition func(session.Transition)
}

// Dispatcher applies events to one tab's navigation state
type Dispatcher struct {
	events  chan Event
	done    chan struct{}
	ctx     context.Context
	clock   func() time.Time
	logger  *slog.Logger
	publish func(View)
	persist func(Snapshot)

	controller *session.Controller
	ticker     *timer.Ticker

	route     models.RouteDescriptor
	auth      models.AuthState
	state     State
	countdown timer.Countdown
	href      string
	persisted Snapshot
}

// NewDispatcher creates a dispatcher for one tab. Auth starts out resolving.
func NewDispatcher(starter session.Starter, opts Options) *Dispatcher {
	d := &Dispatcher{
		events:  make(chan Event, eventBuffer),
		done:    make(chan struct{}),
		ctx:     context.Background(),
		clock:   opts.Clock,
		logger:  opts.Logger,
		publish: opts.Publish,
		persist: opts.Persist,
		route:   models.LandingRoute(),
		auth:    models.ResolvingAuth,
	}
	if d.clock == nil {
		d.clock = time.Now
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}

	controllerOpts := []session.Option{
		session.WithLogger(d.logger),
		session.WithClock(d.clock),
	}
	if opts.OnTransition != nil {
		controllerOpts = append(controllerOpts, session.WithTransitionHook(opts.OnTransition))
	}
	d.controller = session.NewController(starter, opts.Normalizer, d.deliver, controllerOpts...)
	d.ticker = timer.NewTicker(opts.TickInterval, d.tick)
	d.sync()
	return d
}

// Run applies queued events until ctx is cancelled
func (d *Dispatcher) Run(ctx context.Context) error {
	d.ctx = ctx
	defer d.shutdown()

	d.emit(d.Apply(nil))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-d.events:
			d.emit(d.Apply(ev))
		}
	}
}

// Dispatch queues an event for the loop
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	select {
	case <-d.done:
		return ErrClosed
	default:
	}
	select {
	case d.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return ErrClosed
	}
}

// Restore loads a snapshot before the first event is applied
func (d *Dispatcher) Restore(s Snapshot) bool {
	if !d.controller.Restore(s.Funnel) {
		return false
	}
	d.countdown = s.Countdown
	d.persisted = s
	d.sync()
	return true
}

// State returns the current navigation state
func (d *Dispatcher) State() State {
	return d.state
}

// Auth returns the auth status the gate last saw
func (d *Dispatcher) Auth() models.AuthState {
	return d.auth
}

// Snapshot returns the restorable state
func (d *Dispatcher) Snapshot() Snapshot {
	return Snapshot{Funnel: d.controller.Snapshot(), Countdown: d.countdown}
}

// Apply applies one event and returns the resulting view. A nil event only
// recomputes the view. Apply must only be called from the owning goroutine.
func (d *Dispatcher) Apply(ev Event) View {
	now := d.clock()

	switch e := ev.(type) {
	case nil:
	case LocationChanged:
		d.route = routing.ParseString(e.Href)
		d.enterRoute()
	case Navigate:
		d.route = navigateRoute(e)
		d.enterRoute()
	case AuthChanged:
		d.auth = e.State
	case LoggedOut:
		d.auth = models.AuthState{}
	case DocumentUploaded:
		d.controller.ConfirmDocument()
	case StartRequested:
		if d.state.CurrentPage == models.PageCandidateWelcome {
			d.controller.RequestStart(d.ctx)
		}
	case startCompleted:
		wasRunning := d.controller.State() == models.FunnelRunning
		if d.controller.Complete(e.Completion, d.activeToken()) &&
			!wasRunning && d.controller.State() == models.FunnelRunning {
			d.beginCountdown(now)
		}
	case Submitted:
		if d.controller.Submit() {
			d.countdown = d.countdown.Pause(now)
			d.logger.Info("assessment submitted", "display_seconds", d.countdown.Display(now))
		}
	case PauseChanged:
		if d.controller.SetPaused(e.Paused, e.Reason) {
			if e.Paused {
				d.countdown = d.countdown.Pause(now)
			} else {
				d.countdown = d.countdown.Resume(now)
			}
		}
	case Tick:
		now = e.Now
	default:
		d.logger.Warn("unknown navigation event", "event", ev.eventName())
	}

	d.sync()
	return d.view(now)
}

// Close stops the timer and cancels a pending start call. Only for
// dispatchers that were never Run.
func (d *Dispatcher) Close() {
	d.shutdown()
}

func (d *Dispatcher) enterRoute() {
	switch d.route.Page {
	case models.PageCandidateWelcome:
		d.controller.Enter(d.route)
	case models.PageAssessment:
	default:
		d.controller.Leave()
	}
}

// beginCountdown starts the clock for a freshly started session and asks the
// tab to show the session's own location.
func (d *Dispatcher) beginCountdown(now time.Time) {
	s := d.controller.Session()
	d.countdown = timer.Start(s, now)
	d.href = routing.Href(models.RouteDescriptor{
		Page: models.PageAssessment,
		Params: map[string]string{
			models.ParamAssessmentID: s.ID,
			models.ParamToken:        d.controller.Token(),
		},
	})
}

// sync recomputes the navigation state from route, auth and funnel, and
// starts or stops the ticker to match the funnel.
func (d *Dispatcher) sync() {
	funnel := d.controller.State()
	page := d.route.Page
	params := d.route.Params

	// The assessment page belongs to the held funnel, never to params
	// supplied with the navigation.
	if page == models.PageAssessment {
		params = d.funnelParams()
	}

	switch {
	case page == models.PageCandidateWelcome && funnel.HoldsSession():
		page = models.PageAssessment
	case page == models.PageAssessment && !funnel.HoldsSession():
		if d.controller.Token() != "" {
			page = models.PageCandidateWelcome
		} else {
			page = models.PageLanding
			params = map[string]string{}
		}
	}

	if redirect, ok := authgate.DecideRedirect(d.auth, page); ok {
		d.logger.Debug("auth gate redirect", "from", page, "to", redirect)
		page = redirect
		params = map[string]string{}
	}

	d.state = State{
		CurrentPage: page,
		RouteParams: params,
		Session:     d.controller.Session(),
		Funnel:      funnel,
	}

	switch {
	case funnel == models.FunnelRunning && !d.ticker.Running():
		d.ticker.Start(d.ctx)
	case funnel != models.FunnelRunning && d.ticker.Running():
		d.ticker.Stop()
	}
}

func (d *Dispatcher) view(now time.Time) View {
	v := View{
		Page:       d.state.CurrentPage,
		Params:     d.state.RouteParams,
		Funnel:     d.state.Funnel,
		Session:    d.state.Session,
		Loading:    d.auth.IsResolving,
		Waiting:    d.state.Funnel == models.FunnelStarting,
		CanStart:   d.state.CurrentPage == models.PageCandidateWelcome && d.controller.CanStart(),
		StartError: d.controller.StartError(),
		FatalError: d.controller.FatalError(),
		Href:       d.href,
	}
	d.href = ""

	if d.state.Funnel.HoldsSession() {
		v.DisplaySeconds = d.countdown.Display(now)
		v.Expired = v.DisplaySeconds == 0
	}
	return v
}

// funnelParams describes the held funnel as route params
func (d *Dispatcher) funnelParams() map[string]string {
	params := map[string]string{}
	if token := d.controller.Token(); token != "" {
		params[models.ParamToken] = token
	}
	if s := d.controller.Session(); s != nil {
		params[models.ParamAssessmentID] = s.ID
	}
	return params
}

// activeToken is the token of the route currently shown, "" off the candidate pages
func (d *Dispatcher) activeToken() string {
	if !d.route.Page.IsCandidateFacing() {
		return ""
	}
	if d.route.Page == models.PageAssessment {
		return d.controller.Token()
	}
	if token := d.route.Token(); token != "" {
		return token
	}
	return d.controller.Token()
}

func (d *Dispatcher) emit(v View) {
	if d.publish != nil {
		d.publish(v)
	}
	if d.persist == nil {
		return
	}
	snap := d.Snapshot()
	if snapshotEqual(snap, d.persisted) {
		return
	}
	d.persisted = snap
	d.persist(snap)
}

// deliver runs on the start goroutine
func (d *Dispatcher) deliver(c session.Completion) {
	select {
	case d.events <- startCompleted{c}:
	case <-d.done:
	}
}

// tick runs on the ticker goroutine
func (d *Dispatcher) tick(ctx context.Context, now time.Time) {
	select {
	case d.events <- Tick{Now: now}:
	case <-ctx.Done():
	case <-d.done:
	}
}

func (d *Dispatcher) shutdown() {
	select {
	case <-d.done:
		return
	default:
	}
	close(d.done)
	d.ticker.Stop()
	d.controller.Close()
}

func navigateRoute(e Navigate) models.RouteDescriptor {
	if !e.Page.IsValid() {
		return models.LandingRoute()
	}
	params := make(map[string]string, len(e.Params))
	for k, v := range e.Params {
		if v != "" {
			params[k] = v
		}
	}
	return models.RouteDescriptor{Page: e.Page, Params: params}
}

func snapshotEqual(a, b Snapshot) bool {
	return a.Funnel.State == b.Funnel.State &&
		a.Funnel.Token == b.Funnel.Token &&
		a.Funnel.DocumentUploaded == b.Funnel.DocumentUploaded &&
		a.Funnel.Session == b.Funnel.Session &&
		a.Funnel.FatalError == b.Funnel.FatalError &&
		a.Countdown == b.Countdown
}
