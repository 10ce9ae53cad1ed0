package models

// Page identifies one application page
type Page string

const (
	PageLanding          Page = "landing"
	PageLogin            Page = "login"
	PageRegister         Page = "register"
	PageForgotPassword   Page = "forgot-password"
	PageResetPassword    Page = "reset-password"
	PageVerifyEmail      Page = "verify-email"
	PageDashboard        Page = "dashboard"
	PageCandidates       Page = "candidates"
	PageCandidateDetail  Page = "candidate-detail"
	PageTasks            Page = "tasks"
	PageAnalytics        Page = "analytics"
	PageSettings         Page = "settings"
	PageWorkableCallback Page = "workable-callback"
	PageCandidateWelcome Page = "candidate-welcome"
	PageAssessment       Page = "assessment"
)

var allPages = map[Page]struct{}{
	PageLanding: {}, PageLogin: {}, PageRegister: {}, PageForgotPassword: {},
	PageResetPassword: {}, PageVerifyEmail: {}, PageDashboard: {}, PageCandidates: {},
	PageCandidateDetail: {}, PageTasks: {}, PageAnalytics: {}, PageSettings: {},
	PageWorkableCallback: {}, PageCandidateWelcome: {}, PageAssessment: {},
}

// IsValid reports whether p belongs to the page enumeration
func (p Page) IsValid() bool {
	_, ok := allPages[p]
	return ok
}

// IsCandidateFacing returns true for the pages of the candidate funnel
func (p Page) IsCandidateFacing() bool {
	return p == PageCandidateWelcome || p == PageAssessment
}

// Route parameter keys
const (
	ParamToken        = "token"
	ParamAssessmentID = "assessmentId"
	ParamCode         = "code"
)

// RouteDescriptor is the canonical page and parameters derived from a location.
// Params only holds keys that were present and non-empty. Treat it as read-only.
type RouteDescriptor struct {
	Page   Page              `json:"page"`
	Params map[string]string `json:"params"`
}

// LandingRoute is the fallback route for anything unrecognized
func LandingRoute() RouteDescriptor {
	return RouteDescriptor{Page: PageLanding, Params: map[string]string{}}
}

// Param returns a parameter value and whether it was present
func (r RouteDescriptor) Param(key string) (string, bool) {
	v, ok := r.Params[key]
	return v, ok
}

// Token returns the invite token, or "" when absent
func (r RouteDescriptor) Token() string {
	return r.Params[ParamToken]
}

// CloneParams returns a copy of the parameters safe to mutate
func (r RouteDescriptor) CloneParams() map[string]string {
	out := make(map[string]string, len(r.Params))
	for k, v := range r.Params {
		out[k] = v
	}
	return out
}

// Equal compares two descriptors by value
func (r RouteDescriptor) Equal(other RouteDescriptor) bool {
	if r.Page != other.Page || len(r.Params) != len(other.Params) {
		return false
	}
	for k, v := range r.Params {
		if ov, ok := other.Params[k]; !ok || ov != v {
			return false
		}
	}
	return true
}
