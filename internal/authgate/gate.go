// Package authgate decides when authentication status forces a page change.
package authgate

import (
	"github.com/terra-clan/assessment-engine/internal/models"
)

// Pages a signed-in user is moved away from
var guestOnly = map[models.Page]bool{
	models.PageLanding:        true,
	models.PageLogin:          true,
	models.PageForgotPassword: true,
}

// Pages that need a signed-in user. Candidate and recovery pages are not listed
// and are reachable either way.
var membersOnly = map[models.Page]bool{
	models.PageDashboard:       true,
	models.PageCandidates:      true,
	models.PageAnalytics:       true,
	models.PageSettings:        true,
	models.PageTasks:           true,
	models.PageCandidateDetail: true,
}

// DecideRedirect returns the page to force and true, or false when the current
// page stands. While auth is resolving nothing is forced.
func DecideRedirect(auth models.AuthState, current models.Page) (models.Page, bool) {
	switch {
	case auth.IsResolving:
		return "", false
	case auth.IsAuthenticated && guestOnly[current]:
		return models.PageDashboard, true
	case !auth.IsAuthenticated && membersOnly[current]:
		return models.PageLanding, true
	default:
		return "", false
	}
}

// Resolve applies DecideRedirect and returns the page to render
func Resolve(auth models.AuthState, current models.Page) models.Page {
	if page, ok := DecideRedirect(auth, current); ok {
		return page
	}
	return current
}

// RequiresAuth reports whether the page is only reachable when signed in
func RequiresAuth(page models.Page) bool {
	return membersOnly[page]
}
