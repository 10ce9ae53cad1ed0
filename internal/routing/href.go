package routing

import (
	"net/url"

	"github.com/terra-clan/assessment-engine/internal/models"
)

// Href renders the location a tab should show for a route. Pages without a
// location form of their own render as "#/" and are carried in tab state only.
func Href(route models.RouteDescriptor) string {
	token := route.Params[models.ParamToken]

	switch route.Page {
	case models.PageCandidateWelcome, models.PageAssessment:
		if id := route.Params[models.ParamAssessmentID]; id != "" && token != "" {
			return "#/assessment/" + url.PathEscape(id) + "?" + url.Values{"token": {token}}.Encode()
		}
		if token != "" {
			return "#/assess/" + url.PathEscape(token)
		}
	case models.PageVerifyEmail:
		return withToken("#/verify-email", token)
	case models.PageResetPassword:
		return withToken("#/reset-password", token)
	case models.PageWorkableCallback:
		if code := route.Params[models.ParamCode]; code != "" {
			return workableCallbackPath + "?" + url.Values{"code": {code}}.Encode()
		}
		return workableCallbackPath
	}
	return "#/"
}

func withToken(base, token string) string {
	if token == "" {
		return base
	}
	return base + "?" + url.Values{"token": {token}}.Encode()
}
