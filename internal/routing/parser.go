// Package routing maps browser locations to canonical routes and back.
package routing

import (
	"net/url"
	"strings"

	"github.com/terra-clan/assessment-engine/internal/models"
)

const workableCallbackPath = "/settings/workable/callback"

// Location is a browser location split into its parts.
// Hash may be given with or without the leading '#'.
type Location struct {
	Path  string `json:"path"`
	Query string `json:"query"`
	Hash  string `json:"hash"`
}

// ParseHref splits an absolute or relative href into a Location.
// An href that cannot be parsed yields the zero Location.
func ParseHref(href string) Location {
	u, err := url.Parse(href)
	if err != nil {
		return Location{}
	}
	return Location{
		Path:  u.Path,
		Query: u.RawQuery,
		Hash:  u.EscapedFragment(),
	}
}

// Parse resolves a location to a route. It never fails: anything it does not
// recognize resolves to the landing page with no parameters.
func Parse(loc Location) models.RouteDescriptor {
	for _, match := range matchers {
		if route, ok := match(loc); ok {
			return route
		}
	}
	return models.LandingRoute()
}

// ParseString is Parse(ParseHref(href))
func ParseString(href string) models.RouteDescriptor {
	return Parse(ParseHref(href))
}

// matchers are tried in order, first match wins. Hash forms are tried before
// the /assessment path alias so a hash link takes precedence over the path.
var matchers = []func(Location) (models.RouteDescriptor, bool){
	matchWorkableCallback,
	matchHashAssessment,
	matchHashAssess,
	matchPathAssessment,
	matchHashTokenPage("/verify-email", models.PageVerifyEmail),
	matchHashTokenPage("/reset-password", models.PageResetPassword),
}

func matchWorkableCallback(loc Location) (models.RouteDescriptor, bool) {
	if loc.Path != workableCallbackPath {
		return models.RouteDescriptor{}, false
	}
	params := map[string]string{}
	if code := queryValue(loc.Query, "code"); code != "" {
		params[models.ParamCode] = code
	}
	return models.RouteDescriptor{Page: models.PageWorkableCallback, Params: params}, true
}

func matchHashAssessment(loc Location) (models.RouteDescriptor, bool) {
	path, query := splitHash(loc.Hash)
	return candidateWelcome(path, query)
}

func matchHashAssess(loc Location) (models.RouteDescriptor, bool) {
	path, _ := splitHash(loc.Hash)
	token, ok := singleSegment(path, "/assess/")
	if !ok {
		return models.RouteDescriptor{}, false
	}
	return models.RouteDescriptor{
		Page:   models.PageCandidateWelcome,
		Params: map[string]string{models.ParamToken: token},
	}, true
}

func matchPathAssessment(loc Location) (models.RouteDescriptor, bool) {
	return candidateWelcome(loc.Path, loc.Query)
}

func matchHashTokenPage(prefix string, page models.Page) func(Location) (models.RouteDescriptor, bool) {
	return func(loc Location) (models.RouteDescriptor, bool) {
		path, query := splitHash(loc.Hash)
		if path != prefix {
			return models.RouteDescriptor{}, false
		}
		params := map[string]string{}
		if token := queryValue(query, "token"); token != "" {
			params[models.ParamToken] = token
		}
		return models.RouteDescriptor{Page: page, Params: params}, true
	}
}

// candidateWelcome matches "/assessment/{id}" with a non-empty token query
func candidateWelcome(path, query string) (models.RouteDescriptor, bool) {
	id, ok := singleSegment(path, "/assessment/")
	if !ok {
		return models.RouteDescriptor{}, false
	}
	token := queryValue(query, "token")
	if token == "" {
		return models.RouteDescriptor{}, false
	}
	return models.RouteDescriptor{
		Page: models.PageCandidateWelcome,
		Params: map[string]string{
			models.ParamAssessmentID: id,
			models.ParamToken:        token,
		},
	}, true
}

// splitHash strips the leading '#' and splits the fragment at its first '?'
func splitHash(hash string) (path, query string) {
	hash = strings.TrimPrefix(hash, "#")
	path, query, _ = strings.Cut(hash, "?")
	return path, query
}

// singleSegment returns the unescaped segment following prefix when it is the
// only remaining, non-empty path segment.
func singleSegment(path, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(path, prefix)
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	seg, err := url.PathUnescape(rest)
	if err != nil || strings.TrimSpace(seg) == "" {
		return "", false
	}
	return seg, true
}

// queryValue returns the first value for key, or "" when the query is malformed
func queryValue(rawQuery, key string) string {
	values, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(values.Get(key))
}
