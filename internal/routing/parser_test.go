package routing

import (
	"testing"

	"github.com/terra-clan/assessment-engine/internal/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		href   string
		page   models.Page
		params map[string]string
	}{
		{
			name:   "hash assess token",
			href:   "https://app.example.com/#/assess/abc123",
			page:   models.PageCandidateWelcome,
			params: map[string]string{"token": "abc123"},
		},
		{
			name:   "hash assessment with token",
			href:   "#/assessment/42?token=t42",
			page:   models.PageCandidateWelcome,
			params: map[string]string{"assessmentId": "42", "token": "t42"},
		},
		{
			name:   "path assessment alias",
			href:   "/assessment/42?token=t42",
			page:   models.PageCandidateWelcome,
			params: map[string]string{"assessmentId": "42", "token": "t42"},
		},
		{
			name:   "workable callback with code",
			href:   "/settings/workable/callback?code=xyz&state=1",
			page:   models.PageWorkableCallback,
			params: map[string]string{"code": "xyz"},
		},
		{
			name:   "workable callback without code",
			href:   "/settings/workable/callback",
			page:   models.PageWorkableCallback,
			params: map[string]string{},
		},
		{
			name:   "verify email with token",
			href:   "#/verify-email?token=v1",
			page:   models.PageVerifyEmail,
			params: map[string]string{"token": "v1"},
		},
		{
			name:   "verify email without token",
			href:   "#/verify-email",
			page:   models.PageVerifyEmail,
			params: map[string]string{},
		},
		{
			name:   "reset password with token",
			href:   "#/reset-password?token=r1",
			page:   models.PageResetPassword,
			params: map[string]string{"token": "r1"},
		},
		{
			name:   "escaped token is decoded",
			href:   "#/assess/a%20b",
			page:   models.PageCandidateWelcome,
			params: map[string]string{"token": "a b"},
		},
		{
			name:   "hash wins over path alias",
			href:   "/assessment/1?token=path#/assess/hash",
			page:   models.PageCandidateWelcome,
			params: map[string]string{"token": "hash"},
		},
		{name: "empty assess token", href: "#/assess/", page: models.PageLanding, params: map[string]string{}},
		{name: "assess with extra segment", href: "#/assess/abc/def", page: models.PageLanding, params: map[string]string{}},
		{name: "assessment without token", href: "#/assessment/42", page: models.PageLanding, params: map[string]string{}},
		{name: "assessment with empty token", href: "#/assessment/42?token=", page: models.PageLanding, params: map[string]string{}},
		{name: "assessment with empty id", href: "#/assessment/?token=t", page: models.PageLanding, params: map[string]string{}},
		{name: "path assessment without token", href: "/assessment/42", page: models.PageLanding, params: map[string]string{}},
		{name: "bad escape", href: "#/assess/%zz", page: models.PageLanding, params: map[string]string{}},
		{name: "callback with trailing slash", href: "/settings/workable/callback/", page: models.PageLanding, params: map[string]string{}},
		{name: "unknown", href: "/whatever", page: models.PageLanding, params: map[string]string{}},
		{name: "empty", href: "", page: models.PageLanding, params: map[string]string{}},
		{name: "unparsable", href: "http://[::1", page: models.PageLanding, params: map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseString(tt.href)
			want := models.RouteDescriptor{Page: tt.page, Params: tt.params}
			if !got.Equal(want) {
				t.Errorf("ParseString(%q) = %+v, want %+v", tt.href, got, want)
			}
		})
	}
}

func TestParseLocationParts(t *testing.T) {
	got := Parse(Location{Hash: "/assess/abc123"})
	if got.Page != models.PageCandidateWelcome || got.Token() != "abc123" {
		t.Errorf("hash without '#' not recognized: %+v", got)
	}

	got = Parse(Location{Path: "/settings/workable/callback", Query: "?code=c"})
	if code, _ := got.Param(models.ParamCode); code != "c" {
		t.Errorf("expected code 'c', got %q", code)
	}
}

func TestHrefRoundTrip(t *testing.T) {
	routes := []models.RouteDescriptor{
		{Page: models.PageCandidateWelcome, Params: map[string]string{"token": "abc"}},
		{Page: models.PageCandidateWelcome, Params: map[string]string{"token": "t&x", "assessmentId": "9"}},
		{Page: models.PageVerifyEmail, Params: map[string]string{"token": "v"}},
		{Page: models.PageResetPassword, Params: map[string]string{}},
		{Page: models.PageWorkableCallback, Params: map[string]string{"code": "c 1"}},
		{Page: models.PageLanding, Params: map[string]string{}},
	}

	for _, route := range routes {
		href := Href(route)
		if got := ParseString(href); !got.Equal(route) {
			t.Errorf("Href(%+v) = %q parsed back as %+v", route, href, got)
		}
	}
}

func TestHrefAssessmentPage(t *testing.T) {
	route := models.RouteDescriptor{
		Page:   models.PageAssessment,
		Params: map[string]string{"token": "t9", "assessmentId": "9"},
	}
	if got := Href(route); got != "#/assessment/9?token=t9" {
		t.Errorf("unexpected href: %s", got)
	}
}

func TestHrefPagesWithoutLocation(t *testing.T) {
	for _, page := range []models.Page{models.PageDashboard, models.PageSettings, models.PageLogin} {
		if got := Href(models.RouteDescriptor{Page: page}); got != "#/" {
			t.Errorf("Href(%s) = %q, want #/", page, got)
		}
	}
}
