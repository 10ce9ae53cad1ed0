package authgate

import (
	"testing"

	"github.com/terra-clan/assessment-engine/internal/models"
)

var everyPage = []models.Page{
	models.PageLanding, models.PageLogin, models.PageRegister, models.PageForgotPassword,
	models.PageResetPassword, models.PageVerifyEmail, models.PageDashboard, models.PageCandidates,
	models.PageCandidateDetail, models.PageTasks, models.PageAnalytics, models.PageSettings,
	models.PageWorkableCallback, models.PageCandidateWelcome, models.PageAssessment,
}

func TestDecideRedirect_ResolvingNeverRedirects(t *testing.T) {
	for _, authenticated := range []bool{true, false} {
		auth := models.AuthState{IsAuthenticated: authenticated, IsResolving: true}
		for _, page := range everyPage {
			if got, ok := DecideRedirect(auth, page); ok {
				t.Errorf("resolving auth on %s redirected to %s", page, got)
			}
		}
	}
}

func TestDecideRedirect(t *testing.T) {
	signedIn := models.AuthState{IsAuthenticated: true}
	signedOut := models.AuthState{}

	tests := []struct {
		name    string
		auth    models.AuthState
		page    models.Page
		want    models.Page
		wantHit bool
	}{
		{"signed in on login", signedIn, models.PageLogin, models.PageDashboard, true},
		{"signed in on landing", signedIn, models.PageLanding, models.PageDashboard, true},
		{"signed in on forgot password", signedIn, models.PageForgotPassword, models.PageDashboard, true},
		{"signed in on register", signedIn, models.PageRegister, "", false},
		{"signed in on settings", signedIn, models.PageSettings, "", false},
		{"signed out on settings", signedOut, models.PageSettings, models.PageLanding, true},
		{"signed out on dashboard", signedOut, models.PageDashboard, models.PageLanding, true},
		{"signed out on candidate detail", signedOut, models.PageCandidateDetail, models.PageLanding, true},
		{"signed out on tasks", signedOut, models.PageTasks, models.PageLanding, true},
		{"signed out on welcome", signedOut, models.PageCandidateWelcome, "", false},
		{"signed out on assessment", signedOut, models.PageAssessment, "", false},
		{"signed out on reset password", signedOut, models.PageResetPassword, "", false},
		{"signed in on reset password", signedIn, models.PageResetPassword, "", false},
		{"signed out on workable callback", signedOut, models.PageWorkableCallback, "", false},
		{"signed in on verify email", signedIn, models.PageVerifyEmail, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecideRedirect(tt.auth, tt.page)
			if ok != tt.wantHit || got != tt.want {
				t.Errorf("DecideRedirect(%+v, %s) = (%q, %v), want (%q, %v)",
					tt.auth, tt.page, got, ok, tt.want, tt.wantHit)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	if got := Resolve(models.AuthState{}, models.PageAnalytics); got != models.PageLanding {
		t.Errorf("expected landing, got %s", got)
	}
	if got := Resolve(models.AuthState{}, models.PageCandidateWelcome); got != models.PageCandidateWelcome {
		t.Errorf("expected candidate-welcome, got %s", got)
	}
}
