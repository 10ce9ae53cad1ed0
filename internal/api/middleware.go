package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// AuthChecker is the auth collaborator: it reports whether a bearer
// credential belongs to a signed-in user
type AuthChecker interface {
	CurrentUser(ctx context.Context, bearer string) (bool, error)
}

// AuthMiddleware extracts and checks caller credentials
type AuthMiddleware struct {
	checker AuthChecker
}

// NewAuthMiddleware creates new auth middleware
func NewAuthMiddleware(checker AuthChecker) *AuthMiddleware {
	return &AuthMiddleware{checker: checker}
}

// ExtractCredential stores the bearer credential, if any, in the request context.
// Supports "Authorization: Bearer xxx" and, for websocket upgrades where
// browsers cannot set headers, the access_token query parameter.
func (m *AuthMiddleware) ExtractCredential(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential := extractCredential(r)
		if credential == "" {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithCredential(r.Context(), credential)))
	})
}

// RequireUser rejects requests whose credential the auth collaborator does not accept
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential := CredentialFromContext(r.Context())
		if credential == "" {
			writeAuthError(w, http.StatusUnauthorized, "missing credential", "provide Authorization header with Bearer token")
			return
		}

		if m.checker == nil {
			writeAuthError(w, http.StatusServiceUnavailable, "authentication unavailable", "no auth backend configured")
			return
		}

		ok, err := m.checker.CurrentUser(r.Context(), credential)
		if err != nil {
			slog.Error("failed to check credential", "error", err, "key_prefix", maskKey(credential))
			writeAuthError(w, http.StatusBadGateway, "authentication error", "auth backend unavailable")
			return
		}

		if !ok {
			slog.Warn("rejected credential", "key_prefix", maskKey(credential), "remote_addr", r.RemoteAddr)
			writeAuthError(w, http.StatusUnauthorized, "invalid credential", "the provided credential is not valid")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractCredential extracts the bearer credential from request headers or query
func extractCredential(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if strings.HasPrefix(authHeader, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		}
		return strings.TrimSpace(authHeader)
	}

	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

// maskKey returns first 8 chars of key for safe logging
func maskKey(key string) string {
	if len(key) < 8 {
		return "***"
	}
	return key[:8] + "..."
}

// AuthError represents an authentication error response
type AuthError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeAuthError writes JSON error response
func writeAuthError(w http.ResponseWriter, status int, error, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(AuthError{
		Error:   error,
		Message: message,
	})
}
