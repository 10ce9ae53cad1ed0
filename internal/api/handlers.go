package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/assessment-engine/internal/authgate"
	"github.com/terra-clan/assessment-engine/internal/models"
	"github.com/terra-clan/assessment-engine/internal/normalize"
	"github.com/terra-clan/assessment-engine/internal/routing"
	"github.com/terra-clan/assessment-engine/internal/storage"
)

// maxPayloadBytes bounds request bodies; start payloads carry repo files
const maxPayloadBytes = 4 << 20

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Snapshots != nil {
		if err := s.deps.Snapshots.Ping(r.Context()); err != nil {
			slog.Warn("snapshot store not ready", "error", err)
			respondError(w, http.StatusServiceUnavailable, "not_ready", "snapshot store not ready")
			return
		}
	}

	if s.deps.Journal != nil {
		if err := s.deps.Journal.Ping(r.Context()); err != nil {
			slog.Warn("journal not ready", "error", err)
			respondError(w, http.StatusServiceUnavailable, "not_ready", "journal not ready")
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// Route handlers

// ResolveRouteRequest is either a full href or its parts
type ResolveRouteRequest struct {
	Href  string `json:"href,omitempty"`
	Path  string `json:"path,omitempty"`
	Query string `json:"query,omitempty"`
	Hash  string `json:"hash,omitempty"`
}

// ResolveRouteResponse is the canonical route for a location
type ResolveRouteResponse struct {
	Route models.RouteDescriptor `json:"route"`
	Href  string                 `json:"href"`
}

func (s *Server) handleResolveRoute(w http.ResponseWriter, r *http.Request) {
	var req ResolveRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	loc := routing.Location{Path: req.Path, Query: req.Query, Hash: req.Hash}
	if req.Href != "" {
		loc = routing.ParseHref(req.Href)
	}

	route := routing.Parse(loc)
	respondJSON(w, http.StatusOK, ResolveRouteResponse{
		Route: route,
		Href:  routing.Href(route),
	})
}

// AuthRedirectRequest is the auth status and the page about to be shown
type AuthRedirectRequest struct {
	Page models.Page `json:"page"`
	models.AuthState
}

// AuthRedirectResponse is the page to show after the auth gate
type AuthRedirectResponse struct {
	Page         models.Page `json:"page"`
	Redirected   bool        `json:"redirected"`
	RequiresAuth bool        `json:"requires_auth"`
}

func (s *Server) handleAuthRedirect(w http.ResponseWriter, r *http.Request) {
	var req AuthRedirectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if !req.Page.IsValid() {
		respondError(w, http.StatusBadRequest, "validation_error", "unknown page: "+string(req.Page))
		return
	}

	page, redirected := authgate.DecideRedirect(req.AuthState, req.Page)
	if !redirected {
		page = req.Page
	}

	respondJSON(w, http.StatusOK, AuthRedirectResponse{
		Page:         page,
		Redirected:   redirected,
		RequiresAuth: authgate.RequiresAuth(req.Page),
	})
}

// Session handlers

// NormalizeSessionResponse is a normalized session and what the repo-file policy did
type NormalizeSessionResponse struct {
	Session *models.AssessmentSession `json:"session"`
	Report  normalize.Report          `json:"report"`
}

func (s *Server) handleNormalizeSession(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "failed to read body")
		return
	}
	if len(raw) > maxPayloadBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "start payload too large")
		return
	}

	session, report, err := s.deps.Normalizer.NormalizeWithReport(raw)
	if err != nil {
		switch {
		case errors.Is(err, normalize.ErrInvalidPayload):
			respondError(w, http.StatusBadRequest, "invalid_payload", err.Error())
		case errors.Is(err, normalize.ErrMissingAssessmentID), errors.Is(err, normalize.ErrMissingToken):
			respondError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		default:
			slog.Error("failed to normalize session", "error", err)
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to normalize session")
		}
		return
	}

	respondJSON(w, http.StatusOK, NormalizeSessionResponse{Session: session, Report: report})
}

// Journal handlers

func (s *Server) handleListTransitions(w http.ResponseWriter, r *http.Request) {
	if s.deps.Journal == nil {
		respondError(w, http.StatusNotImplemented, "journal_disabled", "funnel journal is not configured")
		return
	}

	token := chi.URLParam(r, "token")
	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	entries, err := s.deps.Journal.ListTransitions(r.Context(), token, limit)
	if err != nil {
		slog.Error("failed to list transitions", "error", err, "token", maskKey(token))
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list transitions")
		return
	}
	if entries == nil {
		entries = []*storage.JournalEntry{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"transitions": entries,
		"total":       len(entries),
	})
}
