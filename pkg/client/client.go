package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

var ErrEmptyToken = errors.New("empty invite token")

// Client is a Go SDK for the assessment backend
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new backend client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is a non-2xx backend response
type APIError struct {
	Status int
	Body   string
	detail string
}

func (e *APIError) Error() string {
	if e.detail != "" {
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.detail)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// Detail returns the backend's human-readable "detail" message, if any
func (e *APIError) Detail() string {
	return e.detail
}

// StartAssessment creates an assessment attempt for an invite token and
// returns the raw start payload. The call is not idempotent.
func (c *Client) StartAssessment(ctx context.Context, token string) ([]byte, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}
	path := fmt.Sprintf("/api/v1/assessments/token/%s/start", url.PathEscape(token))
	return c.doRequest(ctx, http.MethodPost, path, "", nil)
}

// CurrentUser reports whether bearer is an authenticated session.
// 401 and 403 mean not authenticated; other failures are returned as errors.
func (c *Client) CurrentUser(ctx context.Context, bearer string) (bool, error) {
	if bearer == "" {
		return false, nil
	}
	_, err := c.doRequest(ctx, http.MethodGet, "/api/v1/auth/me", bearer, nil)
	if err == nil {
		return true, nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) &&
		(apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
		return false, nil
	}
	return false, err
}

// Health checks if the backend is reachable
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/health", "", nil)
	return err
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path, bearer string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			Status: resp.StatusCode,
			Body:   string(respBody),
			detail: errorDetail(respBody),
		}
	}

	return respBody, nil
}

// errorDetail extracts {"detail": "..."}. Validation errors carry a list of
// objects with a "msg" field instead of a string.
func errorDetail(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	detail := gjson.GetBytes(body, "detail")
	switch {
	case detail.Type == gjson.String:
		return strings.TrimSpace(detail.String())
	case detail.IsArray():
		return strings.TrimSpace(detail.Get("0.msg").String())
	default:
		return ""
	}
}
