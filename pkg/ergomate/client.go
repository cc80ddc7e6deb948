// Package ergomate pushes catalog themes to the Ergo-Mate partner platform.
package ergomate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/edulab/orchestrator/pkg/models"
)

const (
	DefaultBaseURL        = "https://ergomate.fr/api/v1"
	defaultTimeoutSeconds = 30
	maxErrorBodyBytes     = 512
)

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("Ergo-Mate API key not configured")
	// ErrUnexpectedStatus is returned for any status other than 200 or 201.
	ErrUnexpectedStatus = errors.New("Ergo-Mate API error")
	// ErrInvalidResponse is returned when the response body is not a JSON object.
	ErrInvalidResponse = errors.New("invalid Ergo-Mate API response")
)

// StatusError is returned for any status other than 200 or 201. It matches ErrUnexpectedStatus.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d - %s", ErrUnexpectedStatus, e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// IsRejection reports whether Ergo-Mate refused the request itself. Sending the same theme
// again cannot succeed. Timeouts and rate limiting are not rejections.
func IsRejection(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}

	switch statusErr.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}

	return statusErr.StatusCode >= http.StatusBadRequest && statusErr.StatusCode < http.StatusInternalServerError
}

// Pusher sends a theme to Ergo-Mate.
type Pusher interface {
	Push(ctx context.Context, req PushRequest) (*PushResult, error)
}

// PushRequest is one theme push. Targets are only sent for assignments.
type PushRequest struct {
	TenantID       string
	Type           models.PublicationType
	Theme          map[string]any
	TargetClasses  []string
	TargetStudents []string
}

// PushResult carries the identifiers assigned by Ergo-Mate.
type PushResult struct {
	ThemeID      string `json:"theme_id"`
	AssignmentID string `json:"assignment_id"`
}

type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	retry   RetryConfig
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) { client.http = c }
}

func WithRetry(retry RetryConfig) Option {
	return func(client *Client) { client.retry = retry }
}

func NewClient(baseURL, apiKey string, logger *slog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeoutSeconds * time.Second},
		retry:   RetryConfig{Attempts: 1},
		logger:  logger.With("module", "ergomate_client"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type pushPayload struct {
	Theme          map[string]any `json:"theme"`
	TenantID       string         `json:"tenant_id"`
	TargetClasses  []string       `json:"target_classes,omitempty"`
	TargetStudents []string       `json:"target_students,omitempty"`
}

// Push posts the theme to /themes (catalog) or /assignments. Server errors are retried.
func (c *Client) Push(ctx context.Context, req PushRequest) (*PushResult, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	endpoint := c.baseURL + "/themes"

	payload := pushPayload{Theme: req.Theme, TenantID: req.TenantID}
	if req.Type == models.PublicationTypeAssignment {
		endpoint = c.baseURL + "/assignments"
		payload.TargetClasses = req.TargetClasses
		payload.TargetStudents = req.TargetStudents
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode push payload: %w", err)
	}

	attempts := max(c.retry.Attempts, 1)

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			c.logger.InfoContext(ctx, fmt.Sprintf("Ergo-Mate push retry attempt %d/%d", attempt, attempts))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retry.Delay):
			}
		}

		result, retryable, err := c.do(ctx, endpoint, req.TenantID, body)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !retryable {
			break
		}
	}

	return nil, lastErr
}

func (c *Client) do(ctx context.Context, endpoint, tenantID string, body []byte) (*PushResult, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to build request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", c.apiKey)
	httpReq.Header.Set("X-Orchestrator-Id", tenantID)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("http request failed: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if len(raw) > maxErrorBodyBytes {
			raw = raw[:maxErrorBodyBytes]
		}

		return nil, resp.StatusCode >= http.StatusInternalServerError,
			&StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var result PushResult
	if err := json.Unmarshal(raw, &result); err != nil || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false, ErrInvalidResponse
	}

	return &result, false, nil
}
