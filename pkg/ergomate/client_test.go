package ergomate_test

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edulab/orchestrator/pkg/ergomate"
	"github.com/edulab/orchestrator/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_Push(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		req          ergomate.PushRequest
		wantPath     string
		wantTargets  bool
		responseBody string
		want         *ergomate.PushResult
	}{
		{
			name: "catalog",
			req: ergomate.PushRequest{
				TenantID:      "tenant-a",
				Type:          models.PublicationTypeCatalog,
				Theme:         map[string]any{"title": "Les volcans"},
				TargetClasses: []string{"ignored"},
			},
			wantPath:     "/themes",
			responseBody: `{"theme_id":"em-42"}`,
			want:         &ergomate.PushResult{ThemeID: "em-42"},
		},
		{
			name: "assignment",
			req: ergomate.PushRequest{
				TenantID:      "tenant-a",
				Type:          models.PublicationTypeAssignment,
				Theme:         map[string]any{"title": "Les volcans"},
				TargetClasses: []string{"6A", "6B"},
			},
			wantPath:     "/assignments",
			wantTargets:  true,
			responseBody: `{"theme_id":"em-42","assignment_id":"as-7"}`,
			want:         &ergomate.PushResult{ThemeID: "em-42", AssignmentID: "as-7"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/api/v1"+tt.wantPath, r.URL.Path)
				assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
				assert.Equal(t, "tenant-a", r.Header.Get("X-Orchestrator-Id"))
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var payload map[string]any
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
				assert.Equal(t, "tenant-a", payload["tenant_id"])
				assert.Equal(t, "Les volcans", payload["theme"].(map[string]any)["title"])

				_, hasTargets := payload["target_classes"]
				assert.Equal(t, tt.wantTargets, hasTargets)

				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(tt.responseBody))
			}))
			defer server.Close()

			client := ergomate.NewClient(server.URL+"/api/v1/", "secret", discardLogger())

			result, err := client.Push(t.Context(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestClient_Push_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{
			name:    "client error",
			status:  http.StatusUnprocessableEntity,
			body:    "bad theme",
			wantErr: ergomate.ErrUnexpectedStatus,
			wantMsg: "Ergo-Mate API error: HTTP 422 - bad theme",
		},
		{
			name:    "not json",
			status:  http.StatusOK,
			body:    "<html>",
			wantErr: ergomate.ErrInvalidResponse,
		},
		{
			name:    "null body",
			status:  http.StatusOK,
			body:    "null",
			wantErr: ergomate.ErrInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := ergomate.NewClient(server.URL, "secret", discardLogger())

			_, err := client.Push(t.Context(), ergomate.PushRequest{TenantID: "tenant-a", Type: models.PublicationTypeCatalog})
			require.ErrorIs(t, err, tt.wantErr)

			if tt.wantMsg != "" {
				assert.EqualError(t, err, tt.wantMsg)
			}
		})
	}
}

func TestClient_Push_NotConfigured(t *testing.T) {
	t.Parallel()

	client := ergomate.NewClient("", "", discardLogger())

	_, err := client.Push(t.Context(), ergomate.PushRequest{})
	require.ErrorIs(t, err, ergomate.ErrNotConfigured)
}

func TestClient_Push_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)

			return
		}

		_, _ = w.Write([]byte(`{"theme_id":"em-1"}`))
	}))
	defer server.Close()

	client := ergomate.NewClient(server.URL, "secret", discardLogger(),
		ergomate.WithRetry(ergomate.RetryConfig{Attempts: 3, Delay: time.Millisecond}))

	result, err := client.Push(t.Context(), ergomate.PushRequest{TenantID: "tenant-a", Type: models.PublicationTypeCatalog})
	require.NoError(t, err)
	assert.Equal(t, "em-1", result.ThemeID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Push_DoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := ergomate.NewClient(server.URL, "secret", discardLogger(),
		ergomate.WithRetry(ergomate.RetryConfig{Attempts: 3, Delay: time.Millisecond}))

	_, err := client.Push(t.Context(), ergomate.PushRequest{TenantID: "tenant-a", Type: models.PublicationTypeCatalog})
	require.ErrorIs(t, err, ergomate.ErrUnexpectedStatus)
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, ergomate.IsRejection(err))
}

func TestIsRejection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "unprocessable theme", err: &ergomate.StatusError{StatusCode: http.StatusUnprocessableEntity}, expected: true},
		{name: "wrapped bad request", err: fmt.Errorf("push: %w", &ergomate.StatusError{StatusCode: http.StatusBadRequest}), expected: true},
		{name: "server error", err: &ergomate.StatusError{StatusCode: http.StatusServiceUnavailable}},
		{name: "rate limited", err: &ergomate.StatusError{StatusCode: http.StatusTooManyRequests}},
		{name: "request timeout", err: &ergomate.StatusError{StatusCode: http.StatusRequestTimeout}},
		{name: "not configured", err: ergomate.ErrNotConfigured},
		{name: "bare sentinel", err: ergomate.ErrUnexpectedStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, ergomate.IsRejection(tt.err))
		})
	}
}
