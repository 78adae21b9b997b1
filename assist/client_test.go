package assist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		BaseURL:        server.URL,
		APIKey:         "test-key",
		Model:          "drafter-1",
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
	})
	require.NoError(t, err)
	return client, server
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, ErrMissingBaseURL)
}

func TestDraftSendsCompletionRequest(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody completeRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		gotAuth = req.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(req.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(completeResponse{Text: "Thanks for the kind words!"})
	})

	text, err := client.Draft(context.Background(), "Reply to: great fast delivery")
	require.NoError(t, err)

	assert.Equal(t, "Thanks for the kind words!", text)
	assert.Equal(t, "/v1/complete", gotPath)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "drafter-1", gotBody.Model)
	assert.Equal(t, "Reply to: great fast delivery", gotBody.Prompt)
}

func TestDraftRejectsBlankPrompt(t *testing.T) {
	client, err := NewClient(Config{BaseURL: "http://localhost:1"})
	require.NoError(t, err)

	_, err = client.Draft(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestDraftRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, req *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusInternalServerError)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			json.NewEncoder(w).Encode(completeResponse{Text: "done"})
		}
	})

	text, err := client.Draft(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "done", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDraftGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Draft(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "giving up after 3 attempts")
	assert.Equal(t, int32(3), calls.Load())
}

func TestDraftDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.Draft(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestDraftSurfacesServiceError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(completeResponse{Error: "model overloaded"})
	})

	_, err := client.Draft(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestDraftHonorsContextCancellation(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Draft(ctx, "prompt")
	assert.ErrorIs(t, err, context.Canceled)
}
