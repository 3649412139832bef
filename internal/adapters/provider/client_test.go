package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genrelay/genrelay/config"
	apperrors "github.com/genrelay/genrelay/internal/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(config.ProviderConfig{
		BaseURL:     srv.URL,
		APIKey:      "test-key",
		CallbackURL: "https://relay.example.com/api/callbacks/generation",
		Timeout:     time.Second,
	}, nil)
	require.NoError(t, err)
	return client
}

func TestCreateTask(t *testing.T) {
	var gotAuth string
	var gotBody createTaskRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/tasks", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"task_id": "task-123"})
	})

	taskID, err := client.CreateTask(context.Background(), json.RawMessage(`{"prompt":"a cat"}`))

	require.NoError(t, err)
	assert.Equal(t, "task-123", taskID)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "https://relay.example.com/api/callbacks/generation", gotBody.CallbackURL)
	assert.JSONEq(t, `{"prompt":"a cat"}`, string(gotBody.Params))
}

func TestCreateTaskServerErrorIsUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"queue full"}`, http.StatusServiceUnavailable)
	})

	_, err := client.CreateTask(context.Background(), json.RawMessage(`{}`))

	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err))
	assert.ErrorContains(t, err, "queue full")
}

func TestCreateTaskBadRequestIsValidation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"unsupported model"}`, http.StatusBadRequest)
	})

	_, err := client.CreateTask(context.Background(), json.RawMessage(`{}`))

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCreateTaskMissingTaskID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	})

	_, err := client.CreateTask(context.Background(), json.RawMessage(`{}`))

	require.Error(t, err)
	assert.ErrorContains(t, err, "no task id")
}

func TestCreateTaskUnreachableProvider(t *testing.T) {
	client, err := NewClient(config.ProviderConfig{
		BaseURL: "http://127.0.0.1:1",
		Timeout: 200 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	_, err = client.CreateTask(context.Background(), json.RawMessage(`{}`))

	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err))
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(config.ProviderConfig{}, nil)
	assert.Error(t, err)
}
