// Package provider talks to the upstream generation service that executes
// tasks asynchronously and reports progress through callbacks.
package provider

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

	"github.com/genrelay/genrelay/config"
	apperrors "github.com/genrelay/genrelay/internal/errors"
)

// Client submits generation tasks over HTTP. The provider answers with a
// task id immediately; results arrive later on the callback URL.
type Client struct {
	baseURL     string
	apiKey      string
	callbackURL string
	client      *http.Client
	logger      *slog.Logger
}

// NewClient builds a generation provider client. Callers should pass a
// validated config.
func NewClient(cfg config.ProviderConfig, logger *slog.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("provider base url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	if logger != nil {
		logger = logger.With("component", "provider_client")
	}

	return &Client{
		baseURL:     baseURL,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		callbackURL: strings.TrimSpace(cfg.CallbackURL),
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
	}, nil
}

type createTaskRequest struct {
	Params      json.RawMessage `json:"params"`
	CallbackURL string          `json:"callback_url,omitempty"`
}

type createTaskResponse struct {
	TaskID string `json:"task_id"`
	Error  string `json:"error,omitempty"`
}

// CreateTask submits params and returns the provider's task id.
func (c *Client) CreateTask(ctx context.Context, params json.RawMessage) (string, error) {
	body, err := json.Marshal(createTaskRequest{
		Params:      params,
		CallbackURL: c.callbackURL,
	})
	if err != nil {
		return "", fmt.Errorf("encode task request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tasks", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build task request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "generation provider unreachable")
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", c.errorFromResponse(resp)
	}

	var parsed createTaskResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode task response: %w", err)
	}
	if parsed.TaskID == "" {
		return "", apperrors.Internal("generation provider returned no task id")
	}

	if c.logger != nil {
		c.logger.DebugContext(ctx, "task created", "task_id", parsed.TaskID)
	}
	return parsed.TaskID, nil
}

func (c *Client) errorFromResponse(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	msg := fmt.Sprintf("generation provider returned status %d", resp.StatusCode)
	var parsed createTaskResponse
	if json.Unmarshal(snippet, &parsed) == nil && parsed.Error != "" {
		msg = fmt.Sprintf("%s: %s", msg, parsed.Error)
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return apperrors.Unavailable(msg)
	}
	return apperrors.Validation(msg)
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}
