// Package pagerduty publishes pipeline incidents via PagerDuty Events API v2.
package pagerduty

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/genrelay/genrelay/internal/observability/notify"
)

// APIEndpoint is the PagerDuty Events API v2 ingest URL.
const APIEndpoint = "https://events.pagerduty.com/v2/enqueue"

// Config captures runtime configuration for the PagerDuty sink.
type Config struct {
	RoutingKey string
	Source     string
	Component  string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
}

// Client publishes events via PagerDuty's Events API v2.
type Client struct {
	routingKey string
	source     string
	component  string
	retryLimit int
	client     *http.Client
}

var _ notify.Sink = (*Client)(nil)

// NewClient constructs a PagerDuty events client from config. Callers must provide a routing key.
func NewClient(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.RoutingKey)
	if key == "" {
		return nil, errors.New("pagerduty routing key is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	retries := max(cfg.RetryLimit, 0)

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		routingKey: key,
		source:     fallbackString(strings.TrimSpace(cfg.Source), "genrelay"),
		component:  fallbackString(strings.TrimSpace(cfg.Component), "pipeline"),
		retryLimit: retries,
		client:     hc,
	}, nil
}

// SendEvent submits a trigger event to PagerDuty.
func (c *Client) SendEvent(ctx context.Context, payload notify.EventPayload) error {
	event := c.buildEvent(payload)
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode pagerduty payload: %w", err)
	}

	attempts := c.retryLimit + 1
	var lastErr error
	for attempt := range attempts {
		err = c.submit(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < attempts-1 {
			delay := time.Duration(attempt+1) * 200 * time.Millisecond
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	return lastErr
}

func (c *Client) buildEvent(payload notify.EventPayload) map[string]any {
	severity := fallbackString(strings.ToLower(payload.Severity), notify.SeverityWarning)

	occurredAt := payload.OccurredAt.UTC()
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	custom := map[string]any{
		"kind":        payload.Kind,
		"job_id":      payload.JobID,
		"task_id":     payload.TaskID,
		"error":       payload.Error,
		"error_class": payload.ErrorClass,
	}
	if payload.ChatID != 0 {
		custom["chat_id"] = strconv.FormatInt(payload.ChatID, 10)
	}
	for k, v := range payload.Metadata {
		if _, exists := custom[k]; !exists {
			custom[k] = v
		}
	}

	// Deduplicate repeated triggers for the same task and incident kind.
	dedupKey := strings.Trim(payload.Kind+":"+fallbackString(payload.TaskID, payload.JobID), ":")

	return map[string]any{
		"routing_key":  c.routingKey,
		"event_action": "trigger",
		"dedup_key":    dedupKey,
		"payload": map[string]any{
			"summary":        summaryFor(payload),
			"severity":       severity,
			"source":         c.source,
			"component":      c.component,
			"timestamp":      occurredAt.Format(time.RFC3339),
			"custom_details": custom,
		},
	}
}

func summaryFor(payload notify.EventPayload) string {
	task := fallbackString(payload.TaskID, "unknown")
	switch payload.Kind {
	case notify.KindOrphanExpired:
		return fmt.Sprintf("Orphan callback for task %s expired unmatched", task)
	case notify.KindDeliveryStalled:
		return fmt.Sprintf("Delivery for job %s keeps failing", fallbackString(payload.JobID, "unknown"))
	case notify.KindReconcileFailed:
		return "Reconciliation pass failed"
	default:
		return fmt.Sprintf("Pipeline incident %s (task %s)", fallbackString(payload.Kind, "unknown"), task)
	}
}

func fallbackString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func (c *Client) submit(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, APIEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create pagerduty request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("pagerduty request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFromResponse(resp)
	}
	return drainAndClose(resp)
}

func drainAndClose(resp *http.Response) error {
	_, copyErr := io.Copy(io.Discard, resp.Body)
	closeErr := resp.Body.Close()
	if copyErr != nil {
		return errors.Join(
			fmt.Errorf("drain pagerduty response body: %w", copyErr),
			closeErr,
		)
	}
	if closeErr != nil {
		return fmt.Errorf("close response body: %w", closeErr)
	}
	return nil
}

func errorFromResponse(resp *http.Response) error {
	respBody, readErr := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if readErr != nil {
		return errors.Join(
			fmt.Errorf("read pagerduty error response: %w", readErr),
			closeErr,
		)
	}
	if closeErr != nil {
		return fmt.Errorf("close response body: %w", closeErr)
	}
	return fmt.Errorf("pagerduty api %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
}
