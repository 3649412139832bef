package slack

import (
	"strings"
	"testing"
	"time"

	"github.com/genrelay/genrelay/internal/observability/notify"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error when webhook url missing")
	}
}

func TestFormatMessageIncludesFields(t *testing.T) {
	client, err := NewClient(Config{
		WebhookURL: "https://hooks.slack.com/services/test",
		Channel:    "#genrelay-ops",
		Username:   "bot",
		Timeout:    time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := client.formatMessage(notify.EventPayload{
		Kind:       notify.KindOrphanExpired,
		JobID:      "job-123",
		TaskID:     "task-987",
		ChatID:     42,
		Error:      "boom",
		ErrorClass: "not_found",
		Severity:   notify.SeverityCritical,
	})

	if msg["username"] != "bot" {
		t.Fatalf("expected username to be preserved, got %v", msg["username"])
	}
	if msg["channel"] != "#genrelay-ops" {
		t.Fatalf("expected channel to be set, got %v", msg["channel"])
	}

	text, ok := msg["text"].(string)
	if !ok {
		t.Fatalf("expected text field")
	}
	if !containsAll(
		text,
		[]string{"Orphan callback expired unmatched", "job-123", "task-987", "42", "boom", "not_found", "critical"},
	) {
		t.Fatalf("message text missing fields: %s", text)
	}
}

func TestFormatMessageDefaults(t *testing.T) {
	client, err := NewClient(Config{
		WebhookURL: "https://hooks.slack.com/services/test",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := client.formatMessage(notify.EventPayload{
		Kind:   "custom_kind",
		TaskID: "task-1",
	})

	if msg["username"] != "genrelay" {
		t.Fatalf("expected default username, got %v", msg["username"])
	}
	if _, hasChannel := msg["channel"]; hasChannel {
		t.Fatal("expected no channel when unconfigured")
	}

	text, _ := msg["text"].(string)
	if !strings.Contains(text, "Pipeline incident") || !strings.Contains(text, "custom_kind") {
		t.Fatalf("expected generic header with kind, got: %s", text)
	}
	if !strings.Contains(text, notify.SeverityWarning) {
		t.Fatalf("expected default severity, got: %s", text)
	}
}

func TestFormatMessageEscapesError(t *testing.T) {
	client, err := NewClient(Config{
		WebhookURL: "https://hooks.slack.com/services/test",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := client.formatMessage(notify.EventPayload{
		Kind:  notify.KindDeliveryStalled,
		JobID: "job-1",
		Error: "bad & <angle> payload",
	})

	text, ok := msg["text"].(string)
	if !ok {
		t.Fatalf("expected text field")
	}

	if !strings.Contains(text, "bad &amp; &lt;angle&gt; payload") {
		t.Fatalf("expected escaped error text, got: %s", text)
	}
}

func TestFormatMessageMetadataSorted(t *testing.T) {
	client, err := NewClient(Config{
		WebhookURL: "https://hooks.slack.com/services/test",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := client.formatMessage(notify.EventPayload{
		Kind: notify.KindReconcileFailed,
		Metadata: map[string]string{
			"zeta":  "last",
			"alpha": "first",
		},
	})

	text, _ := msg["text"].(string)
	if strings.Index(text, "alpha") > strings.Index(text, "zeta") {
		t.Fatalf("expected metadata keys sorted, got: %s", text)
	}
}

func containsAll(text string, substrs []string) bool {
	for _, s := range substrs {
		if !strings.Contains(text, s) {
			return false
		}
	}
	return true
}
