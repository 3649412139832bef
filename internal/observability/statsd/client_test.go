package statsd

import (
	"net"
	"strings"
	"testing"
)

func TestMetricName(t *testing.T) {
	t.Parallel()

	prefixed := &Client{prefix: "genrelay"}
	bare := &Client{}

	tests := []struct {
		client *Client
		input  string
		want   string
	}{
		{prefixed, "callback.received", "genrelay.callback.received"},
		{prefixed, " delivery/attempt ", "genrelay.delivery_attempt"},
		{prefixed, "", "genrelay"},
		{bare, "reconciler.tick", "reconciler.tick"},
		{bare, "multi  space", "multi__space"},
	}

	for _, tt := range tests {
		if got := tt.client.metricName(tt.input); got != tt.want {
			t.Fatalf("metricName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFormatTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{
		"env":     "prod",
		"service": "genrelay",
	}
	local := map[string]string{
		"result": " success ",
		"":       "ignored",
		"env":    "stage",
	}

	got := formatTags(global, local)
	want := "|#env:stage,result:success,service:genrelay"

	if got != want {
		t.Fatalf("formatTags mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestFormatTagsEmpty(t *testing.T) {
	t.Parallel()

	if got := formatTags(nil, nil); got != "" {
		t.Fatalf("formatTags(nil, nil) = %q, want empty string", got)
	}
}

func TestCleanTagsReturnsCopy(t *testing.T) {
	t.Parallel()

	original := map[string]string{
		"env": "prod",
		"":    "ignored",
	}

	cleaned := cleanTags(original)
	if cleaned == nil {
		t.Fatal("cleanTags returned nil map")
	}

	cleaned["env"] = "stage"
	if original["env"] != "prod" {
		t.Fatal("cleanTags did not copy values")
	}

	if _, ok := cleaned[""]; ok {
		t.Fatal("cleanTags kept empty key")
	}
}

func TestClientEnabledAndClose(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{
		enabled: true,
		conn:    clientConn,
	}

	if !client.Enabled() {
		t.Fatal("expected client.Enabled to report true with active connection")
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	if client.Enabled() {
		t.Fatal("expected client.Enabled to report false after Close")
	}

	// Verify Close can be called again without error.
	if err := client.Close(); err != nil {
		t.Fatalf("Close (second call) error: %v", err)
	}

	var nilClient *Client
	if nilClient.Enabled() {
		t.Fatal("nil client should report disabled")
	}
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil client Close error: %v", err)
	}
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{
		Enabled: true,
		Address: "   ",
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	if client.Enabled() {
		t.Fatal("expected client to stay disabled when address is empty")
	}
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{
		Enabled: true,
		Address: "bad address",
	})
	if err == nil {
		t.Fatal("expected NewClient to error for invalid address")
	}
	if !strings.Contains(err.Error(), "statsd dial") {
		t.Fatalf("unexpected error: %v", err)
	}
}
