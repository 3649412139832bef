// Package metrics emits standardised pipeline metrics over the statsd sink.
package metrics

import (
	"time"

	obserrors "github.com/genrelay/genrelay/internal/observability/errors"
	"github.com/genrelay/genrelay/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// CallbackMetric captures a processed provider callback for metric emission.
type CallbackMetric struct {
	Status    string
	Outcome   string // applied, duplicate, orphaned, invalid
	Duration  time.Duration
	Err       error
}

// EmitCallback emits callback.received counters tagged by provider status
// and handling outcome.
func EmitCallback(sink statsd.Sink, in CallbackMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"status":  in.Status,
		"outcome": in.Outcome,
	}
	if in.Err != nil {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("callback.received", 1, tags)
	if in.Duration > 0 {
		sink.Timing("callback.duration", in.Duration, CloneTags(tags))
	}
}

// DeliveryMetric captures a single delivery attempt.
type DeliveryMetric struct {
	Source   string // callback, sweep, reconciler
	Result   string
	Duration time.Duration
	Err      error
}

// EmitDelivery emits delivery.attempt counters tagged by trigger source
// and result.
func EmitDelivery(sink statsd.Sink, in DeliveryMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"source": in.Source,
		"result": in.Result,
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("delivery.attempt", 1, tags)
	if in.Duration > 0 {
		sink.Timing("delivery.duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
