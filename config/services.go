package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server (job submission and callbacks).
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeReconciler runs the background reconciliation loop.
	ServiceModeReconciler ServiceMode = "reconciler"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeReconciler}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeReconciler:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, reconciler)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// ReconcilerConfig controls the background reconciliation loop.
type ReconcilerConfig struct {
	// Interval between reconciliation passes.
	Interval time.Duration `env:"RECONCILER_INTERVAL" envDefault:"30s"`

	// LeaseTTL is the leadership lease duration. It should comfortably
	// exceed the worst-case pass duration so leadership does not flap.
	LeaseTTL time.Duration `env:"RECONCILER_LEASE_TTL" envDefault:"2m"`

	// OrphanMaxAge is how long an unmatched orphan callback may wait for
	// its job before it is expired.
	OrphanMaxAge time.Duration `env:"RECONCILER_ORPHAN_MAX_AGE" envDefault:"1h"`

	// NotifyUserOnExpiry controls whether users get a failure notice when
	// an orphan for their (unbound) task expires. Because expired orphans
	// have no job row, no user can be resolved; the switch gates ops
	// notifications instead.
	NotifyUserOnExpiry bool `env:"RECONCILER_NOTIFY_USER_ON_EXPIRY" envDefault:"true"`

	// OrphanBatchSize caps orphans processed per pass.
	OrphanBatchSize int `env:"RECONCILER_ORPHAN_BATCH_SIZE" envDefault:"100"`

	// DeliveryBatchSize caps undelivered jobs swept per pass.
	DeliveryBatchSize int `env:"RECONCILER_DELIVERY_BATCH_SIZE" envDefault:"50"`

	// DeliveryConcurrency caps concurrent delivery attempts in a sweep.
	DeliveryConcurrency int `env:"RECONCILER_DELIVERY_CONCURRENCY" envDefault:"4"`

	// RetentionMaxAge is how long delivered jobs and processed orphans are
	// kept before the cleanup step removes them.
	RetentionMaxAge time.Duration `env:"RECONCILER_RETENTION_MAX_AGE" envDefault:"720h"`

	// CleanupBatchSize caps rows deleted per cleanup statement.
	CleanupBatchSize int `env:"RECONCILER_CLEANUP_BATCH_SIZE" envDefault:"500"`
}

// Sanitize applies guardrails to reconciler configuration values.
func (c *ReconcilerConfig) Sanitize() {
	if c.Interval < 5*time.Second {
		c.Interval = 5 * time.Second
	}
	if c.LeaseTTL <= c.Interval {
		c.LeaseTTL = 2 * c.Interval
	}
	if c.OrphanMaxAge < time.Minute {
		c.OrphanMaxAge = time.Minute
	}
	if c.OrphanBatchSize <= 0 {
		c.OrphanBatchSize = 100
	}
	if c.DeliveryBatchSize <= 0 {
		c.DeliveryBatchSize = 50
	}
	if c.DeliveryConcurrency <= 0 {
		c.DeliveryConcurrency = 4
	}
	if c.RetentionMaxAge < 24*time.Hour {
		c.RetentionMaxAge = 24 * time.Hour
	}
	if c.CleanupBatchSize <= 0 {
		c.CleanupBatchSize = 500
	}
}
