package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/genrelay/genrelay/config"
	"github.com/genrelay/genrelay/internal/adapters/provider"
	"github.com/genrelay/genrelay/internal/adapters/telegram"
	"github.com/genrelay/genrelay/internal/core"
	"github.com/genrelay/genrelay/internal/data"
	"github.com/genrelay/genrelay/internal/observability/notify/pagerduty"
	"github.com/genrelay/genrelay/internal/observability/notify/slack"
	"github.com/genrelay/genrelay/internal/observability/statsd"
	"github.com/genrelay/genrelay/internal/service"
	"github.com/genrelay/genrelay/internal/service/opsnotifier"
)

const shutdownWaitTimeout = 15 * time.Second

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Submitter     *service.SubmitterService
	Callbacks     *service.CallbackService
	Delivery      *service.DeliveryService
	Reconciler    *service.ReconcilerService
	Jobs          core.JobRepository
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink    *statsd.Client
	MetricsConfig  config.ObservabilityMetricsConfig
	OpsNotifier    *opsnotifier.Service
	NotifierConfig config.ObservabilityNotificationsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	JobRepo    *data.JobRepo
	OrphanRepo *data.OrphanRepo
	LeaseRepo  *data.LeaseRepo
	Guard      core.CallbackGuard
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  "genrelay",
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	opsNotifier := buildOpsNotifier(obsLogger, cfg.Notifications)

	return ObservabilityContainer{
		MetricsSink:    metricsSink,
		MetricsConfig:  cfg.Metrics,
		OpsNotifier:    opsNotifier,
		NotifierConfig: cfg.Notifications,
	}
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, redisClient redis.UniversalClient, redisEnabled bool) *serviceRepositories {
	var guard core.CallbackGuard = data.NoopCallbackGuard{}
	if redisEnabled && redisClient != nil {
		guard = data.NewRedisCallbackGuard(redisClient, 0)
	}

	return &serviceRepositories{
		JobRepo:    data.NewJobRepo(db),
		OrphanRepo: data.NewOrphanRepo(db),
		LeaseRepo:  data.NewLeaseRepo(db),
		Guard:      guard,
	}
}

// NewServices wires business services using repositories, adapters, and
// observability. Adapter construction can fail (bad provider URL, Telegram
// auth), so startup aborts on error rather than limping along.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil {
		return ServiceContainer{}, errors.New("service dependencies are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := deps.Config
	if cfg == nil {
		cfg = &config.AppConfig{}
	}

	observability := buildObservability(logger, cfg.Observability)
	repos := buildRepositories(deps.DB, deps.RedisClient, cfg.Redis.Enabled)

	var metrics statsd.Sink
	if observability.MetricsSink != nil {
		metrics = observability.MetricsSink
	}

	providerClient, err := provider.NewClient(cfg.Provider, logger)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build provider client: %w", err)
	}

	channel, err := telegram.New(cfg.Telegram, logger)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build telegram sender: %w", err)
	}

	delivery, err := service.NewDeliveryService(service.DeliveryOptions{
		Jobs:    repos.JobRepo,
		Channel: channel,
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build delivery service: %w", err)
	}

	submitter, err := service.NewSubmitterService(service.SubmitterOptions{
		Jobs:     repos.JobRepo,
		Provider: providerClient,
		Logger:   logger,
		Metrics:  metrics,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build submitter service: %w", err)
	}

	callbacks, err := service.NewCallbackService(service.CallbackOptions{
		Jobs:     repos.JobRepo,
		Orphans:  repos.OrphanRepo,
		Delivery: delivery,
		Guard:    repos.Guard,
		Logger:   logger,
		Metrics:  metrics,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build callback service: %w", err)
	}

	reconciler, err := service.NewReconcilerService(service.ReconcilerOptions{
		Jobs:      repos.JobRepo,
		Orphans:   repos.OrphanRepo,
		Leases:    repos.LeaseRepo,
		Callbacks: callbacks,
		Delivery:  delivery,
		Config:    cfg.Reconciler,
		Notifier:  observability.OpsNotifier,
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build reconciler service: %w", err)
	}

	return ServiceContainer{
		Submitter:     submitter,
		Callbacks:     callbacks,
		Delivery:      delivery,
		Reconciler:    reconciler,
		Jobs:          repos.JobRepo,
		Observability: observability,
	}, nil
}

func buildOpsNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *opsnotifier.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	if !cfg.Enabled {
		return opsnotifier.NewService(opsnotifier.Options{
			Logger: baseLogger.With("component", "ops_notifier"),
		})
	}

	sinks := make([]opsnotifier.SinkRegistration, 0, 2)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
			Username:   cfg.Slack.Username,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, opsnotifier.SinkRegistration{
				Name: "slack",
				Sink: client,
			})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, opsnotifier.SinkRegistration{
				Name: "pagerduty",
				Sink: client,
			})
		}
	}

	return opsnotifier.NewService(opsnotifier.Options{
		Logger: baseLogger.With("component", "ops_notifier"),
		Sinks:  sinks,
	})
}

// ServiceOrchestrationConfig groups dependencies for the service runtime.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// backgroundServiceHandle tracks a running background loop.
type backgroundServiceHandle struct {
	name string
	done <-chan struct{}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	errCh := make(chan error, 2)

	var httpServer *http.Server
	if cfg.Config.IsHTTPServerEnabled() {
		httpServer = StartHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			Logger:   logger,
		})
	}

	var backgrounds []backgroundServiceHandle
	if cfg.Config.IsReconcilerEnabled() {
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := cfg.Services.Reconciler.Run(serviceCtx); err != nil {
				errCh <- fmt.Errorf("reconciler: %w", err)
			}
		}()
		backgrounds = append(backgrounds, backgroundServiceHandle{name: "reconciler", done: done})
	}

	return waitForShutdown(shutdownConfig{
		ctx:         serviceCtx,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  httpServer,
		metricsSink: cfg.Services.Observability.MetricsSink,
		logger:      logger,
		backgrounds: backgrounds,
	})
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx         context.Context
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	metricsSink *statsd.Client
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel() // Cancel service context before waiting
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel() // Cancel service context before waiting
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop attempts to gracefully stop all services.
func gracefulStop(cfg shutdownConfig) error {
	if cfg.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  cfg.httpServer,
			Logger:  cfg.logger,
		}); err != nil {
			return err
		}
	}

	// Wait for background services to finish
	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	if cfg.metricsSink != nil {
		if err := cfg.metricsSink.Close(); err != nil {
			cfg.logger.Warn("failed to close metrics sink", "error", err)
		}
	}

	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
