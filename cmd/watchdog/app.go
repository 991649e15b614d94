// cmd/watchdog/app.go
package main

import (
	"context"
	"fmt"
	"time"

	"overdue-watchdog/internal/common/camunda"
	"overdue-watchdog/internal/common/config"
	"overdue-watchdog/internal/common/database"
	"overdue-watchdog/internal/common/logger"
	"overdue-watchdog/internal/common/observability"
	"overdue-watchdog/internal/server"
	"overdue-watchdog/internal/watchdog/audit"
	"overdue-watchdog/internal/watchdog/escalation"
	"overdue-watchdog/internal/watchdog/notify"
	"overdue-watchdog/internal/watchdog/runner"
	"overdue-watchdog/internal/watchdog/store"
)

// app holds every long-lived dependency of one process.
type app struct {
	cfg    *config.Config
	log    logger.Logger
	pg     *database.PostgresClient
	redis  *database.RedisClient
	obs    *observability.Observability
	runner *runner.Runner
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err,
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func newApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	// --- PostgreSQL ---
	err := retryWithBackoff(func() error {
		pg, err := database.ConnectPostgres(ctx, cfg.Database.Postgres)
		if err != nil {
			return err
		}
		a.pg = pg
		return nil
	}, 5, time.Second, log, "PostgreSQL connection")
	if err != nil {
		return nil, err
	}

	states := store.NewStateStore(a.pg.DB, log)
	var profiles store.ProfileReader = store.NewProfileStore(a.pg.DB)

	// --- Redis profile cache (optional) ---
	if cfg.Database.Redis.Address != "" {
		rdb, err := database.ConnectRedis(ctx, cfg.Database.Redis)
		if err != nil {
			log.Warn("profile cache disabled", map[string]interface{}{"error": err})
		} else {
			a.redis = rdb
			profiles = store.NewCachedProfileStore(profiles, rdb.Client, config.GetDuration(cfg.Watchdog.ProfileCacheTTL), log)
		}
	}

	// --- Notification transport ---
	transport, err := notify.New(ctx, cfg.Notifications.SMS, config.GetDuration(cfg.Watchdog.SendTimeout), log)
	if err != nil {
		a.Close()
		return nil, err
	}
	log.Info("notification transport ready", map[string]interface{}{"mode": transport.Mode()})

	a.obs = observability.New(cfg.App.Name)
	opts := []runner.Option{runner.WithRecorder(a.obs)}

	// --- Elasticsearch audit (optional) ---
	if cfg.Audit.Enabled {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := es.EnsureIndex(ctx, cfg.Audit.Index); err != nil {
			log.Warn("audit index not verified, audit writes may fail", map[string]interface{}{"error": err})
		}
		opts = append(opts, runner.WithAuditSink(audit.NewElasticsearchSink(es.Client, cfg.Audit.Index)))
	}

	engine := escalation.NewEngine(transport, states, cfg.Watchdog, log)
	a.runner = runner.NewRunner(states, profiles, store.NewContactStore(a.pg.DB), engine, cfg.Watchdog, log, opts...)

	return a, nil
}

func (a *app) readinessChecks() []server.Option {
	opts := []server.Option{server.WithReadinessCheck("postgres", a.pg.Ping)}
	if a.redis != nil {
		opts = append(opts, server.WithReadinessCheck("redis", a.redis.Ping))
	}
	return opts
}

func (a *app) connectCamunda() (*camunda.Client, error) {
	return camunda.NewClientWithConfig(&camunda.ClientConfig{
		GatewayAddress:         a.cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(a.cfg.Camunda.RequestTimeout),
		MaxRetries:             10,
		RetryDelay:             2 * time.Second,
	})
}

func (a *app) Close() {
	if a.obs != nil {
		a.obs.Shutdown()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pg != nil {
		_ = a.pg.Close()
	}
}
