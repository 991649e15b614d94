// cmd/watchdog/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"overdue-watchdog/internal/common/camunda"
	"overdue-watchdog/internal/common/config"
	"overdue-watchdog/internal/common/logger"
	"overdue-watchdog/internal/server"
	"overdue-watchdog/internal/watchdog/report"
	"overdue-watchdog/internal/watchdog/runner"
	checkoverdue "overdue-watchdog/internal/workers/watchdog/check-overdue"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	configPath string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "watchdog",
		Short:         "Overdue check-in watchdog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file (defaults to ./configs/config.yaml)")

	root.AddCommand(newRunCommand(opts), newServeCommand(opts))
	return root
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	if opts.configPath != "" {
		return config.LoadFromFile(opts.configPath)
	}
	return config.Load()
}

func newLogger(cfg *config.Config) (*zap.Logger, logger.Logger) {
	zapLog := logger.NewFromConfig(cfg.Logging).With(
		zap.String("service", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)
	return zapLog, logger.NewZapAdapter(zapLog)
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	var nowFlag string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one overdue pass and print the report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now()
			if nowFlag != "" {
				parsed, err := time.Parse(time.RFC3339, nowFlag)
				if err != nil {
					return fmt.Errorf("--now: %w", err)
				}
				now = parsed
			}

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			zapLog, log := newLogger(cfg)
			defer zapLog.Sync()

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, log)
			if err != nil {
				log.Error("startup failed", map[string]interface{}{"error": err})
				return err
			}
			defer a.Close()

			result, runErr := a.runner.Run(runner.WithTrigger(ctx, "cli"), now)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report.Build(result, runErr)); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&nowFlag, "now", "", "Evaluate as of this RFC3339 instant instead of the current time")
	return cmd
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP trigger, the Zeebe worker and the optional schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			zapLog, log := newLogger(cfg)
			defer zapLog.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				log.Error("startup failed", map[string]interface{}{"error": err})
				return err
			}
			defer a.Close()

			// --- Zeebe worker (optional) ---
			if cfg.Camunda.Enabled {
				zc, err := a.connectCamunda()
				if err != nil {
					log.Error("zeebe client failed after retries", map[string]interface{}{"error": err})
					return err
				}
				defer zc.Close()

				handler, err := checkoverdue.NewHandler(checkoverdue.LoadConfig(), a.runner, log)
				if err != nil {
					return err
				}
				jobWorker := camunda.StartWorker(zc.GetClient(), checkoverdue.TaskType,
					config.GetWorkerConfig(cfg, checkoverdue.TaskType), handler, log)
				if jobWorker != nil {
					defer jobWorker.Close()
				}
			}

			// --- Internal schedule (optional) ---
			if interval := config.GetDuration(cfg.Watchdog.ScheduleInterval); interval > 0 {
				go runSchedule(ctx, a.runner, interval, log)
			}

			srv := server.New(a.runner, log, a.readinessChecks()...)
			err = srv.ListenAndServe(ctx, cfg.Server.Address)

			log.Info("watchdog stopped", nil)
			return err
		},
	}
}

// runSchedule triggers a run every interval until ctx is done. A run that is still in
// progress delays the next tick rather than overlapping it.
func runSchedule(ctx context.Context, r *runner.Runner, interval time.Duration, log logger.Logger) {
	log.Info("schedule started", map[string]interface{}{"interval": interval.String()})
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// failures are logged and counted by the runner
			_, _ = r.Run(runner.WithTrigger(ctx, "schedule"), time.Now())
		}
	}
}
