package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/shopsignal/shopsignal/internal/collector"
	"github.com/shopsignal/shopsignal/internal/recalc"
	"github.com/shopsignal/shopsignal/internal/scheduler"
	"github.com/shopsignal/shopsignal/internal/server"
	"github.com/shopsignal/shopsignal/internal/store"
	"github.com/shopsignal/shopsignal/internal/tracking"
	"github.com/shopsignal/shopsignal/pkg/config"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cfg := config.DefaultConfig()
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tracking and scoring API server",
		Long: `Start the HTTP API that ingests behavioral signals, serves scores
and viability verdicts, and optionally recalculates on a cron schedule.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := applyServeFileConfig(cmd, cfg, configPath); err != nil {
				return err
			}
			if cfg.ClickHouseDSN == "" {
				return fmt.Errorf("--clickhouse-dsn is required")
			}
			cfg.Normalize()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.ClickHouseDSN, "clickhouse-dsn", "", "ClickHouse DSN for the event store")
	cmd.Flags().StringVar(&cfg.ClickHouseDSN, "clickhouse-url", "", "Alias for --clickhouse-dsn")
	cmd.Flags().StringVar(&cfg.DBPath, "db", "./shopsignal.db", "Path to the score database")
	cmd.Flags().IntVar(&cfg.ServerPort, "port", 8080, "Port to serve on")
	cmd.Flags().IntVar(&cfg.IngestRateLimit, "ingest-rate-limit", 50, "Ingest requests per second")
	cmd.Flags().StringVar(&cfg.RecalcSchedule, "schedule", "", "Cron schedule for automatic recalculation (e.g., @hourly)")
	cmd.Flags().StringArrayVar(&cfg.ExcludeProducts, "exclude-product", nil, "Product id glob to exclude (repeatable)")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file (default: auto-discover .shopsignal.yaml)")

	return cmd
}

// applyServeFileConfig loads the config file for serve-relevant values.
func applyServeFileConfig(cmd *cobra.Command, cfg *config.Config, configPath string) error {
	var fc *config.FileConfig
	var err error

	if configPath != "" {
		fc, err = config.LoadFile(configPath)
	} else {
		fc, _, err = config.AutoLoadFile()
	}
	if err != nil {
		return err
	}
	if fc == nil {
		return nil
	}

	if !cmd.Flags().Changed("clickhouse-dsn") && !cmd.Flags().Changed("clickhouse-url") {
		if endpoint := fc.ClickHouseEndpoint(); endpoint != "" {
			cfg.ClickHouseDSN = endpoint
		}
	}
	if !cmd.Flags().Changed("db") && fc.DBPath != "" {
		cfg.DBPath = fc.DBPath
	}
	if !cmd.Flags().Changed("port") && fc.ServerPort != nil {
		cfg.ServerPort = *fc.ServerPort
	}
	if !cmd.Flags().Changed("ingest-rate-limit") && fc.IngestRateLimit != nil {
		cfg.IngestRateLimit = *fc.IngestRateLimit
	}
	if !cmd.Flags().Changed("schedule") && fc.RecalcSchedule != "" {
		cfg.RecalcSchedule = fc.RecalcSchedule
	}
	if !cmd.Flags().Changed("exclude-product") && len(fc.ExcludeProducts) > 0 {
		cfg.ExcludeProducts = fc.ExcludeProducts
	}

	return nil
}

// runServe wires the full service and runs until interrupted.
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events, err := collector.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create event store: %w", err)
	}
	defer events.Close()

	scores, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open score database: %w", err)
	}
	defer scores.Close()

	sessions := store.NewDurableSessionStore(scores)
	// The server scopes this tracker to each request's session id.
	tracker := tracking.NewTracker(sessions, events, scores)
	runner := recalc.NewRunner(cfg, events, scores, version)

	if cfg.RecalcSchedule != "" {
		sched, err := scheduler.New(cfg.RecalcSchedule, func(ctx context.Context) error {
			_, err := runner.Run(ctx)
			return err
		})
		if err != nil {
			return err
		}
		sched.Start()
		defer func() { <-sched.Stop().Done() }()
	}

	fmt.Printf("Serving API on :%d (Ctrl+C to stop)\n", cfg.ServerPort)
	return server.New(cfg, tracker, scores, events, runner).ListenAndServe(ctx)
}
