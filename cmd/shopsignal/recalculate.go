package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopsignal/shopsignal/internal/baseline"
	"github.com/shopsignal/shopsignal/internal/collector"
	"github.com/shopsignal/shopsignal/internal/recalc"
	"github.com/shopsignal/shopsignal/internal/reporter"
	"github.com/shopsignal/shopsignal/internal/store"
	"github.com/shopsignal/shopsignal/pkg/config"
	"github.com/spf13/cobra"
)

// NewRecalculateCmd creates the recalculate command
func NewRecalculateCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	var queryTimeoutStr string
	var configPath string

	cmd := &cobra.Command{
		Use:     "recalculate",
		Aliases: []string{"recalc"},
		Short:   "Recalculate interest scores and generate report",
		Long: `Recalculate per-product interest scores from the trailing event
window, persist them, and write a scoring report with anomalies and
level changes against the recorded baseline.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := applyFileConfig(cmd, cfg, configPath, &queryTimeoutStr); err != nil {
				return err
			}

			if queryTimeoutStr != "" {
				var err error
				cfg.QueryTimeout, err = config.ParseDuration(queryTimeoutStr)
				if err != nil {
					return fmt.Errorf("invalid --query-timeout duration: %w", err)
				}
			}

			if cfg.Format != "json" && cfg.Format != "text" {
				return fmt.Errorf("invalid --format value: %s (expected json or text)", cfg.Format)
			}

			if cfg.ClickHouseDSN == "" {
				return fmt.Errorf("--clickhouse-dsn is required")
			}

			cfg.Normalize()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecalculate(cfg, verbose)
		},
	}

	// Event store flags
	cmd.Flags().StringVar(&cfg.ClickHouseDSN, "clickhouse-dsn", "", "ClickHouse DSN for the event store")
	cmd.Flags().StringVar(&cfg.ClickHouseDSN, "clickhouse-url", "", "Alias for --clickhouse-dsn")
	cmd.Flags().StringVar(&queryTimeoutStr, "query-timeout", "5m", "Query timeout (e.g., 5m, 10m, 1h)")
	cmd.Flags().IntVar(&cfg.BatchSize, "batch-size", 100000, "Event fetch batch size")
	cmd.Flags().IntVar(&cfg.MaxRows, "max-rows", 1000000, "Max event rows to process")

	// Score store flags
	cmd.Flags().StringVar(&cfg.DBPath, "db", "./shopsignal.db", "Path to the score database")

	// Concurrency flags
	cmd.Flags().IntVar(&cfg.Concurrency, "concurrency", 5, "Scoring worker pool size")

	// Output flags
	cmd.Flags().StringVar(&cfg.OutputDir, "output", "./report", "Output directory")
	cmd.Flags().StringVar(&cfg.Format, "format", "json", "Output format (json, text)")

	// Analysis flags
	cmd.Flags().BoolVar(&cfg.AnomalyDetection, "anomaly-detection", true, "Enable anomaly detection")
	cmd.Flags().StringArrayVar(&cfg.ExcludeProducts, "exclude-product", nil, "Product id glob to exclude (repeatable)")
	cmd.Flags().StringVar(&cfg.BaselinePath, "baseline", "", "Baseline file for level-change detection")
	cmd.Flags().BoolVar(&cfg.UpdateBaseline, "update-baseline", false, "Record this run's levels as the new baseline")

	// Operational flags
	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file (default: auto-discover .shopsignal.yaml)")
	cmd.Flags().BoolVar(&cfg.Verbose, "verbose", false, "Verbose logging")
	cmd.Flags().BoolVar(&cfg.DryRun, "dry-run", false, "Dry run mode (don't write scores or output)")

	return cmd
}

// applyFileConfig loads the config file and fills values not overridden
// by explicit flags.
func applyFileConfig(cmd *cobra.Command, cfg *config.Config, configPath string, queryTimeoutStr *string) error {
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
	if !cmd.Flags().Changed("format") && fc.Format != "" {
		cfg.Format = fc.Format
	}
	if !cmd.Flags().Changed("query-timeout") {
		if timeout := fc.QueryTimeoutValue(); timeout != "" {
			*queryTimeoutStr = timeout
		}
	}
	if !cmd.Flags().Changed("exclude-product") && len(fc.ExcludeProducts) > 0 {
		cfg.ExcludeProducts = fc.ExcludeProducts
	}
	if !cmd.Flags().Changed("baseline") && fc.BaselinePath != "" {
		cfg.BaselinePath = fc.BaselinePath
	}

	return nil
}

// runRecalculate executes the recalculation workflow
func runRecalculate(cfg *config.Config, verbose bool) error {
	startTime := time.Now()
	ctx := context.Background()

	if verbose {
		slog.Debug("starting recalculation",
			slog.String("dsn", maskDSN(cfg.ClickHouseDSN)),
			slog.Int("concurrency", cfg.Concurrency),
			slog.Int("batch_size", cfg.BatchSize),
			slog.Int("max_rows", cfg.MaxRows),
		)
	}

	// 1. Connect to the event store
	fmt.Println("🔌 Connecting to event store...")
	events, err := collector.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create event store: %w", err)
	}
	defer events.Close()

	// 2. Open the score database
	scores, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open score database: %w", err)
	}
	defer scores.Close()

	// 3. Score every product in the window
	fmt.Println("🎯 Recalculating interest scores...")
	runner := recalc.NewRunner(cfg, events, scores, version)
	report, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("recalculation failed: %w", err)
	}
	fmt.Printf("✓ Scored %d products from %d events\n",
		report.Metadata.ProductsScored, report.Metadata.TotalEventsAnalyzed)

	// 4. Compare against the baseline
	baselinePath := cfg.BaselinePath
	if baselinePath == "" && cfg.UpdateBaseline {
		baselinePath = baseline.DefaultPath
	}

	baselineLoaded := false
	if baselinePath != "" {
		known, err := baseline.Load(baselinePath)
		if err != nil {
			return fmt.Errorf("failed to load baseline: %w", err)
		}
		baselineLoaded = len(known) > 0
		report.LevelChanges = baseline.Diff(report.Scores, known)

		if cfg.UpdateBaseline && !cfg.DryRun {
			if err := baseline.Save(baselinePath, baseline.Record(report.Scores)); err != nil {
				return fmt.Errorf("failed to update baseline: %w", err)
			}
			fmt.Printf("✓ Baseline updated: %s\n", baselinePath)
		}
	}

	// 5. Write output
	if !cfg.DryRun {
		fmt.Println("📝 Writing report...")
		if err := reporter.New(cfg).Generate(report); err != nil {
			return fmt.Errorf("failed to generate report: %w", err)
		}
		fmt.Printf("✓ Report written to: %s\n", cfg.OutputDir)
	} else {
		fmt.Println("🏃 Dry run mode - skipping output")
	}

	// 6. Summarize
	duration := time.Since(startTime)
	fmt.Printf("\n✅ Recalculation complete in %s!\n", duration.Round(time.Second))
	fmt.Printf("   🔥 hot: %d  🌤 warm: %d  🌥 cool: %d  ❄️ cold: %d\n",
		report.Summary.Hot, report.Summary.Warm, report.Summary.Cool, report.Summary.Cold)
	if len(report.Anomalies) > 0 {
		fmt.Printf("   ⚠️ anomalies: %d\n", len(report.Anomalies))
	}
	if len(report.FailedWrites) > 0 {
		fmt.Printf("   ⚠️ failed writes: %d\n", len(report.FailedWrites))
	}

	if baselineLoaded && len(report.LevelChanges) > 0 {
		return &ChangesError{Count: len(report.LevelChanges)}
	}

	return nil
}

// maskDSN masks sensitive information in DSN
func maskDSN(dsn string) string {
	if len(dsn) > 20 {
		return dsn[:20] + "...***"
	}
	return "***"
}
