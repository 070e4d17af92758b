package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/shopsignal/shopsignal/internal/app"
	"github.com/shopsignal/shopsignal/internal/logging"
	"github.com/spf13/cobra"
)

var (
	version    = "1.0.0"
	verbose    bool
	isFirstRun bool
)

// Exit codes for structured error reporting.
const (
	ExitSuccess    = 0
	ExitInternal   = 1
	ExitInvalidArg = 2
	ExitNotFound   = 3
	ExitNetwork    = 5
	ExitChanges    = 6
)

// ChangesError indicates the recalculation completed but interest
// levels moved against the recorded baseline.
type ChangesError struct {
	Count int
}

func (e *ChangesError) Error() string {
	return fmt.Sprintf("%d interest level changes detected", e.Count)
}

func main() {
	logging.Init(false)
	isFirstRun = app.IsFirstRun()

	root := &cobra.Command{
		Use:   "shopsignal",
		Short: "Customer interest scoring engine",
		Long: `ShopSignal reduces storefront behavioral events into per-product
interest scores and funnel viability verdicts.

It tracks hovers, dwell time, scroll depth, and cart signals per session,
recalculates decayed 0-100 interest scores over a trailing window, and
turns funnel counters into kill/test/scale recommendations.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(verbose)
		},
	}

	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging")
	root.SilenceUsage = true
	root.SilenceErrors = true

	root.AddCommand(NewRecalculateCmd())
	root.AddCommand(NewViabilityCmd())
	root.AddCommand(NewServeCmd())
	root.AddCommand(NewVersionCmd())

	if err := root.Execute(); err != nil {
		exitCode := classifyError(err)
		var ce *ChangesError
		if errors.As(err, &ce) {
			slog.Info("level changes detected", slog.Int("count", ce.Count))
		} else {
			slog.Error("command failed", slog.String("error", err.Error()))
		}
		os.Exit(exitCode)
	}
}

func classifyError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var ce *ChangesError
	if errors.As(err, &ce) {
		return ExitChanges
	}

	if os.IsNotExist(err) {
		return ExitNotFound
	}

	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "not a directory") ||
		strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "no such file") {
		return ExitNotFound
	}

	if strings.Contains(msg, "dial") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "network is unreachable") {
		return ExitNetwork
	}

	if strings.Contains(msg, "required") ||
		strings.Contains(msg, "invalid") ||
		strings.Contains(msg, "must be") ||
		strings.Contains(msg, "expected") {
		return ExitInvalidArg
	}

	return ExitInternal
}
