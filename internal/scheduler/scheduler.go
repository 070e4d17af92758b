package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// RunFunc is the work executed on each tick.
type RunFunc func(ctx context.Context) error

// Scheduler runs recalculations on a cron schedule. Standard five-field
// cron expressions and descriptors like @hourly are accepted.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
}

// New validates the schedule and registers the run function. Each tick
// runs under its own hour-bounded context.
func New(schedule string, run RunFunc) (*Scheduler, error) {
	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()

		started := time.Now()
		if err := run(ctx); err != nil {
			slog.Error("scheduled recalculation failed",
				slog.String("schedule", schedule),
				slog.String("error", err.Error()),
			)
			return
		}
		slog.Debug("scheduled recalculation complete",
			slog.String("duration", time.Since(started).Round(time.Millisecond).String()),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid recalc schedule %q: %w", schedule, err)
	}

	return &Scheduler{cron: c, schedule: schedule}, nil
}

// Start begins scheduling in its own goroutine.
func (s *Scheduler) Start() {
	slog.Debug("recalc scheduler started", slog.String("schedule", s.schedule))
	s.cron.Start()
}

// Stop halts scheduling and returns a context that completes when any
// in-flight run finishes.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
