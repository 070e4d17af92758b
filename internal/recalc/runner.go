package recalc

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopsignal/shopsignal/internal/models"
	"github.com/shopsignal/shopsignal/internal/scoring"
	"github.com/shopsignal/shopsignal/pkg/config"
)

// EventSource supplies the raw event window for a run.
type EventSource interface {
	FetchEventsSince(ctx context.Context, since time.Time) ([]models.InterestEvent, error)
	FetchProductIDs(ctx context.Context, since time.Time) ([]string, error)
}

// ScoreStore persists per-product scores between runs.
type ScoreStore interface {
	UpsertScore(ctx context.Context, score models.InterestScore) error
	ScoredProductIDs(ctx context.Context) ([]string, error)
}

// Runner recalculates every product score from the trailing event
// window and persists the results.
type Runner struct {
	config  *config.Config
	events  EventSource
	store   ScoreStore
	version string
	now     func() time.Time
}

// NewRunner creates a recalculation runner.
func NewRunner(cfg *config.Config, events EventSource, store ScoreStore, version string) *Runner {
	return &Runner{
		config:  cfg,
		events:  events,
		store:   store,
		version: version,
		now:     time.Now,
	}
}

// Run executes one full recalculation. Event read failures abort the
// run: a partial event set must never feed scoring. Per-product write
// failures do not; failed products are reported and the rest persist.
func (r *Runner) Run(ctx context.Context) (*models.RecalcReport, error) {
	start := r.now()
	since := start.Add(-scoring.LookbackWindow)

	entries, err := r.events.FetchEventsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to collect events: %w", err)
	}

	byProduct := make(map[string][]models.InterestEvent)
	for _, event := range entries {
		if event.ProductID == "" {
			continue
		}
		byProduct[event.ProductID] = append(byProduct[event.ProductID], event)
	}

	// The scored set is the ids active in the window plus every
	// previously scored id. Products whose events the row cap dropped
	// still appear via the distinct-id query; products with no events at
	// all are rescored against an empty set so they fall back to cold.
	active, err := r.events.FetchProductIDs(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list active products: %w", err)
	}
	previous, err := r.store.ScoredProductIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list scored products: %w", err)
	}
	for _, id := range append(active, previous...) {
		if _, ok := byProduct[id]; !ok && id != "" {
			byProduct[id] = nil
		}
	}

	excluded := 0
	productIDs := make([]string, 0, len(byProduct))
	for id := range byProduct {
		if r.config.IsProductExcluded(id) {
			excluded++
			continue
		}
		productIDs = append(productIDs, id)
	}
	sort.Strings(productIDs)

	if excluded > 0 {
		slog.Debug("excluded products from scoring", slog.Int("count", excluded))
	}

	scores := r.scoreAll(ctx, productIDs, byProduct, start)

	var summary models.LevelSummary
	var failedWrites []string
	for _, score := range scores {
		summary.Add(score.InterestLevel)

		if r.config.DryRun {
			continue
		}
		if err := r.store.UpsertScore(ctx, score); err != nil {
			slog.Error("failed to persist score",
				slog.String("product_id", score.ProductID),
				slog.String("error", err.Error()),
			)
			failedWrites = append(failedWrites, score.ProductID)
		}
	}

	var anomalies []models.Anomaly
	if r.config.AnomalyDetection {
		anomalies = DetectAnomalies(entries, start)
	}

	generatedAt := r.now()
	return &models.RecalcReport{
		Tool:      "shopsignal",
		Version:   r.version,
		Timestamp: generatedAt.UTC().Format(time.RFC3339),
		Metadata: models.Metadata{
			GeneratedAt:         generatedAt,
			LookbackDays:        int(scoring.LookbackWindow.Hours() / 24),
			TotalEventsAnalyzed: uint64(len(entries)),
			ProductsScored:      len(scores),
			RunDuration:         generatedAt.Sub(start).Round(time.Millisecond).String(),
			Version:             r.version,
		},
		Summary:      summary,
		Scores:       scores,
		Anomalies:    anomalies,
		FailedWrites: failedWrites,
	}, nil
}

// scoreAll fans product event sets out over the worker pool and
// collects the results sorted by descending score.
func (r *Runner) scoreAll(ctx context.Context, productIDs []string, byProduct map[string][]models.InterestEvent, now time.Time) []models.InterestScore {
	pool := NewWorkerPool(r.config.Concurrency, now)
	pool.Start(ctx)

	go func() {
		for _, id := range productIDs {
			pool.Submit(id, byProduct[id])
		}
		pool.Stop()
	}()

	scores := make([]models.InterestScore, 0, len(productIDs))
	for score := range pool.Results() {
		scores = append(scores, score)
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].InterestScore != scores[j].InterestScore {
			return scores[i].InterestScore > scores[j].InterestScore
		}
		return scores[i].ProductID < scores[j].ProductID
	})

	return scores
}
