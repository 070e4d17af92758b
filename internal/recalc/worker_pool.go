package recalc

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopsignal/shopsignal/internal/models"
	"github.com/shopsignal/shopsignal/internal/scoring"
)

// scoreJob is one product's event set waiting to be scored.
type scoreJob struct {
	productID string
	events    []models.InterestEvent
}

// WorkerPool manages concurrent scoring of per-product event sets.
type WorkerPool struct {
	workers int
	now     time.Time
	jobs    chan scoreJob
	results chan models.InterestScore
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	mu      sync.Mutex
}

// NewWorkerPool creates a new worker pool. All workers evaluate decay
// at the same instant so one run produces a consistent snapshot.
func NewWorkerPool(workers int, now time.Time) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	return &WorkerPool{
		workers: workers,
		now:     now,
		jobs:    make(chan scoreJob, workers*2),
		results: make(chan models.InterestScore, workers*2),
	}
}

// Start starts the worker pool
func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// worker processes jobs from the job queue
func (p *WorkerPool) worker(id int) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scoring worker panic recovered",
				slog.Int("worker_id", id),
				slog.String("panic", fmt.Sprint(r)),
			)
		}
		p.wg.Done()
	}()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.results <- scoring.CalculateProductScore(job.productID, job.events, p.now)
		}
	}
}

// Submit submits a product for scoring.
func (p *WorkerPool) Submit(productID string, events []models.InterestEvent) {
	select {
	case <-p.ctx.Done():
		return
	case p.jobs <- scoreJob{productID: productID, events: events}:
	}
}

// Results returns the results channel
func (p *WorkerPool) Results() <-chan models.InterestScore {
	return p.results
}

// Stop stops the worker pool and waits for all workers to finish
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	close(p.jobs)
	p.wg.Wait()
	close(p.results)

	if p.cancel != nil {
		p.cancel()
	}

	p.mu.Lock()
	p.started = false
	p.mu.Unlock()
}
