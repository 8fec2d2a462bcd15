package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/listingscan/internal/model"
)

// DefaultConcurrency runs sites one after another.
const DefaultConcurrency = 1

// Job is one site run handed to a BatchProcessor.
type Job struct {
	// Site is the source to scrape.
	Site model.Site

	// Target is the start URL or zip code.
	Target string

	// Build creates a fresh pipeline for the job.
	Build func() *Pipeline
}

// BatchProcessor runs the pipelines of several sites.
// It uses errgroup to manage goroutines and respect the concurrency limit.
type BatchProcessor struct {
	// concurrency is the maximum number of sites run at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed runs in job order.
	// Access is synchronized via mutex.
	results []*model.Run
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of sites run at once.
// Values below 1 are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		concurrency: DefaultConcurrency,
		results:     make([]*model.Run, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// Concurrency returns the configured limit.
func (bp *BatchProcessor) Concurrency() int {
	return bp.concurrency
}

// ProcessBatch runs every job and returns one run per job in job order,
// including runs that failed. A failed site does not stop the others;
// the error return is only set when the context ended.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, jobs []Job) ([]*model.Run, error) {
	bp.logger.Info("starting batch processing",
		"total_sites", len(jobs),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	bp.results = make([]*model.Run, len(jobs))
	err := bp.run(ctx, jobs, func(run *model.Run, i int) {
		bp.mu.Lock()
		bp.results[i] = run
		bp.mu.Unlock()
	})

	bp.logger.Info("batch processing complete",
		"total_sites", len(jobs),
		"elapsed", time.Since(startTime),
	)

	return bp.results, err
}

// ProcessBatchWithCallback runs every job and calls callback with each
// finished run and its job index. The callback is called from the
// goroutine that ran the job, so it must be safe for concurrent use when
// the concurrency is above 1.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	jobs []Job,
	callback func(run *model.Run, index int),
) error {
	bp.logger.Info("starting batch processing with callback",
		"total_sites", len(jobs),
		"concurrency", bp.concurrency,
	)
	return bp.run(ctx, jobs, callback)
}

func (bp *BatchProcessor) run(ctx context.Context, jobs []Job, done func(*model.Run, int)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			run := model.NewRun(job.Site, job.Target)
			if err := ctx.Err(); err != nil {
				run.Cancelled = true
				run.Finish()
				done(run, i)
				return err
			}

			p := job.Build()
			bp.logger.Info("running site",
				"site", job.Site,
				"target", job.Target,
				"steps", p.StepNames(),
				"index", i+1,
				"total", len(jobs),
			)

			err := p.Execute(ctx, run)
			done(run, i)

			if err != nil {
				bp.logger.Warn("site run failed",
					"site", job.Site,
					"error", err,
				)
				// Cancellation ends the batch; other failures stay on the run.
				if run.Cancelled {
					return err
				}
				return nil
			}

			bp.logger.Info("site run completed",
				"site", job.Site,
				"records", run.Stats().Succeeded,
			)
			return nil
		})
	}

	return g.Wait()
}
