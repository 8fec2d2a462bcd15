package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/listingscan/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the run
// filled in by the previous steps.
type Step interface {
	// Do executes the pipeline step.
	// Returns an error if the step fails critically; URLs that could not
	// be fetched are recorded in the run's Collector and return nil.
	Do(ctx context.Context, run *model.Run) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. The last error is kept on the run.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
//
// Cancellation is checked before each step; a step that is interrupted
// mid-way keeps whatever it added to the run. Execute marks the run as
// cancelled, records the failure on the run and stamps its finish time
// on every return path.
func (p *Pipeline) Execute(ctx context.Context, run *model.Run) error {
	defer run.Finish()

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"site", run.Site,
				"reason", err,
			)
			run.Cancelled = true
			return err
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"site", run.Site,
		)

		err := step.Do(ctx, run)
		run.PerformedSteps = append(run.PerformedSteps, step.Name())
		if err == nil {
			p.logger.Debug("step completed",
				"step", step.Name(),
				"site", run.Site,
				"records", run.Stats().Succeeded,
			)
			continue
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			p.logger.Warn("step interrupted",
				"step", step.Name(),
				"site", run.Site,
			)
			run.Cancelled = true
			return err
		}

		p.logger.Error("step failed",
			"step", step.Name(),
			"site", run.Site,
			"error", err,
		)
		run.Fail(err)
		if !p.continueOnError {
			return err
		}
	}

	return nil
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
