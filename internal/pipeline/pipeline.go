package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the report
// produced by the steps before it.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state
// 2. It provides a Name() method for logging and debugging
// 3. Output steps can be grouped and run in parallel (see Parallel)
type Step interface {
	// Do executes the pipeline step.
	// It receives the context for cancellation, and the report to read or fill.
	Do(ctx context.Context, report *model.CrawlReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
//
// It holds two ordered lists: steps, which stop as soon as the context is
// cancelled, and finalizers, which always run afterwards so that a partial
// report still reaches its outputs.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// finalizers run after steps, even when the crawl was interrupted.
	finalizers []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
// This follows the functional options pattern for clean API design.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. Failed steps are logged and their errors are
// joined into the returned error, but subsequent steps still execute.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:      make([]Step, 0),
		finalizers: make([]Step, 0),
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

// AddFinalizer appends a step that runs after all regular steps, whether
// or not they completed.
func (p *Pipeline) AddFinalizer(step Step) {
	p.finalizers = append(p.finalizers, step)
}

// Execute runs all regular steps in sequence and then all finalizers.
//
// Design decision: We check ctx before each regular step rather than during,
// because steps handle their own cancellation (the crawl step returns its
// partial ledger). Finalizers receive a context detached from cancellation:
// an interrupted crawl is exactly the case where the partial report must
// still be written.
//
// If a regular step fails and continueOnError is false, the remaining regular
// steps are skipped but finalizers still run. All errors are joined.
func (p *Pipeline) Execute(ctx context.Context, report *model.CrawlReport) error {
	var errs []error

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", err,
			)
			report.Canceled = true
			errs = append(errs, err)
			break
		}

		if err := p.run(ctx, step, report); err != nil {
			errs = append(errs, err)
			if !p.continueOnError {
				break
			}
		}
	}

	flushCtx := context.WithoutCancel(ctx)
	for _, step := range p.finalizers {
		if err := p.run(flushCtx, step, report); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// run executes a single step with logging.
func (p *Pipeline) run(ctx context.Context, step Step, report *model.CrawlReport) error {
	p.logger.Debug("executing step",
		"step", step.Name(),
		"base_url", report.BaseURL,
	)

	if err := step.Do(ctx, report); err != nil {
		p.logger.Error("step failed",
			"step", step.Name(),
			"base_url", report.BaseURL,
			"error", err,
		)
		return err
	}

	p.logger.Debug("step completed",
		"step", step.Name(),
		"base_url", report.BaseURL,
	)
	return nil
}

// StepCount returns the number of steps in the pipeline, finalizers included.
func (p *Pipeline) StepCount() int {
	return len(p.steps) + len(p.finalizers)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, p.StepCount())
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	for _, step := range p.finalizers {
		names = append(names, step.Name())
	}
	return names
}
