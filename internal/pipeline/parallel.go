package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Parallel is a Step that runs its children concurrently.
// It is meant for independent outputs (database export, metrics file) that
// only read the finished report.
//
// Design decision: We use errgroup rather than hand-written WaitGroup code
// because it bounds concurrency with SetLimit and collects errors. We do not
// use errgroup.WithContext: one failing output must not cancel the others,
// so every child error is collected and joined instead.
type Parallel struct {
	steps       []Step
	concurrency int
}

// ParallelOption configures a Parallel step.
type ParallelOption func(*Parallel)

// WithConcurrency sets the maximum number of children running at once.
// Values below 1 are ignored and leave the default (all children at once).
func WithConcurrency(n int) ParallelOption {
	return func(p *Parallel) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewParallel creates a step that runs steps concurrently.
func NewParallel(steps []Step, opts ...ParallelOption) *Parallel {
	p := &Parallel{
		steps:       steps,
		concurrency: len(steps),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the names of the children joined with "+".
func (p *Parallel) Name() string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return "parallel(" + strings.Join(names, "+") + ")"
}

// Do runs all children and waits for them. Each child error is wrapped with
// the child's name.
func (p *Parallel) Do(ctx context.Context, report *model.CrawlReport) error {
	if len(p.steps) == 0 {
		return nil
	}

	errs := make([]error, len(p.steps))

	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for i, step := range p.steps {
		g.Go(func() error {
			if err := step.Do(ctx, report); err != nil {
				errs[i] = fmt.Errorf("%s: %w", step.Name(), err)
			}
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // children never return errors to the group
	return errors.Join(errs...)
}
