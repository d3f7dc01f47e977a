package app

import (
	"context"

	"github.com/pkg/errors"

	"unitydl/internal/logger"
)

// Step describes a single phase of a run.
type Step struct {
	Name string
	Fn   func(ctx context.Context) error
}

// StepErrorHandler handles step failures.
type StepErrorHandler func(step Step, err error) error

// Pipeline executes steps sequentially, stopping at the first failure or
// when ctx is cancelled.
type Pipeline struct {
	steps   []Step
	logger  logger.Logger
	onError StepErrorHandler
}

// NewPipeline constructs a new pipeline.
func NewPipeline(log logger.Logger, steps []Step, handler StepErrorHandler) *Pipeline {
	return &Pipeline{
		steps:   steps,
		logger:  log,
		onError: handler,
	}
}

// Execute runs through all configured steps.
func (p *Pipeline) Execute(ctx context.Context) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.logger != nil {
			p.logger.Debug("Executing step: %s", step.Name)
		}
		if err := step.Fn(ctx); err != nil {
			if p.onError != nil {
				return p.onError(step, err)
			}
			return errors.Wrapf(err, "%s failed", step.Name)
		}
	}

	return nil
}
