// Package loop drives a training process against a checkpoint manager.
//
// The Runner owns the epoch iteration: each round it asks the Trainer for
// the round's validation metrics and model snapshot, feeds them to the
// manager, and halts once the manager reports exhausted patience.
package loop

import (
	"context"
	"errors"
	"io"

	"github.com/hupe1980/ckpt"
	"github.com/hupe1980/ckpt/lrschedule"
)

// ErrNilTrainer is returned when New is called without a trainer.
var ErrNilTrainer = errors.New("loop: trainer must not be nil")

// ErrNilManager is returned when New is called without a manager.
var ErrNilManager = errors.New("loop: manager must not be nil")

// Trainer executes one training round.
type Trainer interface {
	// RunEpoch trains for one epoch at the given learning rate and returns
	// the round's validation metrics and a reader over the model snapshot.
	// The snapshot reader may be nil when there is nothing to persist.
	RunEpoch(ctx context.Context, epoch int, lr float64) (map[string]float64, io.Reader, error)
}

// Result summarizes a finished run.
type Result struct {
	// Epochs is the number of rounds completed.
	Epochs int
	// Halted is true when the run stopped on exhausted patience rather
	// than reaching the epoch budget.
	Halted bool
	// BestValue is the best monitored value, valid only if BestValid.
	BestValue float64
	BestValid bool
}

type options struct {
	maxEpochs int
	schedule  lrschedule.Schedule
	logger    *ckpt.Logger
}

// Option configures a Runner.
type Option func(*options)

// WithMaxEpochs bounds the run. Default 100.
func WithMaxEpochs(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEpochs = n
		}
	}
}

// WithSchedule sets the learning-rate schedule. Without one, the learning
// rate passed to the trainer is always 0 and the trainer picks its own.
func WithSchedule(s lrschedule.Schedule) Option {
	return func(o *options) {
		o.schedule = s
	}
}

// WithLogger sets the run logger.
func WithLogger(l *ckpt.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Runner iterates epochs until the budget or the manager's patience runs out.
type Runner struct {
	manager   *ckpt.Manager
	trainer   Trainer
	maxEpochs int
	schedule  lrschedule.Schedule
	logger    *ckpt.Logger
}

// New creates a Runner.
func New(manager *ckpt.Manager, trainer Trainer, opts ...Option) (*Runner, error) {
	if manager == nil {
		return nil, ErrNilManager
	}
	if trainer == nil {
		return nil, ErrNilTrainer
	}

	o := options{
		maxEpochs: 100,
		logger:    ckpt.NewLogger(nil),
	}
	for _, fn := range opts {
		fn(&o)
	}

	return &Runner{
		manager:   manager,
		trainer:   trainer,
		maxEpochs: o.maxEpochs,
		schedule:  o.schedule,
		logger:    o.logger,
	}, nil
}

// Run executes rounds until the epoch budget is reached, patience is
// exhausted, the context is canceled, or a round fails.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	var res Result

	for epoch := 0; epoch < r.maxEpochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		var lr float64
		if r.schedule != nil {
			lr = r.schedule.LR(epoch)
		}

		metrics, snapshot, err := r.trainer.RunEpoch(ctx, epoch, lr)
		if err != nil {
			return res, err
		}
		if err := r.manager.Step(ctx, epoch, metrics, snapshot); err != nil {
			return res, err
		}
		res.Epochs = epoch + 1

		if r.manager.PatienceExhausted() {
			r.logger.LogHalt(ctx, epoch, r.manager.PatienceCount())
			res.Halted = true
			break
		}
	}

	res.BestValue, res.BestValid = r.manager.BestValue()
	return res, nil
}
