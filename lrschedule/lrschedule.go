// Package lrschedule provides learning-rate schedules selected by name.
package lrschedule

import (
	"fmt"
	"math"
	"strings"
)

// Schedule computes the learning rate for an epoch.
type Schedule interface {
	// LR returns the learning rate for the given epoch (0-based).
	LR(epoch int) float64

	// Name returns the registered schedule name.
	Name() string
}

// Names lists the supported schedule names.
var Names = []string{"cosine", "cosine_restarts", "linear", "step"}

// ErrUnknownSchedule indicates an unsupported schedule name.
type ErrUnknownSchedule struct {
	Name string
}

func (e *ErrUnknownSchedule) Error() string {
	return fmt.Sprintf("only %v schedules are supported, change %q to one of them", Names, e.Name)
}

// Config carries schedule parameters. Only the fields relevant to the chosen
// schedule are read; zero values fall back to sane defaults.
type Config struct {
	// BaseLR is the initial learning rate. Required.
	BaseLR float64

	// MinLR is the annealing floor (cosine, cosine_restarts). Default 0.
	MinLR float64

	// TotalEpochs is the annealing horizon for cosine, and the ramp length
	// for linear. Default 100.
	TotalEpochs int

	// RestartPeriod is the first cycle length for cosine_restarts. Default 10.
	RestartPeriod int

	// RestartMult multiplies the cycle length after each restart
	// (cosine_restarts). Default 1.
	RestartMult int

	// StartFactor and EndFactor bound the linear ramp. Defaults 1/3 and 1.
	StartFactor float64
	EndFactor   float64

	// StepSize is the decay interval for step. Default 30.
	StepSize int

	// Gamma is the decay factor for step. Default 0.1.
	Gamma float64
}

func (c *Config) applyDefaults() {
	if c.TotalEpochs <= 0 {
		c.TotalEpochs = 100
	}
	if c.RestartPeriod <= 0 {
		c.RestartPeriod = 10
	}
	if c.RestartMult <= 0 {
		c.RestartMult = 1
	}
	if c.StartFactor == 0 {
		c.StartFactor = 1.0 / 3.0
	}
	if c.EndFactor == 0 {
		c.EndFactor = 1
	}
	if c.StepSize <= 0 {
		c.StepSize = 30
	}
	if c.Gamma == 0 {
		c.Gamma = 0.1
	}
}

// New returns the schedule registered under name. Matching is
// case-insensitive.
func New(name string, cfg Config) (Schedule, error) {
	cfg.applyDefaults()

	switch strings.ToLower(name) {
	case "cosine":
		return &cosine{cfg: cfg}, nil
	case "cosine_restarts":
		return &cosineRestarts{cfg: cfg}, nil
	case "linear":
		return &linear{cfg: cfg}, nil
	case "step":
		return &step{cfg: cfg}, nil
	default:
		return nil, &ErrUnknownSchedule{Name: name}
	}
}

// cosine anneals from BaseLR to MinLR over TotalEpochs following half a
// cosine period, then stays at MinLR.
type cosine struct {
	cfg Config
}

func (s *cosine) Name() string { return "cosine" }

func (s *cosine) LR(epoch int) float64 {
	if epoch >= s.cfg.TotalEpochs {
		return s.cfg.MinLR
	}
	progress := float64(epoch) / float64(s.cfg.TotalEpochs)
	return s.cfg.MinLR + 0.5*(s.cfg.BaseLR-s.cfg.MinLR)*(1+math.Cos(math.Pi*progress))
}

// cosineRestarts anneals like cosine but restarts from BaseLR at the end of
// every cycle; each cycle is RestartMult times longer than the previous one.
type cosineRestarts struct {
	cfg Config
}

func (s *cosineRestarts) Name() string { return "cosine_restarts" }

func (s *cosineRestarts) LR(epoch int) float64 {
	period := s.cfg.RestartPeriod
	remaining := epoch
	for remaining >= period {
		remaining -= period
		period *= s.cfg.RestartMult
	}
	progress := float64(remaining) / float64(period)
	return s.cfg.MinLR + 0.5*(s.cfg.BaseLR-s.cfg.MinLR)*(1+math.Cos(math.Pi*progress))
}

// linear ramps the rate factor from StartFactor to EndFactor over
// TotalEpochs, then stays at EndFactor.
type linear struct {
	cfg Config
}

func (s *linear) Name() string { return "linear" }

func (s *linear) LR(epoch int) float64 {
	if epoch >= s.cfg.TotalEpochs {
		return s.cfg.BaseLR * s.cfg.EndFactor
	}
	progress := float64(epoch) / float64(s.cfg.TotalEpochs)
	factor := s.cfg.StartFactor + (s.cfg.EndFactor-s.cfg.StartFactor)*progress
	return s.cfg.BaseLR * factor
}

// step decays the rate by Gamma every StepSize epochs.
type step struct {
	cfg Config
}

func (s *step) Name() string { return "step" }

func (s *step) LR(epoch int) float64 {
	return s.cfg.BaseLR * math.Pow(s.cfg.Gamma, float64(epoch/s.cfg.StepSize))
}
