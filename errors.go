package ckpt

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSaveTopK is returned when save_top_k is not positive.
	ErrInvalidSaveTopK = errors.New("save_top_k must be >= 1")

	// ErrInvalidPatience is returned when patience is negative.
	ErrInvalidPatience = errors.New("patience must be >= 0")

	// ErrEmptyMonitor is returned when no monitor key is configured.
	ErrEmptyMonitor = errors.New("monitor key must not be empty")

	// ErrNilStore is returned when NewWithStore is called without a store.
	ErrNilStore = errors.New("store must not be nil")
)

// ErrInvalidMode indicates an unsupported ranking mode.
type ErrInvalidMode struct {
	Mode Mode
}

func (e *ErrInvalidMode) Error() string {
	return fmt.Sprintf("mode %q not supported, choose between %q and %q", e.Mode, ModeMax, ModeMin)
}

// ErrDestinationExists indicates that the checkpoint destination directory
// already exists. The manager refuses to adopt a directory it did not create,
// so construction must abort.
type ErrDestinationExists struct {
	Path string
}

func (e *ErrDestinationExists) Error() string {
	return fmt.Sprintf("checkpoint destination %s already exists", e.Path)
}

// ErrMissingMetric indicates that the configured monitor key was absent from
// a round's metrics. The round is rejected outright; ranking with a sentinel
// value would silently corrupt the ledger.
type ErrMissingMetric struct {
	Key   string
	Epoch int
}

func (e *ErrMissingMetric) Error() string {
	return fmt.Sprintf("metric %q missing from epoch %d metrics", e.Key, e.Epoch)
}
