package ckpt

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/hupe1980/ckpt/blobstore"
	"github.com/hupe1980/ckpt/runindex"
)

// Manager is the bounded top-K checkpoint retention ledger with its coupled
// patience-based stopping signal.
//
// Each training round the driver calls Step with the round's epoch, metrics
// and an opaque payload. The manager decides retain-or-discard, persists
// newly retained payloads to its store, deletes the payload of the exact
// observation displaced from the top K, and tracks how many consecutive
// rounds went by without improving the retained set.
//
// A Manager expects exactly one caller driving it serially with strictly
// increasing distinct epoch numbers. It provides no synchronization of its
// own; behavior under concurrent Step calls or replayed epochs is undefined.
type Manager struct {
	store    blobstore.Store
	logger   *Logger
	metrics  MetricsCollector
	runIndex runindex.Index

	monitor  string
	mode     Mode
	patience int
	suffix   string
	dir      string

	ledger        ledger
	patienceCount int

	// evicted holds the epoch displaced by the current round, if any.
	// It is single-slot on purpose: ledger update and the delete side
	// effect run inside the same Step call, so a second pending eviction
	// can never accumulate.
	evicted *int
}

// New creates a Manager that persists checkpoints under
// filepath.Join(outputDir, "checkpoints") on the local file system.
//
// The destination must not already exist; creating it is part of
// construction and an existing directory aborts with ErrDestinationExists.
func New(outputDir string, opts ...Option) (*Manager, error) {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	dir := filepath.Join(outputDir, "checkpoints")
	if _, err := o.fsys.Stat(dir); err == nil {
		return nil, &ErrDestinationExists{Path: dir}
	}
	if err := o.fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	store := blobstore.NewLocalStoreFS(dir, o.fsys)

	m, err := newManager(store, o)
	if err != nil {
		return nil, err
	}
	m.dir = dir
	return m, nil
}

// NewWithStore creates a Manager over an externally constructed store, e.g.
// an S3 or MinIO backend. The store location is shared infrastructure, so no
// pre-existence check applies; the caller picks a fresh prefix per run.
func NewWithStore(store blobstore.Store, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return newManager(store, o)
}

func newManager(store blobstore.Store, o options) (*Manager, error) {
	if o.mode != ModeMax && o.mode != ModeMin {
		return nil, &ErrInvalidMode{Mode: o.mode}
	}
	if o.saveTopK < 1 {
		return nil, ErrInvalidSaveTopK
	}
	if o.patience < 0 {
		return nil, ErrInvalidPatience
	}
	if strings.TrimSpace(o.monitor) == "" {
		return nil, ErrEmptyMonitor
	}

	return &Manager{
		store:    store,
		logger:   o.logger,
		metrics:  o.metrics,
		runIndex: o.runIndex,
		monitor:  o.monitor,
		mode:     o.mode,
		patience: o.patience,
		suffix:   o.suffix,
		ledger:   newLedger(o.saveTopK, o.mode),
	}, nil
}

// Step processes one training round.
//
// The monitored value is extracted from metrics; a missing key fails the
// round with *ErrMissingMetric and leaves all state untouched. Rounds that
// improve the retained set reset the patience counter, delete the blobs of
// the displaced epoch (if the ledger was full) and write the payload under a
// name derived from epoch and the full metrics map. Rounds that do not
// improve the retained set only increment the patience counter.
//
// Storage failures are logged and never fail the round: a retained
// observation stays in the ledger even when its bytes failed to persist,
// and an evicted blob that could not be deleted simply lingers.
func (m *Manager) Step(ctx context.Context, epoch int, metrics map[string]float64, payload io.Reader) error {
	start := time.Now()

	val, ok := metrics[m.monitor]
	if !ok {
		return &ErrMissingMetric{Key: m.monitor, Epoch: epoch}
	}

	improved := m.update(val, epoch)
	if !improved {
		best, _ := m.ledger.best()
		m.logger.LogSkip(ctx, epoch, m.monitor, val, best.Score, m.patienceCount)
		m.metrics.RecordStep(false, time.Since(start))
		return nil
	}

	best, _ := m.ledger.best()
	m.logger.LogRetain(ctx, epoch, m.monitor, val, best.Score)

	if m.evicted != nil {
		m.deleteEvicted(ctx)
	}
	name := Filename(epoch, metrics, m.suffix)
	m.write(ctx, name, payload)
	m.indexRetain(ctx, epoch, val, name)

	m.metrics.RecordStep(true, time.Since(start))
	return nil
}

// update applies the ledger algorithm for one round and reports whether the
// retained set improved. On eviction, the displaced epoch is parked in the
// single-slot marker for the delete step.
func (m *Manager) update(val float64, epoch int) bool {
	if !m.ledger.full() {
		m.ledger.insert(Observation{Score: val, Epoch: epoch})
		m.patienceCount = 0
		return true
	}

	worst, _ := m.ledger.worst()
	if !m.ledger.better(val, worst.Score) {
		m.patienceCount++
		return false
	}

	ev := m.ledger.dropWorst()
	m.evicted = &ev
	m.ledger.insert(Observation{Score: val, Epoch: epoch})
	m.patienceCount = 0
	return true
}

// deleteEvicted removes every blob whose name starts with the evicted
// epoch's prefix, then consumes the marker. The full name of the evicted
// blob encodes its own round's metrics, so matching must go by prefix.
func (m *Manager) deleteEvicted(ctx context.Context) {
	epoch := *m.evicted
	m.evicted = nil

	prefix := EpochPrefix(epoch)
	names, err := m.store.List(ctx, prefix)
	if err != nil {
		m.logger.LogEvict(ctx, epoch, 0, err)
		m.metrics.RecordEvict(0, err)
		return
	}

	removed := 0
	var lastErr error
	for _, name := range names {
		if err := m.store.Delete(ctx, name); err != nil {
			lastErr = err
			continue
		}
		removed++
	}
	m.logger.LogEvict(ctx, epoch, removed, lastErr)
	m.metrics.RecordEvict(removed, lastErr)
	m.indexEvict(ctx, epoch)
}

func (m *Manager) write(ctx context.Context, name string, payload io.Reader) {
	start := time.Now()

	w, err := m.store.Create(ctx, name)
	if err != nil {
		m.logger.LogWrite(ctx, name, err)
		m.metrics.RecordWrite(time.Since(start), err)
		return
	}
	if payload != nil {
		if _, err = io.Copy(w, payload); err != nil {
			_ = w.Close()
			m.logger.LogWrite(ctx, name, err)
			m.metrics.RecordWrite(time.Since(start), err)
			return
		}
	}
	err = w.Close()
	m.logger.LogWrite(ctx, name, err)
	m.metrics.RecordWrite(time.Since(start), err)
}

func (m *Manager) indexRetain(ctx context.Context, epoch int, score float64, name string) {
	if m.runIndex == nil {
		return
	}
	err := m.runIndex.PutEntry(ctx, runindex.Entry{Epoch: epoch, Score: score, Name: name})
	if err != nil {
		m.logger.WarnContext(ctx, "run index update failed", "epoch", epoch, "error", err)
	}
}

func (m *Manager) indexEvict(ctx context.Context, epoch int) {
	if m.runIndex == nil {
		return
	}
	if err := m.runIndex.DeleteEntry(ctx, epoch); err != nil {
		m.logger.WarnContext(ctx, "run index delete failed", "epoch", epoch, "error", err)
	}
}

// BestValue returns the best retained score, or false when no round has
// qualified yet. Pure query.
func (m *Manager) BestValue() (float64, bool) {
	best, ok := m.ledger.best()
	if !ok {
		return 0, false
	}
	return best.Score, true
}

// PatienceExhausted reports whether the configured number of consecutive
// non-improving rounds has been reached. Pure query; the driver checks this
// after each round and stops calling Step once it reports true.
func (m *Manager) PatienceExhausted() bool {
	return m.patienceCount >= m.patience
}

// PatienceCount returns the number of consecutive non-improving rounds.
func (m *Manager) PatienceCount() int { return m.patienceCount }

// Len returns the number of retained observations.
func (m *Manager) Len() int { return m.ledger.len() }

// Retained returns a copy of the retained observations, best-first.
func (m *Manager) Retained() []Observation { return m.ledger.snapshot() }

// Monitor returns the metrics key driving ranking.
func (m *Manager) Monitor() string { return m.monitor }

// Dir returns the local destination directory, or "" for remote stores.
func (m *Manager) Dir() string { return m.dir }
