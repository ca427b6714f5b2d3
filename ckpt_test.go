package ckpt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/ckpt/blobstore"
	"github.com/hupe1980/ckpt/internal/fs"
	"github.com/hupe1980/ckpt/runindex"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, store blobstore.Store, opts ...Option) *Manager {
	t.Helper()
	opts = append([]Option{WithLogger(NoopLogger())}, opts...)
	m, err := NewWithStore(store, opts...)
	require.NoError(t, err)
	return m
}

func step(t *testing.T, m *Manager, epoch int, acc float64) {
	t.Helper()
	payload := bytes.NewReader([]byte(fmt.Sprintf("weights-%d", epoch)))
	err := m.Step(context.Background(), epoch, map[string]float64{"acc": acc}, payload)
	require.NoError(t, err)
}

func TestManager_FillEvictAndPatience(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	m := newTestManager(t, store,
		WithMonitor("acc"),
		WithMode(ModeMax),
		WithSaveTopK(2),
		WithPatience(2),
	)

	// Filling phase.
	step(t, m, 1, 0.5)
	step(t, m, 2, 0.6)
	require.Equal(t, []Observation{{0.6, 2}, {0.5, 1}}, m.Retained())
	require.Equal(t, 0, m.PatienceCount())

	// Worse than the current worst: no change, patience ticks.
	step(t, m, 3, 0.4)
	require.Equal(t, []Observation{{0.6, 2}, {0.5, 1}}, m.Retained())
	require.Equal(t, 1, m.PatienceCount())
	best, ok := m.BestValue()
	require.True(t, ok)
	require.InDelta(t, 0.6, best, 1e-9)

	// Better than the worst: epoch 1 is evicted, patience resets.
	step(t, m, 4, 0.55)
	require.Equal(t, []Observation{{0.6, 2}, {0.55, 4}}, m.Retained())
	require.Equal(t, 0, m.PatienceCount())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{
		"epoch=2-acc=0.6000.ckpt",
		"epoch=4-acc=0.5500.ckpt",
	}, names)

	// Two non-improving rounds exhaust patience=2.
	step(t, m, 5, 0.2)
	require.False(t, m.PatienceExhausted())
	step(t, m, 6, 0.1)
	require.True(t, m.PatienceExhausted())
	require.Equal(t, 2, m.PatienceCount())
}

func TestManager_ModeMin(t *testing.T) {
	store := blobstore.NewMemoryStore()
	m := newTestManager(t, store,
		WithMonitor("loss"),
		WithMode(ModeMin),
		WithSaveTopK(2),
		WithPatience(3),
	)
	ctx := context.Background()

	require.NoError(t, m.Step(ctx, 0, map[string]float64{"loss": 1.0}, nil))
	require.NoError(t, m.Step(ctx, 1, map[string]float64{"loss": 0.8}, nil))
	require.NoError(t, m.Step(ctx, 2, map[string]float64{"loss": 0.9}, nil)) // beats worst (1.0), evicts epoch 0
	require.Equal(t, []Observation{{0.8, 1}, {0.9, 2}}, m.Retained())

	best, ok := m.BestValue()
	require.True(t, ok)
	require.InDelta(t, 0.8, best, 1e-9)

	// Equal to worst does not evict under min either.
	require.NoError(t, m.Step(ctx, 3, map[string]float64{"loss": 0.9}, nil))
	require.Equal(t, []Observation{{0.8, 1}, {0.9, 2}}, m.Retained())
	require.Equal(t, 1, m.PatienceCount())
}

func TestManager_TieDoesNotEvict(t *testing.T) {
	m := newTestManager(t, blobstore.NewMemoryStore(),
		WithMonitor("acc"),
		WithSaveTopK(2),
		WithPatience(10),
	)

	step(t, m, 0, 0.5)
	step(t, m, 1, 0.6)
	step(t, m, 2, 0.5) // ties the worst: retained set unchanged
	require.Equal(t, []Observation{{0.6, 1}, {0.5, 0}}, m.Retained())
	require.Equal(t, 1, m.PatienceCount())
}

func TestManager_TieBreakPrefersLowerEpoch(t *testing.T) {
	m := newTestManager(t, blobstore.NewMemoryStore(),
		WithMonitor("acc"),
		WithSaveTopK(3),
		WithPatience(10),
	)

	step(t, m, 0, 0.5)
	step(t, m, 1, 0.7)
	step(t, m, 2, 0.7)
	require.Equal(t, []Observation{{0.7, 1}, {0.7, 2}, {0.5, 0}}, m.Retained())
}

func TestManager_MissingMetric(t *testing.T) {
	m := newTestManager(t, blobstore.NewMemoryStore(), WithMonitor("acc"), WithSaveTopK(2), WithPatience(2))

	step(t, m, 0, 0.5)
	before := m.Retained()

	err := m.Step(context.Background(), 1, map[string]float64{"loss": 0.1}, nil)
	var missing *ErrMissingMetric
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "acc", missing.Key)
	require.Equal(t, 1, missing.Epoch)

	// Ledger and patience untouched.
	require.Equal(t, before, m.Retained())
	require.Equal(t, 0, m.PatienceCount())
}

func TestManager_EvictionDeletesByPrefixOnly(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	m := newTestManager(t, store, WithMonitor("acc"), WithSaveTopK(1), WithPatience(10))

	// Epoch 1 then epoch 10 then evict epoch 1: the epoch=1- prefix must
	// not match epoch=10's blob.
	step(t, m, 1, 0.5)
	step(t, m, 10, 0.6) // evicts epoch 1
	names, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"epoch=10-acc=0.6000.ckpt"}, names)
}

func TestManager_BestValueEmptyAndIdempotent(t *testing.T) {
	m := newTestManager(t, blobstore.NewMemoryStore(), WithMonitor("acc"))

	_, ok := m.BestValue()
	require.False(t, ok)
	require.False(t, m.PatienceExhausted() && m.PatienceCount() != 0)

	step(t, m, 0, 0.3)
	for i := 0; i < 3; i++ {
		best, ok := m.BestValue()
		require.True(t, ok)
		require.InDelta(t, 0.3, best, 1e-9)
		require.False(t, m.PatienceExhausted())
	}
}

func TestManager_ZeroPatienceExhaustsImmediately(t *testing.T) {
	m := newTestManager(t, blobstore.NewMemoryStore(), WithMonitor("acc"), WithSaveTopK(1), WithPatience(0))

	// Patience 0 means exhausted from the start; the driver may still
	// call Step and improving rounds keep the counter at zero.
	require.True(t, m.PatienceExhausted())
	step(t, m, 0, 0.5)
	require.True(t, m.PatienceExhausted())
}

func TestManager_LedgerBoundedBySaveTopK(t *testing.T) {
	m := newTestManager(t, blobstore.NewMemoryStore(), WithMonitor("acc"), WithSaveTopK(3), WithPatience(100))

	for epoch := 0; epoch < 20; epoch++ {
		step(t, m, epoch, float64(epoch))
	}
	require.Equal(t, 3, m.Len())
	require.Equal(t, []Observation{{19, 19}, {18, 18}, {17, 17}}, m.Retained())
}

func TestManager_WriteFailureKeepsLedger(t *testing.T) {
	store := &failingStore{Store: blobstore.NewMemoryStore(), createErr: errors.New("disk full")}
	m := newTestManager(t, store, WithMonitor("acc"), WithSaveTopK(2), WithPatience(2))

	// Write fails, but the round succeeds and the observation is retained.
	step(t, m, 0, 0.5)
	require.Equal(t, []Observation{{0.5, 0}}, m.Retained())
	require.Equal(t, 0, m.PatienceCount())
}

func TestManager_DeleteFailureKeepsLedger(t *testing.T) {
	store := &failingStore{Store: blobstore.NewMemoryStore(), deleteErr: errors.New("permission denied")}
	m := newTestManager(t, store, WithMonitor("acc"), WithSaveTopK(1), WithPatience(2))

	step(t, m, 0, 0.5)
	step(t, m, 1, 0.6) // eviction delete fails; ledger already updated

	require.Equal(t, []Observation{{0.6, 1}}, m.Retained())
	// The stale blob lingers alongside the new one.
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, []string{"epoch=0-acc=0.5000.ckpt", "epoch=1-acc=0.6000.ckpt"}, names)
}

func TestManager_RunIndexMirrorsRetainedSet(t *testing.T) {
	idx := runindex.NewMemoryIndex()
	m := newTestManager(t, blobstore.NewMemoryStore(),
		WithMonitor("acc"),
		WithSaveTopK(2),
		WithPatience(5),
		WithRunIndex(idx),
	)

	step(t, m, 0, 0.5)
	step(t, m, 1, 0.6)
	step(t, m, 2, 0.55) // evicts epoch 0

	entries, err := idx.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, 1, entries[0].Epoch)
	require.Equal(t, 2, entries[1].Epoch)
	require.Equal(t, "epoch=2-acc=0.5500.ckpt", entries[1].Name)
}

func TestManager_MetricsCollector(t *testing.T) {
	mc := &BasicMetricsCollector{}
	m := newTestManager(t, blobstore.NewMemoryStore(),
		WithMonitor("acc"),
		WithSaveTopK(1),
		WithPatience(5),
		WithMetricsCollector(mc),
	)

	step(t, m, 0, 0.5) // improve + write
	step(t, m, 1, 0.4) // skip
	step(t, m, 2, 0.6) // improve + evict + write

	require.Equal(t, int64(3), mc.StepCount.Load())
	require.Equal(t, int64(2), mc.ImprovedCount.Load())
	require.Equal(t, int64(2), mc.WriteCount.Load())
	require.Equal(t, int64(0), mc.WriteErrors.Load())
	require.Equal(t, int64(1), mc.EvictCount.Load())
	require.Equal(t, int64(1), mc.EvictedBlobs.Load())
}

func TestNew_DestinationMustNotExist(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "checkpoints"), 0o755))

	_, err := New(dir, WithLogger(NoopLogger()))
	var exists *ErrDestinationExists
	require.ErrorAs(t, err, &exists)
	require.Equal(t, filepath.Join(dir, "checkpoints"), exists.Path)
}

func TestNew_CreatesDestinationAndWrites(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir, WithLogger(NoopLogger()), WithMonitor("acc"), WithSaveTopK(1), WithPatience(1))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "checkpoints"), m.Dir())

	step(t, m, 0, 0.5)
	data, err := os.ReadFile(filepath.Join(m.Dir(), "epoch=0-acc=0.5000.ckpt"))
	require.NoError(t, err)
	require.Equal(t, "weights-0", string(data))
}

func TestNew_LocalWriteFaultIsNonFatal(t *testing.T) {
	dir := t.TempDir()
	ffs := fs.NewFaultyFS(nil)
	m, err := New(dir,
		WithLogger(NoopLogger()),
		WithMonitor("acc"),
		WithSaveTopK(1),
		WithPatience(1),
		WithFileSystem(ffs),
	)
	require.NoError(t, err)

	ffs.FailOn(fs.OpWrite, "", nil)
	step(t, m, 0, 0.5)

	// Retained despite the failed write; no file appears.
	require.Equal(t, []Observation{{0.5, 0}}, m.Retained())
	entries, err := os.ReadDir(m.Dir())
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestNewWithStore_Validation(t *testing.T) {
	store := blobstore.NewMemoryStore()

	_, err := NewWithStore(nil)
	require.ErrorIs(t, err, ErrNilStore)

	_, err = NewWithStore(store, WithMode("median"))
	var badMode *ErrInvalidMode
	require.ErrorAs(t, err, &badMode)
	require.Equal(t, Mode("median"), badMode.Mode)

	_, err = NewWithStore(store, WithSaveTopK(0))
	require.ErrorIs(t, err, ErrInvalidSaveTopK)

	_, err = NewWithStore(store, WithPatience(-1))
	require.ErrorIs(t, err, ErrInvalidPatience)

	_, err = NewWithStore(store, WithMonitor("  "))
	require.ErrorIs(t, err, ErrEmptyMonitor)
}

// failingStore injects errors into Create/Delete while delegating the rest.
type failingStore struct {
	blobstore.Store
	createErr error
	deleteErr error
}

func (s *failingStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.Store.Create(ctx, name)
}

func (s *failingStore) Delete(ctx context.Context, name string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.Store.Delete(ctx, name)
}
