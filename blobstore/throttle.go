package blobstore

import (
	"context"

	"golang.org/x/time/rate"
)

// ThrottledStore wraps a Store and limits write throughput.
//
// Checkpoint writes share uplink with training traffic (metric shipping,
// distributed gradients); capping upload bandwidth keeps a large snapshot
// from starving the run that produced it.
type ThrottledStore struct {
	inner   Store
	limiter *rate.Limiter
}

// NewThrottledStore creates a ThrottledStore capped at bytesPerSec for
// writes. If bytesPerSec <= 0 the store is a pass-through.
func NewThrottledStore(inner Store, bytesPerSec int) *ThrottledStore {
	var limiter *rate.Limiter
	if bytesPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(bytesPerSec), bytesPerSec)
	}
	return &ThrottledStore{inner: inner, limiter: limiter}
}

// Create creates a rate-limited writable blob.
func (s *ThrottledStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	w, err := s.inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	if s.limiter == nil {
		return w, nil
	}
	return &throttledWritableBlob{inner: w, limiter: s.limiter, ctx: ctx}, nil
}

// Put writes a blob atomically, rate-limited.
func (s *ThrottledStore) Put(ctx context.Context, name string, data []byte) error {
	w, err := s.Create(ctx, name)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// Open opens a blob for reading. Reads are not throttled.
func (s *ThrottledStore) Open(ctx context.Context, name string) (Blob, error) {
	return s.inner.Open(ctx, name)
}

// Delete removes a blob.
func (s *ThrottledStore) Delete(ctx context.Context, name string) error {
	return s.inner.Delete(ctx, name)
}

// List returns all blob names matching the prefix.
func (s *ThrottledStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

type throttledWritableBlob struct {
	inner   WritableBlob
	limiter *rate.Limiter
	// ctx is the Create context; it bounds waiting for rate tokens during
	// the lifetime of the write, mirroring how the backend stores scope
	// their background uploads.
	ctx context.Context
}

func (w *throttledWritableBlob) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		chunk := p
		if burst := w.limiter.Burst(); len(chunk) > burst {
			chunk = chunk[:burst]
		}
		if err := w.limiter.WaitN(w.ctx, len(chunk)); err != nil {
			return written, err
		}
		n, err := w.inner.Write(chunk)
		written += n
		if err != nil {
			return written, err
		}
		p = p[n:]
	}
	return written, nil
}

func (w *throttledWritableBlob) Sync() error  { return w.inner.Sync() }
func (w *throttledWritableBlob) Close() error { return w.inner.Close() }
