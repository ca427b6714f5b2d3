package blobstore

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestThrottledStore_PassThroughWhenUnlimited(t *testing.T) {
	ctx := context.Background()
	store := NewThrottledStore(NewMemoryStore(), 0)

	require.NoError(t, store.Put(ctx, "a", []byte("data")))

	b, err := store.Open(ctx, "a")
	require.NoError(t, err)
	defer b.Close()
	got, err := io.ReadAll(b)
	require.NoError(t, err)
	require.Equal(t, "data", string(got))
}

func TestThrottledStore_Roundtrip(t *testing.T) {
	ctx := context.Background()
	store := NewThrottledStore(NewMemoryStore(), 1<<20)

	payload := make([]byte, 4096)
	for i := range payload {
		payload[i] = byte(i)
	}
	w, err := store.Create(ctx, "a")
	require.NoError(t, err)
	n, err := w.Write(payload)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.NoError(t, w.Close())

	b, err := store.Open(ctx, "a")
	require.NoError(t, err)
	defer b.Close()
	got, err := io.ReadAll(b)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestThrottledStore_WriteRespectsRate(t *testing.T) {
	ctx := context.Background()
	// 1 KiB/s with a 1 KiB burst: writing 2 KiB has to wait roughly a
	// second for the second chunk's tokens.
	store := NewThrottledStore(NewMemoryStore(), 1024)

	w, err := store.Create(ctx, "a")
	require.NoError(t, err)

	start := time.Now()
	_, err = w.Write(make([]byte, 2048))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.Greater(t, time.Since(start), 500*time.Millisecond)
}

func TestThrottledStore_WriteAbortsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := NewThrottledStore(NewMemoryStore(), 16)

	w, err := store.Create(ctx, "a")
	require.NoError(t, err)

	cancel()
	_, err = w.Write(make([]byte, 1024))
	require.Error(t, err)
}
