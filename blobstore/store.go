package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store is an abstraction for writing, deleting and listing checkpoint
// payload blobs. Implementations must be safe for concurrent use.
type Store interface {
	// Create opens a new blob for streaming writes. The blob becomes
	// visible to Open/List only after a successful Close.
	Create(ctx context.Context, name string) (WritableBlob, error)

	// Put writes a blob atomically in one call.
	Put(ctx context.Context, name string, data []byte) error

	// Open opens an existing blob for reading.
	Open(ctx context.Context, name string) (Blob, error)

	// Delete removes a blob. Deleting a missing blob returns ErrNotFound.
	Delete(ctx context.Context, name string) error

	// List returns the names of all blobs starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a stored payload.
type Blob interface {
	io.ReadCloser

	// Size returns the stored size of the blob in bytes.
	Size() int64
}

// WritableBlob is a streaming write handle. Sync forces buffered data to
// durable storage where the backend supports it.
type WritableBlob interface {
	io.WriteCloser
	Sync() error
}
