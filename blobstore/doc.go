// Package blobstore provides the storage abstraction for checkpoint payloads.
//
// Store is the interface the checkpoint manager writes through. Payloads are
// opaque byte streams identified only by the names the manager generates;
// eviction works by listing and deleting blobs under an epoch prefix.
//
// # Built-in Implementations
//
//   - LocalStore: local file system with atomic temp-file + rename writes
//   - MemoryStore: in-memory store for tests
//   - s3.Store: Amazon S3 with parallel multipart uploads
//   - minio.Store: MinIO and other S3-compatible object storage
//
// # Middleware
//
// Stores compose; wrap any Store to add behavior:
//
//	store := blobstore.NewThrottledStore(
//	    blobstore.NewCompressingStore(inner, blobstore.CompressionZSTD),
//	    32<<20, // 32 MiB/s upload budget
//	)
package blobstore
