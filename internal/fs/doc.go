// Package fs provides the file system abstraction behind the local
// checkpoint store.
//
// Two interfaces:
//
//   - [File]: an open file with write/sync capabilities
//   - [FileSystem]: the operations the store needs (open, remove, rename, ...)
//
// Production code uses fs.Default ([LocalFS]). Tests inject [FaultyFS] to
// exercise the write-failure and delete-failure policy of the checkpoint
// manager: a retained observation must survive a failed payload write, and
// a failed eviction delete must leave the ledger untouched.
//
// File system operations carry no context.Context: they are fast local
// syscalls with no meaningful cancellation point. Slow backends live behind
// blobstore.Store, whose methods are context-aware.
package fs
