// Package ckpt selects which training checkpoints are worth keeping and
// decides when a training run should stop.
//
// A training process produces one candidate artifact per epoch, tagged with
// a scalar quality score and a bundle of secondary metrics. The Manager
// tracks the best K observations seen so far under a configured ordering,
// evicts the exact artifact that falls out of the top K when a better one
// arrives, and exposes a monotonic "epochs since last improvement" counter
// that the training driver uses to halt.
//
// # Quick Start
//
//	ctx := context.Background()
//	m, err := ckpt.New("./experiments/run-1",
//	    ckpt.WithMonitor("acc/val"),
//	    ckpt.WithMode(ckpt.ModeMax),
//	    ckpt.WithSaveTopK(3),
//	    ckpt.WithPatience(8),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for epoch := 0; epoch < maxEpochs; epoch++ {
//	    metrics, snapshot := trainOneEpoch(epoch)
//	    if err := m.Step(ctx, epoch, metrics, snapshot); err != nil {
//	        log.Fatal(err)
//	    }
//	    if m.PatienceExhausted() {
//	        break
//	    }
//	}
//
// # Storage
//
// Payloads are opaque byte streams; the manager's only contract with storage
// is name generation plus write/delete through blobstore.Store. New wires a
// local file system store; NewWithStore accepts any backend, including the
// S3 and MinIO stores in blobstore/s3 and blobstore/minio, optionally
// wrapped in compression or rate-limit middleware:
//
//	store := blobstore.NewCompressingStore(
//	    blobstore.NewLocalStore(dir),
//	    blobstore.CompressionZSTD,
//	)
//	m, err := ckpt.NewWithStore(store, ckpt.WithMonitor("loss/val"), ckpt.WithMode(ckpt.ModeMin))
//
// Storage failures never fail a round: a write failure leaves the ledger
// updated (the observation is retained logically even when its bytes did not
// persist) and a delete failure leaves a stale blob behind. Both are logged.
//
// # Concurrency
//
// A Manager is single-threaded by contract. One caller drives it serially,
// once per round, with strictly increasing distinct epoch numbers. Callers
// that need a manager behind multiple workers must serialize Step themselves.
package ckpt
