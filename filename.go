package ckpt

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultSuffix is the extension applied to checkpoint blob names.
// Payloads are opaque byte streams, so the suffix carries no format promise;
// harnesses that need framework-conventional names can override it with
// WithSuffix (e.g. ".pth").
const DefaultSuffix = ".ckpt"

// Filename builds the blob name for a retained checkpoint.
//
// The name encodes the epoch followed by every metric of the round, keys
// sorted lexicographically, values fixed to 4 fractional digits:
//
//	epoch=12-acc/val=0.9312-loss/val=0.1877.ckpt
//
// Eviction matches blobs by epoch prefix (see EpochPrefix), so the name must
// start with the epoch field and the remaining fields may vary per round.
func Filename(epoch int, metrics map[string]float64, suffix string) string {
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "epoch=%d", epoch)
	for _, k := range keys {
		fmt.Fprintf(&b, "-%s=%.4f", k, metrics[k])
	}
	b.WriteString(suffix)
	return b.String()
}

// EpochPrefix returns the name prefix shared by all blobs written for an
// epoch. The trailing hyphen matters: without it the prefix for epoch 1
// would also match blobs of epoch 10, 11, and so on.
func EpochPrefix(epoch int) string {
	return fmt.Sprintf("epoch=%d-", epoch)
}
