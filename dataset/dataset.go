// Package dataset scans image-folder datasets for classification training.
//
// The expected layout is one directory per class label under a split
// directory (train/ or val/), mapped to integer targets by a ClassMap. A
// target may aggregate several label directories:
//
//	ClassMap{0: {"ok"}, 1: {"broken", "cracked"}}
package dataset

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Extensions lists the recognized image file extensions (lower-case, no dot).
var Extensions = []string{"jpg", "jpeg", "png", "ppm", "bmp", "pgm", "tif", "tiff", "webp"}

// Split selects the sub-directory of the dataset root to scan.
type Split string

const (
	SplitTrain Split = "train"
	SplitVal   Split = "val"
)

// ClassMap maps integer targets to the label directories that feed them.
type ClassMap map[int][]string

// Sample is one image path with its target.
type Sample struct {
	Path   string
	Target int
}

// ErrClassDirMissing indicates that a label directory named in the class map
// does not exist.
type ErrClassDirMissing struct {
	Path string
}

func (e *ErrClassDirMissing) Error() string {
	return fmt.Sprintf("folder %s does not exist", e.Path)
}

// ErrClassDirEmpty indicates that a label directory holds no images.
type ErrClassDirEmpty struct {
	Path string
}

func (e *ErrClassDirEmpty) Error() string {
	return fmt.Sprintf("folder %s is empty", e.Path)
}

type options struct {
	maxPerClass int
	randomPick  bool
	seed        int64
}

// Option configures Scan.
type Option func(*options)

// WithMaxSamplesPerClass caps the number of samples per target.
func WithMaxSamplesPerClass(n int) Option {
	return func(o *options) {
		o.maxPerClass = n
	}
}

// WithRandomSampling selects capped samples randomly instead of taking the
// first n in directory order.
func WithRandomSampling(seed int64) Option {
	return func(o *options) {
		o.randomPick = true
		o.seed = seed
	}
}

// Dataset holds the scanned samples of one split.
type Dataset struct {
	Split   Split
	Samples []Sample

	counts map[int]int
}

// Scan validates the directory structure under root/split against the class
// map and collects all image samples. Label directories are scanned
// concurrently, one goroutine per target.
func Scan(root string, split Split, cm ClassMap, opts ...Option) (*Dataset, error) {
	o := options{}
	for _, fn := range opts {
		fn(&o)
	}

	dir := filepath.Join(root, string(split))
	if err := sanityCheck(dir, cm); err != nil {
		return nil, err
	}

	targets := make([]int, 0, len(cm))
	for t := range cm {
		targets = append(targets, t)
	}
	sort.Ints(targets)

	var (
		mu        sync.Mutex
		perTarget = make(map[int][]string, len(cm))
	)

	var g errgroup.Group
	for _, target := range targets {
		target := target
		labels := cm[target]
		g.Go(func() error {
			var paths []string
			for _, label := range labels {
				labelDir := filepath.Join(dir, label)
				entries, err := os.ReadDir(labelDir)
				if err != nil {
					return err
				}
				for _, e := range entries {
					if e.IsDir() || !isImage(e.Name()) {
						continue
					}
					paths = append(paths, filepath.Join(labelDir, e.Name()))
				}
			}
			paths = capSamples(paths, o)
			mu.Lock()
			perTarget[target] = paths
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ds := &Dataset{Split: split, counts: make(map[int]int, len(cm))}
	for _, target := range targets {
		for _, p := range perTarget[target] {
			ds.Samples = append(ds.Samples, Sample{Path: p, Target: target})
		}
		ds.counts[target] = len(perTarget[target])
	}
	return ds, nil
}

// ScanDir collects all images directly under root, without class structure.
// Targets are set to -1. Intended for inference inputs.
func ScanDir(root string) (*Dataset, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ErrClassDirMissing{Path: root}
		}
		return nil, err
	}

	ds := &Dataset{counts: map[int]int{}}
	for _, e := range entries {
		if e.IsDir() || !isImage(e.Name()) {
			continue
		}
		ds.Samples = append(ds.Samples, Sample{Path: filepath.Join(root, e.Name()), Target: -1})
	}
	if len(ds.Samples) == 0 {
		return nil, &ErrClassDirEmpty{Path: root}
	}
	ds.counts[-1] = len(ds.Samples)
	return ds, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.Samples) }

// Count returns the number of samples for a target.
func (d *Dataset) Count(target int) int { return d.counts[target] }

// Stats renders a per-target sample breakdown.
func (d *Dataset) Stats() string {
	targets := make([]int, 0, len(d.counts))
	for t := range d.counts {
		targets = append(targets, t)
	}
	sort.Ints(targets)

	var b strings.Builder
	total := len(d.Samples)
	for _, t := range targets {
		n := d.counts[t]
		pct := 0.0
		if total > 0 {
			pct = 100 * float64(n) / float64(total)
		}
		fmt.Fprintf(&b, "target %d: %d/%d (%.3f%%)\n", t, n, total, pct)
	}
	return b.String()
}

func sanityCheck(dir string, cm ClassMap) error {
	targets := make([]int, 0, len(cm))
	for t := range cm {
		targets = append(targets, t)
	}
	sort.Ints(targets)

	for _, t := range targets {
		for _, label := range cm[t] {
			labelDir := filepath.Join(dir, label)
			info, err := os.Stat(labelDir)
			if err != nil || !info.IsDir() {
				return &ErrClassDirMissing{Path: labelDir}
			}
			entries, err := os.ReadDir(labelDir)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return &ErrClassDirEmpty{Path: labelDir}
			}
		}
	}
	return nil
}

func capSamples(paths []string, o options) []string {
	if o.maxPerClass <= 0 || len(paths) <= o.maxPerClass {
		return paths
	}
	if !o.randomPick {
		return paths[:o.maxPerClass]
	}
	rng := rand.New(rand.NewSource(o.seed))
	rng.Shuffle(len(paths), func(i, j int) {
		paths[i], paths[j] = paths[j], paths[i]
	})
	picked := paths[:o.maxPerClass]
	sort.Strings(picked)
	return picked
}

func isImage(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
