package ckpt

import "sort"

// Mode selects the direction in which the monitored metric improves.
type Mode string

const (
	// ModeMax treats higher metric values as better (e.g. accuracy).
	ModeMax Mode = "max"
	// ModeMin treats lower metric values as better (e.g. loss).
	ModeMin Mode = "min"
)

// Observation is one round's quality score and identity.
// Observations are immutable; the ledger replaces them wholesale on re-sort.
type Observation struct {
	Score float64
	Epoch int
}

// ledger is the bounded, ranked set of currently retained observations.
//
// It always holds the K best distinct-epoch observations seen so far, sorted
// best-first under the configured mode. Ties on score rank the lower epoch
// first, which keeps ordering deterministic across runs.
type ledger struct {
	obs     []Observation
	topK    int
	reverse bool // true for ModeMax: best-first means descending
}

func newLedger(topK int, mode Mode) ledger {
	return ledger{
		obs:     make([]Observation, 0, topK),
		topK:    topK,
		reverse: mode == ModeMax,
	}
}

func (l *ledger) len() int { return len(l.obs) }

func (l *ledger) full() bool { return len(l.obs) >= l.topK }

// best returns the top-ranked observation.
func (l *ledger) best() (Observation, bool) {
	if len(l.obs) == 0 {
		return Observation{}, false
	}
	return l.obs[0], true
}

// worst returns the bottom-ranked observation.
func (l *ledger) worst() (Observation, bool) {
	if len(l.obs) == 0 {
		return Observation{}, false
	}
	return l.obs[len(l.obs)-1], true
}

// better reports whether score strictly improves on ref under the mode.
// Equal scores do not count as an improvement, which biases retention
// toward earlier epochs on ties.
func (l *ledger) better(score, ref float64) bool {
	if l.reverse {
		return score > ref
	}
	return score < ref
}

// insert adds an observation and restores order. The ledger is tiny
// (topK is typically <= 10), so a full re-sort beats any cleverness.
func (l *ledger) insert(o Observation) {
	l.obs = append(l.obs, o)
	sort.Slice(l.obs, func(i, j int) bool {
		a, b := l.obs[i], l.obs[j]
		if a.Score != b.Score {
			if l.reverse {
				return a.Score > b.Score
			}
			return a.Score < b.Score
		}
		return a.Epoch < b.Epoch
	})
}

// dropWorst removes the bottom-ranked observation and returns its epoch.
func (l *ledger) dropWorst() int {
	last := l.obs[len(l.obs)-1]
	l.obs = l.obs[:len(l.obs)-1]
	return last.Epoch
}

// snapshot returns a copy of the retained observations, best-first.
func (l *ledger) snapshot() []Observation {
	out := make([]Observation, len(l.obs))
	copy(out, l.obs)
	return out
}
