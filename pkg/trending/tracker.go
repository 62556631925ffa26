/*
Package trending implements the Trending Tracker (C4): a decayed-count
popularity signal over a sliding window of recent activity.

# Model

Each bump records one event in the current minute bucket. A phrase's
trending score is a sum of per-minute event counts decayed by
exp(-λ·(now-i)), λ = ln(2)/halfLife. Rather than re-summing every minute
bucket on every read, the score is maintained incrementally: on bump, the
existing score is decayed to now and one event is added — algebraically
equivalent to the windowed sum for a pure exponential decay, and O(1) per
bump instead of O(window size).

A red-black TreeMap keyed by minute bucket tracks which phrases were
bumped when. Sweep evicts decayed phrases by scanning the whole phrase
set, and separately drops buckets that have aged out of the window; the
buckets are not consulted when evicting phrases. Nothing in this module
calls Sweep.
*/
package trending

import (
	"math"
	"sync"
	"time"

	"github.com/Zubayear/ryushin/priorityqueue"
	"github.com/Zubayear/ryushin/treemap"
)

// Entry is a phrase paired with its current trending score.
type Entry struct {
	Phrase string
	Score  float64
}

type state struct {
	score     float64
	updatedAt time.Time
}

// Tracker is the Trending Tracker. It is safe for concurrent use.
type Tracker struct {
	mu sync.Mutex

	window   time.Duration
	halfLife time.Duration
	lambda   float64
	topN     int
	floor    float64

	entries map[string]*state
	// buckets maps minute-bucket (unix minutes) to the set of phrases
	// bumped in that minute; Sweep drops buckets older than the window.
	buckets *treemap.TreeMap[int64, map[string]struct{}]
}

// New returns a Tracker. window is the sliding window (default 60m),
// halfLife controls decay speed (default window/2), topN bounds the
// maintained top set, floor is the score below which an entry is
// evicted.
func New(window, halfLife time.Duration, topN int, floor float64) *Tracker {
	return &Tracker{
		window:   window,
		halfLife: halfLife,
		lambda:   math.Ln2 / halfLife.Seconds(),
		topN:     topN,
		floor:    floor,
		entries:  make(map[string]*state),
		buckets:  treemap.NewTreeMap[int64, map[string]struct{}](),
	}
}

func (t *Tracker) decay(s *state, now time.Time) float64 {
	dt := now.Sub(s.updatedAt).Seconds()
	if dt <= 0 {
		return s.score
	}
	return s.score * math.Exp(-t.lambda*dt)
}

// Bump records one event for phrase at the current minute bucket.
func (t *Tracker) Bump(phr string) {
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.entries[phr]
	if !ok {
		s = &state{updatedAt: now}
		t.entries[phr] = s
	} else {
		s.score = t.decay(s, now)
	}
	s.score += 1
	s.updatedAt = now

	bucket := now.Unix() / 60
	set, ok := t.buckets.Get(bucket)
	if !ok {
		set = make(map[string]struct{}, 8)
		t.buckets.Put(bucket, set)
	}
	set[phr] = struct{}{}
}

// Score returns phrase's current decayed score, or 0 if absent.
func (t *Tracker) Score(phr string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.entries[phr]
	if !ok {
		return 0
	}
	return t.decay(s, time.Now())
}

// Top returns the top k phrases by decayed score, descending.
func (t *Tracker) Top(k int) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()

	worse := func(a, b Entry) bool {
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		return a.Phrase > b.Phrase
	}
	h := priorityqueue.NewBinaryHeapWithComparator(worse)
	for p, s := range t.entries {
		score := t.decay(s, now)
		if score < t.floor {
			continue
		}
		h.Add(Entry{Phrase: p, Score: score})
		if h.Size() > k {
			h.Poll()
		}
	}
	sorted := h.Sort()
	out := make([]Entry, len(sorted))
	for i, e := range sorted {
		out[len(sorted)-1-i] = e
	}
	return out
}

// Candidates returns up to k Entries of Top(topN) whose phrase begins
// with prefix, for the Ranking Composer's trending input. The
// decayed score is carried through as a float64 — it is a continuous
// value, not a count, and must not be rounded before blending.
func (t *Tracker) Candidates(prefix string, k int) []Entry {
	top := t.Top(t.topN)
	out := make([]Entry, 0, k)
	for _, e := range top {
		if !hasPrefix(e.Phrase, prefix) {
			continue
		}
		out = append(out, e)
		if len(out) >= k {
			break
		}
	}
	return out
}

func hasPrefix(s, prefix string) bool {
	if len(prefix) > len(s) {
		return false
	}
	return s[:len(prefix)] == prefix
}

// Sweep evicts phrases whose score has decayed below floor and drops
// minute buckets older than the window. It is meant to be called
// periodically by a maintenance task, not on the read or write hot path.
func (t *Tracker) Sweep() {
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()

	for p, s := range t.entries {
		if t.decay(s, now) < t.floor {
			delete(t.entries, p)
		}
	}

	cutoff := now.Add(-t.window).Unix() / 60
	for {
		bucket, ok := t.buckets.FirstKey()
		if !ok || bucket >= cutoff {
			break
		}
		t.buckets.Remove(bucket)
	}
}
