/*
Package history implements the History Tracker (C5): each user's recent,
distinct search phrases, newest first, capped at H entries and expiring
after inactivity.

Per-user history is a deque of phrases, newest at the front. Recording a
phrase that's already present moves it to the front rather than
duplicating it, matching the "duplicates move to the head" rule in the
data model.
*/
package history

import (
	"math"
	"sync"
	"time"

	"github.com/Zubayear/ryushin/deque"
)

type userRecord struct {
	phrases  *deque.Deque[string]
	lastSeen time.Time
}

// Tracker is the History Tracker. It is safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	depth  int
	expiry time.Duration
	users  map[string]*userRecord
}

// New returns a Tracker keeping at most depth entries per user (default
// 50), expiring a user's record after expiry of inactivity (default 30
// days).
func New(depth int, expiry time.Duration) *Tracker {
	return &Tracker{
		depth:  depth,
		expiry: expiry,
		users:  make(map[string]*userRecord),
	}
}

// Record promotes phrase to the head of userID's history, evicting
// beyond depth entries.
func (t *Tracker) Record(userID, phr string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.users[userID]
	if !ok {
		rec = &userRecord{phrases: deque.NewDeque[string]()}
		t.users[userID] = rec
	}
	rec.lastSeen = time.Now()

	if rec.phrases.Remove(phr) {
		_, _ = rec.phrases.OfferFirst(phr)
		return
	}
	_, _ = rec.phrases.OfferFirst(phr)
	for rec.phrases.Size() > t.depth {
		_, _ = rec.phrases.PollLast()
	}
}

// Match returns userID's history entries whose phrase begins with
// prefix, most-recent first, capped at k. Returns nil for an unknown or
// expired user.
func (t *Tracker) Match(userID, prefix string, k int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.users[userID]
	if !ok || t.expired(rec) {
		return nil
	}
	ordered := snapshot(rec.phrases)
	out := make([]string, 0, k)
	for _, p := range ordered {
		if !hasPrefix(p, prefix) {
			continue
		}
		out = append(out, p)
		if len(out) >= k {
			break
		}
	}
	return out
}

// PersonalScore returns exp(-ageRank*0.1) for phrase in userID's history,
// where ageRank is 0 for the most recent entry, 1 for the next, and so
// on; 0 if the phrase is absent or the user is unknown/expired.
func (t *Tracker) PersonalScore(userID, phr string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.users[userID]
	if !ok || t.expired(rec) {
		return 0
	}
	for rank, p := range snapshot(rec.phrases) {
		if p == phr {
			return math.Exp(-float64(rank) * 0.1)
		}
	}
	return 0
}

func (t *Tracker) expired(rec *userRecord) bool {
	return time.Since(rec.lastSeen) > t.expiry
}

// snapshot drains the deque into a slice (front to back) and restores
// it, since the underlying Deque exposes no iteration method.
func snapshot(d *deque.Deque[string]) []string {
	n := d.Size()
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		v, err := d.PollFirst()
		if err != nil {
			break
		}
		out = append(out, v)
	}
	for i := len(out) - 1; i >= 0; i-- {
		_, _ = d.OfferFirst(out[i])
	}
	return out
}

func hasPrefix(s, prefix string) bool {
	if len(prefix) > len(s) {
		return false
	}
	return s[:len(prefix)] == prefix
}

// Sweep removes users whose history has expired. Meant for periodic
// maintenance, not the hot path.
func (t *Tracker) Sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, rec := range t.users {
		if t.expired(rec) {
			delete(t.users, id)
		}
	}
}
