/*
Package filtergate implements the Filter Gate (C7): the predicate that
excludes blocked phrases from ingest and from suggestion output.

The hot-path check, IsBlocked, is a lock-free read against a versioned
snapshot (an atomic.Pointer swapped on every admin mutation), per the
concurrency model's rule that the Filter Gate is read-only on the hot
path. Two further structures ride alongside the exact-match set: a
go-patricia radix trie, read only by the admin listing of every blocked
phrase under a chosen prefix, and an Aho-Corasick automaton, consulted
at ingest, for rejecting phrases that merely *contain* a blocked substring (not just exact
matches) — a superset check the exact-match set can't express.
*/
package filtergate

import (
	"sync"
	"sync/atomic"

	"github.com/coregx/ahocorasick"
	"github.com/tchap/go-patricia/v2/patricia"
)

// snapshot is the immutable, versioned view swapped atomically on every
// mutation. Readers never see a half-updated blocklist.
type snapshot struct {
	blocked   map[string]struct{}
	substrs   *ahocorasick.Automaton // nil if no substring patterns configured
}

// Gate is the Filter Gate. Reads (IsBlocked, ContainsBlockedSubstring)
// are lock-free; mutations (Block, Unblock, SetSubstringBlocklist) take
// a mutex since they rebuild the snapshot.
type Gate struct {
	mu       sync.Mutex
	snap     atomic.Pointer[snapshot]
	prefixes *patricia.Trie // admin-only BlockedUnderPrefix listing
}

// New returns an empty Gate.
func New() *Gate {
	g := &Gate{prefixes: patricia.NewTrie()}
	g.snap.Store(&snapshot{blocked: make(map[string]struct{})})
	return g
}

// IsBlocked reports whether phrase is exactly blocked. O(1).
func (g *Gate) IsBlocked(phr string) bool {
	s := g.snap.Load()
	_, ok := s.blocked[phr]
	return ok
}

// ContainsBlockedSubstring reports whether phrase contains any
// substring-blocklist pattern, for the stricter ingest-time check. With
// no substring patterns configured it always returns false.
func (g *Gate) ContainsBlockedSubstring(phr string) bool {
	s := g.snap.Load()
	if s.substrs == nil {
		return false
	}
	return s.substrs.IsMatch([]byte(phr))
}

// Block adds phrase to the blocklist.
func (g *Gate) Block(phr string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur := g.snap.Load()
	next := make(map[string]struct{}, len(cur.blocked)+1)
	for p := range cur.blocked {
		next[p] = struct{}{}
	}
	next[phr] = struct{}{}
	g.snap.Store(&snapshot{blocked: next, substrs: cur.substrs})
	g.prefixes.Set(patricia.Prefix(phr), true)
}

// Unblock removes phrase from the blocklist.
func (g *Gate) Unblock(phr string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur := g.snap.Load()
	next := make(map[string]struct{}, len(cur.blocked))
	for p := range cur.blocked {
		if p != phr {
			next[p] = struct{}{}
		}
	}
	g.snap.Store(&snapshot{blocked: next, substrs: cur.substrs})
	g.prefixes.Set(patricia.Prefix(phr), false)
}

// SetSubstringBlocklist rebuilds the Aho-Corasick automaton used by
// ContainsBlockedSubstring from the given patterns. Passing an empty
// slice disables the substring check.
func (g *Gate) SetSubstringBlocklist(patterns []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur := g.snap.Load()
	if len(patterns) == 0 {
		g.snap.Store(&snapshot{blocked: cur.blocked, substrs: nil})
		return nil
	}
	builder := ahocorasick.NewBuilder()
	for _, p := range patterns {
		builder.AddPattern([]byte(p))
	}
	auto, err := builder.Build()
	if err != nil {
		return err
	}
	g.snap.Store(&snapshot{blocked: cur.blocked, substrs: auto})
	return nil
}

// BlockedUnderPrefix lists every blocked phrase whose key begins with
// prefix, for admin inspection. Unlike IsBlocked this walks the
// go-patricia trie, not the exact-match snapshot, since it needs
// subtree traversal rather than a single lookup.
func (g *Gate) BlockedUnderPrefix(prefix string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []string
	err := g.prefixes.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, item patricia.Item) error {
		if blocked, ok := item.(bool); ok && blocked {
			out = append(out, string(p))
		}
		return nil
	})
	return out, err
}
