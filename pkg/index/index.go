/*
Package index implements the Prefix Index: an in-memory trie with a
per-node top-K cache of best completions, maintained incrementally as
phrases are inserted and removed.

# Top-K maintenance

On insert or remove of a terminal, the walked path from that terminal back
to the root is repaired bottom-up: each ancestor recomputes its top-K
cache by merging its children's (already-bounded) top-K lists with its
own terminal, keeping only the best K by (-count, phrase). The walk stops
early the moment an ancestor's cache doesn't change, since nothing above
it can change either.

	idx := index.New(10)
	idx.Insert("apple", 10)
	idx.Insert("apricot", 7)
	results, _ := idx.Lookup("ap", 5)
	// results = [{apple 10} {apricot 7}]

# Rebuild

Rebuild constructs an entirely new trie offline from a finite sequence of
(phrase, count) pairs, then swaps the root reference atomically. Readers
either see the whole old trie or the whole new one, never a partial
state — the swap is the only place the root pointer itself changes.

# Concurrency

A single coarse sync.RWMutex guards structural edits (insert, remove,
rebuild); lookups take the read lock. The component design describes
locking bottom-up per subtree, but without real per-node synchronization
that scheme is simply a single writer lock scoped more finely — actual
concurrent map mutation under separate per-node locks (fixed-size Go maps
are not safe for concurrent read/write at all) would be a data race, not
a narrower one. A coarse RWMutex plus the atomic root swap for rebuild
gives the same externally observable guarantee (readers never see a
partial index; rebuild builds the new trie without holding the lock
and takes the write lock only for the swap) while staying race-free.
*/
package index

import (
	"sync"
	"sync/atomic"

	"github.com/arqlane/suggestd/internal/normalize"
	"github.com/arqlane/suggestd/pkg/phrase"
	"github.com/arqlane/suggestd/pkg/suggesterr"
)

// Index is the Prefix Index (C1).
type Index struct {
	k int

	mu    sync.RWMutex
	root  atomic.Pointer[node]
	count int // distinct phrases indexed
	nodes int // total trie nodes, including root
}

// New returns an empty Index with top-K cache width k.
func New(k int) *Index {
	idx := &Index{k: k, nodes: 1}
	idx.root.Store(newNode())
	return idx
}

// Lookup returns the top-K cache stored at the node reached by walking
// prefix, capped at k entries. An unknown prefix returns an empty,
// non-nil slice. Filtered phrases never appear (they are excluded from
// every node's cache by construction).
func (idx *Index) Lookup(prefix string, k int) ([]phrase.Count, error) {
	if k <= 0 {
		k = idx.k
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := idx.root.Load()
	for _, r := range prefix {
		n = n.child(r)
		if n == nil {
			return []phrase.Count{}, nil
		}
	}
	if k >= len(n.topK) {
		out := make([]phrase.Count, len(n.topK))
		copy(out, n.topK)
		return out, nil
	}
	out := make([]phrase.Count, k)
	copy(out, n.topK[:k])
	return out, nil
}

// Insert walks or creates the path for phrase, adds delta to its
// terminal count, and repairs top-K caches bottom-up along the walked
// path. delta may be negative only when called from Rebuild.
func (idx *Index) Insert(phr string, delta int64) error {
	if !normalize.Valid(phr) {
		return suggesterr.New("index.Insert", suggesterr.InvalidPhrase, "empty or over-long phrase")
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.insertLocked(phr, delta, false)
}

func (idx *Index) insertLocked(phr string, delta int64, rebuilding bool) error {
	if delta < 0 && !rebuilding {
		return suggesterr.New("index.Insert", suggesterr.InvariantViolation, "negative count delta outside rebuild")
	}

	path := []*node{idx.root.Load()}
	n := path[0]
	for _, r := range phr {
		child, ok := n.children[r]
		if !ok {
			child = newNode()
			n.children[r] = child
			idx.nodes++
		}
		n = child
		path = append(path, n)
	}

	wasWord := n.isWord
	newCount := int64(n.terminal) + delta
	if newCount < 0 {
		newCount = 0
	}
	n.isWord = true
	n.phrase = phr
	n.terminal = uint64(newCount)
	if !wasWord {
		idx.count++
	}

	idx.repairBottomUp(path)
	return nil
}

// Remove deletes phr's terminal, prunes now-empty subtree tails, and
// repairs top-K caches bottom-up along the path.
func (idx *Index) Remove(phr string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	path := []*node{idx.root.Load()}
	n := path[0]
	for _, r := range phr {
		child, ok := n.children[r]
		if !ok {
			return nil // nothing to remove
		}
		n = child
		path = append(path, n)
	}
	if !n.isWord {
		return nil
	}
	n.isWord = false
	n.terminal = 0
	n.phrase = ""
	idx.count--

	idx.pruneTail(path)
	idx.repairBottomUp(path)
	return nil
}

// SetFiltered marks phr's terminal as filtered (excluded from all top-K
// caches) or unfiltered, and repairs caches bottom-up. It does not touch
// the stored count — callers restore the count from the Log Store
// separately when unfiltering, per the Filter Gate's contract.
func (idx *Index) SetFiltered(phr string, filtered bool) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	path := []*node{idx.root.Load()}
	n := path[0]
	for _, r := range phr {
		child, ok := n.children[r]
		if !ok {
			return suggesterr.New("index.SetFiltered", suggesterr.NotFound, "phrase not present")
		}
		n = child
		path = append(path, n)
	}
	if !n.isWord {
		return suggesterr.New("index.SetFiltered", suggesterr.NotFound, "phrase not present")
	}
	n.isFiltered = filtered
	idx.repairBottomUp(path)
	return nil
}

// pruneTail removes trailing nodes in path that are now leaves with no
// terminal, stopping at the first node that still has children or is a
// word.
func (idx *Index) pruneTail(path []*node) {
	for i := len(path) - 1; i > 0; i-- {
		n := path[i]
		if n.isWord || len(n.children) > 0 {
			break
		}
		parent := path[i-1]
		for r, c := range parent.children {
			if c == n {
				delete(parent.children, r)
				idx.nodes--
				break
			}
		}
	}
}

// repairBottomUp recomputes top-K caches from the deepest node in path up
// to the root, stopping early once a cache is unchanged.
func (idx *Index) repairBottomUp(path []*node) {
	for i := len(path) - 1; i >= 0; i-- {
		n := path[i]
		newTopK := mergeTopK(collectCandidates(n), idx.k)
		if sameTopK(n.topK, newTopK) {
			return
		}
		n.topK = newTopK
	}
}

// Size returns the number of distinct phrases currently indexed.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.count
}

// NodeCount returns the number of trie nodes, including the root.
func (idx *Index) NodeCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.nodes
}

// Rebuild replaces the entire index from a finite, ordered sequence of
// (phrase, count) pairs by constructing a new trie offline and then
// atomically swapping the root. Concurrent readers observe either the
// old or the new index in full, never a partial one.
func (idx *Index) Rebuild(entries []phrase.Count) {
	fresh := &Index{k: idx.k, nodes: 1}
	fresh.root.Store(newNode())
	for _, e := range entries {
		_ = fresh.insertLocked(e.Phrase, int64(e.Count), true)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.root.Store(fresh.root.Load())
	idx.count = fresh.count
	idx.nodes = fresh.nodes
}
