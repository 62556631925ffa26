package index

import (
	"github.com/Zubayear/ryushin/priorityqueue"
	"github.com/arqlane/suggestd/pkg/phrase"
)

// less implements the (-count, phrase) ordering: higher count wins, ties
// broken by phrase ascending.
func less(a, b phrase.Count) bool {
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	return a.Phrase < b.Phrase
}

// mergeTopK merges a node's own terminal entry with its children's top-K
// caches and returns the best k by (-count, phrase). It uses a bounded
// min-heap so the working set never exceeds k elements: every candidate
// is pushed, and once the heap exceeds k it is trimmed by popping its
// worst (smallest by `less`) member.
func mergeTopK(candidates []phrase.Count, k int) []phrase.Count {
	if k <= 0 {
		return nil
	}
	// min-heap ordered so that the *worst* candidate under `less` sits
	// at the root — popping the root evicts the least-wanted entry.
	worst := func(a, b phrase.Count) bool { return less(b, a) }
	h := priorityqueue.NewBinaryHeapWithComparator(worst)

	for _, c := range candidates {
		h.Add(c)
		if h.Size() > k {
			h.Poll()
		}
	}
	sorted := h.Sort()
	// h.Sort() returns elements ordered by the heap's own comparator
	// (worst-first); reverse to get best-first (-count, phrase) order.
	out := make([]phrase.Count, len(sorted))
	for i, c := range sorted {
		out[len(sorted)-1-i] = c
	}
	return out
}

// collectCandidates gathers the merge input for a node: its own terminal
// (if any, and not filtered) plus every child's current top-K cache.
func collectCandidates(n *node) []phrase.Count {
	var out []phrase.Count
	if self, ok := n.selfEntry(); ok {
		out = append(out, self)
	}
	for _, c := range n.children {
		out = append(out, c.topK...)
	}
	return out
}

// sameTopK reports whether two top-K slices are identical in both entry
// set and order — used to stop the bottom-up repair walk early (§4.1
// step 2: an ancestor whose cache doesn't change needs no further
// propagation upward).
func sameTopK(a, b []phrase.Count) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
