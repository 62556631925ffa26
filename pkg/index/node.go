package index

import "github.com/arqlane/suggestd/pkg/phrase"

// node is a single trie node. Each node exclusively owns its children and
// its top-K cache; no node is shared with the cache layer or the
// aggregator. Updates only ever happen through Index's own API, which
// keeps the bottom-up repair invariant (I1) tractable: a node's topK
// always equals the best K phrases in its subtree, excluding filtered
// ones, by (-count, phrase) order.
type node struct {
	children map[rune]*node
	// terminal is non-zero only when a phrase ends at this node.
	terminal uint64
	// isWord distinguishes a zero-count terminal ("seen but never
	// counted", which cannot happen on the ingest path) from "not a
	// word at all". Insert produces terminal==0 with isWord==true only
	// when given a zero delta, or a rebuild entry with count 0.
	isWord     bool
	isFiltered bool
	// phrase is set only at terminal nodes, so top-K repair doesn't
	// need to reconstruct the string by walking back to the root.
	phrase string
	topK   []phrase.Count
}

func newNode() *node {
	return &node{children: make(map[rune]*node, 4)}
}

func (n *node) child(r rune) *node {
	return n.children[r]
}

func (n *node) childOrCreate(r rune) *node {
	c, ok := n.children[r]
	if !ok {
		c = newNode()
		n.children[r] = c
	}
	return c
}

// selfEntry returns this node's own terminal as a phrase.Count, and
// whether it should participate in a top-K merge at all (a non-word node,
// or a filtered word, contributes nothing).
func (n *node) selfEntry() (phrase.Count, bool) {
	if !n.isWord || n.isFiltered {
		return phrase.Count{}, false
	}
	return phrase.Count{Phrase: n.phrase, Count: n.terminal}, true
}
