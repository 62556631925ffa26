/*
Package ranking implements the Ranking Composer (C2): it blends the
Prefix Index's popularity candidates with the Trending Tracker's and
History Tracker's candidates into one ordered suggestion list.

	composer := ranking.New(ranking.DefaultWeights())
	results := composer.Compose(popular, trending, personal, 5)
*/
package ranking

import (
	"math"
	"sort"

	"github.com/arqlane/suggestd/pkg/phrase"
)

// Weights holds the blend coefficients for the three ranking signals.
type Weights struct {
	Popular  float64
	Trending float64
	Personal float64
}

// DefaultWeights returns the defaults named in the component design:
// w_pop=1.0, w_trend=0.6, w_personal=1.5.
func DefaultWeights() Weights {
	return Weights{Popular: 1.0, Trending: 0.6, Personal: 1.5}
}

// Candidate is one signal's contribution for a phrase before blending.
type Candidate struct {
	Phrase string
	// Count is the raw popularity count, used only by the popular
	// signal (log1p'd on compose).
	Count uint64
	// Score is the signal's own scaled value, used by trending and
	// personal candidates.
	Score float64
}

// Composer merges popular, trending, and personal candidates into a
// single scored, deduplicated, deterministically ordered result list.
type Composer struct {
	w Weights
}

// New returns a Composer using the given weights.
func New(w Weights) *Composer {
	return &Composer{w: w}
}

// Compose unions the three candidate sets by phrase, scores each per the
// blend formula, sorts by (-score, phrase), and returns the first k.
// Missing signals contribute 0; a cold user (empty personal) degrades
// gracefully to popularity-plus-trending. Output never contains
// duplicates. Compose does no filtering of its own: the Index keeps
// filtered phrases out of its caches, and the Suggestion Service drops
// blocked phrases from the composed list afterwards.
func (c *Composer) Compose(popular, trending, personal []Candidate, k int) []phrase.Suggestion {
	type accum struct {
		score   float64
		sources map[phrase.Source]struct{}
	}
	byPhrase := make(map[string]*accum, len(popular)+len(trending)+len(personal))

	add := func(p string, delta float64, src phrase.Source) {
		a, ok := byPhrase[p]
		if !ok {
			a = &accum{sources: make(map[phrase.Source]struct{}, 3)}
			byPhrase[p] = a
		}
		a.score += delta
		a.sources[src] = struct{}{}
	}

	for _, cand := range popular {
		add(cand.Phrase, c.w.Popular*math.Log1p(float64(cand.Count)), phrase.SourcePopular)
	}
	for _, cand := range trending {
		add(cand.Phrase, c.w.Trending*cand.Score, phrase.SourceTrending)
	}
	for _, cand := range personal {
		add(cand.Phrase, c.w.Personal*cand.Score, phrase.SourcePersonal)
	}

	out := make([]phrase.Suggestion, 0, len(byPhrase))
	for p, a := range byPhrase {
		out = append(out, phrase.Suggestion{Phrase: p, Score: a.score, Sources: a.sources})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Phrase < out[j].Phrase
	})

	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}
