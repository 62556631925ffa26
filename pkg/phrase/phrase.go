// Package phrase holds the data-model types shared by the Prefix Index,
// the Aggregator, and the Log Store: the normalized phrase and the
// running count record kept for it.
package phrase

import "time"

// Count is a phrase together with its accumulated occurrence count. The
// Prefix Index stores these in top-K caches; the Log Store persists them
// keyed by Phrase.
type Count struct {
	Phrase string
	Count  uint64
}

// Record is the Log Store's row shape for a phrase: the running count,
// when it last changed, and whether it is currently excluded from
// suggestion output by the Filter Gate.
//
// Count is monotonically non-decreasing except when a rebuild zeroes it;
// IsFiltered true means the phrase must never appear in a suggestion list
// even though its row survives in the Log Store.
type Record struct {
	Phrase      string
	Count       uint64
	LastUpdated time.Time
	IsFiltered  bool
}

// Source identifies which ranking signal contributed a candidate to a
// composed suggestion result.
type Source int

const (
	SourcePopular Source = iota
	SourceTrending
	SourcePersonal
)

func (s Source) String() string {
	switch s {
	case SourcePopular:
		return "popular"
	case SourceTrending:
		return "trending"
	case SourcePersonal:
		return "personal"
	default:
		return "unknown"
	}
}

// Suggestion is a single composed result: the phrase, its blended score,
// and the set of signals that contributed to that score.
type Suggestion struct {
	Phrase  string
	Score   float64
	Sources map[Source]struct{}
}

// HasSource reports whether signal contributed to this suggestion.
func (s Suggestion) HasSource(signal Source) bool {
	_, ok := s.Sources[signal]
	return ok
}

// AddSource marks signal as having contributed, allocating the set on
// first use.
func (s *Suggestion) AddSource(signal Source) {
	if s.Sources == nil {
		s.Sources = make(map[Source]struct{}, 3)
	}
	s.Sources[signal] = struct{}{}
}
