/*
Package suggest implements the Suggestion Service (C3): the read path
that normalizes a prefix, consults the read-through cache, falls back to
the Index/Trending/History/Composer pipeline on a miss, and fills the
cache with the result.

	svc := suggest.New(idx, trend, hist, composer, gate, cache, suggest.DefaultOptions())
	results, err := svc.Suggest(ctx, "ap", "user-42", 5, suggest.ModeExact)

This package previously held the completion engine itself (a
go-patricia-backed Completer with its own hot-word cache); that
responsibility now belongs to pkg/index, which maintains per-node top-K
caches directly rather than re-scanning a patricia subtree on every
lookup. What remains here is strictly the read-path orchestration: cache,
compose, fuzzy fallback.
*/
package suggest

import (
	"context"
	"fmt"
	"time"

	"github.com/arqlane/suggestd/internal/normalize"
	"github.com/arqlane/suggestd/pkg/filtergate"
	"github.com/arqlane/suggestd/pkg/history"
	"github.com/arqlane/suggestd/pkg/phrase"
	"github.com/arqlane/suggestd/pkg/ranking"
	"github.com/arqlane/suggestd/pkg/sessionstore"
	"github.com/arqlane/suggestd/pkg/suggesterr"
	"github.com/arqlane/suggestd/pkg/trending"
)

// Mode selects exact or fuzzy matching.
type Mode int

const (
	ModeExact Mode = iota
	ModeFuzzy
)

// Index is the subset of pkg/index's Index the service depends on, kept
// as an interface so tests can fake a degraded Index.
type Index interface {
	Lookup(prefix string, k int) ([]phrase.Count, error)
}

// Options bundles the service's tunables, mirroring pkg/config's ranking
// and cache sections.
type Options struct {
	Limit            int
	HotTTL           time.Duration
	UserTTL          time.Duration
	LookupDeadline   time.Duration
	FuzzyMinPrefix   int
}

// DefaultOptions returns the defaults named in the component design.
func DefaultOptions() Options {
	return Options{
		Limit:          10,
		HotTTL:         30 * time.Second,
		UserTTL:        5 * time.Second,
		LookupDeadline: 50 * time.Millisecond,
		FuzzyMinPrefix: 3,
	}
}

// Service is the Suggestion Service.
type Service struct {
	index    Index
	trending *trending.Tracker
	history  *history.Tracker
	composer *ranking.Composer
	gate     *filtergate.Gate
	cache    sessionstore.Store[[]phrase.Suggestion]
	opts     Options
}

// New wires the Suggestion Service's dependencies together.
func New(idx Index, trend *trending.Tracker, hist *history.Tracker, composer *ranking.Composer, gate *filtergate.Gate, cache sessionstore.Store[[]phrase.Suggestion], opts Options) *Service {
	return &Service{index: idx, trending: trend, history: hist, composer: composer, gate: gate, cache: cache, opts: opts}
}

// Suggest is the read path: normalize → cache check → Index/Trending/History
// lookup → compose → cache fill.
func (s *Service) Suggest(ctx context.Context, rawPrefix, userID string, limit int, mode Mode) ([]phrase.Suggestion, error) {
	if limit <= 0 || limit > 20 {
		if limit > 20 {
			limit = 20
		} else {
			limit = s.opts.Limit
		}
	}
	prefix := normalize.Lookup(rawPrefix)

	cacheKey := s.cacheKey(prefix, userID)
	if s.cache != nil {
		if cached, ok := s.cache.Get(cacheKey); ok {
			return cached, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.LookupDeadline)
	defer cancel()

	results, err := s.compute(ctx, prefix, userID, limit, mode)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && qualifiesForCache(results) {
		ttl := s.opts.HotTTL
		if userID != "" {
			ttl = s.opts.UserTTL
		}
		s.cache.Set(cacheKey, results, ttl)
	}
	return results, nil
}

func (s *Service) compute(ctx context.Context, prefix, userID string, limit int, mode Mode) ([]phrase.Suggestion, error) {
	popular, err := s.index.Lookup(prefix, limit*3)
	if err != nil {
		return nil, suggesterr.Wrap("suggest.Suggest", suggesterr.ServiceDegraded, err)
	}

	if mode == ModeFuzzy && len([]rune(prefix)) >= s.opts.FuzzyMinPrefix {
		for _, variant := range lastCharEdits(prefix) {
			extra, err := s.index.Lookup(variant, limit)
			if err == nil {
				popular = append(popular, extra...)
			}
		}
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, suggesterr.Wrap("suggest.Suggest", suggesterr.DeadlineExceeded, ctxErr)
	}

	popularCandidates := make([]ranking.Candidate, 0, len(popular))
	for _, p := range popular {
		popularCandidates = append(popularCandidates, ranking.Candidate{Phrase: p.Phrase, Count: p.Count})
	}

	trendCandidates := s.trendingCandidates(prefix, limit)

	var personalCandidates []ranking.Candidate
	if userID != "" && s.history != nil {
		for _, p := range s.history.Match(userID, prefix, limit) {
			personalCandidates = append(personalCandidates, ranking.Candidate{
				Phrase: p,
				Score:  s.history.PersonalScore(userID, p),
			})
		}
	}

	results := s.composer.Compose(popularCandidates, trendCandidates, personalCandidates, limit)
	return filterBlocked(results, s.gate), nil
}

func (s *Service) trendingCandidates(prefix string, limit int) []ranking.Candidate {
	if s.trending == nil {
		return nil
	}
	entries := s.trending.Candidates(prefix, limit*3)
	out := make([]ranking.Candidate, 0, len(entries))
	for _, e := range entries {
		out = append(out, ranking.Candidate{Phrase: e.Phrase, Score: e.Score})
	}
	return out
}

func filterBlocked(results []phrase.Suggestion, gate *filtergate.Gate) []phrase.Suggestion {
	if gate == nil {
		return results
	}
	out := results[:0]
	for _, r := range results {
		if !gate.IsBlocked(r.Phrase) {
			out = append(out, r)
		}
	}
	return out
}

func qualifiesForCache(results []phrase.Suggestion) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if r.Score <= 0 {
			return false
		}
	}
	return true
}

func (s *Service) cacheKey(prefix, userID string) string {
	who := "anon"
	if userID != "" {
		who = userID
	}
	return fmt.Sprintf("suggest_cache:%s:%s", prefix, who)
}
