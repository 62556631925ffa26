/*
Package engine is the composition root: it wires the Prefix Index,
Ranking Composer, Trending Tracker, History Tracker, Filter Gate, Log
Store, session cache, Aggregator, and Suggestion Service together and
exposes the operations named by the external interface (§6) as plain Go
methods, independent of any particular transport.

	eng := engine.New(cfg, store, logger)
	go eng.Aggregator().Run(ctx)
	results, elapsed, err := eng.Suggest(ctx, "ap", "user-1", 5, false)

internal/httpapi adapts these methods onto chi routes; cmd/suggestd
constructs an Engine directly for CLI/admin-shell use.
*/
package engine

import (
	"context"
	"time"

	"github.com/arqlane/suggestd/pkg/aggregator"
	"github.com/arqlane/suggestd/pkg/config"
	"github.com/arqlane/suggestd/pkg/filtergate"
	"github.com/arqlane/suggestd/pkg/history"
	"github.com/arqlane/suggestd/pkg/index"
	"github.com/arqlane/suggestd/pkg/logstore"
	"github.com/arqlane/suggestd/pkg/phrase"
	"github.com/arqlane/suggestd/pkg/ranking"
	"github.com/arqlane/suggestd/pkg/sessionstore"
	"github.com/arqlane/suggestd/pkg/suggest"
	"github.com/arqlane/suggestd/pkg/suggesterr"
	"github.com/arqlane/suggestd/pkg/trending"
)

// Status mirrors the `status` admin endpoint's response shape.
type Status struct {
	IndexSize    int   `json:"index_size"`
	TrieNodes    int   `json:"trie_nodes"`
	BatchPending int   `json:"batch_pending"`
	FlushLagMs   int64 `json:"flush_lag_ms"`
	Degraded     bool  `json:"degraded"`
}

// Engine is the composition root.
type Engine struct {
	cfg *config.Config

	index      *index.Index
	trending   *trending.Tracker
	history    *history.Tracker
	composer   *ranking.Composer
	gate       *filtergate.Gate
	cache      sessionstore.Store[[]phrase.Suggestion]
	store      logstore.LogStore
	aggregator *aggregator.Aggregator
	suggest    *suggest.Service

	lastFlush time.Time
	degraded  bool
}

// New builds an Engine from cfg and a durable Log Store. logger is
// passed through to the Aggregator; nil disables its logging.
func New(cfg *config.Config, store logstore.LogStore, logger aggregator.Logger) *Engine {
	idx := index.New(cfg.Index.TopK)
	trend := trending.New(
		time.Duration(cfg.Trending.WindowMinutes)*time.Minute,
		time.Duration(cfg.Trending.HalfLifeSeconds)*time.Second,
		cfg.Trending.TopN,
		cfg.Trending.EvictionFloor,
	)
	hist := history.New(cfg.History.Depth, time.Duration(cfg.History.ExpiryDays)*24*time.Hour)
	composer := ranking.New(ranking.Weights{
		Popular:  cfg.Ranking.WeightPopular,
		Trending: cfg.Ranking.WeightTrending,
		Personal: cfg.Ranking.WeightPersonal,
	})
	gate := filtergate.New()
	cache := sessionstore.NewMemory[[]phrase.Suggestion]()

	svc := suggest.New(idx, trend, hist, composer, gate, cache, suggest.Options{
		Limit:          cfg.Index.TopK,
		HotTTL:         time.Duration(cfg.Cache.HotTTLSeconds) * time.Second,
		UserTTL:        time.Duration(cfg.Cache.UserTTLSeconds) * time.Second,
		LookupDeadline: time.Duration(cfg.Ranking.LookupDeadlineMs) * time.Millisecond,
		FuzzyMinPrefix: cfg.Fuzzy.MinPrefixLength,
	})

	agg := aggregator.New(idx, trend, hist, gate, store, cfg.Aggregator, logger)

	return &Engine{
		cfg:        cfg,
		index:      idx,
		trending:   trend,
		history:    hist,
		composer:   composer,
		gate:       gate,
		cache:      cache,
		store:      store,
		aggregator: agg,
		suggest:    svc,
		lastFlush:  time.Now(),
	}
}

// Aggregator exposes the write path for callers that need to Run its
// flush loop or Stop it at shutdown.
func (e *Engine) Aggregator() *aggregator.Aggregator { return e.aggregator }

// Flush forces an out-of-cadence durable write of the Aggregator's
// buffered batch, used at shutdown and by tests.
func (e *Engine) Flush(ctx context.Context) error {
	err := e.aggregator.Flush(ctx)
	e.lastFlush = time.Now()
	return err
}

// Suggest is the `suggest` endpoint.
func (e *Engine) Suggest(ctx context.Context, prefix, userID string, limit int, fuzzy bool) ([]phrase.Suggestion, time.Duration, error) {
	mode := suggest.ModeExact
	if fuzzy {
		mode = suggest.ModeFuzzy
	}
	start := time.Now()
	results, err := e.suggest.Suggest(ctx, prefix, userID, limit, mode)
	return results, time.Since(start), err
}

// LogCompletion is the `log_completion` endpoint.
func (e *Engine) LogCompletion(ctx context.Context, query, userID, sessionID string) error {
	return e.aggregator.Ingest(ctx, query, userID, sessionID)
}

// Trending is the `trending` endpoint.
func (e *Engine) Trending(limit int) []trending.Entry {
	return e.trending.Top(limit)
}

// Popular is the `popular` endpoint: an empty-prefix Index lookup.
func (e *Engine) Popular(limit int) ([]phrase.Count, error) {
	return e.index.Lookup("", limit)
}

// History is the `history` endpoint.
func (e *Engine) History(userID string, limit int) []string {
	return e.history.Match(userID, "", limit)
}

// Rebuild is the `rebuild` admin endpoint.
func (e *Engine) Rebuild(ctx context.Context) (int, error) {
	if err := e.aggregator.Rebuild(ctx, e.cfg.Index.RebuildMaxCount); err != nil {
		e.degraded = true
		return 0, err
	}
	e.degraded = false
	e.lastFlush = time.Now()
	return e.index.Size(), nil
}

// UpsertPhrase is the `upsert_phrase` admin endpoint: sets phr's count
// to an absolute value and clears the cache under its first character,
// since every cached completion list starting with that character may
// now be stale.
func (e *Engine) UpsertPhrase(phr string, count uint64) error {
	current, _, err := e.store.Get(context.Background(), phr)
	if err != nil {
		return suggesterr.Wrap("engine.UpsertPhrase", suggesterr.ServiceDegraded, err)
	}
	delta := int64(count) - int64(current.Count)
	if err := e.index.Insert(phr, delta); err != nil {
		return err
	}
	if err := e.store.UpsertCounts(context.Background(), map[string]int64{phr: delta}); err != nil {
		return suggesterr.Wrap("engine.UpsertPhrase", suggesterr.ServiceDegraded, err)
	}
	e.clearCacheUnderFirstChar(phr)
	return nil
}

// DeletePhrase is the `delete_phrase` admin endpoint: a soft delete,
// marking the phrase filtered without losing its historical count.
func (e *Engine) DeletePhrase(phr string) error {
	if err := e.index.SetFiltered(phr, true); err != nil {
		return err
	}
	if err := e.store.SetFiltered(context.Background(), phr, true); err != nil {
		return suggesterr.Wrap("engine.DeletePhrase", suggesterr.ServiceDegraded, err)
	}
	e.clearCacheUnderFirstChar(phr)
	return nil
}

// FilterAdd is the `filter_add` admin endpoint: adds phr to the Filter
// Gate and removes it from the Index outright (stronger than
// DeletePhrase's soft delete — a blocked phrase shouldn't even occupy
// trie space).
func (e *Engine) FilterAdd(phr, _ string) error {
	e.gate.Block(phr)
	if err := e.index.Remove(phr); err != nil {
		return err
	}
	e.clearCacheUnderFirstChar(phr)
	return nil
}

// FilterRemove is the `filter_remove` admin endpoint: unblocks phr and
// reinserts it into the Index using its last known durable count.
func (e *Engine) FilterRemove(phr string) error {
	e.gate.Unblock(phr)
	rec, ok, err := e.store.Get(context.Background(), phr)
	if err != nil {
		return suggesterr.Wrap("engine.FilterRemove", suggesterr.ServiceDegraded, err)
	}
	if ok && rec.Count > 0 {
		if err := e.index.Insert(phr, int64(rec.Count)); err != nil {
			return err
		}
	}
	e.clearCacheUnderFirstChar(phr)
	return nil
}

// CacheClear is the `cache_clear` admin endpoint.
func (e *Engine) CacheClear() {
	if m, ok := e.cache.(*sessionstore.Memory[[]phrase.Suggestion]); ok {
		m.Clear()
	}
}

// clearCacheUnderFirstChar drops every cached suggestion list whose
// prefix begins with phr's first character, per the cache-invalidation
// open question (§9): a mutation to any phrase starting with that
// character can change any of those lists' rankings. The empty prefix's
// global lists are dropped too, since they can hold any phrase.
func (e *Engine) clearCacheUnderFirstChar(phr string) {
	if phr == "" {
		return
	}
	first := string([]rune(phr)[0])
	if m, ok := e.cache.(*sessionstore.Memory[[]phrase.Suggestion]); ok {
		m.DeletePrefix("suggest_cache:" + first)
		m.DeletePrefix("suggest_cache::")
	}
}

// Status is the `status` admin endpoint.
func (e *Engine) Status() Status {
	return Status{
		IndexSize:    e.index.Size(),
		TrieNodes:    e.index.NodeCount(),
		BatchPending: e.aggregator.PendingCount(),
		FlushLagMs:   time.Since(e.lastFlush).Milliseconds(),
		Degraded:     e.degraded,
	}
}
