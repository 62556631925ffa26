/*
Package aggregator implements the Aggregator (C6): the write path that
turns raw queries into durable phrase counts.

Ingest applies a query to the live Index, Trending Tracker, and History
Tracker synchronously, so a just-typed phrase is reflected in
suggestions immediately (within FreshnessSeconds), while the durable
write to the Log Store is buffered and flushed periodically or once the
buffer grows past FlushMaxPhrases. Durable writes go through an
exponential backoff wrapped in a circuit breaker; when both are
exhausted, Flush appends the batch to an overflow log for later replay
and returns a ServiceDegraded error, and ingest carries on unblocked.
The Aggregator keeps no degraded state of its own: a failed flush does
not show in the engine's status report, and later ingests are still
indexed.

Rebuild reads every unfiltered phrase from the Log Store and replaces
the Index wholesale (see pkg/index's Rebuild doc). Because Index.Rebuild
constructs the new trie offline before swapping, any Insert that lands
on the old trie during that window is invisible once the swap
completes — Rebuild tracks such inserts as pending deltas and replays
them against the new trie immediately after the swap, satisfying the
no-lost-update invariant.
*/
package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/arqlane/suggestd/internal/normalize"
	"github.com/arqlane/suggestd/pkg/config"
	"github.com/arqlane/suggestd/pkg/filtergate"
	"github.com/arqlane/suggestd/pkg/history"
	"github.com/arqlane/suggestd/pkg/index"
	"github.com/arqlane/suggestd/pkg/logstore"
	"github.com/arqlane/suggestd/pkg/phrase"
	"github.com/arqlane/suggestd/pkg/suggesterr"
	"github.com/arqlane/suggestd/pkg/trending"
)

// Logger is the subset of charmbracelet/log's Logger the Aggregator
// depends on, kept minimal so tests don't need a real sink.
type Logger interface {
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

type pendingDelta struct {
	phrase string
	delta  int64
}

// Aggregator is the Aggregator (C6).
type Aggregator struct {
	idx      *index.Index
	trending *trending.Tracker
	history  *history.Tracker
	gate     *filtergate.Gate
	store    logstore.LogStore
	cfg      config.AggregatorConfig
	log      Logger

	mu       sync.Mutex
	buffer   map[string]int64
	queryLog []logstore.QueryLogEntry

	rebuilding bool
	pending    []pendingDelta

	cb *gobreaker.CircuitBreaker[any]

	stopCh chan struct{}
	doneCh chan struct{}
}

// New wires the Aggregator's dependencies together. logger may be nil to
// disable logging (tests commonly do this).
func New(idx *index.Index, trend *trending.Tracker, hist *history.Tracker, gate *filtergate.Gate, store logstore.LogStore, cfg config.AggregatorConfig, logger Logger) *Aggregator {
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "logstore",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Duration(cfg.BackoffMaxMs) * time.Millisecond,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &Aggregator{
		idx:      idx,
		trending: trend,
		history:  hist,
		gate:     gate,
		store:    store,
		cfg:      cfg,
		log:      logger,
		buffer:   make(map[string]int64),
		cb:       cb,
	}
}

// Ingest records one query: normalize, reject if blocked, update the
// live Index/Trending/History synchronously, and buffer the count for
// the next durable flush.
func (a *Aggregator) Ingest(ctx context.Context, rawQuery, userID, sessionID string) error {
	phr, ok := normalize.Phrase(rawQuery)
	if !ok || !normalize.Valid(phr) {
		return suggesterr.New("aggregator.Ingest", suggesterr.InvalidPhrase, "empty or over-long query")
	}
	if a.gate != nil && (a.gate.IsBlocked(phr) || a.gate.ContainsBlockedSubstring(phr)) {
		return suggesterr.New("aggregator.Ingest", suggesterr.InvariantViolation, "phrase is blocked")
	}

	if err := a.idx.Insert(phr, 1); err != nil {
		return suggesterr.Wrap("aggregator.Ingest", suggesterr.ServiceDegraded, err)
	}
	if a.trending != nil {
		a.trending.Bump(phr)
	}
	if userID != "" && a.history != nil {
		a.history.Record(userID, phr)
	}

	a.mu.Lock()
	a.buffer[phr]++
	a.queryLog = append(a.queryLog, logstore.QueryLogEntry{
		Query: phr, UserID: userID, SessionID: sessionID, Timestamp: time.Now(),
	})
	if a.rebuilding {
		a.pending = append(a.pending, pendingDelta{phrase: phr, delta: 1})
	}
	shouldFlush := len(a.buffer) >= a.cfg.FlushMaxPhrases
	a.mu.Unlock()

	if shouldFlush {
		go a.Flush(context.Background())
	}
	return nil
}

// Run starts the periodic flush loop; it blocks until ctx is canceled or
// Stop is called.
func (a *Aggregator) Run(ctx context.Context) {
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	defer close(a.doneCh)

	interval := time.Duration(a.cfg.FlushIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = a.Flush(context.Background())
			return
		case <-a.stopCh:
			_ = a.Flush(context.Background())
			return
		case <-ticker.C:
			_ = a.Flush(ctx)
		}
	}
}

// Stop halts the flush loop after a final flush, blocking until it's
// done.
func (a *Aggregator) Stop() {
	if a.stopCh == nil {
		return
	}
	close(a.stopCh)
	<-a.doneCh
}

// Flush snapshots and clears the pending buffer, then durably persists
// it to the Log Store under backoff and circuit-breaker protection. A
// failure degrades gracefully: the batch is appended to the overflow
// log rather than lost, and Index/Trending/History — already updated at
// Ingest time — are unaffected.
func (a *Aggregator) Flush(ctx context.Context) error {
	a.mu.Lock()
	if len(a.buffer) == 0 && len(a.queryLog) == 0 {
		a.mu.Unlock()
		return nil
	}
	deltas := a.buffer
	entries := a.queryLog
	a.buffer = make(map[string]int64)
	a.queryLog = nil
	a.mu.Unlock()

	err := a.withBackoff(ctx, func() error {
		if len(deltas) > 0 {
			if err := a.store.UpsertCounts(ctx, deltas); err != nil {
				return err
			}
		}
		if len(entries) > 0 {
			if err := a.store.AppendQueryLogs(ctx, entries); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		a.logf("flush failed after retries, writing overflow log: %v", err)
		a.writeOverflow(deltas, entries)
		return suggesterr.Wrap("aggregator.Flush", suggesterr.ServiceDegraded, err)
	}
	return nil
}

// withBackoff retries fn with exponential backoff through the circuit
// breaker, giving up after BackoffMaxAttempts.
func (a *Aggregator) withBackoff(ctx context.Context, fn func() error) error {
	delay := time.Duration(a.cfg.BackoffBaseMs) * time.Millisecond
	maxDelay := time.Duration(a.cfg.BackoffMaxMs) * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < a.cfg.BackoffMaxAttempts; attempt++ {
		_, err := a.cb.Execute(func() (any, error) {
			return nil, fn()
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			a.logf("log store circuit open, attempt %d/%d", attempt+1, a.cfg.BackoffMaxAttempts)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(math.Min(float64(delay)*2, float64(maxDelay)))
	}
	return fmt.Errorf("exhausted %d attempts: %w", a.cfg.BackoffMaxAttempts, lastErr)
}

// overflowRecord is one line of the overflow log: a batch that couldn't
// be persisted after exhausting backoff.
type overflowRecord struct {
	Deltas    map[string]int64         `json:"deltas"`
	Queries   []logstore.QueryLogEntry `json:"queries"`
	Timestamp time.Time                `json:"timestamp"`
}

func (a *Aggregator) writeOverflow(deltas map[string]int64, entries []logstore.QueryLogEntry) {
	if a.cfg.OverflowLogPath == "" {
		return
	}
	f, err := os.OpenFile(a.cfg.OverflowLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		a.logf("could not open overflow log %s: %v", a.cfg.OverflowLogPath, err)
		return
	}
	defer f.Close()

	rec := overflowRecord{Deltas: deltas, Queries: entries, Timestamp: time.Now()}
	line, err := json.Marshal(rec)
	if err != nil {
		a.logf("could not marshal overflow record: %v", err)
		return
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		a.logf("could not write overflow log: %v", err)
	}
}

// ReplayOverflow reads every record from the overflow log and re-applies
// it to the Log Store, for use at startup or by an admin command. It
// does not delete the log; callers should rotate it once replay
// succeeds.
func ReplayOverflow(ctx context.Context, path string, store logstore.LogStore) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	count := 0
	for {
		var rec overflowRecord
		if err := dec.Decode(&rec); err != nil {
			break
		}
		if len(rec.Deltas) > 0 {
			if err := store.UpsertCounts(ctx, rec.Deltas); err != nil {
				return count, err
			}
		}
		if len(rec.Queries) > 0 {
			if err := store.AppendQueryLogs(ctx, rec.Queries); err != nil {
				return count, err
			}
		}
		count++
	}
	return count, nil
}

// Rebuild reconstructs the Index from the Log Store's unfiltered phrase
// counts, tracking and replaying any Insert that raced the rebuild
// window.
func (a *Aggregator) Rebuild(ctx context.Context, maxCount int) error {
	if err := a.Flush(ctx); err != nil {
		a.logf("pre-rebuild flush failed, proceeding with stale counts: %v", err)
	}

	a.mu.Lock()
	a.rebuilding = true
	a.pending = nil
	a.mu.Unlock()

	records, err := a.store.AllUnfiltered(ctx, maxCount)
	if err != nil {
		a.mu.Lock()
		a.rebuilding = false
		a.mu.Unlock()
		return suggesterr.Wrap("aggregator.Rebuild", suggesterr.ServiceDegraded, err)
	}

	entries := make([]phrase.Count, 0, len(records))
	for _, r := range records {
		entries = append(entries, phrase.Count{Phrase: r.Phrase, Count: r.Count})
	}
	a.idx.Rebuild(entries)

	a.mu.Lock()
	pending := a.pending
	a.pending = nil
	a.rebuilding = false
	a.mu.Unlock()

	for _, p := range pending {
		_ = a.idx.Insert(p.phrase, p.delta)
	}
	return nil
}

// PendingCount reports the number of distinct phrases buffered since
// the last flush, for the admin status endpoint.
func (a *Aggregator) PendingCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buffer)
}

func (a *Aggregator) logf(format string, args ...any) {
	if a.log != nil {
		a.log.Warnf(format, args...)
	}
}
