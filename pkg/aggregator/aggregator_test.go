package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/arqlane/suggestd/pkg/config"
	"github.com/arqlane/suggestd/pkg/filtergate"
	"github.com/arqlane/suggestd/pkg/history"
	"github.com/arqlane/suggestd/pkg/index"
	"github.com/arqlane/suggestd/pkg/logstore"
	"github.com/arqlane/suggestd/pkg/phrase"
	"github.com/arqlane/suggestd/pkg/trending"
)

func testCfg(t *testing.T) config.AggregatorConfig {
	t.Helper()
	return config.AggregatorConfig{
		FlushIntervalSeconds: 60,
		FlushMaxPhrases:      3,
		FreshnessSeconds:     60,
		BackoffBaseMs:        1,
		BackoffMaxMs:         4,
		BackoffMaxAttempts:   3,
		OverflowLogPath:      filepath.Join(t.TempDir(), "overflow.log"),
	}
}

func newTestAggregator(t *testing.T) (*Aggregator, *index.Index, *logstore.Memory) {
	t.Helper()
	idx := index.New(10)
	trend := trending.New(60*time.Minute, 30*time.Minute, 1000, 0.01)
	hist := history.New(50, 30*24*time.Hour)
	gate := filtergate.New()
	store := logstore.NewMemory()
	agg := New(idx, trend, hist, gate, store, testCfg(t), nil)
	return agg, idx, store
}

func TestIngestUpdatesIndexSynchronously(t *testing.T) {
	agg, idx, _ := newTestAggregator(t)
	if err := agg.Ingest(context.Background(), "apple", "u1", "s1"); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	got, err := idx.Lookup("app", 5)
	if err != nil || len(got) != 1 || got[0].Phrase != "apple" {
		t.Fatalf("expected apple indexed immediately, got %v, err=%v", got, err)
	}
}

func TestIngestRejectsBlockedPhrase(t *testing.T) {
	agg, idx, _ := newTestAggregator(t)
	agg.gate.Block("apple")

	if err := agg.Ingest(context.Background(), "apple", "", ""); err == nil {
		t.Fatal("expected blocked phrase to be rejected")
	}
	if got, _ := idx.Lookup("app", 5); len(got) != 0 {
		t.Fatalf("blocked phrase should not be indexed, got %v", got)
	}
}

func TestFlushPersistsToStore(t *testing.T) {
	agg, _, store := newTestAggregator(t)
	_ = agg.Ingest(context.Background(), "apple", "u1", "s1")
	_ = agg.Ingest(context.Background(), "apple", "u2", "s2")

	if err := agg.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	rec, ok, err := store.Get(context.Background(), "apple")
	if err != nil || !ok || rec.Count != 2 {
		t.Fatalf("expected persisted count 2, got %+v, ok=%v, err=%v", rec, ok, err)
	}
	if len(store.QueryLogs()) != 2 {
		t.Fatalf("expected 2 query log entries, got %d", len(store.QueryLogs()))
	}
}

func TestFlushTriggeredByMaxPhrases(t *testing.T) {
	agg, _, store := newTestAggregator(t)
	// FlushMaxPhrases is 3; the third distinct phrase should trigger an
	// async flush.
	_ = agg.Ingest(context.Background(), "one", "", "")
	_ = agg.Ingest(context.Background(), "two", "", "")
	_ = agg.Ingest(context.Background(), "three", "", "")

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if rec, ok, _ := store.Get(context.Background(), "one"); ok && rec.Count == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected buffered batch to be flushed once FlushMaxPhrases was reached")
}

// gatedStore is a minimal LogStore whose AllUnfiltered blocks on a gate
// channel, so a test can land a concurrent Ingest in the middle of a
// Rebuild's offline trie construction.
type gatedStore struct {
	mu      sync.Mutex
	counts  map[string]phrase.Record
	entered chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		counts:  make(map[string]phrase.Record),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedStore) UpsertCounts(_ context.Context, deltas map[string]int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for phr, delta := range deltas {
		rec := g.counts[phr]
		rec.Phrase = phr
		rec.Count = uint64(int64(rec.Count) + delta)
		g.counts[phr] = rec
	}
	return nil
}
func (g *gatedStore) AppendQueryLogs(context.Context, []logstore.QueryLogEntry) error { return nil }
func (g *gatedStore) SetFiltered(context.Context, string, bool) error                 { return nil }
func (g *gatedStore) Get(_ context.Context, phr string) (phrase.Record, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.counts[phr]
	return rec, ok, nil
}
func (g *gatedStore) AllUnfiltered(_ context.Context, _ int) ([]phrase.Record, error) {
	close(g.entered)
	<-g.release
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]phrase.Record, 0, len(g.counts))
	for _, rec := range g.counts {
		out = append(out, rec)
	}
	return out, nil
}

func TestRebuildReplaysPendingDeltas(t *testing.T) {
	idx := index.New(10)
	trend := trending.New(60*time.Minute, 30*time.Minute, 1000, 0.01)
	hist := history.New(50, 30*24*time.Hour)
	gate := filtergate.New()
	store := newGatedStore()
	_ = store.UpsertCounts(context.Background(), map[string]int64{"apple": 5})

	agg := New(idx, trend, hist, gate, store, testCfg(t), nil)

	var wg sync.WaitGroup
	wg.Add(1)
	var rebuildErr error
	go func() {
		defer wg.Done()
		rebuildErr = agg.Rebuild(context.Background(), 1000)
	}()

	<-store.entered
	// While Rebuild's offline trie is being built from the (blocked)
	// AllUnfiltered call, a concurrent Ingest lands on the old trie and
	// must be tracked as a pending delta to survive the swap.
	if err := agg.Ingest(context.Background(), "apple", "", ""); err != nil {
		t.Fatalf("Ingest during rebuild: %v", err)
	}
	close(store.release)
	wg.Wait()

	if rebuildErr != nil {
		t.Fatalf("Rebuild: %v", rebuildErr)
	}
	got, err := idx.Lookup("app", 5)
	if err != nil || len(got) != 1 {
		t.Fatalf("Lookup after rebuild: %v, err=%v", got, err)
	}
	if got[0].Count != 6 {
		t.Fatalf("expected rebuilt count 5 + pending delta 1 = 6, got %d", got[0].Count)
	}
}

type failingStore struct {
	err error
}

func (f *failingStore) UpsertCounts(context.Context, map[string]int64) error { return f.err }
func (f *failingStore) AppendQueryLogs(context.Context, []logstore.QueryLogEntry) error {
	return f.err
}
func (f *failingStore) SetFiltered(context.Context, string, bool) error { return f.err }
func (f *failingStore) Get(context.Context, string) (phrase.Record, bool, error) {
	return phrase.Record{}, false, f.err
}
func (f *failingStore) AllUnfiltered(context.Context, int) ([]phrase.Record, error) {
	return nil, f.err
}

func TestWithBackoffGivesUpAfterMaxAttempts(t *testing.T) {
	agg, _, _ := newTestAggregator(t)
	agg.store = &failingStore{err: errors.New("connection refused")}

	_ = agg.Ingest(context.Background(), "apple", "", "")
	err := agg.Flush(context.Background())
	if err == nil {
		t.Fatal("expected Flush to fail after exhausting backoff")
	}

	data, readErr := os.ReadFile(agg.cfg.OverflowLogPath)
	if readErr != nil || len(data) == 0 {
		t.Fatalf("expected overflow log to be written, err=%v, data=%q", readErr, data)
	}
}

func TestReplayOverflow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overflow.log")
	rec1 := overflowRecord{Deltas: map[string]int64{"apple": 2}, Timestamp: time.Now()}
	rec2 := overflowRecord{Deltas: map[string]int64{"banana": 3}, Timestamp: time.Now()}

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range []overflowRecord{rec1, rec2} {
		line, _ := json.Marshal(r)
		f.Write(append(line, '\n'))
	}
	f.Close()

	store := logstore.NewMemory()
	n, err := ReplayOverflow(context.Background(), path, store)
	if err != nil {
		t.Fatalf("ReplayOverflow: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 records replayed, got %d", n)
	}
	if rec, ok, _ := store.Get(context.Background(), "apple"); !ok || rec.Count != 2 {
		t.Fatalf("expected apple count 2, got %+v", rec)
	}
}

func TestReplayOverflowMissingFile(t *testing.T) {
	store := logstore.NewMemory()
	n, err := ReplayOverflow(context.Background(), filepath.Join(t.TempDir(), "missing.log"), store)
	if err != nil || n != 0 {
		t.Fatalf("expected no-op on missing file, got n=%d err=%v", n, err)
	}
}
