package engine

import (
	"context"
	"testing"

	"github.com/arqlane/suggestd/pkg/config"
	"github.com/arqlane/suggestd/pkg/logstore"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.DefaultConfig()
	store := logstore.NewMemory()
	return New(cfg, store, nil)
}

func TestSuggestAndLogCompletion(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := eng.LogCompletion(ctx, "apple", "", ""); err != nil {
			t.Fatalf("LogCompletion: %v", err)
		}
	}

	results, _, err := eng.Suggest(ctx, "app", "", 5, false)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(results) != 1 || results[0].Phrase != "apple" {
		t.Fatalf("unexpected results: %v", results)
	}
}

func TestPopularAndTrending(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	_ = eng.LogCompletion(ctx, "apple", "", "")
	_ = eng.LogCompletion(ctx, "banana", "", "")

	popular, err := eng.Popular(10)
	if err != nil || len(popular) != 2 {
		t.Fatalf("Popular: %v, err=%v", popular, err)
	}

	trend := eng.Trending(10)
	if len(trend) != 2 {
		t.Fatalf("expected 2 trending entries, got %v", trend)
	}
}

func TestHistory(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	_ = eng.LogCompletion(ctx, "apple", "u1", "")
	_ = eng.LogCompletion(ctx, "banana", "u1", "")

	got := eng.History("u1", 5)
	if len(got) != 2 || got[0] != "banana" {
		t.Fatalf("expected most-recent-first history, got %v", got)
	}
}

func TestFilterAddRemove(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	_ = eng.LogCompletion(ctx, "apple", "", "")

	if err := eng.FilterAdd("apple", "test"); err != nil {
		t.Fatalf("FilterAdd: %v", err)
	}
	results, _, err := eng.Suggest(ctx, "app", "", 5, false)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected blocked phrase excluded, got %v", results)
	}

	if err := eng.store.UpsertCounts(ctx, map[string]int64{"apple": 3}); err != nil {
		t.Fatalf("UpsertCounts: %v", err)
	}
	if err := eng.FilterRemove("apple"); err != nil {
		t.Fatalf("FilterRemove: %v", err)
	}
	results, _, err = eng.Suggest(ctx, "app", "", 5, false)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(results) != 1 || results[0].Phrase != "apple" {
		t.Fatalf("expected apple restored, got %v", results)
	}
}

func TestDeletePhraseSoftDeletes(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	_ = eng.LogCompletion(ctx, "apple", "", "")
	_ = eng.Flush(ctx)

	if err := eng.DeletePhrase("apple"); err != nil {
		t.Fatalf("DeletePhrase: %v", err)
	}
	results, _, err := eng.Suggest(ctx, "app", "", 5, false)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected soft-deleted phrase excluded, got %v", results)
	}
}

func TestRebuildReturnsIndexSize(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	_ = eng.LogCompletion(ctx, "apple", "", "")
	_ = eng.LogCompletion(ctx, "banana", "", "")
	_ = eng.Flush(ctx)

	size, err := eng.Rebuild(ctx)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if size != 2 {
		t.Fatalf("expected rebuilt size 2, got %d", size)
	}
	if eng.Status().Degraded {
		t.Fatal("expected not degraded after a successful rebuild")
	}
}

func TestStatusReportsPendingBatch(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	_ = eng.LogCompletion(ctx, "apple", "", "")

	st := eng.Status()
	if st.BatchPending != 1 {
		t.Fatalf("expected 1 pending phrase, got %d", st.BatchPending)
	}
	if st.IndexSize != 1 {
		t.Fatalf("expected index size 1, got %d", st.IndexSize)
	}
}

func TestCacheClear(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	_ = eng.LogCompletion(ctx, "apple", "", "")
	_, _, _ = eng.Suggest(ctx, "app", "", 5, false)

	eng.CacheClear()
	if m, ok := eng.cache.(interface{ Len() int }); ok {
		if m.Len() != 0 {
			t.Fatalf("expected cache cleared, got %d entries", m.Len())
		}
	}
}
