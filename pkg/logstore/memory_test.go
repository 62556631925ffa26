package logstore

import (
	"context"
	"testing"
)

func TestMemoryUpsertCounts(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.UpsertCounts(ctx, map[string]int64{"apple": 5}); err != nil {
		t.Fatalf("UpsertCounts: %v", err)
	}
	if err := m.UpsertCounts(ctx, map[string]int64{"apple": 3}); err != nil {
		t.Fatalf("UpsertCounts: %v", err)
	}
	rec, ok, err := m.Get(ctx, "apple")
	if err != nil || !ok {
		t.Fatalf("Get: rec=%v ok=%v err=%v", rec, ok, err)
	}
	if rec.Count != 8 {
		t.Errorf("Count = %d, want 8", rec.Count)
	}
}

func TestMemorySetFiltered(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.UpsertCounts(ctx, map[string]int64{"apple": 10, "banana": 3})

	if err := m.SetFiltered(ctx, "apple", true); err != nil {
		t.Fatalf("SetFiltered: %v", err)
	}

	recs, err := m.AllUnfiltered(ctx, 0)
	if err != nil {
		t.Fatalf("AllUnfiltered: %v", err)
	}
	if len(recs) != 1 || recs[0].Phrase != "banana" {
		t.Fatalf("expected only banana unfiltered, got %v", recs)
	}
}

func TestMemoryAllUnfilteredOrderingAndLimit(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.UpsertCounts(ctx, map[string]int64{"apple": 10, "apricot": 7, "application": 5})

	recs, err := m.AllUnfiltered(ctx, 2)
	if err != nil {
		t.Fatalf("AllUnfiltered: %v", err)
	}
	if len(recs) != 2 || recs[0].Phrase != "apple" || recs[1].Phrase != "apricot" {
		t.Fatalf("unexpected order/limit: %v", recs)
	}
}

func TestMemoryAppendQueryLogs(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	entries := []QueryLogEntry{{Query: "apple", UserID: "u1"}}
	if err := m.AppendQueryLogs(ctx, entries); err != nil {
		t.Fatalf("AppendQueryLogs: %v", err)
	}
	if got := m.QueryLogs(); len(got) != 1 || got[0].Query != "apple" {
		t.Fatalf("QueryLogs = %v", got)
	}
}

func TestMemoryGetUnknown(t *testing.T) {
	m := NewMemory()
	_, ok, err := m.Get(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected ok=false for unknown phrase")
	}
}
