package logstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/arqlane/suggestd/pkg/phrase"
)

// Memory is an in-memory LogStore, useful for tests and single-process
// deployments that don't need durability across restarts.
type Memory struct {
	mu      sync.RWMutex
	counts  map[string]phrase.Record
	queries []QueryLogEntry
}

// NewMemory returns an empty in-memory LogStore.
func NewMemory() *Memory {
	return &Memory{counts: make(map[string]phrase.Record)}
}

func (m *Memory) UpsertCounts(_ context.Context, deltas map[string]int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for phr, delta := range deltas {
		rec := m.counts[phr]
		rec.Phrase = phr
		newCount := int64(rec.Count) + delta
		if newCount < 0 {
			newCount = 0
		}
		rec.Count = uint64(newCount)
		rec.LastUpdated = now
		m.counts[phr] = rec
	}
	return nil
}

func (m *Memory) AppendQueryLogs(_ context.Context, entries []QueryLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, entries...)
	return nil
}

func (m *Memory) SetFiltered(_ context.Context, phr string, filtered bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.counts[phr]
	if !ok {
		rec = phrase.Record{Phrase: phr}
	}
	rec.IsFiltered = filtered
	rec.LastUpdated = time.Now()
	m.counts[phr] = rec
	return nil
}

func (m *Memory) Get(_ context.Context, phr string) (phrase.Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.counts[phr]
	return rec, ok, nil
}

func (m *Memory) AllUnfiltered(_ context.Context, limit int) ([]phrase.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]phrase.Record, 0, len(m.counts))
	for _, rec := range m.counts {
		if !rec.IsFiltered {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Phrase < out[j].Phrase
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// QueryLogs returns a copy of every appended query log entry, for tests.
func (m *Memory) QueryLogs() []QueryLogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]QueryLogEntry, len(m.queries))
	copy(out, m.queries)
	return out
}
