package logstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/arqlane/suggestd/pkg/phrase"
)

// Key prefixes for the two logical tables, kept in one Badger keyspace.
const (
	countsKeyPrefix = "phrase_counts:"
	queryKeyPrefix  = "query_logs:"
)

// Badger is a BadgerDB-backed LogStore, suitable for production use with
// persistence across restarts.
type Badger struct {
	db *badger.DB
}

// NewBadger wraps an already-open BadgerDB handle.
func NewBadger(db *badger.DB) *Badger {
	return &Badger{db: db}
}

func (b *Badger) UpsertCounts(_ context.Context, deltas map[string]int64) error {
	now := time.Now()
	return b.db.Update(func(txn *badger.Txn) error {
		for phr, delta := range deltas {
			key := []byte(countsKeyPrefix + phr)
			var rec phrase.Record
			item, err := txn.Get(key)
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
				rec = phrase.Record{Phrase: phr}
			case err != nil:
				return fmt.Errorf("get phrase count %q: %w", phr, err)
			default:
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &rec)
				}); err != nil {
					return fmt.Errorf("unmarshal phrase count %q: %w", phr, err)
				}
			}

			newCount := int64(rec.Count) + delta
			if newCount < 0 {
				newCount = 0
			}
			rec.Count = uint64(newCount)
			rec.LastUpdated = now

			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("marshal phrase count %q: %w", phr, err)
			}
			if err := txn.Set(key, data); err != nil {
				return fmt.Errorf("set phrase count %q: %w", phr, err)
			}
		}
		return nil
	})
}

func (b *Badger) AppendQueryLogs(_ context.Context, entries []QueryLogEntry) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for _, e := range entries {
			key := []byte(fmt.Sprintf("%s%020d:%s", queryKeyPrefix, e.Timestamp.UnixNano(), e.Query))
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("marshal query log: %w", err)
			}
			if err := txn.Set(key, data); err != nil {
				return fmt.Errorf("set query log: %w", err)
			}
		}
		return nil
	})
}

func (b *Badger) SetFiltered(_ context.Context, phr string, filtered bool) error {
	key := []byte(countsKeyPrefix + phr)
	return b.db.Update(func(txn *badger.Txn) error {
		var rec phrase.Record
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			rec = phrase.Record{Phrase: phr}
		case err != nil:
			return fmt.Errorf("get phrase count %q: %w", phr, err)
		default:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("unmarshal phrase count %q: %w", phr, err)
			}
		}
		rec.IsFiltered = filtered
		rec.LastUpdated = time.Now()
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal phrase count %q: %w", phr, err)
		}
		return txn.Set(key, data)
	})
}

func (b *Badger) Get(_ context.Context, phr string) (phrase.Record, bool, error) {
	var rec phrase.Record
	found := false
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(countsKeyPrefix + phr))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get phrase count %q: %w", phr, err)
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	return rec, found, err
}

func (b *Badger) AllUnfiltered(_ context.Context, limit int) ([]phrase.Record, error) {
	var out []phrase.Record
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(countsKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec phrase.Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("unmarshal phrase count: %w", err)
			}
			if !rec.IsFiltered {
				out = append(out, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan phrase counts: %w", err)
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
