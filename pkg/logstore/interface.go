// Package logstore declares the Log Store capability interface and
// provides two implementations: an in-memory one for tests and small
// deployments, and a BadgerDB-backed one for durable production use.
//
// The Log Store is an external collaborator per the component design:
// the suggestion engine only depends on this interface, never on a
// concrete storage technology.
package logstore

import (
	"context"
	"time"

	"github.com/arqlane/suggestd/pkg/phrase"
)

// QueryLogEntry is one row of the append-only query_logs table.
type QueryLogEntry struct {
	Query     string
	UserID    string
	SessionID string
	Timestamp time.Time
}

// LogStore is the durable store of phrase counts and raw query logs.
type LogStore interface {
	// UpsertCounts applies deltas to phrase_counts, setting LastUpdated
	// to now for every touched phrase.
	UpsertCounts(ctx context.Context, deltas map[string]int64) error
	// AppendQueryLogs appends entries to the query_logs table.
	AppendQueryLogs(ctx context.Context, entries []QueryLogEntry) error
	// SetFiltered marks a phrase's is_filtered flag.
	SetFiltered(ctx context.Context, phr string, filtered bool) error
	// Get returns the current record for phr, or ok=false if unknown.
	Get(ctx context.Context, phr string) (rec phrase.Record, ok bool, err error)
	// AllUnfiltered streams every phrase_counts row with is_filtered =
	// false, ordered by count descending, capped at limit — the Log
	// Store's side of the rebuild contract (§4.6).
	AllUnfiltered(ctx context.Context, limit int) ([]phrase.Record, error)
}
