package stock

import (
	"context"
	"time"
)

// Cache is the local, TTL-bounded stock table.
//
// UpsertAll first drops records whose CachedAt is older than now minus the TTL and
// then inserts or overwrites each record by symbol, as one unit: concurrent readers
// see either the old or the new table. Records that fail individually are skipped.
// Reads apply no expiry filter; expiry happens only on the next write.
type Cache interface {
	UpsertAll(ctx context.Context, records []Stock, now time.Time) error
	GetAll(ctx context.Context) ([]Stock, error)
	// Search matches query case-insensitively against symbol or name.
	Search(ctx context.Context, query string) ([]Stock, error)
	// FreshRecordCount counts records with CachedAt >= now - TTL.
	FreshRecordCount(ctx context.Context, now time.Time) (int, error)
}
