package memorystore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"stocksearch/internal/stock"

	"go.uber.org/zap"
)

var _ stock.Cache = (*StockStore)(nil)

// StockStore is an in-process stock.Cache. Writers build a new map and swap it in
// under the lock, so readers always see a complete table.
type StockStore struct {
	mu     sync.RWMutex
	data   map[string]stock.Stock
	ttl    time.Duration
	logger *zap.Logger
}

func NewStockStore(ttl time.Duration, logger *zap.Logger) *StockStore {
	if ttl <= 0 {
		ttl = stock.DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockStore{
		data:   make(map[string]stock.Stock),
		ttl:    ttl,
		logger: logger,
	}
}

func (s *StockStore) UpsertAll(ctx context.Context, records []stock.Stock, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cutoff := stock.Cutoff(now, s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]stock.Stock, len(s.data)+len(records))
	for sym, rec := range s.data {
		if rec.CachedAt.Before(cutoff) {
			continue // expired
		}
		next[sym] = rec
	}

	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			s.logger.Warn("skipping stock record", zap.String("symbol", rec.Symbol), zap.Error(err))
			continue
		}
		next[rec.Symbol] = rec
	}

	s.data = next
	return nil
}

func (s *StockStore) GetAll(ctx context.Context) ([]stock.Stock, error) {
	return s.collect(ctx, func(stock.Stock) bool { return true })
}

func (s *StockStore) Search(ctx context.Context, query string) ([]stock.Stock, error) {
	q := strings.ToLower(query)
	return s.collect(ctx, func(rec stock.Stock) bool {
		return strings.Contains(strings.ToLower(rec.Symbol), q) ||
			strings.Contains(strings.ToLower(rec.Name), q)
	})
}

func (s *StockStore) FreshRecordCount(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cutoff := stock.Cutoff(now, s.ttl)

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, rec := range s.data {
		if !rec.CachedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored records, expired or not.
func (s *StockStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *StockStore) collect(ctx context.Context, keep func(stock.Stock) bool) ([]stock.Stock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]stock.Stock, 0, len(s.data))
	for _, rec := range s.data {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}
