package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"stocksearch/config"
	"stocksearch/internal/stock"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultKey = "stocks:cache"

	// optimistic transaction attempts before UpsertAll gives up
	maxWatchAttempts = 5
)

// Compile-time check to ensure StockStore implements stock.Cache
var _ stock.Cache = (*StockStore)(nil)

// StockStore keeps every cached stock as a JSON value in one hash, keyed by symbol.
type StockStore struct {
	client *goredis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

func NewClient(cfg config.RedisConfig) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewStockStore(client *goredis.Client, key string, ttl time.Duration, logger *zap.Logger) *StockStore {
	if key == "" {
		key = DefaultKey
	}
	if ttl <= 0 {
		ttl = stock.DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockStore{
		client: client,
		key:    key,
		ttl:    ttl,
		logger: logger,
	}
}

// UpsertAll drops expired entries and writes records inside one MULTI/EXEC,
// retrying when a concurrent writer touches the hash.
func (s *StockStore) UpsertAll(ctx context.Context, records []stock.Stock, now time.Time) error {
	values := make([]any, 0, len(records)*2)
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			s.logger.Warn("skipping stock record", zap.String("symbol", rec.Symbol), zap.Error(err))
			continue
		}
		payload, err := json.Marshal(rec)
		if err != nil {
			s.logger.Warn("skipping stock record", zap.String("symbol", rec.Symbol), zap.Error(err))
			continue
		}
		values = append(values, rec.Symbol, payload)
	}
	cutoff := stock.Cutoff(now, s.ttl)

	txf := func(tx *goredis.Tx) error {
		current, err := s.load(tx.HGetAll(ctx, s.key))
		if err != nil {
			return err
		}

		var expired []string
		for _, rec := range current {
			if rec.CachedAt.Before(cutoff) {
				expired = append(expired, rec.Symbol)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			if len(expired) > 0 {
				pipe.HDel(ctx, s.key, expired...)
			}
			if len(values) > 0 {
				pipe.HSet(ctx, s.key, values...)
			}
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= maxWatchAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, s.key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, goredis.TxFailedErr) {
			return fmt.Errorf("upsert stocks: %w", err)
		}
		s.logger.Debug("stock cache changed during upsert, retrying", zap.Int("attempt", attempt))
	}
	return fmt.Errorf("upsert stocks: %w", goredis.TxFailedErr)
}

func (s *StockStore) GetAll(ctx context.Context) ([]stock.Stock, error) {
	recs, err := s.load(s.client.HGetAll(ctx, s.key))
	if err != nil {
		return nil, err
	}
	return sorted(recs), nil
}

func (s *StockStore) Search(ctx context.Context, query string) ([]stock.Stock, error) {
	recs, err := s.load(s.client.HGetAll(ctx, s.key))
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	matched := recs[:0]
	for _, rec := range recs {
		if strings.Contains(strings.ToLower(rec.Symbol), q) || strings.Contains(strings.ToLower(rec.Name), q) {
			matched = append(matched, rec)
		}
	}
	return sorted(matched), nil
}

func (s *StockStore) FreshRecordCount(ctx context.Context, now time.Time) (int, error) {
	recs, err := s.load(s.client.HGetAll(ctx, s.key))
	if err != nil {
		return 0, err
	}

	cutoff := stock.Cutoff(now, s.ttl)
	n := 0
	for _, rec := range recs {
		if !rec.CachedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

// load decodes a hash read. Entries that fail to decode are logged and ignored.
func (s *StockStore) load(cmd *goredis.MapStringStringCmd) ([]stock.Stock, error) {
	raw, err := cmd.Result()
	if err != nil {
		return nil, fmt.Errorf("read stock cache %s: %w", s.key, err)
	}

	out := make([]stock.Stock, 0, len(raw))
	for sym, payload := range raw {
		var rec stock.Stock
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			s.logger.Warn("dropping undecodable stock entry", zap.String("symbol", sym), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func sorted(recs []stock.Stock) []stock.Stock {
	sort.Slice(recs, func(i, j int) bool { return recs[i].Symbol < recs[j].Symbol })
	return recs
}
