package stock

import (
	"context"
	"strings"
	"time"

	"stocksearch/pkg/stockapi"

	"go.uber.org/zap"
)

// Remote is the network source of truth for the stock list.
type Remote interface {
	FetchStocks(ctx context.Context) ([]stockapi.StockDTO, error)
}

// Repository composes the remote endpoint with the local cache: the network is
// always tried first, successes are written through, and the cache is served
// when the network fails.
type Repository struct {
	remote    Remote
	cache     Cache
	logger    *zap.Logger
	formatter MessageFormatter
	now       func() time.Time
}

type RepositoryOption func(*Repository)

func WithMessageFormatter(f MessageFormatter) RepositoryOption {
	return func(r *Repository) { r.formatter = f }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) RepositoryOption {
	return func(r *Repository) { r.now = now }
}

func NewRepository(remote Remote, cache Cache, logger *zap.Logger, opts ...RepositoryOption) *Repository {
	r := &Repository{
		remote:    remote,
		cache:     cache,
		logger:    logger,
		formatter: DefaultMessage,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// GetStocks fetches the full list from the network and caches it. On network
// failure it serves whatever the cache holds; only when that is empty too does it
// return a *FetchError.
func (r *Repository) GetStocks(ctx context.Context) ([]Stock, error) {
	dtos, fetchErr := r.remote.FetchStocks(ctx)
	if fetchErr == nil {
		now := r.now()
		stocks := make([]Stock, 0, len(dtos))
		for _, dto := range dtos {
			stocks = append(stocks, FromDTO(dto, now))
		}

		// best-effort write-through
		if err := r.cache.UpsertAll(ctx, stocks, now); err != nil {
			r.logger.Warn("failed to write stocks to cache", zap.Int("count", len(stocks)), zap.Error(err))
		}
		return stocks, nil
	}

	kind := Classify(fetchErr)
	r.logger.Warn("stock fetch failed, falling back to cache",
		zap.Stringer("kind", kind),
		zap.Error(fetchErr),
	)

	cached, err := r.cache.GetAll(ctx)
	if err != nil {
		r.logger.Error("failed to read cache after fetch failure", zap.Error(err))
	}
	if len(cached) > 0 {
		return cached, nil
	}

	return nil, &FetchError{
		Kind:    kind,
		Message: r.formatter(kind),
		Err:     fetchErr,
	}
}

// SearchStocks looks only at the cache. A blank query returns every cached record.
func (r *Repository) SearchStocks(ctx context.Context, query string) ([]Stock, error) {
	if strings.TrimSpace(query) == "" {
		return r.cache.GetAll(ctx)
	}
	return r.cache.Search(ctx, query)
}

// HasFreshCache reports whether at least one cached record is younger than the TTL.
func (r *Repository) HasFreshCache(ctx context.Context) (bool, error) {
	n, err := r.cache.FreshRecordCount(ctx, r.now())
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
