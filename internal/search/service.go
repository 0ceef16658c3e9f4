package search

import (
	"context"

	"stocksearch/internal/stock"

	"go.uber.org/zap"
)

// Repository is the part of stock.Repository the search use case needs.
type Repository interface {
	GetStocks(ctx context.Context) ([]stock.Stock, error)
	SearchStocks(ctx context.Context, query string) ([]stock.Stock, error)
	HasFreshCache(ctx context.Context) (bool, error)
}

// Searcher runs one search to completion.
type Searcher interface {
	Search(ctx context.Context, query string) ([]stock.Stock, error)
}

// Service answers queries from the cache while it is fresh and refreshes it
// from the network otherwise.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

var _ Searcher = (*Service)(nil)

func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Search(ctx context.Context, query string) ([]stock.Stock, error) {
	fresh, err := s.repo.HasFreshCache(ctx)
	if err != nil {
		// treat an unreadable cache as stale
		s.logger.Warn("cache freshness check failed", zap.Error(err))
		fresh = false
	}

	if !fresh {
		if _, err := s.repo.GetStocks(ctx); err != nil {
			return nil, err
		}
	}
	return s.repo.SearchStocks(ctx, query)
}
