package search

import (
	"context"
	"errors"
	"testing"

	"stocksearch/internal/stock"
)

type fakeRepo struct {
	fresh     bool
	freshErr  error
	getErr    error
	getCalls  int
	searchFor []string
	stocks    []stock.Stock
}

func (f *fakeRepo) GetStocks(ctx context.Context) ([]stock.Stock, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.fresh = true
	return f.stocks, nil
}

func (f *fakeRepo) SearchStocks(ctx context.Context, query string) ([]stock.Stock, error) {
	f.searchFor = append(f.searchFor, query)
	return f.stocks, nil
}

func (f *fakeRepo) HasFreshCache(ctx context.Context) (bool, error) {
	return f.fresh, f.freshErr
}

// go test -v --run TestServiceFreshCacheSkipsNetwork
func TestServiceFreshCacheSkipsNetwork(t *testing.T) {
	repo := &fakeRepo{fresh: true, stocks: []stock.Stock{{Symbol: "AAPL"}}}
	svc := NewService(repo, nil)

	got, err := svc.Search(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || repo.getCalls != 0 {
		t.Errorf("expected cache-only search, got %+v with %d fetches", got, repo.getCalls)
	}
}

// go test -v --run TestServiceStaleCacheRefreshes
func TestServiceStaleCacheRefreshes(t *testing.T) {
	for _, tt := range []struct {
		name     string
		freshErr error
	}{
		{"stale", nil},
		{"unreadable", errors.New("cache offline")},
	} {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{freshErr: tt.freshErr, stocks: []stock.Stock{{Symbol: "MSFT"}}}
			svc := NewService(repo, nil)

			if _, err := svc.Search(context.Background(), "MS"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if repo.getCalls != 1 {
				t.Errorf("expected one refresh, got %d", repo.getCalls)
			}
			if len(repo.searchFor) != 1 || repo.searchFor[0] != "MS" {
				t.Errorf("expected search for MS after refresh, got %q", repo.searchFor)
			}
		})
	}
}

// go test -v --run TestServicePropagatesFetchError
func TestServicePropagatesFetchError(t *testing.T) {
	fetchErr := &stock.FetchError{Kind: stock.KindNoConnectivity, Message: "offline"}
	repo := &fakeRepo{getErr: fetchErr}
	svc := NewService(repo, nil)

	_, err := svc.Search(context.Background(), "AAPL")
	if !errors.Is(err, fetchErr) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if len(repo.searchFor) != 0 {
		t.Errorf("search must not run after a failed refresh")
	}
}
