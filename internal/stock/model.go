package stock

import (
	"errors"
	"fmt"
	"math"
	"time"

	"stocksearch/pkg/stockapi"
)

// DefaultTTL is how long a cached record counts as fresh.
const DefaultTTL = 5 * time.Minute

// Stock is a single cached quote, keyed by Symbol.
type Stock struct {
	Symbol   string    `json:"symbol"`
	Name     string    `json:"name"`
	Price    float64   `json:"price"`
	CachedAt time.Time `json:"cachedAt"`
}

var ErrEmptySymbol = errors.New("stock: empty symbol")

// Validate rejects records that cannot be stored.
func (s Stock) Validate() error {
	if s.Symbol == "" {
		return ErrEmptySymbol
	}
	if math.IsNaN(s.Price) || math.IsInf(s.Price, 0) {
		return fmt.Errorf("stock %s: non-finite price %v", s.Symbol, s.Price)
	}
	return nil
}

// FromDTO maps a remote stock onto the domain record, stamped with cachedAt.
func FromDTO(dto stockapi.StockDTO, cachedAt time.Time) Stock {
	return Stock{
		Symbol:   dto.Ticker,
		Name:     dto.Name,
		Price:    dto.CurrentPrice,
		CachedAt: cachedAt,
	}
}

// Cutoff is the oldest CachedAt still considered fresh at now.
func Cutoff(now time.Time, ttl time.Duration) time.Time {
	return now.Add(-ttl)
}
