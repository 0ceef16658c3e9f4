package postgres

import (
	"time"

	"stocksearch/internal/stock"
)

// StockRecord is one cached stock row.
type StockRecord struct {
	Symbol   string    `gorm:"primaryKey;type:text"`
	Name     string    `gorm:"type:text;not null"`
	Price    float64   `gorm:"type:double precision;not null"`
	CachedAt time.Time `gorm:"column:cached_at;not null;index:idx_stocks_cached_at"`
}

// TableName overrides the default table name for GORM.
func (StockRecord) TableName() string {
	return "stocks"
}

func toRecord(s stock.Stock) StockRecord {
	return StockRecord{
		Symbol:   s.Symbol,
		Name:     s.Name,
		Price:    s.Price,
		CachedAt: s.CachedAt,
	}
}

func (r StockRecord) toStock() stock.Stock {
	return stock.Stock{
		Symbol:   r.Symbol,
		Name:     r.Name,
		Price:    r.Price,
		CachedAt: r.CachedAt,
	}
}
