package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stocksearch/internal/stock"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const DefaultBatchSize = 100

var _ stock.Cache = (*StockStore)(nil)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// StockStore is a stock.Cache backed by the "stocks" table.
type StockStore struct {
	client    *PostgresClient
	ttl       time.Duration
	batchSize int
	logger    *zap.Logger
}

func NewStockStore(client *PostgresClient, ttl time.Duration, batchSize int, logger *zap.Logger) *StockStore {
	if ttl <= 0 {
		ttl = stock.DefaultTTL
	}
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockStore{
		client:    client,
		ttl:       ttl,
		batchSize: batchSize,
		logger:    logger,
	}
}

// UpsertAll purges expired rows and upserts records in a single transaction.
// Rows the database rejects are logged and skipped.
func (s *StockStore) UpsertAll(ctx context.Context, records []stock.Stock, now time.Time) error {
	cutoff := stock.Cutoff(now, s.ttl)

	rows := make([]StockRecord, 0, len(records))
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			s.logger.Warn("skipping stock record", zap.String("symbol", rec.Symbol), zap.Error(err))
			continue
		}
		rows = append(rows, toRecord(rec))
	}

	err := s.client.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cached_at < ?", cutoff).Delete(&StockRecord{}).Error; err != nil {
			return fmt.Errorf("delete expired stocks: %w", err)
		}

		for start := 0; start < len(rows); start += s.batchSize {
			end := min(start+s.batchSize, len(rows))
			if err := s.insertChunk(tx, rows[start:end], start); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert stocks: %w", err)
	}
	return nil
}

func (s *StockStore) insertChunk(tx *gorm.DB, chunk []StockRecord, offset int) error {
	sp := fmt.Sprintf("stocks_chunk_%d", offset)
	if err := tx.SavePoint(sp).Error; err != nil {
		return fmt.Errorf("savepoint %s: %w", sp, err)
	}

	err := upsert(tx, chunk)
	if err == nil {
		return nil
	}
	s.logger.Warn("stock chunk rejected, retrying row by row",
		zap.Int("offset", offset),
		zap.Int("size", len(chunk)),
		zap.Error(err),
	)
	if err := tx.RollbackTo(sp).Error; err != nil {
		return fmt.Errorf("rollback to %s: %w", sp, err)
	}

	for i, row := range chunk {
		rowSP := fmt.Sprintf("stocks_row_%d", offset+i)
		if err := tx.SavePoint(rowSP).Error; err != nil {
			return fmt.Errorf("savepoint %s: %w", rowSP, err)
		}
		if err := upsert(tx, []StockRecord{row}); err != nil {
			s.logger.Warn("skipping stock record", zap.String("symbol", row.Symbol), zap.Error(err))
			if err := tx.RollbackTo(rowSP).Error; err != nil {
				return fmt.Errorf("rollback to %s: %w", rowSP, err)
			}
		}
	}
	return nil
}

func upsert(tx *gorm.DB, rows []StockRecord) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		UpdateAll: true,
	}).Create(&rows).Error
}

func (s *StockStore) GetAll(ctx context.Context) ([]stock.Stock, error) {
	var rows []StockRecord
	if err := s.client.DB.WithContext(ctx).Order("symbol").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("get stocks: %w", err)
	}
	return toStocks(rows), nil
}

func (s *StockStore) Search(ctx context.Context, query string) ([]stock.Stock, error) {
	pattern := "%" + likeEscaper.Replace(query) + "%"

	var rows []StockRecord
	err := s.client.DB.WithContext(ctx).
		Where("symbol ILIKE ? OR name ILIKE ?", pattern, pattern).
		Order("symbol").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("search stocks: %w", err)
	}
	return toStocks(rows), nil
}

func (s *StockStore) FreshRecordCount(ctx context.Context, now time.Time) (int, error) {
	var n int64
	err := s.client.DB.WithContext(ctx).
		Model(&StockRecord{}).
		Where("cached_at >= ?", stock.Cutoff(now, s.ttl)).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count fresh stocks: %w", err)
	}
	return int(n), nil
}

func toStocks(rows []StockRecord) []stock.Stock {
	out := make([]stock.Stock, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toStock())
	}
	return out
}
