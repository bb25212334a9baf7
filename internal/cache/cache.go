package cache

import (
	"context"
	"time"

	"gudangku/backend/internal/domain"
)

type StockCache interface {
	Get(ctx context.Context, branchID int64, itemID int64) (*domain.StockPosition, bool, error)
	Set(ctx context.Context, position domain.StockPosition, ttl time.Duration) error
	Delete(ctx context.Context, branchID int64, itemID int64) error
}

type NoopStockCache struct{}

func (NoopStockCache) Get(_ context.Context, _ int64, _ int64) (*domain.StockPosition, bool, error) {
	return nil, false, nil
}

func (NoopStockCache) Set(_ context.Context, _ domain.StockPosition, _ time.Duration) error {
	return nil
}

func (NoopStockCache) Delete(_ context.Context, _ int64, _ int64) error {
	return nil
}
