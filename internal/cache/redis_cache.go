package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"gudangku/backend/internal/domain"
)

type RedisStockCache struct {
	client *redis.Client
}

func NewRedisStockCache(addr string, password string, db int) *RedisStockCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisStockCache{client: client}
}

func (c *RedisStockCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisStockCache) Close() error {
	return c.client.Close()
}

func stockKey(branchID int64, itemID int64) string {
	return fmt.Sprintf("stock:%d:%d", branchID, itemID)
}

func (c *RedisStockCache) Get(ctx context.Context, branchID int64, itemID int64) (*domain.StockPosition, bool, error) {
	val, err := c.client.Get(ctx, stockKey(branchID, itemID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var position domain.StockPosition
	if err := json.Unmarshal([]byte(val), &position); err != nil {
		return nil, false, err
	}
	return &position, true, nil
}

func (c *RedisStockCache) Set(ctx context.Context, position domain.StockPosition, ttl time.Duration) error {
	payload, err := json.Marshal(position)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, stockKey(position.BranchID, position.ItemID), payload, ttl).Err()
}

func (c *RedisStockCache) Delete(ctx context.Context, branchID int64, itemID int64) error {
	return c.client.Del(ctx, stockKey(branchID, itemID)).Err()
}
