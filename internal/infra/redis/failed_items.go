package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vietddude/curator/internal/core/domain"
)

// itemTTL bounds how long a failed item is kept for retry. Earnings data
// older than a day is refetched from scratch anyway.
const itemTTL = 24 * time.Hour

// FailedItemRepo keeps failed batch items in Redis for targeted retries.
// The scope names one logical pipeline so the queue survives across runs.
type FailedItemRepo struct {
	rdb   *redis.Client
	scope string
}

// NewFailedItemRepo creates a Redis-backed failed item queue.
func NewFailedItemRepo(client *Client, scope string) *FailedItemRepo {
	return &FailedItemRepo{
		rdb:   client.rdb,
		scope: scope,
	}
}

// Key helpers
func (r *FailedItemRepo) queueKey() string {
	return "failed_items:" + r.scope
}

func (r *FailedItemRepo) itemKey(symbol string) string {
	return fmt.Sprintf("failed_item:%s:%s", r.scope, symbol)
}

// Add records a failed item. The queue is ordered by failure time so the
// oldest failure retries first.
func (r *FailedItemRepo) Add(ctx context.Context, item *domain.FailedItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal failed item: %w", err)
	}

	if err := r.rdb.Set(ctx, r.itemKey(item.Symbol), data, itemTTL).Err(); err != nil {
		return fmt.Errorf("failed to set failed item: %w", err)
	}

	if err := r.rdb.ZAdd(ctx, r.queueKey(), redis.Z{
		Score:  float64(item.Timestamp.Unix()),
		Member: item.Symbol,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to queue: %w", err)
	}

	return nil
}

// GetAll retrieves all failed items, oldest first.
func (r *FailedItemRepo) GetAll(ctx context.Context) ([]*domain.FailedItem, error) {
	symbols, err := r.rdb.ZRange(ctx, r.queueKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}

	items := make([]*domain.FailedItem, 0, len(symbols))
	for _, symbol := range symbols {
		data, err := r.rdb.Get(ctx, r.itemKey(symbol)).Bytes()
		if err == redis.Nil {
			// Data expired but symbol still in queue, remove it
			r.rdb.ZRem(ctx, r.queueKey(), symbol)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get failed item: %w", err)
		}

		var item domain.FailedItem
		if err := json.Unmarshal(data, &item); err != nil {
			continue
		}
		items = append(items, &item)
	}

	return items, nil
}

// MarkResolved removes an item after a successful retry.
func (r *FailedItemRepo) MarkResolved(ctx context.Context, symbol string) error {
	if err := r.rdb.ZRem(ctx, r.queueKey(), symbol).Err(); err != nil {
		return fmt.Errorf("failed to remove from queue: %w", err)
	}
	if err := r.rdb.Del(ctx, r.itemKey(symbol)).Err(); err != nil {
		return fmt.Errorf("failed to delete failed item: %w", err)
	}
	return nil
}

// Count returns the number of queued failed items.
func (r *FailedItemRepo) Count(ctx context.Context) (int, error) {
	count, err := r.rdb.ZCard(ctx, r.queueKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return int(count), nil
}
