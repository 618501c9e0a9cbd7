package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// PriceView is the cached resolver output for one pricebook item.
type PriceView struct {
	ItemID       int                 `json:"itemId"`
	DisplayPrice decimal.NullDecimal `json:"displayPrice"`
	ActiveID     *int                `json:"activeId,omitempty"`
	CachedAt     time.Time           `json:"cachedAt"`
}

// PriceCache caches resolved display prices per pricebook item. Entries
// expire at UTC midnight because the resolver's notion of "today" rolls over
// then; any price mutation invalidates the item's entry immediately.
type PriceCache struct {
	redis *RedisClient
}

// NewPriceCache creates a new PriceCache.
func NewPriceCache(redis *RedisClient) *PriceCache {
	return &PriceCache{redis: redis}
}

func (c *PriceCache) key(itemID int) string {
	return fmt.Sprintf("pricebook:view:%d", itemID)
}

// ttlUntilMidnight returns the duration until the next UTC midnight.
func (c *PriceCache) ttlUntilMidnight() time.Duration {
	now := time.Now().UTC()
	next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	return time.Until(next)
}

// Set stores the resolved view for an item.
func (c *PriceCache) Set(ctx context.Context, view *PriceView) error {
	view.CachedAt = time.Now().UTC()
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to marshal price view: %w", err)
	}
	return c.redis.Set(ctx, c.key(view.ItemID), string(data), c.ttlUntilMidnight())
}

// Get returns the cached view, or (nil, nil) on a cache miss.
func (c *PriceCache) Get(ctx context.Context, itemID int) (*PriceView, error) {
	raw, err := c.redis.Get(ctx, c.key(itemID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var view PriceView
	if err := json.Unmarshal([]byte(raw), &view); err != nil {
		return nil, fmt.Errorf("failed to unmarshal price view: %w", err)
	}
	return &view, nil
}

// Invalidate drops the cached view for the given items.
func (c *PriceCache) Invalidate(ctx context.Context, itemIDs ...int) error {
	keys := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		keys[i] = c.key(id)
	}
	return c.redis.Delete(ctx, keys...)
}
