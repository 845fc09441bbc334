package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"rossmann/internal/domain/forecast"
	"rossmann/pkg/errors"
)

// OutlookKeyPrefix prefixes every cached outlook key
const OutlookKeyPrefix = "rossmann:outlook:"

// OutlookCache implements forecast.OutlookCache using Redis
type OutlookCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewOutlookCache creates a new outlook cache. A zero ttl keeps entries
// until they are evicted.
func NewOutlookCache(client *redis.Client, ttl time.Duration) *OutlookCache {
	return &OutlookCache{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves the cached outlook of a store
func (c *OutlookCache) Get(ctx context.Context, store int) (*forecast.Outlook, error) {
	data, err := c.client.Get(ctx, OutlookKey(store)).Bytes()
	if err == redis.Nil {
		return nil, errors.Wrapf(errors.ErrCacheMiss, "store=%d", store)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get outlook from redis: store=%d", store)
	}

	var outlook forecast.Outlook
	if err := json.Unmarshal(data, &outlook); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal outlook: store=%d", store)
	}

	return &outlook, nil
}

// Set stores an outlook with the configured TTL
func (c *OutlookCache) Set(ctx context.Context, outlook *forecast.Outlook) error {
	data, err := json.Marshal(outlook)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal outlook: store=%d", outlook.Store)
	}

	if err := c.client.Set(ctx, OutlookKey(outlook.Store), data, c.ttl).Err(); err != nil {
		return errors.Wrapf(err, "failed to save outlook to redis: store=%d", outlook.Store)
	}

	return nil
}

// Invalidate drops the cached outlook of a store
func (c *OutlookCache) Invalidate(ctx context.Context, store int) error {
	if err := c.client.Del(ctx, OutlookKey(store)).Err(); err != nil {
		return errors.Wrapf(err, "failed to delete outlook from redis: store=%d", store)
	}
	return nil
}

// OutlookKey returns the Redis key of a store's outlook
func OutlookKey(store int) string {
	return OutlookKeyPrefix + strconv.Itoa(store)
}
