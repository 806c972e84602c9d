// Package store provides Redis-backed implementations of the dispatch
// stores for multi-instance deployments.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/fleetops/dispatchd/core/assign"
	"github.com/fleetops/dispatchd/core/batch"
)

// Config holds the Redis connection settings.
type Config struct {
	Enabled   bool   `json:"enabled"`
	URL       string `json:"url"`
	KeyPrefix string `json:"key_prefix"`
}

// SetDefaults applies the standard key prefix.
func (c *Config) SetDefaults() {
	if c.KeyPrefix == "" {
		c.KeyPrefix = "dispatchd"
	}
}

// NewClient parses the URL and connects a Redis client.
func NewClient(cfg Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("store: parse redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}

// RedisBatchStore keeps batch plans in Redis with their retention TTL, so
// every dispatcher instance sees the same current plan.
type RedisBatchStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisBatchStore wraps the client as a batch store.
func NewRedisBatchStore(rdb *redis.Client, prefix string) (*RedisBatchStore, error) {
	if rdb == nil {
		return nil, fmt.Errorf("store: nil redis client provided to NewRedisBatchStore")
	}
	if prefix == "" {
		prefix = "dispatchd"
	}
	return &RedisBatchStore{rdb: rdb, prefix: prefix}, nil
}

func (s *RedisBatchStore) key(id string) string { return s.prefix + ":batch:" + id }

// Put stores the batch under its id with the given TTL.
func (s *RedisBatchStore) Put(ctx context.Context, b batch.Batch, ttl time.Duration) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("store: marshal batch %s: %w", b.ID, err)
	}
	return s.rdb.Set(ctx, s.key(b.ID), data, ttl).Err()
}

// Get returns the batch and whether it exists.
func (s *RedisBatchStore) Get(ctx context.Context, id string) (batch.Batch, bool, error) {
	data, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return batch.Batch{}, false, nil
	}
	if err != nil {
		return batch.Batch{}, false, err
	}
	var b batch.Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return batch.Batch{}, false, fmt.Errorf("store: unmarshal batch %s: %w", id, err)
	}
	return b, true, nil
}

// Delete removes the batch.
func (s *RedisBatchStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, s.key(id)).Err()
}

// List returns all live batches.
func (s *RedisBatchStore) List(ctx context.Context) ([]batch.Batch, error) {
	var out []batch.Batch
	iter := s.rdb.Scan(ctx, 0, s.prefix+":batch:*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.rdb.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // expired between scan and get
		}
		if err != nil {
			return nil, err
		}
		var b batch.Batch
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("store: unmarshal batch %s: %w", iter.Val(), err)
		}
		out = append(out, b)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// incrementBelow increments the counter only while below max, atomically.
var incrementBelow = redis.NewScript(`
local n = tonumber(redis.call('GET', KEYS[1]) or '0')
if n >= tonumber(ARGV[1]) then
  return -1
end
return redis.call('INCR', KEYS[1])
`)

// RedisCounterStore implements the reassignment attempt counter on Redis so
// the per-order cap holds across dispatcher instances.
type RedisCounterStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCounterStore wraps the client as a counter store.
func NewRedisCounterStore(rdb *redis.Client, prefix string) (*RedisCounterStore, error) {
	if rdb == nil {
		return nil, fmt.Errorf("store: nil redis client provided to NewRedisCounterStore")
	}
	if prefix == "" {
		prefix = "dispatchd"
	}
	return &RedisCounterStore{rdb: rdb, prefix: prefix}, nil
}

func (s *RedisCounterStore) key(orderID string) string {
	return s.prefix + ":attempts:" + orderID
}

// Count returns the current reassignment count for the order.
func (s *RedisCounterStore) Count(ctx context.Context, orderID string) (int, error) {
	n, err := s.rdb.Get(ctx, s.key(orderID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// IncrementBelow increments the counter only while it is below max. It
// returns assign.ErrMaxAttempts when the counter has already reached max.
func (s *RedisCounterStore) IncrementBelow(ctx context.Context, orderID string, max int) (int, error) {
	n, err := incrementBelow.Run(ctx, s.rdb, []string{s.key(orderID)}, max).Int()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return max, assign.ErrMaxAttempts
	}
	return n, nil
}
