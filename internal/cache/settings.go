// Package cache provides a Redis read-through cache for runtime settings.
// Settings are read on every priced request; the cache keeps that off the
// database while Set invalidation keeps admin changes near-immediate.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aurumcart/aurum-backend/internal/domain/settings"
)

const keyPrefix = "settings:"

var _ settings.Store = (*Settings)(nil)

// Settings decorates a settings.Store with Redis caching. Redis failures
// degrade to direct reads, never to request failures.
type Settings struct {
	inner settings.Store
	rdb   *redis.Client
	ttl   time.Duration
	lg    *zap.Logger
}

// NewSettings wraps inner with a Redis cache.
func NewSettings(inner settings.Store, rdb *redis.Client, ttl time.Duration, lg *zap.Logger) *Settings {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Settings{inner: inner, rdb: rdb, ttl: ttl, lg: lg}
}

// GetString returns the cached value or reads through.
func (c *Settings) GetString(ctx context.Context, key, def string) (string, error) {
	if cached, ok := c.lookup(ctx, key); ok {
		return cached, nil
	}
	value, err := c.inner.GetString(ctx, key, def)
	if err != nil {
		return value, err
	}
	c.store(ctx, key, value)
	return value, nil
}

// GetInt returns the cached value or reads through.
func (c *Settings) GetInt(ctx context.Context, key string, def int) (int, error) {
	if cached, ok := c.lookup(ctx, key); ok {
		if n, err := strconv.Atoi(cached); err == nil {
			return n, nil
		}
	}
	value, err := c.inner.GetInt(ctx, key, def)
	if err != nil {
		return value, err
	}
	c.store(ctx, key, strconv.Itoa(value))
	return value, nil
}

// GetDecimal returns the cached value or reads through.
func (c *Settings) GetDecimal(ctx context.Context, key string, def decimal.Decimal) (decimal.Decimal, error) {
	if cached, ok := c.lookup(ctx, key); ok {
		if d, err := decimal.NewFromString(cached); err == nil {
			return d, nil
		}
	}
	value, err := c.inner.GetDecimal(ctx, key, def)
	if err != nil {
		return value, err
	}
	c.store(ctx, key, value.String())
	return value, nil
}

// Set writes through and drops the cached entry.
func (c *Settings) Set(ctx context.Context, key string, value any, description, category string) error {
	if err := c.inner.Set(ctx, key, value, description, category); err != nil {
		return err
	}
	if err := c.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		c.lg.Warn("settings cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

func (c *Settings) lookup(ctx context.Context, key string) (string, bool) {
	cached, err := c.rdb.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.lg.Warn("settings cache read failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return cached, true
}

func (c *Settings) store(ctx context.Context, key, value string) {
	if err := c.rdb.Set(ctx, keyPrefix+key, value, c.ttl).Err(); err != nil {
		c.lg.Warn("settings cache write failed", zap.String("key", key), zap.Error(err))
	}
}
