// Package cache memoises block metadata lookups in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"fydeScope/internal/model"
	"fydeScope/internal/observability"
)

// DefaultTTL bounds how long a resolved transaction is trusted.
const DefaultTTL = 24 * time.Hour

// MetaResolver resolves the block metadata of a transaction.
type MetaResolver interface {
	TransactionMeta(ctx context.Context, txHash common.Hash) (model.BlockMeta, error)
}

// KV is the subset of the Redis client the cache uses.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// MetaCache wraps a MetaResolver with a Redis read-through cache. Only found
// transactions are cached; misses and failures always reach the resolver.
// Redis errors degrade to uncached lookups.
type MetaCache struct {
	kv      KV
	next    MetaResolver
	chainID uint64
	ttl     time.Duration
	logger  *zap.Logger
}

func NewMetaCache(kv KV, next MetaResolver, chainID uint64, ttl time.Duration, logger *zap.Logger) (*MetaCache, error) {
	if kv == nil || next == nil {
		return nil, fmt.Errorf("redis client and resolver are required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetaCache{kv: kv, next: next, chainID: chainID, ttl: ttl, logger: logger}, nil
}

func (c *MetaCache) key(txHash common.Hash) string {
	return fmt.Sprintf("fydescope:txmeta:%d:%s", c.chainID, txHash.Hex())
}

func (c *MetaCache) TransactionMeta(ctx context.Context, txHash common.Hash) (model.BlockMeta, error) {
	key := c.key(txHash)
	raw, err := c.kv.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var meta model.BlockMeta
		if err := json.Unmarshal(raw, &meta); err == nil {
			observability.RecordMetaLookup("hit")
			return meta, nil
		}
		c.logger.Warn("discard corrupt cached tx meta", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("tx meta cache read failed", zap.String("key", key), zap.Error(err))
	}
	observability.RecordMetaLookup("miss")

	meta, err := c.next.TransactionMeta(ctx, txHash)
	if err != nil {
		return model.BlockMeta{}, err
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		return meta, nil
	}
	if err := c.kv.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("tx meta cache write failed", zap.String("key", key), zap.Error(err))
	}
	return meta, nil
}

// InvalidateTransactionMeta drops the cached entry for txHash, so the next
// lookup reaches the resolver. Callers use it when a cached block disagrees
// with the chain after a reorg.
func (c *MetaCache) InvalidateTransactionMeta(ctx context.Context, txHash common.Hash) error {
	key := c.key(txHash)
	if err := c.kv.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("evict %s: %w", key, err)
	}
	observability.RecordMetaLookup("evict")
	return nil
}
