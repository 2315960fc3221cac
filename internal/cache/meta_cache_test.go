package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"fydeScope/internal/model"
)

type memKV struct {
	data    map[string]string
	ttls    map[string]time.Duration
	readErr error
}

func newMemKV() *memKV {
	return &memKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memKV) Get(_ context.Context, key string) *redis.StringCmd {
	if m.readErr != nil {
		return redis.NewStringResult("", m.readErr)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memKV) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	m.data[key] = string(value.([]byte))
	m.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (m *memKV) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			delete(m.data, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

type countingResolver struct {
	meta  model.BlockMeta
	err   error
	calls int
}

func (r *countingResolver) TransactionMeta(context.Context, common.Hash) (model.BlockMeta, error) {
	r.calls++
	return r.meta, r.err
}

var tx = common.HexToHash("0x01")

func TestMetaCacheReadThrough(t *testing.T) {
	kv := newMemKV()
	next := &countingResolver{meta: model.BlockMeta{BlockNumber: 12, Timestamp: 1_700_000_000, Sender: common.HexToAddress("0xa11ce")}}
	c, err := NewMetaCache(kv, next, 1, time.Minute, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		meta, err := c.TransactionMeta(context.Background(), tx)
		require.NoError(t, err)
		require.Equal(t, next.meta, meta)
	}
	require.Equal(t, 1, next.calls)
	require.Equal(t, time.Minute, kv.ttls["fydescope:txmeta:1:"+tx.Hex()])
}

func TestMetaCacheKeysByChain(t *testing.T) {
	kv := newMemKV()
	next := &countingResolver{meta: model.BlockMeta{BlockNumber: 1}}
	mainnet, err := NewMetaCache(kv, next, 1, 0, nil)
	require.NoError(t, err)
	sepolia, err := NewMetaCache(kv, next, 11155111, 0, nil)
	require.NoError(t, err)

	_, err = mainnet.TransactionMeta(context.Background(), tx)
	require.NoError(t, err)
	_, err = sepolia.TransactionMeta(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, 2, next.calls)
	require.Len(t, kv.data, 2)
}

func TestMetaCacheDoesNotCacheMisses(t *testing.T) {
	kv := newMemKV()
	next := &countingResolver{err: model.NotFound("eth_getTransactionByHash", tx.Hex())}
	c, err := NewMetaCache(kv, next, 1, 0, nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := c.TransactionMeta(context.Background(), tx)
		require.ErrorIs(t, err, model.ErrNotFound)
	}
	require.Equal(t, 2, next.calls)
	require.Empty(t, kv.data)
}

func TestMetaCacheFallsBackWhenRedisFails(t *testing.T) {
	kv := newMemKV()
	kv.readErr = errors.New("connection refused")
	next := &countingResolver{meta: model.BlockMeta{BlockNumber: 5}}
	c, err := NewMetaCache(kv, next, 1, 0, nil)
	require.NoError(t, err)

	meta, err := c.TransactionMeta(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, uint64(5), meta.BlockNumber)
	require.Equal(t, 1, next.calls)
}

func TestMetaCacheDiscardsCorruptEntry(t *testing.T) {
	kv := newMemKV()
	kv.data["fydescope:txmeta:1:"+tx.Hex()] = "not json"
	next := &countingResolver{meta: model.BlockMeta{BlockNumber: 9}}
	c, err := NewMetaCache(kv, next, 1, 0, nil)
	require.NoError(t, err)

	meta, err := c.TransactionMeta(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, uint64(9), meta.BlockNumber)
	require.Equal(t, 1, next.calls)
}

func TestMetaCacheInvalidateReResolves(t *testing.T) {
	kv := newMemKV()
	next := &countingResolver{meta: model.BlockMeta{BlockNumber: 100}}
	c, err := NewMetaCache(kv, next, 1, time.Hour, nil)
	require.NoError(t, err)

	_, err = c.TransactionMeta(context.Background(), tx)
	require.NoError(t, err)

	// The transaction moves to another block; the cached entry is now stale.
	next.meta = model.BlockMeta{BlockNumber: 101}
	meta, err := c.TransactionMeta(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, uint64(100), meta.BlockNumber)

	require.NoError(t, c.InvalidateTransactionMeta(context.Background(), tx))
	require.Empty(t, kv.data)

	meta, err = c.TransactionMeta(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, uint64(101), meta.BlockNumber)
	require.Equal(t, 2, next.calls)
}
