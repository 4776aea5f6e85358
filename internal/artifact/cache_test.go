package artifact

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "rent-predictor/internal/common/errors"
	"rent-predictor/internal/common/logger"
)

type countingStore struct {
	data  []byte
	err   error
	calls int
}

func (s *countingStore) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCachedStore_MemoryLayer(t *testing.T) {
	backing := &countingStore{data: []byte("model-bytes")}
	cache, err := NewCachedStore(backing, CacheOptions{MemoryEntries: 2}, logger.NewTestLogger(t))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		data, err := cache.Fetch(context.Background(), "b", "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("model-bytes"), data)
	}
	assert.Equal(t, 1, backing.calls)
}

func TestCachedStore_RedisLayerSharedAcrossProcesses(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()

	first := &countingStore{data: []byte("model-bytes")}
	c1, err := NewCachedStore(first, CacheOptions{Redis: client, TTL: time.Hour}, logger.NewTestLogger(t))
	require.NoError(t, err)

	_, err = c1.Fetch(ctx, "b", "models/rent.json")
	require.NoError(t, err)
	assert.Equal(t, 1, first.calls)

	stored, err := mr.Get(CacheKey("b", "models/rent.json"))
	require.NoError(t, err)
	assert.Equal(t, "model-bytes", stored)
	assert.Equal(t, time.Hour, mr.TTL(CacheKey("b", "models/rent.json")))

	second := &countingStore{err: errors.New("must not be called")}
	c2, err := NewCachedStore(second, CacheOptions{Redis: client, TTL: time.Hour}, logger.NewTestLogger(t))
	require.NoError(t, err)

	data, err := c2.Fetch(ctx, "b", "models/rent.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("model-bytes"), data)
	assert.Equal(t, 0, second.calls)
}

func TestCachedStore_RedisDownFallsThrough(t *testing.T) {
	mr, client := setupRedis(t)
	mr.Close()

	backing := &countingStore{data: []byte("model-bytes")}
	cache, err := NewCachedStore(backing, CacheOptions{Redis: client, TTL: time.Minute}, logger.NewTestLogger(t))
	require.NoError(t, err)

	data, err := cache.Fetch(context.Background(), "b", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("model-bytes"), data)
	assert.Equal(t, 1, backing.calls)
}

func TestCachedStore_StoreErrorIsNotCached(t *testing.T) {
	_, client := setupRedis(t)

	backing := &countingStore{err: apperrors.NewArtifactNotFoundError("b", "k", errors.New("NoSuchKey"))}
	cache, err := NewCachedStore(backing, CacheOptions{Redis: client, TTL: time.Minute}, logger.NewTestLogger(t))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = cache.Fetch(context.Background(), "b", "k")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeArtifactNotFound))
	}
	assert.Equal(t, 2, backing.calls)
}

func TestCachedStore_RedisWriteFailureIgnored(t *testing.T) {
	db, mock := redismock.NewClientMock()
	key := CacheKey("b", "k")
	data := []byte("model-bytes")

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, data, time.Minute).SetErr(errors.New("READONLY"))

	backing := &countingStore{data: data}
	cache, err := NewCachedStore(backing, CacheOptions{Redis: db, TTL: time.Minute}, logger.NewTestLogger(t))
	require.NoError(t, err)

	got, err := cache.Fetch(context.Background(), "b", "k")
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
