package sink

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gferrors "github.com/vnykmshr/goplumb/pkg/common/errors"
)

// redisClient returns a client for a local Redis or skips the test.
func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skip("Redis not available, skipping test")
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestNewRedisSinkValidation(t *testing.T) {
	_, err := NewRedisSink(RedisConfig{Key: "runs"})
	assert.True(t, gferrors.IsValidationError(err))

	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer func() { _ = rdb.Close() }()

	_, err = NewRedisSink(RedisConfig{Redis: rdb})
	assert.True(t, gferrors.IsValidationError(err))

	_, err = NewRedisSink(RedisConfig{Redis: rdb, Key: "runs", MaxLen: -1})
	assert.True(t, gferrors.IsValidationError(err))
}

func TestRedisSink(t *testing.T) {
	rdb := redisClient(t)
	ctx := context.Background()

	s, err := NewRedisSink(RedisConfig{
		Redis:  rdb,
		Key:    "goplumb:test:" + uuid.NewString(),
		MaxLen: 2,
		TTL:    time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Reset(ctx) })

	for _, job := range []string{"a", "b", "c"} {
		require.NoError(t, s.Write(ctx, sampleEntry(job, 0)))
	}

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].Job)
	assert.Equal(t, sampleEntry("c", 0), entries[1])

	entries, err = s.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "c", entries[0].Job)

	ttl, err := rdb.PTTL(ctx, s.config.Key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Write(ctx, sampleEntry("d", 0)), gferrors.ErrClosed)
}
