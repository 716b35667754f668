package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	client, err := NewRedisClient("redis://" + mini.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, mini
}

func TestRedisStore_Allow(t *testing.T) {
	ctx := context.Background()
	client, mini := newTestRedis(t)
	store := NewRedisStore(client, 2, time.Minute)

	res, err := store.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)

	res, err = store.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	res, err = store.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 2, res.Limit)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, res.RetryAfter, time.Minute)

	res, err = store.Allow(ctx, "9.9.9.9")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// a new window starts once the counter expires
	mini.FastForward(time.Minute + time.Second)
	res, err = store.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)
}

func TestRedisStore_Unavailable(t *testing.T) {
	client, mini := newTestRedis(t)
	store := NewRedisStore(client, 2, time.Minute)
	mini.Close()

	_, err := store.Allow(context.Background(), "k")
	assert.Error(t, err)
}

func TestNewRedisClient_BadURL(t *testing.T) {
	_, err := NewRedisClient("not a url")
	assert.Error(t, err)
}
