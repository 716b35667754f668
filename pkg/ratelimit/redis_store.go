package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrWindow bumps the counter of the current window and starts the window
// on the first hit. Returns the count and the remaining window in ms.
var incrWindow = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return {n, ttl}
`)

// RedisStore is a Store shared by every instance pointing at the same Redis.
// It counts requests in fixed windows.
type RedisStore struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRedisClient parses url, connects and pings the server
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewRedisStore creates a store allowing limit requests per window per key
func NewRedisStore(client *redis.Client, limit int, window time.Duration) *RedisStore {
	if limit < 1 {
		limit = 1
	}
	if window < time.Millisecond {
		window = time.Minute
	}
	return &RedisStore{
		client: client,
		limit:  limit,
		window: window,
		prefix: "usermgr:ratelimit:",
	}
}

func (s *RedisStore) Allow(ctx context.Context, key string) (Result, error) {
	vals, err := incrWindow.Run(ctx, s.client, []string{s.prefix + key}, s.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit counter: %w", err)
	}
	if len(vals) != 2 {
		return Result{}, fmt.Errorf("rate limit counter: unexpected reply %v", vals)
	}
	count, ttl := int(vals[0]), time.Duration(vals[1])*time.Millisecond

	res := Result{Limit: s.limit}
	if count <= s.limit {
		res.Allowed = true
		res.Remaining = s.limit - count
		return res, nil
	}
	if ttl < 0 {
		ttl = s.window
	}
	res.RetryAfter = ttl
	return res, nil
}
