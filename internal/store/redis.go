package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAdapter implements Adapter over a go-redis client. The client is
// always injected by the caller; there is no package-level default client.
type RedisAdapter struct {
	client *redis.Client
}

// NewRedisAdapter wraps an already-constructed *redis.Client.
func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

// DialRedisAdapter constructs a *redis.Client from connection parameters and
// wraps it, pinging once to surface ErrStoreUnavailable early.
func DialRedisAdapter(ctx context.Context, addr, password string, db int) (*RedisAdapter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &RedisAdapter{client: client}, nil
}

// Client returns the underlying go-redis client for callers that need
// direct access (e.g. a notifier sharing the connection).
func (a *RedisAdapter) Client() *redis.Client {
	return a.client
}

func (a *RedisAdapter) Close() error {
	return a.client.Close()
}

func (a *RedisAdapter) ListPushLeft(ctx context.Context, key string, value []byte) error {
	if err := a.client.LPush(ctx, key, value).Err(); err != nil {
		return fmt.Errorf("%w: lpush %s: %v", ErrStoreUnavailable, key, err)
	}
	return nil
}

// ListPopRightBlocking uses BRPOP. timeout is in whole seconds; 0 blocks
// indefinitely, relying on ctx cancellation to unblock callers on shutdown.
func (a *RedisAdapter) ListPopRightBlocking(ctx context.Context, key string, timeout int) ([]byte, error) {
	result, err := a.client.BRPop(ctx, time.Duration(timeout)*time.Second, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrPopTimeout
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: brpop %s: %v", ErrStoreUnavailable, key, err)
	}
	if len(result) < 2 {
		return nil, fmt.Errorf("%w: brpop %s: unexpected reply shape", ErrStoreUnavailable, key)
	}
	return []byte(result[1]), nil
}

func (a *RedisAdapter) ListLen(ctx context.Context, key string) (int64, error) {
	n, err := a.client.LLen(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: llen %s: %v", ErrStoreUnavailable, key, err)
	}
	return n, nil
}

func (a *RedisAdapter) HashSet(ctx context.Context, key, field string, value []byte) error {
	if err := a.client.HSet(ctx, key, field, value).Err(); err != nil {
		return fmt.Errorf("%w: hset %s.%s: %v", ErrStoreUnavailable, key, field, err)
	}
	return nil
}

func (a *RedisAdapter) HashGet(ctx context.Context, key, field string) ([]byte, bool, error) {
	data, err := a.client.HGet(ctx, key, field).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: hget %s.%s: %v", ErrStoreUnavailable, key, field, err)
	}
	return data, true, nil
}

func (a *RedisAdapter) HashGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	result, err := a.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: hgetall %s: %v", ErrStoreUnavailable, key, err)
	}
	out := make(map[string][]byte, len(result))
	for field, value := range result {
		out[field] = []byte(value)
	}
	return out, nil
}

func (a *RedisAdapter) HashDelete(ctx context.Context, key, field string) error {
	if err := a.client.HDel(ctx, key, field).Err(); err != nil {
		return fmt.Errorf("%w: hdel %s.%s: %v", ErrStoreUnavailable, key, field, err)
	}
	return nil
}

func (a *RedisAdapter) KeyExists(ctx context.Context, key string) (bool, error) {
	n, err := a.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: exists %s: %v", ErrStoreUnavailable, key, err)
	}
	return n > 0, nil
}
