package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// newTestRedisAdapter dials a Redis instance for testing. Tests that
// require a running Redis are skipped automatically when one isn't
// reachable; the module's other tests use the in-memory Fake instead.
func newTestRedisAdapter(t *testing.T) *RedisAdapter {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // dedicated DB for tests
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available, skipping: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return NewRedisAdapter(client)
}

func TestRedisAdapter_ListPushAndBlockingPop(t *testing.T) {
	a := newTestRedisAdapter(t)
	ctx := context.Background()
	key := "test:store:list"
	a.client.Del(ctx, key)
	defer a.client.Del(ctx, key)

	if err := a.ListPushLeft(ctx, key, []byte("hello")); err != nil {
		t.Fatalf("ListPushLeft: %v", err)
	}

	n, err := a.ListLen(ctx, key)
	if err != nil {
		t.Fatalf("ListLen: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected length 1, got %d", n)
	}

	popCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	got, err := a.ListPopRightBlocking(popCtx, key, 1)
	if err != nil {
		t.Fatalf("ListPopRightBlocking: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("expected hello, got %s", got)
	}
}

func TestRedisAdapter_ListPopRightBlocking_Timeout(t *testing.T) {
	a := newTestRedisAdapter(t)
	ctx := context.Background()
	key := "test:store:empty-list"
	a.client.Del(ctx, key)

	_, err := a.ListPopRightBlocking(ctx, key, 1)
	if !errors.Is(err, ErrPopTimeout) {
		t.Fatalf("expected ErrPopTimeout, got %v", err)
	}
}

func TestRedisAdapter_HashRoundTrip(t *testing.T) {
	a := newTestRedisAdapter(t)
	ctx := context.Background()
	key := "test:store:hash"
	a.client.Del(ctx, key)
	defer a.client.Del(ctx, key)

	exists, err := a.KeyExists(ctx, key)
	if err != nil {
		t.Fatalf("KeyExists: %v", err)
	}
	if exists {
		t.Fatal("expected key not to exist before any hash write")
	}

	if err := a.HashSet(ctx, key, "field1", []byte("value1")); err != nil {
		t.Fatalf("HashSet: %v", err)
	}

	exists, err = a.KeyExists(ctx, key)
	if err != nil {
		t.Fatalf("KeyExists: %v", err)
	}
	if !exists {
		t.Fatal("expected key to exist after hash write")
	}

	data, ok, err := a.HashGet(ctx, key, "field1")
	if err != nil {
		t.Fatalf("HashGet: %v", err)
	}
	if !ok || string(data) != "value1" {
		t.Fatalf("expected value1, got ok=%v data=%s", ok, data)
	}

	all, err := a.HashGetAll(ctx, key)
	if err != nil {
		t.Fatalf("HashGetAll: %v", err)
	}
	if string(all["field1"]) != "value1" {
		t.Fatalf("unexpected HashGetAll contents: %v", all)
	}

	if err := a.HashDelete(ctx, key, "field1"); err != nil {
		t.Fatalf("HashDelete: %v", err)
	}

	_, ok, err = a.HashGet(ctx, key, "field1")
	if err != nil {
		t.Fatalf("HashGet after delete: %v", err)
	}
	if ok {
		t.Fatal("expected field to be absent after delete")
	}
}

func TestRedisAdapter_HashDeleteAbsentFieldIsNoop(t *testing.T) {
	a := newTestRedisAdapter(t)
	ctx := context.Background()
	key := "test:store:hash-noop"
	a.client.Del(ctx, key)

	if err := a.HashDelete(ctx, key, "never-existed"); err != nil {
		t.Fatalf("expected no error deleting absent field, got %v", err)
	}
}
