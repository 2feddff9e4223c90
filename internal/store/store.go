// Package store abstracts the external key-value store behind the narrow
// capability set the queue protocol needs: atomic list push, blocking list
// pop, and hash set/get/getall/delete. Redis is the only external store
// implemented (Fake is an in-memory Adapter for tests), but callers depend
// on the Adapter interface so an alternative store can be substituted
// without touching the queue, producer, consumer, or ack tracker packages.
package store

import (
	"context"
	"errors"
)

// ErrStoreUnavailable is returned when the backing connection cannot be
// established or is lost mid-operation. Callers propagate it; it is never
// recovered from internally.
var ErrStoreUnavailable = errors.New("store: unavailable")

// ErrPopTimeout is returned by ListPopRightBlocking when a non-zero timeout
// elapses with no element becoming available. The core consumer always
// blocks with timeout 0 and never observes this; it exists for adapters and
// callers that want a bounded wait.
var ErrPopTimeout = errors.New("store: pop timeout")

// Adapter is the capability set a queue, producer, consumer, and ack
// tracker need from the backing store. Implementations must guarantee that
// each operation is atomic at the single-key granularity the store
// natively provides; no cross-key atomicity is assumed by callers.
type Adapter interface {
	// ListPushLeft appends value to the head of the list at key.
	ListPushLeft(ctx context.Context, key string, value []byte) error

	// ListPopRightBlocking blocks until an element is available at key,
	// then removes and returns it, FIFO with respect to ListPushLeft. A
	// timeout of 0 blocks indefinitely.
	ListPopRightBlocking(ctx context.Context, key string, timeout int) ([]byte, error)

	// ListLen returns the number of elements in the list at key.
	ListLen(ctx context.Context, key string) (int64, error)

	// HashSet sets field to value in the hash at key.
	HashSet(ctx context.Context, key, field string, value []byte) error

	// HashGet returns the value of field in the hash at key, and false if
	// the field is absent.
	HashGet(ctx context.Context, key, field string) ([]byte, bool, error)

	// HashGetAll returns every field/value pair in the hash at key.
	HashGetAll(ctx context.Context, key string) (map[string][]byte, error)

	// HashDelete removes field from the hash at key. Deleting an absent
	// field is permitted and is a no-op.
	HashDelete(ctx context.Context, key, field string) error

	// KeyExists reports whether key exists, regardless of type.
	KeyExists(ctx context.Context, key string) (bool, error)

	// Close releases resources held by the adapter.
	Close() error
}
