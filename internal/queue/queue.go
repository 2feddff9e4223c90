// Package queue owns a named message channel: the serializer pair, the
// store adapter instance, the handler registry, and the ack policy
// settings for one queue. It is the shared object a Producer pushes
// through and a Consumer pops from.
package queue

import (
	"context"
	"fmt"

	"github.com/oriys/taskqueue/internal/envelope"
	"github.com/oriys/taskqueue/internal/metrics"
	"github.com/oriys/taskqueue/internal/store"
)

// Handler is anything invocable with positional and keyword arguments. Its
// return value is logged but never transported back to the producer.
type Handler func(args []any, kwargs map[string]any) (any, error)

// messageListKeyPrefix and ackHashKeyPrefix form the store keys specified
// in the external interface contract; they are string-exact for
// cross-implementation compatibility.
const (
	messageListKeyPrefix = "message-queue-"
	ackHashKeyPrefix      = "async_message_ack_queue:"
)

// Queue is a named, process-local descriptor for one message channel.
type Queue struct {
	name                     string
	ackEnabled               bool
	defaultAckTimeoutSeconds int
	defaultMaxRetryCount     int

	store store.Adapter

	serialize   envelope.Serializer
	deserialize envelope.Deserializer

	handlers map[string]Handler
	// order preserves registration order for queue_info-style listings.
	order []string
}

// Option configures a Queue at construction time.
type Option func(*Queue)

// WithAck enables the ack protocol end-to-end for this queue.
func WithAck(ackTimeoutSeconds int) Option {
	return func(q *Queue) {
		q.ackEnabled = true
		q.defaultAckTimeoutSeconds = ackTimeoutSeconds
	}
}

// WithDefaultMaxRetryCount sets the default max_retry_count applied to
// tasks produced without a per-task override.
func WithDefaultMaxRetryCount(n int) Option {
	return func(q *Queue) { q.defaultMaxRetryCount = n }
}

// WithCodec injects an alternative serializer/deserializer pair. The
// default is JSON, preserving the envelope's field names.
func WithCodec(s envelope.Serializer, d envelope.Deserializer) Option {
	return func(q *Queue) {
		q.serialize = s
		q.deserialize = d
	}
}

// New constructs a Queue backed by the given store adapter.
func New(name string, adapter store.Adapter, opts ...Option) *Queue {
	q := &Queue{
		name:                     name,
		defaultAckTimeoutSeconds: 30 * 60,
		defaultMaxRetryCount:     0,
		store:                    adapter,
		serialize:                envelope.DefaultSerialize,
		deserialize:              envelope.DefaultDeserialize,
		handlers:                 make(map[string]Handler),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Name returns the queue's name.
func (q *Queue) Name() string { return q.name }

// AckEnabled reports whether the ack protocol is active for this queue.
func (q *Queue) AckEnabled() bool { return q.ackEnabled }

// DefaultAckTimeoutSeconds returns the queue-level ack timeout applied when
// a task is produced without a per-task override, and used by the reaper's
// expiry comparison regardless of any envelope-level value (see
// DESIGN.md open question 1).
func (q *Queue) DefaultAckTimeoutSeconds() int { return q.defaultAckTimeoutSeconds }

// DefaultMaxRetryCount returns the queue-level retry bound applied when a
// task is produced without a per-task override.
func (q *Queue) DefaultMaxRetryCount() int { return q.defaultMaxRetryCount }

// Store exposes the underlying store adapter to the ack tracker.
func (q *Queue) Store() store.Adapter { return q.store }

// Serialize and Deserialize expose the queue's codec to the ack tracker,
// which re-serializes envelopes into the in-flight hash using the same
// codec as the message list.
func (q *Queue) Serialize(e *envelope.Envelope) ([]byte, error) { return q.serialize(e) }
func (q *Queue) Deserialize(data []byte) (*envelope.Envelope, error) { return q.deserialize(data) }

// ListKey is the store key for this queue's message list.
func (q *Queue) ListKey() string { return messageListKeyPrefix + q.name }

// AckHashKey is the store key for this queue's in-flight hash.
func (q *Queue) AckHashKey() string { return ackHashKeyPrefix + q.name }

// RegisterHandler inserts a handler under callable_ident into the registry.
// It is a ConfigurationError to register a nil handler or to register the
// same ident twice.
func (q *Queue) RegisterHandler(callableIdent string, h Handler) error {
	if h == nil {
		return fmt.Errorf("%w: nil handler for %s", ErrConfiguration, callableIdent)
	}
	if _, exists := q.handlers[callableIdent]; exists {
		return fmt.Errorf("%w: %s already registered", ErrConfiguration, callableIdent)
	}
	q.handlers[callableIdent] = h
	q.order = append(q.order, callableIdent)
	return nil
}

// Handler looks up the handler for a callable_ident.
func (q *Queue) Handler(callableIdent string) (Handler, bool) {
	h, ok := q.handlers[callableIdent]
	return h, ok
}

// RegisteredIdents returns every registered callable_ident in registration
// order, for queue_info-style reporting.
func (q *Queue) RegisteredIdents() []string {
	out := make([]string, len(q.order))
	copy(out, q.order)
	return out
}

// Push serializes env and list-pushes it onto the message list.
func (q *Queue) Push(ctx context.Context, env *envelope.Envelope) error {
	data, err := q.serialize(env)
	if err != nil {
		return err
	}
	if err := q.store.ListPushLeft(ctx, q.ListKey(), data); err != nil {
		return err
	}
	metrics.RecordPush(q.name)
	return nil
}

// Pop blocks until a message is available on the list, then deserializes
// and returns it.
func (q *Queue) Pop(ctx context.Context) (*envelope.Envelope, error) {
	data, err := q.store.ListPopRightBlocking(ctx, q.ListKey(), 0)
	if err != nil {
		return nil, err
	}
	env, err := q.deserialize(data)
	if err != nil {
		return nil, err
	}
	metrics.RecordPop(q.name)
	return env, nil
}

// Size returns the current length of the message list.
func (q *Queue) Size(ctx context.Context) (int64, error) {
	return q.store.ListLen(ctx, q.ListKey())
}
