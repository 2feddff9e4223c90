// Package producer registers task handlers against a queue and hands back
// submit functions that enqueue invocations for a consumer to pick up.
package producer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/oriys/taskqueue/internal/envelope"
	"github.com/oriys/taskqueue/internal/queue"
)

// ErrConfiguration is returned synchronously from RegisterTask, never from
// a SubmitHandle, when a registration-time condition is violated.
var ErrConfiguration = errors.New("producer: configuration error")

// SubmitHandle enqueues one invocation of the task it was returned for.
// Errors propagate queue.Push's failures: a wrapped StoreUnavailable or
// SerializationError.
type SubmitHandle func(ctx context.Context, args []any, kwargs map[string]any) error

// TaskOption overrides a per-task default inherited from the queue.
type TaskOption func(*taskConfig)

type taskConfig struct {
	ackTimeoutSeconds int
	maxRetryCount     int
}

// WithAckTimeoutSeconds overrides the queue's default ack timeout for this
// task alone. Zero means "use the queue default".
func WithAckTimeoutSeconds(seconds int) TaskOption {
	return func(c *taskConfig) {
		if seconds != 0 {
			c.ackTimeoutSeconds = seconds
		}
	}
}

// WithMaxRetryCount overrides the queue's default max_retry_count for this
// task alone. Zero means "use the queue default".
func WithMaxRetryCount(n int) TaskOption {
	return func(c *taskConfig) {
		if n != 0 {
			c.maxRetryCount = n
		}
	}
}

// RegisterTask inserts "<queue_name>:<handlerName>" into q's handler
// registry and returns a SubmitHandle that constructs a fresh envelope and
// pushes it onto q for every invocation. handlerName must be stable across
// the producer and consumer processes: it is the wire-level discriminator
// a consumer uses to find this handler.
func RegisterTask(q *queue.Queue, handlerName string, handler queue.Handler, opts ...TaskOption) (SubmitHandle, error) {
	if handler == nil {
		return nil, fmt.Errorf("%w: nil handler for %s", ErrConfiguration, handlerName)
	}

	cfg := taskConfig{
		ackTimeoutSeconds: q.DefaultAckTimeoutSeconds(),
		maxRetryCount:     q.DefaultMaxRetryCount(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	callableIdent := q.Name() + ":" + handlerName
	if err := q.RegisterHandler(callableIdent, handler); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	submit := func(ctx context.Context, args []any, kwargs map[string]any) error {
		env := &envelope.Envelope{
			ID:                nextID(),
			CallableIdent:     callableIdent,
			Args:              args,
			Kwargs:            kwargs,
			MaxRetryCount:     cfg.maxRetryCount,
			AckTimeoutSeconds: cfg.ackTimeoutSeconds,
		}
		return q.Push(ctx, env)
	}
	return submit, nil
}

// nextID implements the reference id scheme: the current time as
// fractional seconds since the epoch, concatenated with a random integer
// in [0, 100000). Collisions within a single ack-timeout window are
// vanishingly rare; a collision silently overwrites the earlier in-flight
// hash entry.
func nextID() string {
	seconds := float64(time.Now().UnixNano()) / float64(time.Second)
	return fmt.Sprintf("%f%d", seconds, rand.Intn(100000))
}
