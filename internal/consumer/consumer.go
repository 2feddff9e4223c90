// Package consumer runs the receive loop and dispatch state machine that
// pulls envelopes off a queue and invokes their registered handlers.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oriys/taskqueue/internal/acktracker"
	"github.com/oriys/taskqueue/internal/envelope"
	"github.com/oriys/taskqueue/internal/logging"
	"github.com/oriys/taskqueue/internal/metrics"
	"github.com/oriys/taskqueue/internal/queue"
)

// ErrUnknownHandler mirrors queue.ErrUnknownHandler at the dispatch
// boundary; a received callable_ident has no registered handler.
var ErrUnknownHandler = queue.ErrUnknownHandler

// Consumer runs one queue's receive loop and, when the queue's ack
// protocol is enabled, its Ack Tracker reaper, as two concurrent
// activities sharing the queue's store handle.
type Consumer struct {
	queue   *queue.Queue
	tracker *acktracker.Tracker

	reaperCheckInterval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup

	stopOnce sync.Once
}

// Option configures a Consumer at construction time.
type Option func(*Consumer)

// WithReaperCheckInterval overrides the reaper's sleep interval. Only
// meaningful when the queue's ack protocol is enabled.
func WithReaperCheckInterval(d time.Duration) Option {
	return func(c *Consumer) { c.reaperCheckInterval = d }
}

// New constructs a Consumer around q. It does not start the receive loop;
// call Run for that.
func New(q *queue.Queue, opts ...Option) *Consumer {
	c := &Consumer{
		queue:               q,
		reaperCheckInterval: acktracker.DefaultCheckInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.tracker = acktracker.New(q, c.reaperCheckInterval)
	return c
}

// Run logs the registered task identifiers, starts the reaper (if the
// queue's ack protocol is enabled), then blocks the calling goroutine in
// the receive loop until ctx is cancelled or Stop is called.
func (c *Consumer) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	logging.Op().Info("consumer starting",
		"queue", c.queue.Name(),
		"registered_tasks", c.queue.RegisteredIdents(),
		"ack_enabled", c.queue.AckEnabled())

	if c.queue.AckEnabled() {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.tracker.RunReaper(runCtx)
		}()
	}

	for {
		env, err := c.queue.Pop(runCtx)
		if err != nil {
			if errors.Is(err, context.Canceled) || runCtx.Err() != nil {
				c.wg.Wait()
				return nil
			}
			if errors.Is(err, envelope.ErrSerialization) {
				logging.Op().Error("consumer: malformed envelope, dropping", "queue", c.queue.Name(), "error", err)
				metrics.RecordDispatch(c.queue.Name(), "decode_error")
				continue
			}
			return fmt.Errorf("consumer: receive loop: %w", err)
		}
		c.dispatch(runCtx, env)
	}
}

// Stop cancels Run's context, which stops the reaper and unblocks a
// pending Queue.pop. A handler already running is not interrupted; Run
// returns after that dispatch completes and the reaper has exited. Stop
// itself returns immediately without waiting for Run.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
	})
}

func (c *Consumer) dispatch(ctx context.Context, env *envelope.Envelope) {
	handler, ok := c.queue.Handler(env.CallableIdent)
	if !ok {
		logging.Op().Error("consumer: received unknown handler, dropping",
			"queue", c.queue.Name(), "id", env.ID, "callable_ident", env.CallableIdent)
		metrics.RecordDispatch(c.queue.Name(), "unknown_handler")
		return
	}

	c.runTask(ctx, env, handler)
}

// runTask is the dispatch state machine: entry, invoke, and on failure
// retry in an explicit bounded loop (never recursion) up to
// max_retry_count before falling back to no_ack.
func (c *Consumer) runTask(ctx context.Context, env *envelope.Envelope, handler queue.Handler) {
	if err := c.tracker.Entry(ctx, env); err != nil {
		logging.Op().Error("consumer: ack tracker entry failed", "queue", c.queue.Name(), "id", env.ID, "error", err)
	}

	for {
		_, err := handler(env.Args, env.Kwargs)
		if err == nil {
			if ackErr := c.tracker.Ack(ctx, env.ID); ackErr != nil {
				logging.Op().Error("consumer: ack failed", "queue", c.queue.Name(), "id", env.ID, "error", ackErr)
			}
			logging.Op().Info("consumer: task completed",
				"queue", c.queue.Name(), "id", env.ID, "callable_ident", env.CallableIdent, "retry_count", env.RetryCount)
			metrics.RecordDispatch(c.queue.Name(), "success")
			return
		}

		if env.RetryCount < env.MaxRetryCount {
			env.RetryCount++
			metrics.RecordRetry(c.queue.Name(), env.CallableIdent)
			logging.Op().Warn("consumer: handler failed, retrying",
				"queue", c.queue.Name(), "id", env.ID, "callable_ident", env.CallableIdent,
				"retry_count", env.RetryCount, "max_retry_count", env.MaxRetryCount, "error", err)
			continue
		}

		logging.Op().Error("consumer: handler failed, retries exhausted",
			"queue", c.queue.Name(), "id", env.ID, "callable_ident", env.CallableIdent,
			"retry_count", env.RetryCount, "error", err)
		metrics.RecordDispatch(c.queue.Name(), "handler_failure")

		if c.queue.AckEnabled() {
			metrics.RecordNoAck(c.queue.Name(), env.CallableIdent)
			if noAckErr := c.tracker.NoAck(ctx, env); noAckErr != nil {
				logging.Op().Error("consumer: no_ack failed", "queue", c.queue.Name(), "id", env.ID, "error", noAckErr)
			}
		}
		return
	}
}
