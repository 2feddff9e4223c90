// Package acktracker maintains the in-flight set for one queue and runs
// the timeout reaper loop that re-enqueues expired entries. Both
// responsibilities are no-ops when the queue's ack protocol is disabled.
package acktracker

import (
	"context"
	"time"

	"github.com/oriys/taskqueue/internal/envelope"
	"github.com/oriys/taskqueue/internal/logging"
	"github.com/oriys/taskqueue/internal/metrics"
	"github.com/oriys/taskqueue/internal/queue"
)

// DefaultCheckInterval is the reaper's sleep interval when none is given.
const DefaultCheckInterval = 10 * time.Second

// Tracker owns the in-flight hash bookkeeping and reaper loop for one
// queue. One Tracker must exist per queue per consumer process; running two
// reapers against the same hash is not supported.
type Tracker struct {
	queue         *queue.Queue
	checkInterval time.Duration
}

// New constructs a Tracker for q. A zero or negative interval falls back to
// DefaultCheckInterval.
func New(q *queue.Queue, checkInterval time.Duration) *Tracker {
	if checkInterval <= 0 {
		checkInterval = DefaultCheckInterval
	}
	return &Tracker{queue: q, checkInterval: checkInterval}
}

// Entry records env as in-flight, stamping start_time with the current
// wall-clock second before serializing it into the ack hash. A no-op when
// the queue's ack protocol is disabled.
func (t *Tracker) Entry(ctx context.Context, env *envelope.Envelope) error {
	if !t.queue.AckEnabled() {
		return nil
	}
	env.StartTime = time.Now().Unix()
	data, err := t.queue.Serialize(env)
	if err != nil {
		return err
	}
	if err := t.queue.Store().HashSet(ctx, t.queue.AckHashKey(), env.ID, data); err != nil {
		return err
	}
	metrics.SetInFlight(t.queue.Name(), t.inFlightCountBestEffort(ctx))
	return nil
}

// Ack removes id from the in-flight hash. Idempotent: acking an id that is
// already absent is a no-op. A no-op when the queue's ack protocol is
// disabled.
func (t *Tracker) Ack(ctx context.Context, id string) error {
	if !t.queue.AckEnabled() {
		return nil
	}
	if err := t.queue.Store().HashDelete(ctx, t.queue.AckHashKey(), id); err != nil {
		return err
	}
	metrics.RecordAck(t.queue.Name())
	metrics.SetInFlight(t.queue.Name(), t.inFlightCountBestEffort(ctx))
	return nil
}

// NoAck re-enqueues env onto the message list, then removes it from the
// in-flight hash. The ordering is mandatory: push first, delete second, so
// a crash between the two steps at worst yields a duplicate delivery
// (tolerated under at-least-once); deleting first would risk losing the
// message entirely. A no-op when the queue's ack protocol is disabled.
func (t *Tracker) NoAck(ctx context.Context, env *envelope.Envelope) error {
	if !t.queue.AckEnabled() {
		return nil
	}
	if err := t.queue.Push(ctx, env); err != nil {
		return err
	}
	if err := t.queue.Store().HashDelete(ctx, t.queue.AckHashKey(), env.ID); err != nil {
		return err
	}
	metrics.SetInFlight(t.queue.Name(), t.inFlightCountBestEffort(ctx))
	return nil
}

func (t *Tracker) inFlightCountBestEffort(ctx context.Context) int {
	all, err := t.queue.Store().HashGetAll(ctx, t.queue.AckHashKey())
	if err != nil {
		return 0
	}
	return len(all)
}

// RunReaper scans the in-flight hash every checkInterval and re-enqueues
// entries whose start_time is older than the queue's ack timeout. It runs
// until ctx is cancelled. Callers start it in its own goroutine only when
// the queue's ack protocol is enabled.
func (t *Tracker) RunReaper(ctx context.Context) {
	ticker := time.NewTicker(t.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.sweep(ctx)
		}
	}
}

func (t *Tracker) sweep(ctx context.Context) {
	hashKey := t.queue.AckHashKey()

	exists, err := t.queue.Store().KeyExists(ctx, hashKey)
	if err != nil {
		logging.Op().Error("ack tracker: check hash existence failed", "queue", t.queue.Name(), "error", err)
		return
	}
	if !exists {
		return
	}

	entries, err := t.queue.Store().HashGetAll(ctx, hashKey)
	if err != nil {
		logging.Op().Error("ack tracker: scan in-flight hash failed", "queue", t.queue.Name(), "error", err)
		return
	}

	now := time.Now().Unix()
	timeout := int64(t.queue.DefaultAckTimeoutSeconds())

	for id, data := range entries {
		env, err := t.queue.Deserialize(data)
		if err != nil {
			// Leave the entry in place; a later Entry call may repair it.
			logging.Op().Error("ack tracker: decode in-flight entry failed, skipping", "queue", t.queue.Name(), "id", id, "error", err)
			continue
		}

		if now-env.StartTime <= timeout {
			continue
		}

		env.ClearStartTime()
		if err := t.queue.Push(ctx, env); err != nil {
			logging.Op().Error("ack tracker: reaper requeue push failed", "queue", t.queue.Name(), "id", id, "error", err)
			continue
		}
		if err := t.queue.Store().HashDelete(ctx, hashKey, id); err != nil {
			logging.Op().Error("ack tracker: reaper hash delete failed", "queue", t.queue.Name(), "id", id, "error", err)
			continue
		}
		metrics.RecordReaperRequeue(t.queue.Name())
		logging.Op().Warn("ack tracker: message exceeded ack timeout, requeued",
			"queue", t.queue.Name(), "id", id, "ack_timeout_seconds", timeout)
	}

	metrics.SetInFlight(t.queue.Name(), t.inFlightCountBestEffort(ctx))
}
