package producer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oriys/taskqueue/internal/queue"
	"github.com/oriys/taskqueue/internal/store"
)

func noop(args []any, kwargs map[string]any) (any, error) { return nil, nil }

func TestRegisterTaskRejectsNilHandler(t *testing.T) {
	q := queue.New("q1", store.NewFake())
	if _, err := RegisterTask(q, "add", nil); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestRegisterTaskRejectsDuplicateHandlerName(t *testing.T) {
	q := queue.New("q1", store.NewFake())
	if _, err := RegisterTask(q, "add", noop); err != nil {
		t.Fatalf("first registration should succeed: %v", err)
	}
	if _, err := RegisterTask(q, "add", noop); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for duplicate, got %v", err)
	}
}

func TestSubmitHandlePushesEnvelope(t *testing.T) {
	q := queue.New("q1", store.NewFake(), queue.WithDefaultMaxRetryCount(2))
	submit, err := RegisterTask(q, "add", noop)
	if err != nil {
		t.Fatalf("RegisterTask: %v", err)
	}

	ctx := context.Background()
	if err := submit(ctx, []any{float64(1), float64(2)}, map[string]any{"unit": "cm"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	popCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	env, err := q.Pop(popCtx)
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if env.CallableIdent != "q1:add" {
		t.Fatalf("expected callable_ident q1:add, got %s", env.CallableIdent)
	}
	if env.MaxRetryCount != 2 {
		t.Fatalf("expected inherited max_retry_count 2, got %d", env.MaxRetryCount)
	}
	if env.ID == "" {
		t.Fatal("expected non-empty id")
	}
}

func TestSubmitHandleIDsAreUnique(t *testing.T) {
	q := queue.New("q1", store.NewFake())
	submit, err := RegisterTask(q, "add", noop)
	if err != nil {
		t.Fatalf("RegisterTask: %v", err)
	}

	ctx := context.Background()
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		if err := submit(ctx, nil, nil); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	for i := 0; i < 20; i++ {
		popCtx, cancel := context.WithTimeout(ctx, time.Second)
		env, err := q.Pop(popCtx)
		cancel()
		if err != nil {
			t.Fatalf("Pop: %v", err)
		}
		if seen[env.ID] {
			t.Fatalf("duplicate id %s", env.ID)
		}
		seen[env.ID] = true
	}
}

func TestTaskLevelOverridesTakePrecedence(t *testing.T) {
	q := queue.New("q1", store.NewFake(), queue.WithAck(60), queue.WithDefaultMaxRetryCount(1))
	submit, err := RegisterTask(q, "add", noop, WithAckTimeoutSeconds(5), WithMaxRetryCount(9))
	if err != nil {
		t.Fatalf("RegisterTask: %v", err)
	}

	ctx := context.Background()
	if err := submit(ctx, nil, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	popCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	env, err := q.Pop(popCtx)
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if env.AckTimeoutSeconds != 5 || env.MaxRetryCount != 9 {
		t.Fatalf("expected per-task overrides, got ack_timeout=%d max_retry=%d", env.AckTimeoutSeconds, env.MaxRetryCount)
	}
}
