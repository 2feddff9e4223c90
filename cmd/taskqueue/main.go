// Command taskqueue is a demo embedder: it builds a queue, registers a
// couple of example tasks, and hands the queue to taskqueuecli. A real
// embedder follows the same shape with its own tasks and ack policy.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/oriys/taskqueue/internal/logging"
	"github.com/oriys/taskqueue/internal/producer"
	"github.com/oriys/taskqueue/internal/queue"
	"github.com/oriys/taskqueue/internal/store"
	"github.com/oriys/taskqueue/internal/taskqueuecli"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), taskqueuecli.ConnectTimeout)
	defer cancel()

	adapter, err := store.DialRedisAdapter(ctx, addrFromEnv(), passwordFromEnv(), 0)
	if err != nil {
		logging.Op().Error("dial redis failed", "error", err)
		os.Exit(1)
	}
	defer adapter.Close()

	q := queue.New("demo-tasks", adapter,
		queue.WithAck(30),
		queue.WithDefaultMaxRetryCount(3),
	)

	if _, err := producer.RegisterTask(q, "add", func(args []any, kwargs map[string]any) (any, error) {
		a, b, err := twoFloatArgs(args)
		if err != nil {
			return nil, err
		}
		result := a + b
		logging.Op().Info("add task completed", "a", a, "b", b, "result", result)
		return result, nil
	}); err != nil {
		logging.Op().Error("register add task failed", "error", err)
		os.Exit(1)
	}

	if _, err := producer.RegisterTask(q, "reduce", func(args []any, kwargs map[string]any) (any, error) {
		a, b, err := twoFloatArgs(args)
		if err != nil {
			return nil, err
		}
		result := a - b
		logging.Op().Info("reduce task completed", "a", a, "b", b, "result", result)
		return result, nil
	}); err != nil {
		logging.Op().Error("register reduce task failed", "error", err)
		os.Exit(1)
	}

	if err := taskqueuecli.Execute(q); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func twoFloatArgs(args []any) (float64, float64, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("expected 2 args, got %d", len(args))
	}
	a, aok := args[0].(float64)
	b, bok := args[1].(float64)
	if !aok || !bok {
		return 0, 0, fmt.Errorf("expected numeric args, got %T, %T", args[0], args[1])
	}
	return a, b, nil
}

func addrFromEnv() string {
	if v := os.Getenv("TASKQUEUE_REDIS_ADDR"); v != "" {
		return v
	}
	return "localhost:6379"
}

func passwordFromEnv() string {
	return os.Getenv("TASKQUEUE_REDIS_PASSWORD")
}
