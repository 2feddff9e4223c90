package store

import (
	"context"
	"sync"
	"time"
)

// Fake is an in-memory Adapter used by this module's tests that exercise
// queue/producer/consumer/ack-tracker logic without a live Redis. It
// implements the same atomicity contract Adapter promises (each operation
// is atomic with respect to the others) using a single mutex.
type Fake struct {
	mu    sync.Mutex
	lists map[string][][]byte
	hash  map[string]map[string][]byte

	popSignal chan struct{}
}

// NewFake constructs an empty in-memory store.
func NewFake() *Fake {
	return &Fake{
		lists:     make(map[string][][]byte),
		hash:      make(map[string]map[string][]byte),
		popSignal: make(chan struct{}, 1),
	}
}

func (f *Fake) Close() error { return nil }

func (f *Fake) signal() {
	select {
	case f.popSignal <- struct{}{}:
	default:
	}
}

func (f *Fake) ListPushLeft(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	f.lists[key] = append([][]byte{value}, f.lists[key]...)
	f.mu.Unlock()
	f.signal()
	return nil
}

func (f *Fake) tryPopRight(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.lists[key]
	if len(items) == 0 {
		return nil, false
	}
	last := items[len(items)-1]
	f.lists[key] = items[:len(items)-1]
	return last, true
}

// ListPopRightBlocking blocks on a channel until an element is pushed, then
// retries the pop. timeout is in seconds; 0 blocks until ctx is done.
func (f *Fake) ListPopRightBlocking(ctx context.Context, key string, timeout int) ([]byte, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(time.Duration(timeout) * time.Second)
		defer timer.Stop()
		expired = timer.C
	}
	for {
		if v, ok := f.tryPopRight(key); ok {
			return v, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-expired:
			return nil, ErrPopTimeout
		case <-f.popSignal:
			continue
		}
	}
}

func (f *Fake) ListLen(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.lists[key])), nil
}

func (f *Fake) HashSet(_ context.Context, key, field string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hash[key] == nil {
		f.hash[key] = make(map[string][]byte)
	}
	f.hash[key][field] = value
	return nil
}

func (f *Fake) HashGet(_ context.Context, key, field string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.hash[key]
	if !ok {
		return nil, false, nil
	}
	v, ok := m[field]
	return v, ok, nil
}

func (f *Fake) HashGetAll(_ context.Context, key string) (map[string][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]byte, len(f.hash[key]))
	for k, v := range f.hash[key] {
		out[k] = v
	}
	return out, nil
}

func (f *Fake) HashDelete(_ context.Context, key, field string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.hash[key], field)
	return nil
}

func (f *Fake) KeyExists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.lists[key]) > 0 {
		return true, nil
	}
	return len(f.hash[key]) > 0, nil
}

var _ Adapter = (*Fake)(nil)
