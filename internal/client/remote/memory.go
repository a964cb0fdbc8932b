package remote

import (
	"context"
	"sync"
)

// Memory is an in-process Transport. Several engines sharing one Memory
// behave like devices sharing a cloud account.
type Memory struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	watchers map[int]chan string
	nextID   int
	syncs    int
}

func NewMemory() *Memory {
	return &Memory{blobs: map[string][]byte{}, watchers: map[int]chan string{}}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.blobs[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.blobs[key] = append([]byte(nil), value...)
	watchers := make([]chan string, 0, len(m.watchers))
	for _, ch := range m.watchers {
		watchers = append(watchers, ch)
	}
	m.mu.Unlock()

	for _, ch := range watchers {
		select {
		case ch <- key:
		default:
		}
	}
	return nil
}

func (m *Memory) Synchronize(ctx context.Context) error {
	m.mu.Lock()
	m.syncs++
	m.mu.Unlock()
	return ctx.Err()
}

// Syncs reports how many times Synchronize was called.
func (m *Memory) Syncs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncs
}

func (m *Memory) Watch(ctx context.Context, keys []string, fn func(key string)) error {
	ch := make(chan string, 16)

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = ch
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case key := <-ch:
			if contains(keys, key) {
				fn(key)
			}
		}
	}
}

// Watchers reports the number of active Watch calls.
func (m *Memory) Watchers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers)
}

func (m *Memory) Close() error { return nil }
