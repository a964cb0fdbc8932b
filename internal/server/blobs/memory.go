package blobs

import (
	"bytes"
	"context"
	"sync"
)

// MemoryRepository keeps blobs in process memory. Contents are lost on
// restart; it backs tests and `-m memory` development servers.
type MemoryRepository struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{data: map[string]map[string][]byte{}}
}

func (r *MemoryRepository) Get(_ context.Context, namespace, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.data[namespace][key]
	if !ok {
		return nil, nil
	}
	return bytes.Clone(v), nil
}

func (r *MemoryRepository) Put(_ context.Context, namespace, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ns, ok := r.data[namespace]
	if !ok {
		ns = map[string][]byte{}
		r.data[namespace] = ns
	}
	v := bytes.Clone(value)
	if v == nil {
		v = []byte{}
	}
	ns[key] = v
	return nil
}

func (r *MemoryRepository) Ping(context.Context) error {
	return nil
}
