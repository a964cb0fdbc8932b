package blobs

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps blobs in process memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

type memoryItem struct {
	value   []byte
	updated time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]memoryItem)}
}

func (r *MemoryRepository) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, ok := r.items[key]
	if !ok {
		return nil, nil
	}
	return append([]byte{}, it.value...), nil
}

func (r *MemoryRepository) Put(_ context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[key] = memoryItem{value: append([]byte{}, value...), updated: time.Now()}
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, key)
	return nil
}

func (r *MemoryRepository) Stat(_ context.Context) ([]Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Info, 0, len(r.items))
	for k, it := range r.items {
		result = append(result, Info{Key: k, Size: len(it.value), UpdatedAt: it.updated})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}
