package blobs

import (
	"context"
	"sort"
	"sync"
)

// Broker numbers every successful write with a process-wide sequence and
// lets watchers wait for writes newer than a sequence they have seen.
//
// Sequences restart at zero with the process. A watcher that presents a
// sequence above the current one is told the current value immediately so
// it can resynchronize.
type Broker struct {
	mu      sync.Mutex
	seq     uint64
	changed map[string]map[string]uint64 // namespace -> key -> seq of last write
	wake    chan struct{}
}

func NewBroker() *Broker {
	return &Broker{changed: map[string]map[string]uint64{}, wake: make(chan struct{})}
}

// Publish records a write of key in namespace and wakes all waiters.
func (b *Broker) Publish(namespace, key string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	ns, ok := b.changed[namespace]
	if !ok {
		ns = map[string]uint64{}
		b.changed[namespace] = ns
	}
	ns[key] = b.seq

	close(b.wake)
	b.wake = make(chan struct{})
	return b.seq
}

// Seq returns the sequence of the latest write.
func (b *Broker) Seq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq
}

// Since returns the keys of namespace written after seq, sorted.
func (b *Broker) Since(namespace string, after uint64) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.since(namespace, after)
}

func (b *Broker) since(namespace string, after uint64) []string {
	var keys []string
	for k, s := range b.changed[namespace] {
		if s > after {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Wait blocks until namespace has writes newer than after and returns
// their keys together with the sequence to pass next time. When ctx ends
// first it returns after unchanged and ctx.Err().
func (b *Broker) Wait(ctx context.Context, namespace string, after uint64) ([]string, uint64, error) {
	for {
		b.mu.Lock()
		seq := b.seq
		if after > seq {
			b.mu.Unlock()
			return nil, seq, nil
		}
		keys := b.since(namespace, after)
		wake := b.wake
		b.mu.Unlock()

		if len(keys) > 0 {
			return keys, seq, nil
		}

		select {
		case <-ctx.Done():
			return nil, after, ctx.Err()
		case <-wake:
		}
	}
}
