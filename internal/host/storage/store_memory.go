package storage

import (
	"context"
	"sync"

	"credrec/internal/host"
	"credrec/pkg/domain"
)

// InMemoryBackend keeps instance storage in process memory. Invocations on
// the same instance are serialized; invocations on different instances run
// concurrently.
type InMemoryBackend struct {
	mu        sync.Mutex
	instances map[domain.InstanceID]*memoryInstance
}

// refs counts invocations holding or waiting on mu and is guarded by the
// backend mutex. An instance with no refs and no data is dropped from the
// map, so reads of unknown instances retain nothing.
type memoryInstance struct {
	mu   sync.Mutex
	refs int
	data map[string][]byte
}

func NewInMemory() *InMemoryBackend {
	return &InMemoryBackend{instances: make(map[domain.InstanceID]*memoryInstance)}
}

// Run holds the instance lock for the whole invocation, so fn sees a stable
// snapshot and its buffered writes are applied only if it succeeds.
func (b *InMemoryBackend) Run(ctx context.Context, instance domain.InstanceID, fn func(ctx context.Context, s host.Storage) error) error {
	inst := b.acquire(instance)
	defer b.release(instance, inst)
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	v := newView(inst.data)
	if err := fn(ctx, v); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, e := range v.pending() {
		inst.data[e.key] = e.value
	}
	return nil
}

// Health always succeeds; memory has no external dependency.
func (b *InMemoryBackend) Health(context.Context) error { return nil }

func (b *InMemoryBackend) acquire(id domain.InstanceID) *memoryInstance {
	b.mu.Lock()
	defer b.mu.Unlock()
	inst, ok := b.instances[id]
	if !ok {
		inst = &memoryInstance{data: make(map[string][]byte)}
		b.instances[id] = inst
	}
	inst.refs++
	return inst
}

func (b *InMemoryBackend) release(id domain.InstanceID, inst *memoryInstance) {
	b.mu.Lock()
	defer b.mu.Unlock()
	inst.refs--
	if inst.refs == 0 && len(inst.data) == 0 {
		delete(b.instances, id)
	}
}

var _ host.Backend = (*InMemoryBackend)(nil)
