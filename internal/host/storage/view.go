package storage

import (
	"context"
	"errors"
	"fmt"

	"credrec/internal/host"
	"credrec/pkg/platform/sentinel"
)

var errEmptyKey = errors.New("storage key cannot be empty")

// view is the storage handle for one buffered invocation: the snapshot
// taken when the invocation started plus the invocation's own writes.
// Backends that cannot read through a transaction (memory, redis) use it.
type view struct {
	snapshot map[string][]byte
	writes   map[string][]byte
	order    []string
}

func newView(snapshot map[string][]byte) *view {
	return &view{snapshot: snapshot, writes: make(map[string][]byte)}
}

func (v *view) Get(_ context.Context, key string) ([]byte, error) {
	if value, ok := v.writes[key]; ok {
		return clone(value), nil
	}
	if value, ok := v.snapshot[key]; ok {
		return clone(value), nil
	}
	return nil, fmt.Errorf("key %q: %w", key, sentinel.ErrNotFound)
}

func (v *view) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return errEmptyKey
	}
	if _, seen := v.writes[key]; !seen {
		v.order = append(v.order, key)
	}
	v.writes[key] = clone(value)
	return nil
}

// pending returns buffered writes in first-write order.
func (v *view) pending() []entry {
	out := make([]entry, 0, len(v.order))
	for _, key := range v.order {
		out = append(out, entry{key: key, value: v.writes[key]})
	}
	return out
}

type entry struct {
	key   string
	value []byte
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

var _ host.Storage = (*view)(nil)
