// Package memory provides an in-memory catalog backend for testing and
// small deployments.
package memory

import (
	"context"
	"sync"

	"github.com/okanca/streamgate/internal/catalog/physical"
	"github.com/okanca/streamgate/internal/visibility"
)

func init() {
	physical.Register("memory", NewFactory, Defaults)
}

// Defaults returns the default configuration for the memory backend.
func Defaults() map[string]string {
	return map[string]string{}
}

// NewFactory creates a new in-memory backend.
func NewFactory(_ context.Context, _ map[string]string) (physical.Backend, error) {
	return New(), nil
}

type key struct {
	target visibility.TargetType
	id     int64
}

// Backend is a map-backed catalog. Predicates are evaluated in-process
// against each item of the requested type.
type Backend struct {
	mu     sync.RWMutex
	items  map[key]visibility.Item
	closed bool
}

// New returns an empty in-memory backend.
func New() *Backend {
	return &Backend{items: make(map[key]visibility.Item)}
}

func (b *Backend) Put(_ context.Context, item visibility.Item) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return physical.ErrClosed
	}
	b.items[key{item.Target, item.TargetID}] = item
	return nil
}

func (b *Backend) PutBatch(ctx context.Context, items []visibility.Item) error {
	for _, item := range items {
		if err := b.Put(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) Get(_ context.Context, target visibility.TargetType, id int64) (visibility.Item, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return visibility.Item{}, physical.ErrClosed
	}
	item, ok := b.items[key{target, id}]
	if !ok {
		return visibility.Item{}, physical.ErrNotFound
	}
	return item, nil
}

func (b *Backend) Delete(_ context.Context, target visibility.TargetType, id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return physical.ErrClosed
	}
	delete(b.items, key{target, id})
	return nil
}

func (b *Backend) Find(ctx context.Context, target visibility.TargetType, pred visibility.Predicate) ([]visibility.Item, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, physical.ErrClosed
	}
	var matches []visibility.Item
	for k, item := range b.items {
		if k.target != target {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if pred.Eval(item) {
			matches = append(matches, item)
		}
	}
	return matches, nil
}

func (b *Backend) Count(_ context.Context, target visibility.TargetType) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0, physical.ErrClosed
	}
	var n int64
	for k := range b.items {
		if k.target == target {
			n++
		}
	}
	return n, nil
}

func (b *Backend) Stats(_ context.Context) (*physical.Stats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, physical.ErrClosed
	}
	return &physical.Stats{Items: int64(len(b.items)), BackendType: "memory"}, nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
