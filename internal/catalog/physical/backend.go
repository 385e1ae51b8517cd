// Package physical provides the physical storage backend interface for
// the content catalog.
package physical

import (
	"context"
	"errors"

	"github.com/okanca/streamgate/internal/visibility"
)

var (
	// ErrNotFound indicates the requested item was not found.
	ErrNotFound = errors.New("item not found")

	// ErrClosed indicates the backend has been closed.
	ErrClosed = errors.New("backend closed")
)

// Stats contains storage statistics.
type Stats struct {
	Items       int64
	BackendType string
}

// Backend is the physical storage interface for catalog items. Items
// are keyed by (target type, target id). All implementations must be
// thread-safe.
type Backend interface {
	Put(ctx context.Context, item visibility.Item) error
	PutBatch(ctx context.Context, items []visibility.Item) error
	Get(ctx context.Context, target visibility.TargetType, id int64) (visibility.Item, error)
	Delete(ctx context.Context, target visibility.TargetType, id int64) error
	// Find returns the items of one target type matching the predicate.
	Find(ctx context.Context, target visibility.TargetType, pred visibility.Predicate) ([]visibility.Item, error)
	Count(ctx context.Context, target visibility.TargetType) (int64, error)
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}
