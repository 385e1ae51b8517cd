// Package catalog provides the content catalog: a queryable store of
// activity items with predicate finds and CEL candidate filters.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"

	celeval "github.com/okanca/streamgate/internal/catalog/cel"
	"github.com/okanca/streamgate/internal/catalog/physical"
	"github.com/okanca/streamgate/internal/observability"
	"github.com/okanca/streamgate/internal/visibility"
)

var (
	// ErrNotFound indicates the requested item was not found.
	ErrNotFound = errors.New("item not found")

	// ErrInvalidExpression indicates the CEL candidate filter is invalid.
	ErrInvalidExpression = errors.New("invalid CEL expression")
)

// Catalog wraps a physical backend with candidate filtering and
// operation tracking. It satisfies visibility.ContentCatalog.
type Catalog struct {
	backend physical.Backend
	metrics *observability.Metrics
	eval    *celeval.Evaluator
}

// New creates a Catalog over the given backend.
func New(backend physical.Backend, metrics *observability.Metrics) (*Catalog, error) {
	eval, err := celeval.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("create CEL evaluator: %w", err)
	}
	return &Catalog{backend: backend, metrics: metrics, eval: eval}, nil
}

// Put stores one item.
func (c *Catalog) Put(ctx context.Context, item visibility.Item) (err error) {
	op, ctx := observability.StartOperation(ctx, c.metrics, "catalog.put")
	defer func() { op.End(err) }()

	if err = c.backend.Put(ctx, item); err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// PutBatch stores items in one backend write.
func (c *Catalog) PutBatch(ctx context.Context, items []visibility.Item) (err error) {
	op, ctx := observability.StartOperation(ctx, c.metrics, "catalog.put_batch")
	defer func() { op.End(err) }()

	if err = c.backend.PutBatch(ctx, items); err != nil {
		return fmt.Errorf("put batch: %w", err)
	}
	slog.InfoContext(ctx, "items stored", "count", len(items))
	return nil
}

// Get retrieves one item by type and id.
func (c *Catalog) Get(ctx context.Context, target visibility.TargetType, id int64) (item visibility.Item, err error) {
	op, ctx := observability.StartOperation(ctx, c.metrics, "catalog.get")
	defer func() { op.End(err) }()

	item, err = c.backend.Get(ctx, target, id)
	if errors.Is(err, physical.ErrNotFound) {
		return visibility.Item{}, ErrNotFound
	}
	if err != nil {
		return visibility.Item{}, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// Delete removes one item.
func (c *Catalog) Delete(ctx context.Context, target visibility.TargetType, id int64) (err error) {
	op, ctx := observability.StartOperation(ctx, c.metrics, "catalog.delete")
	defer func() { op.End(err) }()

	if err = c.backend.Delete(ctx, target, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// FindIDs returns the ids of one target type matching the predicate.
// A non-empty candidateFilter is compiled as a CEL expression and
// applied to the matches before id collection.
func (c *Catalog) FindIDs(ctx context.Context, target visibility.TargetType, pred visibility.Predicate, candidateFilter string) (ids []int64, err error) {
	op, ctx := observability.StartOperation(ctx, c.metrics, "catalog.find_ids")
	defer func() { op.End(err) }()

	var prg cel.Program
	if candidateFilter != "" {
		prg, err = c.eval.Compile(ctx, candidateFilter)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
		}
	}

	items, err := c.backend.Find(ctx, target, pred)
	if err != nil {
		return nil, fmt.Errorf("find items: %w", err)
	}

	if prg != nil {
		items, err = c.eval.EvalBatch(ctx, prg, items)
		if err != nil {
			return nil, fmt.Errorf("evaluate candidate filter: %w", err)
		}
	}

	ids = make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.TargetID
	}

	slog.DebugContext(ctx, "find completed", "target", target, "result_count", len(ids))
	return ids, nil
}

// Count returns the number of items of one target type.
func (c *Catalog) Count(ctx context.Context, target visibility.TargetType) (count int64, err error) {
	op, ctx := observability.StartOperation(ctx, c.metrics, "catalog.count")
	defer func() { op.End(err) }()

	count, err = c.backend.Count(ctx, target)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

// Stats returns storage statistics.
func (c *Catalog) Stats(ctx context.Context) (stats *physical.Stats, err error) {
	op, ctx := observability.StartOperation(ctx, c.metrics, "catalog.stats")
	defer func() { op.End(err) }()

	return c.backend.Stats(ctx)
}

// Close releases the backend.
func (c *Catalog) Close() error {
	return c.backend.Close()
}
