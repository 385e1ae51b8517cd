package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/okanca/streamgate/internal/catalog/physical"
	"github.com/okanca/streamgate/internal/storage"
	"github.com/okanca/streamgate/internal/visibility"
)

func i64(v int64) *int64 { return &v }

func newTestBackend(t *testing.T) physical.Backend {
	t.Helper()
	b, err := NewFactory(context.Background(), map[string]string{
		KeyPath: filepath.Join(t.TempDir(), "catalog.db"),
	})
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestRegistered(t *testing.T) {
	if !physical.IsRegistered("sqlite") {
		t.Error("sqlite backend should self-register")
	}
}

func TestMissingPath(t *testing.T) {
	_, err := NewFactory(context.Background(), map[string]string{KeyPath: ""})
	var cfgErr *storage.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("empty path error = %v, want ConfigError", err)
	}
}

func TestRoundtrip(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	item := visibility.Item{
		Target:         visibility.TargetNode,
		TargetID:       7,
		Visibility:     visibility.LevelGroup,
		Group:          i64(500),
		PostVisibility: nil,
		Grants: []visibility.GrantRef{
			{Realm: "flexgroup", ID: 500},
			{Realm: "community", ID: 1},
		},
	}
	if err := b.Put(ctx, item); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := b.Get(ctx, visibility.TargetNode, 7)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Visibility != visibility.LevelGroup {
		t.Errorf("visibility = %q, want group", got.Visibility)
	}
	if got.Group == nil || *got.Group != 500 {
		t.Errorf("group = %v, want 500", got.Group)
	}
	if got.PostVisibility != nil {
		t.Errorf("post_visibility = %v, want nil", got.PostVisibility)
	}
	if len(got.Grants) != 2 {
		t.Fatalf("grants = %v, want 2 refs", got.Grants)
	}

	// Upsert replaces fields and grants.
	item.Group = nil
	item.Grants = []visibility.GrantRef{{Realm: "community", ID: 2}}
	if err := b.Put(ctx, item); err != nil {
		t.Fatalf("Put (upsert): %v", err)
	}
	got, err = b.Get(ctx, visibility.TargetNode, 7)
	if err != nil {
		t.Fatalf("Get after upsert: %v", err)
	}
	if got.Group != nil {
		t.Errorf("group after upsert = %v, want nil", got.Group)
	}
	if len(got.Grants) != 1 || got.Grants[0].String() != "community:2" {
		t.Errorf("grants after upsert = %v, want [community:2]", got.Grants)
	}

	if _, err := b.Get(ctx, visibility.TargetNode, 8); !errors.Is(err, physical.ErrNotFound) {
		t.Errorf("missing item error = %v, want ErrNotFound", err)
	}
}

// TestFindMatchesInProcessEvaluation renders a battery of predicates to
// SQL and checks the row sets agree exactly with the in-process
// evaluator. Negation over NULL columns is the case most worth catching:
// SQL three-valued logic would silently drop rows the evaluator admits.
func TestFindMatchesInProcessEvaluation(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	universe := []visibility.Item{
		{Target: visibility.TargetPost, TargetID: 1, PostVisibility: i64(1)},
		{Target: visibility.TargetPost, TargetID: 2, PostVisibility: i64(2)},
		{Target: visibility.TargetPost, TargetID: 3, PostVisibility: i64(0), RecipientGroup: i64(100)},
		{Target: visibility.TargetPost, TargetID: 4, PostVisibility: i64(3), RecipientGroup: i64(100)},
		{Target: visibility.TargetPost, TargetID: 5}, // all optionals null
		{Target: visibility.TargetPost, TargetID: 6, RecipientUser: i64(42)},
		{Target: visibility.TargetPost, TargetID: 7, Grants: []visibility.GrantRef{{Realm: "community", ID: 1}}},
		{Target: visibility.TargetPost, TargetID: 8, Grants: []visibility.GrantRef{{Realm: "flexgroup", ID: 3}}},
	}
	if err := b.PutBatch(ctx, universe); err != nil {
		t.Fatalf("PutBatch: %v", err)
	}

	preds := []visibility.Predicate{
		visibility.True(),
		visibility.FieldEquals(visibility.FieldPostVisibility, 1),
		visibility.Not(visibility.FieldEquals(visibility.FieldPostVisibility, 3)),
		visibility.FieldInInts(visibility.FieldPostVisibility, []int64{1, 2}),
		visibility.IsNull(visibility.FieldRecipientGroup),
		visibility.Not(visibility.IsNull(visibility.FieldRecipientGroup)),
		visibility.And(
			visibility.Not(visibility.FieldEquals(visibility.FieldPostVisibility, 3)),
			visibility.Or(
				visibility.FieldEquals(visibility.FieldRecipientUser, 42),
				visibility.FieldInInts(visibility.FieldRecipientGroup, []int64{100}),
			),
		),
		visibility.FieldInStrings(visibility.FieldGrants, []string{"community:1"}),
		visibility.FieldInStrings(visibility.FieldGrants, []string{"community:1", "flexgroup:3"}),
		visibility.Not(visibility.FieldInStrings(visibility.FieldGrants, []string{"community:1"})),
		visibility.IsNull(visibility.FieldGrants),
		visibility.FieldEquals(visibility.FieldGrants, "flexgroup:3"),
	}

	for _, pred := range preds {
		items, err := b.Find(ctx, visibility.TargetPost, pred)
		if err != nil {
			t.Fatalf("Find(%s): %v", pred, err)
		}
		var got []int64
		for _, item := range items {
			got = append(got, item.TargetID)
		}

		var want []int64
		for _, item := range universe {
			if pred.Eval(item) {
				want = append(want, item.TargetID)
			}
		}
		slices.Sort(want)

		if !slices.Equal(got, want) {
			t.Errorf("Find(%s) = %v, in-process eval gives %v", pred, got, want)
		}
	}
}

func TestFindReturnsSortedIDs(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	for _, id := range []int64{5, 1, 3} {
		if err := b.Put(ctx, visibility.Item{Target: visibility.TargetPost, TargetID: id}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	items, err := b.Find(ctx, visibility.TargetPost, visibility.True())
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	var ids []int64
	for _, item := range items {
		ids = append(ids, item.TargetID)
	}
	if !slices.IsSorted(ids) {
		t.Errorf("Find should order by target_id, got %v", ids)
	}
}

func TestDeleteCascadesGrants(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	item := visibility.Item{
		Target: visibility.TargetPost, TargetID: 1,
		Grants: []visibility.GrantRef{{Realm: "community", ID: 1}},
	}
	if err := b.Put(ctx, item); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := b.Delete(ctx, visibility.TargetPost, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// Re-inserting without grants must not resurrect the old refs.
	if err := b.Put(ctx, visibility.Item{Target: visibility.TargetPost, TargetID: 1}); err != nil {
		t.Fatalf("Put after delete: %v", err)
	}
	got, err := b.Get(ctx, visibility.TargetPost, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Grants) != 0 {
		t.Errorf("grants should be gone after delete, got %v", got.Grants)
	}
}

func TestCountAndStats(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	if err := b.PutBatch(ctx, []visibility.Item{
		{Target: visibility.TargetPost, TargetID: 1},
		{Target: visibility.TargetPost, TargetID: 2},
		{Target: visibility.TargetComment, TargetID: 3},
	}); err != nil {
		t.Fatalf("PutBatch: %v", err)
	}

	count, err := b.Count(ctx, visibility.TargetPost)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Errorf("Count = %d, want 2", count)
	}

	stats, err := b.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Items != 3 || stats.BackendType != "sqlite" {
		t.Errorf("Stats = %+v, want 3 items on sqlite", stats)
	}
}

func TestClosedBackend(t *testing.T) {
	b := newTestBackend(t)
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := b.Put(context.Background(), visibility.Item{Target: visibility.TargetPost, TargetID: 1}); !errors.Is(err, physical.ErrClosed) {
		t.Errorf("Put after close = %v, want ErrClosed", err)
	}
}
