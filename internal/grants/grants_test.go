package grants

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/okanca/streamgate/internal/storage"
	"github.com/okanca/streamgate/internal/visibility"
)

func TestNewSelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, err := New(ctx, "memory", nil)
	if err != nil {
		t.Fatalf("New(memory): %v", err)
	}
	s.Close()

	s, err = New(ctx, "", nil)
	if err != nil {
		t.Fatalf("New(\"\"): %v", err)
	}
	s.Close()

	_, err = New(ctx, "postgres", nil)
	var cfgErr *storage.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("unknown backend error = %v, want ConfigError", err)
	}
}

// sourceTest runs the Source contract against any backend.
func sourceTest(t *testing.T, s Source) {
	t.Helper()
	ctx := context.Background()

	refs := []visibility.GrantRef{
		{Realm: "flexgroup", ID: 12},
		{Realm: "flexgroup", ID: 3},
		{Realm: "community", ID: 1},
	}
	for _, ref := range refs {
		if err := s.Grant(ctx, 42, ref); err != nil {
			t.Fatalf("Grant: %v", err)
		}
	}
	// Granting the same ref twice is a no-op.
	if err := s.Grant(ctx, 42, refs[0]); err != nil {
		t.Fatalf("Grant (duplicate): %v", err)
	}
	if err := s.Grant(ctx, 7, visibility.GrantRef{Realm: "community", ID: 2}); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	set, err := s.GrantsFor(ctx, visibility.Actor{ID: 42})
	if err != nil {
		t.Fatalf("GrantsFor: %v", err)
	}
	if !slices.Equal(set["flexgroup"], []int64{3, 12}) {
		t.Errorf("flexgroup grants = %v, want sorted [3 12]", set["flexgroup"])
	}
	if !slices.Equal(set["community"], []int64{1}) {
		t.Errorf("community grants = %v, want [1]", set["community"])
	}

	if err := s.Revoke(ctx, 42, refs[2]); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := s.Revoke(ctx, 42, visibility.GrantRef{Realm: "nope", ID: 1}); err != nil {
		t.Fatalf("Revoke (missing): %v", err)
	}

	set, err = s.GrantsFor(ctx, visibility.Actor{ID: 42})
	if err != nil {
		t.Fatalf("GrantsFor: %v", err)
	}
	if len(set["community"]) != 0 {
		t.Errorf("community grants after revoke = %v, want none", set["community"])
	}

	// Actor 7's grants are untouched, and unknown actors hold nothing.
	set, err = s.GrantsFor(ctx, visibility.Actor{ID: 7})
	if err != nil {
		t.Fatalf("GrantsFor: %v", err)
	}
	if !slices.Equal(set["community"], []int64{2}) {
		t.Errorf("actor 7 grants = %v, want [2]", set["community"])
	}
	set, err = s.GrantsFor(ctx, visibility.Actor{ID: 99})
	if err != nil {
		t.Fatalf("GrantsFor: %v", err)
	}
	if !set.Empty() {
		t.Errorf("unknown actor grants = %v, want empty", set)
	}
}

func TestMemorySource(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	sourceTest(t, s)
}

func TestSQLiteSource(t *testing.T) {
	s, err := NewSQLite(map[string]string{
		KeyPath: filepath.Join(t.TempDir(), "grants.db"),
	})
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	defer s.Close()
	sourceTest(t, s)
}

func TestSQLiteMissingPath(t *testing.T) {
	_, err := NewSQLite(map[string]string{KeyPath: ""})
	var cfgErr *storage.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("empty path error = %v, want ConfigError", err)
	}
}
