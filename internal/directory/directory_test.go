package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/okanca/streamgate/internal/storage"
)

func TestNewSelectsBackend(t *testing.T) {
	ctx := context.Background()

	d, err := New(ctx, "memory", nil)
	if err != nil {
		t.Fatalf("New(memory): %v", err)
	}
	d.Close()

	// Empty name falls back to memory.
	d, err = New(ctx, "", nil)
	if err != nil {
		t.Fatalf("New(\"\"): %v", err)
	}
	d.Close()

	_, err = New(ctx, "ldap", nil)
	var cfgErr *storage.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("unknown backend error = %v, want ConfigError", err)
	}
}

func TestMemoryMembership(t *testing.T) {
	ctx := context.Background()
	d := NewMemory()

	for _, groupID := range []int64{100, 200} {
		if err := d.AddMember(ctx, groupID, 42); err != nil {
			t.Fatalf("AddMember: %v", err)
		}
	}
	if err := d.AddMember(ctx, 300, 43); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	groups, err := d.GroupsFor(ctx, 42)
	if err != nil {
		t.Fatalf("GroupsFor: %v", err)
	}
	if len(groups) != 2 || !groups.Has(100) || !groups.Has(200) {
		t.Errorf("GroupsFor(42) = %v, want {100, 200}", groups.IDs())
	}

	if err := d.RemoveMember(ctx, 100, 42); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	// Removing from a group the actor never joined is a no-op.
	if err := d.RemoveMember(ctx, 999, 42); err != nil {
		t.Fatalf("RemoveMember (missing): %v", err)
	}

	groups, err = d.GroupsFor(ctx, 42)
	if err != nil {
		t.Fatalf("GroupsFor: %v", err)
	}
	if len(groups) != 1 || !groups.Has(200) {
		t.Errorf("GroupsFor(42) after removal = %v, want {200}", groups.IDs())
	}

	groups, err = d.GroupsFor(ctx, 99)
	if err != nil {
		t.Fatalf("GroupsFor: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("GroupsFor(99) = %v, want empty", groups.IDs())
	}
}

func TestMemoryOpenGroups(t *testing.T) {
	ctx := context.Background()
	d := NewMemory()

	if err := d.SetOpen(ctx, 300, true); err != nil {
		t.Fatalf("SetOpen: %v", err)
	}
	if err := d.SetOpen(ctx, 400, true); err != nil {
		t.Fatalf("SetOpen: %v", err)
	}
	if err := d.SetOpen(ctx, 400, false); err != nil {
		t.Fatalf("SetOpen(false): %v", err)
	}

	open, err := d.OpenGroups(ctx)
	if err != nil {
		t.Fatalf("OpenGroups: %v", err)
	}
	if len(open) != 1 || !open.Has(300) {
		t.Errorf("OpenGroups = %v, want {300}", open.IDs())
	}
}
