// Package directory provides membership directory implementations: the
// group-membership lookups the visibility resolver depends on.
package directory

import (
	"context"
	"fmt"
	"io"

	"github.com/okanca/streamgate/internal/storage"
	"github.com/okanca/streamgate/internal/visibility"
)

// Directory extends the resolver-facing interface with the write side
// used by fixture loading and administration.
type Directory interface {
	visibility.MembershipDirectory

	AddMember(ctx context.Context, groupID, actorID int64) error
	RemoveMember(ctx context.Context, groupID, actorID int64) error
	SetOpen(ctx context.Context, groupID int64, open bool) error

	io.Closer
}

// New creates a directory backend by name.
func New(_ context.Context, name string, config map[string]string) (Directory, error) {
	switch name {
	case "memory", "":
		return NewMemory(), nil
	case "redis":
		return NewRedis(config)
	}
	return nil, storage.NewConfigError(name, "", fmt.Sprintf("unknown directory backend %q (available: [memory redis])", name))
}
