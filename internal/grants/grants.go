// Package grants provides node-access grant sources. Grants are opaque
// realm/id pairs computed by the host content store; the resolver only
// consumes them as an allow list.
package grants

import (
	"context"
	"fmt"
	"io"

	"github.com/okanca/streamgate/internal/storage"
	"github.com/okanca/streamgate/internal/visibility"
)

// Source extends the resolver-facing grant lookup with the write side
// used by fixture loading.
type Source interface {
	visibility.GrantSource

	Grant(ctx context.Context, actorID int64, ref visibility.GrantRef) error
	Revoke(ctx context.Context, actorID int64, ref visibility.GrantRef) error

	io.Closer
}

// New creates a grant source backend by name.
func New(_ context.Context, name string, config map[string]string) (Source, error) {
	switch name {
	case "memory", "":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(config)
	}
	return nil, storage.NewConfigError(name, "", fmt.Sprintf("unknown grant backend %q (available: [memory sqlite])", name))
}
