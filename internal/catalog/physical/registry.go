package physical

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/okanca/streamgate/internal/observability"
	"github.com/okanca/streamgate/internal/storage"
)

// Factory builds a backend from its merged configuration map.
type Factory func(ctx context.Context, config map[string]string) (Backend, error)

// DefaultsFunc reports a backend's default configuration, shown by the
// backends command and merged under user config at construction.
type DefaultsFunc func() map[string]string

type registration struct {
	factory  Factory
	defaults DefaultsFunc
}

var (
	registryMu sync.RWMutex
	registry   = map[string]registration{}
)

// Register installs a backend under name. Backends call this from
// init; a duplicate name is a programming error and panics.
func Register(name string, factory Factory, defaults DefaultsFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("catalog backend %q already registered", name))
	}
	registry[name] = registration{factory: factory, defaults: defaults}
}

// IsRegistered reports whether name is a known backend.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// ListBackends returns the registered backend names, sorted.
func ListBackends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// GetDefaults returns name's default configuration, or nil for an
// unknown backend.
func GetDefaults(name string) map[string]string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[name]
	if !ok || reg.defaults == nil {
		return nil
	}
	return reg.defaults()
}

// New constructs the named backend, layering config over the backend's
// defaults.
func New(ctx context.Context, name string, config map[string]string, metrics *observability.Metrics) (b Backend, err error) {
	op, ctx := observability.StartOperation(ctx, metrics, "catalog.physical.new")
	defer func() { op.End(err) }()

	registryMu.RLock()
	reg, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		err = storage.NewConfigError(name, "", fmt.Sprintf("unknown catalog backend %q (available: %v)", name, ListBackends()))
		return nil, err
	}

	var defaults map[string]string
	if reg.defaults != nil {
		defaults = reg.defaults()
	}
	b, err = reg.factory(ctx, storage.MergeConfig(defaults, config))
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "catalog backend created", "backend", name)
	return b, nil
}
