package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

type shutdownEntry struct {
	name string
	fn   func(context.Context) error
}

// ShutdownCoordinator collects named teardown handlers and runs them
// in reverse registration order, so dependents close before the things
// they depend on.
type ShutdownCoordinator struct {
	mu      sync.Mutex
	entries []shutdownEntry
}

// Register appends a handler. Safe for concurrent use.
func (s *ShutdownCoordinator) Register(name string, fn func(context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, shutdownEntry{name: name, fn: fn})
}

// Shutdown runs every handler LIFO. All handlers run even when some
// fail; the failures come back joined.
func (s *ShutdownCoordinator) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	entries := make([]shutdownEntry, len(s.entries))
	copy(entries, s.entries)
	s.mu.Unlock()

	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		slog.Info("shutting down", "component", e.name)
		if err := e.fn(ctx); err != nil {
			slog.Error("shutdown error", "component", e.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
		}
	}
	return errors.Join(errs...)
}
