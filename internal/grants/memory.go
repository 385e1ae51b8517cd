package grants

import (
	"context"
	"slices"
	"sync"

	"github.com/okanca/streamgate/internal/visibility"
)

// Memory is an in-memory grant source. The anonymous actor's grants are
// stored under actor id 0 like any other.
type Memory struct {
	mu     sync.RWMutex
	grants map[int64]map[visibility.GrantRef]struct{}
}

// NewMemory returns an empty in-memory grant source.
func NewMemory() *Memory {
	return &Memory{grants: make(map[int64]map[visibility.GrantRef]struct{})}
}

func (m *Memory) GrantsFor(_ context.Context, actor visibility.Actor) (visibility.GrantSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := visibility.GrantSet{}
	for ref := range m.grants[actor.ID] {
		set[ref.Realm] = append(set[ref.Realm], ref.ID)
	}
	for realm := range set {
		slices.Sort(set[realm])
	}
	return set, nil
}

func (m *Memory) Grant(_ context.Context, actorID int64, ref visibility.GrantRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	refs, ok := m.grants[actorID]
	if !ok {
		refs = make(map[visibility.GrantRef]struct{})
		m.grants[actorID] = refs
	}
	refs[ref] = struct{}{}
	return nil
}

func (m *Memory) Revoke(_ context.Context, actorID int64, ref visibility.GrantRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if refs, ok := m.grants[actorID]; ok {
		delete(refs, ref)
	}
	return nil
}

func (m *Memory) Close() error { return nil }
