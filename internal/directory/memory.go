package directory

import (
	"context"
	"sync"

	"github.com/okanca/streamgate/internal/visibility"
)

// Memory is an in-memory directory: group -> member set plus the open
// group set.
type Memory struct {
	mu      sync.RWMutex
	members map[int64]map[int64]struct{}
	open    map[int64]struct{}
}

// NewMemory returns an empty in-memory directory.
func NewMemory() *Memory {
	return &Memory{
		members: make(map[int64]map[int64]struct{}),
		open:    make(map[int64]struct{}),
	}
}

func (m *Memory) GroupsFor(_ context.Context, actorID int64) (visibility.GroupSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	groups := visibility.GroupSet{}
	for groupID, mems := range m.members {
		if _, ok := mems[actorID]; ok {
			groups[groupID] = struct{}{}
		}
	}
	return groups, nil
}

func (m *Memory) OpenGroups(_ context.Context) (visibility.GroupSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	open := make(visibility.GroupSet, len(m.open))
	for groupID := range m.open {
		open[groupID] = struct{}{}
	}
	return open, nil
}

func (m *Memory) AddMember(_ context.Context, groupID, actorID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mems, ok := m.members[groupID]
	if !ok {
		mems = make(map[int64]struct{})
		m.members[groupID] = mems
	}
	mems[actorID] = struct{}{}
	return nil
}

func (m *Memory) RemoveMember(_ context.Context, groupID, actorID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mems, ok := m.members[groupID]; ok {
		delete(mems, actorID)
	}
	return nil
}

func (m *Memory) SetOpen(_ context.Context, groupID int64, open bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if open {
		m.open[groupID] = struct{}{}
	} else {
		delete(m.open, groupID)
	}
	return nil
}

func (m *Memory) Close() error { return nil }
