package visibility

import (
	"context"
	"fmt"
	"slices"
)

// GroupSet is a set of group ids.
type GroupSet map[int64]struct{}

// NewGroupSet builds a set from ids.
func NewGroupSet(ids ...int64) GroupSet {
	s := make(GroupSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership of id.
func (s GroupSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the set's ids in ascending order.
func (s GroupSet) IDs() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Union returns a new set holding both sets' ids.
func (s GroupSet) Union(other GroupSet) GroupSet {
	u := make(GroupSet, len(s)+len(other))
	for id := range s {
		u[id] = struct{}{}
	}
	for id := range other {
		u[id] = struct{}{}
	}
	return u
}

// MembershipSet is an actor's group context, derived once per request
// and never mutated afterward.
type MembershipSet struct {
	MemberOf   GroupSet
	OpenGroups GroupSet
}

// Visible returns the group set the given scope treats as accessible.
// Explore and notification surfaces admit open groups for non-members;
// stream and homepage are membership-exact. Getting this union wrong
// either leaks group activity or falsely hides it.
func (m MembershipSet) Visible(scope Scope) GroupSet {
	switch scope {
	case ScopeExplore, ScopeNotification:
		return m.MemberOf.Union(m.OpenGroups)
	default:
		return m.MemberOf
	}
}

// MembershipDirectory is the external group-membership lookup.
type MembershipDirectory interface {
	// GroupsFor returns the ids of groups the actor belongs to.
	GroupsFor(ctx context.Context, actorID int64) (GroupSet, error)
	// OpenGroups returns the ids of groups visible to non-members.
	OpenGroups(ctx context.Context) (GroupSet, error)
}

// GrantSource is the external node-access grant lookup. The returned
// allow list is opaque to the resolver.
type GrantSource interface {
	GrantsFor(ctx context.Context, actor Actor) (GrantSet, error)
}

// ContentCatalog materializes the ids matching a predicate for one
// target type. Which rows exist is the catalog's responsibility; the
// candidateFilter is an optional store-level expression narrowing the
// candidate universe before the predicate applies.
type ContentCatalog interface {
	FindIDs(ctx context.Context, target TargetType, pred Predicate, candidateFilter string) ([]int64, error)
}

// ResolveMembership fetches the actor's membership set from the
// directory. Anonymous actors belong to no groups but still see open
// groups on the scopes that admit them.
func ResolveMembership(ctx context.Context, dir MembershipDirectory, actor Actor) (MembershipSet, error) {
	open, err := dir.OpenGroups(ctx)
	if err != nil {
		return MembershipSet{}, fmt.Errorf("open groups: %w", err)
	}
	if !actor.Authenticated {
		return MembershipSet{MemberOf: GroupSet{}, OpenGroups: open}, nil
	}
	member, err := dir.GroupsFor(ctx, actor.ID)
	if err != nil {
		return MembershipSet{}, fmt.Errorf("groups for actor %d: %w", actor.ID, err)
	}
	return MembershipSet{MemberOf: member, OpenGroups: open}, nil
}
