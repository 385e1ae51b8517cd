package visibility

import (
	"fmt"
	"strconv"
	"strings"
)

// Field names shared between predicate construction, in-process
// evaluation, and catalog backends.
const (
	FieldTargetType     = "target_type"
	FieldVisibility     = "visibility"
	FieldPostVisibility = "post_visibility"
	FieldRecipientUser  = "recipient_user"
	FieldRecipientGroup = "recipient_group"
	FieldGroup          = "group"
	FieldGrants         = "grants"
)

// GrantRef is an opaque node-access grant issued by the host content
// store: a realm name plus a grant id within that realm.
type GrantRef struct {
	Realm string
	ID    int64
}

func (g GrantRef) String() string {
	return g.Realm + ":" + strconv.FormatInt(g.ID, 10)
}

// ParseGrantRef parses a "realm:id" grant reference.
func ParseGrantRef(s string) (GrantRef, error) {
	realm, idStr, ok := strings.Cut(s, ":")
	if !ok || realm == "" {
		return GrantRef{}, fmt.Errorf("malformed grant ref %q", s)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return GrantRef{}, fmt.Errorf("malformed grant ref %q: %w", s, err)
	}
	return GrantRef{Realm: realm, ID: id}, nil
}

// GrantSet is the realm-to-grant-id allow list an actor holds, consumed
// as a black box from the grant source.
type GrantSet map[string][]int64

// Refs flattens the set into "realm:id" strings for predicate matching.
func (g GrantSet) Refs() []string {
	var refs []string
	for realm, ids := range g {
		for _, id := range ids {
			refs = append(refs, GrantRef{Realm: realm, ID: id}.String())
		}
	}
	return refs
}

// Empty reports whether the set holds no grants at all.
func (g GrantSet) Empty() bool {
	for _, ids := range g {
		if len(ids) > 0 {
			return false
		}
	}
	return true
}

// Item is an activity item under evaluation: a typed target plus the
// recipient and audience fields the policy rules read. Missing optional
// fields evaluate as null, never as an error.
type Item struct {
	Target         TargetType
	TargetID       int64
	RecipientUser  *int64
	RecipientGroup *int64
	Group          *int64 // group the target was posted into, if any
	Visibility     Level  // node-tier audience, empty if not node-scoped
	PostVisibility *int64 // raw post visibility code
	Grants         []GrantRef
}

// Field returns the named field's value and whether it is set,
// implementing FieldView for in-process predicate evaluation.
func (it Item) Field(name string) (any, bool) {
	switch name {
	case FieldTargetType:
		return string(it.Target), true
	case FieldVisibility:
		if it.Visibility == "" {
			return nil, false
		}
		return string(it.Visibility), true
	case FieldPostVisibility:
		if it.PostVisibility == nil {
			return nil, false
		}
		return *it.PostVisibility, true
	case FieldRecipientUser:
		if it.RecipientUser == nil {
			return nil, false
		}
		return *it.RecipientUser, true
	case FieldRecipientGroup:
		if it.RecipientGroup == nil {
			return nil, false
		}
		return *it.RecipientGroup, true
	case FieldGroup:
		if it.Group == nil {
			return nil, false
		}
		return *it.Group, true
	case FieldGrants:
		if len(it.Grants) == 0 {
			return nil, false
		}
		vals := make([]any, len(it.Grants))
		for i, g := range it.Grants {
			vals[i] = g.String()
		}
		return vals, true
	}
	return nil, false
}
