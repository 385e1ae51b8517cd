package visibility

// PostVisibilityCodes maps the post entity's raw numeric visibility
// codes onto tiers. The assignment is configuration, not code: the
// authoritative mapping lives with the post entity's field definition,
// so a corrected mapping ships without a rebuild.
type PostVisibilityCodes struct {
	Public    int64
	Community int64
	GroupOnly int64
	Excluded  int64 // visible to its group, hidden from community views
}

// DefaultPostVisibilityCodes is the mapping observed in the wild.
func DefaultPostVisibilityCodes() PostVisibilityCodes {
	return PostVisibilityCodes{Public: 1, Community: 2, GroupOnly: 0, Excluded: 3}
}

// DefaultBypassRoles are the roles that skip visibility filtering.
func DefaultBypassRoles() []string {
	return []string{"administrator", "contentmanager"}
}

// Context is the resolved per-request input to rule construction: the
// actor, their membership set, and their node-access grants.
type Context struct {
	Actor       Actor
	Memberships MembershipSet
	Grants      GrantSet
}

// Policy is the rule table mapping (scope, target type) to an access
// predicate. Pure: no I/O, no clock, deterministic for equal inputs.
type Policy struct {
	bypassRoles map[string]struct{}
	codes       PostVisibilityCodes
}

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

// WithBypassRoles overrides the roles that short-circuit to full access.
func WithBypassRoles(roles []string) PolicyOption {
	return func(p *Policy) {
		p.bypassRoles = make(map[string]struct{}, len(roles))
		for _, r := range roles {
			p.bypassRoles[r] = struct{}{}
		}
	}
}

// WithPostVisibilityCodes overrides the numeric code mapping.
func WithPostVisibilityCodes(codes PostVisibilityCodes) PolicyOption {
	return func(p *Policy) { p.codes = codes }
}

// NewPolicy builds a policy with the default bypass roles and code map.
func NewPolicy(opts ...PolicyOption) *Policy {
	p := &Policy{codes: DefaultPostVisibilityCodes()}
	WithBypassRoles(DefaultBypassRoles())(p)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Bypasses reports whether the actor holds a role that disables
// filtering entirely.
func (p *Policy) Bypasses(actor Actor) bool {
	return actor.HasAnyRole(p.bypassRoles)
}

// Rule returns the access predicate for one target type under the given
// scope. Unsupported target types yield False: a feed mixing many types
// must hide an unruled type, never error on it.
func (p *Policy) Rule(scope Scope, target TargetType, pc Context) Predicate {
	if p.Bypasses(pc.Actor) {
		return True()
	}
	groups := pc.Memberships.Visible(scope)

	switch target {
	case TargetNode:
		return p.nodeRule(scope, pc, groups)
	case TargetPost:
		return p.postRule(pc, groups)
	case TargetComment:
		return p.commentRule(pc, groups)
	case TargetVote, TargetMention, TargetPrivateMessage,
		TargetQueueStorage, TargetEventEnrollment:
		return recipientOnlyRule(pc.Actor)
	case TargetGroupContent:
		return groupContentRule(pc.Actor, groups)
	}
	return False()
}

// nodeRule delegates to the opaque grant allow list. On the explore
// surface, group-tier nodes posted into a group outside the actor's
// visible set are excluded outright; nodes with no group stay eligible
// for grant evaluation.
func (p *Policy) nodeRule(scope Scope, pc Context, groups GroupSet) Predicate {
	if pc.Grants.Empty() {
		return False()
	}
	granted := FieldInStrings(FieldGrants, pc.Grants.Refs())
	if scope != ScopeExplore {
		return granted
	}
	foreignGroupOnly := And(
		FieldEquals(FieldVisibility, LevelGroup),
		Not(IsNull(FieldGroup)),
		Not(FieldInInts(FieldGroup, groups.IDs())),
	)
	return And(granted, Not(foreignGroupOnly))
}

// postRule applies the numeric visibility tiers: public is permission
// gated, community additionally requires authentication, and
// group-scoped posts require membership in the recipient group (or
// being the direct recipient) and a code other than Excluded.
func (p *Policy) postRule(pc Context, groups GroupSet) Predicate {
	actor := pc.Actor
	if !actor.Can(PermAccessContent) {
		return False()
	}

	var branches []Predicate
	if actor.Can(PermViewPublicPosts) {
		branches = append(branches, FieldEquals(FieldPostVisibility, p.codes.Public))
	}
	// Anonymous actors cannot be direct recipients or group members:
	// only the public tier is reachable for them.
	if !actor.Authenticated {
		return Or(branches...)
	}
	if actor.Can(PermViewCommunityPosts) {
		branches = append(branches, FieldEquals(FieldPostVisibility, p.codes.Community))
	}
	branches = append(branches, And(
		Not(FieldEquals(FieldPostVisibility, p.codes.Excluded)),
		Or(
			FieldEquals(FieldRecipientUser, actor.ID),
			And(
				Not(IsNull(FieldRecipientGroup)),
				FieldInInts(FieldRecipientGroup, groups.IDs()),
			),
		),
	))
	return Or(branches...)
}

// commentRule admits comments with no recipient group to anyone holding
// the comment permission, and group-addressed comments to members.
func (p *Policy) commentRule(pc Context, groups GroupSet) Predicate {
	actor := pc.Actor
	if !actor.Can(PermAccessComments) {
		return False()
	}
	if !actor.Authenticated {
		return IsNull(FieldRecipientGroup)
	}
	return Or(
		IsNull(FieldRecipientGroup),
		FieldInInts(FieldRecipientGroup, groups.IDs()),
	)
}

// recipientOnlyRule covers the for-you-only types: visible solely to
// the addressed user, with no public or community path.
func recipientOnlyRule(actor Actor) Predicate {
	if !actor.Authenticated {
		return False()
	}
	return FieldEquals(FieldRecipientUser, actor.ID)
}

func groupContentRule(actor Actor, groups GroupSet) Predicate {
	if !actor.Authenticated {
		return False()
	}
	return Or(
		FieldEquals(FieldRecipientUser, actor.ID),
		And(
			Not(IsNull(FieldRecipientGroup)),
			FieldInInts(FieldRecipientGroup, groups.IDs()),
		),
	)
}
