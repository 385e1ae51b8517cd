package visibility

// Permission names consumed by the policy rules. Collaborating systems
// assign these to actors; the resolver only tests for presence.
const (
	PermAccessContent      = "access content"
	PermViewPublicPosts    = "view public posts"
	PermViewCommunityPosts = "view community posts"
	PermAccessComments     = "access comments"
)

// AnonymousID is the actor id of the anonymous user.
const AnonymousID int64 = 0

// Actor is the viewer a resolution runs for. Immutable per request.
type Actor struct {
	ID            int64
	Authenticated bool
	Permissions   map[string]struct{}
	Roles         map[string]struct{}
}

// Anonymous returns the unauthenticated actor with the given permissions.
func Anonymous(perms ...string) Actor {
	return Actor{ID: AnonymousID, Permissions: permSet(perms)}
}

// NewActor returns an authenticated actor with the given permissions.
func NewActor(id int64, perms ...string) Actor {
	return Actor{ID: id, Authenticated: true, Permissions: permSet(perms)}
}

// WithRoles returns a copy of the actor with the given roles added.
func (a Actor) WithRoles(roles ...string) Actor {
	rs := make(map[string]struct{}, len(a.Roles)+len(roles))
	for r := range a.Roles {
		rs[r] = struct{}{}
	}
	for _, r := range roles {
		rs[r] = struct{}{}
	}
	a.Roles = rs
	return a
}

// Can reports whether the actor holds the named permission.
func (a Actor) Can(perm string) bool {
	_, ok := a.Permissions[perm]
	return ok
}

// HasAnyRole reports whether the actor holds any of the given roles.
func (a Actor) HasAnyRole(roles map[string]struct{}) bool {
	for r := range a.Roles {
		if _, ok := roles[r]; ok {
			return true
		}
	}
	return false
}

func permSet(perms []string) map[string]struct{} {
	s := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}
