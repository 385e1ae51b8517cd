// Package visibility resolves activity-stream access: which activity
// items an actor may see on a given surface, either checked per item or
// precomputed as per-target-type id sets for bulk feed queries.
package visibility

// Scope identifies the surface a feed is built for. Each scope selects
// a rule variant; the main behavioral difference is whether open groups
// count as visible alongside the actor's own memberships.
type Scope string

const (
	ScopeStream       Scope = "stream"
	ScopeNotification Scope = "notification"
	ScopeHomepage     Scope = "homepage"
	ScopeExplore      Scope = "explore"
)

// Scopes lists all supported scopes.
func Scopes() []Scope {
	return []Scope{ScopeStream, ScopeNotification, ScopeHomepage, ScopeExplore}
}

// ParseScope maps a scope name to a Scope. Unknown names return false.
func ParseScope(s string) (Scope, bool) {
	switch Scope(s) {
	case ScopeStream, ScopeNotification, ScopeHomepage, ScopeExplore:
		return Scope(s), true
	}
	return "", false
}

// TargetType is the kind of entity an activity item points at.
type TargetType string

const (
	TargetNode            TargetType = "node"
	TargetPost            TargetType = "post"
	TargetComment         TargetType = "comment"
	TargetVote            TargetType = "vote"
	TargetMention         TargetType = "mention"
	TargetPrivateMessage  TargetType = "private_message"
	TargetQueueStorage    TargetType = "queue_storage_entity"
	TargetEventEnrollment TargetType = "event_enrollment"
	TargetGroupContent    TargetType = "group_content"
)

// TargetTypes lists every target type with a policy rule, in stable order.
func TargetTypes() []TargetType {
	return []TargetType{
		TargetNode, TargetPost, TargetComment, TargetVote, TargetMention,
		TargetPrivateMessage, TargetQueueStorage, TargetEventEnrollment,
		TargetGroupContent,
	}
}

// Level is the declared audience breadth of node-scoped content.
// Ordering: LevelGroup < LevelCommunity < LevelPublic; anything visible
// at the group tier is also visible at the wider tiers.
type Level string

const (
	LevelGroup     Level = "group"
	LevelCommunity Level = "community"
	LevelPublic    Level = "public"
)
