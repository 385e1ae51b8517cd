package visibility

import "testing"

func memberCtx(actor Actor, memberOf, open GroupSet, grants GrantSet) Context {
	return Context{
		Actor:       actor,
		Memberships: MembershipSet{MemberOf: memberOf, OpenGroups: open},
		Grants:      grants,
	}
}

func allPerms() []string {
	return []string{
		PermAccessContent, PermViewPublicPosts,
		PermViewCommunityPosts, PermAccessComments,
	}
}

func anonPerms() []string {
	return []string{PermAccessContent, PermViewPublicPosts, PermAccessComments}
}

func evalRule(t *testing.T, p *Policy, scope Scope, pc Context, item Item) bool {
	t.Helper()
	return p.Rule(scope, item.Target, pc).Eval(item)
}

func TestAnonymousSeesPublicPosts(t *testing.T) {
	p := NewPolicy()
	pc := memberCtx(Anonymous(anonPerms()...), nil, nil, nil)

	public := Item{Target: TargetPost, TargetID: 1, PostVisibility: i64(1)}
	community := Item{Target: TargetPost, TargetID: 2, PostVisibility: i64(2)}

	if !evalRule(t, p, ScopeExplore, pc, public) {
		t.Error("anonymous should see public posts")
	}
	if evalRule(t, p, ScopeExplore, pc, community) {
		t.Error("anonymous should not see community posts")
	}
}

func TestAnonymousWithoutContentPermissionSeesNothing(t *testing.T) {
	p := NewPolicy()
	pc := memberCtx(Anonymous(PermViewPublicPosts), nil, nil, nil)

	if !p.Rule(ScopeExplore, TargetPost, pc).IsFalse() {
		t.Error("post rule without the content permission should be False")
	}
}

func TestCommunityPostsRequireAuthentication(t *testing.T) {
	p := NewPolicy()
	community := Item{Target: TargetPost, TargetID: 2, PostVisibility: i64(2)}

	auth := memberCtx(NewActor(42, allPerms()...), nil, nil, nil)
	if !evalRule(t, p, ScopeStream, auth, community) {
		t.Error("authenticated actor with community permission should see community posts")
	}

	// Authenticated but lacking the community permission.
	limited := memberCtx(NewActor(43, PermAccessContent, PermViewPublicPosts), nil, nil, nil)
	if evalRule(t, p, ScopeStream, limited, community) {
		t.Error("actor without community permission should not see community posts")
	}
}

func TestGroupOnlyPostRequiresMembership(t *testing.T) {
	p := NewPolicy()
	groupPost := Item{Target: TargetPost, TargetID: 3, PostVisibility: i64(0), RecipientGroup: i64(100)}

	member := memberCtx(NewActor(42, allPerms()...), NewGroupSet(100), nil, nil)
	if !evalRule(t, p, ScopeStream, member, groupPost) {
		t.Error("group member should see group-only posts")
	}

	outsider := memberCtx(NewActor(43, allPerms()...), NewGroupSet(200), nil, nil)
	if evalRule(t, p, ScopeStream, outsider, groupPost) {
		t.Error("non-member should not see group-only posts")
	}
}

func TestDirectRecipientSeesGroupTierPost(t *testing.T) {
	p := NewPolicy()
	direct := Item{Target: TargetPost, TargetID: 4, PostVisibility: i64(0), RecipientUser: i64(42)}

	pc := memberCtx(NewActor(42, allPerms()...), nil, nil, nil)
	if !evalRule(t, p, ScopeStream, pc, direct) {
		t.Error("direct recipient should see the post without group membership")
	}

	other := memberCtx(NewActor(7, allPerms()...), nil, nil, nil)
	if evalRule(t, p, ScopeStream, other, direct) {
		t.Error("non-recipient should not see a direct post")
	}
}

func TestExcludedCodeBlocksGroupBranch(t *testing.T) {
	p := NewPolicy()
	excluded := Item{Target: TargetPost, TargetID: 5, PostVisibility: i64(3), RecipientGroup: i64(100)}

	member := memberCtx(NewActor(42, allPerms()...), NewGroupSet(100), nil, nil)
	if evalRule(t, p, ScopeStream, member, excluded) {
		t.Error("the excluded code should not be reachable through the group branch")
	}
}

func TestOpenGroupScopeDistinction(t *testing.T) {
	p := NewPolicy()
	// Group-only post in an open group the actor does not belong to.
	post := Item{Target: TargetPost, TargetID: 6, PostVisibility: i64(0), RecipientGroup: i64(300)}
	pc := memberCtx(
		NewActor(42, PermAccessContent), // no public/community perms, group branch only
		NewGroupSet(100),
		NewGroupSet(300),
		nil,
	)

	if evalRule(t, p, ScopeStream, pc, post) {
		t.Error("open groups should not count on the stream scope")
	}
	if evalRule(t, p, ScopeHomepage, pc, post) {
		t.Error("open groups should not count on the homepage scope")
	}
	if !evalRule(t, p, ScopeExplore, pc, post) {
		t.Error("open groups should count on the explore scope")
	}
	if !evalRule(t, p, ScopeNotification, pc, post) {
		t.Error("open groups should count on the notification scope")
	}
}

func TestNodeRuleDelegatesToGrants(t *testing.T) {
	p := NewPolicy()
	node := Item{
		Target: TargetNode, TargetID: 10,
		Visibility: LevelCommunity,
		Grants:     []GrantRef{{Realm: "community", ID: 1}},
	}

	granted := memberCtx(NewActor(42), nil, nil, GrantSet{"community": {1}})
	if !evalRule(t, p, ScopeStream, granted, node) {
		t.Error("a matching grant should admit the node")
	}

	ungranted := memberCtx(NewActor(43), nil, nil, GrantSet{"community": {2}})
	if evalRule(t, p, ScopeStream, ungranted, node) {
		t.Error("without a matching grant the node should be hidden")
	}

	// No grants at all: rule collapses to False.
	if !p.Rule(ScopeStream, TargetNode, memberCtx(NewActor(44), nil, nil, nil)).IsFalse() {
		t.Error("empty grant set should yield a False node rule")
	}
}

func TestExploreHidesForeignGroupNodes(t *testing.T) {
	p := NewPolicy()
	// Group-tier node posted into group 500; the actor holds a grant
	// for it but is not a member.
	node := Item{
		Target: TargetNode, TargetID: 11,
		Visibility: LevelGroup,
		Group:      i64(500),
		Grants:     []GrantRef{{Realm: "flexgroup", ID: 500}},
	}
	pc := memberCtx(NewActor(42), NewGroupSet(100), nil, GrantSet{"flexgroup": {500}})

	if evalRule(t, p, ScopeExplore, pc, node) {
		t.Error("explore should hide group-tier nodes from foreign groups even when granted")
	}
	if !evalRule(t, p, ScopeStream, pc, node) {
		t.Error("stream should admit the node on the grant alone")
	}

	// A group-tier node with no group set stays grant-eligible on explore.
	ungrouped := Item{
		Target: TargetNode, TargetID: 12,
		Visibility: LevelGroup,
		Grants:     []GrantRef{{Realm: "flexgroup", ID: 500}},
	}
	if !evalRule(t, p, ScopeExplore, pc, ungrouped) {
		t.Error("a group-tier node without a group should stay eligible on explore")
	}

	// Membership restores explore visibility.
	memberPC := memberCtx(NewActor(42), NewGroupSet(500), nil, GrantSet{"flexgroup": {500}})
	if !evalRule(t, p, ScopeExplore, memberPC, node) {
		t.Error("members should see their group's nodes on explore")
	}
}

func TestRecipientOnlyTypes(t *testing.T) {
	p := NewPolicy()
	for _, target := range []TargetType{
		TargetVote, TargetMention, TargetPrivateMessage,
		TargetQueueStorage, TargetEventEnrollment,
	} {
		item := Item{Target: target, TargetID: 20, RecipientUser: i64(42)}

		recipient := memberCtx(NewActor(42, allPerms()...), nil, nil, nil)
		if !evalRule(t, p, ScopeNotification, recipient, item) {
			t.Errorf("%s: recipient should see their own item", target)
		}

		other := memberCtx(NewActor(7, allPerms()...), nil, nil, nil)
		if evalRule(t, p, ScopeNotification, other, item) {
			t.Errorf("%s: non-recipient should not see the item", target)
		}

		anon := memberCtx(Anonymous(anonPerms()...), nil, nil, nil)
		if !p.Rule(ScopeNotification, target, anon).IsFalse() {
			t.Errorf("%s: anonymous rule should be False", target)
		}
	}
}

func TestCommentRule(t *testing.T) {
	p := NewPolicy()
	open := Item{Target: TargetComment, TargetID: 30}
	grouped := Item{Target: TargetComment, TargetID: 31, RecipientGroup: i64(100)}

	anon := memberCtx(Anonymous(anonPerms()...), nil, nil, nil)
	if !evalRule(t, p, ScopeStream, anon, open) {
		t.Error("anonymous should see ungrouped comments")
	}
	if evalRule(t, p, ScopeStream, anon, grouped) {
		t.Error("anonymous should not see group-addressed comments")
	}

	member := memberCtx(NewActor(42, allPerms()...), NewGroupSet(100), nil, nil)
	if !evalRule(t, p, ScopeStream, member, grouped) {
		t.Error("group member should see group-addressed comments")
	}

	outsider := memberCtx(NewActor(43, allPerms()...), nil, nil, nil)
	if evalRule(t, p, ScopeStream, outsider, grouped) {
		t.Error("outsider should not see group-addressed comments")
	}

	noPerm := memberCtx(NewActor(44, PermAccessContent), nil, nil, nil)
	if !p.Rule(ScopeStream, TargetComment, noPerm).IsFalse() {
		t.Error("comment rule without the comment permission should be False")
	}
}

func TestGroupContentRule(t *testing.T) {
	p := NewPolicy()
	item := Item{Target: TargetGroupContent, TargetID: 40, RecipientGroup: i64(100)}

	member := memberCtx(NewActor(42), NewGroupSet(100), nil, nil)
	if !evalRule(t, p, ScopeStream, member, item) {
		t.Error("group member should see group content")
	}

	outsider := memberCtx(NewActor(43), NewGroupSet(200), nil, nil)
	if evalRule(t, p, ScopeStream, outsider, item) {
		t.Error("outsider should not see group content")
	}

	direct := Item{Target: TargetGroupContent, TargetID: 41, RecipientUser: i64(7)}
	recipient := memberCtx(NewActor(7), nil, nil, nil)
	if !evalRule(t, p, ScopeStream, recipient, direct) {
		t.Error("direct recipient should see group content addressed to them")
	}
}

func TestBypassRolesShortCircuit(t *testing.T) {
	p := NewPolicy()
	admin := memberCtx(NewActor(1).WithRoles("administrator"), nil, nil, nil)

	for _, target := range TargetTypes() {
		for _, scope := range Scopes() {
			if !p.Rule(scope, target, admin).IsTrue() {
				t.Errorf("bypass actor rule for %s/%s should be True", scope, target)
			}
		}
	}
}

func TestUnknownTargetTypeIsFalse(t *testing.T) {
	p := NewPolicy()
	pc := memberCtx(NewActor(42, allPerms()...), nil, nil, nil)
	if !p.Rule(ScopeStream, TargetType("widget"), pc).IsFalse() {
		t.Error("unknown target types should yield False, not an error path")
	}
}

func TestConfiguredPostCodes(t *testing.T) {
	p := NewPolicy(WithPostVisibilityCodes(PostVisibilityCodes{
		Public: 10, Community: 20, GroupOnly: 30, Excluded: 40,
	}))
	pc := memberCtx(Anonymous(anonPerms()...), nil, nil, nil)

	if !evalRule(t, p, ScopeExplore, pc, Item{Target: TargetPost, TargetID: 1, PostVisibility: i64(10)}) {
		t.Error("remapped public code should be visible")
	}
	if evalRule(t, p, ScopeExplore, pc, Item{Target: TargetPost, TargetID: 2, PostVisibility: i64(1)}) {
		t.Error("the former public code should no longer match")
	}
}

func TestRuleDeterminism(t *testing.T) {
	p := NewPolicy()
	pc := memberCtx(NewActor(42, allPerms()...), NewGroupSet(3, 1, 2), NewGroupSet(5, 4), GrantSet{"realm": {2, 1}})

	a := p.Rule(ScopeExplore, TargetPost, pc).String()
	b := p.Rule(ScopeExplore, TargetPost, pc).String()
	if a != b {
		t.Errorf("identical inputs should produce identical rules:\n%s\n%s", a, b)
	}
}
