package visibility

// Builder assembles predicate trees from the policy rule table.
// Deterministic for identical inputs and total: any supported target
// type yields a predicate, unsupported ones yield False.
type Builder struct {
	policy *Policy
}

// NewBuilder returns a builder over the given policy.
func NewBuilder(policy *Policy) *Builder {
	return &Builder{policy: policy}
}

// Build returns the predicate for a single target type.
func (b *Builder) Build(scope Scope, target TargetType, pc Context) Predicate {
	return b.policy.Rule(scope, target, pc)
}

// BuildFeed composes the predicate for a mixed-type feed: one Or whose
// children pin each eligible target type to its rule. Types whose rule
// can never match are folded into a Not(In(target_type, ...)) term
// instead of an empty per-type IN, so they are hidden wholesale.
func (b *Builder) BuildFeed(scope Scope, targets []TargetType, pc Context) Predicate {
	var branches []Predicate
	var hidden []string
	for _, target := range targets {
		rule := b.policy.Rule(scope, target, pc)
		if rule.IsFalse() {
			hidden = append(hidden, string(target))
			continue
		}
		branches = append(branches, And(
			FieldEquals(FieldTargetType, target),
			rule,
		))
	}
	if len(branches) == 0 {
		return False()
	}
	if len(hidden) == 0 {
		return Or(branches...)
	}
	return And(
		Not(FieldInStrings(FieldTargetType, hidden)),
		Or(branches...),
	)
}
