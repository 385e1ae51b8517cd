package visibility

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okanca/streamgate/internal/observability"
)

// DefaultResolveTimeout bounds each per-type catalog lookup during bulk
// resolution.
const DefaultResolveTimeout = 5 * time.Second

// Resolver is the stateless facade over policy, membership, grants, and
// the content catalog. All per-request state travels in the call.
type Resolver struct {
	policy  *Policy
	builder *Builder
	dir     MembershipDirectory
	grants  GrantSource
	catalog ContentCatalog
	metrics *observability.Metrics
	timeout time.Duration
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolveTimeout sets the per-type catalog lookup timeout.
func WithResolveTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewResolver wires the resolver to its collaborators.
func NewResolver(policy *Policy, dir MembershipDirectory, grants GrantSource, catalog ContentCatalog, metrics *observability.Metrics, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		policy:  policy,
		builder: NewBuilder(policy),
		dir:     dir,
		grants:  grants,
		catalog: catalog,
		metrics: metrics,
		timeout: DefaultResolveTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveContext fetches the actor's membership set and grant allow
// list. Bypass actors skip the lookups: their rules are True regardless.
func (r *Resolver) ResolveContext(ctx context.Context, actor Actor) (pc Context, err error) {
	op, ctx := observability.StartOperation(ctx, r.metrics, "visibility.context")
	defer func() { op.End(err) }()

	pc = Context{Actor: actor}
	if r.policy.Bypasses(actor) {
		return pc, nil
	}
	pc.Memberships, err = ResolveMembership(ctx, r.dir, actor)
	if err != nil {
		return Context{}, err
	}
	pc.Grants, err = r.grants.GrantsFor(ctx, actor)
	if err != nil {
		return Context{}, err
	}
	return pc, nil
}

// IsVisible decides visibility of a single item for the actor on the
// given scope. Pure once the actor context is resolved; a context
// lookup failure denies (fail closed) and surfaces the error.
func (r *Resolver) IsVisible(ctx context.Context, actor Actor, item Item, scope Scope) (visible bool, err error) {
	op, ctx := observability.StartOperation(ctx, r.metrics, "visibility.check")
	defer func() { op.End(err) }()

	pc, err := r.ResolveContext(ctx, actor)
	if err != nil {
		return false, err
	}
	visible = r.CheckResolved(pc, item, scope)

	outcome := "denied"
	if visible {
		outcome = "allowed"
	}
	r.metrics.DecisionsTotal.WithLabelValues(string(scope), outcome).Inc()
	slog.DebugContext(ctx, "visibility decided",
		"decision_id", uuid.NewString(),
		"actor", actor.ID,
		"scope", scope,
		"target", item.Target,
		"target_id", item.TargetID,
		"visible", visible,
	)
	return visible, nil
}

// CheckResolved evaluates a single item against an already-resolved
// actor context, with no I/O.
func (r *Resolver) CheckResolved(pc Context, item Item, scope Scope) bool {
	return r.builder.Build(scope, item.Target, pc).Eval(item)
}

// ResolveOptions configures bulk id-set resolution.
type ResolveOptions struct {
	// Targets restricts resolution to the given types. Empty means all
	// supported types.
	Targets []TargetType
	// CandidateFilter is an optional catalog-level expression narrowing
	// the candidate universe before the access predicate applies.
	CandidateFilter string
}

// ResolveResult is the outcome of bulk resolution. A target type
// appears in exactly one place: IDs when it has visible ids, Excluded
// when its rule or its id universe is empty, Unresolved when the
// catalog failed or timed out for it. Excluded and Unresolved both mean
// "hide the type wholesale" downstream; Unresolved stays
// distinguishable so callers can tell degradation from policy.
type ResolveResult struct {
	IDs        map[TargetType][]int64
	Excluded   []TargetType
	Unresolved []TargetType
}

// HiddenTypes returns every type the feed query must exclude outright.
func (rr *ResolveResult) HiddenTypes() []TargetType {
	hidden := make([]TargetType, 0, len(rr.Excluded)+len(rr.Unresolved))
	hidden = append(hidden, rr.Excluded...)
	hidden = append(hidden, rr.Unresolved...)
	slices.Sort(hidden)
	return hidden
}

// ResolveVisibleIDs precomputes, per target type, the universe of ids
// the actor may see. Per-type lookups have no cross-type dependency and
// fan out concurrently, each bounded by the resolver timeout. A failed
// or timed-out type degrades to exclusion, never to a dropped
// condition.
func (r *Resolver) ResolveVisibleIDs(ctx context.Context, actor Actor, scope Scope, opts ResolveOptions) (result *ResolveResult, err error) {
	op, ctx := observability.StartOperation(ctx, r.metrics, "visibility.resolve")
	defer func() { op.End(err) }()

	targets := opts.Targets
	if len(targets) == 0 {
		targets = TargetTypes()
	}

	pc, err := r.ResolveContext(ctx, actor)
	if err != nil {
		return nil, err
	}

	result = &ResolveResult{IDs: make(map[TargetType][]int64, len(targets))}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, target := range targets {
		rule := r.builder.Build(scope, target, pc)
		if rule.IsFalse() {
			result.Excluded = append(result.Excluded, target)
			r.metrics.ResolveTypeTotal.WithLabelValues(string(target), "excluded").Inc()
			continue
		}

		wg.Add(1)
		go func(target TargetType, rule Predicate) {
			defer wg.Done()

			tctx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			ids, findErr := r.catalog.FindIDs(tctx, target, rule, opts.CandidateFilter)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case findErr != nil:
				result.Unresolved = append(result.Unresolved, target)
				r.metrics.ResolveTypeTotal.WithLabelValues(string(target), "error").Inc()
				slog.WarnContext(ctx, "id resolution failed, excluding type",
					"target", target, "error", findErr)
			case len(ids) == 0:
				result.Excluded = append(result.Excluded, target)
				r.metrics.ResolveTypeTotal.WithLabelValues(string(target), "empty").Inc()
			default:
				sorted := slices.Clone(ids)
				slices.Sort(sorted)
				result.IDs[target] = sorted
				r.metrics.ResolveTypeTotal.WithLabelValues(string(target), "ok").Inc()
			}
		}(target, rule)
	}
	wg.Wait()

	slices.Sort(result.Excluded)
	slices.Sort(result.Unresolved)

	slog.DebugContext(ctx, "visible ids resolved",
		"decision_id", uuid.NewString(),
		"actor", actor.ID,
		"scope", scope,
		"resolved_types", len(result.IDs),
		"excluded_types", len(result.Excluded),
		"unresolved_types", len(result.Unresolved),
	)
	return result, nil
}
