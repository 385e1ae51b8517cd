package cel

import (
	"context"
	"errors"
	"testing"

	"github.com/okanca/streamgate/internal/visibility"
)

func i64(v int64) *int64 { return &v }

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	e, err := NewEvaluator()
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	return e
}

func TestCompileAndEval(t *testing.T) {
	e := newTestEvaluator(t)
	ctx := context.Background()

	prg, err := e.Compile(ctx, `target_type == "post" && post_visibility == 1`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	match := visibility.Item{Target: visibility.TargetPost, TargetID: 1, PostVisibility: i64(1)}
	got, err := e.Eval(ctx, prg, match)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !got {
		t.Error("matching item should evaluate true")
	}

	miss := visibility.Item{Target: visibility.TargetPost, TargetID: 2, PostVisibility: i64(2)}
	got, err = e.Eval(ctx, prg, miss)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got {
		t.Error("non-matching item should evaluate false")
	}
}

func TestNullableFields(t *testing.T) {
	e := newTestEvaluator(t)
	ctx := context.Background()

	prg, err := e.Compile(ctx, "recipient_group == null")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	unset := visibility.Item{Target: visibility.TargetComment, TargetID: 1}
	if got, err := e.Eval(ctx, prg, unset); err != nil || !got {
		t.Errorf("unset field should compare equal to null, got %v err %v", got, err)
	}

	set := visibility.Item{Target: visibility.TargetComment, TargetID: 2, RecipientGroup: i64(9)}
	if got, err := e.Eval(ctx, prg, set); err != nil || got {
		t.Errorf("set field should not equal null, got %v err %v", got, err)
	}
}

func TestGrantsList(t *testing.T) {
	e := newTestEvaluator(t)
	ctx := context.Background()

	prg, err := e.Compile(ctx, `grants.exists(g, g == "community:1")`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	granted := visibility.Item{
		Target: visibility.TargetNode, TargetID: 1,
		Grants: []visibility.GrantRef{{Realm: "flexgroup", ID: 3}, {Realm: "community", ID: 1}},
	}
	if got, err := e.Eval(ctx, prg, granted); err != nil || !got {
		t.Errorf("grant list should match, got %v err %v", got, err)
	}

	bare := visibility.Item{Target: visibility.TargetNode, TargetID: 2}
	if got, err := e.Eval(ctx, prg, bare); err != nil || got {
		t.Errorf("empty grant list should not match, got %v err %v", got, err)
	}
}

func TestCompileErrors(t *testing.T) {
	e := newTestEvaluator(t)
	ctx := context.Background()

	if _, err := e.Compile(ctx, "((("); !errors.Is(err, ErrInvalidExpression) {
		t.Errorf("syntax error = %v, want ErrInvalidExpression", err)
	}
	if _, err := e.Compile(ctx, "no_such_field == 1"); !errors.Is(err, ErrInvalidExpression) {
		t.Errorf("unknown variable error = %v, want ErrInvalidExpression", err)
	}
}

func TestNonBoolExpression(t *testing.T) {
	e := newTestEvaluator(t)
	ctx := context.Background()

	prg, err := e.Compile(ctx, "target_id + 1")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, err := e.Eval(ctx, prg, visibility.Item{Target: visibility.TargetPost, TargetID: 1}); !errors.Is(err, ErrEvaluationFailed) {
		t.Errorf("non-bool result = %v, want ErrEvaluationFailed", err)
	}
}

func TestCompileCache(t *testing.T) {
	e := newTestEvaluator(t)
	ctx := context.Background()

	first, err := e.Compile(ctx, "target_id > 5")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	second, err := e.Compile(ctx, "target_id > 5")
	if err != nil {
		t.Fatalf("Compile (cached): %v", err)
	}
	if first != second {
		t.Error("recompiling the same expression should hit the cache")
	}
	got, err := e.Eval(ctx, second, visibility.Item{Target: visibility.TargetPost, TargetID: 6})
	if err != nil || !got {
		t.Errorf("cached program should evaluate, got %v err %v", got, err)
	}
}

func TestEvalBatchSkipsErrors(t *testing.T) {
	e := newTestEvaluator(t)
	ctx := context.Background()

	// Comparing a dyn null to an int errors for unset fields; those
	// items are skipped, not fatal.
	prg, err := e.Compile(ctx, "post_visibility > 0")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	items := []visibility.Item{
		{Target: visibility.TargetPost, TargetID: 1, PostVisibility: i64(2)},
		{Target: visibility.TargetPost, TargetID: 2}, // unset, eval errors
		{Target: visibility.TargetPost, TargetID: 3, PostVisibility: i64(0)},
	}
	matches, err := e.EvalBatch(ctx, prg, items)
	if err != nil {
		t.Fatalf("EvalBatch: %v", err)
	}
	if len(matches) != 1 || matches[0].TargetID != 1 {
		t.Errorf("matches = %v, want just item 1", matches)
	}
}
