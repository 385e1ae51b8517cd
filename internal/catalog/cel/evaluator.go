// Package cel provides CEL expression evaluation for catalog candidate
// filtering.
package cel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/checker/decls"

	"github.com/okanca/streamgate/internal/visibility"
)

var (
	ErrInvalidExpression = errors.New("invalid CEL expression")
	ErrEvaluationFailed  = errors.New("CEL evaluation failed")
)

// Evaluator compiles and evaluates CEL expressions against catalog
// items. Optional item fields are declared dyn and presented as null
// when unset, so filters can test them with `x == null`.
type Evaluator struct {
	env   *cel.Env
	cache sync.Map // map[string]cel.Program
}

// NewEvaluator creates a new CEL evaluator with the item schema.
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Declarations(
			decls.NewVar("target_type", decls.String),
			decls.NewVar("target_id", decls.Int),
			decls.NewVar("visibility", decls.Dyn),
			decls.NewVar("post_visibility", decls.Dyn),
			decls.NewVar("recipient_user", decls.Dyn),
			decls.NewVar("recipient_group", decls.Dyn),
			decls.NewVar("group", decls.Dyn),
			decls.NewVar("grants", decls.NewListType(decls.String)),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL env: %w", err)
	}

	return &Evaluator{env: env}, nil
}

// Compile parses and compiles a CEL expression. Compiled programs are cached.
func (e *Evaluator) Compile(_ context.Context, expression string) (cel.Program, error) {
	if cached, ok := e.cache.Load(expression); ok {
		if prg, ok := cached.(cel.Program); ok {
			return prg, nil
		}
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, issues.Err())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}

	e.cache.Store(expression, prg)
	return prg, nil
}

// Eval evaluates a compiled program against an item.
func (e *Evaluator) Eval(_ context.Context, prg cel.Program, item visibility.Item) (bool, error) {
	out, _, err := prg.Eval(activation(item))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrEvaluationFailed, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: expression must return bool, got %T", ErrEvaluationFailed, out.Value())
	}
	return result, nil
}

// EvalBatch evaluates a compiled program against multiple items,
// returning the matches. Items whose evaluation errors are skipped.
func (e *Evaluator) EvalBatch(ctx context.Context, prg cel.Program, items []visibility.Item) ([]visibility.Item, error) {
	var matches []visibility.Item
	evalErrors := 0

	for _, item := range items {
		out, _, err := prg.Eval(activation(item))
		if err != nil {
			evalErrors++
			if evalErrors <= 5 {
				slog.DebugContext(ctx, "batch eval item failed",
					"target", item.Target,
					"target_id", item.TargetID,
					"error", err,
				)
			}
			continue
		}
		if result, ok := out.Value().(bool); ok && result {
			matches = append(matches, item)
		}
	}

	if evalErrors > 0 {
		slog.DebugContext(ctx, "batch eval completed with errors",
			"total", len(items), "errors", evalErrors)
	}
	return matches, nil
}

func activation(item visibility.Item) map[string]any {
	grants := make([]string, len(item.Grants))
	for i, g := range item.Grants {
		grants[i] = g.String()
	}
	act := map[string]any{
		"target_type":     string(item.Target),
		"target_id":       item.TargetID,
		"visibility":      nil,
		"post_visibility": nil,
		"recipient_user":  nil,
		"recipient_group": nil,
		"group":           nil,
		"grants":          grants,
	}
	if item.Visibility != "" {
		act["visibility"] = string(item.Visibility)
	}
	if item.PostVisibility != nil {
		act["post_visibility"] = *item.PostVisibility
	}
	if item.RecipientUser != nil {
		act["recipient_user"] = *item.RecipientUser
	}
	if item.RecipientGroup != nil {
		act["recipient_group"] = *item.RecipientGroup
	}
	if item.Group != nil {
		act["group"] = *item.Group
	}
	return act
}
