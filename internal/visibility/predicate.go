package visibility

import (
	"fmt"
	"slices"
	"strings"
)

// Kind discriminates predicate tree nodes.
type Kind int

const (
	KindTrue Kind = iota
	KindFalse
	KindAnd
	KindOr
	KindNot
	KindEquals
	KindIn
	KindIsNull
)

// Predicate is an immutable boolean expression over item fields. Trees
// are built fresh per evaluation and carry no identity; rendering a
// tree against a concrete store is the catalog backend's concern.
//
// Construction normalizes trivial cases: And/Or absorb constants, an
// empty Or (or an In over an empty set) collapses to False. Backends
// therefore never see an empty IN list, which not all evaluators treat
// as "no rows match".
type Predicate struct {
	kind     Kind
	children []Predicate
	field    string
	value    any
	values   []any
}

// FieldView projects an item's fields for in-process evaluation. The
// second return reports whether the field is set; unset fields are null.
type FieldView interface {
	Field(name string) (any, bool)
}

// True is the predicate matching everything.
func True() Predicate { return Predicate{kind: KindTrue} }

// False is the predicate matching nothing.
func False() Predicate { return Predicate{kind: KindFalse} }

// And matches when all children match. And() is True.
func And(children ...Predicate) Predicate {
	kept := make([]Predicate, 0, len(children))
	for _, c := range children {
		switch c.kind {
		case KindTrue:
		case KindFalse:
			return False()
		default:
			kept = append(kept, c)
		}
	}
	switch len(kept) {
	case 0:
		return True()
	case 1:
		return kept[0]
	}
	return Predicate{kind: KindAnd, children: kept}
}

// Or matches when any child matches. Or() is False.
func Or(children ...Predicate) Predicate {
	kept := make([]Predicate, 0, len(children))
	for _, c := range children {
		switch c.kind {
		case KindFalse:
		case KindTrue:
			return True()
		default:
			kept = append(kept, c)
		}
	}
	switch len(kept) {
	case 0:
		return False()
	case 1:
		return kept[0]
	}
	return Predicate{kind: KindOr, children: kept}
}

// Not inverts a predicate.
func Not(child Predicate) Predicate {
	switch child.kind {
	case KindTrue:
		return False()
	case KindFalse:
		return True()
	case KindNot:
		return child.children[0]
	}
	return Predicate{kind: KindNot, children: []Predicate{child}}
}

// FieldEquals matches when the field is set and equal to value.
func FieldEquals(field string, value any) Predicate {
	return Predicate{kind: KindEquals, field: field, value: normalize(value)}
}

// FieldIn matches when the field is set and any of its values is in the
// given set. An empty set collapses to False.
func FieldIn(field string, values []any) Predicate {
	if len(values) == 0 {
		return False()
	}
	norm := make([]any, len(values))
	for i, v := range values {
		norm[i] = normalize(v)
	}
	return Predicate{kind: KindIn, field: field, values: norm}
}

// FieldInInts is FieldIn over int64 values, sorted for determinism.
func FieldInInts(field string, ids []int64) Predicate {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	vals := make([]any, len(sorted))
	for i, id := range sorted {
		vals[i] = id
	}
	return FieldIn(field, vals)
}

// FieldInStrings is FieldIn over string values, sorted for determinism.
func FieldInStrings(field string, ss []string) Predicate {
	sorted := slices.Clone(ss)
	slices.Sort(sorted)
	vals := make([]any, len(sorted))
	for i, s := range sorted {
		vals[i] = s
	}
	return FieldIn(field, vals)
}

// IsNull matches when the field is unset.
func IsNull(field string) Predicate {
	return Predicate{kind: KindIsNull, field: field}
}

// Kind returns the node kind.
func (p Predicate) Kind() Kind { return p.kind }

// Children returns the child predicates of And/Or/Not nodes.
func (p Predicate) Children() []Predicate { return slices.Clone(p.children) }

// Field returns the field name of leaf nodes.
func (p Predicate) Field() string { return p.field }

// Value returns the comparison value of an Equals node.
func (p Predicate) Value() any { return p.value }

// Values returns the value set of an In node.
func (p Predicate) Values() []any { return slices.Clone(p.values) }

// IsFalse reports whether the predicate can never match.
func (p Predicate) IsFalse() bool { return p.kind == KindFalse }

// IsTrue reports whether the predicate always matches.
func (p Predicate) IsTrue() bool { return p.kind == KindTrue }

// Eval evaluates the predicate against a field view in-process.
func (p Predicate) Eval(view FieldView) bool {
	switch p.kind {
	case KindTrue:
		return true
	case KindFalse:
		return false
	case KindAnd:
		for _, c := range p.children {
			if !c.Eval(view) {
				return false
			}
		}
		return true
	case KindOr:
		for _, c := range p.children {
			if c.Eval(view) {
				return true
			}
		}
		return false
	case KindNot:
		return !p.children[0].Eval(view)
	case KindEquals:
		v, ok := view.Field(p.field)
		if !ok {
			return false
		}
		return anyValue(v, func(e any) bool { return e == p.value })
	case KindIn:
		v, ok := view.Field(p.field)
		if !ok {
			return false
		}
		return anyValue(v, func(e any) bool {
			return slices.Contains(p.values, e)
		})
	case KindIsNull:
		_, ok := view.Field(p.field)
		return !ok
	}
	return false
}

// String renders the predicate for diagnostics.
func (p Predicate) String() string {
	switch p.kind {
	case KindTrue:
		return "true"
	case KindFalse:
		return "false"
	case KindAnd, KindOr:
		op := "and"
		if p.kind == KindOr {
			op = "or"
		}
		parts := make([]string, len(p.children))
		for i, c := range p.children {
			parts[i] = c.String()
		}
		return op + "(" + strings.Join(parts, ", ") + ")"
	case KindNot:
		return "not(" + p.children[0].String() + ")"
	case KindEquals:
		return fmt.Sprintf("eq(%s, %v)", p.field, p.value)
	case KindIn:
		return fmt.Sprintf("in(%s, %v)", p.field, p.values)
	case KindIsNull:
		return "isnull(" + p.field + ")"
	}
	return "invalid"
}

// normalize widens integer values to int64 so comparisons are stable
// regardless of how callers spell literals.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case TargetType:
		return string(n)
	case Level:
		return string(n)
	}
	return v
}

// anyValue applies match to a scalar, or to each element of a
// multi-valued field (grant refs), succeeding on any hit. This mirrors
// an IN over a joined side table: one matching row is enough.
func anyValue(v any, match func(any) bool) bool {
	if vs, ok := v.([]any); ok {
		for _, e := range vs {
			if match(normalize(e)) {
				return true
			}
		}
		return false
	}
	return match(normalize(v))
}
