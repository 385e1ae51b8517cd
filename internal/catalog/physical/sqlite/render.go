package sqlite

import (
	"fmt"
	"strings"

	"github.com/okanca/streamgate/internal/visibility"
)

// columns maps predicate field names to item columns. The grants field
// is virtual: it renders as an EXISTS over the side table.
var columns = map[string]string{
	visibility.FieldTargetType:     "target_type",
	visibility.FieldVisibility:     "visibility",
	visibility.FieldPostVisibility: "post_visibility",
	visibility.FieldRecipientUser:  "recipient_user",
	visibility.FieldRecipientGroup: "recipient_group",
	visibility.FieldGroup:          "group_id",
}

// renderPredicate renders a predicate tree to a parameterized WHERE
// fragment. Null columns are forced to definite FALSE (never SQL
// unknown) so negation matches the in-process evaluator exactly.
func renderPredicate(p visibility.Predicate) (string, []any, error) {
	switch p.Kind() {
	case visibility.KindTrue:
		return "1 = 1", nil, nil
	case visibility.KindFalse:
		return "1 = 0", nil, nil
	case visibility.KindAnd, visibility.KindOr:
		op := " AND "
		if p.Kind() == visibility.KindOr {
			op = " OR "
		}
		var (
			parts []string
			args  []any
		)
		for _, c := range p.Children() {
			sql, cargs, err := renderPredicate(c)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, "("+sql+")")
			args = append(args, cargs...)
		}
		return strings.Join(parts, op), args, nil
	case visibility.KindNot:
		sql, args, err := renderPredicate(p.Children()[0])
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + sql + ")", args, nil
	case visibility.KindEquals:
		if p.Field() == visibility.FieldGrants {
			return grantsMatch([]any{p.Value()})
		}
		col, err := column(p.Field())
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("(%s IS NOT NULL AND %s = ?)", col, col), []any{p.Value()}, nil
	case visibility.KindIn:
		if p.Field() == visibility.FieldGrants {
			return grantsMatch(p.Values())
		}
		col, err := column(p.Field())
		if err != nil {
			return "", nil, err
		}
		values := p.Values()
		return fmt.Sprintf("(%s IS NOT NULL AND %s IN (%s))", col, col, placeholders(len(values))), values, nil
	case visibility.KindIsNull:
		if p.Field() == visibility.FieldGrants {
			return "NOT EXISTS (SELECT 1 FROM item_grants g WHERE g.target_type = items.target_type AND g.target_id = items.target_id)", nil, nil
		}
		col, err := column(p.Field())
		if err != nil {
			return "", nil, err
		}
		return col + " IS NULL", nil, nil
	}
	return "", nil, fmt.Errorf("unsupported predicate kind %d", p.Kind())
}

// grantsMatch renders "item holds any of these grant refs" as an
// EXISTS over the grant side table, matching the any-element semantics
// of the in-process evaluator.
func grantsMatch(refs []any) (string, []any, error) {
	sql := fmt.Sprintf(
		"EXISTS (SELECT 1 FROM item_grants g WHERE g.target_type = items.target_type AND g.target_id = items.target_id AND g.realm || ':' || g.grant_id IN (%s))",
		placeholders(len(refs)))
	return sql, refs, nil
}

func column(field string) (string, error) {
	col, ok := columns[field]
	if !ok {
		return "", fmt.Errorf("unknown predicate field %q", field)
	}
	return col, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
