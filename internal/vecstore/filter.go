package vecstore

import (
	"fmt"
	"strings"
)

// FilterOp selects the variant of a Filter node.
type FilterOp string

const (
	OpEq  FilterOp = "eq"
	OpIn  FilterOp = "in"
	OpAnd FilterOp = "and"
	OpOr  FilterOp = "or"
)

// Filter is a tagged-variant search predicate. Eq and In are leaves using
// Field/Value; And and Or compose Sub. The zero Filter is invalid; use the
// constructors.
type Filter struct {
	Op    FilterOp
	Field string
	Value any
	Sub   []Filter
}

// Eq matches rows whose field equals value.
func Eq(field string, value any) Filter {
	return Filter{Op: OpEq, Field: field, Value: value}
}

// In matches rows whose field equals any of the values.
func In(field string, values ...any) Filter {
	return Filter{Op: OpIn, Field: field, Value: values}
}

// And matches rows satisfying every sub-filter.
func And(sub ...Filter) Filter {
	return Filter{Op: OpAnd, Sub: sub}
}

// Or matches rows satisfying at least one sub-filter.
func Or(sub ...Filter) Filter {
	return Filter{Op: OpOr, Sub: sub}
}

// filterFields whitelists the payload columns a filter may touch. The
// visibility column is excluded: hidden = FALSE is enforced by the store
// and caller input cannot override it.
var filterFields = map[string]struct{}{
	"document_id":   {},
	"chunk_id":      {},
	"chunk_ordinal": {},
	"title":         {},
}

// compileFilter turns a predicate into a parameterized SQL fragment.
// Placeholders start at next; values are appended to args in placeholder
// order.
func compileFilter(f Filter, next int, args []any) (string, int, []any, error) {
	switch f.Op {
	case OpEq:
		if err := checkField(f.Field); err != nil {
			return "", next, args, err
		}
		args = append(args, f.Value)
		return fmt.Sprintf("%s = $%d", f.Field, next), next + 1, args, nil

	case OpIn:
		if err := checkField(f.Field); err != nil {
			return "", next, args, err
		}
		values, ok := f.Value.([]any)
		if !ok {
			return "", next, args, fmt.Errorf("%w: in filter on %s requires a value list", ErrInvalidFilter, f.Field)
		}
		if len(values) == 0 {
			// An empty list matches nothing.
			return "FALSE", next, args, nil
		}
		placeholders := make([]string, len(values))
		for i, v := range values {
			placeholders[i] = fmt.Sprintf("$%d", next)
			args = append(args, v)
			next++
		}
		return fmt.Sprintf("%s IN (%s)", f.Field, strings.Join(placeholders, ", ")), next, args, nil

	case OpAnd, OpOr:
		if len(f.Sub) == 0 {
			return "", next, args, fmt.Errorf("%w: %s filter without operands", ErrInvalidFilter, f.Op)
		}
		join := " AND "
		if f.Op == OpOr {
			join = " OR "
		}
		parts := make([]string, 0, len(f.Sub))
		for _, sub := range f.Sub {
			var (
				part string
				err  error
			)
			part, next, args, err = compileFilter(sub, next, args)
			if err != nil {
				return "", next, args, err
			}
			parts = append(parts, part)
		}
		return "(" + strings.Join(parts, join) + ")", next, args, nil

	default:
		return "", next, args, fmt.Errorf("%w: unknown op %q", ErrInvalidFilter, f.Op)
	}
}

func checkField(field string) error {
	if _, ok := filterFields[field]; !ok {
		return fmt.Errorf("%w: field %q is not filterable", ErrInvalidFilter, field)
	}
	return nil
}
