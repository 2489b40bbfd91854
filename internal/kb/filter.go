package kb

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Metadata filter operators accepted by the query endpoint.
const (
	OpEq  = "$eq"
	OpNe  = "$ne"
	OpGt  = "$gt"
	OpGte = "$gte"
	OpLt  = "$lt"
	OpLte = "$lte"
	OpIn  = "$in"
	OpNin = "$nin"
	OpAll = "$all"
)

var operatorTokens = map[string]bool{
	OpEq: true, OpNe: true, OpGt: true, OpGte: true,
	OpLt: true, OpLte: true, OpIn: true, OpNin: true, OpAll: true,
	"$and": true, "$or": true,
}

// arrayOperators expect the comparison value to be a list.
var arrayOperators = map[string]bool{OpIn: true, OpNin: true, OpAll: true}

// Filter is a node of a metadata filter expression: either a single
// field comparison or a logical junction over sub-expressions. Filters
// are built with the Cond/And/Or combinators and translated to the wire
// shape with Build; construction is pure and makes no network calls.
type Filter interface {
	build() (map[string]any, error)
}

// condition is a leaf comparison {field: {op: value}}. Field paths use
// dot-notation to reach into nested metadata.
type condition struct {
	field string
	op    string
	value any
}

func (c condition) build() (map[string]any, error) {
	if c.field == "" {
		return nil, validationError("filter field name is empty")
	}
	if operatorTokens[c.field] {
		return nil, validationError("filter field name %q collides with an operator token", c.field)
	}
	if !operatorTokens[c.op] || c.op == "$and" || c.op == "$or" {
		return nil, validationError("unsupported filter operator %q", c.op)
	}
	if arrayOperators[c.op] {
		switch reflect.ValueOf(c.value).Kind() {
		case reflect.Slice, reflect.Array:
		default:
			return nil, validationError("operator %s for field %q requires an array value", c.op, c.field)
		}
	}
	return map[string]any{c.field: map[string]any{c.op: c.value}}, nil
}

// junction is an internal node {$and|$or: [...]}.
type junction struct {
	op       string
	children []Filter
}

func (j junction) build() (map[string]any, error) {
	if len(j.children) == 0 {
		return nil, validationError("%s requires at least one sub-expression", j.op)
	}
	built := make([]map[string]any, 0, len(j.children))
	for i, child := range j.children {
		if child == nil {
			return nil, validationError("%s sub-expression %d is nil", j.op, i)
		}
		m, err := child.build()
		if err != nil {
			return nil, err
		}
		built = append(built, m)
	}
	return map[string]any{j.op: built}, nil
}

// Cond builds a single comparison on a metadata field.
func Cond(field, op string, value any) Filter {
	return condition{field: field, op: op, value: value}
}

// Comparison shorthands.

func Eq(field string, value any) Filter      { return Cond(field, OpEq, value) }
func Ne(field string, value any) Filter      { return Cond(field, OpNe, value) }
func Gt(field string, value any) Filter      { return Cond(field, OpGt, value) }
func Gte(field string, value any) Filter     { return Cond(field, OpGte, value) }
func Lt(field string, value any) Filter      { return Cond(field, OpLt, value) }
func Lte(field string, value any) Filter     { return Cond(field, OpLte, value) }
func In(field string, values ...any) Filter  { return Cond(field, OpIn, values) }
func Nin(field string, values ...any) Filter { return Cond(field, OpNin, values) }
func All(field string, values ...any) Filter { return Cond(field, OpAll, values) }

// And matches when every sub-expression matches.
func And(children ...Filter) Filter { return junction{op: "$and", children: children} }

// Or matches when any sub-expression matches.
func Or(children ...Filter) Filter { return junction{op: "$or", children: children} }

// BuildFilter translates a filter expression into the JSON object shape
// the query endpoint consumes, validating operators and junctions along
// the way.
func BuildFilter(f Filter) (map[string]any, error) {
	if f == nil {
		return nil, validationError("filter expression is nil")
	}
	return f.build()
}

// ParseFilterJSON validates raw filter JSON (as accepted on the CLI or
// HTTP surface) by rebuilding it through the combinators.
func ParseFilterJSON(raw []byte) (Filter, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, validationError("invalid filter JSON: %v", err)
	}
	return filterFromMap(m)
}

func filterFromMap(m map[string]any) (Filter, error) {
	if len(m) != 1 {
		return nil, validationError("filter object must have exactly one key, got %d", len(m))
	}
	for key, val := range m {
		if key == "$and" || key == "$or" {
			list, ok := val.([]any)
			if !ok {
				return nil, validationError("%s expects a list of sub-expressions", key)
			}
			children := make([]Filter, 0, len(list))
			for _, item := range list {
				sub, ok := item.(map[string]any)
				if !ok {
					return nil, validationError("%s sub-expression must be an object", key)
				}
				child, err := filterFromMap(sub)
				if err != nil {
					return nil, err
				}
				children = append(children, child)
			}
			return junction{op: key, children: children}, nil
		}

		if strings.HasPrefix(key, "$") {
			return nil, validationError("unknown logical operator %q", key)
		}

		comp, ok := val.(map[string]any)
		if !ok || len(comp) != 1 {
			return nil, validationError("field %q expects a single {operator: value} object", key)
		}
		for op, opVal := range comp {
			return condition{field: key, op: op, value: opVal}, nil
		}
	}
	return nil, fmt.Errorf("unreachable")
}
