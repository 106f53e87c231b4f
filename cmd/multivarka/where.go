package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Victoria-Vladimirova/webdev-tasks-2/pkg/multivarka"
)

type whereOp string

const (
	opEqual    whereOp = "eq"
	opLessThan whereOp = "lt"
	opMoreThan whereOp = "gt"
	opInclude  whereOp = "in"
)

// whereClause is one parsed --where field:op:value
type whereClause struct {
	Field  string
	Op     whereOp
	Negate bool
	Value  interface{}
}

// parseWhere parses field:op:value. The value may itself contain colons.
func parseWhere(expr string) (whereClause, error) {
	parts := strings.SplitN(expr, ":", 3)
	if len(parts) != 3 {
		return whereClause{}, fmt.Errorf("invalid condition %q: expected field:op:value", expr)
	}
	field, op, raw := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), parts[2]
	if field == "" {
		return whereClause{}, fmt.Errorf("invalid condition %q: empty field", expr)
	}

	clause := whereClause{Field: field}
	if rest, ok := strings.CutPrefix(op, "not."); ok {
		clause.Negate = true
		op = rest
	}

	switch whereOp(op) {
	case opEqual, opLessThan, opMoreThan:
		clause.Value = parseValue(raw)
	case opInclude:
		list := []interface{}{}
		if raw != "" {
			for _, item := range strings.Split(raw, ",") {
				list = append(list, parseValue(item))
			}
		}
		clause.Value = list
	default:
		return whereClause{}, fmt.Errorf("invalid condition %q: unknown operator %q (use eq, lt, gt or in)", expr, op)
	}
	clause.Op = whereOp(op)
	return clause, nil
}

func parseWheres(exprs []string) ([]whereClause, error) {
	clauses := make([]whereClause, 0, len(exprs))
	for _, expr := range exprs {
		clause, err := parseWhere(expr)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}
	return clauses, nil
}

// parseValue reads JSON when it can (numbers, booleans, null, quoted strings,
// objects) and falls back to the raw string
func parseValue(raw string) interface{} {
	trimmed := strings.TrimSpace(raw)
	var v interface{}
	if trimmed != "" && json.Unmarshal([]byte(trimmed), &v) == nil {
		return v
	}
	return raw
}

// applyWhere appends the clauses to a chain in order
func applyWhere(start multivarka.CollectionStep, clauses []whereClause) multivarka.FilterStep {
	var step multivarka.FilterStep = start
	for _, clause := range clauses {
		cond := step.Where(clause.Field)
		if clause.Negate {
			cond = cond.Not()
		}
		switch clause.Op {
		case opEqual:
			step = cond.Equal(clause.Value)
		case opLessThan:
			step = cond.LessThan(clause.Value)
		case opMoreThan:
			step = cond.MoreThan(clause.Value)
		case opInclude:
			step = cond.Include(clause.Value)
		}
	}
	return step
}

type assignment struct {
	Field string
	Value interface{}
}

// parseAssignment parses field=value for --set
func parseAssignment(expr string) (assignment, error) {
	field, raw, ok := strings.Cut(expr, "=")
	field = strings.TrimSpace(field)
	if !ok || field == "" {
		return assignment{}, fmt.Errorf("invalid assignment %q: expected field=value", expr)
	}
	return assignment{Field: field, Value: parseValue(raw)}, nil
}
