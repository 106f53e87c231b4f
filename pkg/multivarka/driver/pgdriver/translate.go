package pgdriver

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Victoria-Vladimirova/webdev-tasks-2/pkg/multivarka"
)

// query accumulates SQL text and positional arguments
type query struct {
	args []interface{}
}

func (q *query) bind(v interface{}) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

func (q *query) bindJSON(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %T as json: %w", v, err)
	}
	return q.bind(string(raw)) + "::jsonb", nil
}

func (q *query) bindPath(field string) string {
	return "doc #> " + q.bind(strings.Split(field, ".")) + "::text[]"
}

// tableName quotes a collection name for use as a table identifier
func tableName(collection string) string {
	return pgx.Identifier{collection}.Sanitize()
}

// where translates a filter to a boolean SQL expression over the doc column.
// Fields are visited in sorted order so the output is stable.
func (q *query) where(filter multivarka.Document) (string, error) {
	if len(filter) == 0 {
		return "TRUE", nil
	}

	fields := make([]string, 0, len(filter))
	for field := range filter {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		expr, err := q.condition(field, filter[field])
		if err != nil {
			return "", fmt.Errorf("field %q: %w", field, err)
		}
		parts = append(parts, expr)
	}
	return strings.Join(parts, " AND "), nil
}

func (q *query) condition(field string, cond interface{}) (string, error) {
	ops, ok := operatorDoc(cond)
	if !ok {
		return q.equal(field, cond)
	}

	names := make([]string, 0, len(ops))
	for op := range ops {
		names = append(names, op)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, op := range names {
		expr, err := q.operator(field, op, ops[op])
		if err != nil {
			return "", err
		}
		parts = append(parts, expr)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", nil
}

func (q *query) operator(field, op string, arg interface{}) (string, error) {
	switch op {
	case multivarka.OpNotEqual:
		eq, err := q.equal(field, arg)
		if err != nil {
			return "", err
		}
		return "NOT COALESCE(" + eq + ", FALSE)", nil

	case multivarka.OpGreaterThan, multivarka.OpLessThan:
		path := q.bindPath(field)
		val, err := q.bindJSON(arg)
		if err != nil {
			return "", err
		}
		cmp := ">"
		if op == multivarka.OpLessThan {
			cmp = "<"
		}
		return fmt.Sprintf("(jsonb_typeof(%s) = jsonb_typeof(%s) AND %s %s %s)", path, val, path, cmp, val), nil

	case multivarka.OpIn, multivarka.OpNotIn:
		list, ok := arg.([]interface{})
		if !ok {
			if strs, isStrs := arg.([]string); isStrs {
				list = make([]interface{}, len(strs))
				for i, s := range strs {
					list[i] = s
				}
			} else {
				return "", fmt.Errorf("%s needs an array, got %T", op, arg)
			}
		}
		anyOf := "FALSE"
		if len(list) > 0 {
			parts := make([]string, 0, len(list))
			for _, item := range list {
				eq, err := q.equal(field, item)
				if err != nil {
					return "", err
				}
				parts = append(parts, eq)
			}
			anyOf = "(" + strings.Join(parts, " OR ") + ")"
		}
		if op == multivarka.OpIn {
			return anyOf, nil
		}
		return "NOT COALESCE(" + anyOf + ", FALSE)", nil

	default:
		return "", fmt.Errorf("unsupported operator %s", op)
	}
}

// equal matches a field equal to value, or an array field holding value.
// A nil value matches missing fields and JSON null.
func (q *query) equal(field string, value interface{}) (string, error) {
	path := q.bindPath(field)
	if value == nil {
		return fmt.Sprintf("(%s IS NULL OR %s = 'null'::jsonb)", path, path), nil
	}
	val, err := q.bindJSON(value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s = %s OR (jsonb_typeof(%s) = 'array' AND %s @> jsonb_build_array(%s)))",
		path, val, path, path, val), nil
}

// operatorDoc returns cond as an operator document ({"$gt": 1, ...})
func operatorDoc(cond interface{}) (multivarka.Document, bool) {
	var doc multivarka.Document
	switch t := cond.(type) {
	case multivarka.Document:
		doc = t
	case map[string]interface{}:
		doc = multivarka.Document(t)
	default:
		return nil, false
	}
	if len(doc) == 0 {
		return nil, false
	}
	for k := range doc {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return doc, true
}

// setDocument extracts the $set fields; no other update operator is supported
func setDocument(update multivarka.Document) (multivarka.Document, error) {
	var fields multivarka.Document
	for op, arg := range update {
		if op != multivarka.OpSet {
			return nil, fmt.Errorf("unsupported update operator %s", op)
		}
		switch t := arg.(type) {
		case multivarka.Document:
			fields = t
		case map[string]interface{}:
			fields = multivarka.Document(t)
		default:
			return nil, fmt.Errorf("%s needs a document, got %T", op, arg)
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty update")
	}
	return fields, nil
}

func createTableSQL(collection string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id BIGSERIAL PRIMARY KEY, doc JSONB NOT NULL)", tableName(collection))
}

func findSQL(collection string, filter multivarka.Document) (string, []interface{}, error) {
	q := &query{}
	where, err := q.where(filter)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("SELECT doc FROM %s WHERE %s ORDER BY id", tableName(collection), where)
	return sql, q.args, nil
}

func insertSQL(collection string, record multivarka.Document) (string, []interface{}, error) {
	q := &query{}
	val, err := q.bindJSON(record)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("INSERT INTO %s (doc) VALUES (%s) RETURNING id", tableName(collection), val)
	return sql, q.args, nil
}

// updateSQL returns a statement yielding one row: matched and modified counts.
// A row counts as modified when applying the patch changes it.
func updateSQL(collection string, filter, update multivarka.Document, multi bool) (string, []interface{}, error) {
	fields, err := setDocument(update)
	if err != nil {
		return "", nil, err
	}

	q := &query{}
	patch, err := q.bindJSON(fields)
	if err != nil {
		return "", nil, err
	}
	where, err := q.where(filter)
	if err != nil {
		return "", nil, err
	}

	limit := ""
	if !multi {
		limit = " ORDER BY id LIMIT 1"
	}
	table := tableName(collection)
	sql := fmt.Sprintf(
		"WITH matched AS (SELECT id, doc FROM %s WHERE %s%s), "+
			"changed AS (UPDATE %s AS t SET doc = t.doc || %s FROM matched AS m "+
			"WHERE t.id = m.id AND (m.doc || %s) IS DISTINCT FROM m.doc RETURNING t.id) "+
			"SELECT (SELECT count(*) FROM matched), (SELECT count(*) FROM changed)",
		table, where, limit, table, patch, patch)
	return sql, q.args, nil
}

func removeSQL(collection string, filter multivarka.Document) (string, []interface{}, error) {
	q := &query{}
	where, err := q.where(filter)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s", tableName(collection), where), q.args, nil
}
