package multivarka

import (
	"fmt"
	"reflect"
)

// Operator keys emitted into filter and update documents
const (
	OpGreaterThan = "$gt"
	OpLessThan    = "$lt"
	OpNotEqual    = "$ne"
	OpIn          = "$in"
	OpNotIn       = "$nin"
	OpSet         = "$set"
)

// Comparison is the kind of condition requested after Where
type Comparison int

const (
	CompareEqual Comparison = iota
	CompareLessThan
	CompareMoreThan
	CompareInclude
)

func (c Comparison) String() string {
	switch c {
	case CompareEqual:
		return "Equal"
	case CompareLessThan:
		return "LessThan"
	case CompareMoreThan:
		return "MoreThan"
	case CompareInclude:
		return "Include"
	default:
		return fmt.Sprintf("Comparison(%d)", int(c))
	}
}

// Fragment returns the filter value for one field.
//
//	Equal     v          | {$ne: v}
//	LessThan  {$lt: v}   | {$gt: v}
//	MoreThan  {$gt: v}   | {$lt: v}
//	Include   {$in: l}   | {$nin: l}
func Fragment(cmp Comparison, negated bool, value interface{}) interface{} {
	switch cmp {
	case CompareEqual:
		if negated {
			return Document{OpNotEqual: value}
		}
		return value
	case CompareLessThan:
		if negated {
			return Document{OpGreaterThan: value}
		}
		return Document{OpLessThan: value}
	case CompareMoreThan:
		if negated {
			return Document{OpLessThan: value}
		}
		return Document{OpGreaterThan: value}
	case CompareInclude:
		if negated {
			return Document{OpNotIn: value}
		}
		return Document{OpIn: value}
	}
	panic(fmt.Sprintf("multivarka: unknown comparison %d", int(cmp)))
}

// MergeCondition adds a field fragment to filter.
//
// Two range documents on the same field are merged bound by bound, so
// MoreThan(1) followed by LessThan(4) becomes {$gt: 1, $lt: 4}. In every
// other case the new fragment replaces the previous one.
func MergeCondition(filter Document, field string, fragment interface{}) {
	prev, ok := filter[field]
	if ok && isRange(prev) && isRange(fragment) {
		merged := Document{}
		for k, v := range prev.(Document) {
			merged[k] = v
		}
		for k, v := range fragment.(Document) {
			merged[k] = v
		}
		filter[field] = merged
		return
	}
	filter[field] = fragment
}

func isRange(v interface{}) bool {
	doc, ok := v.(Document)
	if !ok || len(doc) == 0 {
		return false
	}
	for k := range doc {
		if k != OpGreaterThan && k != OpLessThan {
			return false
		}
	}
	return true
}

// normalizeList turns any slice or array into []interface{}
func normalizeList(list interface{}) ([]interface{}, bool) {
	if list == nil {
		return nil, false
	}
	if l, ok := list.([]interface{}); ok {
		out := make([]interface{}, len(l))
		copy(out, l)
		return out, true
	}
	rv := reflect.ValueOf(list)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	// []byte is a scalar for document stores
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
