package memdriver

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/Victoria-Vladimirova/webdev-tasks-2/pkg/multivarka"
)

// Matches reports whether doc satisfies every condition of filter
func Matches(doc multivarka.Document, filter multivarka.Document) (bool, error) {
	for field, cond := range filter {
		actual, exists := lookup(doc, field)

		ops, isOps := operatorDoc(cond)
		if !isOps {
			if !matchEqual(actual, exists, cond) {
				return false, nil
			}
			continue
		}

		for op, arg := range ops {
			ok, err := matchOperator(op, actual, exists, arg)
			if err != nil {
				return false, fmt.Errorf("field %q: %w", field, err)
			}
			if !ok {
				return false, nil
			}
		}
	}
	return true, nil
}

func matchOperator(op string, actual interface{}, exists bool, arg interface{}) (bool, error) {
	switch op {
	case multivarka.OpNotEqual:
		return !matchEqual(actual, exists, arg), nil

	case multivarka.OpGreaterThan, multivarka.OpLessThan:
		if !exists {
			return false, nil
		}
		c, ok := compareValues(actual, arg)
		if !ok {
			return false, nil
		}
		if op == multivarka.OpGreaterThan {
			return c > 0, nil
		}
		return c < 0, nil

	case multivarka.OpIn, multivarka.OpNotIn:
		list, ok := asList(arg)
		if !ok {
			return false, fmt.Errorf("%s needs an array, got %T", op, arg)
		}
		found := false
		for _, item := range list {
			if matchEqual(actual, exists, item) {
				found = true
				break
			}
		}
		if op == multivarka.OpIn {
			return found, nil
		}
		return !found, nil

	default:
		return false, fmt.Errorf("unsupported operator %s", op)
	}
}

// matchEqual follows document-store equality: a missing field only equals
// null, and an array field equals any of its elements
func matchEqual(actual interface{}, exists bool, expected interface{}) bool {
	if !exists {
		return expected == nil
	}
	if ValuesEqual(actual, expected) {
		return true
	}
	if list, ok := asList(actual); ok {
		if _, expectedIsList := asList(expected); !expectedIsList {
			for _, item := range list {
				if ValuesEqual(item, expected) {
					return true
				}
			}
		}
	}
	return false
}

// ValuesEqual compares two values, treating all numeric kinds alike
func ValuesEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if an, ok := ToFloat64(a); ok {
		if bn, ok := ToFloat64(b); ok {
			return an == bn
		}
		return false
	}

	if ad, ok := asDocument(a); ok {
		bd, ok := asDocument(b)
		if !ok || len(ad) != len(bd) {
			return false
		}
		for k, av := range ad {
			bv, ok := bd[k]
			if !ok || !ValuesEqual(av, bv) {
				return false
			}
		}
		return true
	}

	if al, ok := asList(a); ok {
		bl, ok := asList(b)
		if !ok || len(al) != len(bl) {
			return false
		}
		for i := range al {
			if !ValuesEqual(al[i], bl[i]) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(a, b)
}

// compareValues orders numbers, strings and times. Mixed kinds do not compare.
func compareValues(a, b interface{}) (int, bool) {
	if an, ok := ToFloat64(a); ok {
		bn, ok := ToFloat64(b)
		if !ok {
			return 0, false
		}
		switch {
		case an < bn:
			return -1, true
		case an > bn:
			return 1, true
		}
		return 0, true
	}

	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(as, bs), true
	}

	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return at.Compare(bt), true
	}

	return 0, false
}

// ToFloat64 converts various numeric types to float64 for comparison
func ToFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

// lookup resolves a possibly dotted path ("address.city")
func lookup(doc multivarka.Document, path string) (interface{}, bool) {
	if v, ok := doc[path]; ok {
		return v, true
	}
	head, rest, found := strings.Cut(path, ".")
	if !found {
		return nil, false
	}
	sub, ok := asDocument(doc[head])
	if !ok {
		return nil, false
	}
	return lookup(sub, rest)
}

// operatorDoc returns cond as an operator document ({"$gt": 1, ...})
func operatorDoc(cond interface{}) (multivarka.Document, bool) {
	doc, ok := asDocument(cond)
	if !ok || len(doc) == 0 {
		return nil, false
	}
	for k := range doc {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return doc, true
}

func asDocument(v interface{}) (multivarka.Document, bool) {
	switch t := v.(type) {
	case multivarka.Document:
		return t, true
	case map[string]interface{}:
		return multivarka.Document(t), true
	default:
		return nil, false
	}
}

func asList(v interface{}) ([]interface{}, bool) {
	switch t := v.(type) {
	case []interface{}:
		return t, true
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}
