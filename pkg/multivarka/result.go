package multivarka

import "fmt"

// InsertResult is returned by Insert
type InsertResult struct {
	// InsertedID is the identifier assigned by the store, if it reports one
	InsertedID interface{} `json:"insertedId"`
}

// UpdateResult is returned by Update
type UpdateResult struct {
	Matched  int64 `json:"matched"`
	Modified int64 `json:"modified"`
}

// RemoveResult is returned by Remove
type RemoveResult struct {
	Removed int64 `json:"removed"`
}

// Get returns the value of a field
func (d Document) Get(field string) interface{} {
	return d[field]
}

// String returns the string value of a field, or empty string if not found
func (d Document) String(field string) string {
	v, ok := d[field]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	return s
}

// Int returns the int64 value of a field, or 0 if not found/not numeric
func (d Document) Int(field string) int64 {
	v, ok := d[field]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

// Clone returns a deep copy of d. Nested documents, plain maps and slices are copied.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies documents, plain maps and []interface{}; other values are returned as is
func CloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Document:
		return t.Clone()
	case map[string]interface{}:
		return map[string]interface{}(Document(t).Clone())
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = CloneValue(item)
		}
		return out
	default:
		return v
	}
}
