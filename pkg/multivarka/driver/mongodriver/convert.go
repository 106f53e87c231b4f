package mongodriver

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Victoria-Vladimirova/webdev-tasks-2/pkg/multivarka"
)

// toBSON converts a document and everything nested in it to bson.M / bson.A
func toBSON(doc multivarka.Document) bson.M {
	if doc == nil {
		return bson.M{}
	}
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = toBSONValue(v)
	}
	return out
}

func toBSONValue(v interface{}) interface{} {
	switch t := v.(type) {
	case multivarka.Document:
		return toBSON(t)
	case map[string]interface{}:
		return toBSON(multivarka.Document(t))
	case []interface{}:
		out := make(bson.A, len(t))
		for i, item := range t {
			out[i] = toBSONValue(item)
		}
		return out
	default:
		return v
	}
}

// fromBSON converts a decoded record back to plain Go values
func fromBSON(m bson.M) multivarka.Document {
	out := make(multivarka.Document, len(m))
	for k, v := range m {
		out[k] = fromBSONValue(v)
	}
	return out
}

func fromBSONValue(v interface{}) interface{} {
	switch t := v.(type) {
	case bson.M:
		return fromBSON(t)
	case bson.D:
		out := make(multivarka.Document, len(t))
		for _, e := range t {
			out[e.Key] = fromBSONValue(e.Value)
		}
		return out
	case bson.A:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = fromBSONValue(item)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	default:
		return v
	}
}
