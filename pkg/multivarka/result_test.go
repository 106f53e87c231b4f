package multivarka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentAccessors(t *testing.T) {
	doc := Document{"name": "Petr", "grade": 5, "score": 4.5, "big": int64(7), "none": nil}

	assert.Equal(t, "Petr", doc.Get("name"))
	assert.Equal(t, "Petr", doc.String("name"))
	assert.Equal(t, "5", doc.String("grade"))
	assert.Equal(t, "", doc.String("none"))
	assert.Equal(t, "", doc.String("missing"))

	assert.Equal(t, int64(5), doc.Int("grade"))
	assert.Equal(t, int64(4), doc.Int("score"))
	assert.Equal(t, int64(7), doc.Int("big"))
	assert.Equal(t, int64(0), doc.Int("name"))
}

func TestDocumentClone(t *testing.T) {
	orig := Document{
		"name": "Petr",
		"address": Document{"city": "Ekb"},
		"raw":     map[string]interface{}{"k": "v"},
		"tags":    []interface{}{"a", Document{"b": 1}},
	}

	clone := orig.Clone()
	assert.Equal(t, orig, clone)

	clone["address"].(Document)["city"] = "Msk"
	clone["raw"].(map[string]interface{})["k"] = "w"
	clone["tags"].([]interface{})[1].(Document)["b"] = 2

	assert.Equal(t, "Ekb", orig["address"].(Document)["city"])
	assert.Equal(t, "v", orig["raw"].(map[string]interface{})["k"])
	assert.Equal(t, 1, orig["tags"].([]interface{})[1].(Document)["b"])

	assert.Nil(t, Document(nil).Clone())
}
