package mongodriver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Victoria-Vladimirova/webdev-tasks-2/pkg/multivarka"
)

func TestToBSON(t *testing.T) {
	filter := multivarka.Document{
		"group": "CS-301",
		"grade": multivarka.Document{"$gt": 3, "$lt": 6},
		"name":  multivarka.Document{"$nin": []interface{}{"Anna", "Petr"}},
		"meta":  map[string]interface{}{"year": 2},
	}

	assert.Equal(t, bson.M{
		"group": "CS-301",
		"grade": bson.M{"$gt": 3, "$lt": 6},
		"name":  bson.M{"$nin": bson.A{"Anna", "Petr"}},
		"meta":  bson.M{"year": 2},
	}, toBSON(filter))

	assert.Equal(t, bson.M{}, toBSON(nil))
}

func TestToBSON_Marshals(t *testing.T) {
	raw, err := bson.Marshal(toBSON(multivarka.Document{
		"$set": multivarka.Document{"tags": []interface{}{"a", multivarka.Document{"b": 1}}},
	}))
	assert.NoError(t, err)
	assert.NotEmpty(t, raw)
}

func TestFromBSON(t *testing.T) {
	id := primitive.NewObjectID()
	at := time.Date(2024, 9, 1, 8, 30, 0, 0, time.UTC)

	got := fromBSON(bson.M{
		"_id":     id,
		"name":    "Anna",
		"at":      primitive.NewDateTimeFromTime(at),
		"address": bson.D{{Key: "city", Value: "Ekb"}},
		"tags":    bson.A{"chess", bson.M{"level": int32(2)}},
	})

	assert.Equal(t, multivarka.Document{
		"_id":     id,
		"name":    "Anna",
		"at":      at,
		"address": multivarka.Document{"city": "Ekb"},
		"tags":    []interface{}{"chess", multivarka.Document{"level": int32(2)}},
	}, got)
}
