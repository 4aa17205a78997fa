package mongodb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trezcool/campus/core"
)

func TestFilter(t *testing.T) {
	assert.Equal(t, bson.D{}, filter(core.Query{}))

	q := core.Where(core.Eq("role", "student"), core.Gte("year", 2)).Search("a.b", "name", "email")
	want := bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "role", Value: bson.D{{Key: "$eq", Value: "student"}}}},
		bson.D{{Key: "year", Value: bson.D{{Key: "$gte", Value: 2}}}},
		bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "name", Value: primitive.Regex{Pattern: `a\.b`, Options: "i"}}},
			bson.D{{Key: "email", Value: primitive.Regex{Pattern: `a\.b`, Options: "i"}}},
		}}},
	}}}
	assert.Equal(t, want, filter(q))
}

func TestSort(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "_id", Value: 1}}, sort(nil))
	assert.Equal(t,
		bson.D{{Key: "name", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}},
		sort([]core.DBOrdering{{Field: "name", Ascending: true}, {Field: "createdAt"}}),
	)
	assert.Equal(t, bson.D{{Key: "_id", Value: -1}}, sort([]core.DBOrdering{{Field: "_id"}}))
}
