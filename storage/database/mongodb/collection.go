// Package mongodb implements core.Store on top of the official MongoDB driver.
package mongodb

import (
	"context"
	"regexp"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/campus/core"
)

// Collection is the core.Store of documents of type T.
type Collection[T any] struct {
	coll *mongo.Collection
}

func NewCollection[T any](db *mongo.Database, name string) *Collection[T] {
	return &Collection[T]{coll: db.Collection(name)}
}

func translate(err error, action string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return errors.Wrap(core.ErrNotFound, action)
	case mongo.IsDuplicateKeyError(err):
		return errors.Wrapf(core.ErrDuplicate, "%s: %v", action, err)
	default:
		return errors.Wrap(err, action)
	}
}

func (c *Collection[T]) Insert(ctx context.Context, doc T) error {
	_, err := c.coll.InsertOne(ctx, doc)
	return translate(err, "inserting into "+c.coll.Name())
}

func (c *Collection[T]) Get(ctx context.Context, id primitive.ObjectID) (T, error) {
	var doc T
	err := c.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	return doc, translate(err, "getting from "+c.coll.Name())
}

func (c *Collection[T]) FindOne(ctx context.Context, q core.Query) (T, error) {
	var doc T
	err := c.coll.FindOne(ctx, filter(q)).Decode(&doc)
	return doc, translate(err, "finding in "+c.coll.Name())
}

func (c *Collection[T]) Find(ctx context.Context, q core.Query, opts core.FindOptions) ([]T, int64, error) {
	f := filter(q)
	total, err := c.coll.CountDocuments(ctx, f)
	if err != nil {
		return nil, 0, translate(err, "counting "+c.coll.Name())
	}

	findOpts := options.Find().SetSort(sort(opts.Orderings))
	if opts.Page != nil {
		findOpts.SetSkip(opts.Page.Skip()).SetLimit(int64(opts.Page.Size))
	}
	cur, err := c.coll.Find(ctx, f, findOpts)
	if err != nil {
		return nil, 0, translate(err, "querying "+c.coll.Name())
	}
	docs := make([]T, 0)
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, translate(err, "decoding "+c.coll.Name())
	}
	return docs, total, nil
}

func (c *Collection[T]) Exists(ctx context.Context, q core.Query) (bool, error) {
	n, err := c.coll.CountDocuments(ctx, filter(q), options.Count().SetLimit(1))
	if err != nil {
		return false, translate(err, "counting "+c.coll.Name())
	}
	return n > 0, nil
}

func (c *Collection[T]) Replace(ctx context.Context, id primitive.ObjectID, doc T) error {
	res, err := c.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, doc)
	if err != nil {
		return translate(err, "replacing in "+c.coll.Name())
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(core.ErrNotFound, "replacing in "+c.coll.Name())
	}
	return nil
}

func (c *Collection[T]) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := c.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return translate(err, "deleting from "+c.coll.Name())
	}
	if res.DeletedCount == 0 {
		return errors.Wrap(core.ErrNotFound, "deleting from "+c.coll.Name())
	}
	return nil
}

func filter(q core.Query) bson.D {
	and := bson.A{}
	for _, c := range q.Conds {
		and = append(and, cond(c))
	}
	if len(q.AnyOf) > 0 {
		or := bson.A{}
		for _, c := range q.AnyOf {
			or = append(or, cond(c))
		}
		and = append(and, bson.D{{Key: "$or", Value: or}})
	}
	if len(and) == 0 {
		return bson.D{}
	}
	return bson.D{{Key: "$and", Value: and}}
}

func cond(c core.Cond) bson.D {
	if c.Op == core.OpContains {
		term, _ := c.Value.(string)
		return bson.D{{Key: c.Field, Value: primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}}}
	}
	return bson.D{{Key: c.Field, Value: bson.D{{Key: string(c.Op), Value: c.Value}}}}
}

// sort always ends on _id so that pages are stable.
func sort(orderings []core.DBOrdering) bson.D {
	s := bson.D{}
	byID := false
	for _, o := range orderings {
		byID = byID || o.Field == "_id"
		dir := -1
		if o.Ascending {
			dir = 1
		}
		s = append(s, bson.E{Key: o.Field, Value: dir})
	}
	if byID {
		return s
	}
	return append(s, bson.E{Key: "_id", Value: 1})
}
