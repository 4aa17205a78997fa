// Package inmem is an in-memory core.Store used by tests and local runs without MongoDB.
// Documents go through the bson codec like they would with the real driver, and unique
// indexes are enforced.
package inmem

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trezcool/campus/core"
)

type row struct {
	raw bson.Raw
	doc bson.M
	seq int
}

// Table is the core.Store of documents of type T.
type Table[T any] struct {
	mu      sync.RWMutex
	name    string
	indexes []core.Index
	rows    map[primitive.ObjectID]*row
	seq     int
}

func NewTable[T any](name string, indexes []core.Index) *Table[T] {
	return &Table[T]{name: name, indexes: indexes, rows: make(map[primitive.ObjectID]*row)}
}

func (t *Table[T]) encode(doc T) (*row, primitive.ObjectID, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, primitive.NilObjectID, errors.Wrapf(err, "encoding %s document", t.name)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, primitive.NilObjectID, errors.Wrapf(err, "decoding %s document", t.name)
	}
	id, ok := m["_id"].(primitive.ObjectID)
	if !ok {
		return nil, primitive.NilObjectID, errors.Errorf("%s document has no ObjectID _id", t.name)
	}
	return &row{raw: raw, doc: m}, id, nil
}

func (t *Table[T]) decode(r *row) (T, error) {
	var doc T
	err := bson.Unmarshal(r.raw, &doc)
	return doc, errors.Wrapf(err, "decoding %s document", t.name)
}

// checkUnique must be called with the lock held.
func (t *Table[T]) checkUnique(id primitive.ObjectID, r *row) error {
	for _, idx := range t.indexes {
		if !idx.Unique {
			continue
		}
		key := indexKey(r.doc, idx)
		for otherID, other := range t.rows {
			if otherID != id && indexKey(other.doc, idx) == key {
				return errors.Wrapf(core.ErrDuplicate, "%s: duplicate key on index %s", t.name, idx.Name())
			}
		}
	}
	return nil
}

func (t *Table[T]) Insert(_ context.Context, doc T) error {
	r, id, err := t.encode(doc)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; ok {
		return errors.Wrapf(core.ErrDuplicate, "%s: duplicate _id", t.name)
	}
	if err := t.checkUnique(id, r); err != nil {
		return err
	}
	t.seq++
	r.seq = t.seq
	t.rows[id] = r
	return nil
}

func (t *Table[T]) Get(_ context.Context, id primitive.ObjectID) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, errors.Wrapf(core.ErrNotFound, "getting from %s", t.name)
	}
	return t.decode(r)
}

// match returns the matching rows in insertion order. Must be called with the lock held.
func (t *Table[T]) match(q core.Query) ([]*row, error) {
	m, err := compile(q)
	if err != nil {
		return nil, err
	}
	rows := make([]*row, 0)
	for _, r := range t.rows {
		if m.matches(r.doc) {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	return rows, nil
}

func (t *Table[T]) FindOne(_ context.Context, q core.Query) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rows, err := t.match(q)
	if err != nil {
		var zero T
		return zero, err
	}
	if len(rows) == 0 {
		var zero T
		return zero, errors.Wrapf(core.ErrNotFound, "finding in %s", t.name)
	}
	return t.decode(rows[0])
}

func (t *Table[T]) Find(_ context.Context, q core.Query, opts core.FindOptions) ([]T, int64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rows, err := t.match(q)
	if err != nil {
		return nil, 0, err
	}
	total := int64(len(rows))

	if len(opts.Orderings) > 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			for _, o := range opts.Orderings {
				c := compareValues(first(rows[i].doc, o.Field), first(rows[j].doc, o.Field))
				if c == 0 {
					continue
				}
				if o.Ascending {
					return c < 0
				}
				return c > 0
			}
			return false
		})
	}
	if opts.Page != nil {
		skip := int(opts.Page.Skip())
		if skip > len(rows) {
			skip = len(rows)
		}
		end := skip + opts.Page.Size
		if end > len(rows) {
			end = len(rows)
		}
		rows = rows[skip:end]
	}

	docs := make([]T, 0, len(rows))
	for _, r := range rows {
		doc, err := t.decode(r)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, doc)
	}
	return docs, total, nil
}

func (t *Table[T]) Exists(_ context.Context, q core.Query) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rows, err := t.match(q)
	return len(rows) > 0, err
}

func (t *Table[T]) Replace(_ context.Context, id primitive.ObjectID, doc T) error {
	r, docID, err := t.encode(doc)
	if err != nil {
		return err
	}
	if docID != id {
		return errors.Errorf("%s: cannot change the _id of a document", t.name)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	orig, ok := t.rows[id]
	if !ok {
		return errors.Wrapf(core.ErrNotFound, "replacing in %s", t.name)
	}
	if err := t.checkUnique(id, r); err != nil {
		return err
	}
	r.seq = orig.seq
	t.rows[id] = r
	return nil
}

func (t *Table[T]) Delete(_ context.Context, id primitive.ObjectID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return errors.Wrapf(core.ErrNotFound, "deleting from %s", t.name)
	}
	delete(t.rows, id)
	return nil
}

// Len returns the number of documents in the table.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// indexKey renders the values of the index fields of `doc`; missing fields index as null.
func indexKey(doc bson.M, idx core.Index) string {
	parts := make([]string, 0, len(idx.Fields))
	for _, f := range idx.Fields {
		parts = append(parts, fmt.Sprintf("%#v", first(doc, f)))
	}
	return strings.Join(parts, "\x00")
}
