package inmem

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trezcool/campus/core"
)

type matcher struct {
	conds []core.Cond
	anyOf []core.Cond
}

// compile normalizes the query values the way documents are: through the bson codec.
func compile(q core.Query) (matcher, error) {
	norm := func(conds []core.Cond) ([]core.Cond, error) {
		out := make([]core.Cond, 0, len(conds))
		for _, c := range conds {
			v, err := normalize(c.Value)
			if err != nil {
				return nil, errors.Wrapf(err, "normalizing %s", c.Field)
			}
			out = append(out, core.Cond{Field: c.Field, Op: c.Op, Value: v})
		}
		return out, nil
	}
	conds, err := norm(q.Conds)
	if err != nil {
		return matcher{}, err
	}
	anyOf, err := norm(q.AnyOf)
	if err != nil {
		return matcher{}, err
	}
	return matcher{conds: conds, anyOf: anyOf}, nil
}

func normalize(v interface{}) (interface{}, error) {
	raw, err := bson.Marshal(bson.M{"v": v})
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m["v"], nil
}

func (m matcher) matches(doc bson.M) bool {
	for _, c := range m.conds {
		if !condMatches(doc, c) {
			return false
		}
	}
	if len(m.anyOf) == 0 {
		return true
	}
	for _, c := range m.anyOf {
		if condMatches(doc, c) {
			return true
		}
	}
	return false
}

func condMatches(doc bson.M, c core.Cond) bool {
	values := lookup(doc, c.Field)
	switch c.Op {
	case core.OpEq:
		return anyEqual(values, c.Value)
	case core.OpNe:
		return !anyEqual(values, c.Value)
	case core.OpIn:
		targets, _ := c.Value.(primitive.A)
		for _, target := range targets {
			if anyEqual(values, target) {
				return true
			}
		}
		return false
	case core.OpContains:
		term, _ := c.Value.(string)
		term = strings.ToLower(term)
		for _, v := range values {
			if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), term) {
				return true
			}
		}
		return false
	case core.OpGt, core.OpGte, core.OpLt, core.OpLte:
		for _, v := range values {
			if !sameKind(v, c.Value) {
				continue
			}
			cmp := compareValues(v, c.Value)
			if (c.Op == core.OpGt && cmp > 0) || (c.Op == core.OpGte && cmp >= 0) ||
				(c.Op == core.OpLt && cmp < 0) || (c.Op == core.OpLte && cmp <= 0) {
				return true
			}
		}
		return false
	}
	return false
}

// anyEqual reports whether one of `values` equals `target`. A missing field equals nil.
func anyEqual(values []interface{}, target interface{}) bool {
	if len(values) == 0 {
		return target == nil
	}
	for _, v := range values {
		if sameKind(v, target) && compareValues(v, target) == 0 {
			return true
		}
	}
	return false
}

// lookup resolves a dotted path. Arrays met along the way (or at the end) are flattened,
// so that a condition matches when any element does.
func lookup(doc interface{}, path string) []interface{} {
	current := []interface{}{doc}
	for _, key := range strings.Split(path, ".") {
		var next []interface{}
		for _, v := range current {
			for _, elem := range flatten(v) {
				if child, ok := field(elem, key); ok {
					next = append(next, child)
				}
			}
		}
		current = next
	}
	var out []interface{}
	for _, v := range current {
		out = append(out, flatten(v)...)
	}
	return out
}

func flatten(v interface{}) []interface{} {
	if arr, ok := v.(primitive.A); ok {
		return arr
	}
	return []interface{}{v}
}

func field(v interface{}, key string) (interface{}, bool) {
	switch doc := v.(type) {
	case bson.M:
		child, ok := doc[key]
		return child, ok
	case bson.D:
		for _, e := range doc {
			if e.Key == key {
				return e.Value, true
			}
		}
	}
	return nil, false
}

// first is the first value at `path`, nil when missing. Used for sorting and index keys.
func first(doc bson.M, path string) interface{} {
	if values := lookup(doc, path); len(values) > 0 {
		return values[0]
	}
	return nil
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// typeRank orders values of different kinds, roughly like MongoDB does.
func typeRank(v interface{}) int {
	switch v.(type) {
	case nil:
		return 0
	case int32, int64, float64:
		return 1
	case string:
		return 2
	case primitive.ObjectID:
		return 3
	case bool:
		return 4
	case primitive.DateTime:
		return 5
	}
	return 6
}

func sameKind(a, b interface{}) bool {
	return typeRank(a) == typeRank(b) && typeRank(a) < 6
}

func compareValues(a, b interface{}) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch x := a.(type) {
	case nil:
		return 0
	case string:
		return strings.Compare(x, b.(string))
	case primitive.ObjectID:
		y := b.(primitive.ObjectID)
		return bytes.Compare(x[:], y[:])
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case primitive.DateTime:
		y := b.(primitive.DateTime)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	if x, ok := number(a); ok {
		y, _ := number(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}
