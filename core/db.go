package core

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type (
	// Store persists one kind of document. Implementations translate driver errors into
	// ErrNotFound and ErrDuplicate (unique index violations).
	Store[T any] interface {
		Insert(ctx context.Context, doc T) error
		Get(ctx context.Context, id primitive.ObjectID) (T, error)
		FindOne(ctx context.Context, q Query) (T, error)
		// Find returns the matching page and the total number of matching documents.
		Find(ctx context.Context, q Query, opts FindOptions) ([]T, int64, error)
		Exists(ctx context.Context, q Query) (bool, error)
		Replace(ctx context.Context, id primitive.ObjectID, doc T) error
		Delete(ctx context.Context, id primitive.ObjectID) error
	}

	// Index describes a collection index; Fields are bson paths.
	Index struct {
		Fields []string
		Unique bool
	}

	FindOptions struct {
		Page      *Page // nil means everything
		Orderings []DBOrdering
	}
)

// Name is the index name, derived from its fields.
func (idx Index) Name() string {
	return strings.ReplaceAll(strings.Join(idx.Fields, "_"), ".", "_")
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	if ord.Ascending {
		return ord.Field
	}
	return "-" + ord.Field
}

// Op is a comparison operator, named after its mongo counterpart.
type Op string

const (
	OpEq       Op = "$eq"
	OpNe       Op = "$ne"
	OpGt       Op = "$gt"
	OpGte      Op = "$gte"
	OpLt       Op = "$lt"
	OpLte      Op = "$lte"
	OpIn       Op = "$in"
	OpContains Op = "$regex" // case-insensitive substring match
)

// Cond is a single condition on a (dotted) document path. A path crossing an array
// matches when any element matches.
type Cond struct {
	Field string
	Op    Op
	Value interface{}
}

func Eq(field string, v interface{}) Cond { return Cond{Field: field, Op: OpEq, Value: v} }
func Ne(field string, v interface{}) Cond { return Cond{Field: field, Op: OpNe, Value: v} }
func Gte(field string, v interface{}) Cond { return Cond{Field: field, Op: OpGte, Value: v} }
func Lte(field string, v interface{}) Cond { return Cond{Field: field, Op: OpLte, Value: v} }
func Lt(field string, v interface{}) Cond { return Cond{Field: field, Op: OpLt, Value: v} }
func In(field string, vs ...interface{}) Cond { return Cond{Field: field, Op: OpIn, Value: vs} }
func Contains(field string, s string) Cond { return Cond{Field: field, Op: OpContains, Value: s} }

// Query is a conjunction of Conds, plus an optional disjunction (AnyOf) that must match at least once.
type Query struct {
	Conds []Cond
	AnyOf []Cond
}

func Where(conds ...Cond) Query {
	return Query{Conds: conds}
}

func (q Query) Where(conds ...Cond) Query {
	q.Conds = append(append([]Cond(nil), q.Conds...), conds...)
	return q
}

func (q Query) Any(conds ...Cond) Query {
	q.AnyOf = append(append([]Cond(nil), q.AnyOf...), conds...)
	return q
}

// Search matches `term` against any of the given fields.
func (q Query) Search(term string, fields ...string) Query {
	term = CleanString(term)
	if term == "" {
		return q
	}
	conds := make([]Cond, 0, len(fields))
	for _, f := range fields {
		conds = append(conds, Contains(f, term))
	}
	return q.Any(conds...)
}

// Page is a 1-based pagination request.
type Page struct {
	Number int
	Size   int
}

func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Page{Number: number, Size: size}
}

func (p Page) Skip() int64 {
	return int64((p.Number - 1) * p.Size)
}

// PageInfo is the pagination block of list responses.
type PageInfo struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalItems   int64 `json:"totalItems"`
	ItemsPerPage int   `json:"itemsPerPage"`
}

func (p Page) Info(total int64) PageInfo {
	return PageInfo{
		CurrentPage:  p.Number,
		TotalPages:   int(math.Ceil(float64(total) / float64(p.Size))),
		TotalItems:   total,
		ItemsPerPage: p.Size,
	}
}

// WhereBool adds an equality on a boolean query param ("true", "false", "1", "0"); blank is ignored.
func (q Query) WhereBool(param, field, val string) (Query, error) {
	if val = CleanString(val); val == "" {
		return q, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return q, NewFieldError(param, "must be true or false")
	}
	return q.Where(Eq(field, b)), nil
}

// ParseID parses a document id taken from a URL; malformed ids cannot exist, so they are "not found".
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, errors.Wrapf(ErrNotFound, "malformed id %q", hex)
	}
	return id, nil
}

// ParseFilterID parses an id given as a filter value; malformed ids are a validation failure on `field`.
func ParseFilterID(field, hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(CleanString(hex))
	if err != nil {
		return primitive.NilObjectID, NewFieldError(field, "must be a valid identifier")
	}
	return id, nil
}
