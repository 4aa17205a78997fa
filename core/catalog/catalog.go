// Package catalog holds the reference data of the campus (departments, batches, holidays, ...)
// and the generic CRUD service they share.
package catalog

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/access"
	"github.com/trezcool/campus/core/user"
)

// Entry is a document served by a Service.
type Entry interface {
	access.Record
	DocumentID() primitive.ObjectID
}

// Input is a validated request body turned into (or applied onto) an Entry.
type Input[T any] interface {
	Validate(validate *validator.Validate) error
	Build(creator user.Profile, now time.Time) T
	Apply(orig T, now time.Time) T
}

// Filter turns list query params into a store Query.
type Filter interface {
	Query() (core.Query, error)
}

// Meta is embedded by every catalog document.
type Meta struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	CreatedBy primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func NewMeta(creator user.Profile, now time.Time) Meta {
	return Meta{ID: primitive.NewObjectID(), CreatedBy: creator.ID, CreatedAt: now, UpdatedAt: now}
}

func (m Meta) DocumentID() primitive.ObjectID { return m.ID }

func (m Meta) AccessAttributes() access.Attributes {
	return access.Attributes{CreatorID: m.CreatedBy.Hex()}
}

// Touch returns a copy of the metadata updated at `now`.
func (m Meta) Touch(now time.Time) Meta {
	m.UpdatedAt = now
	return m
}

// ScopeQuery pins `q` to the records a restricted requester may list. Only creator scoping
// applies to catalog documents; any other scope is refused.
func ScopeQuery(q core.Query, scope access.Attributes, restricted bool) (core.Query, error) {
	if !restricted {
		return q, nil
	}
	if scope.CreatorID == "" || len(scope.OwnerIDs) > 0 || scope.HostelBlock != "" || scope.FacultyID != "" {
		return q, errors.Wrap(core.ErrForbidden, "unsupported list scope")
	}
	id, err := primitive.ObjectIDFromHex(scope.CreatorID)
	if err != nil {
		return q, errors.Wrap(core.ErrForbidden, "malformed creator scope")
	}
	return q.Where(core.Eq("createdBy", id)), nil
}

// Service is the CRUD service of one kind of catalog document.
type Service[T Entry] struct {
	name  string
	store core.Store[T]
}

// NewService returns a Service; `name` is used in messages ("department already exists").
func NewService[T Entry](name string, store core.Store[T]) *Service[T] {
	return &Service[T]{name: name, store: store}
}

func (svc *Service[T]) Name() string { return svc.name }

func (svc *Service[T]) duplicate(err error) error {
	if errors.Cause(err) == core.ErrDuplicate {
		return errors.Wrap(core.ErrDuplicate, svc.name+" already exists")
	}
	return err
}

func (svc *Service[T]) Create(ctx context.Context, in Input[T], creator user.Profile) (T, error) {
	doc := in.Build(creator, core.Now())
	if err := svc.store.Insert(ctx, doc); err != nil {
		var zero T
		return zero, errors.Wrapf(svc.duplicate(err), "inserting %s", svc.name)
	}
	return doc, nil
}

func (svc *Service[T]) Get(ctx context.Context, id primitive.ObjectID) (T, error) {
	return svc.store.Get(ctx, id)
}

func (svc *Service[T]) Query(ctx context.Context, q core.Query, opts core.FindOptions) ([]T, int64, error) {
	return svc.store.Find(ctx, q, opts)
}

func (svc *Service[T]) Update(ctx context.Context, orig T, in Input[T]) (T, error) {
	doc := in.Apply(orig, core.Now())
	if err := svc.store.Replace(ctx, orig.DocumentID(), doc); err != nil {
		var zero T
		return zero, errors.Wrapf(svc.duplicate(err), "updating %s", svc.name)
	}
	return doc, nil
}

func (svc *Service[T]) Delete(ctx context.Context, doc T) error {
	return errors.Wrapf(svc.store.Delete(ctx, doc.DocumentID()), "deleting %s", svc.name)
}

// objectID parses a hex id already checked by the `objectid` tag; empty gives the nil id.
func objectID(hex string) primitive.ObjectID {
	id, _ := primitive.ObjectIDFromHex(hex)
	return id
}

// filterID adds an equality on an id filter param.
func filterID(q core.Query, param, field, hex string) (core.Query, error) {
	if hex = core.CleanString(hex); hex == "" {
		return q, nil
	}
	id, err := core.ParseFilterID(param, hex)
	if err != nil {
		return q, err
	}
	return q.Where(core.Eq(field, id)), nil
}

// filterStrings adds equalities on the non-blank string params.
func filterStrings(q core.Query, fields map[string]string) core.Query {
	for field, val := range fields {
		if val = core.CleanString(val); val != "" {
			q = q.Where(core.Eq(field, val))
		}
	}
	return q
}
