package catalog

import (
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

const (
	StudentBatchCollection = "student_batches"
	BatchSectionCollection = "student_batch_sections"
)

var (
	StudentBatchIndexes = []core.Index{
		{Fields: []string{"name"}, Unique: true},
	}
	BatchSectionIndexes = []core.Index{
		{Fields: []string{"batchId", "name"}, Unique: true},
	}
)

type StudentBatch struct {
	Meta      `bson:",inline"`
	Name      string `bson:"name" json:"name"`
	Branch    string `bson:"branch" json:"branch"`
	StartYear int    `bson:"startYear" json:"startYear"`
	EndYear   int    `bson:"endYear" json:"endYear"`
	IsActive  bool   `bson:"isActive" json:"isActive"`
}

type StudentBatchInput struct {
	Name      string `json:"name" validate:"required,min=2,max=50"`
	Branch    string `json:"branch" validate:"required,max=50"`
	StartYear int    `json:"startYear" validate:"required,min=1990,max=2100"`
	EndYear   int    `json:"endYear" validate:"required,max=2100,gtfield=StartYear"`
	IsActive  *bool  `json:"isActive"`
}

func (in *StudentBatchInput) Validate(validate *validator.Validate) error {
	in.Name = core.CleanString(in.Name)
	in.Branch = core.CleanString(in.Branch)
	return validate.Struct(in)
}

func (in *StudentBatchInput) Build(creator user.Profile, now time.Time) StudentBatch {
	return in.Apply(StudentBatch{Meta: NewMeta(creator, now), IsActive: true}, now)
}

func (in *StudentBatchInput) Apply(orig StudentBatch, now time.Time) StudentBatch {
	orig.Meta = orig.Meta.Touch(now)
	orig.Name = in.Name
	orig.Branch = in.Branch
	orig.StartYear = in.StartYear
	orig.EndYear = in.EndYear
	if in.IsActive != nil {
		orig.IsActive = *in.IsActive
	}
	return orig
}

type StudentBatchFilter struct {
	Search   string `query:"search"`
	Branch   string `query:"branch"`
	IsActive string `query:"isActive"`
}

func (f *StudentBatchFilter) Query() (core.Query, error) {
	q := core.Query{}.Search(f.Search, "name", "branch")
	q = filterStrings(q, map[string]string{"branch": f.Branch})
	return q.WhereBool("isActive", "isActive", f.IsActive)
}

// BatchSection is a section (A, B, ...) of a StudentBatch.
type BatchSection struct {
	Meta     `bson:",inline"`
	BatchID  primitive.ObjectID `bson:"batchId" json:"batchId"`
	Name     string             `bson:"name" json:"name"`
	Capacity int                `bson:"capacity,omitempty" json:"capacity,omitempty"`
}

type BatchSectionInput struct {
	BatchID  string `json:"batchId" validate:"required,objectid"`
	Name     string `json:"name" validate:"required,alphanum,max=10"`
	Capacity int    `json:"capacity" validate:"omitempty,min=1,max=500"`
}

func (in *BatchSectionInput) Validate(validate *validator.Validate) error {
	in.BatchID = core.CleanString(in.BatchID, true /* lower */)
	in.Name = core.CleanString(in.Name)
	return validate.Struct(in)
}

func (in *BatchSectionInput) Build(creator user.Profile, now time.Time) BatchSection {
	return in.Apply(BatchSection{Meta: NewMeta(creator, now)}, now)
}

func (in *BatchSectionInput) Apply(orig BatchSection, now time.Time) BatchSection {
	orig.Meta = orig.Meta.Touch(now)
	orig.BatchID = objectID(in.BatchID)
	orig.Name = in.Name
	orig.Capacity = in.Capacity
	return orig
}

type BatchSectionFilter struct {
	BatchID string `query:"batchId"`
	Name    string `query:"name"`
}

func (f *BatchSectionFilter) Query() (core.Query, error) {
	q, err := filterID(core.Query{}, "batchId", "batchId", f.BatchID)
	if err != nil {
		return q, err
	}
	return filterStrings(q, map[string]string{"name": f.Name}), nil
}
