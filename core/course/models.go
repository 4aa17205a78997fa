package course

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/catalog"
	"github.com/trezcool/campus/core/user"
)

const Collection = "courses"

// Course types
const (
	TypeTheory   = "theory"
	TypeLab      = "lab"
	TypeElective = "elective"
)

var Indexes = []core.Index{
	{Fields: []string{"code"}, Unique: true},
	{Fields: []string{"department", "semester"}},
}

// Course is owned by its creator: faculty members may only edit the courses they created.
type Course struct {
	catalog.Meta `bson:",inline"`
	Code         string `bson:"code" json:"code"`
	Name         string `bson:"name" json:"name"`
	Department   string `bson:"department" json:"department"`
	Credits      int    `bson:"credits" json:"credits"`
	Semester     int    `bson:"semester" json:"semester"`
	Type         string `bson:"type" json:"type"`
	Description  string `bson:"description,omitempty" json:"description,omitempty"`
	IsActive     bool   `bson:"isActive" json:"isActive"`
}

type Input struct {
	Code        string `json:"code" validate:"required,min=2,max=20,alphanum"`
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Department  string `json:"department" validate:"required,max=100"`
	Credits     int    `json:"credits" validate:"required,min=1,max=10"`
	Semester    int    `json:"semester" validate:"required,min=1,max=12"`
	Type        string `json:"type" validate:"required,oneof=theory lab elective"`
	Description string `json:"description" validate:"omitempty,max=1000"`
	IsActive    *bool  `json:"isActive"`
}

func (in *Input) Validate(validate *validator.Validate) error {
	in.Code = strings.ToUpper(core.CleanString(in.Code))
	in.Name = core.CleanString(in.Name)
	in.Department = core.CleanString(in.Department)
	in.Type = core.CleanString(in.Type, true /* lower */)
	in.Description = core.CleanString(in.Description)
	return validate.Struct(in)
}

func (in *Input) Build(creator user.Profile, now time.Time) Course {
	return in.Apply(Course{Meta: catalog.NewMeta(creator, now), IsActive: true}, now)
}

// Apply never changes the creator.
func (in *Input) Apply(orig Course, now time.Time) Course {
	orig.Meta = orig.Meta.Touch(now)
	orig.Code = in.Code
	orig.Name = in.Name
	orig.Department = in.Department
	orig.Credits = in.Credits
	orig.Semester = in.Semester
	orig.Type = in.Type
	orig.Description = in.Description
	if in.IsActive != nil {
		orig.IsActive = *in.IsActive
	}
	return orig
}

type QueryFilter struct {
	Search     string `query:"search"`
	Department string `query:"department"`
	Semester   int    `query:"semester"`
	Type       string `query:"type"`
	IsActive   string `query:"isActive"`
}

func (qf *QueryFilter) Query() (core.Query, error) {
	q := core.Query{}.Search(qf.Search, "code", "name")
	if dept := core.CleanString(qf.Department); dept != "" {
		q = q.Where(core.Eq("department", dept))
	}
	if typ := core.CleanString(qf.Type, true /* lower */); typ != "" {
		switch typ {
		case TypeTheory, TypeLab, TypeElective:
			q = q.Where(core.Eq("type", typ))
		default:
			return q, core.NewFieldError("type", "must be one of [theory lab elective]")
		}
	}
	if qf.Semester != 0 {
		q = q.Where(core.Eq("semester", qf.Semester))
	}
	return q.WhereBool("isActive", "isActive", qf.IsActive)
}

// NewService returns the course service.
func NewService(store core.Store[Course]) *catalog.Service[Course] {
	return catalog.NewService[Course]("course", store)
}
