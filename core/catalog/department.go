package catalog

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

const (
	DepartmentCollection        = "departments"
	FacultyDepartmentCollection = "faculty_departments"
)

var (
	DepartmentIndexes = []core.Index{
		{Fields: []string{"code"}, Unique: true},
	}
	FacultyDepartmentIndexes = []core.Index{
		{Fields: []string{"facultyId"}, Unique: true},
		{Fields: []string{"departmentId"}},
	}
)

type Department struct {
	Meta        `bson:",inline"`
	Name        string `bson:"name" json:"name"`
	Code        string `bson:"code" json:"code"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	IsActive    bool   `bson:"isActive" json:"isActive"`
}

type DepartmentInput struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Code        string `json:"code" validate:"required,alphanum,max=10"`
	Description string `json:"description" validate:"omitempty,max=500"`
	IsActive    *bool  `json:"isActive"`
}

func (in *DepartmentInput) Validate(validate *validator.Validate) error {
	in.Name = core.CleanString(in.Name)
	in.Code = strings.ToUpper(core.CleanString(in.Code))
	in.Description = core.CleanString(in.Description)
	return validate.Struct(in)
}

func (in *DepartmentInput) Build(creator user.Profile, now time.Time) Department {
	return in.Apply(Department{Meta: NewMeta(creator, now), IsActive: true}, now)
}

func (in *DepartmentInput) Apply(orig Department, now time.Time) Department {
	orig.Meta = orig.Meta.Touch(now)
	orig.Name = in.Name
	orig.Code = in.Code
	orig.Description = in.Description
	if in.IsActive != nil {
		orig.IsActive = *in.IsActive
	}
	return orig
}

type DepartmentFilter struct {
	Search   string `query:"search"`
	IsActive string `query:"isActive"`
}

func (f *DepartmentFilter) Query() (core.Query, error) {
	return core.Query{}.Search(f.Search, "name", "code").WhereBool("isActive", "isActive", f.IsActive)
}

// FacultyDepartment attaches a faculty member to their department.
type FacultyDepartment struct {
	Meta         `bson:",inline"`
	FacultyID    primitive.ObjectID `bson:"facultyId" json:"facultyId"`
	DepartmentID primitive.ObjectID `bson:"departmentId" json:"departmentId"`
	Designation  string             `bson:"designation,omitempty" json:"designation,omitempty"`
	IsHead       bool               `bson:"isHead" json:"isHead"`
}

type FacultyDepartmentInput struct {
	FacultyID    string `json:"facultyId" validate:"required,objectid"`
	DepartmentID string `json:"departmentId" validate:"required,objectid"`
	Designation  string `json:"designation" validate:"omitempty,max=100"`
	IsHead       bool   `json:"isHead"`
}

func (in *FacultyDepartmentInput) Validate(validate *validator.Validate) error {
	in.FacultyID = core.CleanString(in.FacultyID, true /* lower */)
	in.DepartmentID = core.CleanString(in.DepartmentID, true /* lower */)
	in.Designation = core.CleanString(in.Designation)
	return validate.Struct(in)
}

func (in *FacultyDepartmentInput) Build(creator user.Profile, now time.Time) FacultyDepartment {
	return in.Apply(FacultyDepartment{Meta: NewMeta(creator, now)}, now)
}

func (in *FacultyDepartmentInput) Apply(orig FacultyDepartment, now time.Time) FacultyDepartment {
	orig.Meta = orig.Meta.Touch(now)
	orig.FacultyID = objectID(in.FacultyID)
	orig.DepartmentID = objectID(in.DepartmentID)
	orig.Designation = in.Designation
	orig.IsHead = in.IsHead
	return orig
}

type FacultyDepartmentFilter struct {
	FacultyID    string `query:"facultyId"`
	DepartmentID string `query:"departmentId"`
	IsHead       string `query:"isHead"`
}

func (f *FacultyDepartmentFilter) Query() (q core.Query, err error) {
	if q, err = filterID(q, "facultyId", "facultyId", f.FacultyID); err != nil {
		return q, err
	}
	if q, err = filterID(q, "departmentId", "departmentId", f.DepartmentID); err != nil {
		return q, err
	}
	return q.WhereBool("isHead", "isHead", f.IsHead)
}
