package catalog

import (
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

const SubjectAssignmentCollection = "subject_assignments"

var SubjectAssignmentIndexes = []core.Index{
	{Fields: []string{"courseId", "batchId", "section", "academicYear"}, Unique: true},
	{Fields: []string{"facultyId"}},
}

// SubjectAssignment says who teaches a course to a batch section for an academic year.
type SubjectAssignment struct {
	Meta         `bson:",inline"`
	CourseID     primitive.ObjectID `bson:"courseId" json:"courseId"`
	FacultyID    primitive.ObjectID `bson:"facultyId" json:"facultyId"`
	BatchID      primitive.ObjectID `bson:"batchId" json:"batchId"`
	Section      string             `bson:"section" json:"section"`
	Semester     int                `bson:"semester" json:"semester"`
	AcademicYear string             `bson:"academicYear" json:"academicYear"`
}

type SubjectAssignmentInput struct {
	CourseID     string `json:"courseId" validate:"required,objectid"`
	FacultyID    string `json:"facultyId" validate:"required,objectid"`
	BatchID      string `json:"batchId" validate:"required,objectid"`
	Section      string `json:"section" validate:"required,max=10"`
	Semester     int    `json:"semester" validate:"required,min=1,max=12"`
	AcademicYear string `json:"academicYear" validate:"required,academicyear"`
}

func (in *SubjectAssignmentInput) Validate(validate *validator.Validate) error {
	in.CourseID = core.CleanString(in.CourseID, true /* lower */)
	in.FacultyID = core.CleanString(in.FacultyID, true /* lower */)
	in.BatchID = core.CleanString(in.BatchID, true /* lower */)
	in.Section = core.CleanString(in.Section)
	in.AcademicYear = core.CleanString(in.AcademicYear)
	return validate.Struct(in)
}

func (in *SubjectAssignmentInput) Build(creator user.Profile, now time.Time) SubjectAssignment {
	return in.Apply(SubjectAssignment{Meta: NewMeta(creator, now)}, now)
}

func (in *SubjectAssignmentInput) Apply(orig SubjectAssignment, now time.Time) SubjectAssignment {
	orig.Meta = orig.Meta.Touch(now)
	orig.CourseID = objectID(in.CourseID)
	orig.FacultyID = objectID(in.FacultyID)
	orig.BatchID = objectID(in.BatchID)
	orig.Section = in.Section
	orig.Semester = in.Semester
	orig.AcademicYear = in.AcademicYear
	return orig
}

type SubjectAssignmentFilter struct {
	CourseID     string `query:"courseId"`
	FacultyID    string `query:"facultyId"`
	BatchID      string `query:"batchId"`
	Section      string `query:"section"`
	Semester     int    `query:"semester"`
	AcademicYear string `query:"academicYear"`
}

func (f *SubjectAssignmentFilter) Query() (q core.Query, err error) {
	for _, id := range []struct{ param, hex string }{
		{"courseId", f.CourseID},
		{"facultyId", f.FacultyID},
		{"batchId", f.BatchID},
	} {
		if q, err = filterID(q, id.param, id.param, id.hex); err != nil {
			return q, err
		}
	}
	q = filterStrings(q, map[string]string{"section": f.Section, "academicYear": f.AcademicYear})
	if f.Semester != 0 {
		q = q.Where(core.Eq("semester", f.Semester))
	}
	return q, nil
}
