package attendance

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/access"
)

const Collection = "attendances"

type Status string

// Statuses
const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusExcused Status = "excused"
)

// ClassKey is the identity of a class session: one attendance record per key.
var ClassKey = []string{
	"classInfo.date", "classInfo.subject", "classInfo.startTime",
	"classInfo.branch", "classInfo.section", "classInfo.year", "classInfo.semester",
}

var Indexes = []core.Index{
	{Fields: ClassKey, Unique: true},
	{Fields: []string{"studentAttendance.studentId"}},
	{Fields: []string{"classInfo.facultyId", "classInfo.date"}},
}

type ClassInfo struct {
	Date        time.Time          `bson:"date" json:"date"`
	Subject     string             `bson:"subject" json:"subject"`
	StartTime   string             `bson:"startTime" json:"startTime"`
	EndTime     string             `bson:"endTime" json:"endTime"`
	Branch      string             `bson:"branch" json:"branch"`
	Section     string             `bson:"section" json:"section"`
	Year        int                `bson:"year" json:"year"`
	Semester    int                `bson:"semester" json:"semester"`
	FacultyID   primitive.ObjectID `bson:"facultyId" json:"facultyId"`
	FacultyName string             `bson:"facultyName,omitempty" json:"facultyName,omitempty"`
}

// key is the Query matching records of the same class session.
func (ci ClassInfo) key() core.Query {
	return core.Where(
		core.Eq("classInfo.date", ci.Date),
		core.Eq("classInfo.subject", ci.Subject),
		core.Eq("classInfo.startTime", ci.StartTime),
		core.Eq("classInfo.branch", ci.Branch),
		core.Eq("classInfo.section", ci.Section),
		core.Eq("classInfo.year", ci.Year),
		core.Eq("classInfo.semester", ci.Semester),
	)
}

type Mark struct {
	StudentID  primitive.ObjectID `bson:"studentId" json:"studentId"`
	Name       string             `bson:"name,omitempty" json:"name,omitempty"`
	RollNumber string             `bson:"rollNumber,omitempty" json:"rollNumber,omitempty"`
	Status     Status             `bson:"status" json:"status"`
	Remarks    string             `bson:"remarks,omitempty" json:"remarks,omitempty"`
}

type Summary struct {
	TotalStudents int     `bson:"totalStudents" json:"totalStudents"`
	Present       int     `bson:"present" json:"present"`
	Absent        int     `bson:"absent" json:"absent"`
	Late          int     `bson:"late" json:"late"`
	Excused       int     `bson:"excused" json:"excused"`
	Percentage    float64 `bson:"percentage" json:"percentage"` // present + late, over total
}

// Summarize counts marks per status. Late students attended the class.
func Summarize(marks []Mark) Summary {
	s := Summary{TotalStudents: len(marks)}
	for _, m := range marks {
		switch m.Status {
		case StatusPresent:
			s.Present++
		case StatusAbsent:
			s.Absent++
		case StatusLate:
			s.Late++
		case StatusExcused:
			s.Excused++
		}
	}
	if s.TotalStudents > 0 {
		s.Percentage = math.Round(float64(s.Present+s.Late)/float64(s.TotalStudents)*10000) / 100
	}
	return s
}

type Attendance struct {
	ID                primitive.ObjectID `bson:"_id" json:"id"`
	ClassInfo         ClassInfo          `bson:"classInfo" json:"classInfo"`
	StudentAttendance []Mark             `bson:"studentAttendance" json:"studentAttendance"`
	Summary           Summary            `bson:"summary" json:"summary"`
	CreatedBy         primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// setMarks replaces the whole list; the summary always follows it.
func (a *Attendance) setMarks(marks []Mark) {
	a.StudentAttendance = marks
	a.Summary = Summarize(marks)
}

func (a Attendance) AccessAttributes() access.Attributes {
	owners := make([]string, 0, len(a.StudentAttendance))
	for _, m := range a.StudentAttendance {
		owners = append(owners, m.StudentID.Hex())
	}
	return access.Attributes{
		OwnerIDs:  owners,
		FacultyID: a.ClassInfo.FacultyID.Hex(),
		CreatorID: a.CreatedBy.Hex(),
	}
}

// OnlyFor trims the marks down to the ones of `studentID`, keeping the class summary.
func (a Attendance) OnlyFor(studentID primitive.ObjectID) Attendance {
	marks := make([]Mark, 0, 1)
	for _, m := range a.StudentAttendance {
		if m.StudentID == studentID {
			marks = append(marks, m)
		}
	}
	a.StudentAttendance = marks
	return a
}

type MarkInput struct {
	StudentID  string `json:"studentId" validate:"required,objectid"`
	Name       string `json:"name" validate:"omitempty,max=100"`
	RollNumber string `json:"rollNumber" validate:"omitempty,max=30"`
	Status     Status `json:"status" validate:"required,oneof=present absent late excused"`
	Remarks    string `json:"remarks" validate:"omitempty,max=200"`
}

func (mi MarkInput) mark() Mark {
	id, _ := primitive.ObjectIDFromHex(mi.StudentID)
	return Mark{StudentID: id, Name: mi.Name, RollNumber: mi.RollNumber, Status: mi.Status, Remarks: mi.Remarks}
}

func marksFrom(inputs []MarkInput) []Mark {
	marks := make([]Mark, 0, len(inputs))
	for _, mi := range inputs {
		marks = append(marks, mi.mark())
	}
	return marks
}

func cleanMarks(inputs []MarkInput) {
	for i := range inputs {
		inputs[i].StudentID = core.CleanString(inputs[i].StudentID, true /* lower */)
		inputs[i].Name = core.CleanString(inputs[i].Name)
		inputs[i].RollNumber = core.CleanString(inputs[i].RollNumber)
		inputs[i].Status = Status(core.CleanString(string(inputs[i].Status), true /* lower */))
		inputs[i].Remarks = core.CleanString(inputs[i].Remarks)
	}
}

// NewAttendance marks attendance for one class session.
type NewAttendance struct {
	Date        string      `json:"date" validate:"required,isodate"`
	Subject     string      `json:"subject" validate:"required,min=2,max=100"`
	StartTime   string      `json:"startTime" validate:"required,hhmm"`
	EndTime     string      `json:"endTime" validate:"required,hhmm"`
	Branch      string      `json:"branch" validate:"required,max=50"`
	Section     string      `json:"section" validate:"required,max=10"`
	Year        int         `json:"year" validate:"required,min=1,max=6"`
	Semester    int         `json:"semester" validate:"required,min=1,max=12"`
	FacultyID   string      `json:"facultyId" validate:"omitempty,objectid"`
	FacultyName string      `json:"facultyName" validate:"omitempty,max=100"`
	Students    []MarkInput `json:"studentAttendance" validate:"required,min=1,dive"`
}

func (na *NewAttendance) Validate(validate *validator.Validate) error {
	na.Date = core.CleanString(na.Date)
	na.Subject = core.CleanString(na.Subject)
	na.StartTime = core.CleanString(na.StartTime)
	na.EndTime = core.CleanString(na.EndTime)
	na.Branch = core.CleanString(na.Branch)
	na.Section = core.CleanString(na.Section)
	na.FacultyID = core.CleanString(na.FacultyID, true /* lower */)
	na.FacultyName = core.CleanString(na.FacultyName)
	cleanMarks(na.Students)
	return validate.Struct(na)
}

// UpdateMarks replaces the marks of a class session.
type UpdateMarks struct {
	Students []MarkInput `json:"studentAttendance" validate:"required,min=1,dive"`
}

func (um *UpdateMarks) Validate(validate *validator.Validate) error {
	cleanMarks(um.Students)
	return validate.Struct(um)
}

type QueryFilter struct {
	StudentID string `query:"studentId"`
	FacultyID string `query:"facultyId"`
	Subject   string `query:"subject"`
	Branch    string `query:"branch"`
	Section   string `query:"section"`
	Year      int    `query:"year"`
	Semester  int    `query:"semester"`
	DateFrom  string `query:"dateFrom"`
	DateTo    string `query:"dateTo"`
}

// Query builds the store query. A restricted scope overrides the client's owner filters.
func (qf *QueryFilter) Query(scope access.Attributes, restricted bool) (core.Query, error) {
	q := core.Query{}
	var fieldErrs []core.FieldError

	for field, val := range map[string]string{
		"classInfo.subject": qf.Subject,
		"classInfo.branch":  qf.Branch,
		"classInfo.section": qf.Section,
	} {
		if val = core.CleanString(val); val != "" {
			q = q.Where(core.Eq(field, val))
		}
	}
	if qf.Year != 0 {
		q = q.Where(core.Eq("classInfo.year", qf.Year))
	}
	if qf.Semester != 0 {
		q = q.Where(core.Eq("classInfo.semester", qf.Semester))
	}
	for _, bound := range []struct {
		name, val string
		cond      func(string, interface{}) core.Cond
	}{
		{"dateFrom", qf.DateFrom, core.Gte},
		{"dateTo", qf.DateTo, core.Lte},
	} {
		if bound.val == "" {
			continue
		}
		d, err := core.ParseDate(bound.val)
		if err != nil {
			fieldErrs = append(fieldErrs, core.FieldError{Field: bound.name, Error: "must be a valid date (YYYY-MM-DD)"})
			continue
		}
		q = q.Where(bound.cond("classInfo.date", d))
	}

	studentID, facultyID := qf.StudentID, qf.FacultyID
	if restricted {
		if len(scope.OwnerIDs) > 0 {
			studentID = scope.OwnerIDs[0]
		}
		if scope.FacultyID != "" {
			facultyID = scope.FacultyID
		}
	}
	for field, val := range map[string]string{
		"studentAttendance.studentId": studentID,
		"classInfo.facultyId":         facultyID,
	} {
		if val = core.CleanString(val); val == "" {
			continue
		}
		id, err := primitive.ObjectIDFromHex(val)
		if err != nil {
			name := "studentId"
			if field == "classInfo.facultyId" {
				name = "facultyId"
			}
			fieldErrs = append(fieldErrs, core.FieldError{Field: name, Error: "must be a valid identifier"})
			continue
		}
		q = q.Where(core.Eq(field, id))
	}

	if len(fieldErrs) > 0 {
		return q, core.NewValidationError(ErrInvalidFilter, fieldErrs...)
	}
	return q, nil
}

// SubjectSummary is the attendance of one student in one subject.
type SubjectSummary struct {
	Subject    string  `json:"subject"`
	Total      int     `json:"totalClasses"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Late       int     `json:"late"`
	Excused    int     `json:"excused"`
	Percentage float64 `json:"percentage"`
}

type StudentSummary struct {
	StudentID primitive.ObjectID `json:"studentId"`
	Overall   SubjectSummary     `json:"overall"`
	Subjects  []SubjectSummary   `json:"subjects"`
}

// StudentRecord is a student's anchor for scope checks on their own summary.
type StudentRecord primitive.ObjectID

func (sr StudentRecord) AccessAttributes() access.Attributes {
	return access.Attributes{OwnerIDs: []string{primitive.ObjectID(sr).Hex()}}
}
