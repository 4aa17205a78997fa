package catalog

import (
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/access"
	"github.com/trezcool/campus/core/user"
)

func newValidator() *validator.Validate {
	validate := validator.New()
	translator, _ := ut.New(en.New()).GetTranslator("en")
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate
}

func failedFields(err error) []string {
	var fields []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
	}
	return fields
}

func TestScopeQuery(t *testing.T) {
	me := primitive.NewObjectID()

	q, err := ScopeQuery(core.Query{}, access.Attributes{}, false)
	require.NoError(t, err)
	assert.Empty(t, q.Conds)

	q, err = ScopeQuery(core.Query{}, access.Attributes{CreatorID: me.Hex()}, true)
	require.NoError(t, err)
	assert.Equal(t, []core.Cond{core.Eq("createdBy", me)}, q.Conds)

	_, err = ScopeQuery(core.Query{}, access.Attributes{OwnerIDs: []string{me.Hex()}}, true)
	assert.Equal(t, core.ErrForbidden, errors.Cause(err))
}

func TestHolidayValidation(t *testing.T) {
	validate := newValidator()
	tests := []struct {
		name   string
		input  HolidayInput
		fields []string
	}{
		{
			name:  "valid single day",
			input: HolidayInput{Name: "Republic Day", Date: "2025-01-26", Type: "national"},
		},
		{
			name:  "valid range",
			input: HolidayInput{Name: "Winter Break", Date: "2024-12-24", EndDate: "2025-01-02", Type: "institutional"},
		},
		{
			name:   "end before start",
			input:  HolidayInput{Name: "Oops", Date: "2025-01-10", EndDate: "2025-01-02", Type: "regional"},
			fields: []string{"endDate"},
		},
		{
			name:   "all wrong at once",
			input:  HolidayInput{Name: "x", Date: "26/01/2025", Type: "party"},
			fields: []string{"name", "date", "type"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate(validate)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			assert.ElementsMatch(t, tt.fields, failedFields(err))
		})
	}
}

func TestAcademicYear(t *testing.T) {
	validate := newValidator()
	base := SubjectAssignmentInput{
		CourseID:  primitive.NewObjectID().Hex(),
		FacultyID: primitive.NewObjectID().Hex(),
		BatchID:   primitive.NewObjectID().Hex(),
		Section:   "A",
		Semester:  3,
	}
	for year, ok := range map[string]bool{
		"2024-2025": true,
		"2024-2026": false,
		"2024/2025": false,
		"24-25":     false,
	} {
		in := base
		in.AcademicYear = year
		err := in.Validate(validate)
		if ok {
			assert.NoError(t, err, year)
		} else {
			assert.Equal(t, []string{"academicYear"}, failedFields(err), year)
		}
	}
}

func TestApplyKeepsMeta(t *testing.T) {
	creator := user.Profile{ID: primitive.NewObjectID()}
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := &DepartmentInput{Name: "Computer Science", Code: "CSE"}
	dept := in.Build(creator, created)
	assert.True(t, dept.IsActive)
	assert.Equal(t, creator.ID, dept.CreatedBy)

	inactive := false
	later := created.Add(time.Hour)
	upd := (&DepartmentInput{Name: "Computing", Code: "CSE", IsActive: &inactive}).Apply(dept, later)
	assert.Equal(t, dept.ID, upd.ID)
	assert.Equal(t, created, upd.CreatedAt)
	assert.Equal(t, later, upd.UpdatedAt)
	assert.Equal(t, "Computing", upd.Name)
	assert.False(t, upd.IsActive)
	assert.Equal(t, creator.ID.Hex(), upd.AccessAttributes().CreatorID)
}

func TestHolidayFilter(t *testing.T) {
	q, err := (&HolidayFilter{Year: 2025, Type: "National"}).Query()
	require.NoError(t, err)
	assert.Contains(t, q.Conds, core.Eq("type", "national"))
	assert.Contains(t, q.Conds, core.Gte("date", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	_, err = (&HolidayFilter{DateFrom: "soon", DateTo: "later"}).Query()
	verr, ok := err.(*core.ValidationError)
	require.True(t, ok)
	assert.Len(t, verr.Fields, 2)
}
