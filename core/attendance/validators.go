package attendance

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

var (
	endAfterStartTag  = "endafterstart"
	endAfterStartText = "end time must be after start time"

	uniqueStudentsTag  = "uniquestudents"
	uniqueStudentsText = "a student can only be marked once per class"
)

// InitValidators registers the attendance validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(attendanceStructValidation, NewAttendance{}, UpdateMarks{})
	core.RegisterCustomTranslation(validate, translator, endAfterStartTag, endAfterStartText)
	core.RegisterCustomTranslation(validate, translator, uniqueStudentsTag, uniqueStudentsText)
}

func attendanceStructValidation(sl validator.StructLevel) {
	switch in := sl.Current().Interface().(type) {
	case NewAttendance:
		// HH:MM strings compare like the times they hold
		if hhmmRegexOK(in.StartTime) && hhmmRegexOK(in.EndTime) && in.EndTime <= in.StartTime {
			sl.ReportError(in.EndTime, "endTime", "EndTime", endAfterStartTag, "")
		}
		validateUniqueStudents(in.Students, sl)
	case UpdateMarks:
		validateUniqueStudents(in.Students, sl)
	}
}

func hhmmRegexOK(s string) bool {
	return len(s) == 5 && s[2] == ':'
}

func validateUniqueStudents(marks []MarkInput, sl validator.StructLevel) {
	seen := make(map[string]bool, len(marks))
	for _, m := range marks {
		if m.StudentID == "" {
			continue
		}
		if seen[m.StudentID] {
			sl.ReportError(marks, "studentAttendance", "Students", uniqueStudentsTag, "")
			return
		}
		seen[m.StudentID] = true
	}
}
