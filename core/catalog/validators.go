package catalog

import (
	"regexp"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

var ErrInvalidFilter = errors.New("invalid filter")

var (
	academicYearTag   = "academicyear"
	academicYearText  = "must be an academic year like 2024-2025"
	academicYearRegex = regexp.MustCompile(`^(\d{4})-(\d{4})$`)

	endDateTag  = "enddate"
	endDateText = "end date cannot be before the start date"
)

// InitValidators registers the catalog validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(academicYearTag, academicYearValidation)
	core.RegisterCustomTranslation(validate, translator, academicYearTag, academicYearText)

	validate.RegisterStructValidation(holidayStructValidation, HolidayInput{})
	core.RegisterCustomTranslation(validate, translator, endDateTag, endDateText)
}

// academicYearValidation accepts "YYYY-YYYY" where the second year follows the first.
func academicYearValidation(fl validator.FieldLevel) bool {
	m := academicYearRegex.FindStringSubmatch(fl.Field().String())
	if m == nil {
		return false
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	return end == start+1
}

func holidayStructValidation(sl validator.StructLevel) {
	in := sl.Current().Interface().(HolidayInput)
	if in.EndDate == "" {
		return
	}
	start, err1 := core.ParseDate(in.Date)
	end, err2 := core.ParseDate(in.EndDate)
	if err1 == nil && err2 == nil && end.Before(start) {
		sl.ReportError(in.EndDate, "endDate", "EndDate", endDateTag, "")
	}
}
