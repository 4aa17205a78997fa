package catalog

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

const HolidayCollection = "holidays"

var HolidayIndexes = []core.Index{
	{Fields: []string{"date", "name"}, Unique: true},
}

type Holiday struct {
	Meta        `bson:",inline"`
	Name        string     `bson:"name" json:"name"`
	Date        time.Time  `bson:"date" json:"date"`
	EndDate     *time.Time `bson:"endDate,omitempty" json:"endDate,omitempty"` // multi-day holidays
	Type        string     `bson:"type" json:"type"`
	Description string     `bson:"description,omitempty" json:"description,omitempty"`
}

type HolidayInput struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Date        string `json:"date" validate:"required,isodate"`
	EndDate     string `json:"endDate" validate:"omitempty,isodate"`
	Type        string `json:"type" validate:"required,oneof=national regional institutional exam"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

func (in *HolidayInput) Validate(validate *validator.Validate) error {
	in.Name = core.CleanString(in.Name)
	in.Date = core.CleanString(in.Date)
	in.EndDate = core.CleanString(in.EndDate)
	in.Type = core.CleanString(in.Type, true /* lower */)
	in.Description = core.CleanString(in.Description)
	return validate.Struct(in)
}

func (in *HolidayInput) Build(creator user.Profile, now time.Time) Holiday {
	return in.Apply(Holiday{Meta: NewMeta(creator, now)}, now)
}

func (in *HolidayInput) Apply(orig Holiday, now time.Time) Holiday {
	orig.Meta = orig.Meta.Touch(now)
	orig.Name = in.Name
	orig.Date, _ = core.ParseDate(in.Date)
	orig.EndDate = nil
	if in.EndDate != "" {
		end, _ := core.ParseDate(in.EndDate)
		orig.EndDate = &end
	}
	orig.Type = in.Type
	orig.Description = in.Description
	return orig
}

type HolidayFilter struct {
	Type     string `query:"type"`
	Year     int    `query:"year"`
	DateFrom string `query:"dateFrom"`
	DateTo   string `query:"dateTo"`
}

func (f *HolidayFilter) Query() (core.Query, error) {
	q := filterStrings(core.Query{}, map[string]string{"type": core.CleanString(f.Type, true)})
	if f.Year != 0 {
		q = q.Where(
			core.Gte("date", time.Date(f.Year, time.January, 1, 0, 0, 0, 0, time.UTC)),
			core.Lt("date", time.Date(f.Year+1, time.January, 1, 0, 0, 0, 0, time.UTC)),
		)
	}
	var fieldErrs []core.FieldError
	if f.DateFrom != "" {
		if d, err := core.ParseDate(f.DateFrom); err == nil {
			q = q.Where(core.Gte("date", d))
		} else {
			fieldErrs = append(fieldErrs, core.FieldError{Field: "dateFrom", Error: "must be a valid date (YYYY-MM-DD)"})
		}
	}
	if f.DateTo != "" {
		if d, err := core.ParseDate(f.DateTo); err == nil {
			q = q.Where(core.Lte("date", d))
		} else {
			fieldErrs = append(fieldErrs, core.FieldError{Field: "dateTo", Error: "must be a valid date (YYYY-MM-DD)"})
		}
	}
	if len(fieldErrs) > 0 {
		return q, core.NewValidationError(ErrInvalidFilter, fieldErrs...)
	}
	return q, nil
}
