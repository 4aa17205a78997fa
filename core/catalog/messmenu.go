package catalog

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

const MessMenuCollection = "mess_menus"

var MessMenuIndexes = []core.Index{
	{Fields: []string{"day", "mealType", "hostelBlock"}, Unique: true},
}

// MessMenu is what is served for one meal of a weekday, optionally for one hostel block only.
type MessMenu struct {
	Meta        `bson:",inline"`
	Day         string   `bson:"day" json:"day"`
	MealType    string   `bson:"mealType" json:"mealType"`
	Items       []string `bson:"items" json:"items"`
	Timing      string   `bson:"timing,omitempty" json:"timing,omitempty"`
	HostelBlock string   `bson:"hostelBlock" json:"hostelBlock"`
}

type MessMenuInput struct {
	Day         string   `json:"day" validate:"required,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	MealType    string   `json:"mealType" validate:"required,oneof=breakfast lunch snacks dinner"`
	Items       []string `json:"items" validate:"required,min=1,max=30,dive,required,max=100"`
	Timing      string   `json:"timing" validate:"omitempty,max=50"`
	HostelBlock string   `json:"hostelBlock" validate:"omitempty,max=20"`
}

func (in *MessMenuInput) Validate(validate *validator.Validate) error {
	in.Day = core.CleanString(in.Day, true /* lower */)
	in.MealType = core.CleanString(in.MealType, true /* lower */)
	for i := range in.Items {
		in.Items[i] = core.CleanString(in.Items[i])
	}
	in.Timing = core.CleanString(in.Timing)
	in.HostelBlock = core.CleanString(in.HostelBlock)
	return validate.Struct(in)
}

func (in *MessMenuInput) Build(creator user.Profile, now time.Time) MessMenu {
	return in.Apply(MessMenu{Meta: NewMeta(creator, now)}, now)
}

func (in *MessMenuInput) Apply(orig MessMenu, now time.Time) MessMenu {
	orig.Meta = orig.Meta.Touch(now)
	orig.Day = in.Day
	orig.MealType = in.MealType
	orig.Items = append([]string(nil), in.Items...)
	orig.Timing = in.Timing
	orig.HostelBlock = in.HostelBlock
	return orig
}

type MessMenuFilter struct {
	Day         string `query:"day"`
	MealType    string `query:"mealType"`
	HostelBlock string `query:"hostelBlock"`
}

func (f *MessMenuFilter) Query() (core.Query, error) {
	return filterStrings(core.Query{}, map[string]string{
		"day":         core.CleanString(f.Day, true),
		"mealType":    core.CleanString(f.MealType, true),
		"hostelBlock": f.HostelBlock,
	}), nil
}
