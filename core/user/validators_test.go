package user

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
)

func newTestValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate, translator
}

// failures returns field -> message for every violation of err.
func failures(t *testing.T, err error, translator ut.Translator) map[string]string {
	t.Helper()
	if err == nil {
		return nil
	}
	vErrs, ok := err.(validator.ValidationErrors)
	require.True(t, ok, "unexpected error %v", err)
	out := make(map[string]string, len(vErrs))
	for _, fe := range vErrs {
		out[fe.Field()] = fe.Translate(translator)
	}
	return out
}

func TestPasswordPolicy(t *testing.T) {
	validate, translator := newTestValidator()

	tests := []struct {
		name    string
		pwd     string
		wantMsg string
	}{
		{name: "too short", pwd: "Ab1!", wantMsg: pwdMinLenText},
		{name: "whitespace", pwd: "Abc 123!xyz", wantMsg: pwdNoSpaceText},
		{name: "all numeric", pwd: "1234567890", wantMsg: pwdNotAllNumText},
		{name: "no special", pwd: "Abcdefg123", wantMsg: pwdComplexityText},
		{name: "no upper", pwd: "abcdefg1!", wantMsg: pwdComplexityText},
		{name: "similar to email", pwd: "Walter.white1@", wantMsg: pwdAttrSimText},
		{name: "common", pwd: "P@ssw0rd", wantMsg: pwdNoCommonText},
		{name: "valid", pwd: "Kx9#vQ2$wZ7!mB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := NewUser{
				Name:       "Walter White",
				Email:      "walter.white@campus.test",
				Password:   tt.pwd,
				Role:       RoleSuperAdmin,
				Attributes: Attributes{},
			}
			got := failures(t, nu.Validate(validate), translator)
			if tt.wantMsg == "" {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, map[string]string{"password": tt.wantMsg}, got)
		})
	}
}

func TestRoleAttributes(t *testing.T) {
	validate, translator := newTestValidator()
	const pwd = "Kx9#vQ2$wZ7!mB"

	tests := []struct {
		name  string
		role  Role
		attrs Attributes
		want  []string
	}{
		{name: "student", role: RoleStudent, want: []string{"rollNumber", "branch", "section", "year"}},
		{name: "complete student", role: RoleStudent, attrs: Attributes{RollNumber: "CSE001", Branch: "CSE", Section: "A", Year: 2}},
		{name: "faculty", role: RoleFaculty, want: []string{"department"}},
		{name: "hod", role: RoleHOD, want: []string{"department"}},
		{name: "warden", role: RoleHostelWarden, want: []string{"hostelBlockNumber"}},
		{name: "director needs nothing", role: RoleDirector},
		{name: "unknown role", role: Role("janitor"), want: []string{"role"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := NewUser{Name: "Kim Doe", Email: "kim@campus.test", Password: pwd, Role: tt.role, Attributes: tt.attrs}
			got := failures(t, nu.Validate(validate), translator)
			fields := make([]string, 0, len(got))
			for f := range got {
				fields = append(fields, f)
			}
			assert.ElementsMatch(t, tt.want, fields)
			for _, f := range tt.want {
				if f != "role" {
					assert.Equal(t, requiredForRoleText, got[f])
				}
			}
		})
	}
}

func TestUpdateUserMergesAttributes(t *testing.T) {
	validate, translator := newTestValidator()
	orig := Profile{
		Name:       "Wanda Warden",
		Email:      "warden@campus.test",
		Role:       RoleHostelWarden,
		Attributes: Attributes{HostelBlockNumber: "B1"},
	}

	uu := UpdateUser{Phone: "555-0100"}
	assert.Empty(t, failures(t, uu.Validate(validate, orig), translator), "kept attributes satisfy the role")

	uu = UpdateUser{Role: RoleFaculty}
	assert.Equal(t, map[string]string{"department": requiredForRoleText},
		failures(t, uu.Validate(validate, orig), translator), "a role change needs the new role's attributes")
}
