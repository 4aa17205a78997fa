// Package testutil holds fixtures shared by the test suites.
package testutil

import (
	"context"
	"io"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/attendance"
	"github.com/trezcool/campus/core/catalog"
	"github.com/trezcool/campus/core/user"
	logsvc "github.com/trezcool/campus/services/logger"
)

// Password satisfies the password policy for every fixture user.
const Password = "Kx9#vQ2$wZ7!mB"

// NewValidator returns a validator with every custom validation and translation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()

	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	catalog.InitValidators(validate, translator)
	return validate, translator
}

// NewLogger returns a logger writing nowhere.
func NewLogger(conf *core.Config) core.Logger {
	std := logsvc.NewStdLogger(conf)
	std.SetOutput(io.Discard)
	return logsvc.NewRollbarLogger(std, conf)
}

// CreateUser creates a verified and active user.
func CreateUser(t *testing.T, svc *user.Service, name, email string, role user.Role, attrs user.Attributes) user.User {
	t.Helper()
	usr, err := svc.Create(context.Background(), user.NewUser{
		Name:       name,
		Email:      email,
		Password:   Password,
		Role:       role,
		Attributes: attrs,
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateUnverifiedUser creates a user who has not confirmed their email address yet.
func CreateUnverifiedUser(t *testing.T, svc *user.Service, name, email string, role user.Role, attrs user.Attributes) user.User {
	t.Helper()
	verified := false
	usr, err := svc.Create(context.Background(), user.NewUser{
		Name:       name,
		Email:      email,
		Password:   Password,
		Role:       role,
		IsVerified: &verified,
		Attributes: attrs,
	})
	if err != nil {
		t.Fatalf("CreateUnverifiedUser() failed: %v", err)
	}
	return usr
}

// Deactivate turns the profile of `usr` off.
func Deactivate(t *testing.T, svc *user.Service, usr user.User) user.User {
	t.Helper()
	inactive := false
	uu := user.UpdateUser{IsActive: &inactive}
	validate, _ := NewValidator()
	if err := uu.Validate(validate, usr.Profile); err != nil {
		t.Fatalf("Deactivate() failed: %v", err)
	}
	usr, err := svc.Update(context.Background(), usr, uu)
	if err != nil {
		t.Fatalf("Deactivate() failed: %v", err)
	}
	return usr
}

// Student, Faculty and Warden return the attributes each role needs.
func Student(roll, hostelBlock string) user.Attributes {
	return user.Attributes{
		RollNumber:  roll,
		Branch:      "CSE",
		Section:     "A",
		Year:        2,
		Semester:    3,
		HostelBlock: hostelBlock,
		RoomNumber:  "101",
	}
}

func Faculty(department string) user.Attributes {
	return user.Attributes{Department: department, Designation: "Assistant Professor"}
}

func Warden(block string) user.Attributes {
	return user.Attributes{HostelBlockNumber: block}
}
