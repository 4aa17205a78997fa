package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/campus/core"
)

const (
	AccountCollection = "accounts"
	ProfileCollection = "profiles"
)

// Role is the single role held by a Profile.
type Role string

// Roles
const (
	RoleSuperAdmin     Role = "super_admin"
	RoleAcademicStaff  Role = "academic_staff"
	RoleFaculty        Role = "faculty"
	RoleStudent        Role = "student"
	RoleMessSupervisor Role = "mess_supervisor"
	RoleHostelWarden   Role = "hostel_warden"
	RoleHOD            Role = "hod"
	RoleDirector       Role = "director"
)

var (
	AllRoles = []Role{
		RoleSuperAdmin, RoleAcademicStaff, RoleFaculty, RoleStudent,
		RoleMessSupervisor, RoleHostelWarden, RoleHOD, RoleDirector,
	}

	Roles = []RoleInfo{
		{Name: "Super Admin", Value: RoleSuperAdmin},
		{Name: "Academic Staff", Value: RoleAcademicStaff},
		{Name: "Faculty", Value: RoleFaculty},
		{Name: "Student", Value: RoleStudent},
		{Name: "Mess Supervisor", Value: RoleMessSupervisor},
		{Name: "Hostel Warden", Value: RoleHostelWarden},
		{Name: "Head of Department", Value: RoleHOD},
		{Name: "Director", Value: RoleDirector},
	}

	AccountIndexes = []core.Index{
		{Fields: []string{"email"}, Unique: true},
	}
	ProfileIndexes = []core.Index{
		{Fields: []string{"accountId"}, Unique: true},
		{Fields: []string{"email"}, Unique: true},
		{Fields: []string{"role"}},
	}
)

func (r Role) IsValid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type RoleInfo struct {
	Name  string `json:"name"`
	Value Role   `json:"value"`
}

// Account holds the credentials of a user. It never exists without its Profile.
type Account struct {
	ID               primitive.ObjectID `bson:"_id" json:"id"`
	Email            string             `bson:"email" json:"email"`
	PasswordHash     []byte             `bson:"passwordHash" json:"-"`
	IsVerified       bool               `bson:"isVerified" json:"isVerified"`
	FailedLoginCount int                `bson:"failedLoginCount" json:"-"`
	LockUntil        *time.Time         `bson:"lockUntil,omitempty" json:"-"`
	LastLogin        *time.Time         `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

// IsLocked reports whether a lock is still running at `now`.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockUntil != nil && now.Before(*a.LockUntil)
}

// registerFailedLogin counts a failed attempt and locks the account once `max` is reached.
// Returns true when this attempt locked the account.
func (a *Account) registerFailedLogin(now time.Time, lockout core.LockoutConfig) bool {
	a.FailedLoginCount++
	a.UpdatedAt = now
	if lockout.MaxFailedLogins > 0 && a.FailedLoginCount >= lockout.MaxFailedLogins {
		until := now.Add(lockout.Duration)
		a.LockUntil = &until
		a.FailedLoginCount = 0
		return true
	}
	return false
}

func (a *Account) clearLock() {
	a.FailedLoginCount = 0
	a.LockUntil = nil
}

// Profile is the role-bearing identity of an Account.
type Profile struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	AccountID primitive.ObjectID `bson:"accountId" json:"accountId"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Role      Role               `bson:"role" json:"role"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
	IsActive  bool               `bson:"isActive" json:"isActive"`

	Attributes `bson:",inline"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Attributes are the role-conditional Profile fields.
type Attributes struct {
	// student
	RollNumber  string `bson:"rollNumber,omitempty" json:"rollNumber,omitempty" validate:"omitempty,max=30"`
	Batch       string `bson:"batch,omitempty" json:"batch,omitempty" validate:"omitempty,max=50"`
	Branch      string `bson:"branch,omitempty" json:"branch,omitempty" validate:"omitempty,max=50"`
	Section     string `bson:"section,omitempty" json:"section,omitempty" validate:"omitempty,max=10"`
	Year        int    `bson:"year,omitempty" json:"year,omitempty" validate:"omitempty,min=1,max=6"`
	Semester    int    `bson:"semester,omitempty" json:"semester,omitempty" validate:"omitempty,min=1,max=12"`
	HostelBlock string `bson:"hostelBlock,omitempty" json:"hostelBlock,omitempty" validate:"omitempty,max=20"`
	RoomNumber  string `bson:"roomNumber,omitempty" json:"roomNumber,omitempty" validate:"omitempty,max=20"`

	// faculty, hod
	Department  string `bson:"department,omitempty" json:"department,omitempty" validate:"omitempty,max=100"`
	Designation string `bson:"designation,omitempty" json:"designation,omitempty" validate:"omitempty,max=100"`

	// hostel_warden
	HostelBlockNumber string `bson:"hostelBlockNumber,omitempty" json:"hostelBlockNumber,omitempty" validate:"omitempty,max=20"`
}

func (attrs *Attributes) clean() {
	attrs.RollNumber = core.CleanString(attrs.RollNumber)
	attrs.Batch = core.CleanString(attrs.Batch)
	attrs.Branch = core.CleanString(attrs.Branch)
	attrs.Section = core.CleanString(attrs.Section)
	attrs.HostelBlock = core.CleanString(attrs.HostelBlock)
	attrs.RoomNumber = core.CleanString(attrs.RoomNumber)
	attrs.Department = core.CleanString(attrs.Department)
	attrs.Designation = core.CleanString(attrs.Designation)
	attrs.HostelBlockNumber = core.CleanString(attrs.HostelBlockNumber)
}

// merge overrides the receiver with every non-zero field of `other`.
func (attrs *Attributes) merge(other Attributes) {
	set := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	set(&attrs.RollNumber, other.RollNumber)
	set(&attrs.Batch, other.Batch)
	set(&attrs.Branch, other.Branch)
	set(&attrs.Section, other.Section)
	set(&attrs.HostelBlock, other.HostelBlock)
	set(&attrs.RoomNumber, other.RoomNumber)
	set(&attrs.Department, other.Department)
	set(&attrs.Designation, other.Designation)
	set(&attrs.HostelBlockNumber, other.HostelBlockNumber)
	if other.Year != 0 {
		attrs.Year = other.Year
	}
	if other.Semester != 0 {
		attrs.Semester = other.Semester
	}
}

// User is an Account together with its Profile, as resolved for each authenticated request.
type User struct {
	Account Account `json:"account"`
	Profile Profile `json:"profile"`
}

// NewUser contains information needed by an admin to create a new User.
type NewUser struct {
	Name       string `json:"name" validate:"required,min=2,max=100"`
	Email      string `json:"email" validate:"required,email,max=254"`
	Password   string `json:"password" validate:"required"`
	Role       Role   `json:"role" validate:"required,role"`
	Phone      string `json:"phone" validate:"omitempty,max=20"`
	IsVerified *bool  `json:"isVerified"`
	Attributes
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Phone = core.CleanString(nu.Phone)
	nu.Attributes.clean()
	return validate.Struct(nu)
}

// Registration is a public sign-up; it always yields a student.
type Registration struct {
	Name            string `json:"name" validate:"required,min=2,max=100"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
	Phone           string `json:"phone" validate:"omitempty,max=20"`
	Attributes
}

func (reg *Registration) Validate(validate *validator.Validate) error {
	reg.Name = core.CleanString(reg.Name)
	reg.Email = core.CleanString(reg.Email, true /* lower */)
	reg.Phone = core.CleanString(reg.Phone)
	reg.Attributes.clean()
	return validate.Struct(reg)
}

// UpdateUser defines what an admin may modify on an existing User. Empty fields keep their value.
type UpdateUser struct {
	Name     string `json:"name" validate:"omitempty,min=2,max=100"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Role     Role   `json:"role" validate:"omitempty,role"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
	IsActive *bool  `json:"isActive"`
	Password string `json:"password"`
	Attributes

	orig Profile
}

func (uu *UpdateUser) Validate(validate *validator.Validate, orig Profile) error {
	uu.orig = orig
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = orig.Name
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = orig.Email
	}
	if uu.Role == "" {
		uu.Role = orig.Role
	}
	if phone := core.CleanString(uu.Phone); phone != "" {
		uu.Phone = phone
	} else {
		uu.Phone = orig.Phone
	}
	uu.Attributes.clean()
	return validate.Struct(uu)
}

// mergedAttributes is what the Profile attributes will look like once the update is applied.
func (uu *UpdateUser) mergedAttributes() Attributes {
	attrs := uu.orig.Attributes
	attrs.merge(uu.Attributes)
	return attrs
}

// UpdateProfile is what any user may change on their own Profile.
type UpdateProfile struct {
	Name  string `json:"name" validate:"omitempty,min=2,max=100"`
	Phone string `json:"phone" validate:"omitempty,max=20"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.Name = core.CleanString(up.Name)
	up.Phone = core.CleanString(up.Phone)
	return validate.Struct(up)
}

type LoginCredentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (lc *LoginCredentials) Validate(validate *validator.Validate) error {
	lc.Email = core.CleanString(lc.Email, true /* lower */)
	return validate.Struct(lc)
}

type ChangePassword struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`

	name, email string
}

func (cp *ChangePassword) Validate(validate *validator.Validate, prof Profile) error {
	cp.name, cp.email = prof.Name, prof.Email
	return validate.Struct(cp)
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}

type ResetPassword struct {
	Token           string `json:"token" validate:"required"`
	UID             string `json:"uid" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

func (rp *ResetPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type VerifyEmail struct {
	Token string `json:"token" validate:"required"`
	UID   string `json:"uid" validate:"required"`
}

func (ve *VerifyEmail) Validate(validate *validator.Validate) error { return validate.Struct(ve) }

type QueryFilter struct {
	Search      string `query:"search"`
	Role        string `query:"role"`
	IsActive    string `query:"isActive"`
	Batch       string `query:"batch"`
	Branch      string `query:"branch"`
	Section     string `query:"section"`
	Year        int    `query:"year"`
	Department  string `query:"department"`
	HostelBlock string `query:"hostelBlock"`
}

func (qf *QueryFilter) Query() (core.Query, error) {
	q := core.Query{}.Search(qf.Search, "name", "email", "rollNumber")
	if role := Role(core.CleanString(qf.Role)); role != "" {
		if !role.IsValid() {
			return q, core.NewFieldError("role", "invalid role")
		}
		q = q.Where(core.Eq("role", role))
	}
	q, err := q.WhereBool("isActive", "isActive", qf.IsActive)
	if err != nil {
		return q, err
	}
	for field, val := range map[string]string{
		"batch":       qf.Batch,
		"branch":      qf.Branch,
		"section":     qf.Section,
		"department":  qf.Department,
		"hostelBlock": qf.HostelBlock,
	} {
		if val = core.CleanString(val); val != "" {
			q = q.Where(core.Eq(field, val))
		}
	}
	if qf.Year != 0 {
		q = q.Where(core.Eq("year", qf.Year))
	}
	return q, nil
}
