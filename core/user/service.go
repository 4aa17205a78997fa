package user

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trezcool/campus/core"
)

var (
	// errors
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email address is not verified")
	ErrAccountInactive    = errors.New("this account has been deactivated")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrInvalidResetLink   = errors.New("invalid or expired link")
)

type Service struct {
	accounts core.Store[Account]
	profiles core.Store[Profile]
	mailSvc  core.EmailService
	resetGen *TokenGenerator
	verifGen *TokenGenerator
	lockout  core.LockoutConfig
}

func NewService(accounts core.Store[Account], profiles core.Store[Profile], mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		accounts: accounts,
		profiles: profiles,
		mailSvc:  mailSvc,
		resetGen: NewTokenGenerator(resetSalt, conf.SecretKey, conf.PasswordResetTimeoutDelta),
		verifGen: NewTokenGenerator(verifySalt, conf.SecretKey, conf.PasswordResetTimeoutDelta),
		lockout:  conf.Lockout,
	}
}

// Resolve loads the Account referenced by a token subject and its Profile.
// A missing Profile is an integrity fault and is never papered over.
func (svc *Service) Resolve(ctx context.Context, accountID string) (User, error) {
	id, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return User{}, errors.Wrap(core.ErrAccountNotFound, "malformed subject")
	}
	acc, err := svc.accounts.Get(ctx, id)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return User{}, errors.Wrapf(core.ErrAccountNotFound, "account %s", accountID)
		}
		return User{}, errors.Wrap(err, "loading account")
	}
	return svc.withProfile(ctx, acc)
}

func (svc *Service) withProfile(ctx context.Context, acc Account) (User, error) {
	prof, err := svc.profiles.FindOne(ctx, core.Where(core.Eq("accountId", acc.ID)))
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return User{}, errors.Wrapf(core.ErrProfileMissing, "account %s", acc.ID.Hex())
		}
		return User{}, errors.Wrap(err, "loading profile")
	}
	return User{Account: acc, Profile: prof}, nil
}

// Authenticate checks credentials, applying the lockout policy.
func (svc *Service) Authenticate(ctx context.Context, creds LoginCredentials) (User, error) {
	acc, err := svc.accounts.FindOne(ctx, core.Where(core.Eq("email", creds.Email)))
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "loading account")
	}

	now := core.Now()
	if acc.IsLocked(now) {
		return User{}, core.LockedError{Until: *acc.LockUntil}
	}
	if acc.LockUntil != nil { // expired lock
		acc.clearLock()
	}

	if err := acc.CheckPassword(creds.Password); err != nil {
		locked := acc.registerFailedLogin(now, svc.lockout)
		if err := svc.accounts.Replace(ctx, acc.ID, acc); err != nil {
			return User{}, errors.Wrap(err, "recording failed login")
		}
		if locked {
			return User{}, core.LockedError{Until: *acc.LockUntil}
		}
		return User{}, ErrInvalidCredentials
	}

	usr, err := svc.withProfile(ctx, acc)
	if err != nil {
		return User{}, err
	}
	if !acc.IsVerified {
		return User{}, ErrEmailNotVerified
	}
	if !usr.Profile.IsActive {
		return User{}, ErrAccountInactive
	}

	acc.clearLock()
	acc.LastLogin = &now
	acc.UpdatedAt = now
	if err := svc.accounts.Replace(ctx, acc.ID, acc); err != nil {
		return User{}, errors.Wrap(err, "recording login")
	}
	usr.Account = acc
	return usr, nil
}

func (svc *Service) checkEmailUniqueness(ctx context.Context, email string, exclude ...primitive.ObjectID) error {
	q := core.Where(core.Eq("email", email))
	if len(exclude) > 0 {
		q = q.Where(core.Ne("_id", exclude[0]))
	}
	exists, err := svc.accounts.Exists(ctx, q)
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	}
	return nil
}

// create persists an Account and its Profile. The Account is removed again if its
// Profile cannot be written, so that no Account is left without a Profile.
func (svc *Service) create(ctx context.Context, acc Account, prof Profile, password string) (User, error) {
	if err := svc.checkEmailUniqueness(ctx, acc.Email); err != nil {
		return User{}, err
	}

	now := core.Now()
	acc.ID = primitive.NewObjectID()
	acc.CreatedAt, acc.UpdatedAt = now, now
	if err := acc.SetPassword(password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	prof.ID = primitive.NewObjectID()
	prof.AccountID = acc.ID
	prof.Email = acc.Email
	prof.CreatedAt, prof.UpdatedAt = now, now

	if err := svc.accounts.Insert(ctx, acc); err != nil {
		if errors.Cause(err) == core.ErrDuplicate {
			return User{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		return User{}, errors.Wrap(err, "inserting account")
	}
	if err := svc.profiles.Insert(ctx, prof); err != nil {
		_ = svc.accounts.Delete(ctx, acc.ID)
		if errors.Cause(err) == core.ErrDuplicate {
			return User{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		return User{}, errors.Wrap(err, "inserting profile")
	}
	return User{Account: acc, Profile: prof}, nil
}

// Create is used by admins; the role is free and the account verified unless stated otherwise.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	verified := nu.IsVerified == nil || *nu.IsVerified
	usr, err := svc.create(ctx,
		Account{Email: nu.Email, IsVerified: verified},
		Profile{Name: nu.Name, Role: nu.Role, Phone: nu.Phone, IsActive: true, Attributes: nu.Attributes},
		nu.Password,
	)
	if err != nil {
		return User{}, err
	}
	if !verified {
		svc.sendVerificationEmail(usr)
	}
	return usr, nil
}

// Register is the public sign-up: always a student, never verified.
func (svc *Service) Register(ctx context.Context, reg Registration) (User, error) {
	usr, err := svc.create(ctx,
		Account{Email: reg.Email},
		Profile{Name: reg.Name, Role: RoleStudent, Phone: reg.Phone, IsActive: true, Attributes: reg.Attributes},
		reg.Password,
	)
	if err != nil {
		return User{}, err
	}
	svc.sendVerificationEmail(usr)
	return usr, nil
}

// Get returns the User owning the Profile `profileID`.
func (svc *Service) Get(ctx context.Context, profileID primitive.ObjectID) (User, error) {
	prof, err := svc.profiles.Get(ctx, profileID)
	if err != nil {
		return User{}, errors.Wrap(err, "loading profile")
	}
	acc, err := svc.accounts.Get(ctx, prof.AccountID)
	if err != nil {
		return User{}, errors.Wrap(err, "loading account")
	}
	return User{Account: acc, Profile: prof}, nil
}

func (svc *Service) GetProfile(ctx context.Context, profileID primitive.ObjectID) (Profile, error) {
	return svc.profiles.Get(ctx, profileID)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	acc, err := svc.accounts.FindOne(ctx, core.Where(core.Eq("email", core.CleanString(email, true /* lower */))))
	if err != nil {
		return User{}, errors.Wrap(err, "loading account")
	}
	return svc.withProfile(ctx, acc)
}

func (svc *Service) Query(ctx context.Context, q core.Query, opts core.FindOptions) ([]Profile, int64, error) {
	return svc.profiles.Find(ctx, q, opts)
}

// Update applies an admin update. Role changes only happen here.
func (svc *Service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	acc, prof := usr.Account, usr.Profile
	if uu.Email != acc.Email {
		if err := svc.checkEmailUniqueness(ctx, uu.Email, acc.ID); err != nil {
			return User{}, err
		}
	}

	now := core.Now()
	acc.Email = uu.Email
	acc.UpdatedAt = now
	if uu.Password != "" {
		if err := acc.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}

	prof.Name = uu.Name
	prof.Email = uu.Email
	prof.Role = uu.Role
	prof.Phone = uu.Phone
	prof.Attributes = uu.mergedAttributes()
	if uu.IsActive != nil {
		prof.IsActive = *uu.IsActive
	}
	prof.UpdatedAt = now

	if err := svc.accounts.Replace(ctx, acc.ID, acc); err != nil {
		if errors.Cause(err) == core.ErrDuplicate {
			return User{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		return User{}, errors.Wrap(err, "updating account")
	}
	if err := svc.profiles.Replace(ctx, prof.ID, prof); err != nil {
		return User{}, errors.Wrap(err, "updating profile")
	}
	return User{Account: acc, Profile: prof}, nil
}

// UpdateProfile applies a self-service update; privileged fields are untouched.
func (svc *Service) UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error) {
	prof := usr.Profile
	if up.Name != "" {
		prof.Name = up.Name
	}
	if up.Phone != "" {
		prof.Phone = up.Phone
	}
	prof.UpdatedAt = core.Now()
	if err := svc.profiles.Replace(ctx, prof.ID, prof); err != nil {
		return User{}, errors.Wrap(err, "updating profile")
	}
	usr.Profile = prof
	return usr, nil
}

// Delete removes a User: Profile and Account go together.
// The Account goes first: a half-done delete never leaves an Account without a Profile.
func (svc *Service) Delete(ctx context.Context, usr User) error {
	if err := svc.accounts.Delete(ctx, usr.Account.ID); err != nil {
		return errors.Wrap(err, "deleting account")
	}
	if err := svc.profiles.Delete(ctx, usr.Profile.ID); err != nil {
		return errors.Wrap(err, "deleting profile")
	}
	return nil
}

// SetPassword unconditionally replaces the password of an Account.
func (svc *Service) SetPassword(ctx context.Context, acc Account, pwd string) error {
	if err := acc.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	acc.clearLock()
	acc.UpdatedAt = core.Now()
	return errors.Wrap(svc.accounts.Replace(ctx, acc.ID, acc), "updating account")
}

func (svc *Service) ChangePassword(ctx context.Context, usr User, cp ChangePassword) error {
	if err := usr.Account.CheckPassword(cp.CurrentPassword); err != nil {
		return core.NewValidationError(ErrWrongPassword, core.FieldError{Field: "currentPassword", Error: ErrWrongPassword.Error()})
	}
	return svc.SetPassword(ctx, usr.Account, cp.Password)
}

// RequestPasswordReset mails a reset link. Unknown emails are silently ignored.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound || errors.Cause(err) == core.ErrProfileMissing {
			return nil
		}
		return err
	}
	if !usr.Profile.IsActive {
		return nil
	}
	token, err := svc.resetGen.MakeToken(usr.Account)
	if err != nil {
		return errors.Wrap(err, "making reset token")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Profile.Name, Address: usr.Account.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":  usr.Profile.Name,
			"UID":   EncodeUID(usr.Account),
			"Token": token,
		},
	})
	return nil
}

func (svc *Service) accountFromUID(ctx context.Context, uid string) (Account, error) {
	id, err := decodeUID(uid)
	if err != nil {
		return Account{}, ErrInvalidResetLink
	}
	acc, err := svc.accounts.Get(ctx, id)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return Account{}, ErrInvalidResetLink
		}
		return Account{}, errors.Wrap(err, "loading account")
	}
	return acc, nil
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetPassword) error {
	acc, err := svc.accountFromUID(ctx, rp.UID)
	if err != nil {
		return err
	}
	if err := svc.resetGen.VerifyToken(acc, rp.Token); err != nil {
		return ErrInvalidResetLink
	}
	return svc.SetPassword(ctx, acc, rp.Password)
}

func (svc *Service) sendVerificationEmail(usr User) {
	token, err := svc.verifGen.MakeToken(usr.Account)
	if err != nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Profile.Name, Address: usr.Account.Email}},
		Subject:      "Verify your email",
		TemplateName: "verify_email",
		TemplateData: map[string]interface{}{
			"Name":  usr.Profile.Name,
			"UID":   EncodeUID(usr.Account),
			"Token": token,
		},
	})
}

// VerificationToken returns the email verification token of an Account.
func (svc *Service) VerificationToken(acc Account) (string, error) {
	return svc.verifGen.MakeToken(acc)
}

// ResetToken returns a password reset token for an Account.
func (svc *Service) ResetToken(acc Account) (string, error) {
	return svc.resetGen.MakeToken(acc)
}

func (svc *Service) VerifyEmail(ctx context.Context, ve VerifyEmail) error {
	acc, err := svc.accountFromUID(ctx, ve.UID)
	if err != nil {
		return err
	}
	if err := svc.verifGen.VerifyToken(acc, ve.Token); err != nil {
		return ErrInvalidResetLink
	}
	acc.IsVerified = true
	acc.UpdatedAt = core.Now()
	return errors.Wrap(svc.accounts.Replace(ctx, acc.ID, acc), "updating account")
}
