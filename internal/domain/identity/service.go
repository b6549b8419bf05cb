package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/appointease/appointease/internal/platform/apierror"
	"github.com/appointease/appointease/internal/platform/auth"
	"github.com/appointease/appointease/internal/platform/db"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const (
	maxNameLen     = 100
	maxEmailLen    = 254
	minPhoneLen    = 6
	maxPhoneLen    = 20
	minPasswordLen = 8
	maxFieldLen    = 255
	dateLayout     = "2006-01-02"
)

var registrableTypes = map[string]bool{
	auth.UserTypePatient: true,
	auth.UserTypeDoctor:  true,
}

var loginTypes = map[string]bool{
	auth.UserTypePatient: true,
	auth.UserTypeDoctor:  true,
	auth.UserTypeAdmin:   true,
}

type Service struct {
	users   UserRepository
	doctors DoctorRepository
	tx      db.Transactor
	tokens  *auth.TokenManager
	hasher  *auth.PasswordHasher
	revoker auth.Revoker
}

func NewService(users UserRepository, doctors DoctorRepository, tx db.Transactor,
	tokens *auth.TokenManager, hasher *auth.PasswordHasher, revoker auth.Revoker) *Service {
	return &Service{users: users, doctors: doctors, tx: tx, tokens: tokens, hasher: hasher, revoker: revoker}
}

// Register creates an account and, for doctors, the matching doctor row in
// the same transaction.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := validateRegister(&in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		UserType:     in.UserType,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		Phone:        in.Phone,
		DateOfBirth:  emptyToNil(in.DateOfBirth),
		Gender:       in.Gender,
		Address:      in.Address,
		City:         in.City,
		ZipCode:      in.ZipCode,
		PasswordHash: hash,
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		taken, err := s.users.ExistsByEmailOrPhone(ctx, u.Email, u.Phone)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailOrPhoneTaken
		}
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}
		if u.UserType != auth.UserTypeDoctor {
			return nil
		}
		d := &DoctorProfile{
			UserID:    u.ID,
			Specialty: strings.TrimSpace(in.Specialty),
			Location:  strings.TrimSpace(in.Location),
		}
		if in.Fee != nil {
			d.Fee = *in.Fee
		}
		return s.doctors.Create(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	return s.newSession(u)
}

// Login never reveals whether the account exists: an unknown user, a type
// mismatch and a wrong password all return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	email := normalizeEmail(in.Email)
	phone := strings.TrimSpace(in.Phone)
	if email == "" && phone == "" {
		return nil, apierror.Validation("email or phone is required")
	}
	if in.Password == "" {
		return nil, apierror.Validation("password is required")
	}
	if !loginTypes[in.UserType] {
		return nil, apierror.Validation("userType must be patient, doctor or admin")
	}

	// Email wins when both are sent, so a request naming one user's email
	// and another's phone resolves to a single account.
	if email != "" {
		phone = ""
	}

	u, err := s.users.FindForLogin(ctx, email, phone, in.UserType)
	if errors.Is(err, ErrNotFound) {
		s.hasher.CompareDummy(in.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := s.hasher.Compare(u.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	return s.newSession(u)
}

// Logout denies the caller's token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, p *auth.Principal) error {
	if s.revoker == nil {
		return nil
	}
	return s.revoker.Revoke(ctx, p.TokenID, p.ExpiresAt)
}

func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*User, error) {
	if err := validateProfileUpdate(&upd); err != nil {
		return nil, err
	}

	var u *User
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		applyProfileUpdate(u, upd)
		return s.users.Update(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) newSession(u *User) (*Session, error) {
	tok, err := s.tokens.Issue(u.ID, u.UserType)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{User: u, Token: tok.Token, ExpiresAt: tok.ExpiresAt}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegister(in *RegisterInput) error {
	if !registrableTypes[in.UserType] {
		return apierror.Validation("userType must be patient or doctor")
	}
	if err := validateName("firstName", in.FirstName); err != nil {
		return err
	}
	if err := validateName("lastName", in.LastName); err != nil {
		return err
	}
	if in.Email == "" || len(in.Email) > maxEmailLen || !strings.Contains(in.Email, "@") {
		return apierror.Validation("a valid email is required")
	}
	if err := validatePhone(in.Phone); err != nil {
		return err
	}
	if len(in.Password) < minPasswordLen {
		return apierror.Validationf("password must be at least %d characters", minPasswordLen)
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		return apierror.Validationf("password must be at most %d bytes", auth.MaxPasswordBytes)
	}
	if err := validateDate(in.DateOfBirth); err != nil {
		return err
	}
	if err := validateOptional(in.Gender, in.Address, in.City, in.ZipCode); err != nil {
		return err
	}
	if in.UserType == auth.UserTypeDoctor {
		if strings.TrimSpace(in.Specialty) == "" || strings.TrimSpace(in.Location) == "" {
			return apierror.Validation("specialty and location are required for doctors")
		}
		if len(in.Specialty) > maxNameLen || len(in.Location) > maxNameLen {
			return apierror.Validationf("specialty and location must be at most %d characters", maxNameLen)
		}
		if in.Fee != nil && *in.Fee < 0 {
			return apierror.Validation("fee must not be negative")
		}
	}
	return nil
}

func validateProfileUpdate(upd *ProfileUpdate) error {
	if upd.FirstName != nil {
		*upd.FirstName = strings.TrimSpace(*upd.FirstName)
		if err := validateName("firstName", *upd.FirstName); err != nil {
			return err
		}
	}
	if upd.LastName != nil {
		*upd.LastName = strings.TrimSpace(*upd.LastName)
		if err := validateName("lastName", *upd.LastName); err != nil {
			return err
		}
	}
	if upd.Phone != nil {
		*upd.Phone = strings.TrimSpace(*upd.Phone)
		if err := validatePhone(*upd.Phone); err != nil {
			return err
		}
	}
	if err := validateDate(upd.DateOfBirth); err != nil {
		return err
	}
	return validateOptional(upd.Gender, upd.Address, upd.City, upd.ZipCode)
}

func applyProfileUpdate(u *User, upd ProfileUpdate) {
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.DateOfBirth != nil {
		u.DateOfBirth = emptyToNil(upd.DateOfBirth)
	}
	if upd.Gender != nil {
		u.Gender = upd.Gender
	}
	if upd.Address != nil {
		u.Address = upd.Address
	}
	if upd.City != nil {
		u.City = upd.City
	}
	if upd.ZipCode != nil {
		u.ZipCode = upd.ZipCode
	}
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

func validateName(field, v string) error {
	if v == "" {
		return apierror.Validationf("%s is required", field)
	}
	if len(v) > maxNameLen {
		return apierror.Validationf("%s must be at most %d characters", field, maxNameLen)
	}
	return nil
}

func validatePhone(phone string) error {
	if len(phone) < minPhoneLen || len(phone) > maxPhoneLen {
		return apierror.Validationf("phone must be %d to %d characters", minPhoneLen, maxPhoneLen)
	}
	return nil
}

func validateDate(d *string) error {
	if d == nil || *d == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, *d)
	if err != nil {
		return apierror.Validation("dateOfBirth must be YYYY-MM-DD")
	}
	if t.After(time.Now()) {
		return apierror.Validation("dateOfBirth must not be in the future")
	}
	return nil
}

func validateOptional(fields ...*string) error {
	for _, f := range fields {
		if f != nil && len(*f) > maxFieldLen {
			return apierror.Validationf("profile fields must be at most %d characters", maxFieldLen)
		}
	}
	return nil
}
