package identity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/appointease/appointease/internal/platform/apierror"
	"github.com/appointease/appointease/internal/platform/auth"
)

// -- Mock Repositories --

type mockUserRepo struct {
	store map[uuid.UUID]*User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{store: make(map[uuid.UUID]*User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	for _, existing := range m.store {
		if existing.Email == u.Email || existing.Phone == u.Phone {
			return ErrEmailOrPhoneTaken
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) FindForLogin(_ context.Context, email, phone, userType string) (*User, error) {
	for _, u := range m.store {
		match := u.Email == email
		if email == "" {
			match = u.Phone == phone
		}
		if match && u.UserType == userType {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockUserRepo) ExistsByEmailOrPhone(_ context.Context, email, phone string) (bool, error) {
	for _, u := range m.store {
		if u.Email == email || u.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) Update(_ context.Context, u *User) error {
	if _, ok := m.store[u.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range m.store {
		if id != u.ID && existing.Phone == u.Phone {
			return ErrPhoneTaken
		}
	}
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

type mockDoctorRepo struct {
	profiles []*DoctorProfile
	err      error
}

func (m *mockDoctorRepo) Create(_ context.Context, d *DoctorProfile) error {
	if m.err != nil {
		return m.err
	}
	d.ID = uuid.New()
	m.profiles = append(m.profiles, d)
	return nil
}

// fakeTx restores the user store when fn fails.
type fakeTx struct {
	users *mockUserRepo
}

func (t *fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := make(map[uuid.UUID]*User, len(t.users.store))
	for k, v := range t.users.store {
		snapshot[k] = v
	}
	if err := fn(ctx); err != nil {
		t.users.store = snapshot
		return err
	}
	return nil
}

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testDeps struct {
	svc     *Service
	users   *mockUserRepo
	doctors *mockDoctorRepo
	tokens  *auth.TokenManager
	revoker *auth.MemoryRevoker
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()
	hasher, err := auth.NewPasswordHasher(4)
	if err != nil {
		t.Fatal(err)
	}
	users := newMockUserRepo()
	doctors := &mockDoctorRepo{}
	tokens := auth.NewTokenManager(testSecret, time.Hour)
	revoker := auth.NewMemoryRevoker(time.Hour)
	t.Cleanup(revoker.Close)
	svc := NewService(users, doctors, &fakeTx{users: users}, tokens, hasher, revoker)
	return &testDeps{svc: svc, users: users, doctors: doctors, tokens: tokens, revoker: revoker}
}

func newTestService(t *testing.T) *Service {
	return newTestDeps(t).svc
}

func patientInput() RegisterInput {
	return RegisterInput{
		UserType:  auth.UserTypePatient,
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Phone:     "5551234567",
		Password:  "correct-horse",
	}
}

func doctorInput() RegisterInput {
	fee := 120.0
	return RegisterInput{
		UserType:  auth.UserTypeDoctor,
		FirstName: "Gregory",
		LastName:  "House",
		Email:     "house@example.com",
		Phone:     "5559876543",
		Password:  "vicodin-123",
		Specialty: "Diagnostics",
		Location:  "Princeton",
		Fee:       &fee,
	}
}

func TestService_Register_Patient(t *testing.T) {
	d := newTestDeps(t)
	sess, err := d.svc.Register(context.Background(), patientInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.User.ID == uuid.Nil {
		t.Error("expected user id to be set")
	}
	if sess.User.PasswordHash == "correct-horse" || sess.User.PasswordHash == "" {
		t.Error("expected password to be hashed")
	}

	claims, err := d.tokens.Parse(sess.Token)
	if err != nil {
		t.Fatalf("token did not verify: %v", err)
	}
	if claims.UserID != sess.User.ID.String() || claims.UserType != auth.UserTypePatient {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if len(d.doctors.profiles) != 0 {
		t.Error("patient registration must not create a doctor row")
	}
}

func TestService_Register_NormalizesEmail(t *testing.T) {
	svc := newTestService(t)
	in := patientInput()
	in.Email = "  Ada@Example.COM "
	sess, err := svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.User.Email != "ada@example.com" {
		t.Errorf("expected normalized email, got %q", sess.User.Email)
	}
}

func TestService_Register_DuplicateEmailOrPhone(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Register(context.Background(), patientInput()); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	sameEmail := patientInput()
	sameEmail.Phone = "5550000000"
	if _, err := svc.Register(context.Background(), sameEmail); !errors.Is(err, ErrEmailOrPhoneTaken) {
		t.Errorf("expected ErrEmailOrPhoneTaken for duplicate email, got %v", err)
	}

	samePhone := patientInput()
	samePhone.Email = "other@example.com"
	if _, err := svc.Register(context.Background(), samePhone); !errors.Is(err, ErrEmailOrPhoneTaken) {
		t.Errorf("expected ErrEmailOrPhoneTaken for duplicate phone, got %v", err)
	}
}

func TestService_Register_Doctor(t *testing.T) {
	d := newTestDeps(t)
	sess, err := d.svc.Register(context.Background(), doctorInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.doctors.profiles) != 1 {
		t.Fatalf("expected 1 doctor row, got %d", len(d.doctors.profiles))
	}
	p := d.doctors.profiles[0]
	if p.UserID != sess.User.ID || p.Specialty != "Diagnostics" || p.Fee != 120 {
		t.Errorf("unexpected doctor row: %+v", p)
	}
}

func TestService_Register_DoctorRowFailureRollsBack(t *testing.T) {
	d := newTestDeps(t)
	d.doctors.err = errors.New("insert doctor: connection reset")

	if _, err := d.svc.Register(context.Background(), doctorInput()); err == nil {
		t.Fatal("expected error")
	}
	if len(d.users.store) != 0 {
		t.Errorf("expected user insert to be rolled back, found %d users", len(d.users.store))
	}
}

func TestService_Register_Validation(t *testing.T) {
	svc := newTestService(t)
	tests := []struct {
		name   string
		mutate func(in *RegisterInput)
	}{
		{"admin self-registration", func(in *RegisterInput) { in.UserType = auth.UserTypeAdmin }},
		{"unknown type", func(in *RegisterInput) { in.UserType = "nurse" }},
		{"missing first name", func(in *RegisterInput) { in.FirstName = " " }},
		{"long last name", func(in *RegisterInput) { in.LastName = strings.Repeat("x", 101) }},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }},
		{"short phone", func(in *RegisterInput) { in.Phone = "123" }},
		{"short password", func(in *RegisterInput) { in.Password = "short" }},
		{"password over bcrypt limit", func(in *RegisterInput) { in.Password = strings.Repeat("p", 73) }},
		{"bad date of birth", func(in *RegisterInput) { dob := "31/12/1990"; in.DateOfBirth = &dob }},
		{"doctor without specialty", func(in *RegisterInput) { in.UserType = auth.UserTypeDoctor; in.Location = "Boston" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := patientInput()
			tt.mutate(&in)
			_, err := svc.Register(context.Background(), in)
			var apiErr *apierror.Error
			if !errors.As(err, &apiErr) || apiErr.Code != apierror.CodeValidation {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}
}

func TestService_Login(t *testing.T) {
	d := newTestDeps(t)
	reg, err := d.svc.Register(context.Background(), patientInput())
	if err != nil {
		t.Fatal(err)
	}

	byEmail, err := d.svc.Login(context.Background(), LoginInput{
		Email: "ADA@example.com", Password: "correct-horse", UserType: auth.UserTypePatient,
	})
	if err != nil {
		t.Fatalf("login by email failed: %v", err)
	}
	if byEmail.User.ID != reg.User.ID {
		t.Error("logged in as the wrong user")
	}

	if _, err := d.svc.Login(context.Background(), LoginInput{
		Phone: "5551234567", Password: "correct-horse", UserType: auth.UserTypePatient,
	}); err != nil {
		t.Fatalf("login by phone failed: %v", err)
	}
}

func TestService_Login_EmailTakesPrecedenceOverPhone(t *testing.T) {
	d := newTestDeps(t)
	ada, err := d.svc.Register(context.Background(), patientInput())
	if err != nil {
		t.Fatal(err)
	}
	grace := patientInput()
	grace.FirstName, grace.Email, grace.Phone, grace.Password = "Grace", "grace@example.com", "5559876543", "grace-password"
	if _, err := d.svc.Register(context.Background(), grace); err != nil {
		t.Fatal(err)
	}

	mixed := LoginInput{Email: "ada@example.com", Phone: "5559876543", UserType: auth.UserTypePatient}

	mixed.Password = "grace-password"
	if _, err := d.svc.Login(context.Background(), mixed); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials with the phone owner's password, got %v", err)
	}

	mixed.Password = "correct-horse"
	sess, err := d.svc.Login(context.Background(), mixed)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if sess.User.ID != ada.User.ID {
		t.Error("expected the email owner's account")
	}
}

func TestService_Login_FailuresAreIndistinguishable(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Register(context.Background(), patientInput()); err != nil {
		t.Fatal(err)
	}

	cases := map[string]LoginInput{
		"wrong password": {Email: "ada@example.com", Password: "wrong-horse", UserType: auth.UserTypePatient},
		"type mismatch":  {Email: "ada@example.com", Password: "correct-horse", UserType: auth.UserTypeDoctor},
		"unknown user":   {Email: "nobody@example.com", Password: "correct-horse", UserType: auth.UserTypePatient},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), in)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestService_Login_Validation(t *testing.T) {
	svc := newTestService(t)
	cases := []LoginInput{
		{Password: "x", UserType: auth.UserTypePatient},
		{Email: "a@b.c", UserType: auth.UserTypePatient},
		{Email: "a@b.c", Password: "x", UserType: "root"},
	}
	for _, in := range cases {
		var apiErr *apierror.Error
		if _, err := svc.Login(context.Background(), in); !errors.As(err, &apiErr) {
			t.Errorf("expected validation error for %+v, got %v", in, err)
		}
	}
}

func TestService_Logout_RevokesToken(t *testing.T) {
	d := newTestDeps(t)
	sess, _ := d.svc.Register(context.Background(), patientInput())
	claims, _ := d.tokens.Parse(sess.Token)

	p := &auth.Principal{UserID: sess.User.ID, UserType: auth.UserTypePatient, TokenID: claims.ID, ExpiresAt: sess.ExpiresAt}
	if err := d.svc.Logout(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	revoked, _ := d.revoker.IsRevoked(context.Background(), claims.ID)
	if !revoked {
		t.Error("expected token to be revoked")
	}
}

func TestService_UpdateProfile(t *testing.T) {
	svc := newTestService(t)
	sess, _ := svc.Register(context.Background(), patientInput())

	city := "London"
	name := "Augusta"
	u, err := svc.UpdateProfile(context.Background(), sess.User.ID, ProfileUpdate{FirstName: &name, City: &city})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.FirstName != "Augusta" || u.City == nil || *u.City != "London" {
		t.Errorf("unexpected profile: %+v", u)
	}
	if u.Email != "ada@example.com" || u.UserType != auth.UserTypePatient {
		t.Error("email and user type must not change")
	}
}

func TestService_UpdateProfile_PhoneConflict(t *testing.T) {
	svc := newTestService(t)
	a, _ := svc.Register(context.Background(), patientInput())
	if _, err := svc.Register(context.Background(), doctorInput()); err != nil {
		t.Fatal(err)
	}

	phone := "5559876543"
	if _, err := svc.UpdateProfile(context.Background(), a.User.ID, ProfileUpdate{Phone: &phone}); !errors.Is(err, ErrPhoneTaken) {
		t.Errorf("expected ErrPhoneTaken, got %v", err)
	}
}

func TestService_GetProfile_NotFound(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.GetProfile(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
