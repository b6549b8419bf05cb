package appointment

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/appointease/appointease/internal/domain/notification"
	"github.com/appointease/appointease/internal/platform/apierror"
	"github.com/appointease/appointease/internal/platform/auth"
)

// -- Mocks --

type mockRepo struct {
	appts     map[uuid.UUID]*Appointment
	doctors   map[uuid.UUID]*DoctorRef
	userTypes map[uuid.UUID]string
	// skipSlotCheck simulates a concurrent booking that passes the
	// availability check before the other insert commits.
	skipSlotCheck bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		appts:     make(map[uuid.UUID]*Appointment),
		doctors:   make(map[uuid.UUID]*DoctorRef),
		userTypes: make(map[uuid.UUID]string),
	}
}

func (m *mockRepo) addUser(userType string) uuid.UUID {
	id := uuid.New()
	m.userTypes[id] = userType
	return id
}

func (m *mockRepo) addDoctor() *DoctorRef {
	d := &DoctorRef{ID: uuid.New(), UserID: m.addUser(auth.UserTypeDoctor)}
	m.doctors[d.ID] = d
	return d
}

func (m *mockRepo) slotHeld(doctorID uuid.UUID, date, clock string) bool {
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.AppointmentDate == date && a.AppointmentTime == clock && a.Status == StatusScheduled {
			return true
		}
	}
	return false
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	if m.slotHeld(a.DoctorID, a.AppointmentDate, a.AppointmentTime) {
		return ErrSlotTaken
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) SlotTaken(_ context.Context, doctorID uuid.UUID, date, clock string) (bool, error) {
	if m.skipSlotCheck {
		return false, nil
	}
	return m.slotHeld(doctorID, date, clock), nil
}

func (m *mockRepo) list(match func(*Appointment) bool, asc bool, limit, offset int) ([]*Appointment, int, error) {
	var out []*Appointment
	for _, a := range m.appts {
		if match(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ki := out[i].AppointmentDate + out[i].AppointmentTime
		kj := out[j].AppointmentDate + out[j].AppointmentTime
		if asc {
			return ki < kj
		}
		return ki > kj
	})
	total := len(out)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func (m *mockRepo) ListForPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return m.list(func(a *Appointment) bool { return a.PatientID == patientID }, false, limit, offset)
}

func (m *mockRepo) ListForDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return m.list(func(a *Appointment) bool { return a.DoctorID == doctorID }, true, limit, offset)
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to string) error {
	a, ok := m.appts[id]
	if !ok || a.Status != from {
		return ErrStatusChanged
	}
	a.Status = to
	return nil
}

func (m *mockRepo) FindDoctor(_ context.Context, id uuid.UUID) (*DoctorRef, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return d, nil
}

func (m *mockRepo) FindDoctorByUser(_ context.Context, userID uuid.UUID) (*DoctorRef, error) {
	for _, d := range m.doctors {
		if d.UserID == userID {
			return d, nil
		}
	}
	return nil, ErrDoctorNotFound
}

func (m *mockRepo) UserType(_ context.Context, userID uuid.UUID) (string, error) {
	t, ok := m.userTypes[userID]
	if !ok {
		return "", ErrUserNotFound
	}
	return t, nil
}

type mockNotifier struct {
	sent []*notification.Notification
	err  error
}

func (m *mockNotifier) Notify(_ context.Context, n *notification.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

// fakeTx restores appointments and notifications when fn fails.
type fakeTx struct {
	repo     *mockRepo
	notifier *mockNotifier
}

func (t *fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	appts := make(map[uuid.UUID]*Appointment, len(t.repo.appts))
	for k, v := range t.repo.appts {
		cp := *v
		appts[k] = &cp
	}
	sent := len(t.notifier.sent)
	if err := fn(ctx); err != nil {
		t.repo.appts = appts
		t.notifier.sent = t.notifier.sent[:sent]
		return err
	}
	return nil
}

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	repo     *mockRepo
	notifier *mockNotifier
	doctor   *DoctorRef
	patient  uuid.UUID
}

func newFixture() *fixture {
	repo := newMockRepo()
	notifier := &mockNotifier{}
	svc := NewService(repo, &fakeTx{repo: repo, notifier: notifier}, notifier)
	svc.now = func() time.Time { return fixedNow }
	return &fixture{
		svc:      svc,
		repo:     repo,
		notifier: notifier,
		doctor:   repo.addDoctor(),
		patient:  repo.addUser(auth.UserTypePatient),
	}
}

func (f *fixture) input(date, clock string) BookInput {
	return BookInput{
		DoctorID:        f.doctor.ID.String(),
		AppointmentDate: date,
		AppointmentTime: clock,
		AppointmentType: TypeDoctor,
	}
}

func (f *fixture) patientPrincipal() *auth.Principal {
	return &auth.Principal{UserID: f.patient, UserType: auth.UserTypePatient}
}

func (f *fixture) doctorPrincipal() *auth.Principal {
	return &auth.Principal{UserID: f.doctor.UserID, UserType: auth.UserTypeDoctor}
}

// -- Booking --

func TestService_Book(t *testing.T) {
	f := newFixture()
	symptoms := "  persistent cough "
	in := f.input("2025-06-10", "10:30")
	in.Symptoms = &symptoms

	a, err := f.svc.Book(context.Background(), f.patient, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusScheduled {
		t.Errorf("expected scheduled, got %s", a.Status)
	}
	if a.Symptoms == nil || *a.Symptoms != "persistent cough" {
		t.Errorf("expected trimmed symptoms, got %v", a.Symptoms)
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0].UserID != f.patient {
		t.Errorf("expected one notification for the patient, got %d", len(f.notifier.sent))
	}
}

func TestService_Book_SameSlotRejected(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Book(context.Background(), f.patient, f.input("2025-06-10", "10:30")); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	other := f.repo.addUser(auth.UserTypePatient)
	_, err := f.svc.Book(context.Background(), other, f.input("2025-06-10", "10:30"))
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
	if len(f.repo.appts) != 1 {
		t.Errorf("expected a single appointment, got %d", len(f.repo.appts))
	}
}

func TestService_Book_RaceCaughtByIndex(t *testing.T) {
	f := newFixture()
	_, _ = f.svc.Book(context.Background(), f.patient, f.input("2025-06-10", "10:30"))

	f.repo.skipSlotCheck = true
	_, err := f.svc.Book(context.Background(), f.repo.addUser(auth.UserTypePatient), f.input("2025-06-10", "10:30"))
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken from the unique index, got %v", err)
	}
	if len(f.notifier.sent) != 1 {
		t.Errorf("losing booking must not leave a notification, got %d", len(f.notifier.sent))
	}
}

func TestService_Book_DifferentSlotsAllowed(t *testing.T) {
	f := newFixture()
	for _, clock := range []string{"09:00", "09:30"} {
		if _, err := f.svc.Book(context.Background(), f.patient, f.input("2025-06-10", clock)); err != nil {
			t.Fatalf("booking %s failed: %v", clock, err)
		}
	}
	other := f.repo.addDoctor()
	in := f.input("2025-06-10", "09:00")
	in.DoctorID = other.ID.String()
	if _, err := f.svc.Book(context.Background(), f.patient, in); err != nil {
		t.Fatalf("same time with another doctor failed: %v", err)
	}
}

func TestService_Book_CancelFreesSlot(t *testing.T) {
	f := newFixture()
	a, _ := f.svc.Book(context.Background(), f.patient, f.input("2025-06-10", "10:30"))
	if _, err := f.svc.UpdateStatus(context.Background(), f.patientPrincipal(), a.ID, StatusCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if _, err := f.svc.Book(context.Background(), f.patient, f.input("2025-06-10", "10:30")); err != nil {
		t.Fatalf("expected slot to be free after cancel, got %v", err)
	}
}

func TestService_Book_UnknownDoctor(t *testing.T) {
	f := newFixture()
	in := f.input("2025-06-10", "10:30")
	in.DoctorID = uuid.NewString()
	if _, err := f.svc.Book(context.Background(), f.patient, in); !errors.Is(err, ErrDoctorNotFound) {
		t.Errorf("expected ErrDoctorNotFound, got %v", err)
	}
}

func TestService_Book_NotifierFailureRollsBack(t *testing.T) {
	f := newFixture()
	f.notifier.err = errors.New("insert notification: boom")
	if _, err := f.svc.Book(context.Background(), f.patient, f.input("2025-06-10", "10:30")); err == nil {
		t.Fatal("expected error")
	}
	if len(f.repo.appts) != 0 {
		t.Errorf("expected booking to be rolled back, got %d", len(f.repo.appts))
	}
}

func TestService_Book_Validation(t *testing.T) {
	f := newFixture()
	long := strings.Repeat("s", maxSymptomsLen+1)
	tests := []struct {
		name   string
		mutate func(in *BookInput)
	}{
		{"bad doctor id", func(in *BookInput) { in.DoctorID = "42" }},
		{"bad date", func(in *BookInput) { in.AppointmentDate = "10/06/2025" }},
		{"past date", func(in *BookInput) { in.AppointmentDate = "2025-05-31" }},
		{"bad time", func(in *BookInput) { in.AppointmentTime = "25:00" }},
		{"bad type", func(in *BookInput) { in.AppointmentType = "telepathy" }},
		{"long symptoms", func(in *BookInput) { in.Symptoms = &long }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.input("2025-06-10", "10:30")
			tt.mutate(&in)
			_, err := f.svc.Book(context.Background(), f.patient, in)
			var apiErr *apierror.Error
			if !errors.As(err, &apiErr) || apiErr.Code != apierror.CodeValidation {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}
}

func TestService_Book_TodayAllowed(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Book(context.Background(), f.patient, f.input("2025-06-01", "17:00")); err != nil {
		t.Fatalf("booking today failed: %v", err)
	}
}

func TestService_Book_TodayIsUTCDate(t *testing.T) {
	f := newFixture()
	// 19:30 UTC on the 17th is already the 18th in +05:30.
	ist := time.FixedZone("IST", 5*3600+1800)
	f.svc.now = func() time.Time { return time.Date(2026, 10, 17, 19, 30, 0, 0, time.UTC).In(ist) }

	if _, err := f.svc.Book(context.Background(), f.patient, f.input("2026-10-17", "21:00")); err != nil {
		t.Fatalf("booking the current UTC date failed: %v", err)
	}
	if _, err := f.svc.Book(context.Background(), f.patient, f.input("2026-10-16", "21:00")); err == nil {
		t.Error("expected the previous UTC date to be rejected")
	}
}

type recordingInvalidator struct{ ids []uuid.UUID }

func (r *recordingInvalidator) Invalidate(_ context.Context, ids ...uuid.UUID) {
	r.ids = append(r.ids, ids...)
}

func TestService_InvalidatesStatsOfBothParties(t *testing.T) {
	f := newFixture()
	inv := &recordingInvalidator{}
	f.svc.SetStatsInvalidator(inv)

	a, err := f.svc.Book(context.Background(), f.patient, f.input("2025-06-10", "10:30"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inv.ids) != 2 || inv.ids[0] != f.patient || inv.ids[1] != f.doctor.UserID {
		t.Fatalf("expected patient and doctor invalidated after booking, got %v", inv.ids)
	}

	inv.ids = nil
	other := f.repo.addUser(auth.UserTypePatient)
	if _, err := f.svc.Book(context.Background(), other, f.input("2025-06-10", "10:30")); err == nil {
		t.Fatal("expected slot conflict")
	}
	if len(inv.ids) != 0 {
		t.Fatalf("rejected booking must not invalidate stats, got %v", inv.ids)
	}

	if _, err := f.svc.UpdateStatus(context.Background(), f.patientPrincipal(), a.ID, StatusCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if len(inv.ids) != 2 || inv.ids[0] != f.patient || inv.ids[1] != f.doctor.UserID {
		t.Errorf("expected patient and doctor invalidated after cancel, got %v", inv.ids)
	}
}

// -- Listing --

func TestService_List_PatientOwn(t *testing.T) {
	f := newFixture()
	_, _ = f.svc.Book(context.Background(), f.patient, f.input("2025-06-10", "10:30"))
	_, _ = f.svc.Book(context.Background(), f.patient, f.input("2025-06-12", "10:30"))

	items, total, err := f.svc.List(context.Background(), f.patientPrincipal(), f.patient, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || items[0].AppointmentDate != "2025-06-12" {
		t.Errorf("expected newest first, got %+v", items)
	}
}

func TestService_List_OtherUserForbidden(t *testing.T) {
	f := newFixture()
	other := f.repo.addUser(auth.UserTypePatient)
	if _, _, err := f.svc.List(context.Background(), f.patientPrincipal(), other, 20, 0); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestService_List_DoctorView(t *testing.T) {
	f := newFixture()
	_, _ = f.svc.Book(context.Background(), f.patient, f.input("2025-06-12", "10:30"))
	_, _ = f.svc.Book(context.Background(), f.patient, f.input("2025-06-10", "10:30"))

	items, total, err := f.svc.List(context.Background(), f.doctorPrincipal(), f.doctor.UserID, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || items[0].AppointmentDate != "2025-06-10" {
		t.Errorf("expected oldest first, got %+v", items)
	}
}

func TestService_List_AdminSeesTargetRoleView(t *testing.T) {
	f := newFixture()
	_, _ = f.svc.Book(context.Background(), f.patient, f.input("2025-06-10", "10:30"))
	admin := &auth.Principal{UserID: f.repo.addUser(auth.UserTypeAdmin), UserType: auth.UserTypeAdmin}

	_, total, err := f.svc.List(context.Background(), admin, f.doctor.UserID, 20, 0)
	if err != nil || total != 1 {
		t.Errorf("expected admin to see the doctor's bookings, got %d (%v)", total, err)
	}
	if _, _, err := f.svc.List(context.Background(), admin, uuid.New(), 20, 0); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound for unknown user, got %v", err)
	}
}

// -- Status transitions --

func TestService_UpdateStatus(t *testing.T) {
	tests := []struct {
		name    string
		caller  func(f *fixture) *auth.Principal
		to      string
		wantErr error
	}{
		{"patient cancels", (*fixture).patientPrincipal, StatusCancelled, nil},
		{"doctor completes", (*fixture).doctorPrincipal, StatusCompleted, nil},
		{"doctor cancels", (*fixture).doctorPrincipal, StatusCancelled, nil},
		{"patient cannot complete", (*fixture).patientPrincipal, StatusCompleted, ErrForbidden},
		{"stranger", func(f *fixture) *auth.Principal {
			return &auth.Principal{UserID: uuid.New(), UserType: auth.UserTypePatient}
		}, StatusCancelled, ErrForbidden},
		{"other doctor", func(f *fixture) *auth.Principal {
			return &auth.Principal{UserID: f.repo.addDoctor().UserID, UserType: auth.UserTypeDoctor}
		}, StatusCompleted, ErrForbidden},
		{"admin completes", func(f *fixture) *auth.Principal {
			return &auth.Principal{UserID: uuid.New(), UserType: auth.UserTypeAdmin}
		}, StatusCompleted, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			a, _ := f.svc.Book(context.Background(), f.patient, f.input("2025-06-10", "10:30"))

			got, err := f.svc.UpdateStatus(context.Background(), tt.caller(f), a.ID, tt.to)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Status != tt.to || f.repo.appts[a.ID].Status != tt.to {
				t.Errorf("expected status %s", tt.to)
			}
		})
	}
}

func TestService_UpdateStatus_InvalidTransitions(t *testing.T) {
	f := newFixture()
	a, _ := f.svc.Book(context.Background(), f.patient, f.input("2025-06-10", "10:30"))

	var te *TransitionError
	if _, err := f.svc.UpdateStatus(context.Background(), f.doctorPrincipal(), a.ID, StatusScheduled); !errors.As(err, &te) {
		t.Errorf("expected TransitionError for scheduled->scheduled, got %v", err)
	}

	_, _ = f.svc.UpdateStatus(context.Background(), f.doctorPrincipal(), a.ID, StatusCompleted)
	if _, err := f.svc.UpdateStatus(context.Background(), f.patientPrincipal(), a.ID, StatusCancelled); !errors.As(err, &te) {
		t.Fatalf("expected TransitionError for completed->cancelled, got %v", err)
	}
	if te.From != StatusCompleted || te.To != StatusCancelled {
		t.Errorf("unexpected transition %+v", te)
	}
}

func TestService_UpdateStatus_UnknownStatus(t *testing.T) {
	f := newFixture()
	a, _ := f.svc.Book(context.Background(), f.patient, f.input("2025-06-10", "10:30"))

	var apiErr *apierror.Error
	if _, err := f.svc.UpdateStatus(context.Background(), f.patientPrincipal(), a.ID, "postponed"); !errors.As(err, &apiErr) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestService_UpdateStatus_NotFound(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.UpdateStatus(context.Background(), f.patientPrincipal(), uuid.New(), StatusCancelled); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
