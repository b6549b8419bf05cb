package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/appointease/appointease/internal/domain/notification"
	"github.com/appointease/appointease/internal/platform/apierror"
	"github.com/appointease/appointease/internal/platform/auth"
	"github.com/appointease/appointease/internal/platform/db"
)

const (
	dateLayout     = "2006-01-02"
	clockLayout    = "15:04"
	maxSymptomsLen = 1000
)

var ErrForbidden = errors.New("not allowed to access this appointment")

// TransitionError reports a status change the lifecycle does not allow.
type TransitionError struct {
	From, To string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

// Notifier records an in-app notification. It runs inside the booking
// transaction.
type Notifier interface {
	Notify(ctx context.Context, n *notification.Notification) error
}

// StatsInvalidator drops cached dashboard stats of users whose counts a
// committed write changed.
type StatsInvalidator interface {
	Invalidate(ctx context.Context, userIDs ...uuid.UUID)
}

type Service struct {
	repo     Repository
	tx       db.Transactor
	notifier Notifier
	stats    StatsInvalidator
	now      func() time.Time
}

func NewService(repo Repository, tx db.Transactor, notifier Notifier) *Service {
	return &Service{repo: repo, tx: tx, notifier: notifier, now: time.Now}
}

// SetStatsInvalidator registers the dashboard cache to clear after bookings
// and status changes.
func (s *Service) SetStatsInvalidator(inv StatsInvalidator) { s.stats = inv }

// Book reserves a slot for the caller. The availability check, the insert
// and the notification share one transaction; the partial unique index on
// scheduled slots catches bookings that race past the check.
func (s *Service) Book(ctx context.Context, patientID uuid.UUID, in BookInput) (*Appointment, error) {
	doctorID, err := s.validateBooking(&in)
	if err != nil {
		return nil, err
	}

	a := &Appointment{
		PatientID:       patientID,
		DoctorID:        doctorID,
		AppointmentDate: in.AppointmentDate,
		AppointmentTime: in.AppointmentTime,
		AppointmentType: in.AppointmentType,
		Symptoms:        in.Symptoms,
		Status:          StatusScheduled,
	}

	var doc *DoctorRef
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if doc, err = s.repo.FindDoctor(ctx, doctorID); err != nil {
			return err
		}
		taken, err := s.repo.SlotTaken(ctx, doctorID, a.AppointmentDate, a.AppointmentTime)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotTaken
		}
		if err := s.repo.Create(ctx, a); err != nil {
			return err
		}
		ref := a.ID
		return s.notifier.Notify(ctx, &notification.Notification{
			UserID:      patientID,
			Title:       "Appointment booked",
			Message:     fmt.Sprintf("Your appointment on %s at %s is confirmed.", a.AppointmentDate, a.AppointmentTime),
			Type:        notification.TypeAppointment,
			ReferenceID: &ref,
		})
	})
	if err != nil {
		return nil, err
	}
	if s.stats != nil {
		s.stats.Invalidate(ctx, patientID, doc.UserID)
	}
	return a, nil
}

func (s *Service) validateBooking(in *BookInput) (uuid.UUID, error) {
	doctorID, err := uuid.Parse(strings.TrimSpace(in.DoctorID))
	if err != nil {
		return uuid.Nil, apierror.Validation("doctorId must be a valid id")
	}

	in.AppointmentDate = strings.TrimSpace(in.AppointmentDate)
	day, err := time.Parse(dateLayout, in.AppointmentDate)
	if err != nil {
		return uuid.Nil, apierror.Validation("appointmentDate must be YYYY-MM-DD")
	}
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if day.Before(today) {
		return uuid.Nil, apierror.Validation("appointmentDate must not be in the past")
	}

	in.AppointmentTime = strings.TrimSpace(in.AppointmentTime)
	clock, err := time.Parse(clockLayout, in.AppointmentTime)
	if err != nil {
		return uuid.Nil, apierror.Validation("appointmentTime must be HH:MM")
	}
	in.AppointmentTime = clock.Format(clockLayout)

	if !validTypes[in.AppointmentType] {
		return uuid.Nil, apierror.Validation("appointmentType must be doctor, home_visit, diagnostic or video")
	}
	if in.Symptoms != nil {
		trimmed := strings.TrimSpace(*in.Symptoms)
		if len(trimmed) > maxSymptomsLen {
			return uuid.Nil, apierror.Validationf("symptoms must be at most %d characters", maxSymptomsLen)
		}
		if trimmed == "" {
			in.Symptoms = nil
		} else {
			in.Symptoms = &trimmed
		}
	}
	return doctorID, nil
}

// List returns the appointments of userID in the view matching that user's
// role: patients get their bookings newest first, doctors get bookings
// against them oldest first.
func (s *Service) List(ctx context.Context, caller *auth.Principal, userID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	if !caller.CanAccessUser(userID) {
		return nil, 0, ErrForbidden
	}

	role := caller.UserType
	if userID != caller.UserID {
		t, err := s.repo.UserType(ctx, userID)
		if err != nil {
			return nil, 0, err
		}
		role = t
	}

	if role == auth.UserTypeDoctor {
		doc, err := s.repo.FindDoctorByUser(ctx, userID)
		if errors.Is(err, ErrDoctorNotFound) {
			return []*Appointment{}, 0, nil
		}
		if err != nil {
			return nil, 0, err
		}
		return s.repo.ListForDoctor(ctx, doc.ID, limit, offset)
	}
	return s.repo.ListForPatient(ctx, userID, limit, offset)
}

// UpdateStatus moves a scheduled appointment to completed or cancelled.
// Only the owning doctor or an admin may complete; the patient may also
// cancel.
func (s *Service) UpdateStatus(ctx context.Context, caller *auth.Principal, id uuid.UUID, to string) (*Appointment, error) {
	if !validStatuses[to] {
		return nil, apierror.Validation("status must be scheduled, completed or cancelled")
	}

	var a *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		a, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		isPatient := a.PatientID == caller.UserID
		isDoctor := false
		if caller.UserType == auth.UserTypeDoctor {
			doc, err := s.repo.FindDoctorByUser(ctx, caller.UserID)
			if err != nil && !errors.Is(err, ErrDoctorNotFound) {
				return err
			}
			isDoctor = doc != nil && doc.ID == a.DoctorID
		}
		if !caller.IsAdmin() && !isPatient && !isDoctor {
			return ErrForbidden
		}

		if a.Status != StatusScheduled || to == StatusScheduled {
			return &TransitionError{From: a.Status, To: to}
		}
		if to == StatusCompleted && !isDoctor && !caller.IsAdmin() {
			return ErrForbidden
		}

		if err := s.repo.UpdateStatus(ctx, a.ID, StatusScheduled, to); err != nil {
			if errors.Is(err, ErrStatusChanged) {
				return &TransitionError{From: StatusScheduled, To: to}
			}
			return err
		}
		a.Status = to

		ref := a.ID
		return s.notifier.Notify(ctx, &notification.Notification{
			UserID:      a.PatientID,
			Title:       "Appointment " + to,
			Message:     fmt.Sprintf("Your appointment on %s at %s was %s.", a.AppointmentDate, a.AppointmentTime, to),
			Type:        notification.TypeAppointment,
			ReferenceID: &ref,
		})
	})
	if err != nil {
		return nil, err
	}
	if s.stats != nil {
		ids := []uuid.UUID{a.PatientID}
		if doc, err := s.repo.FindDoctor(ctx, a.DoctorID); err == nil {
			ids = append(ids, doc.UserID)
		}
		s.stats.Invalidate(ctx, ids...)
	}
	return a, nil
}
