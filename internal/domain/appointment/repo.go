package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("appointment not found")
	ErrDoctorNotFound = errors.New("doctor not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrSlotTaken      = errors.New("slot already booked")
	// ErrStatusChanged means the row left the expected status between read
	// and update.
	ErrStatusChanged = errors.New("appointment status changed concurrently")
)

type Repository interface {
	// Create inserts a scheduled appointment. A concurrent booking of the
	// same slot surfaces as ErrSlotTaken.
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	SlotTaken(ctx context.Context, doctorID uuid.UUID, date, clock string) (bool, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListForDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error

	FindDoctor(ctx context.Context, id uuid.UUID) (*DoctorRef, error)
	FindDoctorByUser(ctx context.Context, userID uuid.UUID) (*DoctorRef, error)
	UserType(ctx context.Context, userID uuid.UUID) (string, error)
}
