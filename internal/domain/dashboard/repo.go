package dashboard

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrUserNotFound = errors.New("user not found")

// Repository computes aggregates relative to today, a YYYY-MM-DD date
// supplied by the caller.
type Repository interface {
	UserType(ctx context.Context, userID uuid.UUID) (string, error)
	PatientStats(ctx context.Context, userID uuid.UUID, today string) (*PatientStats, error)
	DoctorStats(ctx context.Context, userID uuid.UUID, today string) (*DoctorStats, error)
	AdminStats(ctx context.Context, today string) (*AdminStats, error)
}
