package diagnostics

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrPatientNotFound = errors.New("patient not found")

type Repository interface {
	ListTests(ctx context.Context, f ListFilter, limit, offset int) ([]*Test, int, error)
	// ListReports returns a patient's reports. A non-nil author restricts
	// the result to reports that user wrote.
	ListReports(ctx context.Context, patientID uuid.UUID, author *uuid.UUID, limit, offset int) ([]*Report, int, error)
	HasAuthored(ctx context.Context, authorID, patientID uuid.UUID) (bool, error)
	CreateReport(ctx context.Context, r *Report) error
	// UserType returns ErrPatientNotFound when no such user exists.
	UserType(ctx context.Context, userID uuid.UUID) (string, error)
}
