package doctor

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("doctor not found")

type Repository interface {
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Doctor, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
}
