package doctor

import (
	"context"

	"github.com/google/uuid"

	"github.com/appointease/appointease/internal/platform/apierror"
	"github.com/appointease/appointease/internal/platform/search"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns one page of the directory, best rated first. An unknown
// specialty yields an empty page, not an error.
func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Doctor, int, error) {
	if err := search.ValidateTerm(f.Search); err != nil {
		return nil, 0, apierror.Validation(err.Error())
	}
	return s.repo.List(ctx, f, limit, offset)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.repo.GetByID(ctx, id)
}
