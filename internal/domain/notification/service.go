package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Notify stores n for its user. Called inside the caller's transaction so the
// notification commits or rolls back with the event it describes.
func (s *Service) Notify(ctx context.Context, n *Notification) error {
	if n.UserID == uuid.Nil {
		return fmt.Errorf("notification user_id is required")
	}
	if n.Title == "" || n.Message == "" {
		return fmt.Errorf("notification title and message are required")
	}
	if n.Type == "" {
		n.Type = TypeGeneral
	}
	if !validTypes[n.Type] {
		return fmt.Errorf("invalid notification type: %s", n.Type)
	}
	return s.repo.Create(ctx, n)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, int, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, userID)
}
