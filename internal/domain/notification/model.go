package notification

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeAppointment = "appointment"
	TypeOrder       = "order"
	TypeReport      = "report"
	TypeGeneral     = "general"
)

var validTypes = map[string]bool{
	TypeAppointment: true, TypeOrder: true, TypeReport: true, TypeGeneral: true,
}

// Notification is an in-app message for one user.
type Notification struct {
	ID          uuid.UUID  `json:"notification_id"`
	UserID      uuid.UUID  `json:"user_id"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Type        string     `json:"type"`
	ReferenceID *uuid.UUID `json:"reference_id,omitempty"`
	Read        bool       `json:"read"`
	CreatedAt   time.Time  `json:"created_at"`
}
