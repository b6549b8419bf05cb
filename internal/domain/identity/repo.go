package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrEmailOrPhoneTaken = errors.New("user already exists with this email or phone")
	ErrPhoneTaken        = errors.New("phone number already in use")
)

type UserRepository interface {
	// Create inserts u, assigning its ID. A duplicate email or phone yields
	// ErrEmailOrPhoneTaken.
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// FindForLogin matches on email and user type, or on phone when email
	// is empty.
	FindForLogin(ctx context.Context, email, phone, userType string) (*User, error)
	ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error)
	// Update writes the mutable profile columns. A phone collision yields
	// ErrPhoneTaken.
	Update(ctx context.Context, u *User) error
}

type DoctorRepository interface {
	Create(ctx context.Context, d *DoctorProfile) error
}
