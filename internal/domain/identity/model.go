package identity

import (
	"time"

	"github.com/google/uuid"
)

// User is an account. UserType never changes after registration.
type User struct {
	ID           uuid.UUID `json:"user_id"`
	UserType     string    `json:"user_type"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	DateOfBirth  *string   `json:"date_of_birth,omitempty"`
	Gender       *string   `json:"gender,omitempty"`
	Address      *string   `json:"address,omitempty"`
	City         *string   `json:"city,omitempty"`
	ZipCode      *string   `json:"zip_code,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DoctorProfile is the doctor row created together with a doctor account.
type DoctorProfile struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Specialty string
	Location  string
	Fee       float64
}

type RegisterInput struct {
	UserType    string   `json:"userType"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	DateOfBirth *string  `json:"dateOfBirth"`
	Gender      *string  `json:"gender"`
	Address     *string  `json:"address"`
	City        *string  `json:"city"`
	ZipCode     *string  `json:"zipCode"`
	Password    string   `json:"password"`
	Specialty   string   `json:"specialty"`
	Location    string   `json:"location"`
	Fee         *float64 `json:"fee"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	UserType string `json:"userType"`
}

// ProfileUpdate carries the mutable profile fields. Nil leaves a field as is.
type ProfileUpdate struct {
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	Phone       *string `json:"phone"`
	DateOfBirth *string `json:"dateOfBirth"`
	Gender      *string `json:"gender"`
	Address     *string `json:"address"`
	City        *string `json:"city"`
	ZipCode     *string `json:"zipCode"`
}

// Session is returned by register and login.
type Session struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
