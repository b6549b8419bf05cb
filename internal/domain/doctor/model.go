package doctor

import (
	"time"

	"github.com/google/uuid"
)

// Doctor is a directory entry: the doctor row joined to its owning user.
type Doctor struct {
	ID              uuid.UUID `json:"doctor_id"`
	UserID          uuid.UUID `json:"user_id"`
	Specialty       string    `json:"specialty"`
	Location        string    `json:"location"`
	Fee             float64   `json:"fee"`
	Rating          float64   `json:"rating"`
	ExperienceYears int       `json:"experience_years"`
	ReviewCount     int       `json:"review_count"`
	Available       bool      `json:"available"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	CreatedAt       time.Time `json:"created_at"`
}

// ListFilter narrows the directory. Empty fields and the "All ..." sentinels
// mean no filter.
type ListFilter struct {
	Specialty string
	Location  string
	Search    string
}

const (
	AllSpecialties = "All Specialties"
	AllLocations   = "All Locations"
)
