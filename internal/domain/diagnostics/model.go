package diagnostics

import (
	"time"

	"github.com/google/uuid"
)

// AllTests is the catalogue filter value meaning "no category filter".
const AllTests = "All Tests"

const (
	ReportStatusPending = "pending"
	ReportStatusReady   = "ready"
)

// Test is an entry in the diagnostic test catalogue.
type Test struct {
	ID          uuid.UUID `json:"test_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	ReportTime  *string   `json:"report_time,omitempty"`
	Preparation *string   `json:"preparation,omitempty"`
	Popular     bool      `json:"popular"`
	CreatedAt   time.Time `json:"created_at"`
}

type ListFilter struct {
	Search   string
	Category string
}

// Report is a test result filed for a patient. DoctorID is the authoring
// user; it is nil for reports imported without an author.
type Report struct {
	ID            uuid.UUID  `json:"report_id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	DoctorID      *uuid.UUID `json:"doctor_id,omitempty"`
	TestName      string     `json:"test_name"`
	TestDate      string     `json:"test_date"`
	ResultSummary *string    `json:"result_summary,omitempty"`
	Status        string     `json:"status"`
	FileURL       *string    `json:"file_url,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`

	DoctorFirstName *string `json:"doctor_first_name,omitempty"`
	DoctorLastName  *string `json:"doctor_last_name,omitempty"`
}

type ReportInput struct {
	PatientID     string  `json:"patientId"`
	TestName      string  `json:"testName"`
	TestDate      string  `json:"testDate"`
	ResultSummary *string `json:"resultSummary"`
	Status        *string `json:"status"`
	FileURL       *string `json:"fileUrl"`
}
