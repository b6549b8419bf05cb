package appointment

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

const (
	TypeDoctor     = "doctor"
	TypeHomeVisit  = "home_visit"
	TypeDiagnostic = "diagnostic"
	TypeVideo      = "video"
)

var validTypes = map[string]bool{
	TypeDoctor: true, TypeHomeVisit: true, TypeDiagnostic: true, TypeVideo: true,
}

var validStatuses = map[string]bool{
	StatusScheduled: true, StatusCompleted: true, StatusCancelled: true,
}

// Appointment is a booking of one slot. The joined fields are filled
// according to who is viewing: patients see the doctor, doctors see the
// patient.
type Appointment struct {
	ID              uuid.UUID `json:"appointment_id"`
	PatientID       uuid.UUID `json:"patient_id"`
	DoctorID        uuid.UUID `json:"doctor_id"`
	AppointmentDate string    `json:"appointment_date"`
	AppointmentTime string    `json:"appointment_time"`
	AppointmentType string    `json:"appointment_type"`
	Symptoms        *string   `json:"symptoms,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Specialty        *string  `json:"specialty,omitempty"`
	Fee              *float64 `json:"fee,omitempty"`
	DoctorFirstName  *string  `json:"doctor_first_name,omitempty"`
	DoctorLastName   *string  `json:"doctor_last_name,omitempty"`
	PatientFirstName *string  `json:"patient_first_name,omitempty"`
	PatientLastName  *string  `json:"patient_last_name,omitempty"`
	PatientPhone     *string  `json:"patient_phone,omitempty"`
}

// DoctorRef is the part of a doctor row booking needs.
type DoctorRef struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

type BookInput struct {
	DoctorID        string  `json:"doctorId"`
	AppointmentDate string  `json:"appointmentDate"`
	AppointmentTime string  `json:"appointmentTime"`
	AppointmentType string  `json:"appointmentType"`
	Symptoms        *string `json:"symptoms"`
}
