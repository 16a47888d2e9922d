package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling-assistant/internal/clock"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

const (
	EventAppointmentBooked      = "APPOINTMENT_BOOKED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
)

type Appointment struct {
	ID           uuid.UUID       `json:"id"`
	DoctorID     uuid.UUID       `json:"doctor_id"`
	PatientName  string          `json:"patient_name"`
	PatientPhone string          `json:"patient_phone"`
	Date         string          `json:"date"`
	Time         clock.TimeOfDay `json:"time"`
	Status       Status          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewAppointment is what the ledger needs to record a confirmed booking.
type NewAppointment struct {
	DoctorID     uuid.UUID
	PatientName  string
	PatientPhone string
	Date         string
	Time         clock.TimeOfDay
}

// Filter narrows FindConfirmed. A nil Time matches any time on Date.
type Filter struct {
	DoctorID    uuid.UUID
	PatientName string
	Date        string
	Time        *clock.TimeOfDay
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
