package appointment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling-assistant/internal/apperr"
	"github.com/hackgods/clinic-scheduling-assistant/internal/clock"
)

var (
	ErrAppointmentNotFound = fmt.Errorf("appointment %w", apperr.ErrNotFound)
	ErrSlotTaken           = fmt.Errorf("slot already has a confirmed appointment: %w", apperr.ErrConflict)
)

// Repository is the appointment ledger. Every mutation is a single atomic
// statement; at most one confirmed row may exist per doctor, date and time.
type Repository interface {
	// InsertConfirmed records a confirmed booking or fails with ErrSlotTaken.
	InsertConfirmed(ctx context.Context, a NewAppointment) (*Appointment, error)

	FindConfirmed(ctx context.Context, f Filter) ([]Appointment, error)
	ConfirmedTimes(ctx context.Context, doctorID uuid.UUID, date string) ([]clock.TimeOfDay, error)
	ListConfirmedByPatient(ctx context.Context, patientName, phone string) ([]Appointment, error)

	// Cancel moves a confirmed appointment to cancelled. ErrAppointmentNotFound
	// when it is no longer confirmed.
	Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Reschedule moves a confirmed appointment that is still on oldDate.
	Reschedule(ctx context.Context, id uuid.UUID, oldDate, newDate string, newTime clock.TimeOfDay) (*Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}

// samePatient compares patient names case-insensitively after trimming.
func samePatient(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
