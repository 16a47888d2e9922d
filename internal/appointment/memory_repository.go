package appointment

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling-assistant/internal/clock"
)

type slotKey struct {
	doctorID uuid.UUID
	date     string
	time     clock.TimeOfDay
}

// MemoryRepository keeps the ledger in process. The confirmed index plays
// the role of the partial unique index in Postgres.
type MemoryRepository struct {
	mu        sync.Mutex
	now       func() time.Time
	rows      map[uuid.UUID]*Appointment
	confirmed map[slotKey]uuid.UUID
	events    []EventLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		now:       time.Now,
		rows:      make(map[uuid.UUID]*Appointment),
		confirmed: make(map[slotKey]uuid.UUID),
	}
}

func keyOf(a *Appointment) slotKey {
	return slotKey{doctorID: a.DoctorID, date: a.Date, time: a.Time}
}

func (r *MemoryRepository) InsertConfirmed(_ context.Context, in NewAppointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := slotKey{doctorID: in.DoctorID, date: in.Date, time: in.Time}
	if _, taken := r.confirmed[key]; taken {
		return nil, ErrSlotTaken
	}

	now := r.now().UTC()
	a := &Appointment{
		ID:           uuid.New(),
		DoctorID:     in.DoctorID,
		PatientName:  strings.TrimSpace(in.PatientName),
		PatientPhone: strings.TrimSpace(in.PatientPhone),
		Date:         in.Date,
		Time:         in.Time,
		Status:       StatusConfirmed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.rows[a.ID] = a
	r.confirmed[key] = a.ID

	out := *a
	return &out, nil
}

func (r *MemoryRepository) FindConfirmed(_ context.Context, f Filter) ([]Appointment, error) {
	return r.collect(func(a *Appointment) bool {
		return a.DoctorID == f.DoctorID &&
			a.Date == f.Date &&
			samePatient(a.PatientName, f.PatientName) &&
			(f.Time == nil || a.Time == *f.Time)
	}), nil
}

func (r *MemoryRepository) ConfirmedTimes(_ context.Context, doctorID uuid.UUID, date string) ([]clock.TimeOfDay, error) {
	matches := r.collect(func(a *Appointment) bool {
		return a.DoctorID == doctorID && a.Date == date
	})
	times := make([]clock.TimeOfDay, len(matches))
	for i, a := range matches {
		times[i] = a.Time
	}
	return times, nil
}

func (r *MemoryRepository) ListConfirmedByPatient(_ context.Context, patientName, phone string) ([]Appointment, error) {
	phone = strings.TrimSpace(phone)
	return r.collect(func(a *Appointment) bool {
		return samePatient(a.PatientName, patientName) && (phone == "" || a.PatientPhone == phone)
	}), nil
}

// collect returns confirmed rows accepted by keep, ordered by date and time.
func (r *MemoryRepository) collect(keep func(*Appointment) bool) []Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Appointment
	for _, a := range r.rows {
		if a.Status == StatusConfirmed && keep(a) {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].Time < result[j].Time
	})
	return result
}

func (r *MemoryRepository) Cancel(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.rows[id]
	if !ok || a.Status != StatusConfirmed {
		return nil, ErrAppointmentNotFound
	}
	delete(r.confirmed, keyOf(a))
	a.Status = StatusCancelled
	a.UpdatedAt = r.now().UTC()

	out := *a
	return &out, nil
}

func (r *MemoryRepository) Reschedule(_ context.Context, id uuid.UUID, oldDate, newDate string, newTime clock.TimeOfDay) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.rows[id]
	if !ok || a.Status != StatusConfirmed || a.Date != oldDate {
		return nil, ErrAppointmentNotFound
	}

	target := slotKey{doctorID: a.DoctorID, date: newDate, time: newTime}
	if holder, taken := r.confirmed[target]; taken && holder != id {
		return nil, ErrSlotTaken
	}

	delete(r.confirmed, keyOf(a))
	a.Date, a.Time = newDate, newTime
	a.UpdatedAt = r.now().UTC()
	r.confirmed[target] = id

	out := *a
	return &out, nil
}

func (r *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev.ID = int64(len(r.events) + 1)
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = r.now().UTC()
	}
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the audit log.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]EventLog(nil), r.events...)
}
