package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hackgods/clinic-scheduling-assistant/internal/clock"
)

const uniqueViolation = "23505"

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgRepository struct {
	pool querier
}

// NewPgRepository accepts a *pgxpool.Pool or anything with the same methods.
func NewPgRepository(pool querier) *PgRepository {
	if pool == nil {
		panic("appointment: pgx pool required")
	}
	return &PgRepository{pool: pool}
}

const appointmentColumns = `
	id, doctor_id, patient_name, patient_phone,
	to_char(appt_date, 'YYYY-MM-DD'), to_char(appt_time, 'HH24:MI'),
	status, created_at, updated_at
`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a       Appointment
		apptTime string
	)

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientName,
		&a.PatientPhone,
		&a.Date,
		&apptTime,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}

	if a.Time, err = clock.ParseTimeOfDay(apptTime); err != nil {
		return nil, fmt.Errorf("appointment %s: %w", a.ID, err)
	}
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Interface methods

func (r *PgRepository) InsertConfirmed(ctx context.Context, in NewAppointment) (*Appointment, error) {
	id := uuid.New()

	// appointments_one_confirmed_per_slot rejects a second confirmed row for
	// the same doctor, date and time.
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_name, patient_phone, appt_date, appt_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::date, $6::time, 'confirmed', now(), now())
		RETURNING `+appointmentColumns,
		id, in.DoctorID, strings.TrimSpace(in.PatientName), strings.TrimSpace(in.PatientPhone), in.Date, in.Time.String())

	return scanAppointment(row)
}

func (r *PgRepository) FindConfirmed(ctx context.Context, f Filter) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE doctor_id = $1
		  AND lower(btrim(patient_name)) = lower(btrim($2))
		  AND appt_date = $3::date
		  AND status = 'confirmed'`
	args := []any{f.DoctorID, f.PatientName, f.Date}
	if f.Time != nil {
		query += ` AND appt_time = $4::time`
		args = append(args, f.Time.String())
	}
	query += ` ORDER BY appt_time`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find confirmed appointments: %w", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ConfirmedTimes(ctx context.Context, doctorID uuid.UUID, date string) ([]clock.TimeOfDay, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(appt_time, 'HH24:MI')
		FROM appointments
		WHERE doctor_id = $1
		  AND appt_date = $2::date
		  AND status = 'confirmed'
		ORDER BY appt_time
	`, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("confirmed times: %w", err)
	}
	defer rows.Close()

	var result []clock.TimeOfDay
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		t, err := clock.ParseTimeOfDay(raw)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) ListConfirmedByPatient(ctx context.Context, patientName, phone string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE lower(btrim(patient_name)) = lower(btrim($1))
		  AND ($2 = '' OR patient_phone = $2)
		  AND status = 'confirmed'
		ORDER BY appt_date, appt_time
	`, patientName, strings.TrimSpace(phone))
	if err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    updated_at = now()
		WHERE id = $1
		  AND status = 'confirmed'
		RETURNING `+appointmentColumns, id)

	return scanAppointment(row)
}

func (r *PgRepository) Reschedule(ctx context.Context, id uuid.UUID, oldDate, newDate string, newTime clock.TimeOfDay) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET appt_date = $3::date,
		    appt_time = $4::time,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'confirmed'
		  AND appt_date = $2::date
		RETURNING `+appointmentColumns, id, oldDate, newDate, newTime.String())

	return scanAppointment(row)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
