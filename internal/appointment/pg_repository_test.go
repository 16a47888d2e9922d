package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling-assistant/internal/apperr"
	"github.com/hackgods/clinic-scheduling-assistant/internal/clock"
)

var returnedColumns = []string{
	"id", "doctor_id", "patient_name", "patient_phone", "appt_date", "appt_time",
	"status", "created_at", "updated_at",
}

func TestPgInsertConfirmed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	doctorID := uuid.New()
	apptID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), doctorID, "Asha", "9999999999", "2025-03-10", "10:00").
		WillReturnRows(pgxmock.NewRows(returnedColumns).
			AddRow(apptID, doctorID, "Asha", "9999999999", "2025-03-10", "10:00", StatusConfirmed, now, now))

	repo := NewPgRepository(mock)
	a, err := repo.InsertConfirmed(context.Background(), NewAppointment{
		DoctorID:     doctorID,
		PatientName:  " Asha ",
		PatientPhone: "9999999999",
		Date:         "2025-03-10",
		Time:         clock.At(10, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, apptID, a.ID)
	assert.Equal(t, clock.At(10, 0), a.Time)
	assert.Equal(t, StatusConfirmed, a.Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgInsertConfirmedUniqueViolation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "appointments_one_confirmed_per_slot"})

	_, err = NewPgRepository(mock).InsertConfirmed(context.Background(), NewAppointment{
		DoctorID: uuid.New(), PatientName: "Asha", PatientPhone: "9999999999",
		Date: "2025-03-10", Time: clock.At(10, 0),
	})
	require.ErrorIs(t, err, ErrSlotTaken)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCancelAlreadyCancelled(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("UPDATE appointments").WithArgs(id).WillReturnError(pgx.ErrNoRows)

	_, err = NewPgRepository(mock).Cancel(context.Background(), id)
	require.ErrorIs(t, err, ErrAppointmentNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPgReschedule(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id, doctorID := uuid.New(), uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(`UPDATE appointments\s+SET appt_date = \$3::date`).
		WithArgs(id, "2025-03-10", "2025-03-11", "11:30").
		WillReturnRows(pgxmock.NewRows(returnedColumns).
			AddRow(id, doctorID, "Asha", "9999999999", "2025-03-11", "11:30", StatusConfirmed, now, now))
	mock.ExpectQuery(`UPDATE appointments\s+SET appt_date = \$3::date`).
		WithArgs(id, "2025-03-11", "2025-03-12", "09:00").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	repo := NewPgRepository(mock)
	a, err := repo.Reschedule(context.Background(), id, "2025-03-10", "2025-03-11", clock.At(11, 30))
	require.NoError(t, err)
	assert.Equal(t, id, a.ID)
	assert.Equal(t, "2025-03-11", a.Date)

	_, err = repo.Reschedule(context.Background(), id, "2025-03-11", "2025-03-12", clock.At(9, 0))
	require.ErrorIs(t, err, ErrSlotTaken)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgFindConfirmedWithTime(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	doctorID := uuid.New()
	at := clock.At(10, 0)

	mock.ExpectQuery(`AND appt_time = \$4::time ORDER BY appt_time`).
		WithArgs(doctorID, "asha", "2025-03-10", "10:00").
		WillReturnRows(pgxmock.NewRows(returnedColumns))

	got, err := NewPgRepository(mock).FindConfirmed(context.Background(), Filter{
		DoctorID: doctorID, PatientName: "asha", Date: "2025-03-10", Time: &at,
	})
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgConfirmedTimes(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	doctorID := uuid.New()
	mock.ExpectQuery("SELECT to_char\\(appt_time").
		WithArgs(doctorID, "2025-03-10").
		WillReturnRows(pgxmock.NewRows([]string{"appt_time"}).AddRow("09:30").AddRow("10:00"))

	got, err := NewPgRepository(mock).ConfirmedTimes(context.Background(), doctorID, "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, []clock.TimeOfDay{clock.At(9, 30), clock.At(10, 0)}, got)
}

func TestPgInsertEvent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("INSERT INTO event_logs").
		WithArgs(EventAppointmentBooked, &id, []byte(`{}`), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = NewPgRepository(mock).InsertEvent(context.Background(), EventLog{
		EventType:     EventAppointmentBooked,
		AppointmentID: &id,
		Payload:       []byte(`{}`),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
