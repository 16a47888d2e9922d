package scheduling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling-assistant/internal/apperr"
	"github.com/hackgods/clinic-scheduling-assistant/internal/appointment"
	"github.com/hackgods/clinic-scheduling-assistant/internal/clock"
	"github.com/hackgods/clinic-scheduling-assistant/internal/doctor"
	"github.com/hackgods/clinic-scheduling-assistant/internal/logging"
	"github.com/hackgods/clinic-scheduling-assistant/internal/observability/metrics"
	redisclient "github.com/hackgods/clinic-scheduling-assistant/internal/redis"
)

const testDate = "2025-03-10"

func clinicDoctors() []doctor.Doctor {
	return []doctor.Doctor{
		{ID: uuid.New(), Name: "Dr. Rao", Specialty: "General Medicine", WorkStart: clock.At(9, 0), WorkEnd: clock.At(17, 0)},
		{ID: uuid.New(), Name: "Dr. Raman", Specialty: "Cardiology", WorkStart: clock.At(14, 0), WorkEnd: clock.At(20, 0)},
	}
}

type fixture struct {
	svc  *Service
	repo *appointment.MemoryRepository
}

func newFixture(t *testing.T, mode doctor.MatchMode, policy Policy, opts ...Option) fixture {
	t.Helper()
	repo := appointment.NewMemoryRepository()
	dir := doctor.NewDirectory(doctor.NewMemoryStore(clinicDoctors()...), mode)
	opts = append([]Option{
		WithLogger(logging.Discard()),
		WithMetrics(metrics.NewSchedulingMetrics(prometheus.NewRegistry())),
	}, opts...)
	return fixture{svc: NewService(dir, repo, policy, opts...), repo: repo}
}

func ashaBooking() BookRequest {
	return BookRequest{
		DoctorName:  "Dr. Rao",
		PatientName: "Asha",
		Phone:       "9999999999",
		Date:        testDate,
		Time:        "10:00",
	}
}

func TestEndToEndBookConflictCancelRebook(t *testing.T) {
	f := newFixture(t, doctor.MatchExact, DefaultPolicy())
	ctx := context.Background()

	first, err := f.svc.Book(ctx, ashaBooking())
	require.NoError(t, err)
	assert.Equal(t, "Dr. Rao", first.DoctorName)
	assert.Equal(t, appointment.StatusConfirmed, first.Status)
	assert.Equal(t, Morning, first.DayPart)

	_, err = f.svc.Book(ctx, ashaBooking())
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.ErrorIs(t, err, appointment.ErrSlotTaken)

	cancelled, err := f.svc.Cancel(ctx, CancelRequest{DoctorName: "Dr. Rao", PatientName: "Asha", Date: testDate})
	require.NoError(t, err)
	assert.Equal(t, first.ID, cancelled.ID)
	assert.Equal(t, appointment.StatusCancelled, cancelled.Status)

	again, err := f.svc.Book(ctx, ashaBooking())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, again.ID)

	events := f.repo.Events()
	require.Len(t, events, 3)
	assert.Equal(t, appointment.EventAppointmentBooked, events[0].EventType)
	assert.Equal(t, appointment.EventAppointmentCancelled, events[1].EventType)
	assert.JSONEq(t, `{"doctor_id":"`+first.DoctorID.String()+`","date":"2025-03-10","time":"10:00"}`, string(events[0].Payload))
}

func TestAvailabilityFullSetThenBookedSlotRemoved(t *testing.T) {
	f := newFixture(t, doctor.MatchExact, DefaultPolicy())
	ctx := context.Background()

	req := AvailabilityRequest{DoctorName: "Dr. Rao", Date: testDate}
	before, err := f.svc.Availability(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, ViewSlots, before.View)
	assert.Equal(t, []string{
		"09:00", "09:30", "10:00", "10:30", "11:00", "11:30", "12:00", "12:30",
		"13:00", "13:30", "14:00", "14:30", "15:00", "15:30", "16:00", "16:30",
	}, slotTimes(before.Slots))

	_, err = f.svc.Book(ctx, ashaBooking())
	require.NoError(t, err)

	after, err := f.svc.Availability(ctx, req)
	require.NoError(t, err)
	assert.Len(t, after.Slots, len(before.Slots)-1)
	assert.NotContains(t, slotTimes(after.Slots), "10:00")

	// availability never invents a slot
	all := slotTimes(f.svc.Policy().Generate(clinicDoctors()[0]))
	assert.Subset(t, all, slotTimes(after.Slots))
}

func TestAvailabilityHonoursBreaks(t *testing.T) {
	p := DefaultPolicy()
	p.Breaks = []clock.Range{{Start: clock.At(13, 0), End: clock.At(14, 0)}}
	f := newFixture(t, doctor.MatchExact, p)

	got, err := f.svc.Availability(context.Background(), AvailabilityRequest{DoctorName: "Dr. Rao", Date: testDate})
	require.NoError(t, err)
	assert.Len(t, got.Slots, 14)
	assert.NotContains(t, slotTimes(got.Slots), "13:00")
	assert.NotContains(t, slotTimes(got.Slots), "13:30")
}

func TestAvailabilityPeriodsAndFilter(t *testing.T) {
	f := newFixture(t, doctor.MatchExact, DefaultPolicy())
	ctx := context.Background()

	periods, err := f.svc.Availability(ctx, AvailabilityRequest{DoctorName: "Dr. Raman", Date: testDate, View: ViewPeriods})
	require.NoError(t, err)
	assert.Equal(t, []DayPart{Afternoon, Evening}, periods.Periods)
	assert.Empty(t, periods.Slots)

	evening, err := f.svc.Availability(ctx, AvailabilityRequest{DoctorName: "Dr. Raman", Date: testDate, TimeOfDay: "evening"})
	require.NoError(t, err)
	assert.Equal(t, []string{"17:00", "17:30", "18:00", "18:30", "19:00", "19:30"}, slotTimes(evening.Slots))

	morning, err := f.svc.Availability(ctx, AvailabilityRequest{DoctorName: "Dr. Raman", Date: testDate, View: ViewPeriods, TimeOfDay: "morning"})
	require.NoError(t, err)
	assert.Empty(t, morning.Periods)
}

func TestAvailabilityErrors(t *testing.T) {
	f := newFixture(t, doctor.MatchSubstring, DefaultPolicy())
	ctx := context.Background()

	_, err := f.svc.Availability(ctx, AvailabilityRequest{DoctorName: "Dr. Who", Date: testDate})
	assert.ErrorIs(t, err, doctor.ErrDoctorNotFound)

	_, err = f.svc.Availability(ctx, AvailabilityRequest{DoctorName: "ra", Date: testDate})
	assert.ErrorIs(t, err, apperr.ErrAmbiguous)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Availability(ctx, AvailabilityRequest{DoctorName: "Dr. Rao"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Availability(ctx, AvailabilityRequest{DoctorName: "Dr. Rao", Date: testDate, View: "calendar"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestBookValidation(t *testing.T) {
	f := newFixture(t, doctor.MatchExact, DefaultPolicy())
	ctx := context.Background()

	missing := ashaBooking()
	missing.Phone = ""
	_, err := f.svc.Book(ctx, missing)
	require.ErrorIs(t, err, apperr.ErrValidation)

	offGrid := ashaBooking()
	offGrid.Time = "10:15"
	_, err = f.svc.Book(ctx, offGrid)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.ErrorIs(t, err, ErrNotASlot)

	afterHours := ashaBooking()
	afterHours.Time = "17:00"
	_, err = f.svc.Book(ctx, afterHours)
	require.ErrorIs(t, err, ErrNotASlot)

	unknown := ashaBooking()
	unknown.DoctorName = "Dr. Nobody"
	_, err = f.svc.Book(ctx, unknown)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Empty(t, f.repo.Events())
}

func TestConcurrentBookingsExactlyOneWins(t *testing.T) {
	run := func(t *testing.T, f fixture) {
		const n = 25
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			conflicts int
		)
		start := make(chan struct{})
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := f.svc.Book(context.Background(), ashaBooking())
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case errors.Is(err, apperr.ErrConflict):
					conflicts++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		close(start)
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, n-1, conflicts)
	}

	t.Run("ledger only", func(t *testing.T) {
		run(t, newFixture(t, doctor.MatchExact, DefaultPolicy()))
	})

	t.Run("with redis slot lock", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		locker := redisclient.NewRedisSlotLocker(client, 5*time.Second)
		run(t, newFixture(t, doctor.MatchExact, DefaultPolicy(), WithLocker(locker)))
	})
}

func TestCancelErrors(t *testing.T) {
	f := newFixture(t, doctor.MatchExact, DefaultPolicy())
	ctx := context.Background()

	_, err := f.svc.Cancel(ctx, CancelRequest{DoctorName: "Dr. Rao", PatientName: "Asha", Date: testDate})
	require.ErrorIs(t, err, appointment.ErrAppointmentNotFound)

	_, err = f.svc.Book(ctx, ashaBooking())
	require.NoError(t, err)
	second := ashaBooking()
	second.Time = "15:00"
	_, err = f.svc.Book(ctx, second)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, CancelRequest{DoctorName: "Dr. Rao", PatientName: "asha ", Date: testDate})
	require.ErrorIs(t, err, apperr.ErrAmbiguous)
	var amb *AmbiguousAppointmentError
	require.True(t, errors.As(err, &amb))
	assert.Equal(t, []string{"10:00", "15:00"}, amb.Times)

	got, err := f.svc.Cancel(ctx, CancelRequest{DoctorName: "Dr. Rao", PatientName: "ASHA", Date: testDate, Time: "15:00"})
	require.NoError(t, err)
	assert.Equal(t, clock.At(15, 0), got.Time)

	_, err = f.svc.Cancel(ctx, CancelRequest{DoctorName: "Dr. Rao", PatientName: "Asha", Date: testDate, Time: "15:00"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRescheduleMovesInPlace(t *testing.T) {
	f := newFixture(t, doctor.MatchExact, DefaultPolicy())
	ctx := context.Background()

	booked, err := f.svc.Book(ctx, ashaBooking())
	require.NoError(t, err)

	moved, err := f.svc.Reschedule(ctx, RescheduleRequest{
		DoctorName:  "Dr. Rao",
		PatientName: "Asha",
		OldDate:     testDate,
		NewDate:     "2025-03-11",
		NewTime:     "14:30",
	})
	require.NoError(t, err)
	assert.Equal(t, booked.ID, moved.ID)
	assert.Equal(t, booked.PatientPhone, moved.PatientPhone)
	assert.Equal(t, "2025-03-11", moved.Date)
	assert.Equal(t, Afternoon, moved.DayPart)

	old, err := f.svc.Availability(ctx, AvailabilityRequest{DoctorName: "Dr. Rao", Date: testDate})
	require.NoError(t, err)
	assert.Contains(t, slotTimes(old.Slots), "10:00")

	events := f.repo.Events()
	assert.Equal(t, appointment.EventAppointmentRescheduled, events[len(events)-1].EventType)
}

func TestRescheduleErrors(t *testing.T) {
	f := newFixture(t, doctor.MatchExact, DefaultPolicy())
	ctx := context.Background()

	req := RescheduleRequest{
		DoctorName:  "Dr. Rao",
		PatientName: "Asha",
		OldDate:     testDate,
		NewDate:     testDate,
		NewTime:     "11:00",
	}

	_, err := f.svc.Reschedule(ctx, req)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	original, err := f.svc.Book(ctx, ashaBooking())
	require.NoError(t, err)
	blocker := ashaBooking()
	blocker.PatientName = "Ravi"
	blocker.Time = "11:00"
	_, err = f.svc.Book(ctx, blocker)
	require.NoError(t, err)

	_, err = f.svc.Reschedule(ctx, req)
	require.ErrorIs(t, err, apperr.ErrConflict)

	still, err := f.svc.ListAppointments(ctx, ListRequest{PatientName: "Asha"})
	require.NoError(t, err)
	require.Len(t, still, 1)
	assert.Equal(t, original.ID, still[0].ID)
	assert.Equal(t, clock.At(10, 0), still[0].Time)

	offGrid := req
	offGrid.NewTime = "11:10"
	_, err = f.svc.Reschedule(ctx, offGrid)
	require.ErrorIs(t, err, ErrNotASlot)
}

func TestListAppointments(t *testing.T) {
	f := newFixture(t, doctor.MatchExact, DefaultPolicy())
	ctx := context.Background()

	empty, err := f.svc.ListAppointments(ctx, ListRequest{PatientName: "Asha"})
	require.NoError(t, err)
	assert.Empty(t, empty)

	later := ashaBooking()
	later.Date = "2025-03-12"
	_, err = f.svc.Book(ctx, later)
	require.NoError(t, err)

	cardio := ashaBooking()
	cardio.DoctorName = "Dr. Raman"
	cardio.Time = "14:00"
	_, err = f.svc.Book(ctx, cardio)
	require.NoError(t, err)

	got, err := f.svc.ListAppointments(ctx, ListRequest{PatientName: "asha", Phone: "9999999999"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Dr. Raman", got[0].DoctorName)
	assert.Equal(t, "Cardiology", got[0].Specialty)
	assert.Equal(t, "2025-03-12", got[1].Date)

	_, err = f.svc.ListAppointments(ctx, ListRequest{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

type failingRepo struct {
	appointment.Repository
	err error
}

func (r failingRepo) InsertConfirmed(context.Context, appointment.NewAppointment) (*appointment.Appointment, error) {
	return nil, r.err
}

func TestBookInfrastructureErrorIsNotDomain(t *testing.T) {
	boom := errors.New("connection refused")
	dir := doctor.NewDirectory(doctor.NewMemoryStore(clinicDoctors()...), doctor.MatchExact)
	svc := NewService(dir, failingRepo{Repository: appointment.NewMemoryRepository(), err: boom}, DefaultPolicy(),
		WithLogger(logging.Discard()))

	_, err := svc.Book(context.Background(), ashaBooking())
	require.ErrorIs(t, err, boom)
	assert.False(t, apperr.IsDomain(err))
}
