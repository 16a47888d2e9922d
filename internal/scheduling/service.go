package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hackgods/clinic-scheduling-assistant/internal/apperr"
	"github.com/hackgods/clinic-scheduling-assistant/internal/appointment"
	"github.com/hackgods/clinic-scheduling-assistant/internal/clock"
	"github.com/hackgods/clinic-scheduling-assistant/internal/doctor"
	"github.com/hackgods/clinic-scheduling-assistant/internal/observability/metrics"
	redisclient "github.com/hackgods/clinic-scheduling-assistant/internal/redis"
	"github.com/hackgods/clinic-scheduling-assistant/internal/validate"
)

var schedulingTracer = otel.Tracer("clinic.internal.scheduling")

var ErrNotASlot = errors.New("is not a bookable slot")

// AmbiguousAppointmentError is returned when a cancel or reschedule request
// without a time matches several confirmed appointments on the same day.
type AmbiguousAppointmentError struct {
	PatientName string
	Date        string
	Times       []string
}

func (e *AmbiguousAppointmentError) Error() string {
	return fmt.Sprintf("%s has %d appointments on %s (%s), specify the time",
		e.PatientName, len(e.Times), e.Date, strings.Join(e.Times, ", "))
}

func (e *AmbiguousAppointmentError) Unwrap() error { return apperr.ErrAmbiguous }

type Service struct {
	directory *doctor.Directory
	repo      appointment.Repository
	locker    redisclient.Locker
	policy    Policy
	validator *validate.Validator
	log       *logrus.Logger
	metrics   *metrics.SchedulingMetrics
	now       func() time.Time
}

type Option func(*Service)

// WithLocker guards writes with a per slot lock. Without it the ledger's
// uniqueness guarantee alone prevents double booking.
func WithLocker(l redisclient.Locker) Option { return func(s *Service) { s.locker = l } }

func WithLogger(l *logrus.Logger) Option { return func(s *Service) { s.log = l } }

func WithMetrics(m *metrics.SchedulingMetrics) Option { return func(s *Service) { s.metrics = m } }

func NewService(directory *doctor.Directory, repo appointment.Repository, policy Policy, opts ...Option) *Service {
	if directory == nil || repo == nil {
		panic("scheduling: directory and repository required")
	}
	s := &Service{
		directory: directory,
		repo:      repo,
		locker:    redisclient.NoopLocker{},
		policy:    policy,
		validator: validate.New(),
		log:       logrus.StandardLogger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Policy() Policy { return s.policy }

// Booking is an appointment together with the doctor it belongs to.
type Booking struct {
	appointment.Appointment
	DoctorName string  `json:"doctor_name"`
	Specialty  string  `json:"specialty"`
	DayPart    DayPart `json:"day_part"`
}

func (s *Service) booking(a *appointment.Appointment, d doctor.Doctor) *Booking {
	return &Booking{
		Appointment: *a,
		DoctorName:  d.Name,
		Specialty:   d.Specialty,
		DayPart:     s.policy.Classify(a.Time),
	}
}

// GenerateSlots returns the full slot grid for d on date.
func (s *Service) GenerateSlots(d doctor.Doctor, date string) ([]Slot, error) {
	if _, err := clock.NormalizeDate(date); err != nil {
		return nil, apperr.E(apperr.ErrValidation, "scheduling.slots", err)
	}
	return s.policy.Generate(d), nil
}

type View string

const (
	ViewSlots   View = "slots"
	ViewPeriods View = "periods"
)

type AvailabilityRequest struct {
	DoctorName string `json:"doctor_name" validate:"required"`
	Date       string `json:"date" validate:"required,date"`
	TimeOfDay  string `json:"time_of_day,omitempty" validate:"omitempty,oneof=morning afternoon evening"`
	View       View   `json:"view,omitempty" validate:"omitempty,oneof=slots periods"`
}

type Availability struct {
	DoctorName string    `json:"doctor_name"`
	Date       string    `json:"date"`
	View       View      `json:"view"`
	TimeOfDay  DayPart   `json:"time_of_day,omitempty"`
	Slots      []Slot    `json:"slots,omitempty"`
	Periods    []DayPart `json:"periods,omitempty"`
}

// Availability lists free slots, or with ViewPeriods the day parts that
// still have at least one free slot.
func (s *Service) Availability(ctx context.Context, req AvailabilityRequest) (result *Availability, err error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.availability")
	defer s.finish(span, "availability", time.Now(), &err)
	span.SetAttributes(
		attribute.String("clinic.doctor_ref", req.DoctorName),
		attribute.String("clinic.date", req.Date),
	)

	if err := s.validator.Struct("scheduling.availability", req); err != nil {
		return nil, err
	}
	date, _ := clock.NormalizeDate(req.Date)
	view := req.View
	if view == "" {
		view = ViewSlots
	}

	d, err := s.directory.Resolve(ctx, req.DoctorName)
	if err != nil {
		return nil, err
	}

	taken, err := s.repo.ConfirmedTimes(ctx, d.ID, date)
	if err != nil {
		return nil, fmt.Errorf("availability: %w", err)
	}
	booked := make(map[clock.TimeOfDay]struct{}, len(taken))
	for _, t := range taken {
		booked[t] = struct{}{}
	}

	var period DayPart
	if req.TimeOfDay != "" {
		period, _ = ParseDayPart(req.TimeOfDay)
	}

	free := make([]Slot, 0)
	for _, slot := range s.policy.Generate(d) {
		if _, ok := booked[slot.Time]; ok {
			continue
		}
		if period != "" && slot.DayPart != period {
			continue
		}
		free = append(free, slot)
	}

	result = &Availability{DoctorName: d.Name, Date: date, View: view, TimeOfDay: period}
	if view == ViewPeriods {
		result.Periods = periodsOf(free)
	} else {
		result.Slots = free
	}
	return result, nil
}

type BookRequest struct {
	DoctorName  string `json:"doctor_name" validate:"required"`
	PatientName string `json:"patient_name" validate:"required,max=120"`
	Phone       string `json:"phone" validate:"required,phone"`
	Date        string `json:"date" validate:"required,date"`
	Time        string `json:"time" validate:"required,hhmm"`
}

// Book confirms a new appointment. The insert is a single statement guarded
// by the ledger's uniqueness rule, so of N identical requests exactly one wins.
func (s *Service) Book(ctx context.Context, req BookRequest) (result *Booking, err error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.book")
	defer s.finish(span, "book", time.Now(), &err)
	span.SetAttributes(
		attribute.String("clinic.doctor_ref", req.DoctorName),
		attribute.String("clinic.date", req.Date),
		attribute.String("clinic.time", req.Time),
	)

	if err := s.validator.Struct("scheduling.book", req); err != nil {
		return nil, err
	}
	date, _ := clock.NormalizeDate(req.Date)
	at, _ := clock.ParseTimeOfDay(req.Time)

	d, err := s.directory.Resolve(ctx, req.DoctorName)
	if err != nil {
		return nil, err
	}
	if !s.policy.IsSlot(d, at) {
		return nil, notASlot(at, d.Name)
	}

	var created *appointment.Appointment
	err = s.locker.WithSlotLock(ctx, redisclient.SlotKey(d.ID, date, at), func(ctx context.Context) error {
		var insertErr error
		created, insertErr = s.repo.InsertConfirmed(ctx, appointment.NewAppointment{
			DoctorID:     d.ID,
			PatientName:  req.PatientName,
			PatientPhone: req.Phone,
			Date:         date,
			Time:         at,
		})
		return insertErr
	})
	if err != nil {
		return nil, wrapLedger("book", err)
	}

	s.logEvent(ctx, appointment.EventAppointmentBooked, created.ID, map[string]any{
		"doctor_id": d.ID,
		"date":      created.Date,
		"time":      created.Time,
	})
	s.log.WithFields(logrus.Fields{
		"appointment_id": created.ID,
		"doctor":         d.Name,
		"date":           created.Date,
		"time":           created.Time.String(),
	}).Info("appointment booked")

	return s.booking(created, d), nil
}

type CancelRequest struct {
	DoctorName  string `json:"doctor_name" validate:"required"`
	PatientName string `json:"patient_name" validate:"required"`
	Date        string `json:"date" validate:"required,date"`
	Time        string `json:"time,omitempty" validate:"omitempty,hhmm"`
}

// Cancel moves the patient's confirmed appointment to cancelled. Without a
// time the patient must hold exactly one appointment with that doctor that day.
func (s *Service) Cancel(ctx context.Context, req CancelRequest) (result *Booking, err error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.cancel")
	defer s.finish(span, "cancel", time.Now(), &err)
	span.SetAttributes(
		attribute.String("clinic.doctor_ref", req.DoctorName),
		attribute.String("clinic.date", req.Date),
	)

	if err := s.validator.Struct("scheduling.cancel", req); err != nil {
		return nil, err
	}

	d, target, err := s.locate(ctx, req.DoctorName, req.PatientName, req.Date, req.Time)
	if err != nil {
		return nil, err
	}

	cancelled, err := s.repo.Cancel(ctx, target.ID)
	if err != nil {
		return nil, wrapLedger("cancel", err)
	}

	s.logEvent(ctx, appointment.EventAppointmentCancelled, cancelled.ID, map[string]any{
		"doctor_id": d.ID,
		"date":      cancelled.Date,
		"time":      cancelled.Time,
	})
	s.log.WithFields(logrus.Fields{
		"appointment_id": cancelled.ID,
		"doctor":         d.Name,
	}).Info("appointment cancelled")

	return s.booking(cancelled, d), nil
}

type RescheduleRequest struct {
	DoctorName  string `json:"doctor_name" validate:"required"`
	PatientName string `json:"patient_name" validate:"required"`
	OldDate     string `json:"old_date" validate:"required,date"`
	OldTime     string `json:"old_time,omitempty" validate:"omitempty,hhmm"`
	NewDate     string `json:"new_date" validate:"required,date"`
	NewTime     string `json:"new_time" validate:"required,hhmm"`
}

// Reschedule moves a confirmed appointment in place. The id and patient
// details are kept; an occupied target leaves the original untouched.
func (s *Service) Reschedule(ctx context.Context, req RescheduleRequest) (result *Booking, err error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.reschedule")
	defer s.finish(span, "reschedule", time.Now(), &err)
	span.SetAttributes(
		attribute.String("clinic.doctor_ref", req.DoctorName),
		attribute.String("clinic.old_date", req.OldDate),
		attribute.String("clinic.new_date", req.NewDate),
		attribute.String("clinic.new_time", req.NewTime),
	)

	if err := s.validator.Struct("scheduling.reschedule", req); err != nil {
		return nil, err
	}
	newDate, _ := clock.NormalizeDate(req.NewDate)
	newTime, _ := clock.ParseTimeOfDay(req.NewTime)

	d, current, err := s.locate(ctx, req.DoctorName, req.PatientName, req.OldDate, req.OldTime)
	if err != nil {
		return nil, err
	}
	if !s.policy.IsSlot(d, newTime) {
		return nil, notASlot(newTime, d.Name)
	}

	var moved *appointment.Appointment
	err = s.locker.WithSlotLock(ctx, redisclient.SlotKey(d.ID, newDate, newTime), func(ctx context.Context) error {
		var updateErr error
		moved, updateErr = s.repo.Reschedule(ctx, current.ID, current.Date, newDate, newTime)
		return updateErr
	})
	if err != nil {
		return nil, wrapLedger("reschedule", err)
	}

	s.logEvent(ctx, appointment.EventAppointmentRescheduled, moved.ID, map[string]any{
		"doctor_id": d.ID,
		"from_date": current.Date,
		"from_time": current.Time,
		"to_date":   moved.Date,
		"to_time":   moved.Time,
	})
	s.log.WithFields(logrus.Fields{
		"appointment_id": moved.ID,
		"doctor":         d.Name,
		"from":           current.Date + " " + current.Time.String(),
		"to":             moved.Date + " " + moved.Time.String(),
	}).Info("appointment rescheduled")

	return s.booking(moved, d), nil
}

type ListRequest struct {
	PatientName string `json:"patient_name" validate:"required"`
	Phone       string `json:"phone,omitempty" validate:"omitempty,phone"`
}

// ListAppointments returns the patient's confirmed appointments by date and time.
func (s *Service) ListAppointments(ctx context.Context, req ListRequest) (result []Booking, err error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.list")
	defer s.finish(span, "list", time.Now(), &err)

	if err := s.validator.Struct("scheduling.list", req); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListConfirmedByPatient(ctx, req.PatientName, req.Phone)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	if len(rows) == 0 {
		return []Booking{}, nil
	}

	doctors, err := s.directory.Find(ctx, "", "")
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	byID := make(map[uuid.UUID]doctor.Doctor, len(doctors))
	for _, d := range doctors {
		byID[d.ID] = d
	}

	result = make([]Booking, 0, len(rows))
	for i := range rows {
		result = append(result, *s.booking(&rows[i], byID[rows[i].DoctorID]))
	}
	return result, nil
}

// locate resolves the doctor and the single confirmed appointment a cancel or
// reschedule request refers to.
func (s *Service) locate(ctx context.Context, doctorRef, patient, rawDate, rawTime string) (doctor.Doctor, *appointment.Appointment, error) {
	date, _ := clock.NormalizeDate(rawDate)

	d, err := s.directory.Resolve(ctx, doctorRef)
	if err != nil {
		return doctor.Doctor{}, nil, err
	}

	filter := appointment.Filter{DoctorID: d.ID, PatientName: patient, Date: date}
	if rawTime != "" {
		at, _ := clock.ParseTimeOfDay(rawTime)
		filter.Time = &at
	}

	matches, err := s.repo.FindConfirmed(ctx, filter)
	if err != nil {
		return doctor.Doctor{}, nil, fmt.Errorf("find appointment: %w", err)
	}

	switch len(matches) {
	case 0:
		return doctor.Doctor{}, nil, fmt.Errorf("%w: no confirmed appointment for %s with %s on %s",
			appointment.ErrAppointmentNotFound, strings.TrimSpace(patient), d.Name, date)
	case 1:
		return d, &matches[0], nil
	default:
		times := make([]string, len(matches))
		for i, m := range matches {
			times[i] = m.Time.String()
		}
		return doctor.Doctor{}, nil, &AmbiguousAppointmentError{
			PatientName: strings.TrimSpace(patient),
			Date:        date,
			Times:       times,
		}
	}
}

func notASlot(at clock.TimeOfDay, doctorName string) error {
	return apperr.E(apperr.ErrValidation, "", fmt.Errorf("%s %w for %s", at, ErrNotASlot, doctorName))
}

// wrapLedger keeps domain errors as they are and adds context to the rest.
func wrapLedger(op string, err error) error {
	if apperr.IsDomain(err) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

// finish records the outcome of op on span and in metrics. Domain outcomes
// are not span errors.
func (s *Service) finish(span trace.Span, op string, start time.Time, errp *error) {
	err := *errp
	outcome := "ok"
	if err != nil {
		outcome = apperr.Code(err)
		span.RecordError(err)
		if !apperr.IsDomain(err) {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	s.metrics.ObserveOperation(op, outcome, time.Since(start).Seconds())
	span.End()
}

func (s *Service) logEvent(ctx context.Context, eventType string, appointmentID uuid.UUID, payload map[string]any) {
	b, err := json.Marshal(payload)
	if err != nil {
		s.log.WithError(err).WithField("event_type", eventType).Warn("marshal event payload")
		return
	}

	id := appointmentID
	if err := s.repo.InsertEvent(ctx, appointment.EventLog{
		EventType:     eventType,
		AppointmentID: &id,
		Payload:       b,
		CreatedAt:     s.now().UTC(),
	}); err != nil && !errors.Is(err, context.Canceled) {
		s.log.WithError(err).WithField("event_type", eventType).Warn("insert event log")
	}
}
