package tool

import (
	"context"

	"github.com/hackgods/clinic-scheduling-assistant/internal/doctor"
	"github.com/hackgods/clinic-scheduling-assistant/internal/scheduling"
)

type Directory interface {
	ListSpecialties(ctx context.Context) ([]string, error)
	Find(ctx context.Context, specialty, name string) ([]doctor.Doctor, error)
}

type Scheduler interface {
	Availability(ctx context.Context, req scheduling.AvailabilityRequest) (*scheduling.Availability, error)
	Book(ctx context.Context, req scheduling.BookRequest) (*scheduling.Booking, error)
	Cancel(ctx context.Context, req scheduling.CancelRequest) (*scheduling.Booking, error)
	Reschedule(ctx context.Context, req scheduling.RescheduleRequest) (*scheduling.Booking, error)
	ListAppointments(ctx context.Context, req scheduling.ListRequest) ([]scheduling.Booking, error)
}

type noArgs struct{}

type findDoctorsArgs struct {
	Specialty  string `json:"specialty,omitempty" description:"Medical specialty to filter by, e.g. General Medicine"`
	DoctorName string `json:"doctor_name,omitempty" description:"Doctor name or part of it"`
}

type availabilityArgs struct {
	DoctorName string `json:"doctor_name" validate:"required" description:"Name of the doctor"`
	Date       string `json:"date" validate:"required,date" description:"Date as YYYY-MM-DD"`
	TimeOfDay  string `json:"time_of_day,omitempty" validate:"omitempty,oneof=morning afternoon evening" description:"Restrict to one part of the day"`
	View       string `json:"view,omitempty" validate:"omitempty,oneof=slots periods" description:"slots lists free times, periods lists day parts with free time"`
}

type bookArgs struct {
	DoctorName  string `json:"doctor_name" validate:"required" description:"Name of the doctor"`
	PatientName string `json:"patient_name" validate:"required,max=120" description:"Full name of the patient"`
	Phone       string `json:"phone" validate:"required,phone" description:"Patient phone number"`
	Date        string `json:"date" validate:"required,date" description:"Date as YYYY-MM-DD"`
	Time        string `json:"time" validate:"required,hhmm" description:"Slot start as HH:MM (24h)"`
}

type cancelArgs struct {
	DoctorName  string `json:"doctor_name" validate:"required" description:"Name of the doctor"`
	PatientName string `json:"patient_name" validate:"required" description:"Full name of the patient"`
	Date        string `json:"date" validate:"required,date" description:"Date of the appointment as YYYY-MM-DD"`
	Time        string `json:"time,omitempty" validate:"omitempty,hhmm" description:"Time of the appointment as HH:MM, needed when the patient has several that day"`
}

type rescheduleArgs struct {
	DoctorName  string `json:"doctor_name" validate:"required" description:"Name of the doctor"`
	PatientName string `json:"patient_name" validate:"required" description:"Full name of the patient"`
	OldDate     string `json:"old_date" validate:"required,date" description:"Current date as YYYY-MM-DD"`
	OldTime     string `json:"old_time,omitempty" validate:"omitempty,hhmm" description:"Current time as HH:MM"`
	NewDate     string `json:"new_date" validate:"required,date" description:"New date as YYYY-MM-DD"`
	NewTime     string `json:"new_time" validate:"required,hhmm" description:"New time as HH:MM"`
}

type listArgs struct {
	PatientName string `json:"patient_name" validate:"required" description:"Full name of the patient"`
	Phone       string `json:"phone,omitempty" validate:"omitempty,phone" description:"Patient phone number to narrow the lookup"`
}

type doctorSummary struct {
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

// Registry returns the clinic's tools bound to dir and svc.
func Registry(dir Directory, svc Scheduler) []Tool {
	return []Tool{
		New("list_specialties", "List the medical specialties offered by the clinic.",
			func(ctx context.Context, _ noArgs) (any, error) {
				return dir.ListSpecialties(ctx)
			}),
		New("find_doctors", "Find doctors by specialty and/or name. With no filters every doctor is returned.",
			func(ctx context.Context, a findDoctorsArgs) (any, error) {
				docs, err := dir.Find(ctx, a.Specialty, a.DoctorName)
				if err != nil {
					return nil, err
				}
				out := make([]doctorSummary, 0, len(docs))
				for _, d := range docs {
					out = append(out, doctorSummary{Name: d.Name, Specialty: d.Specialty})
				}
				return out, nil
			}),
		New("get_availability", "Get a doctor's free slots on a date.",
			func(ctx context.Context, a availabilityArgs) (any, error) {
				return svc.Availability(ctx, scheduling.AvailabilityRequest{
					DoctorName: a.DoctorName,
					Date:       a.Date,
					TimeOfDay:  a.TimeOfDay,
					View:       scheduling.View(a.View),
				})
			}),
		New("book_appointment", "Book a confirmed appointment in a free slot.",
			func(ctx context.Context, a bookArgs) (any, error) {
				return svc.Book(ctx, scheduling.BookRequest(a))
			}),
		New("cancel_appointment", "Cancel a patient's confirmed appointment.",
			func(ctx context.Context, a cancelArgs) (any, error) {
				return svc.Cancel(ctx, scheduling.CancelRequest(a))
			}),
		New("reschedule_appointment", "Move a patient's confirmed appointment to a new date and time.",
			func(ctx context.Context, a rescheduleArgs) (any, error) {
				return svc.Reschedule(ctx, scheduling.RescheduleRequest(a))
			}),
		New("list_appointments", "List a patient's confirmed appointments.",
			func(ctx context.Context, a listArgs) (any, error) {
				bookings, err := svc.ListAppointments(ctx, scheduling.ListRequest(a))
				if err != nil {
					return nil, err
				}
				if bookings == nil {
					bookings = []scheduling.Booking{}
				}
				return bookings, nil
			}),
	}
}
