package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/hackgods/clinic-scheduling-assistant/internal/apperr"
	"github.com/hackgods/clinic-scheduling-assistant/internal/dialogue"
	"github.com/hackgods/clinic-scheduling-assistant/internal/doctor"
	"github.com/hackgods/clinic-scheduling-assistant/internal/llm"
	"github.com/hackgods/clinic-scheduling-assistant/internal/scheduling"
	"github.com/hackgods/clinic-scheduling-assistant/internal/validate"
)

const maxBodyBytes = 1 << 20

type Chatter interface {
	RunTurn(ctx context.Context, history []llm.Message, message string) (*dialogue.Turn, error)
}

type Directory interface {
	ListSpecialties(ctx context.Context) ([]string, error)
	Find(ctx context.Context, specialty, name string) ([]doctor.Doctor, error)
}

type Scheduler interface {
	Availability(ctx context.Context, req scheduling.AvailabilityRequest) (*scheduling.Availability, error)
	Book(ctx context.Context, req scheduling.BookRequest) (*scheduling.Booking, error)
	Cancel(ctx context.Context, req scheduling.CancelRequest) (*scheduling.Booking, error)
	Reschedule(ctx context.Context, req scheduling.RescheduleRequest) (*scheduling.Booking, error)
}

func chatHandler(chat Chatter, v *validate.Validator, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := v.Struct("chat", req); err != nil {
			writeDomainError(w, log, err)
			return
		}

		turn, err := chat.RunTurn(r.Context(), req.History, req.Message)
		if err != nil {
			writeDomainError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, ChatResponse{Reply: turn.Reply, History: turn.Messages})
	}
}

func specialtiesHandler(dir Directory, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialties, err := dir.ListSpecialties(r.Context())
		if err != nil {
			writeDomainError(w, log, err)
			return
		}
		if specialties == nil {
			specialties = []string{}
		}
		writeJSON(w, http.StatusOK, SpecialtiesResponse{Specialties: specialties})
	}
}

func doctorsHandler(dir Directory, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		docs, err := dir.Find(r.Context(), q.Get("specialty"), q.Get("doctorName"))
		if err != nil {
			writeDomainError(w, log, err)
			return
		}

		resp := make([]DoctorResponse, 0, len(docs))
		for _, d := range docs {
			resp = append(resp, DoctorResponse{Name: d.Name, Specialty: d.Specialty})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func availabilityHandler(svc Scheduler, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		avail, err := svc.Availability(r.Context(), scheduling.AvailabilityRequest{
			DoctorName: q.Get("doctorName"),
			Date:       q.Get("date"),
			TimeOfDay:  q.Get("timeOfDay"),
			View:       scheduling.View(q.Get("view")),
		})
		if err != nil {
			writeDomainError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, avail)
	}
}

func bookHandler(svc Scheduler, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scheduling.BookRequest
		if !decodeBody(w, r, &req) {
			return
		}
		booking, err := svc.Book(r.Context(), req)
		if err != nil {
			writeDomainError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, booking)
	}
}

func cancelHandler(svc Scheduler, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scheduling.CancelRequest
		if !decodeBody(w, r, &req) {
			return
		}
		booking, err := svc.Cancel(r.Context(), req)
		if err != nil {
			writeDomainError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)
	}
}

func rescheduleHandler(svc Scheduler, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scheduling.RescheduleRequest
		if !decodeBody(w, r, &req) {
			return
		}
		booking, err := svc.Reschedule(r.Context(), req)
		if err != nil {
			writeDomainError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)
	}
}

// decodeBody reads a single JSON object into dst, rejecting unknown fields.
// It writes the 400 itself and reports whether the caller should continue.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", fmt.Sprintf("could not parse JSON: %v", err))
		return false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "request body must be a single JSON object")
		return false
	}
	return true
}

func statusFor(err error) int {
	switch apperr.Code(err) {
	case "validation":
		return http.StatusBadRequest
	case "not_found", "ambiguous":
		return http.StatusNotFound
	case "conflict":
		return http.StatusConflict
	case "upstream":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, log *logrus.Logger, err error) {
	status := statusFor(err)
	code := apperr.Code(err)
	details := err.Error()

	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("code", code).Error("request failed")
		if status == http.StatusInternalServerError {
			details = "internal error"
		}
	}
	writeError(w, status, code, details)
}

const encodeFailureBody = `{"error":"internal","details":"could not encode response"}` + "\n"

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(encodeFailureBody))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
