package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hackgods/clinic-scheduling-assistant/internal/apperr"
	"github.com/hackgods/clinic-scheduling-assistant/internal/doctor"
	"github.com/hackgods/clinic-scheduling-assistant/internal/llm"
	"github.com/hackgods/clinic-scheduling-assistant/internal/observability/metrics"
	"github.com/hackgods/clinic-scheduling-assistant/internal/scheduling"
	"github.com/hackgods/clinic-scheduling-assistant/internal/validate"
)

var ErrUnknownTool = fmt.Errorf("unknown tool: %w", apperr.ErrUpstream)

const defaultTimeout = 10 * time.Second

// Executor dispatches model tool calls against a fixed registry.
type Executor struct {
	tools     map[string]Tool
	names     []string
	validator *validate.Validator
	timeout   time.Duration
	log       *logrus.Logger
	metrics   *metrics.ToolMetrics
}

type Option func(*Executor)

func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithLogger(l *logrus.Logger) Option { return func(e *Executor) { e.log = l } }

func WithMetrics(m *metrics.ToolMetrics) Option { return func(e *Executor) { e.metrics = m } }

func NewExecutor(tools []Tool, opts ...Option) *Executor {
	e := &Executor{
		tools:     make(map[string]Tool, len(tools)),
		validator: validate.New(),
		timeout:   defaultTimeout,
		log:       logrus.StandardLogger(),
	}
	for _, t := range tools {
		if _, dup := e.tools[t.Name]; dup {
			panic("tool: duplicate registration of " + t.Name)
		}
		e.tools[t.Name] = t
		e.names = append(e.names, t.Name)
	}
	sort.Strings(e.names)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Definitions returns the tool schemas offered to the model, sorted by name.
func (e *Executor) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(e.names))
	for _, name := range e.names {
		defs = append(defs, e.tools[name].Definition())
	}
	return defs
}

// Execute runs one tool call. Domain failures are folded into the Result;
// the error is non-nil only when the call could not be dispatched at all.
func (e *Executor) Execute(ctx context.Context, call llm.ToolCall) (result Result, err error) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		e.metrics.ObserveCall(call.Name, outcome, time.Since(start).Seconds())
		entry := e.log.WithFields(logrus.Fields{
			"tool":        call.Name,
			"call_id":     call.ID,
			"outcome":     outcome,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if err != nil {
			entry.WithError(err).Warn("tool dispatch failed")
			return
		}
		entry.Info("tool executed")
	}()

	t, ok := e.tools[call.Name]
	if !ok {
		outcome = "dispatch_error"
		return Result{}, fmt.Errorf("%w %q", ErrUnknownTool, call.Name)
	}

	if err := ctx.Err(); err != nil {
		outcome = "dispatch_error"
		return Result{}, apperr.E(apperr.ErrUpstream, call.Name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type reply struct {
		data any
		err  error
	}
	done := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- reply{err: apperr.E(apperr.ErrUpstream, call.Name, fmt.Errorf("tool panicked: %v", r))}
			}
		}()
		data, err := t.call(ctx, e.validator, call.ArgumentsOrEmpty())
		done <- reply{data: data, err: err}
	}()

	var r reply
	select {
	case r = <-done:
	case <-ctx.Done():
		r = reply{err: ctx.Err()}
	}

	switch {
	case r.err == nil:
		return Result{OK: true, Data: r.data}, nil
	case apperr.IsDomain(r.err) && ctx.Err() == nil:
		outcome = apperr.Code(r.err)
		return Result{OK: false, Error: payloadFor(r.err)}, nil
	case errors.Is(r.err, apperr.ErrUpstream):
		outcome = "dispatch_error"
		return Result{}, r.err
	default:
		outcome = "dispatch_error"
		return Result{}, apperr.E(apperr.ErrUpstream, call.Name, r.err)
	}
}

func payloadFor(err error) *ErrorPayload {
	p := &ErrorPayload{
		Code:    apperr.Code(err),
		Message: err.Error(),
		Fields:  validate.Fields(err),
	}

	var ambiguousDoctor *doctor.AmbiguousError
	var ambiguousAppt *scheduling.AmbiguousAppointmentError
	switch {
	case errors.As(err, &ambiguousDoctor):
		p.Candidates = ambiguousDoctor.Candidates
	case errors.As(err, &ambiguousAppt):
		p.Candidates = ambiguousAppt.Times
	}
	return p
}
