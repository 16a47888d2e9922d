// Package dialogue runs one conversational turn: a model round trip, at most
// one batch of tool dispatches and a single follow up model call.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/hackgods/clinic-scheduling-assistant/internal/apperr"
	"github.com/hackgods/clinic-scheduling-assistant/internal/llm"
	"github.com/hackgods/clinic-scheduling-assistant/internal/observability/metrics"
	"github.com/hackgods/clinic-scheduling-assistant/internal/tool"
)

var dialogueTracer = otel.Tracer("clinic.internal.dialogue")

var (
	ErrSecondToolRound = fmt.Errorf("model requested tools again after tool results: %w", apperr.ErrUpstream)
	ErrEmptyReply      = fmt.Errorf("model returned an empty reply: %w", apperr.ErrUpstream)
)

const defaultModelTimeout = 30 * time.Second

type State string

const (
	StateAwaitingModelResponse State = "awaiting_model_response"
	StateToolRequested         State = "tool_requested"
	StateToolExecuted          State = "tool_executed"
	StateAwaitingFinalResponse State = "awaiting_final_response"
	StateDone                  State = "done"
)

// Executor is the tool side of a turn.
type Executor interface {
	Definitions() []llm.ToolDefinition
	Execute(ctx context.Context, call llm.ToolCall) (tool.Result, error)
}

// Turn is the outcome of RunTurn. Messages is the full history including
// the user message, any tool traffic and the final assistant reply.
type Turn struct {
	Reply    string        `json:"reply"`
	Messages []llm.Message `json:"history"`
	Rounds   int           `json:"-"`
}

type Orchestrator struct {
	model        llm.Client
	executor     Executor
	modelTimeout time.Duration
	location     *time.Location
	now          func() time.Time
	log          *logrus.Logger
	metrics      *metrics.DialogueMetrics
}

type Option func(*Orchestrator)

func WithModelTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.modelTimeout = d
		}
	}
}

// WithClock sets the source of "today" and the clinic timezone it is read in.
func WithClock(now func() time.Time, loc *time.Location) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
		if loc != nil {
			o.location = loc
		}
	}
}

func WithLogger(l *logrus.Logger) Option { return func(o *Orchestrator) { o.log = l } }

func WithMetrics(m *metrics.DialogueMetrics) Option { return func(o *Orchestrator) { o.metrics = m } }

func NewOrchestrator(model llm.Client, executor Executor, opts ...Option) *Orchestrator {
	if model == nil || executor == nil {
		panic("dialogue: model and executor required")
	}
	o := &Orchestrator{
		model:        model,
		executor:     executor,
		modelTimeout: defaultModelTimeout,
		location:     time.UTC,
		now:          time.Now,
		log:          logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunTurn appends message to history and drives the turn to a final reply.
// Domain failures inside tools reach the model as tool results; only a
// malformed history (validation) or a model/dispatch failure (upstream)
// is returned as an error.
func (o *Orchestrator) RunTurn(ctx context.Context, history []llm.Message, message string) (turn *Turn, err error) {
	ctx, span := dialogueTracer.Start(ctx, "dialogue.turn")
	start := time.Now()
	state := StateAwaitingModelResponse
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = apperr.Code(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			o.log.WithError(err).WithField("state", state).Warn("dialogue turn failed")
		}
		o.metrics.ObserveTurn(outcome, time.Since(start).Seconds())
		span.SetAttributes(attribute.String("clinic.dialogue.state", string(state)))
		span.End()
	}()

	if strings.TrimSpace(message) == "" {
		return nil, apperr.E(apperr.ErrValidation, "dialogue.turn", errors.New("message is required"))
	}
	if err := ValidateHistory(history); err != nil {
		return nil, err
	}

	messages := make([]llm.Message, 0, len(history)+4)
	messages = append(messages, history...)
	messages = append(messages, llm.UserMessage(message))

	req := llm.Request{
		System:   systemPrompt(o.now().In(o.location)),
		Messages: messages,
		Tools:    o.executor.Definitions(),
	}

	resp, err := o.complete(ctx, req, "initial")
	if err != nil {
		return nil, err
	}
	if len(resp.ToolCalls) == 0 {
		state = StateDone
		return o.finish(messages, resp, 1)
	}

	state = StateToolRequested
	calls := normalizeCalls(resp.ToolCalls)
	messages = append(messages, llm.ToolCallMessage(resp.Text, calls...))

	for _, call := range calls {
		res, err := o.executor.Execute(ctx, call)
		if err != nil {
			return nil, apperr.E(apperr.ErrUpstream, "dialogue.tool", fmt.Errorf("%s: %w", call.Name, err))
		}
		messages = append(messages, llm.ToolResultMessage(llm.ToolResult{
			CallID:  call.ID,
			Name:    call.Name,
			Content: res.JSON(),
			IsError: !res.OK,
		}))
	}
	o.log.WithFields(logrus.Fields{"state": StateToolExecuted, "tool_calls": len(calls)}).Debug("tool batch executed")

	state = StateAwaitingFinalResponse
	req.Messages = messages
	resp, err = o.complete(ctx, req, "final")
	if err != nil {
		return nil, err
	}
	if len(resp.ToolCalls) > 0 {
		return nil, ErrSecondToolRound
	}

	state = StateDone
	return o.finish(messages, resp, 2)
}

func (o *Orchestrator) complete(ctx context.Context, req llm.Request, round string) (llm.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, o.modelTimeout)
	defer cancel()

	start := time.Now()
	resp, err := o.model.Complete(ctx, req)
	o.metrics.ObserveModelCall(round, time.Since(start).Seconds())
	if err != nil {
		return llm.Response{}, apperr.E(apperr.ErrUpstream, "dialogue.model", err)
	}

	o.log.WithFields(logrus.Fields{
		"round":         round,
		"tool_calls":    len(resp.ToolCalls),
		"stop_reason":   resp.StopReason,
		"input_tokens":  resp.Usage.InputTokens,
		"output_tokens": resp.Usage.OutputTokens,
	}).Debug("model responded")
	return resp, nil
}

func (o *Orchestrator) finish(messages []llm.Message, resp llm.Response, rounds int) (*Turn, error) {
	reply := strings.TrimSpace(resp.Text)
	if reply == "" {
		return nil, ErrEmptyReply
	}
	messages = append(messages, llm.AssistantMessage(reply))
	return &Turn{Reply: reply, Messages: messages, Rounds: rounds}, nil
}

// normalizeCalls fills in ids for providers that omit them so results can be
// paired with their calls, and makes malformed arguments encodable so the
// turn's history always marshals.
func normalizeCalls(calls []llm.ToolCall) []llm.ToolCall {
	out := make([]llm.ToolCall, len(calls))
	for i, c := range calls {
		if c.ID == "" {
			c.ID = "call_" + uuid.NewString()
		}
		c.Arguments = llm.NormalizeArguments(c.Arguments)
		out[i] = c
	}
	return out
}
