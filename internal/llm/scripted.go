package llm

import (
	"context"
	"errors"
	"sync"
)

var ErrScriptExhausted = errors.New("llm: scripted client has no more steps")

// Step is one scripted reply. With Block set the step waits for the
// request context to end and returns its error.
type Step struct {
	Response Response
	Err      error
	Block    bool
}

// ScriptedClient replays Steps in order and records every request.
type ScriptedClient struct {
	mu       sync.Mutex
	steps    []Step
	requests []Request
}

func NewScriptedClient(steps ...Step) *ScriptedClient {
	return &ScriptedClient{steps: steps}
}

func (c *ScriptedClient) Complete(ctx context.Context, req Request) (Response, error) {
	c.mu.Lock()
	snapshot := req
	snapshot.Messages = append([]Message(nil), req.Messages...)
	c.requests = append(c.requests, snapshot)
	if len(c.steps) == 0 {
		c.mu.Unlock()
		return Response{}, ErrScriptExhausted
	}
	step := c.steps[0]
	c.steps = c.steps[1:]
	c.mu.Unlock()

	if step.Block {
		<-ctx.Done()
		return Response{}, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	return step.Response, step.Err
}

func (c *ScriptedClient) Requests() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Request(nil), c.requests...)
}
