package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoModel is returned by Predict when the engine has no model client
// bound, which maps to a service-unavailable condition at the transport.
var ErrNoModel = errors.New("no model client bound")

// ModelClient is the hosted-model call the engine depends on. The call
// is synchronous and carries no retry or timeout policy of its own;
// cancellation belongs to the caller's request boundary.
type ModelClient interface {
	Reply(ctx context.Context, turns []Turn) (string, error)
}

// Engine binds one memory buffer to a model client. Each user session
// owns its own engine so that a reset or context switch in one session
// can never corrupt a prediction in flight for another.
type Engine struct {
	client ModelClient
	mem    *Memory
}

// NewEngine creates an engine with an empty memory buffer.
func NewEngine(client ModelClient) *Engine {
	return &Engine{
		client: client,
		mem:    NewMemory(),
	}
}

// Reset clears the engine's memory.
func (e *Engine) Reset() {
	e.mem.Reset()
}

// Prime appends context turns without clearing existing memory.
func (e *Engine) Prime(turns []Turn) {
	e.mem.Prime(turns)
}

// Memory exposes the underlying buffer, mainly for inspection in tests.
func (e *Engine) Memory() *Memory {
	return e.mem
}

// Predict appends the user turn, invokes the hosted model with the full
// transcript, records the reply and returns it. On model failure the
// user turn is rolled out of memory so a retried turn does not leave a
// dangling unanswered entry in the transcript.
func (e *Engine) Predict(ctx context.Context, text string) (string, error) {
	if e.client == nil {
		return "", ErrNoModel
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("cannot predict on empty input")
	}

	e.mem.Append(RoleUser, text)

	reply, err := e.client.Reply(ctx, e.mem.Turns())
	if err != nil {
		e.mem.DropLast()
		return "", fmt.Errorf("model call failed: %w", err)
	}

	e.mem.Append(RoleModel, reply)
	return reply, nil
}
