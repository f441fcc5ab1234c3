// Package engine implements the step state machine shared by every protocol.
//
// The engine holds no session data. Each operation takes a *domain.SessionState
// and returns a new one, leaving its input untouched, so callers decide where
// states live (memory, an HTTP client, a terminal loop).
package engine

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/manas360/stepwise/pkg/domain"
)

// Engine is the protocol-agnostic step sequencer.
type Engine struct {
	logger *slog.Logger
	hooks  domain.LifecycleHooks
	now    func() time.Time
	newID  func() string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger. Transitions are logged at Debug.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithClock overrides the time source used for start and finish timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator overrides record ID generation (default: random UUID).
func WithIDGenerator(gen func() string) EngineOption {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// NewEngine creates an engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func requireBound(state *domain.SessionState) error {
	if state == nil {
		return fmt.Errorf("%w: nil state", domain.ErrUnboundState)
	}
	if state.Schema == nil {
		return fmt.Errorf("%w: protocol %q", domain.ErrUnboundState, state.ProtocolID)
	}
	return nil
}
