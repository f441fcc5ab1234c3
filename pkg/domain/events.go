package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSessionStart  EventType = "session_start"
	EventStepEnter     EventType = "step_enter"
	EventStepLeave     EventType = "step_leave"
	EventSessionFinish EventType = "session_finish"
)

// Direction describes how the cursor moved.
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
	DirectionJump     Direction = "jump"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"type"`
	ProtocolID string    `json:"protocol_id"`
}

// StepEvent represents entry into or exit from a step.
type StepEvent struct {
	EventBase
	StepIndex int       `json:"step_index"`
	StepID    string    `json:"step_id,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

// SessionEvent represents the start or completion of a session.
type SessionEvent struct {
	EventBase
	Patient  string        `json:"patient,omitempty"`
	RecordID string        `json:"record_id,omitempty"`
	Steps    int           `json:"steps"`
	Duration time.Duration `json:"duration,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnSessionStart  func(context.Context, *SessionEvent)
	OnStepEnter     func(context.Context, *StepEvent)
	OnStepLeave     func(context.Context, *StepEvent)
	OnSessionFinish func(context.Context, *SessionEvent)
}

// ChainHooks combines hook sets; callbacks run in argument order.
func ChainHooks(sets ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range sets {
		out.OnSessionStart = chain(out.OnSessionStart, h.OnSessionStart)
		out.OnStepEnter = chain(out.OnStepEnter, h.OnStepEnter)
		out.OnStepLeave = chain(out.OnStepLeave, h.OnStepLeave)
		out.OnSessionFinish = chain(out.OnSessionFinish, h.OnSessionFinish)
	}
	return out
}

func chain[E any](first, second func(context.Context, E)) func(context.Context, E) {
	if first == nil {
		return second
	}
	if second == nil {
		return first
	}
	return func(ctx context.Context, e E) {
		first(ctx, e)
		second(ctx, e)
	}
}
