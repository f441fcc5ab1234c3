package engine

import (
	"context"

	"github.com/manas360/stepwise/pkg/domain"
)

func (e *Engine) base(t domain.EventType, protocolID string) domain.EventBase {
	return domain.EventBase{
		Timestamp:  e.now(),
		Type:       t,
		ProtocolID: protocolID,
	}
}

func (e *Engine) emitSessionStart(ctx context.Context, state *domain.SessionState) {
	if e.hooks.OnSessionStart == nil {
		return
	}
	e.hooks.OnSessionStart(ctx, &domain.SessionEvent{
		EventBase: e.base(domain.EventSessionStart, state.ProtocolID),
		Patient:   state.Patient.Identifier(),
		Steps:     state.StepCount(),
	})
}

func (e *Engine) emitSessionFinish(ctx context.Context, state *domain.SessionState, record *domain.FinalizedRecord) {
	if e.hooks.OnSessionFinish == nil {
		return
	}
	evt := &domain.SessionEvent{
		EventBase: e.base(domain.EventSessionFinish, state.ProtocolID),
		Patient:   record.PatientIdentifier,
		RecordID:  record.ID,
		Steps:     state.StepCount(),
	}
	if !state.StartedAt.IsZero() {
		evt.Duration = record.Timestamp.Sub(state.StartedAt)
	}
	e.hooks.OnSessionFinish(ctx, evt)
}

func (e *Engine) emitStepEnter(ctx context.Context, state *domain.SessionState, dir domain.Direction) {
	if e.hooks.OnStepEnter == nil {
		return
	}
	e.hooks.OnStepEnter(ctx, e.stepEvent(domain.EventStepEnter, state, state.CurrentStep, dir))
}

func (e *Engine) emitStepLeave(ctx context.Context, state *domain.SessionState, index int, dir domain.Direction) {
	if e.hooks.OnStepLeave == nil {
		return
	}
	e.hooks.OnStepLeave(ctx, e.stepEvent(domain.EventStepLeave, state, index, dir))
}

func (e *Engine) stepEvent(t domain.EventType, state *domain.SessionState, index int, dir domain.Direction) *domain.StepEvent {
	evt := &domain.StepEvent{
		EventBase: e.base(t, state.ProtocolID),
		StepIndex: index,
		Direction: dir,
	}
	if step, ok := state.Schema.Step(index); ok {
		evt.StepID = step.ID
	}
	return evt
}
