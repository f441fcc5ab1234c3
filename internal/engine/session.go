package engine

import (
	"context"
	"fmt"

	"github.com/manas360/stepwise/pkg/domain"
)

// Start creates a session positioned at step 1.
// The schema is validated first; group fields are pre-populated with every
// declared key so grouped answers always carry the full key set.
func (e *Engine) Start(ctx context.Context, schema *domain.StepSchema, patient domain.Patient) (*domain.SessionState, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	state := domain.NewSessionState(schema, patient, e.now())

	e.logger.Debug("session started",
		"protocol", schema.ProtocolID,
		"steps", schema.Len(),
		"patient", patient.Identifier())

	e.emitSessionStart(ctx, state)
	e.emitStepEnter(ctx, state, domain.DirectionForward)

	return state, nil
}

// Finish turns a session sitting on its terminal step into an immutable record.
// The record owns a deep copy of the answers; later edits to the state do not
// reach it. An empty templateID falls back to the state's protocol.
func (e *Engine) Finish(ctx context.Context, state *domain.SessionState, templateID, patientIdentifier string) (*domain.FinalizedRecord, error) {
	if err := requireBound(state); err != nil {
		return nil, err
	}
	if !state.AtTerminal() {
		return nil, fmt.Errorf("%w: at step %d of %d", domain.ErrNotAtTerminalStep, state.CurrentStep, state.StepCount())
	}

	if templateID == "" {
		templateID = state.ProtocolID
	}

	record := &domain.FinalizedRecord{
		ID:                e.newID(),
		TemplateID:        templateID,
		PatientIdentifier: patientIdentifier,
		Timestamp:         e.now(),
		Data:              state.Fields.Clone(),
		Status:            domain.StatusCompleted,
	}
	if record.Data == nil {
		record.Data = domain.NewValues()
	}

	e.logger.Debug("session finished",
		"protocol", state.ProtocolID,
		"record", record.ID,
		"patient", patientIdentifier)

	e.emitStepLeave(ctx, state, state.CurrentStep, domain.DirectionForward)
	e.emitSessionFinish(ctx, state, record)

	return record, nil
}

// Progress returns the completion fraction CurrentStep/N, clamped to 1.
// An unbound state reports 0.
func (e *Engine) Progress(state *domain.SessionState) float64 {
	return Progress(state)
}

// Progress is the engine-independent form of Engine.Progress.
func Progress(state *domain.SessionState) float64 {
	if state == nil {
		return 0
	}
	n := state.StepCount()
	if n == 0 {
		return 0
	}
	p := float64(state.CurrentStep) / float64(n)
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}
