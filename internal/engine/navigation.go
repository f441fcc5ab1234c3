package engine

import (
	"context"
	"fmt"

	"github.com/manas360/stepwise/pkg/domain"
)

// Advance moves to the next step. There is no completeness gate: a step may
// be left with every field blank.
func (e *Engine) Advance(ctx context.Context, state *domain.SessionState) (*domain.SessionState, error) {
	if err := requireBound(state); err != nil {
		return nil, err
	}
	if state.CurrentStep >= state.StepCount() {
		return nil, fmt.Errorf("%w: step %d of %d", domain.ErrAtTerminalStep, state.CurrentStep, state.StepCount())
	}
	return e.moveTo(ctx, state, state.CurrentStep+1, domain.DirectionForward), nil
}

// Retreat moves to the previous step. Answers are kept.
func (e *Engine) Retreat(ctx context.Context, state *domain.SessionState) (*domain.SessionState, error) {
	if err := requireBound(state); err != nil {
		return nil, err
	}
	if state.CurrentStep <= 1 {
		return nil, fmt.Errorf("%w: step %d of %d", domain.ErrAtFirstStep, state.CurrentStep, state.StepCount())
	}
	return e.moveTo(ctx, state, state.CurrentStep-1, domain.DirectionBackward), nil
}

// JumpTo moves directly to any step in 1..N.
// Jumping to the current step returns an unchanged copy and emits nothing.
func (e *Engine) JumpTo(ctx context.Context, state *domain.SessionState, index int) (*domain.SessionState, error) {
	if err := requireBound(state); err != nil {
		return nil, err
	}
	if index < 1 || index > state.StepCount() {
		return nil, fmt.Errorf("%w: %d not in 1..%d", domain.ErrStepOutOfRange, index, state.StepCount())
	}
	if index == state.CurrentStep {
		return state.Clone(), nil
	}
	return e.moveTo(ctx, state, index, domain.DirectionJump), nil
}

func (e *Engine) moveTo(ctx context.Context, state *domain.SessionState, index int, dir domain.Direction) *domain.SessionState {
	e.emitStepLeave(ctx, state, state.CurrentStep, dir)

	next := state.Clone()
	next.CurrentStep = index
	next.History = append(next.History, index)

	e.logger.Debug("step transition",
		"protocol", state.ProtocolID,
		"from", state.CurrentStep,
		"to", index,
		"direction", dir)

	e.emitStepEnter(ctx, next, dir)
	return next
}
