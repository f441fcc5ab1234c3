package engine_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/manas360/stepwise/internal/engine"
	"github.com/manas360/stepwise/pkg/domain"
	"github.com/manas360/stepwise/pkg/dsl"
	"github.com/manas360/stepwise/pkg/protocols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)

func newTestEngine(opts ...engine.EngineOption) *engine.Engine {
	base := []engine.EngineOption{
		engine.WithClock(func() time.Time { return fixedNow }),
		engine.WithIDGenerator(func() string { return "rec-1" }),
	}
	return engine.NewEngine(append(base, opts...)...)
}

func linearSchema(t *testing.T, n int) *domain.StepSchema {
	t.Helper()
	b := dsl.New(fmt.Sprintf("linear_%d", n))
	for i := 1; i <= n; i++ {
		b.Step(fmt.Sprintf("s%d", i), fmt.Sprintf("Step %d", i)).Text(fmt.Sprintf("f%d", i), "")
	}
	s, err := b.Build()
	require.NoError(t, err)
	return s
}

func cognitive(t *testing.T) *domain.StepSchema {
	t.Helper()
	for _, p := range protocols.All() {
		if p.ProtocolID == protocols.CognitiveRestructuring {
			return p
		}
	}
	t.Fatal("cognitive restructuring protocol not registered")
	return nil
}

func advanceTo(t *testing.T, e *engine.Engine, state *domain.SessionState, index int) *domain.SessionState {
	t.Helper()
	ctx := context.Background()
	for state.CurrentStep < index {
		next, err := e.Advance(ctx, state)
		require.NoError(t, err)
		state = next
	}
	return state
}

func TestStart(t *testing.T) {
	e := newTestEngine()
	state, err := e.Start(context.Background(), cognitive(t), domain.Patient{ID: "p1", Name: "Asha"})
	require.NoError(t, err)

	assert.Equal(t, protocols.CognitiveRestructuring, state.ProtocolID)
	assert.Equal(t, 1, state.CurrentStep)
	assert.Equal(t, fixedNow, state.StartedAt)
	assert.Equal(t, []string{"emotions", "emotionsAfter"}, state.Fields.Keys())

	emotions, ok := state.Fields.Get("emotions")
	require.True(t, ok)
	assert.Equal(t, map[string]any{
		"anxiety": "", "sadness": "", "anger": "", "shame": "", "other": "", "otherName": "",
	}, emotions.(*domain.Values).ToMap())
}

func TestStart_InvalidSchema(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	_, err := e.Start(ctx, &domain.StepSchema{ProtocolID: "empty"}, domain.Patient{})
	assert.ErrorIs(t, err, domain.ErrInvalidSchema)

	misplaced := &domain.StepSchema{ProtocolID: "bad", Steps: []domain.StepDefinition{
		{Index: 1, Terminal: true},
		{Index: 2},
	}}
	_, err = e.Start(ctx, misplaced, domain.Patient{})
	assert.ErrorIs(t, err, domain.ErrInvalidSchema)
}

func TestProgress(t *testing.T) {
	e := newTestEngine()
	for n := 1; n <= 8; n++ {
		state, err := e.Start(context.Background(), linearSchema(t, n), domain.Patient{})
		require.NoError(t, err)
		for k := 1; k <= n; k++ {
			state = advanceTo(t, e, state, k)
			assert.InDelta(t, float64(k)/float64(n), e.Progress(state), 1e-9, "n=%d k=%d", n, k)
		}
		assert.Equal(t, 1.0, e.Progress(state))
	}

	cr, err := e.Start(context.Background(), cognitive(t), domain.Patient{})
	require.NoError(t, err)
	cr = advanceTo(t, e, cr, 3)
	assert.Equal(t, 0.375, e.Progress(cr))

	assert.Equal(t, 0.0, engine.Progress(nil))
	assert.Equal(t, 0.0, engine.Progress(&domain.SessionState{CurrentStep: 3}))
	over := cr.Clone()
	over.CurrentStep = 12
	assert.Equal(t, 1.0, engine.Progress(over))
}

func TestAdvanceRetreat_RoundTrip(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	state, err := e.Start(ctx, linearSchema(t, 5), domain.Patient{})
	require.NoError(t, err)
	state = advanceTo(t, e, state, 3)
	state, err = e.SetField(state, "f3", "kept")
	require.NoError(t, err)

	forward, err := e.Advance(ctx, state)
	require.NoError(t, err)
	back, err := e.Retreat(ctx, forward)
	require.NoError(t, err)

	assert.Equal(t, state.CurrentStep, back.CurrentStep)
	assert.Equal(t, state.Fields, back.Fields)

	back2, err := e.Retreat(ctx, state)
	require.NoError(t, err)
	again, err := e.Advance(ctx, back2)
	require.NoError(t, err)
	assert.Equal(t, state.CurrentStep, again.CurrentStep)
	assert.Equal(t, state.Fields, again.Fields)
}

func TestBoundaries(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	state, err := e.Start(ctx, linearSchema(t, 3), domain.Patient{})
	require.NoError(t, err)

	_, err = e.Retreat(ctx, state)
	assert.ErrorIs(t, err, domain.ErrAtFirstStep)

	_, err = e.Finish(ctx, state, "", "")
	assert.ErrorIs(t, err, domain.ErrNotAtTerminalStep)

	last := advanceTo(t, e, state, 3)
	_, err = e.Advance(ctx, last)
	assert.ErrorIs(t, err, domain.ErrAtTerminalStep)
	assert.Equal(t, 3, last.CurrentStep, "failed transition leaves state unchanged")
}

func TestSingleStepProtocol(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	state, err := e.Start(ctx, linearSchema(t, 1), domain.Patient{})
	require.NoError(t, err)

	_, err = e.Advance(ctx, state)
	assert.ErrorIs(t, err, domain.ErrAtTerminalStep)
	_, err = e.Retreat(ctx, state)
	assert.ErrorIs(t, err, domain.ErrAtFirstStep)

	rec, err := e.Finish(ctx, state, "", "anon")
	require.NoError(t, err)
	assert.Equal(t, "linear_1", rec.TemplateID)
}

func TestFinish_OnlyAtTerminal(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	for n := 1; n <= 8; n++ {
		state, err := e.Start(ctx, linearSchema(t, n), domain.Patient{})
		require.NoError(t, err)
		for k := 1; k <= n; k++ {
			state = advanceTo(t, e, state, k)
			_, err := e.Finish(ctx, state, "tpl", "p")
			if k == n {
				assert.NoError(t, err, "n=%d", n)
			} else {
				assert.ErrorIs(t, err, domain.ErrNotAtTerminalStep, "n=%d k=%d", n, k)
			}
		}
	}
}

func TestJumpTo(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	state, err := e.Start(ctx, linearSchema(t, 5), domain.Patient{})
	require.NoError(t, err)

	jumped, err := e.JumpTo(ctx, state, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, jumped.CurrentStep)
	assert.Equal(t, []int{1, 4}, jumped.History)

	same, err := e.JumpTo(ctx, jumped, 4)
	require.NoError(t, err)
	assert.Equal(t, jumped.History, same.History)

	for _, idx := range []int{0, -1, 6} {
		_, err = e.JumpTo(ctx, state, idx)
		assert.ErrorIs(t, err, domain.ErrStepOutOfRange)
	}
}

func TestSetField_LastWriteWins(t *testing.T) {
	e := newTestEngine()
	state, err := e.Start(context.Background(), cognitive(t), domain.Patient{})
	require.NoError(t, err)

	s1, err := e.SetField(state, "situation", "first")
	require.NoError(t, err)
	s2, err := e.SetField(s1, "situation", "second")
	require.NoError(t, err)

	got, _ := s2.Fields.Get("situation")
	assert.Equal(t, "second", got)

	_, touched := state.Fields.Get("situation")
	assert.False(t, touched, "input state must not be mutated")
	first, _ := s1.Fields.Get("situation")
	assert.Equal(t, "first", first)
}

func TestSetField_AnyStepAnyField(t *testing.T) {
	e := newTestEngine()
	state, err := e.Start(context.Background(), cognitive(t), domain.Patient{})
	require.NoError(t, err)

	next, err := e.SetField(state, "alternativeThought", "written early")
	require.NoError(t, err)
	assert.Equal(t, 1, next.CurrentStep)

	next, err = e.SetField(next, "unknownField", 42)
	require.NoError(t, err)
	got, _ := next.Fields.Get("unknownField")
	assert.Equal(t, 42, got)
}

func TestSetField_InvalidPaths(t *testing.T) {
	e := newTestEngine()
	state, err := e.Start(context.Background(), cognitive(t), domain.Patient{})
	require.NoError(t, err)
	state, err = e.SetField(state, "situation", "text")
	require.NoError(t, err)

	for _, path := range []string{"", "emotions.", "situation.nested"} {
		_, err := e.SetField(state, path, "x")
		assert.ErrorIs(t, err, domain.ErrInvalidFieldPath, path)
	}
}

func TestToggleOption(t *testing.T) {
	e := newTestEngine()
	state, err := e.Start(context.Background(), cognitive(t), domain.Patient{})
	require.NoError(t, err)

	s1, err := e.ToggleOption(state, "distortions", "labeling")
	require.NoError(t, err)
	s2, err := e.ToggleOption(s1, "distortions", "catastrophizing")
	require.NoError(t, err)
	s3, err := e.ToggleOption(s2, "distortions", "labeling")
	require.NoError(t, err)

	got, _ := s2.Fields.Get("distortions")
	assert.Equal(t, []string{"labeling", "catastrophizing"}, got)
	got, _ = s3.Fields.Get("distortions")
	assert.Equal(t, []string{"catastrophizing"}, got)

	withText, err := e.SetField(state, "situation", "text")
	require.NoError(t, err)
	_, err = e.ToggleOption(withText, "situation", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidFieldPath)
}

func TestCognitiveRestructuringScenario(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	state, err := e.Start(ctx, cognitive(t), domain.Patient{Name: "Asha"})
	require.NoError(t, err)

	state, err = e.SetField(state, "situation", "Boss criticized me")
	require.NoError(t, err)
	state, err = e.Advance(ctx, state)
	require.NoError(t, err)
	state, err = e.SetField(state, "thoughts", "I'm incompetent")
	require.NoError(t, err)
	state, err = e.Advance(ctx, state)
	require.NoError(t, err)
	state, err = e.SetField(state, "emotions.anxiety", "6")
	require.NoError(t, err)

	state = advanceTo(t, e, state, 8)
	assert.Equal(t, 1.0, e.Progress(state))

	rec, err := e.Finish(ctx, state, protocols.CognitiveRestructuring, "Asha")
	require.NoError(t, err)

	assert.Equal(t, "rec-1", rec.ID)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
	assert.Equal(t, fixedNow, rec.Timestamp)
	assert.Equal(t, "Asha", rec.PatientIdentifier)
	assert.Equal(t, protocols.CognitiveRestructuring, rec.TemplateID)

	situation, _ := rec.Data.Get("situation")
	assert.Equal(t, "Boss criticized me", situation)
	thoughts, _ := rec.Data.Get("thoughts")
	assert.Equal(t, "I'm incompetent", thoughts)
	emotions, _ := rec.Data.Get("emotions")
	assert.Equal(t, map[string]any{
		"anxiety": "6", "sadness": "", "anger": "", "shame": "", "other": "", "otherName": "",
	}, emotions.(*domain.Values).ToMap())

	assert.Equal(t, state.Fields.Keys(), rec.Data.Keys())
}

func TestFinish_RecordIsIsolated(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	state, err := e.Start(ctx, cognitive(t), domain.Patient{})
	require.NoError(t, err)
	state, err = e.SetField(state, "emotions.anxiety", "3")
	require.NoError(t, err)
	state = advanceTo(t, e, state, 8)

	rec, err := e.Finish(ctx, state, "", "")
	require.NoError(t, err)

	require.NoError(t, state.Fields.SetPath(domain.FieldPath{"emotions", "anxiety"}, "9"))
	state.Fields.Set("situation", "mutated later")

	got, _ := rec.Data.Lookup(domain.FieldPath{"emotions", "anxiety"})
	assert.Equal(t, "3", got)
	_, ok := rec.Data.Get("situation")
	assert.False(t, ok)
}

func TestCheck_NeverGates(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	state, err := e.Start(ctx, cognitive(t), domain.Patient{})
	require.NoError(t, err)
	assert.NoError(t, e.Check(state))

	state, err = e.SetField(state, "emotions.anxiety", "42")
	require.NoError(t, err)
	state, err = e.SetField(state, "distortions", []string{"mind-reading"})
	require.NoError(t, err)

	err = e.Check(state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "emotions.anxiety")
	assert.Contains(t, err.Error(), "mind-reading")

	next, err := e.Advance(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, 2, next.CurrentStep)
}

func TestUnanswered(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	state, err := e.Start(ctx, cognitive(t), domain.Patient{})
	require.NoError(t, err)
	state = advanceTo(t, e, state, 4)

	missing, err := e.Unanswered(state)
	require.NoError(t, err)
	assert.Equal(t, []string{"evidenceAgainst", "evidenceFor"}, missing)
}

func TestUnboundState(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	unbound := &domain.SessionState{ProtocolID: "x", CurrentStep: 1, Fields: domain.NewValues()}

	_, err := e.Advance(ctx, unbound)
	assert.ErrorIs(t, err, domain.ErrUnboundState)
	_, err = e.Finish(ctx, unbound, "", "")
	assert.ErrorIs(t, err, domain.ErrUnboundState)
	assert.ErrorIs(t, e.Check(unbound), domain.ErrUnboundState)

	_, err = e.SetField(unbound, "a", "b")
	assert.NoError(t, err, "field writes do not need the schema")
}
