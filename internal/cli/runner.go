// Package cli implements the interactive terminal session used by the
// stepwise command.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/manas360/stepwise"
	"github.com/manas360/stepwise/internal/logging"
	"github.com/manas360/stepwise/pkg/domain"
	"github.com/manas360/stepwise/pkg/report"
	"github.com/manas360/stepwise/pkg/schema"
)

const barWidth = 20

// Result is what a run leaves behind. Record is nil when the user quit.
type Result struct {
	State  *domain.SessionState
	Record *domain.FinalizedRecord
}

// Runner drives one session from line-oriented input.
type Runner struct {
	engine *stepwise.Engine
	in     io.Reader
	out    io.Writer
	render func(string) (string, error)
	logger *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRenderer renders the final report as Markdown through fn
// instead of plain text.
func WithRenderer(fn func(string) (string, error)) RunnerOption {
	return func(r *Runner) {
		r.render = fn
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a runner reading commands from in and writing to out.
func NewRunner(engine *stepwise.Engine, in io.Reader, out io.Writer, opts ...RunnerOption) *Runner {
	r := &Runner{
		engine: engine,
		in:     in,
		out:    out,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run loops until the session is finished, the user quits or input ends.
// End of input counts as quitting.
func (r *Runner) Run(ctx context.Context, state *domain.SessionState) (*Result, error) {
	scanner := bufio.NewScanner(r.in)
	r.showStep(state)

	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			if err := scanner.Err(); err != nil && !IsInterrupted(err) {
				return &Result{State: state}, fmt.Errorf("failed to read input: %w", err)
			}
			return &Result{State: state}, nil
		}

		cmd, err := ParseCommand(scanner.Text())
		if err != nil {
			r.printError(err)
			continue
		}

		next, done, err := r.apply(ctx, state, cmd)
		if done != nil {
			return done, err
		}
		if err != nil {
			r.printError(err)
			continue
		}
		state = next
	}
}

// apply executes one command. A non-nil Result ends the run.
func (r *Runner) apply(ctx context.Context, state *domain.SessionState, cmd Command) (*domain.SessionState, *Result, error) {
	switch cmd.Kind {
	case CmdNone:
		return state, nil, nil
	case CmdHelp:
		fmt.Fprint(r.out, helpText)
		return state, nil, nil
	case CmdShow:
		r.showStep(state)
		return state, nil, nil
	case CmdQuit:
		fmt.Fprintln(r.out, ">>> Session closed without saving.")
		return state, &Result{State: state}, nil
	case CmdCheck:
		r.showIssues(state)
		return state, nil, nil
	case CmdFinish:
		return r.finish(ctx, state)
	}

	next, err := r.transition(ctx, state, cmd)
	if err != nil {
		return state, nil, err
	}
	if next.CurrentStep != state.CurrentStep {
		r.showStep(next)
	}
	return next, nil, nil
}

func (r *Runner) transition(ctx context.Context, state *domain.SessionState, cmd Command) (*domain.SessionState, error) {
	switch cmd.Kind {
	case CmdNext:
		return r.engine.Advance(ctx, state)
	case CmdBack:
		return r.engine.Retreat(ctx, state)
	case CmdGoto:
		return r.engine.JumpTo(ctx, state, cmd.Step)
	case CmdSet:
		return r.engine.SetField(state, cmd.Path, r.coerce(state, cmd.Path, cmd.Value))
	case CmdSelect, CmdDeselect:
		fp, err := domain.ParsePath(cmd.Path)
		if err != nil {
			return nil, err
		}
		selected := false
		if current, ok := state.Fields.Lookup(fp); ok {
			if ids, isList := current.([]string); isList {
				selected = slices.Contains(ids, cmd.Value)
			}
		}
		if selected == (cmd.Kind == CmdSelect) {
			return state, nil
		}
		return r.engine.ToggleOption(state, cmd.Path, cmd.Value)
	default:
		return nil, fmt.Errorf("unsupported command")
	}
}

func (r *Runner) finish(ctx context.Context, state *domain.SessionState) (*domain.SessionState, *Result, error) {
	record, err := r.engine.Finish(ctx, state)
	if record == nil {
		return state, nil, err
	}
	result := &Result{State: state, Record: record}
	if err != nil {
		r.logger.Error("Record was not saved", "record_id", record.ID, "err", err)
		fmt.Fprintf(r.out, ">>> Session completed but not saved: %v\n", err)
	} else {
		fmt.Fprintf(r.out, ">>> Session saved as %s.\n", record.ID)
	}

	rep, repErr := r.engine.Report(ctx, record)
	if repErr != nil {
		return state, result, errors.Join(err, repErr)
	}
	fmt.Fprintln(r.out)
	if r.render != nil {
		if rendered, renderErr := r.render(report.Markdown(rep)); renderErr == nil {
			fmt.Fprint(r.out, rendered)
			return state, result, err
		}
	}
	if writeErr := report.WriteText(r.out, rep); writeErr != nil {
		return state, result, errors.Join(err, writeErr)
	}
	return state, result, err
}

// coerce turns comma lists into selections for multi-select fields.
// Everything else is stored as typed.
func (r *Runner) coerce(state *domain.SessionState, path, raw string) any {
	if state.Schema == nil || strings.Contains(path, ".") {
		return raw
	}
	f, ok := state.Schema.Field(path)
	if !ok || f.Kind != domain.FieldMultiSelect {
		return raw
	}
	ids := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}

func (r *Runner) showStep(state *domain.SessionState) {
	step, ok := state.Step()
	if !ok {
		r.printError(fmt.Errorf("%w: no step %d", domain.ErrStepOutOfRange, state.CurrentStep))
		return
	}
	progress := r.engine.Progress(state)
	fmt.Fprintf(r.out, "\nStep %d of %d  %s %d%%\n", state.CurrentStep, state.StepCount(), progressBar(progress), int(progress*100))
	fmt.Fprintf(r.out, "%s\n", step.Title)
	if step.Description != "" {
		fmt.Fprintf(r.out, "%s\n", step.Description)
	}
	for _, f := range step.Fields {
		r.showField(state, f)
	}
	if step.Terminal {
		fmt.Fprintln(r.out, "\nLast step: type :finish to complete the session.")
	}
}

func (r *Runner) showField(state *domain.SessionState, f domain.FieldDescriptor) {
	label := f.Label
	if label == "" {
		label = report.Humanize(f.Name)
	}
	value, _ := state.Fields.Get(f.Name)

	switch f.Kind {
	case domain.FieldGroup:
		fmt.Fprintf(r.out, "\n  %s [%s]\n", label, f.Name)
		group, _ := value.(*domain.Values)
		for _, k := range f.Keys {
			v, _ := group.Get(k.Key)
			keyLabel := k.Label
			if keyLabel == "" {
				keyLabel = report.Humanize(k.Key)
			}
			fmt.Fprintf(r.out, "    %s.%s (%s) = %s\n", f.Name, k.Key, keyLabel, display(v))
		}
		if f.Other != nil {
			v, _ := group.Get(f.Other.ValueKey)
			fmt.Fprintf(r.out, "    %s.%s (other) = %s\n", f.Name, f.Other.ValueKey, display(v))
			if f.Other.LabelKey != "" {
				l, _ := group.Get(f.Other.LabelKey)
				fmt.Fprintf(r.out, "    %s.%s (other name) = %s\n", f.Name, f.Other.LabelKey, display(l))
			}
		}
	case domain.FieldMultiSelect:
		fmt.Fprintf(r.out, "\n  %s [%s]\n", label, f.Name)
		selected, _ := value.([]string)
		for _, o := range f.Options {
			mark := " "
			if slices.Contains(selected, o.ID) {
				mark = "x"
			}
			fmt.Fprintf(r.out, "    [%s] %s: %s\n", mark, o.ID, o.Label)
		}
	default:
		fmt.Fprintf(r.out, "\n  %s [%s] = %s\n", label, f.Name, display(value))
	}
	if f.Help != "" {
		fmt.Fprintf(r.out, "    %s\n", f.Help)
	}
}

func (r *Runner) showIssues(state *domain.SessionState) {
	err := r.engine.Check(state)
	if err == nil {
		fmt.Fprintln(r.out, ">>> No issues.")
		return
	}
	issues := schema.ValidationErrors(err)
	if len(issues) == 0 {
		r.printError(err)
		return
	}
	for _, issue := range issues {
		fmt.Fprintf(r.out, "  - %v\n", issue)
	}
}

func (r *Runner) printError(err error) {
	fmt.Fprintf(r.out, "! %v\n", err)
}

func progressBar(progress float64) string {
	filled := int(progress*barWidth + 0.5)
	filled = max(0, min(barWidth, filled))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled) + "]"
}

func display(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []string:
		return strings.Join(t, ", ")
	default:
		return fmt.Sprint(t)
	}
}
