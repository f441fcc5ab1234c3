package stepwise

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/manas360/stepwise/internal/engine"
	"github.com/manas360/stepwise/internal/logging"
	loamAdapter "github.com/manas360/stepwise/pkg/adapters/loam"
	"github.com/manas360/stepwise/pkg/adapters/memory"
	"github.com/manas360/stepwise/pkg/domain"
	"github.com/manas360/stepwise/pkg/ports"
	"github.com/manas360/stepwise/pkg/protocols"
	"github.com/manas360/stepwise/pkg/recorder"
	"github.com/manas360/stepwise/pkg/report"
)

// Aliases so callers rarely need to import pkg/domain.
type (
	SessionState    = domain.SessionState
	StepSchema      = domain.StepSchema
	FinalizedRecord = domain.FinalizedRecord
	Patient         = domain.Patient
)

// Engine is the high-level entry point for the stepwise library.
// It binds the protocol engine to a catalog and, optionally, a recorder.
type Engine struct {
	core     *engine.Engine
	catalog  ports.Catalog
	recorder *recorder.Recorder
	store    ports.RecordStore

	protocolsDir string
	hooks        domain.LifecycleHooks
	logger       *slog.Logger
	now          func() time.Time
	newID        func() string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithCatalog injects a custom catalog. The built-in protocols are used otherwise.
func WithCatalog(c ports.Catalog) Option {
	return func(e *Engine) {
		e.catalog = c
	}
}

// WithProtocolsDir loads protocols from a Loam repository at dir.
func WithProtocolsDir(dir string) Option {
	return func(e *Engine) {
		e.protocolsDir = dir
	}
}

// WithStore records finished sessions into store.
func WithStore(store ports.RecordStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithRecorder records finished sessions through r. It takes precedence over WithStore.
func WithRecorder(r *recorder.Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator overrides record ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		e.newID = gen
	}
}

// New initializes a new Engine.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	if eng.catalog == nil {
		if eng.protocolsDir != "" {
			c, err := loamAdapter.Open(eng.protocolsDir)
			if err != nil {
				return nil, err
			}
			eng.catalog = c
		} else {
			c, err := memory.NewCatalog(protocols.All()...)
			if err != nil {
				return nil, fmt.Errorf("failed to load built-in protocols: %w", err)
			}
			eng.catalog = c
		}
	}

	if eng.recorder == nil && eng.store != nil {
		eng.recorder = recorder.New(eng.store, recorder.WithLogger(eng.logger))
	}

	coreOpts := []engine.EngineOption{
		engine.WithLifecycleHooks(eng.hooks),
		engine.WithLogger(eng.logger),
	}
	if eng.now != nil {
		coreOpts = append(coreOpts, engine.WithClock(eng.now))
	}
	if eng.newID != nil {
		coreOpts = append(coreOpts, engine.WithIDGenerator(eng.newID))
	}
	eng.core = engine.NewEngine(coreOpts...)

	return eng, nil
}

// Protocol returns the schema registered under id.
func (e *Engine) Protocol(ctx context.Context, id string) (*domain.StepSchema, error) {
	return e.catalog.Lookup(ctx, id)
}

// Protocols returns every schema in the catalog, ordered by ID.
func (e *Engine) Protocols(ctx context.Context) ([]*domain.StepSchema, error) {
	ids, err := e.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list protocols: %w", err)
	}
	out := make([]*domain.StepSchema, 0, len(ids))
	for _, id := range ids {
		s, err := e.catalog.Lookup(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Start looks up a protocol and opens a session on its first step.
func (e *Engine) Start(ctx context.Context, protocolID string, patient domain.Patient) (*domain.SessionState, error) {
	schema, err := e.catalog.Lookup(ctx, protocolID)
	if err != nil {
		return nil, err
	}
	return e.core.Start(ctx, schema, patient)
}

// Rebind attaches the catalog schema to a deserialized state.
// The cursor must still fit the schema.
func (e *Engine) Rebind(ctx context.Context, state *domain.SessionState) (*domain.SessionState, error) {
	if state == nil {
		return nil, fmt.Errorf("%w: nil state", domain.ErrUnboundState)
	}
	schema, err := e.catalog.Lookup(ctx, state.ProtocolID)
	if err != nil {
		return nil, err
	}
	if state.CurrentStep < 1 || state.CurrentStep > schema.Len() {
		return nil, fmt.Errorf("%w: step %d of %d", domain.ErrStepOutOfRange, state.CurrentStep, schema.Len())
	}
	next := state.Clone()
	if next.Fields.Len() == 0 {
		next.Fields = domain.InitialValues(schema)
	}
	next.Schema = schema
	return next, nil
}

// SetField stores value at a dotted path.
func (e *Engine) SetField(state *domain.SessionState, path string, value any) (*domain.SessionState, error) {
	return e.core.SetField(state, path, value)
}

// ToggleOption adds or removes optionID in a multi-select answer.
func (e *Engine) ToggleOption(state *domain.SessionState, path, optionID string) (*domain.SessionState, error) {
	return e.core.ToggleOption(state, path, optionID)
}

// Advance moves to the next step.
func (e *Engine) Advance(ctx context.Context, state *domain.SessionState) (*domain.SessionState, error) {
	return e.core.Advance(ctx, state)
}

// Retreat moves to the previous step.
func (e *Engine) Retreat(ctx context.Context, state *domain.SessionState) (*domain.SessionState, error) {
	return e.core.Retreat(ctx, state)
}

// JumpTo moves to any step.
func (e *Engine) JumpTo(ctx context.Context, state *domain.SessionState, index int) (*domain.SessionState, error) {
	return e.core.JumpTo(ctx, state, index)
}

// Progress returns CurrentStep / N.
func (e *Engine) Progress(state *domain.SessionState) float64 {
	return e.core.Progress(state)
}

// Check reports answers that do not fit their field. It never blocks navigation.
func (e *Engine) Check(state *domain.SessionState) error {
	return e.core.Check(state)
}

// Unanswered lists the empty fields of the current step.
func (e *Engine) Unanswered(state *domain.SessionState) ([]string, error) {
	return e.core.Unanswered(state)
}

// Finish closes the session into a record and, when a recorder is configured,
// persists it. The record is returned even if persisting fails.
func (e *Engine) Finish(ctx context.Context, state *domain.SessionState) (*domain.FinalizedRecord, error) {
	if state == nil {
		return nil, fmt.Errorf("%w: nil state", domain.ErrUnboundState)
	}
	record, err := e.core.Finish(ctx, state, state.ProtocolID, state.Patient.Identifier())
	if err != nil {
		return nil, err
	}
	if e.recorder != nil {
		if err := e.recorder.Record(ctx, record); err != nil {
			return record, err
		}
	}
	return record, nil
}

// History returns a patient's records, newest first.
func (e *Engine) History(ctx context.Context, patientIdentifier string, limit int) ([]*domain.FinalizedRecord, error) {
	if e.recorder == nil {
		return nil, fmt.Errorf("no record store configured")
	}
	return e.recorder.History(ctx, patientIdentifier, limit)
}

// Records lists stored records matching filter, newest first.
func (e *Engine) Records(ctx context.Context, filter ports.RecordFilter) ([]*domain.FinalizedRecord, error) {
	if e.recorder == nil {
		return nil, fmt.Errorf("no record store configured")
	}
	return e.recorder.List(ctx, filter)
}

// Record returns one stored record.
func (e *Engine) Record(ctx context.Context, id string) (*domain.FinalizedRecord, error) {
	if e.recorder == nil {
		return nil, fmt.Errorf("no record store configured")
	}
	return e.recorder.Get(ctx, id)
}

// DeleteRecord removes one stored record.
func (e *Engine) DeleteRecord(ctx context.Context, id string) error {
	if e.recorder == nil {
		return fmt.Errorf("no record store configured")
	}
	return e.recorder.Delete(ctx, id)
}

// Report builds the display projection of a record. Records of protocols no
// longer in the catalog are rendered without a schema.
func (e *Engine) Report(ctx context.Context, record *domain.FinalizedRecord) (*report.Report, error) {
	schema, err := e.catalog.Lookup(ctx, record.TemplateID)
	if err != nil {
		e.logger.Debug("Rendering report without schema", "template", record.TemplateID, "err", err)
		schema = nil
	}
	return report.Build(record, schema), nil
}

// Watch returns a channel that signals when a protocol document changes.
// Returns error if the catalog does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	if w, ok := e.catalog.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current catalog does not support watching")
}

// Catalog returns the underlying catalog.
func (e *Engine) Catalog() ports.Catalog {
	return e.catalog
}

// Recorder returns the recorder, or nil when sessions are not persisted.
func (e *Engine) Recorder() *recorder.Recorder {
	return e.recorder
}
