// Package http exposes the session engine over a stateless JSON API.
// Clients hold the session state and send it with every operation.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/manas360/stepwise/internal/logging"
	"github.com/manas360/stepwise/pkg/domain"
	"github.com/manas360/stepwise/pkg/ports"
	"github.com/manas360/stepwise/pkg/report"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Engine is the part of stepwise.Engine the API needs.
type Engine interface {
	Protocols(ctx context.Context) ([]*domain.StepSchema, error)
	Protocol(ctx context.Context, id string) (*domain.StepSchema, error)
	Start(ctx context.Context, protocolID string, patient domain.Patient) (*domain.SessionState, error)
	Rebind(ctx context.Context, state *domain.SessionState) (*domain.SessionState, error)
	SetField(state *domain.SessionState, path string, value any) (*domain.SessionState, error)
	ToggleOption(state *domain.SessionState, path, optionID string) (*domain.SessionState, error)
	Advance(ctx context.Context, state *domain.SessionState) (*domain.SessionState, error)
	Retreat(ctx context.Context, state *domain.SessionState) (*domain.SessionState, error)
	JumpTo(ctx context.Context, state *domain.SessionState, index int) (*domain.SessionState, error)
	Progress(state *domain.SessionState) float64
	Check(state *domain.SessionState) error
	Finish(ctx context.Context, state *domain.SessionState) (*domain.FinalizedRecord, error)
	Records(ctx context.Context, filter ports.RecordFilter) ([]*domain.FinalizedRecord, error)
	Record(ctx context.Context, id string) (*domain.FinalizedRecord, error)
	DeleteRecord(ctx context.Context, id string) error
	Report(ctx context.Context, record *domain.FinalizedRecord) (*report.Report, error)
	Watch(ctx context.Context) (<-chan string, error)
}

// Server holds the handlers.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	version   string
	metrics   http.Handler
	logger    *slog.Logger
	sessionID func() string
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = strings.TrimSpace(v)
	}
}

// WithSessionIDGenerator overrides how new sessions are named.
func WithSessionIDGenerator(gen func() string) Option {
	return func(s *Server) {
		s.sessionID = gen
	}
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:    engine,
		version:   "dev",
		logger:    logging.NewNop(),
		sessionID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/protocols", func(r chi.Router) {
		r.Get("/", s.ListProtocols)
		r.Get("/{id}", s.GetProtocol)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.StartSession)
		r.Post("/fields", s.SetField)
		r.Post("/toggle", s.ToggleOption)
		r.Post("/advance", s.Advance)
		r.Post("/retreat", s.Retreat)
		r.Post("/jump", s.JumpTo)
		r.Post("/check", s.Check)
		r.Post("/finish", s.Finish)
	})

	r.Route("/records", func(r chi.Router) {
		r.Get("/", s.ListRecords)
		r.Get("/{id}", s.GetRecord)
		r.Get("/{id}/report", s.GetReport)
		r.Delete("/{id}", s.DeleteRecord)
	})

	r.Get("/events", s.SubscribeEvents)

	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "stepwise-http",
		"version": s.version,
	})
}

// ListProtocols handles GET /protocols.
func (s *Server) ListProtocols(w http.ResponseWriter, r *http.Request) {
	schemas, err := s.Engine.Protocols(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]ProtocolSummary, len(schemas))
	for i, sc := range schemas {
		out[i] = summarize(sc)
	}
	s.writeJSON(w, http.StatusOK, out)
}

// GetProtocol handles GET /protocols/{id}.
func (s *Server) GetProtocol(w http.ResponseWriter, r *http.Request) {
	sc, err := s.Engine.Protocol(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sc)
}

// StartSession handles POST /sessions.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body StartRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	state, err := s.Engine.Start(r.Context(), body.ProtocolID, body.Patient)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, s.view(s.sessionID(), state, nil))
}

// SetField handles POST /sessions/fields.
func (s *Server) SetField(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(_ context.Context, req SessionRequest, state *domain.SessionState) (*domain.SessionState, error) {
		return s.Engine.SetField(state, req.Path, req.Value)
	})
}

// ToggleOption handles POST /sessions/toggle.
func (s *Server) ToggleOption(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(_ context.Context, req SessionRequest, state *domain.SessionState) (*domain.SessionState, error) {
		return s.Engine.ToggleOption(state, req.Path, req.Option)
	})
}

// Advance handles POST /sessions/advance.
func (s *Server) Advance(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(ctx context.Context, _ SessionRequest, state *domain.SessionState) (*domain.SessionState, error) {
		return s.Engine.Advance(ctx, state)
	})
}

// Retreat handles POST /sessions/retreat.
func (s *Server) Retreat(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(ctx context.Context, _ SessionRequest, state *domain.SessionState) (*domain.SessionState, error) {
		return s.Engine.Retreat(ctx, state)
	})
}

// JumpTo handles POST /sessions/jump.
func (s *Server) JumpTo(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(ctx context.Context, req SessionRequest, state *domain.SessionState) (*domain.SessionState, error) {
		return s.Engine.JumpTo(ctx, state, req.Step)
	})
}

// Check handles POST /sessions/check. Issues never block the session.
func (s *Server) Check(w http.ResponseWriter, r *http.Request) {
	req, state, ok := s.bind(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.view(req.SessionID, state, s.Engine.Check(state)))
}

// Finish handles POST /sessions/finish.
func (s *Server) Finish(w http.ResponseWriter, r *http.Request) {
	req, state, ok := s.bind(w, r)
	if !ok {
		return
	}
	record, err := s.Engine.Finish(r.Context(), state)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.SessionID != "" {
		s.broadcast(req.SessionID, map[string]any{"finished": true, "record_id": record.ID})
	}
	s.writeJSON(w, http.StatusCreated, record)
}

// ListRecords handles GET /records?patient=&template=&limit=.
func (s *Server) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ports.RecordFilter{
		PatientIdentifier: q.Get("patient"),
		TemplateID:        q.Get("template"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid limit %q", raw)})
			return
		}
		filter.Limit = limit
	}

	records, err := s.Engine.Records(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

// GetRecord handles GET /records/{id}.
func (s *Server) GetRecord(w http.ResponseWriter, r *http.Request) {
	record, err := s.Engine.Record(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

// GetReport handles GET /records/{id}/report?format=json|text|markdown.
func (s *Server) GetReport(w http.ResponseWriter, r *http.Request) {
	record, err := s.Engine.Record(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rep, err := s.Engine.Report(r.Context(), record)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		s.writeJSON(w, http.StatusOK, rep)
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := report.WriteText(w, rep); err != nil {
			s.logger.Error("Report write failed", "err", err)
		}
	case "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = io.WriteString(w, report.Markdown(rep))
	default:
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("unknown format %q", format)})
	}
}

// DeleteRecord handles DELETE /records/{id}.
func (s *Server) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.DeleteRecord(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubscribeEvents handles GET /events (SSE). With session_id it streams state
// diffs of that session; without it streams protocol document changes.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	var events <-chan string
	if sessionID == "" {
		watched, err := s.Engine.Watch(r.Context())
		if err != nil {
			s.writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: err.Error()})
			return
		}
		events = watched
		s.logger.Info("SSE: Subscribing to protocol changes")
	} else {
		ch, cancel := s.Streams.Subscribe(sessionID)
		defer cancel()
		events = ch
		s.logger.Info("SSE: Subscribing to session updates", "session_id", sessionID)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// -- Helpers --

type mutation func(ctx context.Context, req SessionRequest, state *domain.SessionState) (*domain.SessionState, error)

func (s *Server) mutate(w http.ResponseWriter, r *http.Request, op mutation) {
	req, state, ok := s.bind(w, r)
	if !ok {
		return
	}
	next, err := op(r.Context(), req, state)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.SessionID != "" {
		if diff := domain.Diff(state, next); diff != nil {
			s.broadcast(req.SessionID, diff)
		}
	}
	s.writeJSON(w, http.StatusOK, s.view(req.SessionID, next, nil))
}

// bind decodes a SessionRequest and attaches the catalog schema to its state.
func (s *Server) bind(w http.ResponseWriter, r *http.Request) (SessionRequest, *domain.SessionState, bool) {
	var req SessionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return req, nil, false
	}
	if req.State == nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "state is required"})
		return req, nil, false
	}
	state, err := s.Engine.Rebind(r.Context(), req.State)
	if err != nil {
		s.writeError(w, r, err)
		return req, nil, false
	}
	return req, state, true
}

func (s *Server) view(sessionID string, state *domain.SessionState, checkErr error) SessionView {
	v := SessionView{
		SessionID: sessionID,
		State:     state,
		Progress:  s.Engine.Progress(state),
		Terminal:  state.AtTerminal(),
		Issues:    issuesFrom(checkErr),
	}
	if step, ok := state.Step(); ok {
		v.Step = &step
	}
	return v
}

func (s *Server) broadcast(sessionID string, payload any) {
	bytes, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("Failed to encode stream payload", "session_id", sessionID, "err", err)
		return
	}
	s.Streams.Broadcast(sessionID, string(bytes))
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownProtocol), errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAtFirstStep),
		errors.Is(err, domain.ErrAtTerminalStep),
		errors.Is(err, domain.ErrNotAtTerminalStep),
		errors.Is(err, domain.ErrDuplicateRecord):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStepOutOfRange),
		errors.Is(err, domain.ErrInvalidFieldPath),
		errors.Is(err, domain.ErrUnboundState):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "err", err)
	} else {
		s.logger.Debug("Request rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}
