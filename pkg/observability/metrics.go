// Package observability exposes engine lifecycle events as Prometheus metrics
// and structured log lines.
package observability

import (
	"context"
	"net/http"

	"github.com/manas360/stepwise/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors fed by engine hooks and the recorder.
type Metrics struct {
	registry *prometheus.Registry

	sessionsStarted  *prometheus.CounterVec
	sessionsFinished *prometheus.CounterVec
	stepVisits       *prometheus.CounterVec
	sessionDuration  *prometheus.HistogramVec
	recordsStored    *prometheus.CounterVec
}

// NewMetrics creates and registers the stepwise collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepwise_sessions_started_total",
				Help: "Total number of sessions started",
			},
			[]string{"protocol"},
		),
		sessionsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepwise_sessions_finished_total",
				Help: "Total number of sessions finished",
			},
			[]string{"protocol"},
		),
		stepVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepwise_step_visits_total",
				Help: "Total number of step entries",
			},
			[]string{"protocol", "step", "direction"},
		),
		sessionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stepwise_session_duration_seconds",
				Help:    "Wall time from session start to finish",
				Buckets: []float64{60, 300, 900, 1800, 2700, 3600, 5400},
			},
			[]string{"protocol"},
		),
		recordsStored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepwise_records_stored_total",
				Help: "Total number of finalized records persisted",
			},
			[]string{"template"},
		),
	}
	m.registry.MustRegister(
		m.sessionsStarted,
		m.sessionsFinished,
		m.stepVisits,
		m.sessionDuration,
		m.recordsStored,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(_ context.Context, e *domain.SessionEvent) {
			m.sessionsStarted.WithLabelValues(e.ProtocolID).Inc()
		},
		OnStepEnter: func(_ context.Context, e *domain.StepEvent) {
			m.stepVisits.WithLabelValues(e.ProtocolID, stepLabel(e), string(e.Direction)).Inc()
		},
		OnSessionFinish: func(_ context.Context, e *domain.SessionEvent) {
			m.sessionsFinished.WithLabelValues(e.ProtocolID).Inc()
			if e.Duration > 0 {
				m.sessionDuration.WithLabelValues(e.ProtocolID).Observe(e.Duration.Seconds())
			}
		},
	}
}

// RecordStored counts a persisted record. It fits recorder.WithRecordedHook.
func (m *Metrics) RecordStored(rec *domain.FinalizedRecord) {
	m.recordsStored.WithLabelValues(rec.TemplateID).Inc()
}

func stepLabel(e *domain.StepEvent) string {
	if e.StepID != "" {
		return e.StepID
	}
	return "unknown"
}
