package http

import (
	"errors"

	"github.com/manas360/stepwise/pkg/domain"
	"github.com/manas360/stepwise/pkg/schema"
)

// ProtocolSummary is one card of the protocol list.
type ProtocolSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Difficulty  string `json:"difficulty,omitempty"`
	Focus       string `json:"focus,omitempty"`
	Steps       int    `json:"steps"`
}

func summarize(s *domain.StepSchema) ProtocolSummary {
	return ProtocolSummary{
		ID:          s.ProtocolID,
		Title:       s.Title,
		Description: s.Description,
		Duration:    s.Duration,
		Difficulty:  s.Difficulty,
		Focus:       s.Focus,
		Steps:       s.Len(),
	}
}

// StartRequest opens a session.
type StartRequest struct {
	ProtocolID string         `json:"protocol_id"`
	Patient    domain.Patient `json:"patient"`
}

// SessionRequest carries the client-held state and the parameters of one operation.
type SessionRequest struct {
	SessionID string               `json:"session_id,omitempty"`
	State     *domain.SessionState `json:"state"`

	Path   string `json:"path,omitempty"`
	Value  any    `json:"value,omitempty"`
	Option string `json:"option,omitempty"`
	Step   int    `json:"step,omitempty"`
}

// SessionView is the state returned by every session operation.
type SessionView struct {
	SessionID string                 `json:"session_id,omitempty"`
	State     *domain.SessionState   `json:"state"`
	Progress  float64                `json:"progress"`
	Step      *domain.StepDefinition `json:"step,omitempty"`
	Terminal  bool                   `json:"terminal"`
	Issues    []Issue                `json:"issues,omitempty"`
}

// Issue is one advisory field problem.
type Issue struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

func issuesFrom(err error) []Issue {
	if err == nil {
		return nil
	}
	var out []Issue
	for _, e := range schema.ValidationErrors(err) {
		var v *schema.ValidationError
		if errors.As(e, &v) {
			out = append(out, Issue{Key: v.Key, Reason: v.Reason})
			continue
		}
		out = append(out, Issue{Reason: e.Error()})
	}
	if len(out) == 0 {
		out = append(out, Issue{Reason: err.Error()})
	}
	return out
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
