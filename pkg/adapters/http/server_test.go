package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/manas360/stepwise"
	"github.com/manas360/stepwise/pkg/adapters/memory"
	"github.com/manas360/stepwise/pkg/domain"
	"github.com/manas360/stepwise/pkg/observability"
	"github.com/manas360/stepwise/pkg/protocols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	eng, err := stepwise.New(
		stepwise.WithStore(memory.NewStore()),
		stepwise.WithClock(func() time.Time { return time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC) }),
	)
	require.NoError(t, err)
	srv := httptest.NewServer(NewHandler(eng, opts...))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestServer_HealthAndInfo(t *testing.T) {
	srv := newTestServer(t, WithVersion("1.2.3\n"))

	resp := do(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, "/info", nil)
	info := decode[map[string]string](t, resp)
	assert.Equal(t, "1.2.3", info["version"])
}

func TestServer_Protocols(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, http.MethodGet, "/protocols", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]ProtocolSummary](t, resp)
	require.Len(t, list, len(protocols.All()))
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].ID, list[i].ID)
	}

	resp = do(t, srv, http.MethodGet, "/protocols/"+protocols.CognitiveRestructuring, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	schema := decode[domain.StepSchema](t, resp)
	assert.Equal(t, 8, schema.Len())

	resp = do(t, srv, http.MethodGet, "/protocols/hypnosis", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_SessionLifecycle(t *testing.T) {
	srv := newTestServer(t, WithSessionIDGenerator(func() string { return "s-1" }))

	resp := do(t, srv, http.MethodPost, "/sessions", StartRequest{
		ProtocolID: protocols.CognitiveRestructuring,
		Patient:    domain.Patient{Name: "Jane Doe"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	view := decode[SessionView](t, resp)
	assert.Equal(t, "s-1", view.SessionID)
	assert.Equal(t, 1, view.State.CurrentStep)
	assert.InDelta(t, 0.125, view.Progress, 1e-9)
	require.NotNil(t, view.Step)
	assert.Equal(t, "situation", view.Step.ID)

	resp = do(t, srv, http.MethodPost, "/sessions/retreat", SessionRequest{State: view.State})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, srv, http.MethodPost, "/sessions/fields", SessionRequest{
		State: view.State, Path: "situation", Value: "Boss criticized me",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decode[SessionView](t, resp)

	resp = do(t, srv, http.MethodPost, "/sessions/fields", SessionRequest{
		State: view.State, Path: "emotions.otherName", Value: "Guilt",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decode[SessionView](t, resp)

	resp = do(t, srv, http.MethodPost, "/sessions/toggle", SessionRequest{
		State: view.State, Path: "distortions", Option: "labeling",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decode[SessionView](t, resp)
	distortions, _ := view.State.Fields.Get("distortions")
	assert.Equal(t, []string{"labeling"}, distortions)

	resp = do(t, srv, http.MethodPost, "/sessions/finish", SessionRequest{State: view.State})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, srv, http.MethodPost, "/sessions/jump", SessionRequest{State: view.State, Step: 8})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decode[SessionView](t, resp)
	assert.True(t, view.Terminal)
	assert.Equal(t, 1.0, view.Progress)

	resp = do(t, srv, http.MethodPost, "/sessions/advance", SessionRequest{State: view.State})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, srv, http.MethodPost, "/sessions/finish", SessionRequest{State: view.State})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	record := decode[domain.FinalizedRecord](t, resp)
	assert.Equal(t, "Jane Doe", record.PatientIdentifier)
	assert.Equal(t, domain.StatusCompleted, record.Status)
	emotions, _ := record.Data.Get("emotions")
	assert.Equal(t, []string{"anxiety", "sadness", "anger", "shame", "other", "otherName"}, emotions.(*domain.Values).Keys())

	resp = do(t, srv, http.MethodGet, "/records?patient=Jane%20Doe", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	records := decode[[]*domain.FinalizedRecord](t, resp)
	require.Len(t, records, 1)
	assert.Equal(t, record.ID, records[0].ID)

	resp = do(t, srv, http.MethodGet, "/records/"+record.ID+"/report?format=text", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var text bytes.Buffer
	_, err := text.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, text.String(), "Cognitive Restructuring")
	assert.Contains(t, text.String(), "Boss criticized me")

	resp = do(t, srv, http.MethodDelete, "/records/"+record.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, "/records/"+record.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_CheckReportsIssuesWithoutBlocking(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, http.MethodPost, "/sessions", StartRequest{ProtocolID: protocols.CognitiveRestructuring})
	view := decode[SessionView](t, resp)

	resp = do(t, srv, http.MethodPost, "/sessions/fields", SessionRequest{State: view.State, Path: "emotions.anxiety", Value: 42})
	view = decode[SessionView](t, resp)

	resp = do(t, srv, http.MethodPost, "/sessions/check", SessionRequest{State: view.State})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	checked := decode[SessionView](t, resp)
	require.NotEmpty(t, checked.Issues)
	assert.Equal(t, "emotions.anxiety", checked.Issues[0].Key)

	resp = do(t, srv, http.MethodPost, "/sessions/advance", SessionRequest{State: view.State})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_RejectsBadRequests(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"missing state", http.MethodPost, "/sessions/advance", SessionRequest{}, http.StatusBadRequest},
		{"unknown protocol", http.MethodPost, "/sessions", StartRequest{ProtocolID: "hypnosis"}, http.StatusNotFound},
		{"cursor out of range", http.MethodPost, "/sessions/advance", SessionRequest{State: &domain.SessionState{ProtocolID: protocols.CognitiveRestructuring, CurrentStep: 12}}, http.StatusUnprocessableEntity},
		{"bad limit", http.MethodGet, "/records?limit=-1", nil, http.StatusBadRequest},
		{"bad format", http.MethodGet, "/records/missing/report?format=pdf", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/sessions", strings.NewReader("{"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	metrics := observability.NewMetrics()
	srv := newTestServer(t, WithMetricsHandler(metrics.Handler()))

	resp := do(t, srv, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_StreamsSessionDiffs(t *testing.T) {
	eng, err := stepwise.New(stepwise.WithStore(memory.NewStore()))
	require.NoError(t, err)
	handler := NewHandler(eng)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	state, err := eng.Start(context.Background(), protocols.CognitiveRestructuring, domain.Patient{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?session_id=s-9", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	body, err := json.Marshal(SessionRequest{SessionID: "s-9", State: state})
	require.NoError(t, err)
	go func() {
		r, err := http.Post(srv.URL+"/sessions/advance", "application/json", bytes.NewReader(body))
		if err == nil {
			r.Body.Close()
		}
	}()

	var data string
	for lines.Scan() {
		if strings.HasPrefix(lines.Text(), "data: {") {
			data = strings.TrimPrefix(lines.Text(), "data: ")
			break
		}
	}
	var diff domain.StateDiff
	require.NoError(t, json.Unmarshal([]byte(data), &diff))
	require.NotNil(t, diff.CurrentStep)
	assert.Equal(t, 2, *diff.CurrentStep)
}
