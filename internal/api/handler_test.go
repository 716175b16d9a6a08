package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guc1/domain-agent/internal/core"
	"github.com/guc1/domain-agent/internal/store"
)

const testAPIKey = "secret-key"

type testEnv struct {
	server *httptest.Server
	synth  *core.MockSynthesizer
	gen    *core.MockGenerator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	synth := &core.MockSynthesizer{
		QuestionsOut: []core.Question{
			{ID: "q1", Text: "Who is the audience?"},
			{ID: "q2", Text: "What tone do you want?"},
		},
		ClarifyOut: []core.Question{
			{ID: "q1", Text: "Shorter names?"},
			{ID: "q2", Text: "Words to avoid?"},
		},
	}
	gen := &core.MockGenerator{Batches: [][]string{{"brewbox.com", "beanbase.com"}}}
	checker := &core.MockChecker{Statuses: map[string]core.Status{
		"beanbase.com": core.StatusTaken,
	}}

	orc := core.NewOrchestrator(store.NewMemory(0), synth, gen, checker, core.WithMaxAttempts(1))
	h := NewHandler(orc, core.NopLogger{})
	srv := httptest.NewServer(h.Router(testAPIKey))
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, synth: synth, gen: gen}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", testAPIKey)
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (e *testEnv) startSession(t *testing.T) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/sessions", map[string]string{
		"initial_brief": "a coffee subscription service",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decodeBody[startSessionResponse](t, resp)
	require.NotEmpty(t, out.SessionID)
	return out.SessionID
}

func TestHandler_Healthz(t *testing.T) {
	env := newTestEnv(t)

	// Health is reachable without the API key.
	resp, err := http.Get(env.server.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestHandler_Metrics(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestHandler_RequiresAPIKey(t *testing.T) {
	env := newTestEnv(t)

	body := bytes.NewBufferString(`{"initial_brief":"x"}`)
	resp, err := http.Post(env.server.URL+"/sessions", "application/json", body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	out := decodeBody[errorResponse](t, resp)
	assert.Equal(t, "UNAUTHORIZED", out.Error.Code)
}

func TestHandler_WrongAPIKey(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/sessions",
		bytes.NewBufferString(`{"initial_brief":"x"}`))
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "wrong")
	resp, err := env.server.Client().Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestHandler_StartSession(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/sessions", map[string]string{
		"initial_brief": "a coffee subscription service",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	out := decodeBody[startSessionResponse](t, resp)
	assert.NotEmpty(t, out.SessionID)
	assert.Len(t, out.Questions, 2)
}

func TestHandler_StartSessionRejectsMissingBrief(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/sessions", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	out := decodeBody[errorResponse](t, resp)
	assert.Equal(t, "MALFORMED_BODY", out.Error.Code)
}

func TestHandler_StartSessionRejectsMalformedJSON(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/sessions",
		bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	req.Header.Set("X-API-Key", testAPIKey)
	resp, err := env.server.Client().Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestHandler_FullFlow(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)

	// Answers.
	resp := env.do(t, http.MethodPost, "/sessions/"+id+"/answers", map[string]any{
		"answers": map[string]string{"q1": "remote workers", "q2": "playful"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	prompt := decodeBody[promptResponse](t, resp)
	assert.Contains(t, prompt.Prompt, "User Brief: a coffee subscription service")

	// Generate.
	resp = env.do(t, http.MethodPost, "/sessions/"+id+"/generate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	gen := decodeBody[generateResponse](t, resp)
	assert.Equal(t, []string{"brewbox.com"}, gen.Available)
	assert.Equal(t, []string{"beanbase.com"}, gen.Taken)
	assert.Len(t, gen.History, 2)

	// Feedback.
	resp = env.do(t, http.MethodPost, "/sessions/"+id+"/feedback", map[string]any{
		"liked":          map[string]string{"brewbox.com": "short"},
		"dislike_reason": "avoid puns",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fb := decodeBody[feedbackResponse](t, resp)
	assert.Contains(t, fb.Prompt, "- Liked 'brewbox.com': short")
	assert.Len(t, fb.Questions, 2)

	// State.
	resp = env.do(t, http.MethodGet, "/sessions/"+id+"/state", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decodeBody[core.Session](t, resp)
	assert.Equal(t, 1, state.Round)
	assert.Equal(t, core.StepAwaitingAnswers, state.Step)
	assert.Len(t, state.History, 2)
}

func TestHandler_GenerateBeforeAnswers(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)

	resp := env.do(t, http.MethodPost, "/sessions/"+id+"/generate", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	out := decodeBody[errorResponse](t, resp)
	assert.Equal(t, "SEQUENCE_ERROR", out.Error.Code)
}

func TestHandler_UnknownSession(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/sessions/ses_missing/state", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	out := decodeBody[errorResponse](t, resp)
	assert.Equal(t, "NOT_FOUND", out.Error.Code)
}

func TestHandler_FeedbackUnknownDomain(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)
	env.do(t, http.MethodPost, "/sessions/"+id+"/answers", map[string]any{
		"answers": map[string]string{"q1": "a", "q2": "b"},
	}).Body.Close()
	env.do(t, http.MethodPost, "/sessions/"+id+"/generate", nil).Body.Close()

	resp := env.do(t, http.MethodPost, "/sessions/"+id+"/feedback", map[string]any{
		"liked": map[string]string{"neverseen.com": "nice"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	out := decodeBody[errorResponse](t, resp)
	assert.Equal(t, "INVALID_FEEDBACK", out.Error.Code)
}

func TestHandler_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)
	env.do(t, http.MethodPost, "/sessions/"+id+"/answers", map[string]any{
		"answers": map[string]string{"q1": "a", "q2": "b"},
	}).Body.Close()

	env.gen.Err = assert.AnError
	resp := env.do(t, http.MethodPost, "/sessions/"+id+"/generate", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	out := decodeBody[errorResponse](t, resp)
	assert.Equal(t, "UPSTREAM_FAILURE", out.Error.Code)
}

func TestHandler_Settings(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)

	resp := env.do(t, http.MethodPost, "/sessions/"+id+"/settings", map[string]any{
		"domain_goal": 3,
		"tone":        "serious",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody[settingsResponse](t, resp)
	assert.Equal(t, 3, out.Settings.DomainGoal)
	assert.Equal(t, "serious", out.Settings.Tone)

	resp = env.do(t, http.MethodGet, "/sessions/"+id+"/settings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[settingsResponse](t, resp)
	assert.Equal(t, out.Settings, got.Settings)
}

func TestHandler_SettingsRejectsUnknownKey(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)

	resp := env.do(t, http.MethodPost, "/sessions/"+id+"/settings", map[string]any{
		"model": "gpt-4o",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	out := decodeBody[errorResponse](t, resp)
	assert.Equal(t, "INVALID_INPUT", out.Error.Code)
}

func TestHandler_Clarify(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/clarify", map[string]string{
		"prompt": "a refined prompt",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody[clarifyResponse](t, resp)
	assert.Len(t, out.Questions, 2)
}

func TestHandler_Combine(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/combine", map[string]any{
		"previous_prompt": "a coffee subscription",
		"question_map":    map[string]string{"q1": "Audience?"},
		"answers":         map[string]string{"q1": "remote workers"},
		"taken_domains":   []string{"beanbase.com"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody[promptResponse](t, resp)
	assert.Contains(t, out.Prompt, "User Brief: a coffee subscription")
	assert.Contains(t, out.Prompt, "Q: Audience?\nA: remote workers")
	assert.Contains(t, out.Prompt, "beanbase.com")
}
