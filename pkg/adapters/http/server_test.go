package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/compass/pkg/adapters/memory"
	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/ports/tests"
	"github.com/aretw0/compass/pkg/runner"
	"github.com/aretw0/compass/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTurner struct {
	emit []workflow.Event
	err  error
}

func (s *stubTurner) Chat(ctx context.Context, userID, planID, message string, emit workflow.EmitFunc) (*domain.SessionState, error) {
	for _, e := range s.emit {
		emit(e)
	}
	return domain.NewSessionState(userID + "@" + planID), s.err
}

type storeReader struct{ *memory.Store }

func (s storeReader) State(ctx context.Context, id string) (*domain.SessionState, error) {
	return s.Load(ctx, id)
}

func newTestHandler(t *testing.T, turner runner.Turner, opts ...Option) http.Handler {
	t.Helper()
	if turner == nil {
		turner = &stubTurner{}
	}
	return NewHandler(runner.New(turner), opts...)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func sseFrames(body string) []string {
	var frames []string
	for _, chunk := range strings.Split(body, "\n\n") {
		if data, ok := strings.CutPrefix(chunk, "data: "); ok {
			frames = append(frames, data)
		}
	}
	return frames
}

func TestHealthAndInfo(t *testing.T) {
	h := newTestHandler(t, nil, WithVersion("1.2.3"))

	w := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/info", "")
	require.Equal(t, http.StatusOK, w.Code)
	var info map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "1.2.3", info["version"])
	assert.Equal(t, "1.0.0", info["api_version"])
}

func TestOpenAPIDocumentIsValid(t *testing.T) {
	doc, err := GetSwagger()
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/chat/stream"))
	assert.NotNil(t, doc.Paths.Find("/plans/{id}/status"))

	w := do(t, newTestHandler(t, nil), http.MethodGet, "/openapi.yaml", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")
}

func TestCORS(t *testing.T) {
	h := newTestHandler(t, nil, WithAllowedOrigin("https://app.example"))
	w := do(t, h, http.MethodOptions, "/chat/stream", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestChatStream(t *testing.T) {
	turner := &stubTurner{emit: []workflow.Event{
		{Kind: workflow.EventUpdate, Node: "intent_router", Update: domain.Update{}},
		{Kind: workflow.EventToken, Node: "chat", Token: "Hi "},
		{Kind: workflow.EventToken, Node: "chat", Token: "there"},
		{Kind: workflow.EventUpdate, Node: "chat", Update: domain.Say("Hi there")},
	}}
	h := newTestHandler(t, turner)

	for _, path := range []string{"/chat/stream", "/api/travel/chat/stream"} {
		t.Run(path, func(t *testing.T) {
			w := do(t, h, http.MethodPost, path, `{"user_id":"alice","plan_id":"kyoto","message":"hello"}`)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

			frames := sseFrames(w.Body.String())
			require.Len(t, frames, 5)
			assert.JSONEq(t, `{"status":"thinking"}`, frames[0])
			assert.JSONEq(t, `{"node":"intent_router","message":"","itinerary":null}`, frames[1])
			assert.JSONEq(t, `{"message":{"type":"ai","content":"Hi "}}`, frames[2])
			assert.JSONEq(t, `{"message":{"type":"ai","content":"there"}}`, frames[3])
			assert.Equal(t, "[DONE]", frames[4])
		})
	}
}

func TestChatStream_RejectsBadInput(t *testing.T) {
	h := newTestHandler(t, nil)

	cases := map[string]string{
		"malformed":    `{"user_id":`,
		"empty":        `{"user_id":"a","plan_id":"p","message":"  "}`,
		"missing plan": `{"user_id":"a","message":"hi"}`,
		"too large":    `{"user_id":"a","plan_id":"p","message":"` + strings.Repeat("x", runner.DefaultMaxInputSize+1) + `"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/chat/stream", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEqual(t, "text/event-stream", w.Header().Get("Content-Type"))
		})
	}
}

func TestPlansCRUD(t *testing.T) {
	h := newTestHandler(t, nil, WithPlans(memory.NewPlans()))
	body, err := json.Marshal(tests.SampleItinerary())
	require.NoError(t, err)

	w := do(t, h, http.MethodPost, "/plans", string(body))
	require.Equal(t, http.StatusCreated, w.Code)
	var created domain.Plan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, domain.PlanStatusDraft, created.Status)
	assert.Equal(t, "Osaka", created.Destination)

	w = do(t, h, http.MethodGet, "/plans/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/api/travel/plans", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []domain.Plan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = do(t, h, http.MethodPatch, "/plans/"+created.ID+"/status", `{"status":"confirmed","days":[{"date":"2025-06-03","location":"Nara"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	var patched domain.Plan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &patched))
	assert.Equal(t, "confirmed", patched.Status)
	require.Len(t, patched.Days, 1)
	assert.Equal(t, "Nara", patched.Days[0].Location)

	w = do(t, h, http.MethodPatch, "/plans/"+created.ID+"/status", `{"status":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodDelete, "/plans/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/plans/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, h, http.MethodDelete, "/plans/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, h, http.MethodPatch, "/plans/missing/status", `{"status":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreatePlan_RejectsInvalid(t *testing.T) {
	h := newTestHandler(t, nil, WithPlans(memory.NewPlans()))

	w := do(t, h, http.MethodPost, "/plans", `{"destination":"Kyoto","days":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/plans", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionsAndGraph(t *testing.T) {
	store := memory.NewStore()
	state := domain.NewSessionState("alice@kyoto")
	state.Visited = []string{"intent_router", "chat"}
	require.NoError(t, store.Save(context.Background(), state.SessionID, state))

	var gotVisited []string
	h := newTestHandler(t, nil,
		WithSessions(storeReader{store}),
		WithGraph(func(visited []string) string {
			gotVisited = visited
			return "graph TD"
		}),
	)

	w := do(t, h, http.MethodGet, "/sessions/alice@kyoto", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"session_id":"alice@kyoto"`)

	w = do(t, h, http.MethodGet, "/sessions/nobody@x", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodGet, "/graph?session_id=alice@kyoto", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "graph TD", w.Body.String())
	assert.Equal(t, []string{"intent_router", "chat"}, gotVisited)
}

func TestMetricsMount(t *testing.T) {
	h := newTestHandler(t, nil, WithMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("compass_turns_total 1\n"))
	})))
	w := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "compass_turns_total")

	w = do(t, newTestHandler(t, nil), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
