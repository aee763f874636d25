package runner_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/runner"
	"github.com/aretw0/compass/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type turnFunc func(ctx context.Context, emit workflow.EmitFunc) error

type fakeTurner struct {
	fn turnFunc

	mu       sync.Mutex
	sessions []string
}

func (f *fakeTurner) Chat(ctx context.Context, userID, planID, message string, emit workflow.EmitFunc) (*domain.SessionState, error) {
	f.mu.Lock()
	f.sessions = append(f.sessions, userID+"@"+planID+":"+message)
	f.mu.Unlock()
	return domain.NewSessionState(userID + "@" + planID), f.fn(ctx, emit)
}

type recorder struct {
	mu      sync.Mutex
	frames  []string
	onWrite func(n int)
	failAt  int
}

func (r *recorder) WriteEvent(payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAt > 0 && len(r.frames)+1 == r.failAt {
		return errors.New("broken pipe")
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	r.frames = append(r.frames, string(b))
	if r.onWrite != nil {
		r.onWrite(len(r.frames))
	}
	return nil
}

func (r *recorder) WriteDone() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, runner.Done)
	return nil
}

func (r *recorder) Frames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.frames...)
}

func tokens(node string, toks ...string) []workflow.Event {
	evs := make([]workflow.Event, len(toks))
	for i, t := range toks {
		evs[i] = workflow.Event{Kind: workflow.EventToken, Node: node, Token: t}
	}
	return evs
}

func update(node string, u domain.Update, it *domain.Itinerary) workflow.Event {
	return workflow.Event{Kind: workflow.EventUpdate, Node: node, Update: u, Itinerary: it}
}

func emitAll(evs ...workflow.Event) turnFunc {
	return func(_ context.Context, emit workflow.EmitFunc) error {
		for _, e := range evs {
			emit(e)
		}
		return nil
	}
}

func TestStream_ChatTokens(t *testing.T) {
	evs := append(tokens("intent_router", `{"intent":"chat"}`),
		update("intent_router", domain.Say(`{"intent":"chat"}`), nil))
	evs = append(evs, tokens("chat", "Hello ", "there!")...)
	evs = append(evs, update("chat", domain.Say("Hello there!"), nil))

	r := runner.New(&fakeTurner{fn: emitAll(evs...)})
	w := &recorder{}
	require.NoError(t, r.Stream(context.Background(), runner.ChatRequest{UserID: "u", PlanID: "p", Message: "hi"}, w))

	assert.Equal(t, []string{
		`{"status":"thinking"}`,
		`{"node":"intent_router","message":{"type":"ai","content":"{\"intent\":\"chat\"}"},"itinerary":null}`,
		`{"message":{"type":"ai","content":"Hello "}}`,
		`{"message":{"type":"ai","content":"there!"}}`,
		runner.Done,
	}, w.Frames())
}

func TestStream_StructuralEventsCarryItinerary(t *testing.T) {
	it := &domain.Itinerary{Destination: "Kyoto", Days: []domain.Day{{Location: "Gion"}}}
	r := runner.New(&fakeTurner{fn: emitAll(
		update("collect_preferences", domain.Say("Preferences complete."), nil),
		update("generate_itinerary", domain.Update{
			Messages: []domain.Message{domain.AssistantMessage("Adjusting the plan...")},
			Planning: &domain.Planning{Current: it},
		}, it),
		update("modify_plan", domain.Update{}, nil),
	)})
	w := &recorder{}
	require.NoError(t, r.Stream(context.Background(), runner.ChatRequest{UserID: "u", PlanID: "p", Message: "go"}, w))

	frames := w.Frames()
	require.Len(t, frames, 5)
	assert.JSONEq(t, `{"node":"collect_preferences","message":{"type":"ai","content":"Preferences complete."},"itinerary":null}`, frames[1])

	var gen struct {
		Node      string            `json:"node"`
		Itinerary *domain.Itinerary `json:"itinerary"`
	}
	require.NoError(t, json.Unmarshal([]byte(frames[2]), &gen))
	assert.Equal(t, "generate_itinerary", gen.Node)
	require.NotNil(t, gen.Itinerary)
	assert.Equal(t, "Kyoto", gen.Itinerary.Destination)

	assert.JSONEq(t, `{"node":"modify_plan","message":"","itinerary":null}`, frames[3])
	assert.Equal(t, runner.Done, frames[4])
}

func TestStream_TokenNodeWithoutTokensSendsMessage(t *testing.T) {
	r := runner.New(&fakeTurner{fn: emitAll(
		update("report_itinerary", domain.Say("Sorry, I could not write the report."), nil),
	)})
	w := &recorder{}
	require.NoError(t, r.Stream(context.Background(), runner.ChatRequest{UserID: "u", PlanID: "p", Message: "x"}, w))

	assert.Equal(t, []string{
		`{"status":"thinking"}`,
		`{"message":{"type":"ai","content":"Sorry, I could not write the report."}}`,
		runner.Done,
	}, w.Frames())
}

func TestStream_TurnErrorBecomesMessage(t *testing.T) {
	r := runner.New(&fakeTurner{fn: func(_ context.Context, emit workflow.EmitFunc) error {
		emit(update("intent_router", domain.Say("x"), nil))
		return workflow.ErrStepLimit
	}})
	w := &recorder{}
	require.NoError(t, r.Stream(context.Background(), runner.ChatRequest{UserID: "u", PlanID: "p", Message: "x"}, w))

	frames := w.Frames()
	require.Len(t, frames, 4)
	assert.Contains(t, frames[2], runner.MsgTurnFailed)
	assert.Equal(t, runner.Done, frames[3])
}

func TestStream_DisconnectLetsTurnFinish(t *testing.T) {
	gate := make(chan struct{})
	finished := make(chan struct{})
	var turnCtxErr error

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := runner.New(&fakeTurner{fn: func(tctx context.Context, emit workflow.EmitFunc) error {
		<-gate
		for i := 0; i < 200; i++ {
			emit(workflow.Event{Kind: workflow.EventToken, Node: "chat", Token: "tok "})
		}
		turnCtxErr = tctx.Err()
		close(finished)
		return nil
	}})

	w := &recorder{onWrite: func(n int) {
		if n == 1 {
			cancel()
		}
	}}
	require.NoError(t, r.Stream(ctx, runner.ChatRequest{UserID: "u", PlanID: "p", Message: "x"}, w))
	close(gate)

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("turn blocked after client disconnect")
	}
	assert.NoError(t, turnCtxErr, "turn context must be detached from the request")
	assert.Equal(t, []string{`{"status":"thinking"}`}, w.Frames())
}

func TestStream_WriteFailureStops(t *testing.T) {
	r := runner.New(&fakeTurner{fn: emitAll(tokens("chat", "a", "b", "c")...)})
	w := &recorder{failAt: 2}
	err := r.Stream(context.Background(), runner.ChatRequest{UserID: "u", PlanID: "p", Message: "x"}, w)
	require.Error(t, err)
	assert.Equal(t, []string{`{"status":"thinking"}`}, w.Frames())
}

type countingObserver struct {
	started, finished int
	lastErr           error
}

func (o *countingObserver) StreamStarted() { o.started++ }
func (o *countingObserver) StreamFinished(err error) {
	o.finished++
	o.lastErr = err
}

func TestStream_Observer(t *testing.T) {
	obs := &countingObserver{}
	r := runner.New(&fakeTurner{fn: emitAll()}, runner.WithObserver(obs))
	require.NoError(t, r.Stream(context.Background(), runner.ChatRequest{UserID: "u", PlanID: "p", Message: "x"}, &recorder{}))
	assert.Equal(t, 1, obs.started)
	assert.Equal(t, 1, obs.finished)
	assert.NoError(t, obs.lastErr)
}

func TestPrepare(t *testing.T) {
	r := runner.New(&fakeTurner{}, runner.WithMaxInputSize(16))

	req, err := r.Prepare(runner.ChatRequest{UserID: " alice ", PlanID: "kyoto", Message: "hi\x00 there"})
	require.NoError(t, err)
	assert.Equal(t, "alice", req.UserID)
	assert.NotContains(t, req.Message, "\x00")

	cases := map[string]runner.ChatRequest{
		"missing user": {PlanID: "p", Message: "hi"},
		"missing plan": {UserID: "u", Message: "hi"},
		"at in user":   {UserID: "a@b", PlanID: "p", Message: "hi"},
		"empty":        {UserID: "u", PlanID: "p", Message: "   "},
		"too large":    {UserID: "u", PlanID: "p", Message: strings.Repeat("x", 17)},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := r.Prepare(c)
			assert.ErrorIs(t, err, runner.ErrInvalidRequest)
		})
	}
}
