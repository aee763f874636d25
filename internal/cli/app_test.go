package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/compass/internal/config"
	"github.com/aretw0/compass/internal/logging"
	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/session"
	"github.com/aretw0/compass/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func offlineConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.LLM.Provider = "scripted"
	cfg.Plans.DSN = PlansInMemory
	return cfg
}

func TestBuild_OfflineAssistantAnswers(t *testing.T) {
	app, err := Build(context.Background(), offlineConfig(t), logging.NewNop(), BuildOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	require.NotNil(t, app.Plans)
	var tokens strings.Builder
	state, err := app.Assistant.Chat(context.Background(), "alice", "p1", "hello there", func(e workflow.Event) {
		if e.Kind == workflow.EventToken {
			tokens.WriteString(e.Token)
		}
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@p1", state.SessionID)
	assert.Contains(t, tokens.String(), "without a language model")

	ids, err := app.Store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@p1"}, ids)
}

func TestBuild_SQLitePlans(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Plans.DSN = "file:" + t.TempDir() + "/plans.db"

	app, err := Build(context.Background(), cfg, logging.NewNop(), BuildOptions{})
	require.NoError(t, err)
	defer app.Close()

	plans, err := app.Plans.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestBuild_SkipPlans(t *testing.T) {
	app, err := Build(context.Background(), offlineConfig(t), logging.NewNop(), BuildOptions{SkipPlans: true})
	require.NoError(t, err)
	assert.Nil(t, app.Plans)
	assert.NoError(t, app.Close())
}

func TestBuild_UnknownProvider(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.LLM.Provider = "carrier-pigeon"
	_, err := Build(context.Background(), cfg, logging.NewNop(), BuildOptions{})
	assert.ErrorContains(t, err, "unknown llm provider")
}

func TestApp_GraphHighlightsVisited(t *testing.T) {
	app, err := Build(context.Background(), offlineConfig(t), logging.NewNop(), BuildOptions{SkipPlans: true})
	require.NoError(t, err)

	out := app.Graph([]string{"intent_router", "chat"})
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "collect_preferences")
	assert.Contains(t, out, "class intent_router")
}

func TestNewCheckpointStore_FileWithEncryption(t *testing.T) {
	cfg := config.Checkpoint{Backend: "file", Dir: t.TempDir(), EncryptionKey: testKey}
	store, locker, closeFn, err := NewCheckpointStore(cfg)
	require.NoError(t, err)
	assert.Nil(t, locker)
	assert.Nil(t, closeFn)

	ctx := context.Background()
	state := domain.NewSessionState("bob@trip")
	state.Messages = append(state.Messages, domain.UserMessage("secret plans"))
	require.NoError(t, store.Save(ctx, "bob@trip", state))

	loaded, err := store.Load(ctx, "bob@trip")
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 1)
	assert.Equal(t, "secret plans", loaded.Messages[0].Content)

	plain, _, _, err := NewCheckpointStore(config.Checkpoint{Backend: "file", Dir: cfg.Dir})
	require.NoError(t, err)
	raw, err := plain.Load(ctx, "bob@trip")
	require.NoError(t, err)
	assert.Empty(t, raw.Messages, "ciphertext is not readable without the key")
}

func TestNewCheckpointStore_Redaction(t *testing.T) {
	cfg := config.Checkpoint{Backend: "memory", RedactPatterns: []string{`\d{4}-\d{4}`}}
	store, _, _, err := NewCheckpointStore(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	state := domain.NewSessionState("c@d")
	state.Messages = append(state.Messages, domain.UserMessage("call 1234-5678"))
	require.NoError(t, store.Save(ctx, "c@d", state))

	loaded, err := store.Load(ctx, "c@d")
	require.NoError(t, err)
	assert.NotContains(t, loaded.Messages[0].Content, "1234-5678")
}

func TestNewCheckpointStore_RedisWithLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Checkpoint{Backend: "redis", RedisAddr: mr.Addr(), Prefix: "compass:session:"}

	store, locker, closeFn, err := NewCheckpointStore(cfg)
	require.NoError(t, err)
	require.NotNil(t, locker)
	require.NotNil(t, closeFn)
	defer closeFn()

	ctx := context.Background()
	id := session.ID("u", "p")
	require.NoError(t, store.Save(ctx, id, domain.NewSessionState(id)))
	assert.True(t, mr.Exists("compass:session:"+id))

	unlock, err := locker.Lock(ctx, id, 0)
	require.NoError(t, err)
	assert.True(t, mr.Exists("compass:lock:"+id))
	require.NoError(t, unlock(ctx))
}

func TestNewCheckpointStore_BadKey(t *testing.T) {
	_, _, _, err := NewCheckpointStore(config.Checkpoint{Backend: "memory", EncryptionKey: "nothex"})
	assert.ErrorContains(t, err, "encryption_key")
}

func TestNewHotelSearcher(t *testing.T) {
	assert.Nil(t, NewHotelSearcher(config.Hotels{}, logging.NewNop()))
	assert.NotNil(t, NewHotelSearcher(config.Hotels{APIKey: "k"}, logging.NewNop()))
}
