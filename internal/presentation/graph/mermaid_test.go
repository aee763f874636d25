package graph_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aretw0/compass/internal/presentation/graph"
	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *domain.SessionState) (domain.Update, error) {
	return domain.Update{}, nil
}

func compile(t *testing.T) *workflow.Graph {
	t.Helper()
	g, err := workflow.NewBuilder().
		AddNode("intent_router", noop).
		AddNode("chat", noop).
		AddNode("collect-preferences", noop).
		SetEntryPoint("intent_router").
		AddConditionalEdges("intent_router", func(*domain.SessionState) string { return "chat" }, map[string]string{
			"chat":                "chat",
			"collect-preferences": "collect-preferences",
		}).
		AddEdge("chat", workflow.End).
		AddEdge("collect-preferences", workflow.End).
		Compile()
	require.NoError(t, err)
	return g
}

func TestGenerateMermaid(t *testing.T) {
	got := graph.GenerateMermaid(compile(t), nil)

	for _, want := range []string{
		"graph TD\n",
		`intent_router(("intent_router"))`,
		`chat["chat"]`,
		`collect_preferences["collect-preferences"]`,
		`turn_end(["END"])`,
		`intent_router -. "chat" .-> chat`,
		`intent_router -. "collect-preferences" .-> collect_preferences`,
		`chat --> turn_end`,
	} {
		assert.Contains(t, got, want)
	}
	assert.NotContains(t, got, "classDef")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	got := graph.GenerateMermaid(compile(t), graph.ForVisited([]string{"intent_router", "chat", "chat"}))

	assert.Contains(t, got, "class intent_router visited;")
	assert.Equal(t, 1, strings.Count(got, "class chat visited;"))
	assert.Contains(t, got, "class chat current;")
	assert.Nil(t, graph.ForVisited(nil))
}
