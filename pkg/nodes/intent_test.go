package nodes

import (
	"errors"
	"testing"

	"github.com/aretw0/compass/pkg/adapters/llm"
	"github.com/aretw0/compass/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntent(t *testing.T) {
	gen := llm.NewScripted().Reply("intent", "  PLAN_TRIP\n")
	n := newSet(gen)

	u, err := n.Intent(ctx(t), stateWith(domain.UserMessage("I want to plan a trip to Kyoto")))
	require.NoError(t, err)
	require.NotNil(t, u.Intent)
	assert.Equal(t, domain.IntentPlanTrip, *u.Intent)
	assert.Empty(t, u.Messages)

	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].System, "modify_plan")
	assert.Len(t, calls[0].Messages, 1)
}

func TestIntent_FailureFallsBackToChat(t *testing.T) {
	n := newSet(llm.NewScripted().Fail("intent", errors.New("timeout")))

	u, err := n.Intent(ctx(t), stateWith(domain.UserMessage("hello")))
	require.NoError(t, err)
	assert.Equal(t, domain.IntentChat, *u.Intent)
}

func TestIntent_UnexpectedTagRoutesToChat(t *testing.T) {
	n := newSet(llm.NewScripted().Reply("intent", "weather"))

	s := stateWith(domain.UserMessage("is it sunny?"))
	u, err := n.Intent(ctx(t), s)
	require.NoError(t, err)
	s.Apply(u)
	assert.Equal(t, Chat, RouteIntent(s))
}
