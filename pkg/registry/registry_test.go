package registry

import (
	"context"
	"testing"

	"github.com/aretw0/compass/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(domain.Tool{Name: "echo"}, func(_ context.Context, args map[string]any) (any, error) {
		return args["v"], nil
	})
	r.Register(domain.Tool{Name: "add"}, func(context.Context, map[string]any) (any, error) { return 0, nil })

	assert.Equal(t, 2, r.Len())
	tools := r.Tools()
	require.Len(t, tools, 2)
	assert.Equal(t, "add", tools[0].Name)

	out, err := r.Execute(context.Background(), "echo", map[string]any{"v": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)

	_, err = r.Execute(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrToolNotFound)
}
