package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeterministic(t *testing.T) {
	m := New()
	ctx := context.Background()

	a, err := m.Embed(ctx, "my favorite color is blue")
	require.NoError(t, err)
	b, err := m.Embed(ctx, "my favorite color is blue")
	require.NoError(t, err)
	require.Equal(t, a, b, "identical input must embed identically")
	require.Len(t, a, m.Dimensions())
}

func TestSharedTokensScoreHigher(t *testing.T) {
	m := New()
	ctx := context.Background()

	blue, _ := m.Embed(ctx, "my favorite color is blue")
	queryBlue, _ := m.Embed(ctx, "blue")
	unrelated, _ := m.Embed(ctx, "parrots can mimic speech")

	simMatch := dot(blue, queryBlue)
	simOther := dot(blue, unrelated)
	require.Greater(t, simMatch, simOther)
	require.Greater(t, simMatch, float32(0.3))
}

func TestUnitNorm(t *testing.T) {
	m := New()
	emb, err := m.Embed(context.Background(), "anything at all")
	require.NoError(t, err)
	require.InDelta(t, 1.0, float64(dot(emb, emb)), 1e-4)
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
