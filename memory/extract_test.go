package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRuleExtractor(t *testing.T) {
	x := &RuleExtractor{}
	ctx := context.Background()

	t.Run("picks fact sentences", func(t *testing.T) {
		facts, err := x.Extract(ctx, "Hi there. My name is Ada and I work at a lab. What time is it?", "Hello Ada!")
		require.NoError(t, err)
		require.Equal(t, []string{"My name is Ada and I work at a lab"}, facts)
	})

	t.Run("skips questions", func(t *testing.T) {
		facts, err := x.Extract(ctx, "Do you know what I like?", "No.")
		require.NoError(t, err)
		require.Empty(t, facts)
	})

	t.Run("skips small talk", func(t *testing.T) {
		facts, err := x.Extract(ctx, "Thanks, that was helpful", "You're welcome!")
		require.NoError(t, err)
		require.Empty(t, facts)
	})

	t.Run("dedupes repeated sentences", func(t *testing.T) {
		facts, err := x.Extract(ctx, "I love sushi. I love sushi.", "Noted.")
		require.NoError(t, err)
		require.Len(t, facts, 1)
	})

	t.Run("caps facts per interaction", func(t *testing.T) {
		x := &RuleExtractor{MaxFacts: 2}
		facts, err := x.Extract(ctx,
			"I live in Kyoto. I work as a chef. I love cycling. My favorite season is autumn.",
			"Great!")
		require.NoError(t, err)
		require.Len(t, facts, 2)
	})

	t.Run("ignores assistant text", func(t *testing.T) {
		facts, err := x.Extract(ctx, "ok", "I am an assistant and I like helping")
		require.NoError(t, err)
		require.Empty(t, facts)
	})
}
