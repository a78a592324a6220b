package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Command
		ok   bool
	}{
		{
			name: "remember that",
			text: "Remember that my sister lives in Oslo.",
			want: Command{Kind: CommandRemember, Argument: "my sister lives in Oslo"},
			ok:   true,
		},
		{
			name: "bare remember",
			text: "remember I take oat milk in coffee",
			want: Command{Kind: CommandRemember, Argument: "I take oat milk in coffee"},
			ok:   true,
		},
		{
			name: "polite remember",
			text: "Please remember that I'm vegetarian!",
			want: Command{Kind: CommandRemember, Argument: "I'm vegetarian"},
			ok:   true,
		},
		{
			name: "dont forget is a remember",
			text: "Don't forget that my flight is on friday",
			want: Command{Kind: CommandRemember, Argument: "my flight is on friday"},
			ok:   true,
		},
		{
			name: "forget about",
			text: "forget about my old address",
			want: Command{Kind: CommandForget, Argument: "my old address"},
			ok:   true,
		},
		{
			name: "forget that",
			text: "Forget that I mentioned the surprise party?",
			want: Command{Kind: CommandForget, Argument: "I mentioned the surprise party"},
			ok:   true,
		},
		{
			name: "not a command",
			text: "What's the capital of France?",
			ok:   false,
		},
		{
			name: "remember mid-sentence is not a command",
			text: "I can't remember where I parked",
			ok:   false,
		},
		{
			name: "empty argument",
			text: "remember ",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCommand(tt.text)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				require.Equal(t, tt.want, got)
			}
		})
	}
}
