package memory

import "strings"

// CommandKind discriminates explicit memory commands.
type CommandKind int

const (
	// CommandRemember asks the engine to persist the argument verbatim.
	CommandRemember CommandKind = iota

	// CommandForget asks the engine to remove memories matching the
	// argument.
	CommandForget
)

// Command is a parsed explicit memory instruction.
type Command struct {
	Kind     CommandKind
	Argument string
}

// rememberPrefixes and forgetPrefixes are matched against the lowercased,
// trimmed message. "don't forget" variants must sort before the bare
// "forget" forms or they would parse as deletions.
var rememberPrefixes = []string{
	"please remember that ",
	"please remember ",
	"remember that ",
	"remember ",
	"don't forget that ",
	"don't forget ",
	"dont forget that ",
	"dont forget ",
}

var forgetPrefixes = []string{
	"please forget about ",
	"please forget that ",
	"please forget ",
	"forget about ",
	"forget that ",
	"forget ",
}

// ParseCommand detects explicit "remember …" / "forget …" instructions in a
// user message. It is pattern-matching glue in front of the engine and
// carries no correctness guarantees of its own; only the store/delete
// contract behind it is normative.
func ParseCommand(text string) (Command, bool) {
	msg := strings.TrimSpace(text)
	lower := strings.ToLower(msg)

	for _, p := range rememberPrefixes {
		if strings.HasPrefix(lower, p) {
			arg := trimArgument(msg[len(p):])
			if arg == "" {
				return Command{}, false
			}
			return Command{Kind: CommandRemember, Argument: arg}, true
		}
	}
	for _, p := range forgetPrefixes {
		if strings.HasPrefix(lower, p) {
			arg := trimArgument(msg[len(p):])
			if arg == "" {
				return Command{}, false
			}
			return Command{Kind: CommandForget, Argument: arg}, true
		}
	}
	return Command{}, false
}

func trimArgument(s string) string {
	return strings.Trim(strings.TrimSpace(s), ".!?")
}
