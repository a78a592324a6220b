package memory

import (
	"context"
	"strings"
)

// RuleExtractor is the default Extractor: cheap pattern heuristics that
// pick out self-descriptive sentences from the user's message. It trades
// recall for zero cost and zero external calls; swap in extractor/llm for
// higher quality extraction.
type RuleExtractor struct {
	// MaxFacts caps the facts returned per call. Zero means 4.
	MaxFacts int
}

// factMarkers are substrings that indicate a sentence states something
// durable about the user.
var factMarkers = []string{
	"my name is",
	"call me",
	"i am ",
	"i'm ",
	"i live",
	"i work",
	"i like",
	"i love",
	"i hate",
	"i prefer",
	"i have a",
	"i have an",
	"my favorite",
	"my favourite",
	"my birthday",
	"i was born",
	"i speak",
	"i use ",
	"i don't like",
	"i dont like",
	"i'm allergic",
	"i am allergic",
}

// Extract scans the user's message sentence by sentence and returns the
// ones that look like facts worth keeping. The assistant text is ignored;
// facts about the user come from the user.
func (e *RuleExtractor) Extract(ctx context.Context, userText, assistantText string) ([]string, error) {
	maxFacts := e.MaxFacts
	if maxFacts <= 0 {
		maxFacts = 4
	}

	var facts []string
	seen := make(map[string]struct{})
	for _, sentence := range splitSentences(userText) {
		if len(facts) >= maxFacts {
			break
		}
		if !looksLikeFact(sentence) {
			continue
		}
		key := normalizeContent(sentence)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		facts = append(facts, sentence)
	}
	return facts, nil
}

func looksLikeFact(sentence string) bool {
	if len(sentence) < 8 || len(sentence) > 240 {
		return false
	}
	lower := strings.ToLower(sentence)
	// Questions aren't facts.
	if strings.HasSuffix(strings.TrimSpace(lower), "?") {
		return false
	}
	for _, marker := range factMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func splitSentences(text string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		s := strings.TrimSpace(cur.String())
		cur.Reset()
		if s != "" {
			out = append(out, s)
		}
	}
	for _, r := range text {
		switch r {
		case '.', '!', '\n', ';':
			flush()
		case '?':
			cur.WriteRune(r)
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}
