// Package llm provides a Claude-backed fact extractor. It asks the model
// for a JSON array of durable user facts found in an exchange and falls
// back to nothing on malformed output; extraction is an enhancement, never
// a hard dependency.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

const extractionPrompt = `You extract durable facts about the user from a conversation turn.

Return ONLY a JSON array of strings. Each string is one standalone fact about
the user worth remembering across conversations (preferences, identity,
relationships, recurring context). Return [] when the turn contains nothing
durable. Never include facts about the assistant.`

// Extractor implements memory.Extractor on the Anthropic API.
type Extractor struct {
	client   *anthropic.Client
	model    string
	maxFacts int
}

// Option configures the extractor.
type Option func(*Extractor)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(x *Extractor) {
		x.model = model
	}
}

// WithMaxFacts caps the facts returned per exchange.
func WithMaxFacts(n int) Option {
	return func(x *Extractor) {
		x.maxFacts = n
	}
}

// New creates a Claude-backed extractor.
func New(client *anthropic.Client, opts ...Option) *Extractor {
	x := &Extractor{
		client:   client,
		model:    "claude-sonnet-4-20250514",
		maxFacts: 4,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Extract asks the model for durable facts in the exchange.
func (x *Extractor) Extract(ctx context.Context, userText, assistantText string) ([]string, error) {
	body := fmt.Sprintf("User: %s\n\nAssistant: %s", userText, assistantText)

	resp, err := x.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(x.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: extractionPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(body)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("extraction call: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	facts, err := parseFacts(text)
	if err != nil {
		return nil, err
	}
	if len(facts) > x.maxFacts {
		facts = facts[:x.maxFacts]
	}
	return facts, nil
}

// parseFacts pulls a JSON string array out of the model's reply, tolerating
// code fences and surrounding prose.
func parseFacts(text string) ([]string, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON array in extraction response")
	}

	var raw []string
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}

	var facts []string
	for _, f := range raw {
		if f = strings.TrimSpace(f); f != "" {
			facts = append(facts, f)
		}
	}
	return facts, nil
}
