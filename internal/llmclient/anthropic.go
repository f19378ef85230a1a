package llmclient

import (
	"context"
	"encoding/json"
	"fmt"

	anthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/hjonck/leadscout/internal/domain"
)

// AnthropicProvider classifies names through the Anthropic Messages API.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
	tag    string
}

// NewAnthropicProvider wraps an already-configured anthropic.Client. model
// is the model identifier (e.g. "claude-sonnet-4-5-20250514"); tag is the
// ProviderTag persisted alongside every answer it produces.
func NewAnthropicProvider(client anthropic.Client, model, tag string) *AnthropicProvider {
	return &AnthropicProvider{client: client, model: model, tag: tag}
}

func (p *AnthropicProvider) ProviderTag() string { return p.tag }

func (p *AnthropicProvider) Classify(ctx context.Context, n domain.NormalisedName) (domain.LLMAnswer, error) {
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 256,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(classifyPrompt(n))),
		},
	})
	if err != nil {
		return domain.LLMAnswer{}, fmt.Errorf("anthropic messages.new: %w", err)
	}
	if len(msg.Content) == 0 {
		return domain.LLMAnswer{}, fmt.Errorf("anthropic: empty response for %q", n.Canonical)
	}

	jsonStr, err := extractJSON(msg.Content[0].Text)
	if err != nil {
		return domain.LLMAnswer{}, fmt.Errorf("anthropic: %w", err)
	}

	var parsed parsedAnswer
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return domain.LLMAnswer{}, fmt.Errorf("anthropic: decode response: %w", err)
	}
	return parsed.toLLMAnswer(p.tag)
}
