package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

// Anthropic implements domain.Provider for the Anthropic Messages API. The
// family is chat-only: Completion always returns ErrChatOnly.
type Anthropic struct {
	client anthropic.Client
}

// NewAnthropic creates an Anthropic client.
func NewAnthropic(apiKey string) *Anthropic {
	return &Anthropic{client: anthropic.NewClient(option.WithAPIKey(apiKey))}
}

// ChatCompletion sends a message-based request to the Messages API.
func (p *Anthropic) ChatCompletion(ctx context.Context, model string, messages []domain.ChatMessage) (string, error) {
	var system []anthropic.TextBlockParam
	params := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case "assistant":
			params = append(params, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 4096,
		System:    system,
		Messages:  params,
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &StatusError{Status: apiErr.StatusCode, Message: apiErr.Error()}
		}
		return "", fmt.Errorf("anthropic call: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in anthropic response")
}

// Completion is unsupported: the Messages API has no plain-completion route.
func (p *Anthropic) Completion(ctx context.Context, model string, prompt string) (string, error) {
	return "", ErrChatOnly
}
