package domain

import "context"

// ProviderCandidate is one (provider, model) pair the orchestrator may call.
// An ordered list per sector forms a fallback chain: primary first, then zero
// or more fallbacks. Candidate lists are configured per sector, never per
// request.
type ProviderCandidate struct {
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model" yaml:"model"`
}

// ChatMessage is a single message in a chat-protocol request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is an upstream model client. Implementations must surface
// rate-limit status distinguishably from other errors (see provider.IsRateLimit)
// and must set a per-call timeout on every network request.
type Provider interface {
	// ChatCompletion sends a message-based chat request.
	ChatCompletion(ctx context.Context, model string, messages []ChatMessage) (string, error)

	// Completion sends a plain text-completion request. Chat-only providers
	// return provider.ErrChatOnly.
	Completion(ctx context.Context, model string, prompt string) (string, error)
}
