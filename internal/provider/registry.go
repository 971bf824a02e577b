package provider

import (
	"fmt"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

// Registry resolves configured provider IDs to clients.
type Registry map[string]domain.Provider

// NewRegistry builds the provider clients from configuration.
func NewRegistry(cfg domain.ProvidersConfig) Registry {
	openRouterURL := cfg.OpenRouterBaseURL
	if openRouterURL == "" {
		openRouterURL = "https://openrouter.ai/api/v1"
	}
	hfURL := cfg.HFBaseURL
	if hfURL == "" {
		hfURL = "https://router.huggingface.co/v1"
	}

	return Registry{
		"openrouter": NewOpenAICompatible(openRouterURL, cfg.OpenRouterAPIKey, cfg.Timeout, cfg.MaxResponseBytes),
		"hf":         NewOpenAICompatible(hfURL, cfg.HFAPIToken, cfg.Timeout, cfg.MaxResponseBytes),
		"anthropic":  NewAnthropic(cfg.AnthropicAPIKey),
	}
}

// Get returns the client for a provider ID.
func (r Registry) Get(id string) (domain.Provider, error) {
	p, ok := r[id]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %q", id)
	}
	return p, nil
}
