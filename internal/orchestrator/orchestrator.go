// Package orchestrator drives the multi-provider model invocation layer:
// candidate iteration, protocol negotiation, retry/backoff, response parsing,
// and the two-stage medical pipeline.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openrisk-labs/kestrel/internal/domain"
	"github.com/openrisk-labs/kestrel/internal/provider"
)

// Resolver maps configured provider IDs to clients. provider.Registry
// implements it; tests inject fakes.
type Resolver interface {
	Get(id string) (domain.Provider, error)
}

// Orchestrator attempts an ordered candidate list with protocol negotiation
// and rate-limit retries, returning the first successfully parsed result.
type Orchestrator struct {
	resolver Resolver
	retry    domain.RetryConfig
}

// New creates an Orchestrator.
func New(resolver Resolver, retry domain.RetryConfig) *Orchestrator {
	if retry.MaxRetries <= 0 {
		retry.MaxRetries = 3
	}
	if retry.BaseDelay <= 0 {
		retry.BaseDelay = 2 * time.Second
	}
	return &Orchestrator{resolver: resolver, retry: retry}
}

// Outcome is a successful orchestrator invocation. Exactly one of Fraud and
// Clinical is set, matching the requested response shape.
type Outcome struct {
	Fraud     *FraudParse
	Clinical  *ClinicalParse
	Candidate domain.ProviderCandidate
	ModelUsed string
}

// Models known to reject the chat protocol: skip straight to plain completion.
var noChatModels = []string{
	"instruction-pretrain/finance-Llama3-8B",
	"meta-llama/Llama-3.1-8B-Instruct",
	"mistralai/Mistral-7B-Instruct-v0.2",
}

// Model families that support only the chat protocol. Degrading these to
// plain completion returns garbage, so exhausted retries raise instead.
var chatOnlyFamilies = []string{"qwen", "claude", "anthropic/"}

func isNoChat(model string) bool {
	for _, m := range noChatModels {
		if strings.Contains(model, m) {
			return true
		}
	}
	return false
}

func isChatOnly(c domain.ProviderCandidate) bool {
	if c.Provider == "anthropic" {
		return true
	}
	lower := strings.ToLower(c.Model)
	for _, f := range chatOnlyFamilies {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

// Invoke tries each candidate in order. Chat protocol first unless the model
// is on the no-chat list; a non-rate-limit client error falls back to plain
// completion on the same candidate; rate limits retry with exponential
// backoff. Returns nil with no error when every candidate is exhausted — the
// caller escalates to the deterministic path. A chat-only candidate failing
// its protocol returns an error instead.
func (o *Orchestrator) Invoke(ctx context.Context, candidates []domain.ProviderCandidate, prompt string, clinical bool) (*Outcome, error) {
	return o.invoke(ctx, candidates, prompt, clinical, 0)
}

// invoke is Invoke with a fallback-numbering offset, used when the candidate
// list starts mid-chain (two-stage fallback lists).
func (o *Orchestrator) invoke(ctx context.Context, candidates []domain.ProviderCandidate, prompt string, clinical bool, idxOffset int) (*Outcome, error) {
	for i, cand := range candidates {
		idx := i + idxOffset
		if cand.Provider == "" || cand.Model == "" {
			continue
		}

		p, err := o.resolver.Get(cand.Provider)
		if err != nil {
			slog.Error("skipping candidate with unknown provider", "provider", cand.Provider, "model", cand.Model)
			continue
		}

		if idx > 0 {
			slog.Warn("previous candidate failed, trying fallback",
				"fallback", idx, "provider", cand.Provider, "model", cand.Model)
		} else {
			slog.Info("calling primary model", "provider", cand.Provider, "model", cand.Model)
		}

		text, err := o.attempt(ctx, p, cand, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if isChatOnly(cand) {
				return nil, fmt.Errorf("chat-only model %s failed its protocol: %w", cand.Model, err)
			}
			slog.Warn("candidate exhausted", "provider", cand.Provider, "model", cand.Model, "error", err)
			continue
		}

		out := &Outcome{
			Candidate: cand,
			ModelUsed: formatModelUsed(cand, idx),
		}
		if clinical {
			out.Clinical = ParseClinical(text)
		} else {
			out.Fraud = ParseFraud(text)
		}
		if idx > 0 {
			slog.Info("fallback candidate succeeded", "fallback", idx, "model", cand.Model)
		}
		return out, nil
	}

	slog.Warn("all model candidates exhausted")
	return nil, nil
}

// attempt runs the protocol negotiation for one candidate: chat with
// rate-limit retries, then plain completion with rate-limit retries.
func (o *Orchestrator) attempt(ctx context.Context, p domain.Provider, cand domain.ProviderCandidate, prompt string) (string, error) {
	chatOnly := isChatOnly(cand)

	var chatErr error
	if !isNoChat(cand.Model) {
		text, err := o.withRetries(ctx, func() (string, error) {
			return p.ChatCompletion(ctx, cand.Model, []domain.ChatMessage{{Role: "user", Content: prompt}})
		})
		if err == nil {
			return text, nil
		}
		chatErr = err
		if chatOnly {
			return "", chatErr
		}
		if provider.IsClientError(err) {
			slog.Debug("chat protocol rejected, falling back to plain completion", "model", cand.Model)
		}
	} else if chatOnly {
		return "", fmt.Errorf("model %s is both chat-only and chat-denylisted", cand.Model)
	}

	text, err := o.withRetries(ctx, func() (string, error) {
		return p.Completion(ctx, cand.Model, prompt)
	})
	if err != nil {
		if chatErr != nil {
			return "", fmt.Errorf("chat: %v; completion: %w", chatErr, err)
		}
		return "", err
	}
	return text, nil
}

// withRetries retries rate-limited calls up to MaxRetries times with
// exponential backoff (base x 2^attempt), yielding to context cancellation
// during the wait. Other errors are returned immediately.
func (o *Orchestrator) withRetries(ctx context.Context, call func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt < o.retry.MaxRetries; attempt++ {
		text, err := call()
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !provider.IsRateLimit(err) || attempt == o.retry.MaxRetries-1 {
			return "", err
		}

		delay := o.retry.BaseDelay * (1 << attempt)
		slog.Warn("rate limited, backing off", "attempt", attempt+1, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

var modelDisplayNames = []struct{ match, display string }{
	{"Qwen2.5-72B", "Qwen2.5-72B-Instruct"},
	{"nemotron-nano-12b-v2-vl", "Nemotron-2 (12B VL)"},
	{"nemotron-3-nano-30b", "Nemotron-3-Nano-30B"},
	{"llama-3.1-70b", "Llama-3.1-70B"},
	{"claude-sonnet", "Claude Sonnet"},
	{"claude-haiku", "Claude Haiku"},
}

func displayName(model string) string {
	lower := strings.ToLower(model)
	for _, d := range modelDisplayNames {
		if strings.Contains(lower, strings.ToLower(d.match)) {
			return d.display
		}
	}
	if idx := strings.LastIndex(model, "/"); idx >= 0 {
		return model[idx+1:]
	}
	return model
}

var providerDisplayNames = map[string]string{
	"hf":         "HF",
	"openrouter": "OpenRouter",
	"anthropic":  "Anthropic",
}

func formatModelUsed(cand domain.ProviderCandidate, idx int) string {
	pd, ok := providerDisplayNames[cand.Provider]
	if !ok {
		pd = strings.ToUpper(cand.Provider)
	}
	if idx > 0 {
		return fmt.Sprintf("%s (Fallback #%d - %s)", displayName(cand.Model), idx, pd)
	}
	return fmt.Sprintf("%s (%s)", displayName(cand.Model), pd)
}
