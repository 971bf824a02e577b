package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

// OpenAICompatible implements domain.Provider for any OpenAI-compatible
// endpoint. OpenRouter and the Hugging Face router both speak this dialect,
// including the legacy plain-completions route.
type OpenAICompatible struct {
	baseURL          string
	apiKey           string
	client           *http.Client
	maxResponseBytes int64
}

// NewOpenAICompatible creates a client for an OpenAI-compatible endpoint.
func NewOpenAICompatible(baseURL, apiKey string, timeout time.Duration, maxResponseBytes int64) *OpenAICompatible {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxResponseBytes <= 0 {
		maxResponseBytes = 4 * 1024 * 1024
	}
	return &OpenAICompatible{
		baseURL:          baseURL,
		apiKey:           apiKey,
		maxResponseBytes: maxResponseBytes,
		client:           &http.Client{Timeout: timeout},
	}
}

// NewOpenRouter creates a client for the OpenRouter API.
func NewOpenRouter(apiKey string, timeout time.Duration, maxResponseBytes int64) *OpenAICompatible {
	return NewOpenAICompatible("https://openrouter.ai/api/v1", apiKey, timeout, maxResponseBytes)
}

// NewHFRouter creates a client for the Hugging Face inference router.
func NewHFRouter(token string, timeout time.Duration, maxResponseBytes int64) *OpenAICompatible {
	return NewOpenAICompatible("https://router.huggingface.co/v1", token, timeout, maxResponseBytes)
}

type chatRequest struct {
	Model    string               `json:"model"`
	Messages []domain.ChatMessage `json:"messages"`
	Stream   bool                 `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      domain.ChatMessage `json:"message"`
		FinishReason string             `json:"finish_reason"`
	} `json:"choices"`
}

type completionRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ChatCompletion sends a message-based chat request.
func (p *OpenAICompatible) ChatCompletion(ctx context.Context, model string, messages []domain.ChatMessage) (string, error) {
	body, err := p.post(ctx, "/chat/completions", chatRequest{Model: model, Messages: messages})
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat response had no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// Completion sends a plain text-completion request via the legacy route.
func (p *OpenAICompatible) Completion(ctx context.Context, model string, prompt string) (string, error) {
	body, err := p.post(ctx, "/completions", completionRequest{Model: model, Prompt: prompt, MaxTokens: 1024})
	if err != nil {
		return "", err
	}

	var parsed completionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion response had no choices")
	}
	return parsed.Choices[0].Text, nil
}

func (p *OpenAICompatible) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call provider: %w", err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, p.maxResponseBytes+1)
	respBody, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read provider response (status %d): %w", resp.StatusCode, err)
	}
	if int64(len(respBody)) > p.maxResponseBytes {
		return nil, fmt.Errorf("provider response exceeded limit (%d bytes)", p.maxResponseBytes)
	}

	if resp.StatusCode >= 400 {
		message := http.StatusText(resp.StatusCode)
		var errBody errorResponse
		if err := json.Unmarshal(respBody, &errBody); err == nil && errBody.Error.Message != "" {
			message = errBody.Error.Message
		}
		return nil, &StatusError{Status: resp.StatusCode, Message: message}
	}

	return respBody, nil
}
