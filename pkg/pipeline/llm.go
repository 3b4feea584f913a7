// Package pipeline runs the full request flow: sanitize, analyze, decide,
// tokenize, forward downstream, audit.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/airmslabs/aegis/pkg/httputil"
)

// LLMClient forwards tokenized content to the downstream model.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// chatRequest is an OpenAI-compatible chat completion payload, accepted by
// OpenRouter, Ollama and most self-hosted gateways.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// HTTPLLMClient talks to an OpenAI-compatible chat completions endpoint
// using the shared slow-tier pooled client.
type HTTPLLMClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewHTTPLLMClient builds a downstream client. baseURL is the API root,
// e.g. https://openrouter.ai/api/v1 or http://localhost:11434/v1.
func NewHTTPLLMClient(baseURL, apiKey, model string) *HTTPLLMClient {
	return &HTTPLLMClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  httputil.SlowClient(),
	}
}

// Complete sends prompt as a single user message and returns the first
// choice's content.
func (c *HTTPLLMClient) Complete(ctx context.Context, prompt string) (string, error) {
	payload := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.7,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal llm request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("build llm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	defer httputil.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		errBody, _ := httputil.ReadErrorBody(resp.Body)
		return "", fmt.Errorf("llm returned %d: %s", resp.StatusCode, string(errBody))
	}

	raw, err := httputil.ReadResponseBody(resp.Body, httputil.MaxResponseSize)
	if err != nil {
		return "", fmt.Errorf("read llm response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode llm response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("llm error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
