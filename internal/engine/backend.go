// Package engine produces structured match forecasts through a generative
// backend with a model-fallback chain.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultGenerateTimeout = 90 * time.Second

// ErrRateLimited signals the current model is throttled and the chain may
// advance to the next one. Every other backend error abandons the attempt.
var ErrRateLimited = errors.New("backend rate limited")

// Backend is the generative service the engine submits requests to.
type Backend interface {
	// Generate submits one request to the named model and returns the raw
	// text of the response document.
	Generate(ctx context.Context, model, system, user string) (string, error)
}

// HTTPBackend implements Backend over a chat-completions style API.
type HTTPBackend struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewHTTPBackend creates a backend client. An empty apiKey means no backend
// is configured; the engine then goes straight to its fallback payload.
func NewHTTPBackend(baseURL, apiKey string, timeout time.Duration) *HTTPBackend {
	if timeout <= 0 {
		timeout = defaultGenerateTimeout
	}
	return &HTTPBackend{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// Configured reports whether an API key is present.
func (b *HTTPBackend) Configured() bool { return b.apiKey != "" }

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
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate performs one chat-completions call. HTTP 429 maps to
// ErrRateLimited so the engine can advance its model chain.
func (b *HTTPBackend) Generate(ctx context.Context, model, system, user string) (string, error) {
	if !b.Configured() {
		return "", errors.New("backend not configured")
	}

	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("backend error: status=%d, body=%s", resp.StatusCode, string(raw))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("backend returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
