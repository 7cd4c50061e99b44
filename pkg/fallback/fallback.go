// Package fallback generates a local reply when the gateway cannot.
// It calls the OpenAI chat completions API directly: one short,
// non-streamed completion is enough to keep the conversation alive.
package fallback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/chiefvoice/go-chief/internal/httpc"
)

const (
	// DefaultBaseURL is the OpenAI API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel keeps fallback replies fast and cheap.
	DefaultModel = "gpt-4o-mini"

	systemPrompt = "You are a voice assistant. The main agent is temporarily unreachable. " +
		"Answer the user's request as helpfully as you can in one or two short spoken sentences. " +
		"If the request needs tools or account data you cannot access, say so briefly and " +
		"suggest trying again in a moment."
)

// ErrMissingAPIKey indicates the generator was built without a key.
var ErrMissingAPIKey = errors.New("fallback: OpenAI API key is required")

// Generator produces fallback replies via the OpenAI API.
type Generator struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(g *Generator) { g.baseURL = url }
}

// WithModel overrides the completion model.
func WithModel(model string) Option {
	return func(g *Generator) { g.model = model }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// New creates a Generator.
func New(apiKey string, opts ...Option) (*Generator, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	g := &Generator{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
		client:  httpc.Client,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "fallback")
	return g, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate produces a short spoken reply to the user's utterance.
func (g *Generator) Generate(ctx context.Context, userMessage string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		MaxTokens:   150,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("fallback: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("fallback: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	g.logger.Info("generating fallback reply", "model", g.model)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fallback: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("fallback: read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("fallback: decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("fallback: API error: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fallback: API returned status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("fallback: API returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
