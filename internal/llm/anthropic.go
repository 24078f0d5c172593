package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicVersion      = "2023-06-01"
	anthropicDefaultModel = "claude-3-5-haiku-20241022"
	anthropicDefaultURL   = "https://api.anthropic.com"
)

// AnthropicProvider calls the Anthropic Messages API
type AnthropicProvider struct {
	api       *jsonEndpoint
	model     string
	maxTokens int
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Role       string             `json:"role"`
	Content    []anthropicContent `json:"content"`
	Model      string             `json:"model"`
	StopReason string             `json:"stop_reason"`
}

// text joins the text blocks of a response
func (r *anthropicResponse) text() string {
	var b strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

// NewAnthropicProvider creates a provider; an API key is required
func NewAnthropicProvider(cfg Config) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = anthropicDefaultURL
	}

	api := newJSONEndpoint("anthropic", baseURL, cfg, 30*time.Second)
	api.header.Set("x-api-key", cfg.APIKey)
	api.header.Set("anthropic-version", anthropicVersion)
	api.errorBody = func(body []byte) (string, string) {
		var doc struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(body, &doc)
		return doc.Error.Type, doc.Error.Message
	}

	p := &AnthropicProvider{api: api, model: cfg.Model, maxTokens: cfg.MaxTokens}
	if p.model == "" {
		p.model = anthropicDefaultModel
	}
	if p.maxTokens <= 0 {
		p.maxTokens = defaultMaxTokens
	}
	return p, nil
}

func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Ping spends a single output token to prove the key and model work
func (p *AnthropicProvider) Ping(ctx context.Context) error {
	_, err := p.messages(ctx, anthropicRequest{
		Model:     p.model,
		MaxTokens: 1,
		Messages:  []anthropicMessage{{Role: "user", Content: "ping"}},
	})
	return err
}

// Complete sends the prompt as a single user turn
func (p *AnthropicProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	resp, err := p.messages(ctx, anthropicRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		System:    prompt.System,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt.User}},
	})
	if err != nil {
		return "", err
	}
	out := resp.text()
	if out == "" {
		return "", fmt.Errorf("anthropic: response %s has no text", resp.ID)
	}
	return out, nil
}

func (p *AnthropicProvider) messages(ctx context.Context, req anthropicRequest) (*anthropicResponse, error) {
	var resp anthropicResponse
	if err := p.api.call(ctx, http.MethodPost, "/v1/messages", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
