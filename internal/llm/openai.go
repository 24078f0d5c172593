package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/veritas/internal/util"
)

// OpenAIProvider calls the chat completions API through go-openai
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

// NewOpenAIProvider creates a provider; an API key is required
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		},
	}

	p := &OpenAIProvider{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   time.Duration(cfg.Timeout) * time.Second,
	}
	if p.model == "" {
		p.model = openai.GPT4oMini
	}
	if p.maxTokens <= 0 {
		p.maxTokens = defaultMaxTokens
	}
	if p.timeout <= 0 {
		p.timeout = 30 * time.Second
	}
	return p, nil
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Ping lists models and checks the configured one is available to the key
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	list, err := p.client.ListModels(ctx)
	if err != nil {
		return p.wrap(err)
	}
	for _, m := range list.Models {
		if m.ID == p.model {
			return nil
		}
	}
	return fmt.Errorf("openai: model %q is not available", p.model)
}

// Complete runs a chat completion in JSON mode
func (p *OpenAIProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User},
		},
		MaxTokens: p.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", p.wrap(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: completion %s has no choices", resp.ID)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// wrap maps go-openai status errors onto APIError so callers see one error shape
func (p *OpenAIProvider) wrap(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			Provider:   p.Name(),
			StatusCode: apiErr.HTTPStatusCode,
			Kind:       apiErr.Type,
			Message:    apiErr.Message,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{
			Provider:   p.Name(),
			StatusCode: reqErr.HTTPStatusCode,
			Message:    reqErr.Error(),
		}
	}
	return fmt.Errorf("openai: %w", err)
}
