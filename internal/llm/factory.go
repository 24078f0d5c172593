package llm

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ppiankov/veritas/internal/model"
)

var constructors = map[string]func(Config) (Provider, error){
	"openai":    func(c Config) (Provider, error) { return NewOpenAIProvider(c) },
	"anthropic": func(c Config) (Provider, error) { return NewAnthropicProvider(c) },
	"ollama":    func(c Config) (Provider, error) { return NewOllamaProvider(c) },
}

var providerAliases = map[string]string{
	"claude": "anthropic",
}

// Providers lists the supported provider names
func Providers() []string {
	return slices.Sorted(maps.Keys(constructors))
}

// NewProvider builds the configured provider. An empty provider name
// returns (nil, nil): model-backed checking is off.
func NewProvider(cfg Config) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		return nil, nil
	}
	if canonical, ok := providerAliases[name]; ok {
		name = canonical
	}
	newFn, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown LLM provider %q (supported: %s)",
			model.ErrInvalidConfig, cfg.Provider, strings.Join(Providers(), ", "))
	}
	return newFn(cfg)
}

// ConfigFromModel maps the llm section of the pipeline config
func ConfigFromModel(c model.LLMConfig) Config {
	return Config{
		Provider:   c.Provider,
		Model:      c.Model,
		APIKey:     c.APIKey,
		BaseURL:    c.BaseURL,
		Timeout:    c.Timeout,
		MaxTokens:  c.MaxTokens,
		HTTPProxy:  c.HTTPProxy,
		HTTPSProxy: c.HTTPSProxy,
		NoProxy:    c.NoProxy,
	}
}
