package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const ollamaDefaultURL = "http://localhost:11434"

// OllamaProvider talks to a local Ollama server
type OllamaProvider struct {
	api       *jsonEndpoint
	model     string
	maxTokens int
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Format  string        `json:"format,omitempty"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaTags struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewOllamaProvider creates a provider for cfg.Model on cfg.BaseURL
func NewOllamaProvider(cfg Config) (*OllamaProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama needs a model name (e.g. llama3.1:8b)")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = ollamaDefaultURL
	}

	// Local generation on CPU is slow
	api := newJSONEndpoint("ollama", baseURL, cfg, 60*time.Second)
	api.errorBody = func(body []byte) (string, string) {
		var doc struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &doc)
		return "", doc.Error
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &OllamaProvider{api: api, model: cfg.Model, maxTokens: maxTokens}, nil
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Ping checks the server answers and has the configured model pulled.
// An empty model list is accepted: some deployments pull on first use.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	var tags ollamaTags
	if err := p.api.call(ctx, http.MethodGet, "/api/tags", nil, &tags); err != nil {
		return err
	}
	if len(tags.Models) == 0 {
		return nil
	}
	for _, m := range tags.Models {
		if sameOllamaModel(m.Name, p.model) {
			return nil
		}
	}
	return fmt.Errorf("ollama: model %q is not pulled on %s", p.model, p.api.baseURL)
}

// Complete runs a non-streaming generation constrained to JSON output
func (p *OllamaProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	var resp ollamaResponse
	err := p.api.call(ctx, http.MethodPost, "/api/generate", ollamaRequest{
		Model:   p.model,
		Prompt:  prompt.User,
		System:  prompt.System,
		Format:  "json",
		Options: ollamaOptions{NumPredict: p.maxTokens},
	}, &resp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Response), nil
}

// sameOllamaModel treats "name" and "name:latest" as the same model
func sameOllamaModel(listed, wanted string) bool {
	if listed == wanted {
		return true
	}
	if !strings.Contains(wanted, ":") {
		return listed == wanted+":latest"
	}
	return false
}
