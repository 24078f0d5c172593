package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/ppiankov/veritas/internal/model"
)

// Provider is a model backend that answers fact-check prompts
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends the prompt and returns the raw model output
	Complete(ctx context.Context, prompt Prompt) (string, error)

	// Ping checks that the provider is configured and reachable
	Ping(ctx context.Context) error
}

// Prompt is a system/user message pair
type Prompt struct {
	System string
	User   string
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Timeout:   30,
		MaxTokens: 300,
	}
}

const systemPrompt = `You are a strict fact-checking service. You judge a single claim.
Answer ONLY with a JSON object of the form
{"verdict": "true" | "false" | "unknown", "confidence": <number between 0 and 1>, "reason": "<short reason>"}.
Use "false" when the claim is fabricated or contradicts well-established facts (e.g. a court case that does not exist).
Use "unknown" when you cannot tell. Never add text outside the JSON object.`

// BuildPrompt constructs the fact-check prompt for a claim
func BuildPrompt(req model.CheckRequest) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Domain: %s\n", req.Domain.ID)
	fmt.Fprintf(&b, "Claim: %q\n", req.Claim)

	// Only scalar context values are forwarded; the rest is opaque to the model
	for _, key := range sortedKeys(req.Context) {
		switch v := req.Context[key].(type) {
		case string, bool, int, int64, float64:
			fmt.Fprintf(&b, "Context %s: %v\n", key, v)
		}
	}

	return Prompt{System: systemPrompt, User: b.String()}
}

// verdictResponse is the JSON object the model is asked to produce
type verdictResponse struct {
	Verdict    string   `json:"verdict"`
	Confidence *float64 `json:"confidence"`
	Reason     string   `json:"reason"`
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// ParseVerdict extracts the verdict from model output. Models sometimes wrap
// JSON in prose or code fences, so the outermost {...} is parsed.
func ParseVerdict(provider, output string) (model.Verdict, error) {
	raw := jsonObjectPattern.FindString(output)
	if raw == "" {
		return model.Verdict{}, fmt.Errorf("no JSON object in %s output", provider)
	}

	var resp verdictResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return model.Verdict{}, fmt.Errorf("parse %s verdict: %w", provider, err)
	}
	if resp.Confidence == nil {
		return model.Verdict{}, fmt.Errorf("%s verdict has no confidence", provider)
	}

	source := "llm:" + provider
	switch strings.ToLower(strings.TrimSpace(resp.Verdict)) {
	case "false", "fabricated", "hallucination":
		return model.Verdict{IsHallucination: true, Confidence: *resp.Confidence, Source: source}, nil
	case "true", "supported":
		return model.Verdict{IsHallucination: false, Confidence: *resp.Confidence, Source: source}, nil
	case "unknown", "":
		return model.Unverified(), nil
	default:
		return model.Verdict{}, fmt.Errorf("unknown %s verdict %q", provider, resp.Verdict)
	}
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
