package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/worker"
)

type mockProvider struct {
	output  string
	err     error
	prompts []Prompt
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.output, m.err
}

func (m *mockProvider) Ping(ctx context.Context) error { return m.err }

func TestChecker_Check(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    model.Verdict
		wantErr bool
	}{
		{
			name:   "fabricated",
			output: `{"verdict": "false", "confidence": 0.92, "reason": "no such case"}`,
			want:   model.Verdict{IsHallucination: true, Confidence: 0.92, Source: "llm:mock"},
		},
		{
			name:   "supported in code fence",
			output: "```json\n{\"verdict\": \"true\", \"confidence\": 0.7}\n```",
			want:   model.Verdict{IsHallucination: false, Confidence: 0.7, Source: "llm:mock"},
		},
		{
			name:   "unknown",
			output: `{"verdict": "unknown", "confidence": 0.1}`,
			want:   model.Unverified(),
		},
		{name: "prose only", output: "I think it is false.", wantErr: true},
		{name: "missing confidence", output: `{"verdict": "false"}`, wantErr: true},
		{name: "odd verdict", output: `{"verdict": "maybe", "confidence": 0.5}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewChecker(&mockProvider{output: tt.output}, nil)
			got, err := checker.Check(context.Background(), model.CheckRequest{Claim: "claim"})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got verdict %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Check failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestChecker_ProviderError(t *testing.T) {
	checker := NewChecker(&mockProvider{err: errors.New("boom")}, worker.NewLimiter(100, 1))
	if _, err := checker.Check(context.Background(), model.CheckRequest{Claim: "claim"}); err == nil {
		t.Error("Expected provider error to propagate")
	}
}

func TestChecker_RateLimitRespectsContext(t *testing.T) {
	limiter := worker.NewLimiter(0.001, 1)
	checker := NewChecker(&mockProvider{output: `{"verdict": "true", "confidence": 1}`}, limiter)

	if _, err := checker.Check(context.Background(), model.CheckRequest{Claim: "claim"}); err != nil {
		t.Fatalf("First check failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := checker.Check(ctx, model.CheckRequest{Claim: "claim"}); err == nil {
		t.Error("Expected rate-limited check to fail on cancelled context")
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(model.CheckRequest{
		Claim:  "Turner v. Cognivault was decided in 2022.",
		Domain: model.DomainProfile{ID: model.DomainLegal},
		Context: map[string]any{
			"jurisdiction": "US",
			"nested":       map[string]any{"ignored": true},
		},
	})

	if !strings.Contains(prompt.System, `"verdict"`) {
		t.Error("Expected system prompt to describe the JSON verdict")
	}
	for _, want := range []string{"Domain: legal", "Turner v. Cognivault", "Context jurisdiction: US"} {
		if !strings.Contains(prompt.User, want) {
			t.Errorf("Expected user prompt to contain %q, got %q", want, prompt.User)
		}
	}
	if strings.Contains(prompt.User, "ignored") {
		t.Error("Expected non-scalar context to be dropped")
	}
}

func TestNewProvider(t *testing.T) {
	if p, err := NewProvider(Config{}); p != nil || err != nil {
		t.Errorf("Expected disabled provider, got %v %v", p, err)
	}
	if _, err := NewProvider(Config{Provider: "bard"}); err == nil {
		t.Error("Expected error for unknown provider")
	}
	if p, err := NewProvider(Config{Provider: "Claude", APIKey: "k"}); err != nil || p.Name() != "anthropic" {
		t.Errorf("Expected anthropic provider for claude alias, got %v %v", p, err)
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := ConfigFromModel(model.LLMConfig{Provider: "ollama", Model: "llama3.1", Timeout: 12, HTTPSProxy: "http://proxy:3128"})
	if cfg.Provider != "ollama" || cfg.Model != "llama3.1" || cfg.Timeout != 12 || cfg.HTTPSProxy != "http://proxy:3128" {
		t.Errorf("Unexpected config %+v", cfg)
	}
}

type flakyProvider struct {
	failures int
	calls    int
	err      error
}

func (f *flakyProvider) Name() string { return "flaky" }

func (f *flakyProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", f.err
	}
	return `{"verdict": "false", "confidence": 0.9}`, nil
}

func (f *flakyProvider) Ping(ctx context.Context) error { return nil }

func TestChecker_RetriesTemporaryAPIError(t *testing.T) {
	old := retryDelay
	retryDelay = time.Millisecond
	defer func() { retryDelay = old }()

	tests := []struct {
		name      string
		err       error
		wantCalls int
		wantErr   bool
	}{
		{name: "rate limited once", err: &APIError{Provider: "flaky", StatusCode: 429}, wantCalls: 2},
		{name: "bad request", err: &APIError{Provider: "flaky", StatusCode: 400}, wantCalls: 1, wantErr: true},
		{name: "plain error", err: errors.New("dial"), wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &flakyProvider{failures: 1, err: tt.err}
			_, err := NewChecker(p, nil).Check(context.Background(), model.CheckRequest{Claim: "claim"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if p.calls != tt.wantCalls {
				t.Errorf("Expected %d calls, got %d", tt.wantCalls, p.calls)
			}
		})
	}
}

func TestAPIError(t *testing.T) {
	err := &APIError{Provider: "anthropic", StatusCode: 529, Kind: "overloaded_error", Message: "busy"}
	if err.Error() != "anthropic: HTTP 529 overloaded_error: busy" {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if !err.Temporary() {
		t.Error("Expected 529 to be temporary")
	}
	if (&APIError{StatusCode: 401}).Temporary() {
		t.Error("Expected 401 to be permanent")
	}
}

func TestProviders(t *testing.T) {
	got := strings.Join(Providers(), ",")
	if got != "anthropic,ollama,openai" {
		t.Errorf("Unexpected providers %s", got)
	}
}
