package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/veritas/internal/util"
)

const (
	defaultMaxTokens = 300

	// Provider answers are a short JSON verdict; anything larger is an error page
	maxResponseBytes = 1 << 20
)

// APIError is a non-200 answer from a provider endpoint
type APIError struct {
	Provider   string
	StatusCode int
	Kind       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s: HTTP %d %s: %s", e.Provider, e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Temporary reports rate limiting and server-side failures
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// jsonEndpoint is a provider HTTP API that speaks JSON both ways
type jsonEndpoint struct {
	provider string
	baseURL  string
	client   *http.Client
	header   http.Header

	// errorBody extracts kind and message from a provider error document
	errorBody func(body []byte) (kind, message string)
}

func newJSONEndpoint(provider, baseURL string, cfg Config, defaultTimeout time.Duration) *jsonEndpoint {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &jsonEndpoint{
		provider: provider,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
		},
		header: make(http.Header),
	}
}

// call sends in (nil for GET) to path and decodes a 200 answer into out
func (e *jsonEndpoint) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", e.provider, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", e.provider, err)
	}
	for k, vs := range e.header {
		req.Header[k] = vs
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", e.provider, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", e.provider, err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Provider: e.provider, StatusCode: resp.StatusCode}
		if e.errorBody != nil {
			apiErr.Kind, apiErr.Message = e.errorBody(data)
		}
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", e.provider, err)
	}
	return nil
}
