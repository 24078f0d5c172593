package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/veritas/internal/model"
)

func init() {
	fetchSleepFunc = func(d time.Duration) {}
}

func testHTTPConfig() model.HTTPConfig {
	return model.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "test-agent", MaxBodyBytes: 1 << 20}
}

func TestFetchWithRetry_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("Expected user agent test-agent, got %s", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, "The court ruled for the plaintiff.")
	}))
	defer server.Close()

	result, err := NewFetcher(testHTTPConfig()).FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Body != "The court ruled for the plaintiff." || result.ContentType != "text/plain" {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "OK")
	}))
	defer server.Close()

	result, err := NewFetcher(testHTTPConfig()).FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if result.Body != "OK" {
		t.Errorf("Unexpected body: %s", result.Body)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewFetcher(testHTTPConfig()).FetchWithRetry(context.Background(), server.URL)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 status error, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected 404 not to be retried, got %d attempts", attempts.Load())
	}
}

func TestFetch_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, strings.Repeat("a", 100))
	}))
	defer server.Close()

	cfg := testHTTPConfig()
	cfg.MaxBodyBytes = 10
	_, err := NewFetcher(cfg).FetchWithRetry(context.Background(), server.URL)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Expected ErrTooLarge, got %v", err)
	}
}

func TestLoader_Sources(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, "<p>Tony the Tiger is the mascot of Frosted Flakes.</p>")
	}))
	defer server.Close()

	dir := t.TempDir()
	textPath := filepath.Join(dir, "answer.txt")
	htmlPath := filepath.Join(dir, "answer.html")
	if err := os.WriteFile(textPath, []byte("Plain answer text here."), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(htmlPath, []byte("<p>Marked up answer.</p>"), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(testHTTPConfig(), strings.NewReader("<!DOCTYPE html><html><body>From stdin</body></html>"))
	ctx := context.Background()

	tests := []struct {
		arg    string
		format string
		origin string
	}{
		{textPath, model.FormatText, textPath},
		{htmlPath, model.FormatHTML, htmlPath},
		{"-", model.FormatHTML, "stdin"},
		{server.URL + "/answer", model.FormatHTML, server.URL + "/answer"},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			in, err := loader.Load(ctx, tt.arg)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if in.Format != tt.format || in.Origin != tt.origin || in.Text == "" {
				t.Errorf("Unexpected input %+v", in)
			}
		})
	}

	if _, err := loader.Load(ctx, filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestSniffFormat(t *testing.T) {
	if got := sniffFormat("", []byte("  <html><body>x</body></html>")); got != model.FormatHTML {
		t.Errorf("Expected html, got %s", got)
	}
	if got := sniffFormat("notes.md", []byte("# Heading")); got != model.FormatText {
		t.Errorf("Expected text, got %s", got)
	}
	if got := sniffFormat("", nil); got != model.FormatText {
		t.Errorf("Expected text for empty input, got %s", got)
	}
}
