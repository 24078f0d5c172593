package worker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/veritas/internal/model"
)

type mockProcessor struct {
	mu    sync.Mutex
	seen  []model.ProcessOptions
	delay time.Duration
}

func (m *mockProcessor) ProcessResponse(ctx context.Context, text string, opts model.ProcessOptions) model.ProcessResult {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if text == "panic" {
		panic("processor failed")
	}
	m.mu.Lock()
	m.seen = append(m.seen, opts)
	m.mu.Unlock()

	return model.ProcessResult{
		Subject: opts.Subject,
		EnforcementResult: model.EnforcementResult{
			Blocked:      strings.Contains(text, "Cognivault"),
			EnforcedText: text,
		},
	}
}

func TestBatchProcessor_Process_PreservesOrder(t *testing.T) {
	processor := &mockProcessor{delay: 5 * time.Millisecond}
	batch := NewBatchProcessor(processor, 3)

	var items []Item
	for i := 0; i < 20; i++ {
		items = append(items, Item{Text: strings.Repeat("x", i+1)})
	}

	results := batch.Process(context.Background(), items)
	if len(results) != len(items) {
		t.Fatalf("expected %d results, got %d", len(items), len(results))
	}

	for i, res := range results {
		if res.Item.Index != i {
			t.Errorf("result %d has index %d", i, res.Item.Index)
		}
		if res.Result.EnforcementResult.EnforcedText != items[i].Text {
			t.Errorf("result %d does not match its item", i)
		}
	}
}

func TestBatchProcessor_Process_PassesOptions(t *testing.T) {
	processor := &mockProcessor{}
	batch := NewBatchProcessor(processor, 1)

	results := batch.Process(context.Background(), []Item{
		{ID: "a1", Subject: "agent-7", Domain: "legal", Text: "Turner v. Cognivault held something."},
	})

	if !results[0].Result.EnforcementResult.Blocked {
		t.Error("expected processor result to be returned")
	}

	opts := processor.seen[0]
	if opts.Subject != "agent-7" || opts.DomainOverride != "legal" {
		t.Errorf("unexpected options %+v", opts)
	}
	if opts.Context["item_id"] != "a1" {
		t.Errorf("expected item id in context, got %v", opts.Context)
	}
}

func TestBatchProcessor_Process_Empty(t *testing.T) {
	batch := NewBatchProcessor(&mockProcessor{}, 2)
	if results := batch.Process(context.Background(), nil); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestBatchProcessor_Process_RecoversPanics(t *testing.T) {
	batch := NewBatchProcessor(&mockProcessor{}, 2)

	results := batch.Process(context.Background(), []Item{{Text: "fine"}, {Text: "panic"}, {Text: "also fine"}})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[1].Error == "" || results[1].Item.Index != 1 {
		t.Errorf("expected recorded panic for item 1, got %+v", results[1])
	}
	if results[0].Error != "" || results[2].Error != "" {
		t.Error("expected other items to succeed")
	}
}

func TestReadItems(t *testing.T) {
	input := `# responses
Plain text response about Brown v. Board of Education.

{"id":"r2","subject":"bot","domain":"legal","text":"JSON response"}
`
	items, err := ReadItems(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadItems failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	if items[0].Text != "Plain text response about Brown v. Board of Education." || items[0].Line != 2 {
		t.Errorf("unexpected plain item %+v", items[0])
	}
	if items[1].ID != "r2" || items[1].Subject != "bot" || items[1].Domain != "legal" || items[1].Line != 4 {
		t.Errorf("unexpected JSON item %+v", items[1])
	}
}

func TestReadItems_BadJSON(t *testing.T) {
	_, err := ReadItems(strings.NewReader("{not json}\n"))
	if err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Errorf("expected line-numbered error, got %v", err)
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "responses.jsonl")
	if err := os.WriteFile(path, []byte("first response text\nsecond response text\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	batch := NewBatchProcessor(&mockProcessor{}, 2)
	results, err := batch.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}

	if _, err := batch.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSummarize(t *testing.T) {
	results := []ItemResult{
		{Result: model.ProcessResult{EnforcementResult: model.EnforcementResult{Blocked: true}}},
		{Result: model.ProcessResult{EnforcementResult: model.EnforcementResult{Modified: true}}},
		{Result: model.ProcessResult{Bypassed: true}},
		{Result: model.ProcessResult{Claims: []model.Claim{{Degraded: true}, {Degraded: true}}}},
		{Result: model.ProcessResult{}},
		{Error: "panic: processor failed"},
	}

	got := Summarize(results)
	want := Summary{Total: 6, Allowed: 2, Modified: 1, Blocked: 1, Bypassed: 1, Degraded: 1, Failed: 1}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}
