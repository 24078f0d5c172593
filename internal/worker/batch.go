package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/veritas/internal/model"
)

// maxLineBytes bounds a single batch line
const maxLineBytes = 4 << 20

// Processor runs one response through the verification pipeline
type Processor interface {
	ProcessResponse(ctx context.Context, text string, opts model.ProcessOptions) model.ProcessResult
}

// Item is one response to verify
type Item struct {
	Index   int    `json:"-"`
	Line    int    `json:"-"`
	ID      string `json:"id,omitempty"`
	Subject string `json:"subject,omitempty"`
	Domain  string `json:"domain,omitempty"`
	Format  string `json:"format,omitempty"`
	Text    string `json:"text"`
}

// ItemResult pairs an item with its pipeline result
type ItemResult struct {
	Item   Item                `json:"item"`
	Result model.ProcessResult `json:"result"`
	Error  string              `json:"error,omitempty"` // Set when the processor panicked
}

// BatchProcessor verifies many responses concurrently
type BatchProcessor struct {
	processor   Processor
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(processor Processor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		processor:   processor,
		concurrency: concurrency,
	}
}

// Process runs every item and returns results in input order
func (b *BatchProcessor) Process(ctx context.Context, items []Item) []ItemResult {
	indexed := make([]Item, len(items))
	for i, item := range items {
		item.Index = i
		indexed[i] = item
	}

	pool := NewPool(b.concurrency, b.processItem).WithRecover(func(item Item, err error) ItemResult {
		return ItemResult{Item: item, Error: err.Error()}
	})
	return pool.Run(ctx, indexed)
}

func (b *BatchProcessor) processItem(ctx context.Context, item Item) ItemResult {
	opts := model.ProcessOptions{
		Subject:        item.Subject,
		DomainOverride: item.Domain,
		Format:         item.Format,
	}
	if item.ID != "" {
		opts.Context = map[string]any{"item_id": item.ID}
	}

	return ItemResult{
		Item:   item,
		Result: b.processor.ProcessResponse(ctx, item.Text, opts),
	}
}

// ProcessFile reads items from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]ItemResult, error) {
	items, err := ReadItemsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}

	return b.Process(ctx, items), nil
}

// ReadItemsFromFile reads batch items from a file
func ReadItemsFromFile(filePath string) ([]Item, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadItems(file)
}

// ReadItems parses one item per line. Lines starting with '{' are JSON objects,
// anything else is the response text itself. Blank lines and '#' comments are skipped.
func ReadItems(r io.Reader) ([]Item, error) {
	var items []Item

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		item := Item{Text: line}
		if strings.HasPrefix(line, "{") {
			item = Item{}
			if err := json.Unmarshal([]byte(line), &item); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		}
		item.Line = lineNo
		items = append(items, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return items, nil
}

// Summary counts batch outcomes
type Summary struct {
	Total    int `json:"total"`
	Allowed  int `json:"allowed"`
	Modified int `json:"modified"`
	Blocked  int `json:"blocked"`
	Bypassed int `json:"bypassed"`
	Degraded int `json:"degraded"` // Items with at least one unverifiable claim
	Failed   int `json:"failed"`
}

// Summarize tallies decisions across results
func Summarize(results []ItemResult) Summary {
	s := Summary{Total: len(results)}
	for _, res := range results {
		r := res.Result
		switch {
		case res.Error != "":
			s.Failed++
			continue
		case r.Bypassed:
			s.Bypassed++
		case r.EnforcementResult.Blocked:
			s.Blocked++
		case r.EnforcementResult.Modified:
			s.Modified++
		default:
			s.Allowed++
		}
		for _, c := range r.Claims {
			if c.Degraded {
				s.Degraded++
				break
			}
		}
	}
	return s
}
