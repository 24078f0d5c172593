package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ppiankov/veritas/internal/worker"
	"github.com/spf13/cobra"
)

var (
	batchWorkers     int
	batchOut         string
	batchAudit       string
	batchMetricsFile string
	batchTimeout     time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Verify many responses from a file in parallel",
	Long: `Batch verifies one response per line of the input file:
- Plain lines are the response text itself
- Lines starting with '{' are JSON objects with text, and optionally
  id, subject, domain and format
- Blank lines and lines starting with '#' are skipped

Results are written as JSON lines in input order. Trust scores are
shared across the batch, so items with the same subject accumulate.

Example:
  veritas batch responses.jsonl
  veritas batch responses.jsonl --workers 8 --out results.jsonl
  veritas batch responses.jsonl --metrics-file veritas.prom --audit audit.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "number of concurrent workers (default: concurrency.workers)")
	batchCmd.Flags().StringVar(&batchOut, "out", "-", "write JSON lines results to this path (\"-\" for stdout)")
	batchCmd.Flags().StringVar(&batchAudit, "audit", "", "append audit notes to this JSON lines file")
	batchCmd.Flags().StringVar(&batchMetricsFile, "metrics-file", "", "write Prometheus metrics in textfile format to this path")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	a, err := newApp(ctx, appOptions{auditFile: batchAudit, metrics: batchMetricsFile != ""})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	workers := batchWorkers
	if workers <= 0 {
		workers = a.cfg.Concurrency.Workers
	}

	items, err := worker.ReadItemsFromFile(file)
	if err != nil {
		return fmt.Errorf("read items: %w", err)
	}

	a.logger.Info().Str("file", file).Int("items", len(items)).Int("workers", workers).Msg("batch started")
	start := time.Now()

	results := worker.NewBatchProcessor(a.manager, workers).Process(ctx, items)

	if err := writeOutput(batchOut, cmd.OutOrStdout(), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		for _, res := range results {
			if err := enc.Encode(res); err != nil {
				return fmt.Errorf("encode result line %d: %w", res.Item.Line, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if a.metrics != nil {
		if err := a.metrics.WriteTextfile(batchMetricsFile); err != nil {
			return err
		}
	}

	summary := worker.Summarize(results)
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "%s\n", rule)
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "%s\n", rule)
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:      %d responses\n", summary.Total)
	fmt.Fprintf(os.Stderr, "  Allowed:    %d\n", summary.Allowed)
	fmt.Fprintf(os.Stderr, "  Modified:   %d\n", summary.Modified)
	fmt.Fprintf(os.Stderr, "  Blocked:    %d\n", summary.Blocked)
	fmt.Fprintf(os.Stderr, "  Bypassed:   %d\n", summary.Bypassed)
	fmt.Fprintf(os.Stderr, "  Degraded:   %d\n", summary.Degraded)
	fmt.Fprintf(os.Stderr, "  Failed:     %d\n", summary.Failed)
	fmt.Fprintf(os.Stderr, "  Elapsed:    %s\n", time.Since(start).Round(time.Millisecond))
	for _, subject := range a.manager.Trust().Subjects() {
		name := subject
		if name == "" {
			name = "(process)"
		}
		fmt.Fprintf(os.Stderr, "  Trust %-12s %d/100\n", name+":", a.manager.Trust().Get(subject).Score())
	}
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}
