package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/source"
	"github.com/spf13/cobra"
)

// errBlocked makes the process exit non-zero when --fail-on-block is set
var errBlocked = errors.New("response blocked")

var (
	checkDomain      string
	checkSubject     string
	checkFormat      string
	checkJSON        string
	checkAudit       string
	checkTimeout     time.Duration
	checkDisabled    bool
	checkFailOnBlock bool
	checkContext     map[string]string
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <file|url|->",
	Short: "Verify a single response",
	Long: `Check runs one response through the verification pipeline:
- Classify the subject domain
- Detect hedging language
- Check factual claims against the rule pack, cited links and the
  configured model provider
- Decide allow, modify or block and adjust the trust score

The response is read from a file, an http(s) URL, or stdin ("-").
HTML input is reduced to its visible text.

Example:
  veritas check answer.txt
  echo "Turner v. Cognivault was decided in 2022." | veritas check -
  veritas check https://example.com/answer.html --json result.json
  veritas check answer.txt --domain legal --fail-on-block`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkDomain, "domain", "", "skip classification and use this domain (legal, historical, entertainment, technical, general)")
	checkCmd.Flags().StringVar(&checkSubject, "subject", "", "trust subject (default: process scope)")
	checkCmd.Flags().StringVar(&checkFormat, "format", "", "input format (text, html); detected when empty")
	checkCmd.Flags().StringVar(&checkJSON, "json", "", "write the full result as JSON to this path (\"-\" for stdout)")
	checkCmd.Flags().StringVar(&checkAudit, "audit", "", "append audit notes to this JSON lines file")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 2*time.Minute, "overall timeout")
	checkCmd.Flags().BoolVar(&checkDisabled, "disable", false, "bypass verification for this call")
	checkCmd.Flags().BoolVar(&checkFailOnBlock, "fail-on-block", false, "exit non-zero when the response is blocked")
	checkCmd.Flags().StringToStringVar(&checkContext, "context", nil, "host context passed to checkers (key=value)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	a, err := newApp(ctx, appOptions{auditFile: checkAudit})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	input, err := source.NewLoader(a.cfg.HTTP, cmd.InOrStdin()).Load(ctx, args[0])
	if err != nil {
		return err
	}
	a.logger.Debug().Str("origin", input.Origin).Str("format", input.Format).Int("bytes", len(input.Text)).Msg("input loaded")

	opts := model.ProcessOptions{
		DomainOverride: checkDomain,
		Subject:        checkSubject,
		Format:         input.Format,
	}
	if checkFormat != "" {
		opts.Format = checkFormat
	}
	if checkDisabled {
		disabled := false
		opts.Enabled = &disabled
	}
	if len(checkContext) > 0 {
		opts.Context = make(map[string]any, len(checkContext))
		for k, v := range checkContext {
			opts.Context[k] = v
		}
	}

	result := a.manager.ProcessResponse(ctx, input.Text, opts)

	if checkJSON != "" {
		if err := writeOutput(checkJSON, cmd.OutOrStdout(), func(w io.Writer) error {
			return writeJSON(w, result)
		}); err != nil {
			return err
		}
		if checkJSON != "-" {
			fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", checkJSON)
		}
	}
	if checkJSON != "-" {
		printResult(cmd.OutOrStdout(), input.Origin, result)
	}

	if checkFailOnBlock && result.EnforcementResult.Blocked {
		return errBlocked
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
