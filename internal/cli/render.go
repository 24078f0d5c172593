package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/veritas/internal/model"
)

const rule = "═══════════════════════════════════════════════════════════"

// printResult writes a human-readable summary of one pipeline result
func printResult(w io.Writer, origin string, r model.ProcessResult) {
	er := r.EnforcementResult

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  %s\n", origin)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)

	if r.Bypassed {
		fmt.Fprintf(w, "  Decision:     BYPASS (verification disabled)\n")
		fmt.Fprintf(w, "  Trust score:  %d/100\n\n", r.TrustScore)
		return
	}

	fmt.Fprintf(w, "  Decision:     %s\n", strings.ToUpper(er.Decision()))
	fmt.Fprintf(w, "  Reason:       %s\n", er.Reason)
	fmt.Fprintf(w, "  Domain:       %s (confidence %.2f)\n", r.DomainClassification.Domain.ID, r.DomainClassification.Confidence)
	if er.ReviewRequired {
		fmt.Fprintf(w, "  Review:       recommended\n")
	}
	fmt.Fprintf(w, "  Trust:        %+d penalty, %+d bonus → %d/100\n", r.TrustAdjustment, r.TrustBonus, r.TrustScore)
	fmt.Fprintln(w)

	if len(r.Claims) > 0 {
		fmt.Fprintf(w, "  Claims (%d):\n", len(r.Claims))
		for _, c := range r.Claims {
			fmt.Fprintf(w, "    %s %s\n", claimMark(c), truncate(c.Text, 90))
			switch {
			case c.Degraded:
				fmt.Fprintf(w, "        unverified: %s\n", c.Error)
			case c.VerificationSource != "":
				fmt.Fprintf(w, "        %s (confidence %.2f)\n", c.VerificationSource, c.Confidence)
			}
		}
		fmt.Fprintln(w)
	}

	if len(r.UncertaintyEvaluations) > 0 {
		fmt.Fprintf(w, "  Hedges (%d):\n", len(r.UncertaintyEvaluations))
		for _, q := range r.UncertaintyEvaluations {
			fmt.Fprintf(w, "    - %q [%s, appropriateness %.2f]\n", q.Text, q.Type, q.AppropriatenessScore)
		}
		fmt.Fprintln(w)
	}
}

func claimMark(c model.Claim) string {
	switch {
	case c.Degraded:
		return "?"
	case c.IsHallucination:
		return "✗"
	case c.VerificationSource != "" && c.Confidence > 0:
		return "✓"
	default:
		return "·"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
