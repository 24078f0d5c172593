// Demo program that runs the reference responses through the pipeline
// and prints each decision with its trust effect
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/pipeline"
)

type scenario struct {
	name string
	text string
	opts model.ProcessOptions
}

func main() {
	fmt.Println("=== Veritas Pipeline Demo ===")
	fmt.Println()

	manager, err := pipeline.NewManager(model.DefaultPipelineConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	disabled := false
	scenarios := []scenario{
		{
			name: "Fabricated case law",
			text: "In the 2022 U.S. Supreme Court case Turner v. Cognivault, the court ruled that digital agents cannot be held liable for hallucinations.",
		},
		{
			name: "Hedged landmark case",
			text: "Based on available information, in Brown v. Board of Education, the Supreme Court appears to have ruled that separate educational facilities are inherently unequal.",
		},
		{
			name: "Fabricated case law, verification disabled",
			text: "In the 2022 U.S. Supreme Court case Turner v. Cognivault, the court ruled that digital agents cannot be held liable for hallucinations.",
			opts: model.ProcessOptions{Enabled: &disabled},
		},
		{
			name: "Misattributed quote",
			text: "Albert Einstein said that insanity is doing the same thing over and over and expecting different results.",
		},
		{
			name: "Hedged cereal mascot error",
			text: "I believe Tony the Tiger is probably the mascot of Froot Loops.",
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, s := range scenarios {
		fmt.Printf("Scenario: %s\n", s.name)
		fmt.Println(strings.Repeat("-", 60))
		fmt.Printf("  %s\n\n", s.text)

		result := manager.ProcessResponse(ctx, s.text, s.opts)
		er := result.EnforcementResult

		if result.Bypassed {
			fmt.Println("  ○ Verification bypassed")
		} else {
			fmt.Printf("  Domain:   %s (confidence %.2f)\n", result.DomainClassification.Domain.ID, result.DomainClassification.Confidence)
			fmt.Printf("  Decision: %s\n", strings.ToUpper(er.Decision()))
			fmt.Printf("  Reason:   %s\n", er.Reason)
			for _, q := range result.UncertaintyEvaluations {
				fmt.Printf("  Hedge:    %q (%s, %.2f)\n", q.Text, q.Type, q.AppropriatenessScore)
			}
			for _, c := range result.Claims {
				if c.IsHallucination {
					fmt.Printf("  ✗ %s [%s]\n", c.VerificationSource, c.Text)
				}
			}
		}
		fmt.Printf("  Trust:    %+d / %+d → %d/100\n", result.TrustAdjustment, result.TrustBonus, result.TrustScore)
		fmt.Println()
	}

	fmt.Println("=== Audit Trail ===")
	for _, note := range manager.Observer().Notes() {
		fmt.Printf("  %s  %s\n", note.Timestamp.Format(time.RFC3339), note.Note)
	}
}
