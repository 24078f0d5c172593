package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/ppiankov/veritas/internal/classify"
	"github.com/ppiankov/veritas/internal/verify"
	"github.com/spf13/cobra"
)

var rulesFile string

// rulesCmd lists the fact-checking rule pack
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the fact-checking rules",
	Long: `List the curated rules in evaluation order. The first matching
rule decides a claim's verdict. Use --file to inspect a custom pack
before pointing verifier.rules_file at it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := rulesFile
		if path == "" {
			if cfg, err := loadConfig(); err == nil {
				path = cfg.Verifier.RulesFile
			}
		}
		rc, err := loadRulePack(path)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tVERDICT\tCONFIDENCE\tDOMAINS\tDESCRIPTION")
		for _, r := range rc.Rules() {
			verdict := "supported"
			if r.Hallucination {
				verdict = "hallucination"
			}
			domains := "*"
			if len(r.Domains) > 0 {
				names := make([]string, len(r.Domains))
				for i, d := range r.Domains {
					names[i] = string(d)
				}
				domains = strings.Join(names, ",")
			}
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\n", r.ID, verdict, r.Confidence, domains, r.Description)
		}
		return tw.Flush()
	},
}

// domainsCmd lists the domain catalog
var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "List the domain profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tRISK WEIGHT\tBLOCK THRESHOLD\tPRIORITY")
		for _, p := range classify.DefaultCatalog().Profiles() {
			fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%d\n", p.ID, p.RiskWeight, p.BlockThreshold, p.Priority)
		}
		return tw.Flush()
	},
}

func loadRulePack(path string) (*verify.RuleChecker, error) {
	rc, err := verify.LoadRules(path)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	return rc, nil
}

func init() {
	rulesCmd.Flags().StringVar(&rulesFile, "file", "", "rule pack file (default: embedded pack)")
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(domainsCmd)
}
