package enforce

import (
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/uncertainty"
)

// ReasonNoContent is the reason given for empty input
const ReasonNoContent = "no content"

// Engine is stateless; every decision is a pure function of its inputs
type Engine struct {
	general model.DomainProfile
}

// NewEngine creates an engine that falls back to general when domain-specific handling is off
func NewEngine(general model.DomainProfile) *Engine {
	return &Engine{general: general}
}

// Decide combines domain, claims and qualifiers into an enforcement result
func (e *Engine) Decide(text string, domain model.DomainProfile, claims []model.Claim, qualifiers []model.UncertaintyQualifier, cfg model.PipelineConfig) model.EnforcementResult {
	result := model.EnforcementResult{EnforcedText: text}

	if strings.TrimSpace(text) == "" {
		result.Reason = ReasonNoContent
		result.Signals = []model.Signal{{
			Type:        model.SignalNoContent,
			Severity:    model.SeverityInfo,
			Description: "Empty input, nothing to verify",
		}}
		return result
	}

	if !cfg.DomainSpecificEnabled {
		domain = e.general
	}

	var signals []model.Signal
	var unhedged, lowRisk, review int
	var penaltySum float64

	// 1. Classify each hallucination as hedged or unhedged
	for i, claim := range claims {
		if !claim.IsHallucination {
			continue
		}
		risk := claim.RiskScore(domain)

		if q, ok := coveringQualifier(text, claim, qualifiers, cfg.AppropriatenessFloor); ok {
			result.HedgedClaims = append(result.HedgedClaims, i)
			signals = append(signals, model.Signal{
				Type:        model.SignalHedgedHallucination,
				Severity:    model.SeverityInfo,
				Description: fmt.Sprintf("Unsupported claim hedged by %q", q.Text),
				Data: map[string]any{
					"claim":           claim.Text,
					"qualifier":       q.Text,
					"appropriateness": q.AppropriatenessScore,
					"floor":           cfg.AppropriatenessFloor,
					"risk":            risk,
				},
			})
			continue
		}

		unhedged++
		penaltySum += risk * cfg.BasePenalty
		signals = append(signals, model.Signal{
			Type:        model.SignalUnhedgedHallucination,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("Unsupported claim (%s) with no covering hedge", claim.VerificationSource),
			Data: map[string]any{
				"claim":       claim.Text,
				"confidence":  claim.Confidence,
				"risk_weight": domain.RiskWeight,
				"risk":        risk,
				"formula":     "confidence * risk_weight",
			},
		})

		// 2. Block on the first unhedged claim over the domain threshold
		if risk >= domain.BlockThreshold {
			if !result.Blocked {
				result.Blocked = true
				blocking := claim
				result.BlockingClaim = &blocking
				result.Reason = fmt.Sprintf("blocked: unsupported %s claim %q (risk %.2f >= threshold %.2f)",
					domain.ID, claim.Text, risk, domain.BlockThreshold)
				signals = append(signals, model.Signal{
					Type:        model.SignalBlockThreshold,
					Severity:    model.SeverityCritical,
					Description: fmt.Sprintf("Risk %.2f crossed the %s block threshold %.2f", risk, domain.ID, domain.BlockThreshold),
					Data: map[string]any{
						"risk":      risk,
						"threshold": domain.BlockThreshold,
						"domain":    string(domain.ID),
					},
				})
			}
			continue
		}

		// 3. Below the block threshold: annotate, and ask for review when borderline
		lowRisk++
		if risk >= cfg.HITLThreshold {
			review++
			signals = append(signals, model.Signal{
				Type:        model.SignalReviewThreshold,
				Severity:    model.SeverityWarning,
				Description: fmt.Sprintf("Risk %.2f is below the block threshold but above the review threshold %.2f", risk, cfg.HITLThreshold),
				Data: map[string]any{
					"claim":          claim.Text,
					"risk":           risk,
					"hitl_threshold": cfg.HITLThreshold,
				},
			})
		}
	}

	if !result.Blocked {
		result.Modified = len(result.HedgedClaims) > 0 || lowRisk > 0
		result.ReviewRequired = review > 0
	}

	// 4. Penalty for unhedged hallucinations
	if unhedged > 0 {
		result.TrustPenalty = ceilPoints(math.Min(penaltySum, cfg.MaxPenalty))
		signals = append(signals, model.Signal{
			Type:        model.SignalTrustPenalty,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("Trust penalty %d for %d unhedged claim(s)", result.TrustPenalty, unhedged),
			Data: map[string]any{
				"sum":          penaltySum,
				"base_penalty": cfg.BasePenalty,
				"max_penalty":  cfg.MaxPenalty,
				"penalty":      result.TrustPenalty,
				"formula":      "ceil(min(sum(confidence * risk_weight * base_penalty), max_penalty))",
			},
		})
	}

	// 5. Bonus for appropriate hedging when nothing is left unhedged
	if cfg.UncertaintyRewardEnabled && unhedged == 0 && len(qualifiers) > 0 {
		var sum float64
		counted := 0
		for _, q := range qualifiers {
			if q.AppropriatenessScore >= cfg.AppropriatenessFloor {
				sum += q.AppropriatenessScore * cfg.BonusPerQualifier
				counted++
			}
		}
		result.TrustBonus = ceilPoints(math.Min(sum, cfg.MaxBonus))
		if result.TrustBonus > 0 {
			signals = append(signals, model.Signal{
				Type:        model.SignalTrustBonus,
				Severity:    model.SeverityInfo,
				Description: fmt.Sprintf("Trust bonus %d for %d appropriate hedge(s)", result.TrustBonus, counted),
				Data: map[string]any{
					"qualifiers":          len(qualifiers),
					"counted":             counted,
					"sum":                 sum,
					"bonus_per_qualifier": cfg.BonusPerQualifier,
					"max_bonus":           cfg.MaxBonus,
					"bonus":               result.TrustBonus,
					"formula":             "ceil(min(sum(appropriateness * bonus_per_qualifier), max_bonus))",
				},
			})
		}
	}

	if n := countDegraded(claims); n > 0 {
		signals = append(signals, model.Signal{
			Type:        model.SignalDegradedVerification,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("%d claim(s) could not be verified and were allowed", n),
			Data:        map[string]any{"degraded": n, "claims": len(claims)},
		})
	}

	if !result.Blocked {
		result.Reason = allowReason(result, len(claims))
	}
	result.Signals = signals
	return result
}

// coveringQualifier finds a sufficiently appropriate hedge overlapping or directly preceding the claim
func coveringQualifier(text string, claim model.Claim, qualifiers []model.UncertaintyQualifier, floor float64) (model.UncertaintyQualifier, bool) {
	for _, q := range qualifiers {
		if q.AppropriatenessScore < floor {
			continue
		}
		if uncertainty.Covers(text, q, claim.Span()) {
			return q, true
		}
	}
	return model.UncertaintyQualifier{}, false
}

func allowReason(r model.EnforcementResult, claims int) string {
	switch {
	case r.ReviewRequired:
		return "allowed: unsupported claim below block threshold, review recommended"
	case len(r.HedgedClaims) > 0:
		return fmt.Sprintf("allowed: %d unsupported claim(s) covered by hedging", len(r.HedgedClaims))
	case r.Modified:
		return "allowed: unsupported claim below block threshold"
	case claims == 0:
		return "allowed: no factual claims found"
	default:
		return "allowed: no unsupported claims"
	}
}

func countDegraded(claims []model.Claim) int {
	n := 0
	for _, c := range claims {
		if c.Degraded {
			n++
		}
	}
	return n
}

// ceilPoints rounds up to whole trust points, ignoring float noise
func ceilPoints(x float64) int {
	if x <= 0 {
		return 0
	}
	return int(math.Ceil(x - 1e-9))
}
