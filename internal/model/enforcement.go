package model

// EnforcementResult is the decision produced for a single piece of text
type EnforcementResult struct {
	Blocked        bool     `json:"blocked"`
	Modified       bool     `json:"modified"`                 // Reserved for host-side annotation; text is never rewritten here
	ReviewRequired bool     `json:"review_required"`          // Borderline risk, worth a human look
	EnforcedText   string   `json:"enforced_text"`            // Equals the input text
	TrustPenalty   int      `json:"trust_penalty"`            // Points to subtract (>= 0)
	TrustBonus     int      `json:"trust_bonus"`              // Points to add for appropriate hedging (>= 0)
	Reason         string   `json:"reason"`                   // Human-readable explanation
	BlockingClaim  *Claim   `json:"blocking_claim,omitempty"` // First claim that triggered the block
	HedgedClaims   []int    `json:"hedged_claims,omitempty"`  // Indexes of hallucinating claims covered by a hedge
	Signals        []Signal `json:"signals,omitempty"`        // Transparent decision data
}

// Decision returns a short label for the outcome
func (r EnforcementResult) Decision() string {
	switch {
	case r.Blocked:
		return "block"
	case r.Modified:
		return "modify"
	default:
		return "allow"
	}
}

// Signal represents a diagnostic signal with transparent scoring data
type Signal struct {
	Type        SignalType     `json:"type"`           // Signal classification
	Severity    SignalSeverity `json:"severity"`       // info, warning, critical
	Description string         `json:"description"`    // Human-readable description
	Data        map[string]any `json:"data,omitempty"` // Transparent scoring data (formulas, inputs)
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalUnhedgedHallucination SignalType = "unhedged_hallucination" // Hallucination with no covering hedge
	SignalHedgedHallucination   SignalType = "hedged_hallucination"   // Hallucination covered by a hedge
	SignalBlockThreshold        SignalType = "block_threshold"        // Risk crossed the domain threshold
	SignalReviewThreshold       SignalType = "review_threshold"       // Risk crossed the HITL threshold
	SignalTrustPenalty          SignalType = "trust_penalty"          // Penalty computation
	SignalTrustBonus            SignalType = "trust_bonus"            // Bonus computation
	SignalDegradedVerification  SignalType = "degraded_verification"  // Checker failures
	SignalNoContent             SignalType = "no_content"             // Empty input
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)
