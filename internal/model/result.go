package model

// Input formats accepted by ProcessResponse
const (
	FormatText = "text"
	FormatHTML = "html"
)

// ProcessOptions are supplied by the host on every call
type ProcessOptions struct {
	Enabled        *bool          `json:"enabled,omitempty"`         // Overrides PipelineConfig.Enabled for this call
	DomainOverride string         `json:"domain_override,omitempty"` // Bypasses the domain classifier
	Context        map[string]any `json:"context,omitempty"`         // Opaque, passed through to checkers
	Subject        string         `json:"subject,omitempty"`         // Trust subject; empty = process scope
	Format         string         `json:"format,omitempty"`          // "text" (default) or "html"
}

// ProcessResult is the stable return shape of ProcessResponse
type ProcessResult struct {
	RequestID              string                 `json:"request_id"`
	Subject                string                 `json:"subject,omitempty"`
	DomainClassification   DomainClassification   `json:"domain_classification"`
	UncertaintyEvaluations []UncertaintyQualifier `json:"uncertainty_evaluations"`
	Claims                 []Claim                `json:"claims"`
	EnforcementResult      EnforcementResult      `json:"enforcement_result"`
	TrustAdjustment        int                    `json:"trust_adjustment"` // Signed delta requested for penalties (<= 0)
	TrustBonus             int                    `json:"trust_bonus"`      // Signed delta requested for hedging (>= 0)
	TrustScore             int                    `json:"trust_score"`      // Subject score after this call
	Bypassed               bool                   `json:"bypassed,omitempty"`
}
