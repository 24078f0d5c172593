package model

import "math"

// Claim represents a factual assertion extracted from model output
type Claim struct {
	Text               string  `json:"text"`                // The claim text itself
	StartOffset        int     `json:"start_offset"`        // Byte offset of the first character (inclusive)
	EndOffset          int     `json:"end_offset"`          // Byte offset after the last character (exclusive)
	IsHallucination    bool    `json:"is_hallucination"`    // Verified false or unsupported
	Confidence         float64 `json:"confidence"`          // Confidence of the verdict (0-1)
	VerificationSource string  `json:"verification_source"` // Which fact-checking rule fired (e.g., "rule:legal-fabricated-case")
	Heuristic          string  `json:"heuristic,omitempty"` // Which extraction rule matched (e.g., "keyword:ruled")
	Sentence           int     `json:"sentence"`            // Sentence index in source (0-based)
	Degraded           bool    `json:"degraded,omitempty"`  // Verification capability failed for this claim
	Error              string  `json:"error,omitempty"`     // Failure detail when degraded
}

// Span returns the claim's byte range
func (c Claim) Span() Span {
	return Span{Start: c.StartOffset, End: c.EndOffset}
}

// RiskScore is confidence weighted by the domain's risk multiplier
func (c Claim) RiskScore(profile DomainProfile) float64 {
	return c.Confidence * profile.RiskWeight
}

// Span is a half-open byte range [Start, End) over the analysed text
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Overlaps reports whether two spans share at least one byte
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Contains reports whether pos lies inside the span
func (s Span) Contains(pos int) bool {
	return pos >= s.Start && pos < s.End
}

// Len returns the span length in bytes
func (s Span) Len() int {
	return s.End - s.Start
}

// Well-known verification sources
const (
	SourceUnverified  = "unverified"  // No rule fired; claim could not be checked
	SourceUnavailable = "unavailable" // Verification capability failed
)

// CheckRequest is the input handed to a fact-checking capability
type CheckRequest struct {
	Claim   string         `json:"claim"`
	Domain  DomainProfile  `json:"domain"`
	Context map[string]any `json:"context,omitempty"` // Opaque host context, passed through untouched
}

// Verdict is the result shape every fact-checking capability returns
type Verdict struct {
	IsHallucination bool    `json:"is_hallucination"`
	Confidence      float64 `json:"confidence"`
	Source          string  `json:"source"`
}

// Unverified returns the "unknown, treat as unverifiable" verdict
func Unverified() Verdict {
	return Verdict{Source: SourceUnverified}
}

// Unavailable returns the degraded verdict used when a check fails
func Unavailable() Verdict {
	return Verdict{Source: SourceUnavailable}
}

// Valid reports whether the verdict is well-formed
func (v Verdict) Valid() bool {
	if math.IsNaN(v.Confidence) || v.Confidence < 0 || v.Confidence > 1 {
		return false
	}
	return v.Source != ""
}

// Decisive reports whether the verdict carries an actual opinion
func (v Verdict) Decisive() bool {
	return v.Source != SourceUnverified && v.Source != SourceUnavailable
}
