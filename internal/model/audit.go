package model

import "time"

// InitialTrustScore is the score every subject starts from
const InitialTrustScore = 50

// Trust score bounds
const (
	MinTrustScore = 0
	MaxTrustScore = 100
)

// AdjustmentRecord is a ledger entry for a single trust mutation
type AdjustmentRecord struct {
	Subject     string    `json:"subject,omitempty"`
	Amount      int       `json:"amount"` // Requested delta, recorded even when the score saturates
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
	ScoreBefore int       `json:"score_before"`
	ScoreAfter  int       `json:"score_after"`
}

// Adjustment is a requested trust delta
type Adjustment struct {
	Amount int
	Reason string
}

// ObserverNote is an append-only audit entry
type ObserverNote struct {
	ID        string         `json:"id"`
	Note      string         `json:"note"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
