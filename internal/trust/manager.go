package trust

import (
	"sync"
	"time"

	"github.com/ppiankov/veritas/internal/model"
)

// Manager owns one subject's score and its append-only adjustment ledger
type Manager struct {
	mu      sync.Mutex
	subject string
	score   int
	ledger  []model.AdjustmentRecord
	now     func() time.Time
}

// NewManager creates a manager starting at the initial score
func NewManager(subject string) *Manager {
	return &Manager{
		subject: subject,
		score:   model.InitialTrustScore,
		now:     time.Now,
	}
}

// AdjustTrust applies a signed delta, clamping the score to [0,100], and returns the new score.
// The requested amount is recorded even when the score saturates.
func (m *Manager) AdjustTrust(amount int, reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adjustLocked(amount, reason)
}

// Apply performs several adjustments in one critical section
func (m *Manager) Apply(adjs ...model.Adjustment) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range adjs {
		m.adjustLocked(a.Amount, a.Reason)
	}
	return m.score
}

func (m *Manager) adjustLocked(amount int, reason string) int {
	before := m.score
	// No step can move the score further than the full range
	step := min(max(amount, -model.MaxTrustScore), model.MaxTrustScore)
	m.score = clamp(before + step)
	m.ledger = append(m.ledger, model.AdjustmentRecord{
		Subject:     m.subject,
		Amount:      amount,
		Reason:      reason,
		Timestamp:   m.now().UTC(),
		ScoreBefore: before,
		ScoreAfter:  m.score,
	})
	return m.score
}

// Score returns the current score
func (m *Manager) Score() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.score
}

// Adjustments returns a copy of the ledger in application order
func (m *Manager) Adjustments() []model.AdjustmentRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.AdjustmentRecord, len(m.ledger))
	copy(out, m.ledger)
	return out
}

// Reset restores the initial score and clears the ledger; only for session boundaries
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.score = model.InitialTrustScore
	m.ledger = nil
}

// Subject returns the subject id; empty is the process scope
func (m *Manager) Subject() string {
	return m.subject
}

func clamp(score int) int {
	return max(model.MinTrustScore, min(model.MaxTrustScore, score))
}
