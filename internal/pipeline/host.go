package pipeline

import (
	"context"

	"github.com/ppiankov/veritas/internal/model"
)

// VerificationSystem is the capability a governance host calls per response
type VerificationSystem interface {
	ProcessResponse(ctx context.Context, text string, opts model.ProcessOptions) model.ProcessResult
}

// ObserverProvider exposes the audit trail
type ObserverProvider interface {
	AddNote(note string, metadata map[string]any)
	Notes() []model.ObserverNote
}

// TrustAdjuster exposes the process-scope trust score
type TrustAdjuster interface {
	AdjustTrust(amount int, reason string) int
	Score() int
	Adjustments() []model.AdjustmentRecord
}

// Host is a governance host that accepts the pipeline's capabilities
type Host interface {
	RegisterVerificationSystem(VerificationSystem)
	RegisterObserverProvider(ObserverProvider)
	RegisterTrustAdjuster(TrustAdjuster)
}

// Register hands the manager, its audit log and its process-scope trust score to host
func (m *Manager) Register(host Host) {
	host.RegisterVerificationSystem(m)
	host.RegisterObserverProvider(m.observer)
	host.RegisterTrustAdjuster(m.trust.Get(""))
	m.logger.Debug().Msg("registered with host")
}
