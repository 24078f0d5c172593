package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ppiankov/veritas/internal/classify"
	"github.com/ppiankov/veritas/internal/enforce"
	"github.com/ppiankov/veritas/internal/extract"
	"github.com/ppiankov/veritas/internal/logging"
	"github.com/ppiankov/veritas/internal/metrics"
	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/observer"
	"github.com/ppiankov/veritas/internal/trust"
	"github.com/ppiankov/veritas/internal/uncertainty"
	"github.com/ppiankov/veritas/internal/verify"
)

// Note texts written to the audit log
const (
	NoteBypassed       = "verification bypassed"
	NoteClassified     = "domain classified"
	NoteQualifiers     = "qualifiers detected"
	NoteVerified       = "claims verified"
	NoteDegraded       = "verification degraded"
	NoteDecision       = "enforcement decision"
	NoteTrustAdjusted  = "trust adjusted"
	NoteInvalidInput   = "invalid input"
	NoteConfigUpdated  = "config updated"
	NoteConfigRejected = "config update rejected"
	NotePanic          = "pipeline error recovered"
)

// Manager is the single entry point a host calls. It owns the process-wide
// config, the per-subject trust scores and the audit log.
type Manager struct {
	mu  sync.RWMutex
	cfg model.PipelineConfig

	classifier *classify.Classifier
	detector   *uncertainty.Detector
	verifier   *verify.Verifier
	engine     *enforce.Engine
	trust      *trust.Registry
	observer   *observer.Log
	metrics    *metrics.Metrics
	logger     logging.Logger
}

// Option configures a Manager
type Option func(*Manager)

// WithClassifier replaces the default domain classifier
func WithClassifier(c *classify.Classifier) Option {
	return func(m *Manager) { m.classifier = c }
}

// WithVerifier replaces the default rule-based verifier
func WithVerifier(v *verify.Verifier) Option {
	return func(m *Manager) { m.verifier = v }
}

// WithChecker builds the verifier around a fact-checking capability
func WithChecker(c verify.Checker, opts ...verify.Option) Option {
	return func(m *Manager) { m.verifier = verify.NewVerifier(c, opts...) }
}

// WithTrust shares a trust registry, e.g. across batch runs
func WithTrust(r *trust.Registry) Option {
	return func(m *Manager) { m.trust = r }
}

// WithObserver replaces the in-memory audit log
func WithObserver(l *observer.Log) Option {
	return func(m *Manager) { m.observer = l }
}

// WithMetrics records every result on m
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithLogger sets the structured logger
func WithLogger(l logging.Logger) Option {
	return func(m *Manager) { m.logger = logging.Named(l, "pipeline") }
}

// NewManager validates cfg and wires the stages
func NewManager(cfg model.PipelineConfig, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}

	m := &Manager{
		cfg:    cfg,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.classifier == nil {
		m.classifier = classify.NewClassifier(nil)
	}
	if m.verifier == nil {
		m.verifier = verify.NewVerifier(nil, verify.WithLogger(m.logger))
	}
	if m.trust == nil {
		m.trust = trust.NewRegistry()
	}
	if m.observer == nil {
		m.observer = observer.New(observer.WithLogger(m.logger))
	}
	m.detector = uncertainty.NewDetector()
	m.engine = enforce.NewEngine(m.classifier.Catalog().General())

	return m, nil
}

// Config returns the active pipeline config
func (m *Manager) Config() model.PipelineConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// UpdateConfig merges patch into the config. An invalid result is rejected and the
// previous config kept. Changes apply from the next ProcessResponse call.
func (m *Manager) UpdateConfig(patch model.ConfigPatch) error {
	m.mu.Lock()
	merged := patch.Merge(m.cfg)
	err := merged.Validate()
	if err == nil {
		m.cfg = merged
	}
	m.mu.Unlock()

	if err != nil {
		m.observer.AddNote(NoteConfigRejected, map[string]any{"error": err.Error()})
		m.logger.Warn().Err(err).Msg("config update rejected")
		return fmt.Errorf("update config: %w", err)
	}

	m.observer.AddNote(NoteConfigUpdated, map[string]any{"config": configMetadata(merged)})
	m.logger.Info().Bool("enabled", merged.Enabled).Msg("config updated")
	return nil
}

// Observer returns the audit log
func (m *Manager) Observer() *observer.Log {
	return m.observer
}

// Trust returns the per-subject trust registry
func (m *Manager) Trust() *trust.Registry {
	return m.trust
}

// Metrics returns the metrics sink, nil when disabled
func (m *Manager) Metrics() *metrics.Metrics {
	return m.metrics
}

// Catalog returns the domain catalog
func (m *Manager) Catalog() *classify.Catalog {
	return m.classifier.Catalog()
}

// ProcessResponse runs text through every stage. It never panics and never fails:
// every error path degrades to "allow, no penalty".
func (m *Manager) ProcessResponse(ctx context.Context, text string, opts model.ProcessOptions) (result model.ProcessResult) {
	start := time.Now()
	cfg := m.Config()
	requestID := uuid.NewString()
	scores := m.trust.Get(opts.Subject)

	result = model.ProcessResult{
		RequestID:              requestID,
		Subject:                opts.Subject,
		UncertaintyEvaluations: []model.UncertaintyQualifier{},
		Claims:                 []model.Claim{},
		EnforcementResult:      model.EnforcementResult{EnforcedText: text},
	}
	applied := false

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Interface("panic", r).Str("request_id", requestID).Msg("pipeline panic recovered")
			if !applied {
				result.TrustAdjustment = 0
				result.TrustBonus = 0
			}
			result.EnforcementResult = model.EnforcementResult{
				EnforcedText: text,
				Reason:       "allowed: pipeline error",
			}
			result.TrustScore = scores.Score()
			m.safeNote(NotePanic, map[string]any{
				"request_id": requestID,
				"degraded":   true,
				"error":      fmt.Sprint(r),
			})
		}
		m.metrics.ObserveResult(result, time.Since(start))
	}()

	log := m.logger.With().Str("request_id", requestID).Str("subject", opts.Subject).Logger()

	enabled := cfg.Enabled
	if opts.Enabled != nil {
		enabled = *opts.Enabled
	}
	if !enabled {
		result.Bypassed = true
		result.DomainClassification = m.classifier.Classify(text)
		result.EnforcementResult.Reason = NoteBypassed
		result.TrustScore = scores.Score()
		m.observer.AddNote(NoteBypassed, map[string]any{"request_id": requestID, "subject": opts.Subject})
		log.Debug().Msg("verification bypassed")
		return result
	}

	text, ok := m.prepareText(requestID, text, opts.Format)
	if !ok {
		result.DomainClassification = m.classifier.Classify("")
		result.EnforcementResult.Reason = enforce.ReasonNoContent
		result.TrustScore = scores.Score()
		return result
	}
	result.EnforcementResult.EnforcedText = text

	// 1. Classify domain
	classification := m.classifyDomain(requestID, text, opts.DomainOverride)
	result.DomainClassification = classification
	domain := classification.Domain
	if !cfg.DomainSpecificEnabled {
		domain = m.classifier.Catalog().General()
	}
	m.observer.AddNote(NoteClassified, map[string]any{
		"request_id": requestID,
		"domain":     string(classification.Domain.ID),
		"confidence": classification.Confidence,
		"overridden": classification.Overridden,
		"effective":  string(domain.ID),
		"matched":    classification.Matched,
	})
	log.Debug().Str("domain", string(domain.ID)).Float64("confidence", classification.Confidence).Msg("domain classified")

	// 2. Detect qualifiers relative to the candidate claims
	candidates := m.verifier.Extractor().Extract(text)
	spans := make([]model.Span, len(candidates))
	for i, c := range candidates {
		spans[i] = c.Span()
	}
	qualifiers := m.detector.Detect(text, spans)
	if qualifiers != nil {
		result.UncertaintyEvaluations = qualifiers
	}
	m.observer.AddNote(NoteQualifiers, map[string]any{
		"request_id": requestID,
		"count":      len(qualifiers),
		"qualifiers": qualifierTexts(qualifiers),
	})

	// 3. Verify claims; checks run concurrently and all settle before enforcement
	claims := m.verifier.VerifyClaims(ctx, candidates, domain, opts.Context)
	result.Claims = claims
	degraded := verify.CountDegraded(claims)
	m.observer.AddNote(NoteVerified, map[string]any{
		"request_id":     requestID,
		"claims":         len(claims),
		"hallucinations": countHallucinations(claims),
		"degraded":       degraded > 0,
	})
	if degraded > 0 {
		m.observer.AddNote(NoteDegraded, map[string]any{
			"request_id": requestID,
			"degraded":   true,
			"count":      degraded,
			"errors":     claimErrors(claims),
		})
		log.Warn().Int("degraded", degraded).Msg("verification degraded, claims allowed")
	}

	// 4. Decide
	decision := m.engine.Decide(text, domain, claims, qualifiers, cfg)
	result.EnforcementResult = decision
	m.observer.AddNote(NoteDecision, map[string]any{
		"request_id":      requestID,
		"decision":        decision.Decision(),
		"blocked":         decision.Blocked,
		"modified":        decision.Modified,
		"review_required": decision.ReviewRequired,
		"reason":          decision.Reason,
		"trust_penalty":   decision.TrustPenalty,
		"trust_bonus":     decision.TrustBonus,
	})

	// 5. Apply penalty and bonus in one critical section
	var adjs []model.Adjustment
	if decision.TrustPenalty > 0 {
		adjs = append(adjs, model.Adjustment{Amount: -decision.TrustPenalty, Reason: penaltyReason(requestID, decision)})
	}
	if decision.TrustBonus > 0 {
		adjs = append(adjs, model.Adjustment{Amount: decision.TrustBonus, Reason: bonusReason(requestID)})
	}
	if len(adjs) > 0 {
		result.TrustScore = scores.Apply(adjs...)
		applied = true
		result.TrustAdjustment = -decision.TrustPenalty
		result.TrustBonus = decision.TrustBonus
		m.observer.AddNote(NoteTrustAdjusted, map[string]any{
			"request_id": requestID,
			"subject":    opts.Subject,
			"adjustment": result.TrustAdjustment,
			"bonus":      result.TrustBonus,
			"score":      result.TrustScore,
		})
	} else {
		result.TrustScore = scores.Score()
	}

	log.Info().
		Str("decision", decision.Decision()).
		Int("claims", len(claims)).
		Int("penalty", decision.TrustPenalty).
		Int("bonus", decision.TrustBonus).
		Int("score", result.TrustScore).
		Dur("elapsed", time.Since(start)).
		Msg("response processed")

	return result
}

// prepareText reduces HTML to visible text and rejects unusable input
func (m *Manager) prepareText(requestID, text, format string) (string, bool) {
	switch strings.ToLower(format) {
	case "", model.FormatText:
	case model.FormatHTML:
		visible, err := extract.VisibleText(text)
		if err != nil {
			m.observer.AddNote(NoteInvalidInput, map[string]any{"request_id": requestID, "error": err.Error()})
			return "", false
		}
		text = visible
	default:
		m.observer.AddNote(NoteInvalidInput, map[string]any{
			"request_id": requestID,
			"error":      fmt.Sprintf("unknown format %q, treated as text", format),
		})
	}

	if !utf8.ValidString(text) {
		m.observer.AddNote(NoteInvalidInput, map[string]any{"request_id": requestID, "error": "text is not valid UTF-8"})
		return "", false
	}
	return text, true
}

// classifyDomain honours a known override; unknown overrides fall back to general
func (m *Manager) classifyDomain(requestID, text, override string) model.DomainClassification {
	if override == "" {
		return m.classifier.Classify(text)
	}

	catalog := m.classifier.Catalog()
	id := model.DomainID(strings.ToLower(strings.TrimSpace(override)))
	if profile, ok := catalog.Profile(id); ok {
		return model.DomainClassification{Domain: profile, Confidence: 1, Overridden: true}
	}

	m.observer.AddNote(NoteInvalidInput, map[string]any{
		"request_id": requestID,
		"error":      fmt.Sprintf("unknown domain override %q, using general", override),
	})
	return model.DomainClassification{Domain: catalog.General(), Confidence: 0}
}

// safeNote writes a note from the panic path without risking a second panic
func (m *Manager) safeNote(note string, metadata map[string]any) {
	defer func() { _ = recover() }()
	m.observer.AddNote(note, metadata)
}

func penaltyReason(requestID string, decision model.EnforcementResult) string {
	return fmt.Sprintf("penalty (request %s): %s", requestID, decision.Reason)
}

func bonusReason(requestID string) string {
	return fmt.Sprintf("bonus (request %s): appropriate hedging", requestID)
}

func countHallucinations(claims []model.Claim) int {
	n := 0
	for _, c := range claims {
		if c.IsHallucination {
			n++
		}
	}
	return n
}

func claimErrors(claims []model.Claim) []string {
	var errs []string
	for _, c := range claims {
		if c.Degraded {
			errs = append(errs, c.Error)
		}
	}
	return errs
}

func qualifierTexts(qs []model.UncertaintyQualifier) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.Text
	}
	return out
}

func configMetadata(cfg model.PipelineConfig) map[string]any {
	return map[string]any{
		"enabled":                    cfg.Enabled,
		"domain_specific_enabled":    cfg.DomainSpecificEnabled,
		"uncertainty_reward_enabled": cfg.UncertaintyRewardEnabled,
		"hitl_threshold":             cfg.HITLThreshold,
		"appropriateness_floor":      cfg.AppropriatenessFloor,
		"base_penalty":               cfg.BasePenalty,
		"max_penalty":                cfg.MaxPenalty,
		"max_bonus":                  cfg.MaxBonus,
		"bonus_per_qualifier":        cfg.BonusPerQualifier,
	}
}
