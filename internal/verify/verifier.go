package verify

import (
	"context"
	"fmt"

	"github.com/ppiankov/veritas/internal/extract"
	"github.com/ppiankov/veritas/internal/logging"
	"github.com/ppiankov/veritas/internal/model"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// Verifier extracts claims from text and checks them concurrently
type Verifier struct {
	extractor   *extract.ClaimExtractor
	checker     Checker
	concurrency int
	logger      logging.Logger
}

// Option configures a Verifier
type Option func(*Verifier)

// WithConcurrency bounds the number of claims checked in parallel
func WithConcurrency(n int) Option {
	return func(v *Verifier) {
		if n > 0 {
			v.concurrency = n
		}
	}
}

// WithLogger sets the logger used for degraded checks
func WithLogger(l logging.Logger) Option {
	return func(v *Verifier) {
		v.logger = logging.Named(l, "verify")
	}
}

// NewVerifier creates a verifier around checker. A nil checker uses the embedded rule pack.
func NewVerifier(checker Checker, opts ...Option) *Verifier {
	if checker == nil {
		checker = DefaultRules()
	}

	v := &Verifier{
		extractor:   extract.NewClaimExtractor(),
		checker:     checker,
		concurrency: defaultConcurrency,
		logger:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Extractor returns the claim extractor used by Verify
func (v *Verifier) Extractor() *extract.ClaimExtractor {
	return v.extractor
}

// Verify extracts candidate claims from text and checks each of them
func (v *Verifier) Verify(ctx context.Context, text string, domain model.DomainProfile, hostContext map[string]any) []model.Claim {
	return v.VerifyClaims(ctx, v.extractor.Extract(text), domain, hostContext)
}

// VerifyClaims checks already extracted claims and returns them with verdicts filled in.
// It returns only after every check has settled; failures degrade to "unverified, allow".
func (v *Verifier) VerifyClaims(ctx context.Context, claims []model.Claim, domain model.DomainProfile, hostContext map[string]any) []model.Claim {
	out := make([]model.Claim, len(claims))
	copy(out, claims)

	var g errgroup.Group
	g.SetLimit(v.concurrency)

	for i := range out {
		g.Go(func() error {
			out[i] = v.checkOne(ctx, out[i], domain, hostContext)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// checkOne never fails: errors, panics and malformed verdicts mark the claim degraded
func (v *Verifier) checkOne(ctx context.Context, claim model.Claim, domain model.DomainProfile, hostContext map[string]any) (result model.Claim) {
	defer func() {
		if r := recover(); r != nil {
			result = degrade(claim, fmt.Errorf("checker panic: %v", r))
			v.logger.Warn().Str("claim", claim.Text).Interface("panic", r).Msg("claim check panicked")
		}
	}()

	verdict, err := v.checker.Check(ctx, model.CheckRequest{
		Claim:   claim.Text,
		Domain:  domain,
		Context: hostContext,
	})
	if err != nil {
		v.logger.Warn().Err(err).Str("claim", claim.Text).Msg("claim check failed")
		return degrade(claim, err)
	}
	if !verdict.Valid() {
		err := fmt.Errorf("%w: %+v", ErrMalformedVerdict, verdict)
		v.logger.Warn().Err(err).Str("claim", claim.Text).Msg("claim check returned malformed verdict")
		return degrade(claim, err)
	}

	claim.IsHallucination = verdict.IsHallucination
	claim.Confidence = verdict.Confidence
	claim.VerificationSource = verdict.Source
	v.logger.Debug().
		Str("claim", claim.Text).
		Str("source", verdict.Source).
		Bool("hallucination", verdict.IsHallucination).
		Float64("confidence", verdict.Confidence).
		Msg("claim checked")
	return claim
}

func degrade(claim model.Claim, err error) model.Claim {
	v := model.Unavailable()
	claim.IsHallucination = v.IsHallucination
	claim.Confidence = v.Confidence
	claim.VerificationSource = v.Source
	claim.Degraded = true
	claim.Error = err.Error()
	return claim
}

// CountDegraded returns how many claims could not be checked
func CountDegraded(claims []model.Claim) int {
	n := 0
	for _, c := range claims {
		if c.Degraded {
			n++
		}
	}
	return n
}
