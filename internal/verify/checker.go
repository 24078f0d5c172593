package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/veritas/internal/model"
)

// Checker evaluates a single claim
type Checker interface {
	Check(ctx context.Context, req model.CheckRequest) (model.Verdict, error)
}

// CheckerFunc adapts an ordinary function to the Checker interface
type CheckerFunc func(ctx context.Context, req model.CheckRequest) (model.Verdict, error)

// Check calls f(ctx, req)
func (f CheckerFunc) Check(ctx context.Context, req model.CheckRequest) (model.Verdict, error) {
	return f(ctx, req)
}

// ErrMalformedVerdict is returned when a checker answers with an out-of-range verdict
var ErrMalformedVerdict = errors.New("malformed verdict")

// Chain runs checkers in order; the first decisive verdict wins
type Chain []Checker

// NewChain builds a chain, skipping nil checkers
func NewChain(checkers ...Checker) Chain {
	chain := make(Chain, 0, len(checkers))
	for _, c := range checkers {
		if c != nil {
			chain = append(chain, c)
		}
	}
	return chain
}

// Check asks each checker in turn. A checker without an opinion falls through.
// With no decisive verdict, any failure is returned so the claim degrades
// instead of passing as unverified.
func (c Chain) Check(ctx context.Context, req model.CheckRequest) (model.Verdict, error) {
	var errs []error

	for i, checker := range c {
		verdict, err := checker.Check(ctx, req)
		if err != nil {
			errs = append(errs, fmt.Errorf("checker %d: %w", i, err))
			continue
		}
		if !verdict.Valid() {
			errs = append(errs, fmt.Errorf("checker %d: %w: %+v", i, ErrMalformedVerdict, verdict))
			continue
		}
		if verdict.Decisive() {
			return verdict, nil
		}
	}

	if len(errs) > 0 {
		return model.Verdict{}, errors.Join(errs...)
	}
	return model.Unverified(), nil
}
