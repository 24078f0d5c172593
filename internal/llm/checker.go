package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/worker"
)

// retryDelay is the pause before the single retry of a rate-limited or failed call
var retryDelay = 500 * time.Millisecond

// Checker adapts a Provider to the claim verifier
type Checker struct {
	provider Provider
	limiter  *worker.Limiter
}

// NewChecker creates a model-backed checker; limiter may be nil
func NewChecker(provider Provider, limiter *worker.Limiter) *Checker {
	return &Checker{
		provider: provider,
		limiter:  limiter,
	}
}

// Name returns the underlying provider name
func (c *Checker) Name() string {
	return "llm:" + c.provider.Name()
}

// Check asks the provider for a verdict on a single claim
func (c *Checker) Check(ctx context.Context, req model.CheckRequest) (model.Verdict, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, c.Name()); err != nil {
			return model.Verdict{}, fmt.Errorf("rate limit: %w", err)
		}
	}

	prompt := BuildPrompt(req)
	output, err := c.provider.Complete(ctx, prompt)
	var apiErr *APIError
	if err != nil && errors.As(err, &apiErr) && apiErr.Temporary() {
		t := time.NewTimer(retryDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return model.Verdict{}, err
		case <-t.C:
		}
		output, err = c.provider.Complete(ctx, prompt)
	}
	if err != nil {
		return model.Verdict{}, err
	}

	return ParseVerdict(c.provider.Name(), output)
}
