package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/veritas/internal/model"
)

type checkOutcome struct {
	verdict model.Verdict
	err     error
}

// WithTimeout bounds every check made through next. Checkers that ignore their
// context are abandoned when the deadline passes.
func WithTimeout(next Checker, timeout time.Duration) Checker {
	if timeout <= 0 {
		return next
	}

	return CheckerFunc(func(ctx context.Context, req model.CheckRequest) (model.Verdict, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		done := make(chan checkOutcome, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- checkOutcome{err: fmt.Errorf("checker panic: %v", r)}
				}
			}()
			v, err := next.Check(ctx, req)
			done <- checkOutcome{verdict: v, err: err}
		}()

		select {
		case out := <-done:
			return out.verdict, out.err
		case <-ctx.Done():
			return model.Verdict{}, fmt.Errorf("check timed out after %s: %w", timeout, ctx.Err())
		}
	})
}
