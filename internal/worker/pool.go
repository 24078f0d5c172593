package worker

import (
	"context"
	"fmt"
	"sync"
)

// Pool maps inputs to outputs on a fixed number of workers.
// Results keep input order; a panicking call is turned into a result by the recover func.
type Pool[T, R any] struct {
	workers int
	fn      func(ctx context.Context, in T) R
	recover func(in T, err error) R
}

// NewPool creates a pool running fn; workers <= 0 means one worker
func NewPool[T, R any](workers int, fn func(ctx context.Context, in T) R) *Pool[T, R] {
	if workers <= 0 {
		workers = 1
	}
	return &Pool[T, R]{workers: workers, fn: fn}
}

// WithRecover sets the result used when fn panics; without it the panic propagates
func (p *Pool[T, R]) WithRecover(f func(in T, err error) R) *Pool[T, R] {
	p.recover = f
	return p
}

// Run calls fn for every input and returns when all calls finished.
// Every input is processed even after ctx is cancelled; fn sees the cancelled ctx.
func (p *Pool[T, R]) Run(ctx context.Context, inputs []T) []R {
	results := make([]R, len(inputs))
	if len(inputs) == 0 {
		return results
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	for range min(p.workers, len(inputs)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = p.call(ctx, inputs[i])
			}
		}()
	}

	for i := range inputs {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return results
}

func (p *Pool[T, R]) call(ctx context.Context, in T) (out R) {
	if p.recover != nil {
		defer func() {
			if r := recover(); r != nil {
				out = p.recover(in, fmt.Errorf("panic: %v", r))
			}
		}()
	}
	return p.fn(ctx, in)
}
