// Package similarity holds the contract the grading engine uses to compare
// two texts and the adapters that fulfil it.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider returns a similarity value for two texts; larger means more alike.
// Values are roughly in [-1, 1] and cluster in [0, 1] for same-language text.
// Implementations must be safe for concurrent use.
type Provider interface {
	Similarity(ctx context.Context, textA, textB string) (float64, error)
}

// BatchProvider compares one text against many in a single call. The result
// has one value per element of others, in the same order.
type BatchProvider interface {
	Provider
	Similarities(ctx context.Context, text string, others []string) ([]float64, error)
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(ctx context.Context, textA, textB string) (float64, error)

func (f ProviderFunc) Similarity(ctx context.Context, textA, textB string) (float64, error) {
	return f(ctx, textA, textB)
}

var (
	ErrTimeout  = errors.New("similarity provider call timed out")
	ErrCanceled = errors.New("similarity provider call canceled")
)

// ProviderError is returned when a remote provider fails so the caller can
// tell a bad response apart from an unreachable backend.
type ProviderError struct {
	Reason  string
	Wrapped error
}

func (e *ProviderError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("similarity provider: %s: %v", e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("similarity provider: %s", e.Reason)
}

func (e *ProviderError) Unwrap() error {
	return e.Wrapped
}

// WithTimeout bounds every call to p. A call that outlives timeout fails
// with ErrTimeout, one whose parent context is canceled fails with
// ErrCanceled, even if p itself ignores its context. timeout <= 0 keeps only
// the cancellation boundary. The result implements BatchProvider when p does.
func WithTimeout(p Provider, timeout time.Duration) Provider {
	tp := &timeoutProvider{next: p, timeout: timeout}
	if bp, ok := p.(BatchProvider); ok {
		return &timeoutBatchProvider{timeoutProvider: tp, batch: bp}
	}
	return tp
}

type timeoutProvider struct {
	next    Provider
	timeout time.Duration
}

type outcome[T any] struct {
	value T
	err   error
}

func (p *timeoutProvider) Similarity(ctx context.Context, textA, textB string) (float64, error) {
	return bounded(ctx, p.timeout, func(callCtx context.Context) (float64, error) {
		return p.next.Similarity(callCtx, textA, textB)
	})
}

type timeoutBatchProvider struct {
	*timeoutProvider
	batch BatchProvider
}

func (p *timeoutBatchProvider) Similarities(ctx context.Context, text string, others []string) ([]float64, error) {
	return bounded(ctx, p.timeout, func(callCtx context.Context) ([]float64, error) {
		return p.batch.Similarities(callCtx, text, others)
	})
}

// bounded runs call in its own goroutine and returns as soon as either the
// call finishes or the call context is done. An abandoned call keeps running
// until the provider returns; its result is discarded.
func bounded[T any](ctx context.Context, timeout time.Duration, call func(context.Context) (T, error)) (T, error) {
	var (
		callCtx context.Context
		cancel  context.CancelFunc
	)
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		v, err := call(callCtx)
		done <- outcome[T]{value: v, err: err}
	}()

	var zero T
	select {
	case res := <-done:
		if res.err != nil {
			return zero, classify(ctx, callCtx, timeout, res.err)
		}
		return res.value, nil
	case <-callCtx.Done():
		return zero, classify(ctx, callCtx, timeout, callCtx.Err())
	}
}

func classify(parent, callCtx context.Context, timeout time.Duration, err error) error {
	switch {
	case parent.Err() != nil && errors.Is(parent.Err(), context.Canceled):
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	case parent.Err() != nil:
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w after %s: %w", ErrTimeout, timeout, err)
	default:
		return err
	}
}
