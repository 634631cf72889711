// Package contextplus wraps the standard library’s context cancellation
// functions so that a returned context’s Err() includes the cancellation
// cause as well as context.Canceled.
//
// Public functions should still accept a plain context.Context; only
// internal code should require a *contextplus.C.
package contextplus

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// WithCancelCause works just like the standard library’s function of the
// same name, but the returned Context’s Err() will include both
// `context.Canceled` and the Cause.
func WithCancelCause(ctx context.Context) (*C, context.CancelCauseFunc) {
	//nolint:gocritic
	newCtx, cancel := context.WithCancelCause(ctx)
	return New(newCtx), cancel
}

// ErrGroup is like `errgroup.WithContext()`, but it returns a context
// from this package.
func ErrGroup(ctx context.Context) (*errgroup.Group, *C) {
	//nolint:gocritic
	group, ctx2 := errgroup.WithContext(ctx)

	return group, New(ctx2)
}
