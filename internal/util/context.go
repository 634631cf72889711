package util

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// WrapCtxErrWithCause returns the context's error wrapped together with
// its cancellation cause, if any. errors.Is() still matches the standard
// library's errors (e.g., context.Canceled).
func WrapCtxErrWithCause(ctx context.Context) error {
	cause := context.Cause(ctx)
	err := ctx.Err() //nolint:gocritic

	if cause == nil {
		return err
	}

	// A cause like `fmt.Errorf("interrupted (%w)", context.Canceled)`
	// already reads well on its own.
	if errors.Is(cause, err) {
		return cause
	}

	if errors.Is(err, cause) {
		return err
	}

	return fmt.Errorf("%w: %w", err, cause)
}
