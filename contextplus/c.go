package contextplus

import (
	"context"
	"time"

	"github.com/10gen/data-inflater/internal/util"
)

// C stores a `context.Context`. This is the concrete type of the contexts that
// this package’s static functions return.
//
// The context is deliberately not embedded, so nothing can reach the
// wrapped context’s Err() by accident.
type C struct {
	ctx context.Context
}

var _ context.Context = &C{}

// New returns a context from this package. See its `Err()` for why that’s
// useful.
func New(ctx context.Context) *C {
	return &C{ctx}
}

// Deadline returns the wrapped context’s deadline.
func (c *C) Deadline() (deadline time.Time, ok bool) {
	return c.ctx.Deadline()
}

// Done returns the wrapped context’s Done channel.
func (c *C) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Value returns the requested value from the wrapped context.
func (c *C) Value(key any) any {
	return c.ctx.Value(key)
}

// Err returns the wrapped context’s Err() together with its cancellation
// cause. Callers *MUST* use errors.Is() or errors.As() to introspect it;
// equality against context.Canceled does not hold.
func (c *C) Err() error {
	return util.WrapCtxErrWithCause(c.ctx)
}
