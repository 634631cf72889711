package retry

import (
	"fmt"
	"time"

	"github.com/samber/mo"
)

// Retryer retries read-only operations that fail because of transient
// errors (network failures, elections, stale routing, etc.).
type Retryer struct {
	retryLimit  time.Duration
	description mo.Option[string]
}

// New returns a new retryer.
func New(limit time.Duration) *Retryer {
	return &Retryer{
		retryLimit: limit,
	}
}

// WithDescription returns a copy of the Retryer whose log lines and
// errors include the given description.
func (r *Retryer) WithDescription(msg string, args ...any) *Retryer {
	r2 := *r
	r2.description = mo.Some(fmt.Sprintf(msg, args...))

	return &r2
}
