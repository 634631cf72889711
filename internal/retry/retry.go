package retry

import (
	"context"
	"time"

	"github.com/10gen/data-inflater/internal/logger"
	"github.com/10gen/data-inflater/internal/util"
	"github.com/pkg/errors"
)

// Run runs f() until it succeeds, fails with a non-transient error, or has
// failed transiently for longer than the Retryer’s duration limit. Sleeps
// between attempts back off exponentially and stop early if ctx is
// canceled.
func (r *Retryer) Run(
	ctx context.Context,
	logger *logger.Logger,
	f func(context.Context, *FuncInfo) error,
) error {
	fi := &FuncInfo{
		durationLimit: r.retryLimit,
		lastResetTime: time.Now(),
	}
	sleepTime := minSleepTime

	for {
		err := f(ctx, fi)
		if err == nil {
			return nil
		}

		if !util.IsTransientError(err) {
			return r.wrap(err)
		}

		if fi.GetDurationSoFar() > fi.durationLimit {
			return r.wrap(RetryDurationLimitExceededErr{
				lastErr:  err,
				attempts: 1 + fi.attemptNumber,
				duration: fi.GetDurationSoFar(),
			})
		}

		logger.Warn().
			Err(err).
			Int("errorCode", util.GetErrorCode(err)).
			Str("description", r.description.OrEmpty()).
			Int("attemptNumber", fi.attemptNumber).
			Msgf("Waiting %s to retry operation after transient error.", sleepTime)

		select {
		case <-ctx.Done():
			return errors.Wrap(context.Cause(ctx), "retry loop canceled")
		case <-time.After(sleepTime):
		}

		sleepTime = min(sleepTime*sleepTimeMultiplier, maxSleepTime)
		fi.attemptNumber++
	}
}

func (r *Retryer) wrap(err error) error {
	if desc, has := r.description.Get(); has {
		return errors.Wrap(err, desc)
	}

	return err
}
