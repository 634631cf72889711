package inflater

import (
	"context"
	"io"
	"time"

	"github.com/10gen/data-inflater/contextplus"
	"github.com/10gen/data-inflater/internal/logger"
	"github.com/10gen/data-inflater/internal/reportutils"
	"github.com/10gen/data-inflater/internal/util"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// BatchFunc performs one batch of work. batchNum is 0-indexed.
type BatchFunc func(ctx context.Context, batchNum int, size int64) error

// DispatchBatches runs fn once per entry of sizes, all concurrently, and
// waits for every run to return. The first failure cancels the others’
// context; its error is what DispatchBatches returns.
//
// progress, if non-nil, receives `[` as each batch starts and `]` as it
// ends.
func DispatchBatches(
	ctx context.Context,
	logger *logger.Logger,
	sizes []int64,
	fn BatchFunc,
	progress io.Writer,
) error {
	if len(sizes) == 0 {
		return nil
	}

	tracker := NewBatchTracker(sizes, progress)
	start := time.Now()

	eg, egCtx := contextplus.ErrGroup(ctx)

	for batchNum, size := range sizes {
		eg.Go(func() error {
			tracker.Start(batchNum)

			err := fn(egCtx, batchNum, size)

			var state batchState
			switch {
			case err == nil:
				state = batchDone
			case egCtx.Err() != nil && util.IsContextCanceledError(err):
				state = batchCanceled
			default:
				state = batchFailed
			}

			stillRunning := tracker.Finish(batchNum, state)

			logger.Trace().
				Int("batch", 1+batchNum).
				Str("state", string(state)).
				Int("stillRunning", stillRunning).
				Msg("Batch finished.")

			if err == nil {
				return nil
			}

			return errors.Wrapf(
				err,
				"batch %d of %d (%s documents) failed",
				1+batchNum,
				len(sizes),
				reportutils.FmtCount(size),
			)
		})
	}

	err := eg.Wait()

	statuses := tracker.Load()
	logger.Debug().
		Int("batches", len(sizes)).
		Int64("documents", lo.Sum(sizes)).
		Int("done", tracker.CountInState(batchDone)).
		Int("failed", tracker.CountInState(batchFailed)).
		Int("canceled", tracker.CountInState(batchCanceled)).
		Stringer("elapsed", time.Since(start)).
		Str("slowestBatch", reportutils.DurationToHMS(slowestBatch(statuses))).
		Msg("Batches finished.")

	if err != nil && ctx.Err() != nil {
		return util.WrapCtxErrWithCause(ctx)
	}

	return err
}

func slowestBatch(statuses BatchStatusMap) time.Duration {
	return lo.Max(lo.Map(lo.Values(statuses), func(s BatchStatus, _ int) time.Duration {
		return s.Duration
	}))
}
