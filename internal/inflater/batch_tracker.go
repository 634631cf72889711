package inflater

import (
	"io"
	"time"

	"github.com/10gen/data-inflater/msync"
	"github.com/samber/lo"
)

type batchState string

const (
	batchPending  batchState = "pending"
	batchRunning  batchState = "running"
	batchDone     batchState = "done"
	batchFailed   batchState = "failed"
	batchCanceled batchState = "canceled"
)

// BatchStatus describes one batch of a dispatch.
type BatchStatus struct {
	Size      int64
	State     batchState
	StartTime time.Time
	Duration  time.Duration
}

type BatchStatusMap = map[int]BatchStatus

// BatchTracker records each batch’s status and writes the live progress
// markers. The markers are written under the tracker’s lock so that
// concurrent batches never interleave partial writes.
type BatchTracker struct {
	guard    *msync.DataGuard[BatchStatusMap]
	progress io.Writer
}

func NewBatchTracker(sizes []int64, progress io.Writer) *BatchTracker {
	bsmap := BatchStatusMap{}
	for i, size := range sizes {
		bsmap[i] = BatchStatus{Size: size, State: batchPending}
	}

	return &BatchTracker{
		guard:    msync.NewDataGuard(bsmap),
		progress: lo.Ternary[io.Writer](progress == nil, io.Discard, progress),
	}
}

func (bt *BatchTracker) Start(batchNum int) {
	bt.guard.Store(func(m BatchStatusMap) BatchStatusMap {
		status := m[batchNum]
		status.State = batchRunning
		status.StartTime = time.Now()
		m[batchNum] = status

		_, _ = io.WriteString(bt.progress, "[")

		return m
	})
}

// Finish records a batch’s end state. It returns how many batches are
// still running.
func (bt *BatchTracker) Finish(batchNum int, state batchState) int {
	return msync.Update(bt.guard, func(m BatchStatusMap) (BatchStatusMap, int) {
		status := m[batchNum]
		status.State = state
		status.Duration = time.Since(status.StartTime)
		m[batchNum] = status

		_, _ = io.WriteString(bt.progress, "]")

		return m, lo.CountBy(lo.Values(m), func(s BatchStatus) bool {
			return s.State == batchRunning
		})
	})
}

// Load returns a copy of the current statuses.
func (bt *BatchTracker) Load() BatchStatusMap {
	return msync.Read(bt.guard, func(m BatchStatusMap) BatchStatusMap {
		return lo.Assign(m)
	})
}

// CountInState returns how many batches are in the given state.
func (bt *BatchTracker) CountInState(state batchState) int {
	return msync.Read(bt.guard, func(m BatchStatusMap) int {
		return lo.CountBy(lo.Values(m), func(s BatchStatus) bool {
			return s.State == state
		})
	})
}
