package retry

import (
	"time"
)

// FuncInfo stores information relevant to the retrying done. It should
// primarily be used within the closure passed to Retryer.Run.
//
// The attempt number is 0-indexed (0 means this is the first attempt).
type FuncInfo struct {
	attemptNumber int
	durationLimit time.Duration
	lastResetTime time.Time
}

// GetAttemptNumber returns the current attempt number (0-indexed).
func (fi *FuncInfo) GetAttemptNumber() int {
	return fi.attemptNumber
}

// GetDurationSoFar returns how long the closure has been retried since
// the last noted success.
func (fi *FuncInfo) GetDurationSoFar() time.Duration {
	return time.Since(fi.lastResetTime)
}

// NoteSuccess resets the retryer’s measurement of how long the closure has
// been failing. Call this after every successful command in a
// multi-command callback.
func (fi *FuncInfo) NoteSuccess() {
	fi.lastResetTime = time.Now()
}
