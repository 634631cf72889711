package retry

import "time"

const (
	// DefaultDurationLimit is the default time limit for all retries.
	DefaultDurationLimit = 2 * time.Minute

	// The sleep sequence, in seconds, is: 1, 2, 4, 8, 8, 8, ...
	minSleepTime        = 1 * time.Second
	maxSleepTime        = 8 * time.Second
	sleepTimeMultiplier = 2
)
