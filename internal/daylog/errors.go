package daylog

import "errors"

var (
	// ErrEmptyDescription means nothing has been logged for the day.
	ErrEmptyDescription = errors.New("no messages logged for the day")
	// ErrLockTimeout means another write to the same row did not finish in time.
	ErrLockTimeout = errors.New("timed out waiting for the daily log row")
)
