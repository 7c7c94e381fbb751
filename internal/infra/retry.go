package infra

import "time"

// Retry pacing for the oracle hosts. A plan quotes live prices, so a call
// stalled for a minute would only produce a stale descriptor: the schedule
// stays short and callers give up after a few attempts.
const (
	retryBase = 500 * time.Millisecond
	retryCap  = 8 * time.Second
)

// RetryDelay returns the delay before retry attempt n (zero-based),
// doubling from retryBase up to retryCap.
func RetryDelay(attempt int) time.Duration {
	if attempt < 0 {
		return retryBase
	}
	if attempt > 20 {
		return retryCap
	}
	d := retryBase << uint(attempt)
	if d > retryCap {
		return retryCap
	}
	return d
}
