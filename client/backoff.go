package client

import "time"

const (
	backoffBase = time.Second
	backoffCap  = 30 * time.Second
)

// backoffDelay returns the reconnect delay for the given failed-attempt
// count: one second doubled per attempt, capped at thirty seconds.
func backoffDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// 1s<<5 already exceeds the cap; guarding here avoids shift overflow.
	if attempt >= 5 {
		return backoffCap
	}
	delay := backoffBase << uint(attempt)
	if delay > backoffCap {
		return backoffCap
	}
	return delay
}
