package connect

import (
	"math/rand"
	"time"
)

// backoffDelay returns the exponential backoff delay for the given attempt
// index (0-based): base doubling per attempt, capped at max, ±25% jitter to
// avoid thundering herds.
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	delay := base << uint(attempt)
	if max > 0 && (delay > max || delay <= 0) { // <= 0 on shift overflow
		delay = max
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2+1)) - delay/4
	return delay + jitter
}
