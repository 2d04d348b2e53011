package domain

import (
	"sync/atomic"
	"time"
)

var lastTimestamp int64

// NextTimestamp returns the current time in milliseconds since the epoch,
// bumped so that successive calls are strictly increasing even within the
// same millisecond. UpdatedAt stamps depend on this for monotonicity.
func NextTimestamp() int64 {
	for {
		now := time.Now().UnixMilli()
		last := atomic.LoadInt64(&lastTimestamp)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastTimestamp, last, now) {
			return now
		}
	}
}
