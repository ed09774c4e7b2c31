package domain

import (
	"sync/atomic"
	"time"
)

var lastTimestamp int64

// Now returns the current time with a strictly increasing nanosecond value.
// Two mutations applied back to back must record distinct UpdatedAt values so
// recency ordering and the board cache can tell them apart.
func Now() time.Time {
	for {
		now := time.Now().UnixNano()
		last := atomic.LoadInt64(&lastTimestamp)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastTimestamp, last, now) {
			return time.Unix(0, now).UTC()
		}
	}
}
