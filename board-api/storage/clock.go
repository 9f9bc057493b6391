package storage

import (
	"sync/atomic"
	"time"
)

var lastMicros int64

// nextTimestamp returns the current UTC time at microsecond precision, bumped
// so that no two calls in this process return the same instant.
func nextTimestamp() time.Time {
	for {
		now := time.Now().UnixMicro()
		last := atomic.LoadInt64(&lastMicros)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastMicros, last, now) {
			return time.UnixMicro(now).UTC()
		}
	}
}

// after returns a timestamp strictly later than prev.
func after(prev time.Time) time.Time {
	ts := nextTimestamp()
	if !ts.After(prev) {
		ts = prev.Add(time.Microsecond).Truncate(time.Microsecond)
	}
	return ts
}
