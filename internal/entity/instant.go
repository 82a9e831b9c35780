package entity

import "time"

// Instant is a point in time in epoch milliseconds. Everything above the
// document store boundary works with Instant only.
type Instant int64

func Now() Instant {
	return Instant(time.Now().UnixMilli())
}

func InstantFromTime(t time.Time) Instant {
	if t.IsZero() {
		return 0
	}
	return Instant(t.UnixMilli())
}

func (i Instant) Time() time.Time {
	return time.UnixMilli(int64(i)).UTC()
}

func (i Instant) IsZero() bool {
	return i == 0
}
