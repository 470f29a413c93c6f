package service

import "time"

// Clock supplies "now" so expiry boundaries can be pinned in tests. All
// validity comparisons in this package go through it.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
