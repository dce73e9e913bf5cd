package domain

import "time"

// Clock supplies the current time to the services. Injected so lifecycle
// decisions are deterministic under test; no service reads the system
// clock directly.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by the wall clock in UTC.
func SystemClock() Clock { return systemClock{} }
