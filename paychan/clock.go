package paychan

import "time"

// Clock supplies the scheduler's notion of now. Production code uses
// SystemClock; tests substitute a fixed or advanced clock so expiry
// deadlines fire deterministically relative to it.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }
