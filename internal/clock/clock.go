// Package clock abstracts wall-clock access so day-boundary logic is testable.
package clock

import "time"

// Clock supplies the current instant. The snapshot store and record writer
// derive "today" from an injected Clock rather than calling time.Now directly.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Fixed is a Clock pinned to a settable instant.
type Fixed struct {
	Instant time.Time
}

func (f *Fixed) Now() time.Time { return f.Instant }

// Set moves the fixed clock to a new instant.
func (f *Fixed) Set(t time.Time) { f.Instant = t }
