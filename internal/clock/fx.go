package clock

import "go.uber.org/fx"

// Module provides the wall clock. Sync code never calls time.Now directly
// so day-rollover logic can be driven by a Fixed clock in tests.
var Module = fx.Module("clock",
	fx.Provide(func() Clock {
		return SystemClock{}
	}),
)
