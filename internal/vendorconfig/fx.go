package vendorconfig

import "go.uber.org/fx"

var Module = fx.Module("vendorconfig",
	fx.Provide(NewService),
)
