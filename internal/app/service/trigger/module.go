package trigger

import "go.uber.org/fx"

// Module exposes the trigger scheduler via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
