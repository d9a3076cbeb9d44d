package template

import "go.uber.org/fx"

// Module exposes the template engine via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
	fx.Invoke(SeedDefaults),
)
