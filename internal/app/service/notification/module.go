package notification

import "go.uber.org/fx"

// Module exposes the notification dispatcher via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
