package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/santrihub/sppbilling/pkg/logctx"
	"github.com/santrihub/sppbilling/pkg/metrics"
)

// SideEffect is the error boundary for notification dispatches that hang off
// a primary business transition. The dispatch error is logged and counted but
// never propagated, so a failed send can never roll back the transition that
// caused it.
func SideEffect(ctx context.Context, log *zap.SugaredLogger, event string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.SideEffectErrors.WithLabelValues(event).Inc()
			logctx.FromCtx(ctx, log).Errorw("side_effect_panic", "event", event, "panic", r)
		}
	}()
	if err := fn(); err != nil {
		metrics.SideEffectErrors.WithLabelValues(event).Inc()
		logctx.FromCtx(ctx, log).Errorw("side_effect_failed", "event", event, "err", err)
	}
}
