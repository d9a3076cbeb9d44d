package trigger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/santrihub/sppbilling/internal/app/service/billing"
	"github.com/santrihub/sppbilling/internal/app/service/notification"
	"github.com/santrihub/sppbilling/internal/app/service/statistics"
	"github.com/santrihub/sppbilling/internal/app/service/subscription"
	cfgpkg "github.com/santrihub/sppbilling/pkg/config"
	"github.com/santrihub/sppbilling/pkg/logctx"
	"github.com/santrihub/sppbilling/pkg/metrics"
	"github.com/santrihub/sppbilling/pkg/types"
)

// Service runs the scheduled notification triggers. Every trigger is safe to
// re-run: a sent marker is claimed before dispatch and the claim is unique per
// (entity, trigger, period).
type Service struct {
	cfg     *cfgpkg.Config
	db      *gorm.DB
	log     *zap.SugaredLogger
	notif   *notification.Service
	billing *billing.Service
	subs    *subscription.Service
	stats   *statistics.Service
}

func NewService(
	cfg *cfgpkg.Config,
	db *gorm.DB,
	log *zap.SugaredLogger,
	notif *notification.Service,
	billingSvc *billing.Service,
	subs *subscription.Service,
	stats *statistics.Service,
) *Service {
	return &Service{cfg: cfg, db: db, log: log, notif: notif, billing: billingSvc, subs: subs, stats: stats}
}

// TriggerResult reports one trigger check of a scheduler run.
type TriggerResult struct {
	Trigger types.TriggerType `json:"trigger"`
	Checked int               `json:"checked"`
	Sent    int               `json:"sent"`
	Skipped int               `json:"skipped"`
	Errors  int               `json:"errors"`
	Err     string            `json:"error,omitempty"`
}

// RunScheduledTriggers executes every scheduled check in a fixed order. One
// failing trigger never stops the ones behind it; its error lands in its own
// result entry.
func (s *Service) RunScheduledTriggers(ctx context.Context) []TriggerResult {
	now := time.Now()
	checks := []struct {
		trigger types.TriggerType
		run     func(context.Context, time.Time) (*TriggerResult, error)
	}{
		{types.TriggerDueReminder, s.CheckPaymentDueReminders},
		{types.TriggerOverdue, s.CheckPaymentOverdue},
		{types.TriggerBirthday, s.CheckBirthdays},
		{types.TriggerMonthlyReport, s.SendMonthlyReports},
	}

	lg := logctx.FromCtx(ctx, s.log)
	results := make([]TriggerResult, 0, len(checks))
	for _, check := range checks {
		res := s.runOne(ctx, now, check.trigger, check.run)
		if res.Err != "" {
			metrics.TriggerRuns.WithLabelValues(string(check.trigger), "error").Inc()
			lg.Errorw("trigger_failed", "trigger", check.trigger, "err", res.Err)
		} else {
			metrics.TriggerRuns.WithLabelValues(string(check.trigger), "ok").Inc()
			lg.Infow("trigger_done",
				"trigger", check.trigger, "checked", res.Checked,
				"sent", res.Sent, "skipped", res.Skipped, "errors", res.Errors)
		}
		results = append(results, res)
	}
	return results
}

// runOne isolates a single trigger: a panic inside one check becomes an error
// entry instead of taking the whole run down.
func (s *Service) runOne(ctx context.Context, now time.Time, trigger types.TriggerType, run func(context.Context, time.Time) (*TriggerResult, error)) (result TriggerResult) {
	result = TriggerResult{Trigger: trigger}
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Sprintf("panic: %v", r)
		}
	}()

	res, err := run(ctx, now)
	if res != nil {
		result = *res
		result.Trigger = trigger
	}
	if err != nil {
		result.Err = err.Error()
	}
	return result
}
