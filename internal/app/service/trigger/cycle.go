package trigger

import (
	"context"
	"time"

	"github.com/santrihub/sppbilling/internal/app/service/billing"
	"github.com/santrihub/sppbilling/pkg/logctx"
)

// BillingCycleSummary reports one billing cron run.
type BillingCycleSummary struct {
	TrialsActivated int64                      `json:"trials_activated"`
	Expired         int64                      `json:"expired"`
	Billing         *billing.DueBillingSummary `json:"billing"`
}

// RunBillingCycle advances the subscription lifecycle and then generates the
// due billing records. Trials are promoted and lapsed subscriptions expired
// first, so a trial ending today is billed in the same run.
func (s *Service) RunBillingCycle(ctx context.Context) (*BillingCycleSummary, error) {
	now := time.Now()

	activated, err := s.subs.ActivateEndedTrials(ctx, now)
	if err != nil {
		return nil, err
	}
	expired, err := s.subs.ExpireLapsed(ctx, now)
	if err != nil {
		return nil, err
	}
	summary, err := s.billing.ProcessDueBillings(ctx)
	if err != nil {
		return nil, err
	}

	logctx.FromCtx(ctx, s.log).Infow("billing_cycle_done",
		"trials_activated", activated, "expired", expired,
		"scanned", summary.Scanned, "created", summary.Created)
	return &BillingCycleSummary{TrialsActivated: activated, Expired: expired, Billing: summary}, nil
}
