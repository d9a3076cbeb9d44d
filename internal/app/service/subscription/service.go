package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/santrihub/sppbilling/internal/models"
	"github.com/santrihub/sppbilling/pkg/apperr"
	cfgpkg "github.com/santrihub/sppbilling/pkg/config"
	"github.com/santrihub/sppbilling/pkg/logctx"
	"github.com/santrihub/sppbilling/pkg/tool"
	"github.com/santrihub/sppbilling/pkg/types"
)

// Service owns the subscription lifecycle state machine:
// trial → active → {paused ⇄ active} → cancelled, active → expired.
type Service struct {
	cfg *cfgpkg.Config
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(cfg *cfgpkg.Config, db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, db: db, log: log}
}

type CreateRequest struct {
	StudentID    string             `json:"student_id"`
	PlanID       string             `json:"plan_id"`
	BillingCycle types.BillingCycle `json:"billing_cycle"`
	TrialDays    int                `json:"trial_days"`
	StartDate    time.Time          `json:"start_date"`
	// Amount overrides the configured plan amount when non-zero.
	Amount      int64 `json:"amount"`
	AutoRenewal *bool `json:"auto_renewal"`
}

// Create opens a subscription. A second open (trial/active/paused)
// subscription for the same (student, plan) pair is a conflict.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*models.Subscription, error) {
	if req.StudentID == "" || req.PlanID == "" {
		return nil, apperr.Validationf("student_id and plan_id required")
	}
	if !req.BillingCycle.Valid() {
		return nil, apperr.Validationf("unknown billing cycle: %s", req.BillingCycle)
	}
	if req.TrialDays < 0 {
		return nil, apperr.Validationf("trial_days must not be negative")
	}

	amount := req.Amount
	planName := req.PlanID
	if plan := s.cfg.GetPlanByID(req.PlanID); plan != nil {
		planName = plan.Name
		if amount == 0 {
			amount = plan.Amount
		}
	}
	if amount <= 0 {
		return nil, apperr.Validationf("amount must be positive")
	}

	start := req.StartDate
	if start.IsZero() {
		start = time.Now()
	}

	sub := &models.Subscription{
		ID:           tool.GenerateUUIDV7(),
		StudentID:    req.StudentID,
		PlanID:       req.PlanID,
		PlanName:     planName,
		BillingCycle: req.BillingCycle,
		StartDate:    start,
		Amount:       amount,
		AutoRenewal:  req.AutoRenewal == nil || *req.AutoRenewal,
		Extra:        datatypes.NewJSONType(&models.SubscriptionExtra{}),
	}
	if req.TrialDays > 0 {
		trialEnd := start.AddDate(0, 0, req.TrialDays)
		sub.Status = types.SubscriptionStatusTrial
		sub.TrialEndsAt = &trialEnd
		// the first billing period opens when the trial ends
		sub.NextBillingDate = trialEnd
	} else {
		sub.Status = types.SubscriptionStatusActive
		// the first period is billable immediately
		sub.NextBillingDate = start
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Subscription
		err := tx.Where("student_id = ? AND plan_id = ? AND status IN ?",
			req.StudentID, req.PlanID,
			[]types.SubscriptionStatus{types.SubscriptionStatusTrial, types.SubscriptionStatusActive, types.SubscriptionStatusPaused}).
			First(&existing).Error
		if err == nil {
			return apperr.Conflictf("student %s already has an open subscription on plan %s", req.StudentID, req.PlanID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Persistencef(err, "failed to check existing subscription")
		}
		if err := tx.Create(sub).Error; err != nil {
			return apperr.Persistencef(err, "failed to create subscription")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logctx.FromCtx(ctx, s.log).Infow("subscription_created",
		"id", sub.ID, "student_id", sub.StudentID, "plan_id", sub.PlanID,
		"status", sub.Status, "next_billing_date", sub.NextBillingDate)
	return sub, nil
}

// Pause suspends billing. Only trial and active subscriptions can pause; the
// pre-pause status is remembered for Resume.
func (s *Service) Pause(ctx context.Context, id, reason string) (*models.Subscription, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status != types.SubscriptionStatusActive && sub.Status != types.SubscriptionStatusTrial {
		return nil, apperr.Conflictf("subscription %s is %s, only active or trial can pause", id, sub.Status)
	}

	extra := sub.Extra.Data()
	if extra == nil {
		extra = &models.SubscriptionExtra{}
	}
	extra.StatusBeforePause = sub.Status
	extra.PauseReason = reason

	now := time.Now()
	sub.Status = types.SubscriptionStatusPaused
	sub.PausedAt = &now
	sub.Extra = datatypes.NewJSONType(extra)
	if err := s.db.WithContext(ctx).Save(sub).Error; err != nil {
		return nil, apperr.Persistencef(err, "failed to pause subscription")
	}
	logctx.FromCtx(ctx, s.log).Infow("subscription_paused", "id", id, "reason", reason)
	return sub, nil
}

// Resume returns a paused subscription to its prior state. NextBillingDate is
// recomputed forward from the resume date; the pause gap is never billed.
func (s *Service) Resume(ctx context.Context, id string) (*models.Subscription, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status != types.SubscriptionStatusPaused {
		return nil, apperr.Conflictf("subscription %s is %s, only paused can resume", id, sub.Status)
	}

	prior := types.SubscriptionStatusActive
	extra := sub.Extra.Data()
	if extra == nil {
		extra = &models.SubscriptionExtra{}
	}
	if extra.StatusBeforePause != "" {
		prior = extra.StatusBeforePause
	}
	if prior == types.SubscriptionStatusTrial && sub.TrialEndsAt != nil && sub.TrialEndsAt.Before(time.Now()) {
		prior = types.SubscriptionStatusActive
	}
	extra.StatusBeforePause = ""
	extra.PauseReason = ""

	now := time.Now()
	sub.Status = prior
	sub.PausedAt = nil
	sub.NextBillingDate = AdvanceToAfter(sub.NextBillingDate, now, sub.BillingCycle)
	sub.Extra = datatypes.NewJSONType(extra)
	if err := s.db.WithContext(ctx).Save(sub).Error; err != nil {
		return nil, apperr.Persistencef(err, "failed to resume subscription")
	}
	logctx.FromCtx(ctx, s.log).Infow("subscription_resumed",
		"id", id, "status", sub.Status, "next_billing_date", sub.NextBillingDate)
	return sub, nil
}

// Cancel is terminal. Any still-open billing record of the subscription is
// cancelled in the same transaction; paid history stays untouched.
func (s *Service) Cancel(ctx context.Context, id, reason string) (*models.Subscription, error) {
	var sub *models.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		sub, err = s.getTx(tx, id)
		if err != nil {
			return err
		}
		if sub.Terminal() {
			return apperr.Conflictf("subscription %s is already %s", id, sub.Status)
		}

		extra := sub.Extra.Data()
		if extra == nil {
			extra = &models.SubscriptionExtra{}
		}
		extra.CancelReason = reason

		now := time.Now()
		sub.Status = types.SubscriptionStatusCancelled
		sub.CancelledAt = &now
		sub.Extra = datatypes.NewJSONType(extra)
		if err := tx.Save(sub).Error; err != nil {
			return apperr.Persistencef(err, "failed to cancel subscription")
		}

		// cascade: open obligations die with the subscription
		if err := tx.Model(&models.BillingRecord{}).
			Where("subscription_id = ? AND status IN ?", id,
				[]types.BillingStatus{types.BillingStatusPending, types.BillingStatusFailed}).
			Update("status", types.BillingStatusCancelled).Error; err != nil {
			return apperr.Persistencef(err, "failed to cancel open billing records")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("subscription_cancelled", "id", id, "reason", reason)
	return sub, nil
}

// ExpireLapsed marks active subscriptions whose end date passed without
// auto-renewal as expired. Returns how many rows changed.
func (s *Service) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("status = ? AND auto_renewal = ? AND end_date IS NOT NULL AND end_date < ?",
			types.SubscriptionStatusActive, false, now).
		Update("status", types.SubscriptionStatusExpired)
	if res.Error != nil {
		return 0, apperr.Persistencef(res.Error, "failed to expire subscriptions")
	}
	return res.RowsAffected, nil
}

// ActivateEndedTrials promotes trial subscriptions whose trial window closed.
func (s *Service) ActivateEndedTrials(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("status = ? AND trial_ends_at IS NOT NULL AND trial_ends_at <= ?",
			types.SubscriptionStatusTrial, now).
		Update("status", types.SubscriptionStatusActive)
	if res.Error != nil {
		return 0, apperr.Persistencef(res.Error, "failed to activate ended trials")
	}
	return res.RowsAffected, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Subscription, error) {
	return s.getTx(s.db.WithContext(ctx), id)
}

func (s *Service) getTx(tx *gorm.DB, id string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := tx.Where("id = ?", id).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("subscription not found: %s", id)
		}
		return nil, apperr.Persistencef(err, "failed to load subscription")
	}
	return &sub, nil
}

type ListRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ListResponse struct {
	Items []*models.Subscription `json:"items"`
	Total int64                  `json:"total"`
}

// List implements paginated admin listing with filters.
func (s *Service) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	if req == nil {
		req = &ListRequest{}
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	q := s.db.WithContext(ctx).Model(&models.Subscription{})
	if len(req.Filters) > 0 {
		exprs := lo.Map(req.Filters, func(f *types.CommonFilter, _ int) clause.Expression { return f })
		q = q.Where(clause.Where{Exprs: []clause.Expression{clause.And(exprs...)}})
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperr.Persistencef(err, "failed to count subscriptions")
	}

	q = q.Limit(req.Size).Offset(req.From)
	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	} else {
		q = q.Order("id desc")
	}

	var rows []*models.Subscription
	if err := q.Find(&rows).Error; err != nil {
		return nil, apperr.Persistencef(err, "failed to list subscriptions")
	}
	return &ListResponse{Items: rows, Total: total}, nil
}
