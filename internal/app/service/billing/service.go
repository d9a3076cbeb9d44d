package billing

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/santrihub/sppbilling/internal/app/service/notification"
	"github.com/santrihub/sppbilling/internal/app/service/subscription"
	"github.com/santrihub/sppbilling/internal/models"
	"github.com/santrihub/sppbilling/internal/platform/gateway"
	"github.com/santrihub/sppbilling/pkg/apperr"
	cfgpkg "github.com/santrihub/sppbilling/pkg/config"
	"github.com/santrihub/sppbilling/pkg/logctx"
	"github.com/santrihub/sppbilling/pkg/metrics"
	"github.com/santrihub/sppbilling/pkg/tool"
	"github.com/santrihub/sppbilling/pkg/types"
)

// Service generates and advances billing obligations for subscriptions.
type Service struct {
	cfg   *cfgpkg.Config
	db    *gorm.DB
	log   *zap.SugaredLogger
	gw    gateway.Gateway
	notif *notification.Service
}

func NewService(cfg *cfgpkg.Config, db *gorm.DB, log *zap.SugaredLogger, gw gateway.Gateway, notif *notification.Service) *Service {
	return &Service{cfg: cfg, db: db, log: log, gw: gw, notif: notif}
}

// DueBillingSummary reports one ProcessDueBillings run.
type DueBillingSummary struct {
	Scanned int `json:"scanned"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// ProcessDueBillings creates one billing record per active subscription whose
// next billing date has arrived, advancing the date by one cycle in the same
// transaction. Re-running immediately creates nothing: the date has already
// advanced, and the (subscription, billing_date) unique index backs up the
// check against concurrent runs.
func (s *Service) ProcessDueBillings(ctx context.Context) (*DueBillingSummary, error) {
	now := time.Now()
	batch := s.cfg.Billing.BatchSize
	if batch <= 0 {
		batch = 200
	}

	var subs []*models.Subscription
	if err := s.db.WithContext(ctx).
		Where("status = ? AND next_billing_date <= ?", types.SubscriptionStatusActive, now).
		Order("next_billing_date asc").
		Limit(batch).
		Find(&subs).Error; err != nil {
		return nil, apperr.Persistencef(err, "failed to select due subscriptions")
	}

	lg := logctx.FromCtx(ctx, s.log)
	summary := &DueBillingSummary{Scanned: len(subs)}
	for _, sub := range subs {
		created, err := s.generateForSubscription(ctx, sub)
		switch {
		case err != nil:
			summary.Errors++
			lg.Errorw("due_billing_failed", "subscription_id", sub.ID, "err", err)
		case created:
			summary.Created++
			metrics.BillingRecordsCreated.Inc()
		default:
			summary.Skipped++
		}
	}
	lg.Infow("due_billings_processed",
		"scanned", summary.Scanned, "created", summary.Created,
		"skipped", summary.Skipped, "errors", summary.Errors)
	return summary, nil
}

// generateForSubscription atomically pairs the record insert with the
// next-billing-date advance. Both happen or neither does.
func (s *Service) generateForSubscription(ctx context.Context, sub *models.Subscription) (bool, error) {
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := &models.BillingRecord{
			ID:             tool.GenerateUUIDV7(),
			SubscriptionID: sub.ID,
			StudentID:      sub.StudentID,
			BillingDate:    sub.NextBillingDate,
			DueDate:        sub.NextBillingDate.AddDate(0, 0, s.graceDays()),
			Amount:         sub.Amount,
			Status:         types.BillingStatusPending,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
		if res.Error != nil {
			return apperr.Persistencef(res.Error, "failed to create billing record")
		}
		if res.RowsAffected == 0 {
			// a concurrent run already claimed this period
			return nil
		}

		next := subscription.NextFrom(sub.NextBillingDate, sub.BillingCycle)
		adv := tx.Model(&models.Subscription{}).
			Where("id = ? AND status = ? AND next_billing_date = ?",
				sub.ID, types.SubscriptionStatusActive, sub.NextBillingDate).
			Update("next_billing_date", next)
		if adv.Error != nil {
			return apperr.Persistencef(adv.Error, "failed to advance next billing date")
		}
		if adv.RowsAffected == 0 {
			// subscription changed under us; roll the record back too
			return apperr.Conflictf("subscription %s moved during billing generation", sub.ID)
		}
		created = true
		return nil
	})
	return created, err
}

func (s *Service) graceDays() int {
	if s.cfg.Billing.GraceDays > 0 {
		return s.cfg.Billing.GraceDays
	}
	return 7
}

func (s *Service) maxRetries() int {
	if s.cfg.Billing.MaxRetries > 0 {
		return s.cfg.Billing.MaxRetries
	}
	return 3
}

func (s *Service) Get(ctx context.Context, id string) (*models.BillingRecord, error) {
	var rec models.BillingRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("billing record not found: %s", id)
		}
		return nil, apperr.Persistencef(err, "failed to load billing record")
	}
	return &rec, nil
}

type ListRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ListResponse struct {
	Items []*models.BillingRecord `json:"items"`
	Total int64                   `json:"total"`
}

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

	q := s.db.WithContext(ctx).Model(&models.BillingRecord{})
	if len(req.Filters) > 0 {
		exprs := make([]clause.Expression, 0, len(req.Filters))
		for _, f := range req.Filters {
			exprs = append(exprs, f)
		}
		q = q.Where(clause.Where{Exprs: []clause.Expression{clause.And(exprs...)}})
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperr.Persistencef(err, "failed to count billing records")
	}

	q = q.Limit(req.Size).Offset(req.From)
	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	} else {
		q = q.Order("id desc")
	}

	var rows []*models.BillingRecord
	if err := q.Find(&rows).Error; err != nil {
		return nil, apperr.Persistencef(err, "failed to list billing records")
	}
	return &ListResponse{Items: rows, Total: total}, nil
}
