package statistics

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/santrihub/sppbilling/internal/models"
	"github.com/santrihub/sppbilling/pkg/apperr"
	"github.com/santrihub/sppbilling/pkg/types"
)

type StatisticType string

const (
	// Daily billing volumes
	StatisticTypeDailyBillingCount StatisticType = "daily_billing_count"
	StatisticTypeDailyBilledAmount StatisticType = "daily_billed_amount"
	StatisticTypeDailyPaidAmount   StatisticType = "daily_paid_amount"

	// Point-in-time counts
	StatisticTypeOpenSubscriptionCount StatisticType = "open_subscription_count"
	StatisticTypeOverdueCount          StatisticType = "overdue_count"

	// Collection rate per billing month
	StatisticTypeCollectionRate StatisticType = "collection_rate"
)

type BillingStatisticDataItem struct {
	ID StatisticType `json:"id"`
}

type BillingStatisticRequest struct {
	Filters   []*types.CommonFilter       `json:"filters"`
	DataItems []*BillingStatisticDataItem `json:"data_items"`
}

// Build composes the WHERE clause from the request filters.
func (f *BillingStatisticRequest) Build(builder clause.Builder) {
	if f == nil || len(f.Filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	for i, filter := range f.Filters {
		if i > 0 {
			builder.WriteString(" AND ")
		}
		filter.Build(builder)
	}
}

type BillingStatisticResponseDataItem struct {
	Date   string `json:"date"`
	Label  string `json:"label,omitempty"`
	Value  int64  `json:"value"`
	Value2 int64  `json:"value2,omitempty"`
}

type BillingStatisticResponse struct {
	DataItems map[StatisticType][]BillingStatisticResponseDataItem `json:"data_items"`
}

// Service aggregates billing and subscription figures for the admin dashboard
// and the monthly guardian reports.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) getDailyBillingCount(ctx context.Context, request *BillingStatisticRequest) ([]BillingStatisticResponseDataItem, error) {
	var results []BillingStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.BillingRecord{}).TableName()).
		Select("TO_CHAR(billing_date, 'YYYY-MM-DD') as date, count(*) as value").
		Where(clause.Where{Exprs: []clause.Expression{request}}).
		Group("TO_CHAR(billing_date, 'YYYY-MM-DD')").
		Order("date")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyBilledAmount(ctx context.Context, request *BillingStatisticRequest) ([]BillingStatisticResponseDataItem, error) {
	var results []BillingStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.BillingRecord{}).TableName()).
		Select("TO_CHAR(billing_date, 'YYYY-MM-DD') as date, sum(amount) as value").
		Where(clause.Where{Exprs: []clause.Expression{request}}).
		Group("TO_CHAR(billing_date, 'YYYY-MM-DD')").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyPaidAmount(ctx context.Context, request *BillingStatisticRequest) ([]BillingStatisticResponseDataItem, error) {
	var results []BillingStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.BillingRecord{}).TableName()).
		Select("TO_CHAR(paid_at, 'YYYY-MM-DD') as date, sum(amount) as value").
		Where("status = ? AND paid_at IS NOT NULL", types.BillingStatusPaid).
		Where(clause.Where{Exprs: []clause.Expression{request}}).
		Group("TO_CHAR(paid_at, 'YYYY-MM-DD')").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getOpenSubscriptionCount(ctx context.Context, request *BillingStatisticRequest) ([]BillingStatisticResponseDataItem, error) {
	var results []BillingStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.Subscription{}).TableName()).
		Select("count(*) as value").
		Where("status IN ?", []types.SubscriptionStatus{
			types.SubscriptionStatusTrial, types.SubscriptionStatusActive, types.SubscriptionStatusPaused,
		}).
		Where(clause.Where{Exprs: []clause.Expression{request}})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getOverdueCount(ctx context.Context, request *BillingStatisticRequest) ([]BillingStatisticResponseDataItem, error) {
	var results []BillingStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.BillingRecord{}).TableName()).
		Select("count(*) as value, COALESCE(sum(amount), 0) as value2").
		Where("status = ?", types.BillingStatusOverdue).
		Where(clause.Where{Exprs: []clause.Expression{request}})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getCollectionRate(ctx context.Context, _ *BillingStatisticRequest) ([]BillingStatisticResponseDataItem, error) {
	var results []BillingStatisticResponseDataItem
	err := s.db.WithContext(ctx).Raw(`
SELECT
  TO_CHAR(billing_date, 'YYYY-MM') as date,
  CASE WHEN SUM(amount) = 0 THEN 0
       ELSE CAST(ROUND(SUM(CASE WHEN status = 'paid' THEN amount ELSE 0 END) * 100.0 / SUM(amount), 2) * 100 AS INTEGER)
  END as value,
  SUM(amount) as value2
FROM billing_record
WHERE status != 'cancelled'
GROUP BY TO_CHAR(billing_date, 'YYYY-MM')
ORDER BY date DESC
`).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getBillingStatistic(ctx context.Context, request *BillingStatisticRequest, dataItem *BillingStatisticDataItem) ([]BillingStatisticResponseDataItem, error) {
	switch dataItem.ID {
	case StatisticTypeDailyBillingCount:
		return s.getDailyBillingCount(ctx, request)
	case StatisticTypeDailyBilledAmount:
		return s.getDailyBilledAmount(ctx, request)
	case StatisticTypeDailyPaidAmount:
		return s.getDailyPaidAmount(ctx, request)
	case StatisticTypeOpenSubscriptionCount:
		return s.getOpenSubscriptionCount(ctx, request)
	case StatisticTypeOverdueCount:
		return s.getOverdueCount(ctx, request)
	case StatisticTypeCollectionRate:
		return s.getCollectionRate(ctx, request)
	default:
		return nil, apperr.Validationf("invalid data item id: %s", dataItem.ID)
	}
}

// GetBillingStatistic resolves every requested data item concurrently.
func (s *Service) GetBillingStatistic(ctx context.Context, request *BillingStatisticRequest) (*BillingStatisticResponse, error) {
	if request == nil || len(request.DataItems) == 0 {
		return nil, apperr.Validationf("at least one data item required")
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(request.DataItems))
	resChan := make(chan *lo.Entry[StatisticType, []BillingStatisticResponseDataItem], len(request.DataItems))

	for _, item := range request.DataItems {
		wg.Add(1)
		go func(di *BillingStatisticDataItem) {
			defer wg.Done()
			res, err := s.getBillingStatistic(ctx, request, di)
			if err != nil {
				errChan <- err
				return
			}
			resChan <- &lo.Entry[StatisticType, []BillingStatisticResponseDataItem]{Key: di.ID, Value: res}
		}(item)
	}

	go func() { wg.Wait(); close(errChan); close(resChan) }()

	results := make(map[StatisticType][]BillingStatisticResponseDataItem)
	for i := 0; i < len(request.DataItems); i++ {
		select {
		case err := <-errChan:
			if err != nil {
				return nil, err
			}
		case entry := <-resChan:
			results[entry.Key] = entry.Value
		}
	}
	return &BillingStatisticResponse{DataItems: results}, nil
}

// StudentMonthlySummary is the per-student figure set behind the monthly
// guardian report.
type StudentMonthlySummary struct {
	StudentID   string `json:"student_id"`
	Month       string `json:"month"`
	TotalBilled int64  `json:"total_billed"`
	TotalPaid   int64  `json:"total_paid"`
	Outstanding int64  `json:"outstanding"`
	RecordCount int64  `json:"record_count"`
}

// MonthSummaryForStudent aggregates one student's billing records for the
// given month (period of the billing date).
func (s *Service) MonthSummaryForStudent(ctx context.Context, studentID string, month time.Time) (*StudentMonthlySummary, error) {
	if studentID == "" {
		return nil, apperr.Validationf("student id required")
	}
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	end := start.AddDate(0, 1, 0)

	summary := &StudentMonthlySummary{StudentID: studentID, Month: start.Format("2006-01")}
	row := s.db.WithContext(ctx).Table((models.BillingRecord{}).TableName()).
		Select(
			"COALESCE(SUM(amount), 0) as total_billed, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN amount ELSE 0 END), 0) as total_paid, "+
				"COALESCE(SUM(CASE WHEN status IN ? THEN amount ELSE 0 END), 0) as outstanding, "+
				"COUNT(*) as record_count",
			types.BillingStatusPaid,
			[]types.BillingStatus{types.BillingStatusPending, types.BillingStatusFailed, types.BillingStatusOverdue},
		).
		Where("student_id = ? AND billing_date >= ? AND billing_date < ?", studentID, start, end).
		Scan(summary)
	if row.Error != nil {
		return nil, apperr.Persistencef(row.Error, "failed to build monthly summary")
	}
	return summary, nil
}
