package statistics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/santrihub/sppbilling/internal/models"
	"github.com/santrihub/sppbilling/pkg/apperr"
	"github.com/santrihub/sppbilling/pkg/tool"
	"github.com/santrihub/sppbilling/pkg/types"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", tool.GenerateUUIDV7())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Subscription{}, &models.BillingRecord{}))
	return New(db)
}

func seedRecord(t *testing.T, s *Service, studentID string, billingDate time.Time, amount int64, status types.BillingStatus) {
	t.Helper()
	require.NoError(t, s.db.Create(&models.BillingRecord{
		ID: tool.GenerateUUIDV7(), SubscriptionID: tool.GenerateUUIDV7(), StudentID: studentID,
		BillingDate: billingDate, DueDate: billingDate.AddDate(0, 0, 7),
		Amount: amount, Status: status,
	}).Error)
}

func TestMonthSummaryForStudent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	month := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	seedRecord(t, svc, "student-1", month.AddDate(0, 0, 2), 350000, types.BillingStatusPaid)
	seedRecord(t, svc, "student-1", month.AddDate(0, 0, 10), 150000, types.BillingStatusOverdue)
	// outside the month and for another student, both excluded
	seedRecord(t, svc, "student-1", month.AddDate(0, 1, 2), 350000, types.BillingStatusPending)
	seedRecord(t, svc, "student-2", month.AddDate(0, 0, 2), 999000, types.BillingStatusPaid)

	summary, err := svc.MonthSummaryForStudent(ctx, "student-1", month)
	require.NoError(t, err)
	require.Equal(t, "2026-07", summary.Month)
	require.EqualValues(t, 500000, summary.TotalBilled)
	require.EqualValues(t, 350000, summary.TotalPaid)
	require.EqualValues(t, 150000, summary.Outstanding)
	require.EqualValues(t, 2, summary.RecordCount)
}

func TestMonthSummaryForStudent_EmptyMonth(t *testing.T) {
	svc := newTestService(t)

	summary, err := svc.MonthSummaryForStudent(context.Background(), "student-1", time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Zero(t, summary.TotalBilled)
	require.Zero(t, summary.RecordCount)

	_, err = svc.MonthSummaryForStudent(context.Background(), "", time.Now())
	require.True(t, apperr.IsKind(err, apperr.KindValidation))
}
