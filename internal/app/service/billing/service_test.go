package billing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/santrihub/sppbilling/internal/app/service/notification"
	"github.com/santrihub/sppbilling/internal/app/service/template"
	"github.com/santrihub/sppbilling/internal/models"
	"github.com/santrihub/sppbilling/internal/platform/channels"
	"github.com/santrihub/sppbilling/internal/platform/gateway"
	"github.com/santrihub/sppbilling/pkg/apperr"
	cfgpkg "github.com/santrihub/sppbilling/pkg/config"
	"github.com/santrihub/sppbilling/pkg/tool"
	"github.com/santrihub/sppbilling/pkg/types"
)

type stubGateway struct {
	status    gateway.PaymentStatus
	createErr error
	calls     int
}

func (g *stubGateway) CreatePayment(_ context.Context, req *gateway.CreatePaymentRequest) (*gateway.PaymentSession, error) {
	g.calls++
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &gateway.PaymentSession{PaymentID: "pay-" + req.OrderID}, nil
}

func (g *stubGateway) GetStatus(_ context.Context, paymentID string) (gateway.PaymentStatus, error) {
	return g.status, nil
}

type stubAdapter struct {
	ch   types.Channel
	sent int
}

func (a *stubAdapter) Channel() types.Channel { return a.ch }

func (a *stubAdapter) SendMessage(context.Context, channels.Recipient, channels.Message) (string, error) {
	a.sent++
	return fmt.Sprintf("msg-%s-%d", a.ch, a.sent), nil
}

type fixture struct {
	svc *Service
	db  *gorm.DB
	gw  *stubGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", tool.GenerateUUIDV7())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Student{},
		&models.Subscription{},
		&models.BillingRecord{},
		&models.NotificationTemplate{},
		&models.Notification{},
		&models.NotificationChannelJob{},
	))

	cfg := &cfgpkg.Config{
		Billing: cfgpkg.BillingConfig{GraceDays: 7, MaxRetries: 3, RetryBackoff: time.Hour, BatchSize: 200},
		Trigger: cfgpkg.TriggerConfig{BulkConcurrency: 2},
	}
	log := zap.NewNop().Sugar()

	tmpl := template.NewService(db, log)
	require.NoError(t, template.SeedDefaults(tmpl))

	registry := channels.NewRegistry(cfg, log)
	for _, ch := range []types.Channel{types.ChannelEmail, types.ChannelWhatsApp, types.ChannelSMS} {
		registry.Replace(&stubAdapter{ch: ch})
	}
	notif := notification.NewService(cfg, db, log, tmpl, registry)

	gw := &stubGateway{status: gateway.PaymentStatusSettled}
	svc := NewService(cfg, db, log, gw, notif)

	require.NoError(t, db.Create(&models.Student{
		ID: "student-1", Name: "Ahmad", GuardianName: "Pak Budi",
		GuardianPhone: "+62811111111", GuardianEmail: "budi@example.com", Active: true,
	}).Error)

	return &fixture{svc: svc, db: db, gw: gw}
}

func (f *fixture) activeSubscription(t *testing.T, nextBilling time.Time) *models.Subscription {
	t.Helper()
	sub := &models.Subscription{
		ID: tool.GenerateUUIDV7(), StudentID: "student-1", PlanID: "spp-tahfizh",
		PlanName: "SPP Tahfizh", BillingCycle: types.BillingCycleMonthly,
		Status: types.SubscriptionStatusActive, StartDate: nextBilling.AddDate(0, -1, 0),
		NextBillingDate: nextBilling, Amount: 350000, AutoRenewal: true,
	}
	require.NoError(t, f.db.Create(sub).Error)
	return sub
}

func (f *fixture) pendingRecord(t *testing.T, sub *models.Subscription, due time.Time) *models.BillingRecord {
	t.Helper()
	rec := &models.BillingRecord{
		ID: tool.GenerateUUIDV7(), SubscriptionID: sub.ID, StudentID: sub.StudentID,
		BillingDate: due.AddDate(0, 0, -7), DueDate: due, Amount: sub.Amount,
		Status: types.BillingStatusPending,
	}
	require.NoError(t, f.db.Create(rec).Error)
	return rec
}

func (f *fixture) notificationCount(t *testing.T, category types.NotificationCategory) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Notification{}).Where("category = ?", category).Count(&n).Error)
	return n
}

func TestProcessDueBillings_CreatesOncePerPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	due := time.Now().Add(-time.Hour)
	sub := f.activeSubscription(t, due)

	summary, err := f.svc.ProcessDueBillings(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Scanned)
	require.Equal(t, 1, summary.Created)

	var rec models.BillingRecord
	require.NoError(t, f.db.Where("subscription_id = ?", sub.ID).First(&rec).Error)
	require.Equal(t, types.BillingStatusPending, rec.Status)
	require.EqualValues(t, sub.Amount, rec.Amount)

	// the date advance and the record are one atomic pair
	var reloaded models.Subscription
	require.NoError(t, f.db.Where("id = ?", sub.ID).First(&reloaded).Error)
	require.True(t, reloaded.NextBillingDate.After(time.Now()))

	// immediate re-run creates nothing
	summary, err = f.svc.ProcessDueBillings(ctx)
	require.NoError(t, err)
	require.Zero(t, summary.Created)

	var count int64
	require.NoError(t, f.db.Model(&models.BillingRecord{}).Where("subscription_id = ?", sub.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestProcessDueBillings_SkipsNonActive(t *testing.T) {
	f := newFixture(t)
	sub := f.activeSubscription(t, time.Now().Add(-time.Hour))
	require.NoError(t, f.db.Model(sub).Update("status", types.SubscriptionStatusPaused).Error)

	summary, err := f.svc.ProcessDueBillings(context.Background())
	require.NoError(t, err)
	require.Zero(t, summary.Scanned)
}

func TestProcessBilling_SettlesAndConfirmsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.activeSubscription(t, time.Now())
	rec := f.pendingRecord(t, sub, time.Now().AddDate(0, 0, 7))

	got, err := f.svc.ProcessBilling(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, types.BillingStatusPaid, got.Status)
	require.NotNil(t, got.PaidAt)
	require.NotNil(t, got.PaymentReference)

	require.EqualValues(t, 1, f.notificationCount(t, types.CategoryPayment))

	// processing a paid record is a no-op, not a second confirmation
	got, err = f.svc.ProcessBilling(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, types.BillingStatusPaid, got.Status)
	require.EqualValues(t, 1, f.notificationCount(t, types.CategoryPayment))
}

func TestMarkPaid_IdempotentSingleConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.activeSubscription(t, time.Now())
	rec := f.pendingRecord(t, sub, time.Now().AddDate(0, 0, 7))

	changed, err := f.svc.MarkPaid(ctx, rec.ID, "cash-001")
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = f.svc.MarkPaid(ctx, rec.ID, "cash-001")
	require.NoError(t, err)
	require.False(t, changed)

	require.EqualValues(t, 1, f.notificationCount(t, types.CategoryPayment))
}

func TestMarkPaid_CancelledRecordConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.activeSubscription(t, time.Now())
	rec := f.pendingRecord(t, sub, time.Now().AddDate(0, 0, 7))
	require.NoError(t, f.db.Model(rec).Update("status", types.BillingStatusCancelled).Error)

	_, err := f.svc.MarkPaid(ctx, rec.ID, "cash-001")
	require.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestMarkFailed_EscalatesPastDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.activeSubscription(t, time.Now())
	rec := f.pendingRecord(t, sub, time.Now().AddDate(0, 0, -1))

	got, err := f.svc.MarkFailed(ctx, rec.ID, "card declined")
	require.NoError(t, err)
	require.Equal(t, types.BillingStatusOverdue, got.Status)
	require.EqualValues(t, 1, f.notificationCount(t, types.CategoryPayment))

	// repeated failure report changes nothing
	got, err = f.svc.MarkFailed(ctx, rec.ID, "card declined again")
	require.NoError(t, err)
	require.Equal(t, types.BillingStatusOverdue, got.Status)
	require.EqualValues(t, 1, f.notificationCount(t, types.CategoryPayment))
}

func TestMarkFailed_RetriesBeforeDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.activeSubscription(t, time.Now())
	rec := f.pendingRecord(t, sub, time.Now().AddDate(0, 0, 7))

	got, err := f.svc.MarkFailed(ctx, rec.ID, "insufficient funds")
	require.NoError(t, err)
	require.Equal(t, types.BillingStatusFailed, got.Status)
	require.Equal(t, 1, got.RetryCount)
	require.NotNil(t, got.NextRetryAt)
	require.NotNil(t, got.LastError)
}

func TestApplyGatewayStatus_ReplayIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.activeSubscription(t, time.Now())
	rec := f.pendingRecord(t, sub, time.Now().AddDate(0, 0, 7))

	applied, err := f.svc.ApplyGatewayStatus(ctx, rec.ID, gateway.PaymentStatusSettled, "txn-1")
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = f.svc.ApplyGatewayStatus(ctx, rec.ID, gateway.PaymentStatusSettled, "txn-1")
	require.NoError(t, err)
	require.False(t, applied)

	require.EqualValues(t, 1, f.notificationCount(t, types.CategoryPayment))
}

func TestApplyGatewayStatus_UnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ApplyGatewayStatus(context.Background(), "missing", gateway.PaymentStatusSettled, "txn-1")
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestProcessBilling_GatewayErrorCountsRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.activeSubscription(t, time.Now())
	rec := f.pendingRecord(t, sub, time.Now().AddDate(0, 0, 7))
	f.gw.createErr = apperr.Gatewayf(nil, "gateway down")

	got, err := f.svc.ProcessBilling(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, types.BillingStatusFailed, got.Status)
	require.Equal(t, 1, got.RetryCount)
}
