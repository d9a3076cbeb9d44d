package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	billsvc "github.com/santrihub/sppbilling/internal/app/service/billing"
	notifsvc "github.com/santrihub/sppbilling/internal/app/service/notification"
	"github.com/santrihub/sppbilling/internal/app/service/template"
	"github.com/santrihub/sppbilling/internal/app/service/webhooklog"
	"github.com/santrihub/sppbilling/internal/models"
	"github.com/santrihub/sppbilling/internal/platform/channels"
	"github.com/santrihub/sppbilling/internal/platform/gateway"
	cfgpkg "github.com/santrihub/sppbilling/pkg/config"
	"github.com/santrihub/sppbilling/pkg/tool"
	"github.com/santrihub/sppbilling/pkg/types"
)

const testServerKey = "test-server-key"

type webhookFixture struct {
	router *gin.Engine
	db     *gorm.DB
}

type silentGateway struct{}

func (silentGateway) CreatePayment(_ context.Context, req *gateway.CreatePaymentRequest) (*gateway.PaymentSession, error) {
	return &gateway.PaymentSession{PaymentID: "pay-" + req.OrderID}, nil
}

func (silentGateway) GetStatus(context.Context, string) (gateway.PaymentStatus, error) {
	return gateway.PaymentStatusPending, nil
}

type sinkAdapter struct{ ch types.Channel }

func (a *sinkAdapter) Channel() types.Channel { return a.ch }

func (a *sinkAdapter) SendMessage(context.Context, channels.Recipient, channels.Message) (string, error) {
	return "msg-" + tool.GenerateUUIDV7(), nil
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

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
		&models.PaymentWebhookEvent{},
	))

	cfg := &cfgpkg.Config{
		Gateway: cfgpkg.GatewayConfig{ServerKey: testServerKey},
		Billing: cfgpkg.BillingConfig{GraceDays: 7, MaxRetries: 3, RetryBackoff: time.Hour, BatchSize: 200},
	}
	log := zap.NewNop().Sugar()

	tmpl := template.NewService(db, log)
	require.NoError(t, template.SeedDefaults(tmpl))
	registry := channels.NewRegistry(cfg, log)
	for _, ch := range []types.Channel{types.ChannelEmail, types.ChannelWhatsApp, types.ChannelSMS} {
		registry.Replace(&sinkAdapter{ch: ch})
	}
	notif := notifsvc.NewService(cfg, db, log, tmpl, registry)
	billing := billsvc.NewService(cfg, db, log, silentGateway{}, notif)
	events := webhooklog.New(db, log)

	r := gin.New()
	RegisterWebhookRoutes(r.Group("/webhooks"), billing, events, notif, cfg, log)
	return &webhookFixture{router: r, db: db}
}

func (f *webhookFixture) pendingRecord(t *testing.T, amount int64) *models.BillingRecord {
	t.Helper()
	require.NoError(t, f.db.Create(&models.Student{
		ID: "student-1", Name: "Ahmad", GuardianName: "Pak Budi", Active: true,
	}).Error)
	sub := &models.Subscription{
		ID: tool.GenerateUUIDV7(), StudentID: "student-1", PlanID: "spp-tahfizh",
		PlanName: "SPP Tahfizh", BillingCycle: types.BillingCycleMonthly,
		Status: types.SubscriptionStatusActive, StartDate: time.Now().AddDate(0, -1, 0),
		NextBillingDate: time.Now().AddDate(0, 1, 0), Amount: amount,
	}
	require.NoError(t, f.db.Create(sub).Error)
	rec := &models.BillingRecord{
		ID: tool.GenerateUUIDV7(), SubscriptionID: sub.ID, StudentID: "student-1",
		BillingDate: time.Now(), DueDate: time.Now().AddDate(0, 0, 7),
		Amount: amount, Status: types.BillingStatusPending,
	}
	require.NoError(t, f.db.Create(rec).Error)
	return rec
}

func (f *webhookFixture) post(t *testing.T, payload PaymentWebhookPayload) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestApiPaymentWebhook_SettlementMarksPaid(t *testing.T) {
	f := newWebhookFixture(t)
	rec := f.pendingRecord(t, 350000)

	payload := PaymentWebhookPayload{
		OrderID:           rec.ID,
		StatusCode:        "200",
		GrossAmount:       rec.Amount,
		TransactionStatus: string(gateway.PaymentStatusSettled),
		TransactionID:     "txn-1",
		SignatureKey:      gateway.Signature(rec.ID, "200", rec.Amount, testServerKey),
	}
	w := f.post(t, payload)
	require.Equal(t, http.StatusOK, w.Code)

	var reloaded models.BillingRecord
	require.NoError(t, f.db.Where("id = ?", rec.ID).First(&reloaded).Error)
	require.Equal(t, types.BillingStatusPaid, reloaded.Status)

	// a replayed delivery is accepted and changes nothing
	w = f.post(t, payload)
	require.Equal(t, http.StatusOK, w.Code)

	var notifications int64
	require.NoError(t, f.db.Model(&models.Notification{}).Count(&notifications).Error)
	require.EqualValues(t, 1, notifications)
}

func TestApiPaymentWebhook_BadSignatureAppliesNothing(t *testing.T) {
	f := newWebhookFixture(t)
	rec := f.pendingRecord(t, 350000)

	w := f.post(t, PaymentWebhookPayload{
		OrderID:           rec.ID,
		StatusCode:        "200",
		GrossAmount:       rec.Amount,
		TransactionStatus: string(gateway.PaymentStatusSettled),
		SignatureKey:      "forged",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var reloaded models.BillingRecord
	require.NoError(t, f.db.Where("id = ?", rec.ID).First(&reloaded).Error)
	require.Equal(t, types.BillingStatusPending, reloaded.Status)
}

func TestApiPaymentWebhook_UnknownOrder(t *testing.T) {
	f := newWebhookFixture(t)

	w := f.post(t, PaymentWebhookPayload{
		OrderID:           "missing",
		StatusCode:        "200",
		GrossAmount:       100,
		TransactionStatus: string(gateway.PaymentStatusSettled),
		SignatureKey:      gateway.Signature("missing", "200", 100, testServerKey),
	})
	require.Equal(t, http.StatusNotFound, w.Code)
}
