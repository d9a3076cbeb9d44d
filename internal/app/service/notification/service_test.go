package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/santrihub/sppbilling/internal/app/service/template"
	"github.com/santrihub/sppbilling/internal/models"
	"github.com/santrihub/sppbilling/internal/platform/channels"
	"github.com/santrihub/sppbilling/pkg/apperr"
	cfgpkg "github.com/santrihub/sppbilling/pkg/config"
	"github.com/santrihub/sppbilling/pkg/tool"
	"github.com/santrihub/sppbilling/pkg/types"
)

type fakeAdapter struct {
	ch  types.Channel
	err error

	mu   sync.Mutex
	sent []string
}

func (a *fakeAdapter) Channel() types.Channel { return a.ch }

func (a *fakeAdapter) SendMessage(_ context.Context, to channels.Recipient, _ channels.Message) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, to.ID)
	return fmt.Sprintf("msg-%s-%d", a.ch, len(a.sent)), nil
}

func (a *fakeAdapter) sentCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sent)
}

func newTestService(t *testing.T) (*Service, *fakeAdapter, *fakeAdapter) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", tool.GenerateUUIDV7())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Student{},
		&models.NotificationTemplate{},
		&models.Notification{},
		&models.NotificationChannelJob{},
	))

	cfg := &cfgpkg.Config{Trigger: cfgpkg.TriggerConfig{BulkConcurrency: 2}}
	log := zap.NewNop().Sugar()

	tmpl := template.NewService(db, log)
	require.NoError(t, template.SeedDefaults(tmpl))

	email := &fakeAdapter{ch: types.ChannelEmail}
	wa := &fakeAdapter{ch: types.ChannelWhatsApp}
	registry := channels.NewRegistry(cfg, log)
	registry.Replace(email)
	registry.Replace(wa)

	return NewService(cfg, db, log, tmpl, registry), email, wa
}

func TestCreate_DeliversPerChannel(t *testing.T) {
	svc, email, _ := newTestService(t)

	n, err := svc.Create(context.Background(), &SendRequest{
		RecipientID: "student-1",
		Title:       "Pengumuman",
		Message:     "Libur besok",
		Channels:    []types.Channel{types.ChannelInApp, types.ChannelEmail},
		CreatedBy:   "admin",
	})
	require.NoError(t, err)
	require.Len(t, n.Jobs, 2)

	byChannel := make(map[types.Channel]*models.NotificationChannelJob)
	for _, job := range n.Jobs {
		byChannel[job.Channel] = job
	}
	// in_app is readable immediately, email goes through the adapter
	require.Equal(t, types.DeliveryStatusSent, byChannel[types.ChannelInApp].Status)
	require.Nil(t, byChannel[types.ChannelInApp].ProviderMessageID)
	require.Equal(t, types.DeliveryStatusSent, byChannel[types.ChannelEmail].Status)
	require.NotNil(t, byChannel[types.ChannelEmail].ProviderMessageID)
	require.Len(t, email.sent, 1)
}

func TestCreate_ChannelFailureIsIsolated(t *testing.T) {
	svc, email, wa := newTestService(t)
	email.err = errors.New("smtp unreachable")

	n, err := svc.Create(context.Background(), &SendRequest{
		RecipientID: "student-1",
		Title:       "Pengumuman",
		Message:     "Libur besok",
		Channels:    []types.Channel{types.ChannelEmail, types.ChannelWhatsApp},
		CreatedBy:   "admin",
	})
	require.NoError(t, err)

	byChannel := make(map[types.Channel]*models.NotificationChannelJob)
	for _, job := range n.Jobs {
		byChannel[job.Channel] = job
	}
	require.Equal(t, types.DeliveryStatusFailed, byChannel[types.ChannelEmail].Status)
	require.NotNil(t, byChannel[types.ChannelEmail].LastError)
	require.Equal(t, types.DeliveryStatusSent, byChannel[types.ChannelWhatsApp].Status)
	require.Len(t, wa.sent, 1)
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &SendRequest{Title: "t", Message: "m", Channels: []types.Channel{types.ChannelInApp}})
	require.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.Create(ctx, &SendRequest{RecipientID: "r", Title: "t", Message: "m"})
	require.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.Create(ctx, &SendRequest{RecipientID: "r", Title: "t", Message: "m", Channels: []types.Channel{"pigeon"}})
	require.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestSendFromTemplate_RendersAndRecordsTemplate(t *testing.T) {
	svc, _, _ := newTestService(t)

	n, err := svc.SendFromTemplate(context.Background(), template.NamePaymentDueReminder, "student-1", map[string]string{
		"guardian_name": "Pak Budi",
		"student_name":  "Ahmad",
		"plan_name":     "SPP Tahfizh",
		"amount":        "350000",
		"due_date":      "10-09-2026",
	}, "scheduler")
	require.NoError(t, err)
	require.NotNil(t, n.TemplateID)
	require.Equal(t, types.CategoryPayment, n.Category)
	require.Contains(t, n.Message, "Ahmad")
	require.Contains(t, n.Message, "350000")
}

func TestSendFromTemplate_MissingVariable(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.SendFromTemplate(context.Background(), template.NamePaymentDueReminder, "student-1", map[string]string{
		"guardian_name": "Pak Budi",
	}, "scheduler")
	require.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestMarkAsRead_Idempotent(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	n, err := svc.Create(ctx, &SendRequest{
		RecipientID: "student-1",
		Title:       "Pengumuman",
		Message:     "Libur besok",
		Channels:    []types.Channel{types.ChannelInApp},
		CreatedBy:   "admin",
	})
	require.NoError(t, err)

	require.NoError(t, svc.MarkAsRead(ctx, n.ID))
	require.NoError(t, svc.MarkAsRead(ctx, n.ID))

	got, err := svc.Get(ctx, n.ID)
	require.NoError(t, err)
	require.True(t, got.IsRead)
	require.NotNil(t, got.ReadAt)
	require.Equal(t, types.DeliveryStatusRead, got.Jobs[0].Status)

	require.True(t, apperr.IsKind(svc.MarkAsRead(ctx, "missing"), apperr.KindNotFound))
}

func TestApplyDeliveryCallback(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	n, err := svc.Create(ctx, &SendRequest{
		RecipientID: "student-1",
		Title:       "Pengumuman",
		Message:     "Libur besok",
		Channels:    []types.Channel{types.ChannelWhatsApp},
		CreatedBy:   "admin",
	})
	require.NoError(t, err)
	msgID := *n.Jobs[0].ProviderMessageID

	require.NoError(t, svc.ApplyDeliveryCallback(ctx, msgID, types.DeliveryStatusDelivered))

	got, err := svc.Get(ctx, n.ID)
	require.NoError(t, err)
	require.Equal(t, types.DeliveryStatusDelivered, got.Jobs[0].Status)
	require.NotNil(t, got.Jobs[0].DeliveredAt)

	err = svc.ApplyDeliveryCallback(ctx, "unknown-message", types.DeliveryStatusDelivered)
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))

	err = svc.ApplyDeliveryCallback(ctx, msgID, types.DeliveryStatusQueued)
	require.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestListByRecipient_UnreadFilter(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	var first *models.Notification
	for i := 0; i < 3; i++ {
		n, err := svc.Create(ctx, &SendRequest{
			RecipientID: "student-1",
			Title:       "Pengumuman",
			Message:     fmt.Sprintf("pesan %d", i),
			Channels:    []types.Channel{types.ChannelInApp},
			CreatedBy:   "admin",
		})
		require.NoError(t, err)
		if first == nil {
			first = n
		}
	}
	require.NoError(t, svc.MarkAsRead(ctx, first.ID))

	all, err := svc.ListByRecipient(ctx, "student-1", false, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	unread, err := svc.ListByRecipient(ctx, "student-1", true, 0)
	require.NoError(t, err)
	require.Len(t, unread, 2)
}

func TestSendBulk(t *testing.T) {
	svc, email, _ := newTestService(t)

	res, err := svc.SendBulk(context.Background(), &SendRequest{
		Title:     "Pengumuman",
		Message:   "Rapat wali santri",
		Channels:  []types.Channel{types.ChannelEmail},
		CreatedBy: "admin",
	}, []string{"student-1", "student-2", "student-3"})
	require.NoError(t, err)
	require.Equal(t, 3, res.Successful)
	require.Zero(t, res.Failed)
	require.Len(t, res.Details, 3)
	require.Equal(t, 3, email.sentCount())
}

func TestSendBulk_EmptyRecipients(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.SendBulk(context.Background(), &SendRequest{
		Title:    "Pengumuman",
		Message:  "Rapat",
		Channels: []types.Channel{types.ChannelEmail},
	}, nil)
	require.True(t, apperr.IsKind(err, apperr.KindValidation))
}
