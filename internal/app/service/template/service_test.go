package template

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
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
	require.NoError(t, db.AutoMigrate(&models.NotificationTemplate{}))
	return NewService(db, zap.NewNop().Sugar())
}

func TestCreate_DuplicateNameConflicts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	req := &CreateTemplateRequest{
		Name:     "exam_schedule",
		Title:    "Jadwal Ujian",
		Body:     "Ujian tahfizh dimulai {date}.",
		Channels: []types.Channel{types.ChannelInApp},
	}

	_, err := svc.Create(ctx, req)
	require.NoError(t, err)

	_, err = svc.Create(ctx, req)
	require.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &CreateTemplateRequest{Name: "x", Title: "t", Body: "b"})
	require.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.Create(ctx, &CreateTemplateRequest{Name: "x", Title: "t", Body: "b", Channels: []types.Channel{"pigeon"}})
	require.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestRender(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, &CreateTemplateRequest{
		Name:      "exam_schedule",
		Title:     "Jadwal Ujian {student_name}",
		Body:      "Ujian tahfizh {student_name} dimulai {date}.",
		Channels:  []types.Channel{types.ChannelInApp},
		Variables: []string{"student_name", "date"},
	})
	require.NoError(t, err)

	rendered, err := svc.Render(ctx, "exam_schedule", map[string]string{
		"student_name": "Ahmad",
		"date":         "01-09-2026",
	})
	require.NoError(t, err)
	require.Equal(t, "Jadwal Ujian Ahmad", rendered.Title)
	require.Equal(t, "Ujian tahfizh Ahmad dimulai 01-09-2026.", rendered.Message)
	require.NotNil(t, rendered.Template)
}

func TestRender_MissingDeclaredVariableFails(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, &CreateTemplateRequest{
		Name:      "exam_schedule",
		Title:     "Jadwal Ujian",
		Body:      "Ujian dimulai {date}.",
		Channels:  []types.Channel{types.ChannelInApp},
		Variables: []string{"date"},
	})
	require.NoError(t, err)

	_, err = svc.Render(ctx, "exam_schedule", map[string]string{})
	require.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestRender_UndeclaredTokenLeftLiteral(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, &CreateTemplateRequest{
		Name:     "exam_schedule",
		Title:    "Jadwal Ujian",
		Body:     "Ujian dimulai {date}.",
		Channels: []types.Channel{types.ChannelInApp},
	})
	require.NoError(t, err)

	rendered, err := svc.Render(ctx, "exam_schedule", nil)
	require.NoError(t, err)
	require.Equal(t, "Ujian dimulai {date}.", rendered.Message)
}

func TestUpdate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	tmpl, err := svc.Create(ctx, &CreateTemplateRequest{
		Name:     "exam_schedule",
		Title:    "Jadwal Ujian",
		Body:     "Ujian dimulai besok.",
		Channels: []types.Channel{types.ChannelInApp},
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, tmpl.ID, &UpdateTemplateRequest{
		Body:     lo.ToPtr("Ujian dimulai lusa."),
		Channels: []types.Channel{types.ChannelInApp, types.ChannelWhatsApp},
	})
	require.NoError(t, err)
	require.Equal(t, "Ujian dimulai lusa.", updated.Body)
	require.Len(t, updated.Channels, 2)

	_, err = svc.Update(ctx, tmpl.ID, &UpdateTemplateRequest{Body: lo.ToPtr("  ")})
	require.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.Update(ctx, "missing", &UpdateTemplateRequest{})
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestDeactivate_StopsRenderResolution(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	tmpl, err := svc.Create(ctx, &CreateTemplateRequest{
		Name:     "exam_schedule",
		Title:    "Jadwal Ujian",
		Body:     "Ujian dimulai besok.",
		Channels: []types.Channel{types.ChannelInApp},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, tmpl.ID))
	require.True(t, apperr.IsKind(svc.Deactivate(ctx, "missing"), apperr.KindNotFound))

	_, err = svc.Render(ctx, "exam_schedule", nil)
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))

	active, err := svc.List(ctx, false)
	require.NoError(t, err)
	require.Empty(t, active)

	all, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestSeedDefaults_Idempotent(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, SeedDefaults(svc))
	require.NoError(t, SeedDefaults(svc))

	items, err := svc.List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, items, 7)
}
