package webhooklog

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/santrihub/sppbilling/internal/models"
	"github.com/santrihub/sppbilling/pkg/logctx"
	"github.com/santrihub/sppbilling/pkg/tool"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Save asynchronously persists a gateway webhook event. Nil input is ignored.
// Logging must never slow down or fail the webhook response path.
func (s *Service) Save(ctx context.Context, event *models.PaymentWebhookEvent) {
	go func() {
		if event == nil {
			return
		}
		if event.ID == "" {
			event.ID = tool.GenerateUUIDV7()
		}
		if err := s.db.Save(event).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save webhook event: %v", err)
		}
	}()
}
