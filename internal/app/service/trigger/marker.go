package trigger

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/santrihub/sppbilling/internal/models"
	"github.com/santrihub/sppbilling/pkg/apperr"
	"github.com/santrihub/sppbilling/pkg/logctx"
	"github.com/santrihub/sppbilling/pkg/tool"
	"github.com/santrihub/sppbilling/pkg/types"
)

// claimMarker inserts the sent marker for (entity, trigger, period). The
// insert races against concurrent runs on the unique index; only the caller
// that actually inserted gets true and may dispatch.
func (s *Service) claimMarker(ctx context.Context, entityID string, trigger types.TriggerType, period string) (bool, error) {
	m := &models.TriggerSentMarker{
		ID:          tool.GenerateUUIDV7(),
		EntityID:    entityID,
		TriggerType: trigger,
		Period:      period,
		SentAt:      time.Now(),
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m)
	if res.Error != nil {
		return false, apperr.Persistencef(res.Error, "failed to claim trigger marker")
	}
	return res.RowsAffected == 1, nil
}

// releaseMarker undoes a claim whose dispatch failed, so the next run retries.
func (s *Service) releaseMarker(ctx context.Context, entityID string, trigger types.TriggerType, period string) {
	err := s.db.WithContext(ctx).
		Where("entity_id = ? AND trigger_type = ? AND period = ?", entityID, trigger, period).
		Delete(&models.TriggerSentMarker{}).Error
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("failed to release trigger marker",
			"entity_id", entityID, "trigger", trigger, "period", period, "err", err)
	}
}
