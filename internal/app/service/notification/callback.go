package notification

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/santrihub/sppbilling/internal/models"
	"github.com/santrihub/sppbilling/pkg/apperr"
	"github.com/santrihub/sppbilling/pkg/logctx"
	"github.com/santrihub/sppbilling/pkg/types"
)

// MarkAsRead flips the in_app read flag. Calling it again on an already-read
// notification is a no-op.
func (s *Service) MarkAsRead(ctx context.Context, notificationID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n models.Notification
		if err := tx.Where("id = ?", notificationID).First(&n).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("notification not found: %s", notificationID)
			}
			return apperr.Persistencef(err, "failed to load notification")
		}
		if n.IsRead {
			return nil
		}
		now := time.Now()
		if err := tx.Model(&n).Updates(map[string]any{"is_read": true, "read_at": now}).Error; err != nil {
			return apperr.Persistencef(err, "failed to mark notification read")
		}
		// only the in_app job carries a read state
		if err := tx.Model(&models.NotificationChannelJob{}).
			Where("notification_id = ? AND channel = ?", notificationID, types.ChannelInApp).
			Updates(map[string]any{"status": types.DeliveryStatusRead}).Error; err != nil {
			return apperr.Persistencef(err, "failed to update in_app job")
		}
		return nil
	})
}

// ApplyDeliveryCallback updates one channel job from an asynchronous provider
// status callback keyed by provider message id.
func (s *Service) ApplyDeliveryCallback(ctx context.Context, providerMessageID string, status types.DeliveryStatus) error {
	if providerMessageID == "" {
		return apperr.Validationf("message id required")
	}
	switch status {
	case types.DeliveryStatusDelivered, types.DeliveryStatusRead, types.DeliveryStatusFailed:
	default:
		return apperr.Validationf("unsupported callback status: %s", status)
	}

	var job models.NotificationChannelJob
	if err := s.db.WithContext(ctx).Where("provider_message_id = ?", providerMessageID).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("no channel job for message id %s", providerMessageID)
		}
		return apperr.Persistencef(err, "failed to load channel job")
	}

	now := time.Now()
	updates := map[string]any{"status": status}
	switch status {
	case types.DeliveryStatusDelivered:
		updates["delivered_at"] = now
	case types.DeliveryStatusFailed:
		updates["failed_at"] = now
	}
	if err := s.db.WithContext(ctx).Model(&job).Updates(updates).Error; err != nil {
		return apperr.Persistencef(err, "failed to apply delivery callback")
	}
	logctx.FromCtx(ctx, s.log).Infow("delivery_callback_applied",
		"message_id", providerMessageID, "channel", job.Channel, "status", status)
	return nil
}
