package models

import (
	"time"

	"github.com/santrihub/sppbilling/pkg/types"
)

// TriggerSentMarker records that the notification for (entity, trigger,
// period) has been dispatched. The unique index is the idempotency guarantee:
// concurrent scheduler runs race on the insert, and only the winner sends.
type TriggerSentMarker struct {
	ID          string            `gorm:"column:id;type:uuid;primary_key" json:"id"`
	EntityID    string            `gorm:"column:entity_id;type:varchar(64);not null;uniqueIndex:uniq_trigger_sent,priority:1" json:"entity_id"`
	TriggerType types.TriggerType `gorm:"column:trigger_type;type:varchar(64);not null;uniqueIndex:uniq_trigger_sent,priority:2" json:"trigger_type"`
	// Period encodes the dedup window: a due date (2006-01-02), a month
	// (2006-01) or a year (2006) depending on the trigger.
	Period string    `gorm:"column:period;type:varchar(32);not null;uniqueIndex:uniq_trigger_sent,priority:3" json:"period"`
	SentAt time.Time `gorm:"column:sent_at;not null" json:"sent_at"`
}

func (TriggerSentMarker) TableName() string {
	return "trigger_sent_marker"
}
