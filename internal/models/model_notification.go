package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/santrihub/sppbilling/pkg/types"
)

// Notification is one rendered message for one recipient. Delivery happens
// through its channel jobs; IsRead is meaningful for the in_app channel only.
type Notification struct {
	ID         string  `gorm:"column:id;type:uuid;primary_key" json:"id"`
	TemplateID *string `gorm:"column:template_id;type:uuid;default:null" json:"template_id"`

	RecipientID string `gorm:"column:recipient_id;type:varchar(64);not null;index" json:"recipient_id"`
	Title       string `gorm:"column:title;type:varchar(256);not null" json:"title"`
	Message     string `gorm:"column:message;type:text;not null" json:"message"`

	Category types.NotificationCategory `gorm:"column:category;type:varchar(32);not null;index" json:"category"`
	Priority types.NotificationPriority `gorm:"column:priority;type:varchar(16);not null;default:'normal'" json:"priority"`

	IsRead      bool       `gorm:"column:is_read;not null;default:false" json:"is_read"`
	ReadAt      *time.Time `gorm:"column:read_at;default:null" json:"read_at"`
	ScheduledAt *time.Time `gorm:"column:scheduled_at;default:null" json:"scheduled_at"`

	CreatedBy string         `gorm:"column:created_by;type:varchar(64)" json:"created_by"`
	Extra     datatypes.JSON `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	Jobs []*NotificationChannelJob `gorm:"foreignKey:NotificationID" json:"jobs,omitempty"`
}

func (Notification) TableName() string {
	return "notification"
}

// NotificationChannelJob is one independently retryable delivery of a parent
// notification on a single channel.
type NotificationChannelJob struct {
	ID             string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	NotificationID string `gorm:"column:notification_id;type:uuid;not null;index" json:"notification_id"`

	Channel types.Channel        `gorm:"column:channel;type:varchar(32);not null" json:"channel"`
	Status  types.DeliveryStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`

	// ProviderMessageID keys asynchronous delivery callbacks.
	ProviderMessageID *string `gorm:"column:provider_message_id;type:varchar(128);default:null;index" json:"provider_message_id"`

	Attempts    int        `gorm:"column:attempts;not null;default:0" json:"attempts"`
	SentAt      *time.Time `gorm:"column:sent_at;default:null" json:"sent_at"`
	DeliveredAt *time.Time `gorm:"column:delivered_at;default:null" json:"delivered_at"`
	FailedAt    *time.Time `gorm:"column:failed_at;default:null" json:"failed_at"`
	LastError   *string    `gorm:"column:last_error;type:text;default:null" json:"last_error"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (NotificationChannelJob) TableName() string {
	return "notification_channel_job"
}
