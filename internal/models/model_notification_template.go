package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/santrihub/sppbilling/pkg/types"
)

// NotificationTemplate is an admin-managed reusable message with {variable}
// placeholders in title and body.
type NotificationTemplate struct {
	ID    string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Name  string `gorm:"column:name;type:varchar(128);not null;uniqueIndex" json:"name"`
	Title string `gorm:"column:title;type:varchar(256);not null" json:"title"`
	Body  string `gorm:"column:body;type:text;not null" json:"body"`

	Category types.NotificationCategory             `gorm:"column:category;type:varchar(32);not null" json:"category"`
	Channels datatypes.JSONSlice[types.Channel]     `gorm:"column:channels;type:jsonb;not null" json:"channels"`
	// Variables declares the placeholder names a render call must supply.
	Variables datatypes.JSONSlice[string] `gorm:"column:variables;type:jsonb;default:'[]'" json:"variables"`

	IsActive  bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedBy string    `gorm:"column:created_by;type:varchar(64)" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (NotificationTemplate) TableName() string {
	return "notification_template"
}

// AllowsChannel reports whether ch is in the template's allowed channel list.
func (t *NotificationTemplate) AllowsChannel(ch types.Channel) bool {
	for _, c := range t.Channels {
		if c == ch {
			return true
		}
	}
	return false
}
