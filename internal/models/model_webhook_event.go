package models

import (
	"time"

	"gorm.io/datatypes"
)

type WebhookEventStatus string

const (
	WebhookEventStatusReceived     WebhookEventStatus = "received"
	WebhookEventStatusHandled      WebhookEventStatus = "handled"
	WebhookEventStatusHandleFailed WebhookEventStatus = "handle_failed"
)

// PaymentWebhookEvent logs every inbound gateway callback, valid or not.
// Replays show up as additional rows whose processing was a no-op.
type PaymentWebhookEvent struct {
	ID                string             `gorm:"column:id;type:uuid;primary_key" json:"id"`
	OrderID           string             `gorm:"column:order_id;type:varchar(128);not null;index" json:"order_id"`
	TransactionStatus string             `gorm:"column:transaction_status;type:varchar(64);not null" json:"transaction_status"`
	TraceID           string             `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	SignatureValid    bool               `gorm:"column:signature_valid;not null" json:"signature_valid"`
	Data              datatypes.JSON     `gorm:"column:data;type:jsonb" json:"data"`
	Result            *datatypes.JSON    `gorm:"column:result;type:jsonb" json:"result"`
	Status            WebhookEventStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

func (PaymentWebhookEvent) TableName() string {
	return "payment_webhook_event"
}
