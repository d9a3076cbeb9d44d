package models

import (
	"time"

	"github.com/santrihub/sppbilling/pkg/types"
)

// BillingRecord is one generated charge of a subscription billing period.
//
// Allowed transitions: pending→paid, pending→failed, failed→pending (retry),
// pending/failed→overdue, pending/failed→cancelled (only while the parent
// subscription is being cancelled). paid/overdue/cancelled are terminal for
// everything except overdue→paid via late manual settlement.
type BillingRecord struct {
	ID             string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	SubscriptionID string `gorm:"column:subscription_id;type:uuid;not null;uniqueIndex:uniq_sub_billing_date,priority:1" json:"subscription_id"`
	StudentID      string `gorm:"column:student_id;type:varchar(64);not null;index" json:"student_id"`

	// BillingDate is the period start this record charges for. The unique
	// index with SubscriptionID is what makes due-billing runs re-entrant.
	BillingDate time.Time `gorm:"column:billing_date;not null;uniqueIndex:uniq_sub_billing_date,priority:2" json:"billing_date"`
	DueDate     time.Time `gorm:"column:due_date;not null;index" json:"due_date"`

	Amount int64               `gorm:"column:amount;type:bigint;not null" json:"amount"`
	Status types.BillingStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`

	PaidAt           *time.Time `gorm:"column:paid_at;default:null" json:"paid_at"`
	PaymentReference *string    `gorm:"column:payment_reference;type:varchar(128);default:null" json:"payment_reference"`
	RetryCount       int        `gorm:"column:retry_count;not null;default:0" json:"retry_count"`
	NextRetryAt      *time.Time `gorm:"column:next_retry_at;default:null" json:"next_retry_at"`
	LastError        *string    `gorm:"column:last_error;type:text;default:null" json:"last_error"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BillingRecord) TableName() string {
	return "billing_record"
}

// Settleable reports whether the record can still move to paid.
func (b *BillingRecord) Settleable() bool {
	if b == nil {
		return false
	}
	switch b.Status {
	case types.BillingStatusPending, types.BillingStatusFailed, types.BillingStatusOverdue:
		return true
	}
	return false
}
