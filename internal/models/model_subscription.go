package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/santrihub/sppbilling/pkg/types"
)

// SubscriptionExtra stores auxiliary JSON state for a subscription.
type SubscriptionExtra struct {
	// StatusBeforePause remembers trial/active so Resume can restore it.
	StatusBeforePause types.SubscriptionStatus `json:"status_before_pause,omitempty"`
	PauseReason       string                   `json:"pause_reason,omitempty"`
	CancelReason      string                   `json:"cancel_reason,omitempty"`
}

// Subscription is a recurring tuition obligation of one student on one plan.
type Subscription struct {
	ID        string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	StudentID string `gorm:"column:student_id;type:varchar(64);not null;index:idx_student_plan,priority:1" json:"student_id"`
	PlanID    string `gorm:"column:plan_id;type:varchar(64);not null;index:idx_student_plan,priority:2" json:"plan_id"`
	PlanName  string `gorm:"column:plan_name;type:varchar(128)" json:"plan_name"`

	BillingCycle types.BillingCycle       `gorm:"column:billing_cycle;type:varchar(32);not null" json:"billing_cycle"`
	Status       types.SubscriptionStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`

	StartDate   time.Time  `gorm:"column:start_date;not null" json:"start_date"`
	TrialEndsAt *time.Time `gorm:"column:trial_ends_at;default:null" json:"trial_ends_at"`
	// NextBillingDate is the end of the most recently generated billing period.
	// It only ever moves forward.
	NextBillingDate time.Time  `gorm:"column:next_billing_date;not null;index" json:"next_billing_date"`
	EndDate         *time.Time `gorm:"column:end_date;default:null" json:"end_date"`

	// Amount is the per-cycle charge in rupiah.
	Amount      int64 `gorm:"column:amount;type:bigint;not null" json:"amount"`
	AutoRenewal bool  `gorm:"column:auto_renewal;not null;default:true" json:"auto_renewal"`

	PausedAt    *time.Time `gorm:"column:paused_at;default:null" json:"paused_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at;default:null" json:"cancelled_at"`

	Extra     datatypes.JSONType[*SubscriptionExtra] `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt time.Time                              `json:"created_at"`
	UpdatedAt time.Time                              `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscription"
}

// Open reports whether the subscription still occupies the (student, plan)
// slot; a new subscription for the pair conflicts while one is open.
func (s *Subscription) Open() bool {
	if s == nil {
		return false
	}
	switch s.Status {
	case types.SubscriptionStatusTrial, types.SubscriptionStatusActive, types.SubscriptionStatusPaused:
		return true
	}
	return false
}

func (s *Subscription) Terminal() bool {
	if s == nil {
		return true
	}
	return s.Status == types.SubscriptionStatusCancelled || s.Status == types.SubscriptionStatusExpired
}
