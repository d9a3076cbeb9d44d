package types

// Channel is a delivery channel for a notification.
type Channel string

const (
	ChannelInApp    Channel = "in_app"
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelInApp, ChannelEmail, ChannelWhatsApp, ChannelSMS:
		return true
	}
	return false
}

// DeliveryStatus tracks one channel job of a notification.
type DeliveryStatus string

const (
	DeliveryStatusQueued    DeliveryStatus = "queued"
	DeliveryStatusSent      DeliveryStatus = "sent"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusRead      DeliveryStatus = "read"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

type NotificationCategory string

const (
	CategoryPayment    NotificationCategory = "payment"
	CategoryAttendance NotificationCategory = "attendance"
	CategoryHafalan    NotificationCategory = "hafalan"
	CategoryBirthday   NotificationCategory = "birthday"
	CategoryReport     NotificationCategory = "report"
	CategoryGeneral    NotificationCategory = "general"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

// TriggerType identifies one scheduled or event-driven trigger. It is part of
// the idempotency key of sent markers, so values must stay stable.
type TriggerType string

const (
	TriggerDueReminder      TriggerType = "due_reminder"
	TriggerOverdue          TriggerType = "overdue"
	TriggerBirthday         TriggerType = "birthday"
	TriggerMonthlyReport    TriggerType = "monthly_report"
	TriggerPaymentConfirmed TriggerType = "payment_confirmed"
	TriggerAttendanceAlert  TriggerType = "attendance_alert"
	TriggerHafalanMilestone TriggerType = "hafalan_milestone"
)
