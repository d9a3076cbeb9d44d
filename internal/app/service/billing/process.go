package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/santrihub/sppbilling/internal/app/service/notification"
	"github.com/santrihub/sppbilling/internal/app/service/template"
	"github.com/santrihub/sppbilling/internal/models"
	"github.com/santrihub/sppbilling/internal/platform/gateway"
	"github.com/santrihub/sppbilling/pkg/apperr"
	"github.com/santrihub/sppbilling/pkg/logctx"
	"github.com/santrihub/sppbilling/pkg/metrics"
	"github.com/santrihub/sppbilling/pkg/types"
)

// ProcessBilling pushes one record through the payment gateway. A settled
// payment moves the record to paid and dispatches the confirmation exactly
// once; a gateway failure counts a retry and escalates to overdue after the
// cap or once the due date has passed.
func (s *Service) ProcessBilling(ctx context.Context, billingID string) (*models.BillingRecord, error) {
	rec, err := s.Get(ctx, billingID)
	if err != nil {
		return nil, err
	}
	if rec.Status == types.BillingStatusPaid {
		return rec, nil
	}
	if rec.Status != types.BillingStatusPending && rec.Status != types.BillingStatusFailed {
		return nil, apperr.Conflictf("billing record %s is %s and cannot be processed", billingID, rec.Status)
	}

	vars := s.TemplateVars(ctx, rec)
	session, err := s.gw.CreatePayment(ctx, &gateway.CreatePaymentRequest{
		OrderID:     rec.ID,
		GrossAmount: rec.Amount,
		Description: fmt.Sprintf("SPP %s %s", vars["plan_name"], rec.BillingDate.Format("2006-01")),
		PayerName:   vars["guardian_name"],
	})
	if err != nil {
		metrics.BillingProcessed.WithLabelValues("gateway_error").Inc()
		return s.recordFailure(ctx, rec, err)
	}

	status, err := s.gw.GetStatus(ctx, session.PaymentID)
	if err != nil {
		metrics.BillingProcessed.WithLabelValues("gateway_error").Inc()
		return s.recordFailure(ctx, rec, err)
	}

	if status.Settled() {
		if _, err := s.MarkPaid(ctx, rec.ID, session.PaymentID); err != nil {
			return nil, err
		}
		metrics.BillingProcessed.WithLabelValues("paid").Inc()
		return s.Get(ctx, rec.ID)
	}

	// payment session open; keep the record pending with the reference
	if err := s.db.WithContext(ctx).Model(rec).
		Update("payment_reference", session.PaymentID).Error; err != nil {
		return nil, apperr.Persistencef(err, "failed to store payment reference")
	}
	rec.PaymentReference = &session.PaymentID
	metrics.BillingProcessed.WithLabelValues("session_open").Inc()
	return rec, nil
}

// MarkPaid settles a record. The guarded update is the idempotency barrier:
// the confirmation notification rides only on the row that actually
// transitioned, so a second call on an already-paid record dispatches nothing.
func (s *Service) MarkPaid(ctx context.Context, billingID, paymentRef string) (bool, error) {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.BillingRecord{}).
		Where("id = ? AND status IN ?", billingID,
			[]types.BillingStatus{types.BillingStatusPending, types.BillingStatusFailed, types.BillingStatusOverdue}).
		Updates(map[string]any{
			"status":            types.BillingStatusPaid,
			"paid_at":           now,
			"payment_reference": paymentRef,
			"last_error":        nil,
		})
	if res.Error != nil {
		return false, apperr.Persistencef(res.Error, "failed to mark billing paid")
	}
	if res.RowsAffected == 0 {
		rec, err := s.Get(ctx, billingID)
		if err != nil {
			return false, err
		}
		if rec.Status == types.BillingStatusPaid {
			// already settled; nothing to do, nothing to send
			return false, nil
		}
		return false, apperr.Conflictf("billing record %s is %s and cannot be paid", billingID, rec.Status)
	}

	logctx.FromCtx(ctx, s.log).Infow("billing_paid", "billing_id", billingID, "payment_reference", paymentRef)
	rec, err := s.Get(ctx, billingID)
	if err != nil {
		return true, nil
	}
	s.dispatchConfirmation(ctx, rec)
	return true, nil
}

// MarkFailed records a failed payment attempt. Already-failed and terminal
// records are left alone; exhausting the retry budget or passing the due date
// escalates to overdue.
func (s *Service) MarkFailed(ctx context.Context, billingID, reason string) (*models.BillingRecord, error) {
	rec, err := s.Get(ctx, billingID)
	if err != nil {
		return nil, err
	}
	switch rec.Status {
	case types.BillingStatusPending:
		return s.recordFailure(ctx, rec, errors.New(reason))
	case types.BillingStatusFailed, types.BillingStatusOverdue:
		// repeat call, keep state
		return rec, nil
	default:
		return nil, apperr.Conflictf("billing record %s is %s and cannot fail", billingID, rec.Status)
	}
}

// recordFailure applies one failure to the record: pending→failed with a
// retry slot, or escalation to overdue when the budget is spent.
func (s *Service) recordFailure(ctx context.Context, rec *models.BillingRecord, cause error) (*models.BillingRecord, error) {
	now := time.Now()
	retries := rec.RetryCount + 1

	if retries >= s.maxRetries() || now.After(rec.DueDate) {
		if _, err := s.EscalateOverdue(ctx, rec, cause); err != nil {
			return nil, err
		}
		return s.Get(ctx, rec.ID)
	}

	backoff := s.cfg.Billing.RetryBackoff
	if backoff <= 0 {
		backoff = time.Hour
	}
	nextRetry := now.Add(backoff * time.Duration(retries))
	res := s.db.WithContext(ctx).Model(&models.BillingRecord{}).
		Where("id = ? AND status IN ?", rec.ID,
			[]types.BillingStatus{types.BillingStatusPending, types.BillingStatusFailed}).
		Updates(map[string]any{
			"status":        types.BillingStatusFailed,
			"retry_count":   retries,
			"next_retry_at": nextRetry,
			"last_error":    cause.Error(),
		})
	if res.Error != nil {
		return nil, apperr.Persistencef(res.Error, "failed to record billing failure")
	}
	logctx.FromCtx(ctx, s.log).Warnw("billing_failed",
		"billing_id", rec.ID, "retry", retries, "next_retry_at", nextRetry, "cause", cause)
	return s.Get(ctx, rec.ID)
}

// EscalateOverdue moves a still-open record to overdue and dispatches the
// overdue notice. The guarded update makes the notice single-shot; false
// means another path escalated (or settled) first.
func (s *Service) EscalateOverdue(ctx context.Context, rec *models.BillingRecord, cause error) (bool, error) {
	updates := map[string]any{"status": types.BillingStatusOverdue}
	if cause != nil {
		updates["last_error"] = cause.Error()
	}
	res := s.db.WithContext(ctx).Model(&models.BillingRecord{}).
		Where("id = ? AND status IN ?", rec.ID,
			[]types.BillingStatus{types.BillingStatusPending, types.BillingStatusFailed}).
		Updates(updates)
	if res.Error != nil {
		return false, apperr.Persistencef(res.Error, "failed to escalate billing record")
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	logctx.FromCtx(ctx, s.log).Warnw("billing_overdue", "billing_id", rec.ID)
	metrics.BillingProcessed.WithLabelValues("overdue").Inc()
	notification.SideEffect(ctx, s.log, "payment_overdue", func() error {
		vars := s.TemplateVars(ctx, rec)
		_, err := s.notif.SendFromTemplate(ctx, template.NamePaymentOverdue, rec.StudentID, vars, "system")
		return err
	})
	return true, nil
}

// ApplyGatewayStatus applies a verified webhook status change. Replays are
// no-ops because every transition is guarded by the current status.
func (s *Service) ApplyGatewayStatus(ctx context.Context, orderID string, status gateway.PaymentStatus, paymentRef string) (bool, error) {
	rec, err := s.Get(ctx, orderID)
	if err != nil {
		return false, err
	}

	switch {
	case status.Settled():
		return s.MarkPaid(ctx, rec.ID, paymentRef)
	case status == gateway.PaymentStatusExpired, status == gateway.PaymentStatusDenied, status == gateway.PaymentStatusCancel:
		if rec.Status != types.BillingStatusPending && rec.Status != types.BillingStatusFailed {
			return false, nil
		}
		if _, err := s.recordFailure(ctx, rec, fmt.Errorf("gateway status %s", status)); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, nil
	}
}

// dispatchConfirmation sends the payment confirmation through the side-effect
// boundary; a send failure never unwinds the paid transition.
func (s *Service) dispatchConfirmation(ctx context.Context, rec *models.BillingRecord) {
	notification.SideEffect(ctx, s.log, "payment_confirmation", func() error {
		vars := s.TemplateVars(ctx, rec)
		_, err := s.notif.SendFromTemplate(ctx, template.NamePaymentConfirmation, rec.StudentID, vars, "system")
		return err
	})
}

// TemplateVars collects the template variables for a billing record's
// notifications. Lookups are best effort; absent names degrade to ids.
func (s *Service) TemplateVars(ctx context.Context, rec *models.BillingRecord) map[string]string {
	vars := map[string]string{
		"amount":        strconv.FormatInt(rec.Amount, 10),
		"due_date":      rec.DueDate.Format("02-01-2006"),
		"student_name":  rec.StudentID,
		"plan_name":     "",
		"guardian_name": "Wali Santri",
	}

	var sub models.Subscription
	if err := s.db.WithContext(ctx).Where("id = ?", rec.SubscriptionID).First(&sub).Error; err == nil {
		vars["plan_name"] = sub.PlanName
	}
	var student models.Student
	if err := s.db.WithContext(ctx).Where("id = ?", rec.StudentID).First(&student).Error; err == nil {
		vars["student_name"] = student.Name
		if student.GuardianName != "" {
			vars["guardian_name"] = student.GuardianName
		}
	}
	return vars
}
