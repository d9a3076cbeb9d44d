package trigger

import (
	"context"
	"strconv"
	"time"

	"github.com/santrihub/sppbilling/internal/app/service/template"
	"github.com/santrihub/sppbilling/internal/models"
	"github.com/santrihub/sppbilling/pkg/apperr"
	"github.com/santrihub/sppbilling/pkg/logctx"
	"github.com/santrihub/sppbilling/pkg/types"
)

// CheckPaymentDueReminders reminds guardians about open billing records whose
// due date falls within the lookahead window. The marker period is the due
// date, so one record gets at most one reminder per due date.
func (s *Service) CheckPaymentDueReminders(ctx context.Context, now time.Time) (*TriggerResult, error) {
	res := &TriggerResult{Trigger: types.TriggerDueReminder}
	lookahead := s.cfg.Trigger.DueLookaheadDays
	if lookahead <= 0 {
		lookahead = 3
	}
	horizon := now.AddDate(0, 0, lookahead)

	var records []*models.BillingRecord
	err := s.db.WithContext(ctx).
		Where("status IN ? AND due_date > ? AND due_date <= ?",
			[]types.BillingStatus{types.BillingStatusPending, types.BillingStatusFailed}, now, horizon).
		Order("due_date asc").
		Find(&records).Error
	if err != nil {
		return res, apperr.Persistencef(err, "failed to select due billing records")
	}

	res.Checked = len(records)
	for _, rec := range records {
		period := rec.DueDate.Format(time.DateOnly)
		claimed, err := s.claimMarker(ctx, rec.ID, types.TriggerDueReminder, period)
		if err != nil {
			res.Errors++
			continue
		}
		if !claimed {
			res.Skipped++
			continue
		}

		vars := s.billing.TemplateVars(ctx, rec)
		if _, err := s.notif.SendFromTemplate(ctx, template.NamePaymentDueReminder, rec.StudentID, vars, "scheduler"); err != nil {
			s.releaseMarker(ctx, rec.ID, types.TriggerDueReminder, period)
			logctx.FromCtx(ctx, s.log).Warnw("due_reminder_failed", "billing_id", rec.ID, "err", err)
			res.Errors++
			continue
		}
		res.Sent++
	}
	return res, nil
}

// CheckPaymentOverdue escalates open records past their due date. The
// escalation itself sends the overdue notice through the billing processor,
// so records already escalated by a failed payment attempt are skipped by the
// status guard, not re-noticed.
func (s *Service) CheckPaymentOverdue(ctx context.Context, now time.Time) (*TriggerResult, error) {
	res := &TriggerResult{Trigger: types.TriggerOverdue}

	var records []*models.BillingRecord
	err := s.db.WithContext(ctx).
		Where("status IN ? AND due_date < ?",
			[]types.BillingStatus{types.BillingStatusPending, types.BillingStatusFailed}, now).
		Order("due_date asc").
		Find(&records).Error
	if err != nil {
		return res, apperr.Persistencef(err, "failed to select overdue billing records")
	}

	res.Checked = len(records)
	for _, rec := range records {
		period := rec.DueDate.Format(time.DateOnly)
		claimed, err := s.claimMarker(ctx, rec.ID, types.TriggerOverdue, period)
		if err != nil {
			res.Errors++
			continue
		}
		if !claimed {
			res.Skipped++
			continue
		}

		escalated, err := s.billing.EscalateOverdue(ctx, rec, nil)
		if err != nil {
			s.releaseMarker(ctx, rec.ID, types.TriggerOverdue, period)
			res.Errors++
			continue
		}
		if !escalated {
			// settled or escalated elsewhere between select and update
			res.Skipped++
			continue
		}
		res.Sent++
	}
	return res, nil
}

// CheckBirthdays greets every active student whose birthday is today. The
// marker period is the year, one greeting per student per year.
func (s *Service) CheckBirthdays(ctx context.Context, now time.Time) (*TriggerResult, error) {
	res := &TriggerResult{Trigger: types.TriggerBirthday}

	var candidates []*models.Student
	err := s.db.WithContext(ctx).
		Where("active = ? AND birth_date IS NOT NULL", true).
		Find(&candidates).Error
	if err != nil {
		return res, apperr.Persistencef(err, "failed to select birthday students")
	}

	// the roster is small; match month and day in process
	var students []*models.Student
	for _, st := range candidates {
		if st.BirthDate != nil && st.BirthDate.Month() == now.Month() && st.BirthDate.Day() == now.Day() {
			students = append(students, st)
		}
	}

	res.Checked = len(students)
	period := now.Format("2006")
	for _, st := range students {
		claimed, err := s.claimMarker(ctx, st.ID, types.TriggerBirthday, period)
		if err != nil {
			res.Errors++
			continue
		}
		if !claimed {
			res.Skipped++
			continue
		}

		vars := map[string]string{"student_name": st.Name}
		if _, err := s.notif.SendFromTemplate(ctx, template.NameBirthdayGreeting, st.ID, vars, "scheduler"); err != nil {
			s.releaseMarker(ctx, st.ID, types.TriggerBirthday, period)
			logctx.FromCtx(ctx, s.log).Warnw("birthday_greeting_failed", "student_id", st.ID, "err", err)
			res.Errors++
			continue
		}
		res.Sent++
	}
	return res, nil
}

// SendMonthlyReports sends every student with an open subscription a summary
// of the previous calendar month. The marker period is that month, so the
// trigger can run daily and only the first run of a month sends anything.
func (s *Service) SendMonthlyReports(ctx context.Context, now time.Time) (*TriggerResult, error) {
	res := &TriggerResult{Trigger: types.TriggerMonthlyReport}
	reportMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
	period := reportMonth.Format("2006-01")

	var studentIDs []string
	err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Distinct("student_id").
		Where("status IN ?", []types.SubscriptionStatus{
			types.SubscriptionStatusTrial, types.SubscriptionStatusActive, types.SubscriptionStatusPaused,
		}).
		Pluck("student_id", &studentIDs).Error
	if err != nil {
		return res, apperr.Persistencef(err, "failed to select report recipients")
	}

	res.Checked = len(studentIDs)
	for _, studentID := range studentIDs {
		claimed, err := s.claimMarker(ctx, studentID, types.TriggerMonthlyReport, period)
		if err != nil {
			res.Errors++
			continue
		}
		if !claimed {
			res.Skipped++
			continue
		}

		summary, err := s.stats.MonthSummaryForStudent(ctx, studentID, reportMonth)
		if err != nil {
			s.releaseMarker(ctx, studentID, types.TriggerMonthlyReport, period)
			res.Errors++
			continue
		}
		vars := map[string]string{
			"month":              period,
			"student_name":       s.studentName(ctx, studentID),
			"billed_amount":      strconv.FormatInt(summary.TotalBilled, 10),
			"paid_amount":        strconv.FormatInt(summary.TotalPaid, 10),
			"outstanding_amount": strconv.FormatInt(summary.Outstanding, 10),
		}
		if _, err := s.notif.SendFromTemplate(ctx, template.NameMonthlyReport, studentID, vars, "scheduler"); err != nil {
			s.releaseMarker(ctx, studentID, types.TriggerMonthlyReport, period)
			logctx.FromCtx(ctx, s.log).Warnw("monthly_report_failed", "student_id", studentID, "err", err)
			res.Errors++
			continue
		}
		res.Sent++
	}
	return res, nil
}

func (s *Service) studentName(ctx context.Context, studentID string) string {
	var st models.Student
	if err := s.db.WithContext(ctx).Where("id = ?", studentID).First(&st).Error; err != nil {
		return studentID
	}
	return st.Name
}
