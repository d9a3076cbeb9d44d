package template

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/santrihub/sppbilling/internal/models"
	"github.com/santrihub/sppbilling/pkg/apperr"
	"github.com/santrihub/sppbilling/pkg/tool"
	"github.com/santrihub/sppbilling/pkg/types"
)

// Trigger template names. The scheduler renders these; admins may edit the
// wording but the names are contract.
const (
	NamePaymentDueReminder  = "payment_due_reminder"
	NamePaymentOverdue      = "payment_overdue"
	NamePaymentConfirmation = "payment_confirmation"
	NameBirthdayGreeting    = "birthday_greeting"
	NameMonthlyReport       = "monthly_report"
	NameAttendanceAlert     = "attendance_alert"
	NameHafalanMilestone    = "hafalan_milestone"
)

func defaultTemplates() []*models.NotificationTemplate {
	allOutbound := []types.Channel{types.ChannelInApp, types.ChannelWhatsApp, types.ChannelEmail}
	return []*models.NotificationTemplate{
		{
			Name:      NamePaymentDueReminder,
			Title:     "Pengingat SPP {plan_name}",
			Body:      "Assalamu'alaikum {guardian_name}, tagihan SPP {plan_name} untuk {student_name} sebesar Rp{amount} jatuh tempo pada {due_date}. Mohon segera melakukan pembayaran.",
			Category:  types.CategoryPayment,
			Channels:  allOutbound,
			Variables: []string{"guardian_name", "student_name", "plan_name", "amount", "due_date"},
		},
		{
			Name:      NamePaymentOverdue,
			Title:     "Tagihan SPP Terlambat",
			Body:      "Assalamu'alaikum {guardian_name}, tagihan SPP {plan_name} untuk {student_name} sebesar Rp{amount} telah melewati jatuh tempo {due_date}. Mohon segera diselesaikan.",
			Category:  types.CategoryPayment,
			Channels:  allOutbound,
			Variables: []string{"guardian_name", "student_name", "plan_name", "amount", "due_date"},
		},
		{
			Name:      NamePaymentConfirmation,
			Title:     "Pembayaran SPP Diterima",
			Body:      "Jazakumullahu khairan {guardian_name}, pembayaran SPP {plan_name} untuk {student_name} sebesar Rp{amount} telah kami terima.",
			Category:  types.CategoryPayment,
			Channels:  allOutbound,
			Variables: []string{"guardian_name", "student_name", "plan_name", "amount"},
		},
		{
			Name:      NameBirthdayGreeting,
			Title:     "Barakallahu fii umrik, {student_name}!",
			Body:      "Segenap keluarga besar pesantren mengucapkan barakallahu fii umrik kepada {student_name}. Semoga menjadi hafizh yang berkah.",
			Category:  types.CategoryBirthday,
			Channels:  []types.Channel{types.ChannelInApp, types.ChannelWhatsApp},
			Variables: []string{"student_name"},
		},
		{
			Name:      NameMonthlyReport,
			Title:     "Laporan Bulanan {month}",
			Body:      "Laporan bulan {month} untuk {student_name}: tagihan Rp{billed_amount}, terbayar Rp{paid_amount}, tunggakan Rp{outstanding_amount}.",
			Category:  types.CategoryReport,
			Channels:  []types.Channel{types.ChannelInApp, types.ChannelEmail},
			Variables: []string{"month", "student_name", "billed_amount", "paid_amount", "outstanding_amount"},
		},
		{
			Name:      NameAttendanceAlert,
			Title:     "Ketidakhadiran {student_name}",
			Body:      "Assalamu'alaikum {guardian_name}, {student_name} tercatat tidak hadir di halaqah pada {date}.",
			Category:  types.CategoryAttendance,
			Channels:  allOutbound,
			Variables: []string{"guardian_name", "student_name", "date"},
		},
		{
			Name:      NameHafalanMilestone,
			Title:     "Alhamdulillah, capaian hafalan baru!",
			Body:      "{student_name} telah menyelesaikan hafalan {surah} (juz {juz}). Semoga Allah menjaga hafalannya.",
			Category:  types.CategoryHafalan,
			Channels:  allOutbound,
			Variables: []string{"student_name", "surah", "juz"},
		},
	}
}

// SeedDefaults inserts the trigger templates that are missing. Existing rows,
// including admin-edited ones, are left untouched.
func SeedDefaults(s *Service) error {
	ctx := context.Background()
	for _, tmpl := range defaultTemplates() {
		var existing models.NotificationTemplate
		err := s.db.WithContext(ctx).Where("name = ?", tmpl.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Persistencef(err, "failed to check template %s", tmpl.Name)
		}
		tmpl.ID = tool.GenerateUUIDV7()
		tmpl.IsActive = true
		tmpl.CreatedBy = "system"
		if err := s.db.WithContext(ctx).Create(tmpl).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return apperr.Persistencef(err, "failed to seed template %s", tmpl.Name)
		}
		s.log.Infow("template_seeded", "name", tmpl.Name)
	}
	return nil
}
