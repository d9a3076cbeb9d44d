package trigger

import (
	"context"
	"strconv"
	"time"

	"github.com/santrihub/sppbilling/internal/app/service/template"
	"github.com/santrihub/sppbilling/internal/models"
	"github.com/santrihub/sppbilling/pkg/apperr"
	"github.com/santrihub/sppbilling/pkg/types"
)

// AttendanceAlertRequest reports one absence from the attendance system.
type AttendanceAlertRequest struct {
	StudentID string    `json:"student_id"`
	Date      time.Time `json:"date"`
}

// SendAttendanceAlert notifies the guardian about an absence. Repeated posts
// for the same student and date are deduplicated by the sent marker; the
// second caller gets created=false and no notification.
func (s *Service) SendAttendanceAlert(ctx context.Context, req *AttendanceAlertRequest) (*models.Notification, bool, error) {
	if req == nil || req.StudentID == "" {
		return nil, false, apperr.Validationf("student_id required")
	}
	date := req.Date
	if date.IsZero() {
		date = time.Now()
	}

	st, err := s.loadStudent(ctx, req.StudentID)
	if err != nil {
		return nil, false, err
	}

	period := date.Format(time.DateOnly)
	claimed, err := s.claimMarker(ctx, st.ID, types.TriggerAttendanceAlert, period)
	if err != nil {
		return nil, false, err
	}
	if !claimed {
		return nil, false, nil
	}

	vars := map[string]string{
		"guardian_name": guardianName(st),
		"student_name":  st.Name,
		"date":          period,
	}
	n, err := s.notif.SendFromTemplate(ctx, template.NameAttendanceAlert, st.ID, vars, "event")
	if err != nil {
		s.releaseMarker(ctx, st.ID, types.TriggerAttendanceAlert, period)
		return nil, false, err
	}
	return n, true, nil
}

// HafalanMilestoneRequest reports a completed memorization milestone.
type HafalanMilestoneRequest struct {
	StudentID string `json:"student_id"`
	Surah     string `json:"surah"`
	Juz       int    `json:"juz"`
}

// SendHafalanMilestone congratulates a student on a memorization milestone.
// The surah is the dedup period: completing the same surah twice sends once.
func (s *Service) SendHafalanMilestone(ctx context.Context, req *HafalanMilestoneRequest) (*models.Notification, bool, error) {
	if req == nil || req.StudentID == "" || req.Surah == "" {
		return nil, false, apperr.Validationf("student_id and surah required")
	}

	st, err := s.loadStudent(ctx, req.StudentID)
	if err != nil {
		return nil, false, err
	}

	claimed, err := s.claimMarker(ctx, st.ID, types.TriggerHafalanMilestone, req.Surah)
	if err != nil {
		return nil, false, err
	}
	if !claimed {
		return nil, false, nil
	}

	vars := map[string]string{
		"student_name": st.Name,
		"surah":        req.Surah,
		"juz":          strconv.Itoa(req.Juz),
	}
	n, err := s.notif.SendFromTemplate(ctx, template.NameHafalanMilestone, st.ID, vars, "event")
	if err != nil {
		s.releaseMarker(ctx, st.ID, types.TriggerHafalanMilestone, req.Surah)
		return nil, false, err
	}
	return n, true, nil
}

func (s *Service) loadStudent(ctx context.Context, id string) (*models.Student, error) {
	var st models.Student
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&st).Error; err != nil {
		return nil, apperr.NotFoundf("student not found: %s", id)
	}
	return &st, nil
}

func guardianName(st *models.Student) string {
	if st.GuardianName != "" {
		return st.GuardianName
	}
	return "Wali Santri"
}
