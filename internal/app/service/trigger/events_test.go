package trigger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/santrihub/sppbilling/pkg/apperr"
	"github.com/santrihub/sppbilling/pkg/types"
)

func TestSendAttendanceAlert_DeduplicatesPerDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.student(t, "student-1", nil)
	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	n, created, err := f.svc.SendAttendanceAlert(ctx, &AttendanceAlertRequest{StudentID: "student-1", Date: date})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, types.CategoryAttendance, n.Category)
	require.Contains(t, n.Message, "Santri student-1")
	require.Contains(t, n.Message, "2026-08-28")

	n, created, err = f.svc.SendAttendanceAlert(ctx, &AttendanceAlertRequest{StudentID: "student-1", Date: date})
	require.NoError(t, err)
	require.False(t, created)
	require.Nil(t, n)
	require.EqualValues(t, 1, f.notificationCount(t))

	// the next day is a new period
	_, created, err = f.svc.SendAttendanceAlert(ctx, &AttendanceAlertRequest{StudentID: "student-1", Date: date.AddDate(0, 0, 1)})
	require.NoError(t, err)
	require.True(t, created)
}

func TestSendAttendanceAlert_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.SendAttendanceAlert(ctx, &AttendanceAlertRequest{})
	require.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, _, err = f.svc.SendAttendanceAlert(ctx, &AttendanceAlertRequest{StudentID: "ghost"})
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestSendHafalanMilestone_DeduplicatesPerSurah(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.student(t, "student-1", nil)

	req := &HafalanMilestoneRequest{StudentID: "student-1", Surah: "Al-Mulk", Juz: 29}
	n, created, err := f.svc.SendHafalanMilestone(ctx, req)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, types.CategoryHafalan, n.Category)
	require.Contains(t, n.Message, "Al-Mulk")
	require.Contains(t, n.Message, "29")

	_, created, err = f.svc.SendHafalanMilestone(ctx, req)
	require.NoError(t, err)
	require.False(t, created)
	require.EqualValues(t, 1, f.notificationCount(t))

	// a different surah is a new milestone
	_, created, err = f.svc.SendHafalanMilestone(ctx, &HafalanMilestoneRequest{StudentID: "student-1", Surah: "Al-Qalam", Juz: 29})
	require.NoError(t, err)
	require.True(t, created)
}

func TestSendHafalanMilestone_Validation(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.SendHafalanMilestone(context.Background(), &HafalanMilestoneRequest{StudentID: "student-1"})
	require.True(t, apperr.IsKind(err, apperr.KindValidation))
}
