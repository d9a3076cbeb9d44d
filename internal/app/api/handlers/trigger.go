package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	triggersvc "github.com/santrihub/sppbilling/internal/app/service/trigger"
	"github.com/santrihub/sppbilling/pkg/response"
)

// @Summary      Run Scheduled Triggers (Cron)
// @Description  Runs every scheduled notification check: due reminders, overdue escalation, birthdays, monthly reports. Safe to re-run; sent markers keep dispatches single-shot.
// @Tags         Trigger
// @Produce      json
// @Success      200  {object}  handlers.RespTriggerResults
// @Router       /api/v1/triggers/run [post]
func ApiRunScheduledTriggers(svc *triggersvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		results := svc.RunScheduledTriggers(c.Request.Context())
		c.JSON(http.StatusOK, response.OKT(results))
	}
}

// @Summary      Run Billing Cycle (Cron)
// @Description  Promotes ended trials, expires lapsed subscriptions and generates billing records for every active subscription whose next billing date arrived. Re-entrant.
// @Tags         Trigger
// @Produce      json
// @Success      200  {object}  handlers.RespBillingCycleSummary
// @Router       /api/v1/triggers/billing/run [post]
func ApiRunBillingCycle(svc *triggersvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := svc.RunBillingCycle(c.Request.Context())
		if err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, response.OKT(summary))
	}
}

type eventResponse struct {
	NotificationID string `json:"notification_id,omitempty"`
	Deduplicated   bool   `json:"deduplicated"`
}

// @Summary      Report Absence (Event)
// @Description  Pushes one attendance absence; the guardian is alerted at most once per student per day.
// @Tags         Trigger
// @Accept       json
// @Produce      json
// @Param        request body trigger.AttendanceAlertRequest true "Absence event"
// @Success      200  {object}  handlers.RespEvent
// @Router       /api/v1/events/attendance_alert [post]
func ApiSendAttendanceAlert(svc *triggersvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req triggersvc.AttendanceAlertRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		n, created, err := svc.SendAttendanceAlert(c.Request.Context(), &req)
		if err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		res := &eventResponse{Deduplicated: !created}
		if n != nil {
			res.NotificationID = n.ID
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Report Hafalan Milestone (Event)
// @Description  Pushes one memorization milestone; the congratulation goes out at most once per student per surah.
// @Tags         Trigger
// @Accept       json
// @Produce      json
// @Param        request body trigger.HafalanMilestoneRequest true "Milestone event"
// @Success      200  {object}  handlers.RespEvent
// @Router       /api/v1/events/hafalan_milestone [post]
func ApiSendHafalanMilestone(svc *triggersvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req triggersvc.HafalanMilestoneRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		n, created, err := svc.SendHafalanMilestone(c.Request.Context(), &req)
		if err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		res := &eventResponse{Deduplicated: !created}
		if n != nil {
			res.NotificationID = n.ID
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterTriggerRoutes(r gin.IRouter, svc *triggersvc.Service) {
	r.POST("/run", ApiRunScheduledTriggers(svc))
	r.POST("/billing/run", ApiRunBillingCycle(svc))
}

func RegisterEventRoutes(r gin.IRouter, svc *triggersvc.Service) {
	r.POST("/attendance_alert", ApiSendAttendanceAlert(svc))
	r.POST("/hafalan_milestone", ApiSendHafalanMilestone(svc))
}
