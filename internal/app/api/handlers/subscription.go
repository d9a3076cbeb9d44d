package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	subsvc "github.com/santrihub/sppbilling/internal/app/service/subscription"
	"github.com/santrihub/sppbilling/pkg/response"
)

// @Summary      Create Subscription (Admin)
// @Description  Opens a tuition subscription for a student. Trial days > 0 start the subscription in trial.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Param        request body subscription.CreateRequest true "Create subscription request"
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/admin/subscriptions [post]
func ApiCreateSubscription(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req subsvc.CreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		sub, err := svc.Create(c.Request.Context(), &req)
		if err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

// @Summary      Get Subscription (Admin)
// @Tags         Subscription
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/admin/subscriptions/{id} [get]
func ApiGetSubscription(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

// @Summary      List Subscriptions (Admin)
// @Description  Paginated, filterable subscription listing.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Param        request body subscription.ListRequest true "List request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespListSubscriptions
// @Router       /api/v1/admin/subscriptions/list [post]
func ApiListSubscriptions(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req subsvc.ListRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.List(c.Request.Context(), &req)
		if err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

type subscriptionReasonRequest struct {
	Reason string `json:"reason"`
}

// @Summary      Pause Subscription (Admin)
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Param        request body handlers.subscriptionReasonRequest false "Pause reason"
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/admin/subscriptions/{id}/pause [post]
func ApiPauseSubscription(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req subscriptionReasonRequest
		_ = c.ShouldBindJSON(&req)
		sub, err := svc.Pause(c.Request.Context(), c.Param("id"), req.Reason)
		if err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

// @Summary      Resume Subscription (Admin)
// @Tags         Subscription
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/admin/subscriptions/{id}/resume [post]
func ApiResumeSubscription(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, err := svc.Resume(c.Request.Context(), c.Param("id"))
		if err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

// @Summary      Cancel Subscription (Admin)
// @Description  Terminal. Open billing records of the subscription are cancelled with it.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Param        request body handlers.subscriptionReasonRequest false "Cancel reason"
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/admin/subscriptions/{id}/cancel [post]
func ApiCancelSubscription(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req subscriptionReasonRequest
		_ = c.ShouldBindJSON(&req)
		sub, err := svc.Cancel(c.Request.Context(), c.Param("id"), req.Reason)
		if err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

func RegisterSubscriptionRoutes(r gin.IRouter, svc *subsvc.Service) {
	r.POST("/subscriptions", ApiCreateSubscription(svc))
	r.POST("/subscriptions/list", ApiListSubscriptions(svc))
	r.GET("/subscriptions/:id", ApiGetSubscription(svc))
	r.POST("/subscriptions/:id/pause", ApiPauseSubscription(svc))
	r.POST("/subscriptions/:id/resume", ApiResumeSubscription(svc))
	r.POST("/subscriptions/:id/cancel", ApiCancelSubscription(svc))
}
