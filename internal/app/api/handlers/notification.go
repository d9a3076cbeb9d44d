package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	notifsvc "github.com/santrihub/sppbilling/internal/app/service/notification"
	"github.com/santrihub/sppbilling/pkg/response"
	"github.com/santrihub/sppbilling/pkg/types"
)

// @Summary      Send Notification (Admin)
// @Description  Sends a direct, non-templated notification to one recipient over the listed channels.
// @Tags         Notification
// @Accept       json
// @Produce      json
// @Param        request body notification.SendRequest true "Send request"
// @Success      200  {object}  handlers.RespNotification
// @Router       /api/v1/admin/notifications [post]
func ApiSendNotification(svc *notifsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req notifsvc.SendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		n, err := svc.Create(c.Request.Context(), &req)
		if err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, response.OKT(n))
	}
}

type bulkSendRequest struct {
	notifsvc.SendRequest
	RecipientIDs []string `json:"recipient_ids"`
}

// @Summary      Send Bulk Notification (Admin)
// @Description  Fans the same message out to many recipients. Per-recipient failures land in the result details.
// @Tags         Notification
// @Accept       json
// @Produce      json
// @Param        request body handlers.bulkSendRequest true "Bulk send request"
// @Success      200  {object}  handlers.RespBulkResult
// @Router       /api/v1/admin/notifications/bulk [post]
func ApiSendBulkNotification(svc *notifsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req bulkSendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.SendBulk(c.Request.Context(), &req.SendRequest, req.RecipientIDs)
		if err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Notification (Admin)
// @Tags         Notification
// @Produce      json
// @Param        id path string true "Notification ID"
// @Success      200  {object}  handlers.RespNotification
// @Router       /api/v1/admin/notifications/{id} [get]
func ApiGetNotification(svc *notifsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, response.OKT(n))
	}
}

// @Summary      List Recipient Notifications (Admin)
// @Description  In-app inbox of one recipient, newest first.
// @Tags         Notification
// @Produce      json
// @Param        recipient_id path string true "Recipient ID"
// @Param        unread_only query bool false "Unread only"
// @Param        limit query int false "Page size"
// @Success      200  {object}  handlers.RespListNotifications
// @Router       /api/v1/admin/notifications/recipient/{recipient_id} [get]
func ApiListRecipientNotifications(svc *notifsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		items, err := svc.ListByRecipient(c.Request.Context(), c.Param("recipient_id"), c.Query("unread_only") == "true", limit)
		if err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, response.OKT(items))
	}
}

// @Summary      Mark Notification Read (Admin)
// @Description  Idempotent; re-marking an already-read notification is a no-op.
// @Tags         Notification
// @Produce      json
// @Param        id path string true "Notification ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/notifications/{id}/read [post]
func ApiMarkNotificationRead(svc *notifsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.MarkAsRead(c.Request.Context(), c.Param("id")); err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

type deliveryCallbackRequest struct {
	MessageID string               `json:"message_id"`
	Status    types.DeliveryStatus `json:"status"`
}

// @Summary      Channel Delivery Callback
// @Description  Asynchronous delivery status callback from an outbound messaging provider.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        request body handlers.deliveryCallbackRequest true "Provider callback payload"
// @Success      200  {object}  handlers.RespOK
// @Router       /webhooks/channels/delivery [post]
func ApiChannelDeliveryCallback(svc *notifsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req deliveryCallbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := svc.ApplyDeliveryCallback(c.Request.Context(), req.MessageID, req.Status); err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterNotificationRoutes(r gin.IRouter, svc *notifsvc.Service) {
	r.POST("/notifications", ApiSendNotification(svc))
	r.POST("/notifications/bulk", ApiSendBulkNotification(svc))
	r.GET("/notifications/recipient/:recipient_id", ApiListRecipientNotifications(svc))
	r.GET("/notifications/:id", ApiGetNotification(svc))
	r.POST("/notifications/:id/read", ApiMarkNotificationRead(svc))
}
