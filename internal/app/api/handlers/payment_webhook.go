package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	billsvc "github.com/santrihub/sppbilling/internal/app/service/billing"
	notifsvc "github.com/santrihub/sppbilling/internal/app/service/notification"
	"github.com/santrihub/sppbilling/internal/app/service/webhooklog"
	"github.com/santrihub/sppbilling/internal/models"
	"github.com/santrihub/sppbilling/internal/platform/gateway"
	cfgpkg "github.com/santrihub/sppbilling/pkg/config"
	"github.com/santrihub/sppbilling/pkg/logctx"
	"github.com/santrihub/sppbilling/pkg/response"
)

// PaymentWebhookPayload is the gateway's payment status callback body.
type PaymentWebhookPayload struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       int64  `json:"gross_amount"`
	TransactionStatus string `json:"transaction_status"`
	TransactionID     string `json:"transaction_id"`
	SignatureKey      string `json:"signature_key"`
}

// @Summary      Payment Gateway Webhook
// @Description  Applies a payment status change pushed by the gateway. The signature is verified before anything is applied; replayed deliveries are accepted and change nothing.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        payload body handlers.PaymentWebhookPayload true "Gateway callback payload"
// @Success      200  {object}  handlers.RespOK
// @Router       /webhooks/payments [post]
func ApiPaymentWebhook(billing *billsvc.Service, events *webhooklog.Service, cfg *cfgpkg.Config, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		lg := logctx.FromCtx(c.Request.Context(), log)

		var payload PaymentWebhookPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		raw, _ := json.Marshal(payload)
		traceID, _ := c.Request.Context().Value("traceID").(string)
		event := &models.PaymentWebhookEvent{
			OrderID:           payload.OrderID,
			TransactionStatus: payload.TransactionStatus,
			TraceID:           traceID,
			Data:              raw,
			Status:            models.WebhookEventStatusReceived,
		}

		if !gateway.VerifySignature(payload.OrderID, payload.StatusCode, payload.GrossAmount, cfg.Gateway.ServerKey, payload.SignatureKey) {
			events.Save(c.Request.Context(), event)
			lg.Warnw("webhook_signature_rejected", "order_id", payload.OrderID)
			c.JSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeSignature, "invalid signature"))
			return
		}
		event.SignatureValid = true

		applied, err := billing.ApplyGatewayStatus(c.Request.Context(),
			payload.OrderID, gateway.PaymentStatus(payload.TransactionStatus), payload.TransactionID)
		result, _ := json.Marshal(map[string]any{"applied": applied})
		jr := datatypes.JSON(result)
		event.Result = &jr
		if err != nil {
			event.Status = models.WebhookEventStatusHandleFailed
			events.Save(c.Request.Context(), event)
			lg.Errorw("webhook_handle_failed", "order_id", payload.OrderID, "err", err)
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}

		event.Status = models.WebhookEventStatusHandled
		events.Save(c.Request.Context(), event)
		lg.Infow("webhook_handled", "order_id", payload.OrderID,
			"transaction_status", payload.TransactionStatus, "applied", applied)
		c.JSON(http.StatusOK, response.OKT(map[string]any{"applied": applied}))
	}
}

func RegisterWebhookRoutes(r gin.IRouter, billing *billsvc.Service, events *webhooklog.Service, notif *notifsvc.Service, cfg *cfgpkg.Config, log *zap.SugaredLogger) {
	r.POST("/payments", ApiPaymentWebhook(billing, events, cfg, log))
	r.POST("/channels/delivery", ApiChannelDeliveryCallback(notif))
}
