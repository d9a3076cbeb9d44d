package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	billsvc "github.com/santrihub/sppbilling/internal/app/service/billing"
	"github.com/santrihub/sppbilling/internal/app/service/statistics"
	"github.com/santrihub/sppbilling/pkg/response"
)

// @Summary      Get Billing Record (Admin)
// @Tags         Billing
// @Produce      json
// @Param        id path string true "Billing record ID"
// @Success      200  {object}  handlers.RespBillingRecord
// @Router       /api/v1/admin/billings/{id} [get]
func ApiGetBilling(svc *billsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, response.OKT(rec))
	}
}

// @Summary      List Billing Records (Admin)
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Param        request body billing.ListRequest true "List request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespListBillings
// @Router       /api/v1/admin/billings/list [post]
func ApiListBillings(svc *billsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req billsvc.ListRequest
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

// @Summary      Process Billing Record (Admin)
// @Description  Pushes one billing record through the payment gateway.
// @Tags         Billing
// @Produce      json
// @Param        id path string true "Billing record ID"
// @Success      200  {object}  handlers.RespBillingRecord
// @Router       /api/v1/admin/billings/{id}/process [post]
func ApiProcessBilling(svc *billsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := svc.ProcessBilling(c.Request.Context(), c.Param("id"))
		if err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, response.OKT(rec))
	}
}

type markPaidRequest struct {
	PaymentReference string `json:"payment_reference"`
}

// @Summary      Mark Billing Paid (Admin)
// @Description  Manual settlement for cash or bank transfer payments. Idempotent; the confirmation is sent at most once.
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Param        id path string true "Billing record ID"
// @Param        request body handlers.markPaidRequest false "Manual payment reference"
// @Success      200  {object}  handlers.RespBillingRecord
// @Router       /api/v1/admin/billings/{id}/mark_paid [post]
func ApiMarkBillingPaid(svc *billsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req markPaidRequest
		_ = c.ShouldBindJSON(&req)
		ref := req.PaymentReference
		if ref == "" {
			ref = "manual"
		}
		if _, err := svc.MarkPaid(c.Request.Context(), c.Param("id"), ref); err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		rec, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, response.OKT(rec))
	}
}

// @Summary      Get Billing Statistics (Admin)
// @Description  Resolves the requested statistic data items over billing and subscription data.
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Param        request body statistics.BillingStatisticRequest true "Statistic request parameters"
// @Success      200  {object}  handlers.RespBillingStatistic
// @Router       /api/v1/admin/billings/statistics [post]
func ApiGetBillingStatistic(svc *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.BillingStatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.GetBillingStatistic(c.Request.Context(), &req)
		if err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterBillingRoutes(r gin.IRouter, svc *billsvc.Service, stats *statistics.Service) {
	r.POST("/billings/list", ApiListBillings(svc))
	r.POST("/billings/statistics", ApiGetBillingStatistic(stats))
	r.GET("/billings/:id", ApiGetBilling(svc))
	r.POST("/billings/:id/process", ApiProcessBilling(svc))
	r.POST("/billings/:id/mark_paid", ApiMarkBillingPaid(svc))
}
