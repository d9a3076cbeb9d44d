package handlers

import (
	billsvc "github.com/santrihub/sppbilling/internal/app/service/billing"
	notifsvc "github.com/santrihub/sppbilling/internal/app/service/notification"
	"github.com/santrihub/sppbilling/internal/app/service/statistics"
	subsvc "github.com/santrihub/sppbilling/internal/app/service/subscription"
	triggersvc "github.com/santrihub/sppbilling/internal/app/service/trigger"
	"github.com/santrihub/sppbilling/internal/models"
	"github.com/santrihub/sppbilling/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

type RespSubscription struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.Subscription      `json:"data"`
}

type RespListSubscriptions struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    subsvc.ListResponse      `json:"data"`
}

type RespBillingRecord struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.BillingRecord     `json:"data"`
}

type RespListBillings struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    billsvc.ListResponse     `json:"data"`
}

type RespBillingCycleSummary struct {
	Code    response.APIResponseCode       `json:"code"`
	Message string                         `json:"message"`
	Data    triggersvc.BillingCycleSummary `json:"data"`
}

type RespBillingStatistic struct {
	Code    response.APIResponseCode            `json:"code"`
	Message string                              `json:"message"`
	Data    statistics.BillingStatisticResponse `json:"data"`
}

type RespTemplate struct {
	Code    response.APIResponseCode    `json:"code"`
	Message string                      `json:"message"`
	Data    models.NotificationTemplate `json:"data"`
}

type RespListTemplates struct {
	Code    response.APIResponseCode      `json:"code"`
	Message string                        `json:"message"`
	Data    []models.NotificationTemplate `json:"data"`
}

type RespTemplatePreview struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    previewTemplateResponse  `json:"data"`
}

type RespNotification struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.Notification      `json:"data"`
}

type RespListNotifications struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.Notification    `json:"data"`
}

type RespBulkResult struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    notifsvc.BulkResult      `json:"data"`
}

type RespTriggerResults struct {
	Code    response.APIResponseCode   `json:"code"`
	Message string                     `json:"message"`
	Data    []triggersvc.TriggerResult `json:"data"`
}

type RespEvent struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    eventResponse            `json:"data"`
}
