package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	tmplsvc "github.com/santrihub/sppbilling/internal/app/service/template"
	"github.com/santrihub/sppbilling/pkg/response"
)

// @Summary      Create Template (Admin)
// @Tags         Template
// @Accept       json
// @Produce      json
// @Param        request body template.CreateTemplateRequest true "Create template request"
// @Success      200  {object}  handlers.RespTemplate
// @Router       /api/v1/admin/templates [post]
func ApiCreateTemplate(svc *tmplsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req tmplsvc.CreateTemplateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		tmpl, err := svc.Create(c.Request.Context(), &req)
		if err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, response.OKT(tmpl))
	}
}

// @Summary      Update Template (Admin)
// @Tags         Template
// @Accept       json
// @Produce      json
// @Param        id path string true "Template ID"
// @Param        request body template.UpdateTemplateRequest true "Fields to update"
// @Success      200  {object}  handlers.RespTemplate
// @Router       /api/v1/admin/templates/{id} [put]
func ApiUpdateTemplate(svc *tmplsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req tmplsvc.UpdateTemplateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		tmpl, err := svc.Update(c.Request.Context(), c.Param("id"), &req)
		if err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, response.OKT(tmpl))
	}
}

// @Summary      Get Template (Admin)
// @Tags         Template
// @Produce      json
// @Param        id path string true "Template ID"
// @Success      200  {object}  handlers.RespTemplate
// @Router       /api/v1/admin/templates/{id} [get]
func ApiGetTemplate(svc *tmplsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tmpl, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, response.OKT(tmpl))
	}
}

// @Summary      List Templates (Admin)
// @Tags         Template
// @Produce      json
// @Param        include_inactive query bool false "Include deactivated templates"
// @Success      200  {object}  handlers.RespListTemplates
// @Router       /api/v1/admin/templates [get]
func ApiListTemplates(svc *tmplsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := svc.List(c.Request.Context(), c.Query("include_inactive") == "true")
		if err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, response.OKT(items))
	}
}

// @Summary      Deactivate Template (Admin)
// @Description  Soft delete. The template stops resolving for sends; history keeps pointing at it.
// @Tags         Template
// @Produce      json
// @Param        id path string true "Template ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/templates/{id} [delete]
func ApiDeactivateTemplate(svc *tmplsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

type previewTemplateRequest struct {
	Name      string            `json:"name"`
	Variables map[string]string `json:"variables"`
}

type previewTemplateResponse struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// @Summary      Preview Template Render (Admin)
// @Description  Renders a template with the given variables without sending anything.
// @Tags         Template
// @Accept       json
// @Produce      json
// @Param        request body handlers.previewTemplateRequest true "Template name and variables"
// @Success      200  {object}  handlers.RespTemplatePreview
// @Router       /api/v1/admin/templates/preview [post]
func ApiPreviewTemplate(svc *tmplsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req previewTemplateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		rendered, err := svc.Render(c.Request.Context(), req.Name, req.Variables)
		if err != nil {
			status, body := response.FromError(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, response.OKT(&previewTemplateResponse{Title: rendered.Title, Message: rendered.Message}))
	}
}

func RegisterTemplateRoutes(r gin.IRouter, svc *tmplsvc.Service) {
	r.POST("/templates", ApiCreateTemplate(svc))
	r.GET("/templates", ApiListTemplates(svc))
	r.POST("/templates/preview", ApiPreviewTemplate(svc))
	r.GET("/templates/:id", ApiGetTemplate(svc))
	r.PUT("/templates/:id", ApiUpdateTemplate(svc))
	r.DELETE("/templates/:id", ApiDeactivateTemplate(svc))
}
