package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	portssvc "github.com/tesoria/disbursement_ops_app/internal/core/ports/services"
	"github.com/tesoria/disbursement_ops_app/internal/dto"
	"github.com/tesoria/disbursement_ops_app/internal/middleware"
)

// workflowTemplateHandler handles HTTP requests related to workflow templates.
type workflowTemplateHandler struct {
	templateService portssvc.WorkflowTemplateSvcFacade
}

// newWorkflowTemplateHandler creates a new workflowTemplateHandler.
func newWorkflowTemplateHandler(ts portssvc.WorkflowTemplateSvcFacade) *workflowTemplateHandler {
	return &workflowTemplateHandler{
		templateService: ts,
	}
}

// registerWorkflowTemplateRoutes registers template routes nested under a company.
func registerWorkflowTemplateRoutes(companyRg *gin.RouterGroup, templateService portssvc.WorkflowTemplateSvcFacade) {
	h := newWorkflowTemplateHandler(templateService)

	templates := companyRg.Group("/templates")
	{
		templates.POST("", h.createTemplate)
		templates.GET("", h.listTemplates)
		templates.GET("/:template_id", h.getTemplate)
		templates.PUT("/:template_id", h.updateTemplate)
		templates.DELETE("/:template_id", h.deleteTemplate)
	}
}

// createTemplate godoc
// @Summary Create a workflow template
// @Description Creates a display-only workflow template for a company. Admin only.
// @Tags templates
// @Accept json
// @Produce json
// @Param company_id path string true "Company ID"
// @Param template body dto.CreateWorkflowTemplateRequest true "Template details"
// @Success 201 {object} dto.WorkflowTemplateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/templates [post]
func (h *workflowTemplateHandler) createTemplate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var req dto.CreateWorkflowTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateTemplate", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	template, err := h.templateService.CreateTemplate(c.Request.Context(), companyID, req, userID)
	if err != nil {
		respondWithError(c, err, "Workflow template")
		return
	}

	logger.Info("Workflow template created", slog.String("template_id", template.TemplateID))
	c.JSON(http.StatusCreated, dto.ToWorkflowTemplateResponse(template))
}

// listTemplates godoc
// @Summary List workflow templates
// @Description Lists templates owned by the company plus system templates.
// @Tags templates
// @Produce json
// @Param company_id path string true "Company ID"
// @Success 200 {object} dto.ListWorkflowTemplatesResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/templates [get]
func (h *workflowTemplateHandler) listTemplates(c *gin.Context) {
	companyID := c.Param("company_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	templates, err := h.templateService.ListTemplates(c.Request.Context(), companyID, userID)
	if err != nil {
		respondWithError(c, err, "Workflow template")
		return
	}

	c.JSON(http.StatusOK, dto.ToListWorkflowTemplatesResponse(templates))
}

// getTemplate godoc
// @Summary Get a workflow template
// @Description Retrieves a single template visible to the company.
// @Tags templates
// @Produce json
// @Param company_id path string true "Company ID"
// @Param template_id path string true "Template ID"
// @Success 200 {object} dto.WorkflowTemplateResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/templates/{template_id} [get]
func (h *workflowTemplateHandler) getTemplate(c *gin.Context) {
	companyID := c.Param("company_id")
	templateID := c.Param("template_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	template, err := h.templateService.GetTemplateByID(c.Request.Context(), companyID, templateID, userID)
	if err != nil {
		respondWithError(c, err, "Workflow template")
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkflowTemplateResponse(template))
}

// updateTemplate godoc
// @Summary Update a workflow template
// @Description Updates a company-owned template's name and steps. System templates are immutable. Admin only.
// @Tags templates
// @Accept json
// @Produce json
// @Param company_id path string true "Company ID"
// @Param template_id path string true "Template ID"
// @Param template body dto.UpdateWorkflowTemplateRequest true "Updated fields"
// @Success 200 {object} dto.WorkflowTemplateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/templates/{template_id} [put]
func (h *workflowTemplateHandler) updateTemplate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	templateID := c.Param("template_id")

	var req dto.UpdateWorkflowTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateTemplate", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	template, err := h.templateService.UpdateTemplate(c.Request.Context(), companyID, templateID, req, userID)
	if err != nil {
		respondWithError(c, err, "Workflow template")
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkflowTemplateResponse(template))
}

// deleteTemplate godoc
// @Summary Delete a workflow template
// @Description Soft-deletes a company-owned template. Admin only.
// @Tags templates
// @Param company_id path string true "Company ID"
// @Param template_id path string true "Template ID"
// @Success 204 "No Content"
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/templates/{template_id} [delete]
func (h *workflowTemplateHandler) deleteTemplate(c *gin.Context) {
	companyID := c.Param("company_id")
	templateID := c.Param("template_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	if err := h.templateService.DeleteTemplate(c.Request.Context(), companyID, templateID, userID); err != nil {
		respondWithError(c, err, "Workflow template")
		return
	}

	c.Status(http.StatusNoContent)
}
