package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tesoria/disbursement_ops_app/internal/apperrors"
	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
	portssvc "github.com/tesoria/disbursement_ops_app/internal/core/ports/services"
	"github.com/tesoria/disbursement_ops_app/internal/dto"
	"github.com/tesoria/disbursement_ops_app/internal/middleware"
)

// companyHandler handles HTTP requests related to companies.
type companyHandler struct {
	companyService portssvc.CompanySvcFacade
}

// newCompanyHandler creates a new companyHandler.
func newCompanyHandler(cs portssvc.CompanySvcFacade) *companyHandler {
	return &companyHandler{
		companyService: cs,
	}
}

// registerCompanyRoutes registers routes related to companies and their members.
// Disbursement and template routes are nested under a specific company.
func registerCompanyRoutes(rg *gin.RouterGroup, companyService portssvc.CompanySvcFacade, disbursementService portssvc.DisbursementSvcFacade, templateService portssvc.WorkflowTemplateSvcFacade) {
	h := newCompanyHandler(companyService)

	companiesTopLevel := rg.Group("/companies")
	{
		companiesTopLevel.POST("", h.createCompany)
		companiesTopLevel.GET("", h.listUserCompanies) // List companies the calling user belongs to
	}

	companySpecific := rg.Group("/companies/:company_id")
	{
		companySpecific.GET("", h.getCompany)
		companySpecific.GET("/settings", h.getApprovalSettings)
		companySpecific.PUT("/settings", h.updateApprovalSettings)
		companySpecific.PUT("/active-template", h.setActiveTemplate)

		// Manage users within a company
		companyUsers := companySpecific.Group("/users")
		{
			companyUsers.POST("", h.addUserToCompany)
			companyUsers.GET("/:user_id/role", h.getUserRole)
			companyUsers.PUT("/:user_id/role", h.updateUserRole)
			companyUsers.DELETE("/:user_id", h.removeUserFromCompany)
		}

		// -- NESTED DISBURSEMENT ROUTES --
		registerDisbursementRoutes(companySpecific, disbursementService)

		// -- NESTED WORKFLOW TEMPLATE ROUTES --
		registerWorkflowTemplateRoutes(companySpecific, templateService)
	}
}

// createCompany godoc
// @Summary Create a new company
// @Description Creates a new company and assigns the creator as admin.
// @Tags companies
// @Accept json
// @Produce json
// @Param company body dto.CreateCompanyRequest true "Company details"
// @Success 201 {object} dto.CompanyResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies [post]
func (h *companyHandler) createCompany(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateCompany", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Creator user ID not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	newCompany, err := h.companyService.CreateCompany(c.Request.Context(), req.Name, req.DefaultCurrencyCode, creatorUserID)
	if err != nil {
		respondWithError(c, err, "Company")
		return
	}

	logger.Info("Company created successfully", slog.String("company_id", newCompany.CompanyID))
	c.JSON(http.StatusCreated, dto.ToCompanyResponse(newCompany))
}

// listUserCompanies godoc
// @Summary List companies for current user
// @Description Retrieves a list of companies the authenticated user belongs to.
// @Tags companies
// @Produce json
// @Success 200 {object} dto.ListCompaniesResponse
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies [get]
func (h *companyHandler) listUserCompanies(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	companies, err := h.companyService.ListUserCompanies(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err, "Company")
		return
	}

	c.JSON(http.StatusOK, dto.ToListCompaniesResponse(companies))
}

// getCompany godoc
// @Summary Get a company by ID
// @Description Retrieves a single company. The caller must be a member.
// @Tags companies
// @Produce json
// @Param company_id path string true "Company ID"
// @Success 200 {object} dto.CompanyResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id} [get]
func (h *companyHandler) getCompany(c *gin.Context) {
	companyID := c.Param("company_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	// Membership gate: non-members must not learn the company exists.
	if err := h.companyService.AuthorizeUserAction(c.Request.Context(), userID, companyID, domain.RoleReadOnly); err != nil {
		respondWithError(c, apperrors.ErrNotFound, "Company")
		return
	}

	company, err := h.companyService.FindCompanyByID(c.Request.Context(), companyID)
	if err != nil {
		respondWithError(c, err, "Company")
		return
	}

	c.JSON(http.StatusOK, dto.ToCompanyResponse(company))
}

// getApprovalSettings godoc
// @Summary Get approval settings
// @Description Retrieves the company's workflow policy settings.
// @Tags companies
// @Produce json
// @Param company_id path string true "Company ID"
// @Success 200 {object} dto.ApprovalSettingsResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/settings [get]
func (h *companyHandler) getApprovalSettings(c *gin.Context) {
	companyID := c.Param("company_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	settings, err := h.companyService.GetApprovalSettings(c.Request.Context(), companyID, userID)
	if err != nil {
		respondWithError(c, err, "Company")
		return
	}

	c.JSON(http.StatusOK, dto.ApprovalSettingsResponse{
		RequireDeptHeadApproval:  settings.RequireDeptHeadApproval,
		RequireValidatorApproval: settings.RequireValidatorApproval,
		RequireCashierExecution:  settings.RequireCashierExecution,
		MaxAmountNoApproval:      settings.MaxAmountNoApproval,
	})
}

// updateApprovalSettings godoc
// @Summary Update approval settings
// @Description Replaces the company's workflow policy settings. Admin only.
// @Tags companies
// @Accept json
// @Produce json
// @Param company_id path string true "Company ID"
// @Param settings body dto.ApprovalSettingsRequest true "New settings"
// @Success 200 {object} dto.CompanyResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/settings [put]
func (h *companyHandler) updateApprovalSettings(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var req dto.ApprovalSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateApprovalSettings", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	company, err := h.companyService.UpdateApprovalSettings(c.Request.Context(), companyID, req.ToApprovalSettings(), userID)
	if err != nil {
		respondWithError(c, err, "Company")
		return
	}

	c.JSON(http.StatusOK, dto.ToCompanyResponse(company))
}

// setActiveTemplateRequest carries the template reference for the active
// template endpoint. A null templateID clears the assignment.
type setActiveTemplateRequest struct {
	TemplateID *string `json:"templateID"`
}

// setActiveTemplate godoc
// @Summary Set the company's active workflow template
// @Description Points the company at a workflow template for display purposes. Admin only.
// @Tags companies
// @Accept json
// @Param company_id path string true "Company ID"
// @Param body body setActiveTemplateRequest true "Template reference"
// @Success 204 "No Content"
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/active-template [put]
func (h *companyHandler) setActiveTemplate(c *gin.Context) {
	companyID := c.Param("company_id")

	var req setActiveTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	if err := h.companyService.SetActiveWorkflowTemplate(c.Request.Context(), companyID, req.TemplateID, userID); err != nil {
		respondWithError(c, err, "Workflow template")
		return
	}

	c.Status(http.StatusNoContent)
}

// addUserToCompany godoc
// @Summary Add a user to a company
// @Description Adds a user with a given role. Admin only.
// @Tags companies
// @Accept json
// @Param company_id path string true "Company ID"
// @Param membership body dto.AddUserToCompanyRequest true "User and role"
// @Success 204 "No Content"
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/users [post]
func (h *companyHandler) addUserToCompany(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var req dto.AddUserToCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for AddUserToCompany", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	addingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	if err := h.companyService.AddUserToCompany(c.Request.Context(), addingUserID, req.UserID, companyID, req.Role); err != nil {
		respondWithError(c, err, "Company")
		return
	}

	c.Status(http.StatusNoContent)
}

// getUserRole godoc
// @Summary Get a member's role
// @Description Retrieves the membership record for a user in a company.
// @Tags companies
// @Produce json
// @Param company_id path string true "Company ID"
// @Param user_id path string true "User ID"
// @Success 200 {object} dto.UserCompanyResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/users/{user_id}/role [get]
func (h *companyHandler) getUserRole(c *gin.Context) {
	companyID := c.Param("company_id")
	targetUserID := c.Param("user_id")

	requestingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	if err := h.companyService.AuthorizeUserAction(c.Request.Context(), requestingUserID, companyID, domain.RoleReadOnly); err != nil {
		respondWithError(c, apperrors.ErrNotFound, "Company")
		return
	}

	membership, err := h.companyService.GetUserCompanyRole(c.Request.Context(), targetUserID, companyID)
	if err != nil {
		respondWithError(c, err, "Membership")
		return
	}

	c.JSON(http.StatusOK, dto.ToUserCompanyResponse(membership))
}

// updateUserRole godoc
// @Summary Change a member's role
// @Description Updates the role of an existing company member. Admin only.
// @Tags companies
// @Accept json
// @Param company_id path string true "Company ID"
// @Param user_id path string true "User ID"
// @Param role body dto.UpdateUserRoleRequest true "New role"
// @Success 204 "No Content"
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/users/{user_id}/role [put]
func (h *companyHandler) updateUserRole(c *gin.Context) {
	companyID := c.Param("company_id")
	targetUserID := c.Param("user_id")

	var req dto.UpdateUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	requestingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	if err := h.companyService.UpdateUserCompanyRole(c.Request.Context(), requestingUserID, targetUserID, companyID, req.Role); err != nil {
		respondWithError(c, err, "Membership")
		return
	}

	c.Status(http.StatusNoContent)
}

// removeUserFromCompany godoc
// @Summary Remove a user from a company
// @Description Flips the member's role to REMOVED; the membership row survives for audit. Admin only.
// @Tags companies
// @Param company_id path string true "Company ID"
// @Param user_id path string true "User ID"
// @Success 204 "No Content"
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/users/{user_id} [delete]
func (h *companyHandler) removeUserFromCompany(c *gin.Context) {
	companyID := c.Param("company_id")
	targetUserID := c.Param("user_id")

	requestingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	if err := h.companyService.RemoveUserFromCompany(c.Request.Context(), requestingUserID, targetUserID, companyID); err != nil {
		respondWithError(c, err, "Membership")
		return
	}

	c.Status(http.StatusNoContent)
}
