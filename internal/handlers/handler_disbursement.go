package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
	portssvc "github.com/tesoria/disbursement_ops_app/internal/core/ports/services"
	"github.com/tesoria/disbursement_ops_app/internal/dto"
	"github.com/tesoria/disbursement_ops_app/internal/middleware"
)

// disbursementHandler handles HTTP requests related to disbursements and
// their workflow transitions.
type disbursementHandler struct {
	disbursementService portssvc.DisbursementSvcFacade
}

// newDisbursementHandler creates a new disbursementHandler.
func newDisbursementHandler(ds portssvc.DisbursementSvcFacade) *disbursementHandler {
	return &disbursementHandler{
		disbursementService: ds,
	}
}

// registerDisbursementRoutes registers routes nested under a specific company.
func registerDisbursementRoutes(rg *gin.RouterGroup, disbursementService portssvc.DisbursementSvcFacade) {
	h := newDisbursementHandler(disbursementService)

	disbursements := rg.Group("/disbursements")
	{
		disbursements.POST("", h.createDisbursement)
		disbursements.GET("", h.listDisbursements)
		disbursements.GET("/:disbursement_id", h.getDisbursement)
		disbursements.PUT("/:disbursement_id", h.updateDisbursement)
		disbursements.DELETE("/:disbursement_id", h.deleteDisbursement)
		disbursements.GET("/:disbursement_id/actions", h.getActionHistory)

		// Workflow transitions
		disbursements.POST("/:disbursement_id/submit", h.submitDisbursement)
		disbursements.POST("/:disbursement_id/stages/:stage/validate", h.validateStage)
		disbursements.POST("/:disbursement_id/stages/:stage/reject", h.rejectStage)
		disbursements.POST("/:disbursement_id/stages/:stage/undo", h.undoStage)
		disbursements.POST("/:disbursement_id/execute", h.executeDisbursement)
		disbursements.POST("/:disbursement_id/undo-rejection", h.undoRejection)
		disbursements.POST("/:disbursement_id/force-complete", h.forceComplete)
		disbursements.POST("/:disbursement_id/undo-force-completion", h.undoForceCompletion)
		disbursements.POST("/:disbursement_id/mark-retroactive", h.markRetroactive)
		disbursements.POST("/:disbursement_id/cancel", h.cancelDisbursement)
		disbursements.POST("/:disbursement_id/resubmit", h.resubmitDisbursement)
	}
}

// stageKeyFromParam resolves the :stage path parameter into a stage key.
func stageKeyFromParam(param string) (domain.StageKey, bool) {
	switch param {
	case "dept-head":
		return domain.StageDeptHeadValidation, true
	case "validator":
		return domain.StageValidatorApproval, true
	case "cashier":
		return domain.StageCashierExecution, true
	}
	return "", false
}

// createDisbursement godoc
// @Summary Create a disbursement draft
// @Description Creates a new disbursement in DRAFT status.
// @Tags disbursements
// @Accept json
// @Produce json
// @Param company_id path string true "Company ID"
// @Param disbursement body dto.CreateDisbursementRequest true "Disbursement details"
// @Success 201 {object} dto.DisbursementResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/disbursements [post]
func (h *disbursementHandler) createDisbursement(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var req dto.CreateDisbursementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateDisbursement", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	created, err := h.disbursementService.CreateDisbursement(c.Request.Context(), companyID, req, userID)
	if err != nil {
		respondWithError(c, err, "Disbursement")
		return
	}

	c.JSON(http.StatusCreated, dto.ToDisbursementResponse(created))
}

// listDisbursements godoc
// @Summary List disbursements in a company
// @Description Retrieves a paginated list of disbursements, optionally filtered by status.
// @Tags disbursements
// @Produce json
// @Param company_id path string true "Company ID"
// @Param status query string false "Filter by workflow status"
// @Param limit query int false "Page size (default 20, max 100)"
// @Param nextToken query string false "Pagination token"
// @Success 200 {object} dto.ListDisbursementsResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/disbursements [get]
func (h *disbursementHandler) listDisbursements(c *gin.Context) {
	companyID := c.Param("company_id")

	var params dto.ListDisbursementsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	resp, err := h.disbursementService.ListDisbursements(c.Request.Context(), companyID, userID, params)
	if err != nil {
		respondWithError(c, err, "Disbursement")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// getDisbursement godoc
// @Summary Get a disbursement
// @Description Retrieves a single disbursement with its full workflow state.
// @Tags disbursements
// @Produce json
// @Param company_id path string true "Company ID"
// @Param disbursement_id path string true "Disbursement ID"
// @Success 200 {object} dto.DisbursementResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/disbursements/{disbursement_id} [get]
func (h *disbursementHandler) getDisbursement(c *gin.Context) {
	companyID := c.Param("company_id")
	disbursementID := c.Param("disbursement_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	disbursement, err := h.disbursementService.GetDisbursementByID(c.Request.Context(), companyID, disbursementID, userID)
	if err != nil {
		respondWithError(c, err, "Disbursement")
		return
	}

	c.JSON(http.StatusOK, dto.ToDisbursementResponse(disbursement))
}

// updateDisbursement godoc
// @Summary Update a draft disbursement
// @Description Updates editable fields of a disbursement still in DRAFT status.
// @Tags disbursements
// @Accept json
// @Produce json
// @Param company_id path string true "Company ID"
// @Param disbursement_id path string true "Disbursement ID"
// @Param disbursement body dto.UpdateDisbursementRequest true "Fields to update"
// @Success 200 {object} dto.DisbursementResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/disbursements/{disbursement_id} [put]
func (h *disbursementHandler) updateDisbursement(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	disbursementID := c.Param("disbursement_id")

	var req dto.UpdateDisbursementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateDisbursement", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	updated, err := h.disbursementService.UpdateDisbursement(c.Request.Context(), companyID, disbursementID, req, userID)
	if err != nil {
		respondWithError(c, err, "Disbursement")
		return
	}

	c.JSON(http.StatusOK, dto.ToDisbursementResponse(updated))
}

// deleteDisbursement godoc
// @Summary Delete a disbursement
// @Description Soft deletes a non-pending disbursement and schedules its purge.
// @Tags disbursements
// @Param company_id path string true "Company ID"
// @Param disbursement_id path string true "Disbursement ID"
// @Success 204 "No Content"
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/disbursements/{disbursement_id} [delete]
func (h *disbursementHandler) deleteDisbursement(c *gin.Context) {
	companyID := c.Param("company_id")
	disbursementID := c.Param("disbursement_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	if err := h.disbursementService.DeleteDisbursement(c.Request.Context(), companyID, disbursementID, userID); err != nil {
		respondWithError(c, err, "Disbursement")
		return
	}

	c.Status(http.StatusNoContent)
}

// getActionHistory godoc
// @Summary Get the action history of a disbursement
// @Description Retrieves the ordered, append-only action log.
// @Tags disbursements
// @Produce json
// @Param company_id path string true "Company ID"
// @Param disbursement_id path string true "Disbursement ID"
// @Success 200 {object} dto.ActionHistoryResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/disbursements/{disbursement_id}/actions [get]
func (h *disbursementHandler) getActionHistory(c *gin.Context) {
	companyID := c.Param("company_id")
	disbursementID := c.Param("disbursement_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	actions, err := h.disbursementService.GetActionHistory(c.Request.Context(), companyID, disbursementID, userID)
	if err != nil {
		respondWithError(c, err, "Disbursement")
		return
	}

	c.JSON(http.StatusOK, dto.ActionHistoryResponse{
		DisbursementID: disbursementID,
		Actions:        dto.ToActionRecordResponses(actions),
	})
}

// transition wraps the shared request plumbing of every workflow endpoint
// that carries optional notes.
func (h *disbursementHandler) transition(
	c *gin.Context,
	run func(ctx *gin.Context, companyID, disbursementID, userID, notes string) (*domain.Disbursement, error),
) {
	companyID := c.Param("company_id")
	disbursementID := c.Param("disbursement_id")

	var req dto.TransitionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
			return
		}
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	disbursement, err := run(c, companyID, disbursementID, userID, req.Notes)
	if err != nil {
		respondWithError(c, err, "Disbursement")
		return
	}

	c.JSON(http.StatusOK, dto.ToDisbursementResponse(disbursement))
}

// transitionWithReason wraps the shared request plumbing of every workflow
// endpoint that requires a reason.
func (h *disbursementHandler) transitionWithReason(
	c *gin.Context,
	run func(ctx *gin.Context, companyID, disbursementID, userID, reason string) (*domain.Disbursement, error),
) {
	companyID := c.Param("company_id")
	disbursementID := c.Param("disbursement_id")

	var req dto.ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "A reason is required: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	disbursement, err := run(c, companyID, disbursementID, userID, req.Reason)
	if err != nil {
		respondWithError(c, err, "Disbursement")
		return
	}

	c.JSON(http.StatusOK, dto.ToDisbursementResponse(disbursement))
}

// submitDisbursement godoc
// @Summary Submit a draft into the approval pipeline
// @Tags workflow
// @Accept json
// @Produce json
// @Param company_id path string true "Company ID"
// @Param disbursement_id path string true "Disbursement ID"
// @Param body body dto.TransitionRequest false "Optional notes"
// @Success 200 {object} dto.DisbursementResponse
// @Failure 422 {object} ErrorResponse "Transition not legal from current state"
// @Security BearerAuth
// @Router /companies/{company_id}/disbursements/{disbursement_id}/submit [post]
func (h *disbursementHandler) submitDisbursement(c *gin.Context) {
	h.transition(c, func(ctx *gin.Context, companyID, disbursementID, userID, notes string) (*domain.Disbursement, error) {
		return h.disbursementService.SubmitDisbursement(ctx.Request.Context(), companyID, disbursementID, userID, notes)
	})
}

// validateStage godoc
// @Summary Approve the pending stage
// @Tags workflow
// @Accept json
// @Produce json
// @Param company_id path string true "Company ID"
// @Param disbursement_id path string true "Disbursement ID"
// @Param stage path string true "Stage key" Enums(dept-head, validator, cashier)
// @Param body body dto.TransitionRequest false "Optional notes"
// @Success 200 {object} dto.DisbursementResponse
// @Failure 422 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/disbursements/{disbursement_id}/stages/{stage}/validate [post]
func (h *disbursementHandler) validateStage(c *gin.Context) {
	stage, ok := stageKeyFromParam(c.Param("stage"))
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Unknown stage"})
		return
	}
	h.transition(c, func(ctx *gin.Context, companyID, disbursementID, userID, notes string) (*domain.Disbursement, error) {
		return h.disbursementService.ValidateStage(ctx.Request.Context(), companyID, disbursementID, stage, userID, notes)
	})
}

// rejectStage godoc
// @Summary Reject the pending stage
// @Tags workflow
// @Accept json
// @Produce json
// @Param company_id path string true "Company ID"
// @Param disbursement_id path string true "Disbursement ID"
// @Param stage path string true "Stage key" Enums(dept-head, validator, cashier)
// @Param body body dto.ReasonRequest true "Rejection reason"
// @Success 200 {object} dto.DisbursementResponse
// @Failure 422 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/disbursements/{disbursement_id}/stages/{stage}/reject [post]
func (h *disbursementHandler) rejectStage(c *gin.Context) {
	stage, ok := stageKeyFromParam(c.Param("stage"))
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Unknown stage"})
		return
	}
	h.transitionWithReason(c, func(ctx *gin.Context, companyID, disbursementID, userID, reason string) (*domain.Disbursement, error) {
		return h.disbursementService.RejectStage(ctx.Request.Context(), companyID, disbursementID, stage, userID, reason)
	})
}

// undoStage godoc
// @Summary Undo the most recent stage approval
// @Tags workflow
// @Accept json
// @Produce json
// @Param company_id path string true "Company ID"
// @Param disbursement_id path string true "Disbursement ID"
// @Param stage path string true "Stage key" Enums(dept-head, validator, cashier)
// @Param body body dto.ReasonRequest true "Undo reason"
// @Success 200 {object} dto.DisbursementResponse
// @Failure 422 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/disbursements/{disbursement_id}/stages/{stage}/undo [post]
func (h *disbursementHandler) undoStage(c *gin.Context) {
	stage, ok := stageKeyFromParam(c.Param("stage"))
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Unknown stage"})
		return
	}
	h.transitionWithReason(c, func(ctx *gin.Context, companyID, disbursementID, userID, reason string) (*domain.Disbursement, error) {
		return h.disbursementService.UndoStage(ctx.Request.Context(), companyID, disbursementID, stage, userID, reason)
	})
}

// executeDisbursement godoc
// @Summary Execute the disbursement payment
// @Tags workflow
// @Accept json
// @Produce json
// @Param company_id path string true "Company ID"
// @Param disbursement_id path string true "Disbursement ID"
// @Param body body dto.TransitionRequest false "Optional notes"
// @Success 200 {object} dto.DisbursementResponse
// @Failure 422 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/disbursements/{disbursement_id}/execute [post]
func (h *disbursementHandler) executeDisbursement(c *gin.Context) {
	h.transition(c, func(ctx *gin.Context, companyID, disbursementID, userID, notes string) (*domain.Disbursement, error) {
		return h.disbursementService.ExecuteDisbursement(ctx.Request.Context(), companyID, disbursementID, userID, notes)
	})
}

// undoRejection godoc
// @Summary Undo the active rejection
// @Tags workflow
// @Accept json
// @Produce json
// @Param company_id path string true "Company ID"
// @Param disbursement_id path string true "Disbursement ID"
// @Param body body dto.ReasonRequest true "Undo reason"
// @Success 200 {object} dto.DisbursementResponse
// @Failure 422 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/disbursements/{disbursement_id}/undo-rejection [post]
func (h *disbursementHandler) undoRejection(c *gin.Context) {
	h.transitionWithReason(c, func(ctx *gin.Context, companyID, disbursementID, userID, reason string) (*domain.Disbursement, error) {
		return h.disbursementService.UndoRejection(ctx.Request.Context(), companyID, disbursementID, userID, reason)
	})
}

// forceComplete godoc
// @Summary Force-complete a disbursement
// @Tags workflow
// @Accept json
// @Produce json
// @Param company_id path string true "Company ID"
// @Param disbursement_id path string true "Disbursement ID"
// @Param body body dto.ReasonRequest true "Force completion reason"
// @Success 200 {object} dto.DisbursementResponse
// @Failure 422 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/disbursements/{disbursement_id}/force-complete [post]
func (h *disbursementHandler) forceComplete(c *gin.Context) {
	h.transitionWithReason(c, func(ctx *gin.Context, companyID, disbursementID, userID, reason string) (*domain.Disbursement, error) {
		return h.disbursementService.ForceComplete(ctx.Request.Context(), companyID, disbursementID, userID, reason)
	})
}

// undoForceCompletion godoc
// @Summary Undo a force completion
// @Tags workflow
// @Accept json
// @Produce json
// @Param company_id path string true "Company ID"
// @Param disbursement_id path string true "Disbursement ID"
// @Param body body dto.ReasonRequest true "Undo reason"
// @Success 200 {object} dto.DisbursementResponse
// @Failure 422 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/disbursements/{disbursement_id}/undo-force-completion [post]
func (h *disbursementHandler) undoForceCompletion(c *gin.Context) {
	h.transitionWithReason(c, func(ctx *gin.Context, companyID, disbursementID, userID, reason string) (*domain.Disbursement, error) {
		return h.disbursementService.UndoForceCompletion(ctx.Request.Context(), companyID, disbursementID, userID, reason)
	})
}

// markRetroactive godoc
// @Summary Mark a disbursement as retroactive
// @Tags workflow
// @Accept json
// @Produce json
// @Param company_id path string true "Company ID"
// @Param disbursement_id path string true "Disbursement ID"
// @Param body body dto.ReasonRequest true "Retroactive reason"
// @Success 200 {object} dto.DisbursementResponse
// @Failure 422 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/disbursements/{disbursement_id}/mark-retroactive [post]
func (h *disbursementHandler) markRetroactive(c *gin.Context) {
	h.transitionWithReason(c, func(ctx *gin.Context, companyID, disbursementID, userID, reason string) (*domain.Disbursement, error) {
		return h.disbursementService.MarkRetroactive(ctx.Request.Context(), companyID, disbursementID, userID, reason)
	})
}

// cancelDisbursement godoc
// @Summary Cancel a disbursement
// @Tags workflow
// @Accept json
// @Produce json
// @Param company_id path string true "Company ID"
// @Param disbursement_id path string true "Disbursement ID"
// @Param body body dto.ReasonRequest true "Cancellation reason"
// @Success 200 {object} dto.DisbursementResponse
// @Failure 422 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/disbursements/{disbursement_id}/cancel [post]
func (h *disbursementHandler) cancelDisbursement(c *gin.Context) {
	h.transitionWithReason(c, func(ctx *gin.Context, companyID, disbursementID, userID, reason string) (*domain.Disbursement, error) {
		return h.disbursementService.CancelDisbursement(ctx.Request.Context(), companyID, disbursementID, userID, reason)
	})
}

// resubmitDisbursement godoc
// @Summary Resubmit a rejected disbursement
// @Tags workflow
// @Accept json
// @Produce json
// @Param company_id path string true "Company ID"
// @Param disbursement_id path string true "Disbursement ID"
// @Param body body dto.TransitionRequest false "Optional notes"
// @Success 200 {object} dto.DisbursementResponse
// @Failure 422 {object} ErrorResponse
// @Security BearerAuth
// @Router /companies/{company_id}/disbursements/{disbursement_id}/resubmit [post]
func (h *disbursementHandler) resubmitDisbursement(c *gin.Context) {
	h.transition(c, func(ctx *gin.Context, companyID, disbursementID, userID, notes string) (*domain.Disbursement, error) {
		return h.disbursementService.ResubmitDisbursement(ctx.Request.Context(), companyID, disbursementID, userID, notes)
	})
}
