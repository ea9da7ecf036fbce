package dto

import (
	"time"

	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
)

// --- Workflow Template DTOs ---

// TemplateStepRequest defines one ordered step in a template create/update request.
type TemplateStepRequest struct {
	Order            int                       `json:"order" binding:"required,min=1"`
	Name             string                    `json:"name" binding:"required"`
	RoleRequired     domain.UserCompanyRole    `json:"roleRequired" binding:"required,oneof=ADMIN AGENT DEPT_HEAD VALIDATOR CASHIER"`
	IsOptional       bool                      `json:"isOptional"`
	StatusOnPending  domain.DisbursementStatus `json:"statusOnPending"`
	StatusOnComplete domain.DisbursementStatus `json:"statusOnComplete"`
}

// CreateWorkflowTemplateRequest defines data for creating a workflow template.
type CreateWorkflowTemplateRequest struct {
	Name      string                `json:"name" binding:"required"`
	Steps     []TemplateStepRequest `json:"steps" binding:"required,min=1,dive"`
	IsDefault bool                  `json:"isDefault"`
}

// UpdateWorkflowTemplateRequest defines data for updating a workflow template.
type UpdateWorkflowTemplateRequest struct {
	Name  *string               `json:"name"`
	Steps []TemplateStepRequest `json:"steps" binding:"omitempty,min=1,dive"`
}

// ToTemplateSteps converts step requests into domain steps.
func ToTemplateSteps(reqs []TemplateStepRequest) []domain.TemplateStep {
	steps := make([]domain.TemplateStep, len(reqs))
	for i, r := range reqs {
		steps[i] = domain.TemplateStep{
			Order:            r.Order,
			Name:             r.Name,
			RoleRequired:     r.RoleRequired,
			IsOptional:       r.IsOptional,
			StatusOnPending:  r.StatusOnPending,
			StatusOnComplete: r.StatusOnComplete,
		}
	}
	return steps
}

// TemplateStepResponse defines one ordered step returned for a template.
type TemplateStepResponse struct {
	Order            int                       `json:"order"`
	Name             string                    `json:"name"`
	RoleRequired     domain.UserCompanyRole    `json:"roleRequired"`
	IsOptional       bool                      `json:"isOptional"`
	StatusOnPending  domain.DisbursementStatus `json:"statusOnPending,omitempty"`
	StatusOnComplete domain.DisbursementStatus `json:"statusOnComplete,omitempty"`
}

// WorkflowTemplateResponse defines data returned for a workflow template.
type WorkflowTemplateResponse struct {
	TemplateID    string                 `json:"templateID"`
	CompanyID     string                 `json:"companyID,omitempty"`
	Name          string                 `json:"name"`
	Steps         []TemplateStepResponse `json:"steps"`
	IsDefault     bool                   `json:"isDefault"`
	IsSystem      bool                   `json:"isSystem"`
	CreatedAt     time.Time              `json:"createdAt"`
	CreatedBy     string                 `json:"createdBy"`
	LastUpdatedAt time.Time              `json:"lastUpdatedAt"`
	LastUpdatedBy string                 `json:"lastUpdatedBy"`
}

// ToWorkflowTemplateResponse converts domain.WorkflowTemplate to DTO.
func ToWorkflowTemplateResponse(t *domain.WorkflowTemplate) WorkflowTemplateResponse {
	steps := make([]TemplateStepResponse, len(t.Steps))
	for i, s := range t.Steps {
		steps[i] = TemplateStepResponse{
			Order:            s.Order,
			Name:             s.Name,
			RoleRequired:     s.RoleRequired,
			IsOptional:       s.IsOptional,
			StatusOnPending:  s.StatusOnPending,
			StatusOnComplete: s.StatusOnComplete,
		}
	}
	return WorkflowTemplateResponse{
		TemplateID:    t.TemplateID,
		CompanyID:     t.CompanyID,
		Name:          t.Name,
		Steps:         steps,
		IsDefault:     t.IsDefault,
		IsSystem:      t.IsSystem,
		CreatedAt:     t.CreatedAt,
		CreatedBy:     t.CreatedBy,
		LastUpdatedAt: t.LastUpdatedAt,
		LastUpdatedBy: t.LastUpdatedBy,
	}
}

// ListWorkflowTemplatesResponse wraps a list of templates.
type ListWorkflowTemplatesResponse struct {
	Templates []WorkflowTemplateResponse `json:"templates"`
}

// ToListWorkflowTemplatesResponse converts a slice of domain.WorkflowTemplate to DTO.
func ToListWorkflowTemplatesResponse(ts []domain.WorkflowTemplate) ListWorkflowTemplatesResponse {
	list := make([]WorkflowTemplateResponse, len(ts))
	for i := range ts {
		list[i] = ToWorkflowTemplateResponse(&ts[i])
	}
	return ListWorkflowTemplatesResponse{Templates: list}
}
