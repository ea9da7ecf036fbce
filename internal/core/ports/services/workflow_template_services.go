package services

import (
	"context"

	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
	"github.com/tesoria/disbursement_ops_app/internal/dto"
)

// WorkflowTemplateReaderSvc defines read operations for workflow templates
type WorkflowTemplateReaderSvc interface {
	// GetTemplateByID retrieves a specific workflow template by its ID.
	GetTemplateByID(ctx context.Context, companyID string, templateID string, requestingUserID string) (*domain.WorkflowTemplate, error)

	// ListTemplates retrieves all templates visible to a company, including system templates.
	ListTemplates(ctx context.Context, companyID string, requestingUserID string) ([]domain.WorkflowTemplate, error)
}

// WorkflowTemplateWriterSvc defines write operations for workflow templates
type WorkflowTemplateWriterSvc interface {
	// CreateTemplate persists a new workflow template for a company.
	CreateTemplate(ctx context.Context, companyID string, req dto.CreateWorkflowTemplateRequest, creatorUserID string) (*domain.WorkflowTemplate, error)

	// UpdateTemplate updates a template's name and steps. System templates are immutable.
	UpdateTemplate(ctx context.Context, companyID string, templateID string, req dto.UpdateWorkflowTemplateRequest, requestingUserID string) (*domain.WorkflowTemplate, error)

	// DeleteTemplate marks a template as deleted (soft delete).
	DeleteTemplate(ctx context.Context, companyID string, templateID string, requestingUserID string) error
}

// WorkflowTemplateSvcFacade combines all template-related service interfaces
type WorkflowTemplateSvcFacade interface {
	WorkflowTemplateReaderSvc
	WorkflowTemplateWriterSvc
}
