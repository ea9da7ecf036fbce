package repositories

import (
	"context"
	"time"

	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
)

// WorkflowTemplateReader defines read operations for workflow template data
type WorkflowTemplateReader interface {
	// FindTemplateByID retrieves a specific workflow template by its ID.
	FindTemplateByID(ctx context.Context, templateID string) (*domain.WorkflowTemplate, error)

	// ListTemplatesByCompany retrieves all workflow templates visible to a company,
	// including shared system templates.
	ListTemplatesByCompany(ctx context.Context, companyID string) ([]domain.WorkflowTemplate, error)
}

// WorkflowTemplateWriter defines write operations for workflow template data
type WorkflowTemplateWriter interface {
	// SaveTemplate persists a new workflow template.
	SaveTemplate(ctx context.Context, template domain.WorkflowTemplate) error

	// UpdateTemplate updates an existing template's name and steps.
	UpdateTemplate(ctx context.Context, template domain.WorkflowTemplate) error

	// MarkTemplateDeleted marks a template as deleted (soft delete).
	MarkTemplateDeleted(ctx context.Context, templateID string, deletedAt time.Time, deletedBy string) error
}

// WorkflowTemplateRepositoryFacade combines all template-related repository interfaces
// This is a facade for clients that need access to all operations
type WorkflowTemplateRepositoryFacade interface {
	WorkflowTemplateReader
	WorkflowTemplateWriter
}
