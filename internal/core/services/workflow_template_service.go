package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tesoria/disbursement_ops_app/internal/apperrors"
	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
	portsrepo "github.com/tesoria/disbursement_ops_app/internal/core/ports/repositories"
	portssvc "github.com/tesoria/disbursement_ops_app/internal/core/ports/services"
	"github.com/tesoria/disbursement_ops_app/internal/dto"
)

// workflowTemplateService implements the WorkflowTemplateSvcFacade interface
type workflowTemplateService struct {
	BaseService
	templateRepo portsrepo.WorkflowTemplateRepositoryFacade
}

// NewWorkflowTemplateService creates a new workflow template service
func NewWorkflowTemplateService(
	templateRepo portsrepo.WorkflowTemplateRepositoryFacade,
	authorizer portssvc.CompanyAuthorizerSvc,
) portssvc.WorkflowTemplateSvcFacade {
	return &workflowTemplateService{
		BaseService:  BaseService{CompanyAuthorizer: authorizer},
		templateRepo: templateRepo,
	}
}

// Ensure workflowTemplateService implements the WorkflowTemplateSvcFacade interface
var _ portssvc.WorkflowTemplateSvcFacade = (*workflowTemplateService)(nil)

// GetTemplateByID retrieves a specific workflow template by its ID
func (s *workflowTemplateService) GetTemplateByID(ctx context.Context, companyID string, templateID string, requestingUserID string) (*domain.WorkflowTemplate, error) {
	if err := s.AuthorizeUser(ctx, requestingUserID, companyID, domain.RoleReadOnly); err != nil {
		return nil, err
	}

	template, err := s.findVisibleTemplate(ctx, companyID, templateID)
	if err != nil {
		return nil, err
	}
	return template, nil
}

// ListTemplates retrieves all templates visible to a company, including system templates
func (s *workflowTemplateService) ListTemplates(ctx context.Context, companyID string, requestingUserID string) ([]domain.WorkflowTemplate, error) {
	if err := s.AuthorizeUser(ctx, requestingUserID, companyID, domain.RoleReadOnly); err != nil {
		return nil, err
	}

	templates, err := s.templateRepo.ListTemplatesByCompany(ctx, companyID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list workflow templates",
			slog.String("company_id", companyID))
		return nil, err
	}

	if templates == nil {
		return []domain.WorkflowTemplate{}, nil
	}
	return templates, nil
}

// CreateTemplate persists a new workflow template for a company
func (s *workflowTemplateService) CreateTemplate(ctx context.Context, companyID string, req dto.CreateWorkflowTemplateRequest, creatorUserID string) (*domain.WorkflowTemplate, error) {
	if err := s.AuthorizeUser(ctx, creatorUserID, companyID, domain.RoleAdmin); err != nil {
		return nil, err
	}

	steps := dto.ToTemplateSteps(req.Steps)
	if err := validateTemplateSteps(steps); err != nil {
		return nil, err
	}

	now := time.Now()
	template := domain.WorkflowTemplate{
		TemplateID: uuid.NewString(),
		CompanyID:  companyID,
		Name:       req.Name,
		Steps:      steps,
		IsDefault:  req.IsDefault,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.templateRepo.SaveTemplate(ctx, template); err != nil {
		s.LogError(ctx, err, "Failed to save workflow template",
			slog.String("template_id", template.TemplateID))
		return nil, err
	}

	s.LogInfo(ctx, "Workflow template created",
		slog.String("template_id", template.TemplateID),
		slog.String("company_id", companyID),
		slog.Int("step_count", len(steps)))
	return &template, nil
}

// UpdateTemplate updates a template's name and steps. System templates are immutable.
func (s *workflowTemplateService) UpdateTemplate(ctx context.Context, companyID string, templateID string, req dto.UpdateWorkflowTemplateRequest, requestingUserID string) (*domain.WorkflowTemplate, error) {
	if err := s.AuthorizeUser(ctx, requestingUserID, companyID, domain.RoleAdmin); err != nil {
		return nil, err
	}

	template, err := s.findVisibleTemplate(ctx, companyID, templateID)
	if err != nil {
		return nil, err
	}

	if template.IsSystem {
		return nil, apperrors.NewAppError(403, "system templates cannot be modified", apperrors.ErrForbidden)
	}
	if template.CompanyID != companyID {
		return nil, apperrors.ErrNotFound
	}

	if req.Name != nil {
		template.Name = *req.Name
	}
	if req.Steps != nil {
		steps := dto.ToTemplateSteps(req.Steps)
		if err := validateTemplateSteps(steps); err != nil {
			return nil, err
		}
		template.Steps = steps
	}
	template.LastUpdatedAt = time.Now()
	template.LastUpdatedBy = requestingUserID

	if err := s.templateRepo.UpdateTemplate(ctx, *template); err != nil {
		s.LogError(ctx, err, "Failed to update workflow template",
			slog.String("template_id", templateID))
		return nil, err
	}

	s.LogInfo(ctx, "Workflow template updated",
		slog.String("template_id", templateID))
	return template, nil
}

// DeleteTemplate marks a template as deleted (soft delete)
func (s *workflowTemplateService) DeleteTemplate(ctx context.Context, companyID string, templateID string, requestingUserID string) error {
	if err := s.AuthorizeUser(ctx, requestingUserID, companyID, domain.RoleAdmin); err != nil {
		return err
	}

	template, err := s.findVisibleTemplate(ctx, companyID, templateID)
	if err != nil {
		return err
	}

	if template.IsSystem {
		return apperrors.NewAppError(403, "system templates cannot be deleted", apperrors.ErrForbidden)
	}
	if template.CompanyID != companyID {
		return apperrors.ErrNotFound
	}

	if err := s.templateRepo.MarkTemplateDeleted(ctx, templateID, time.Now(), requestingUserID); err != nil {
		s.LogError(ctx, err, "Failed to delete workflow template",
			slog.String("template_id", templateID))
		return err
	}

	s.LogInfo(ctx, "Workflow template deleted",
		slog.String("template_id", templateID),
		slog.String("deleted_by", requestingUserID))
	return nil
}

// findVisibleTemplate loads a template visible to the company: either owned by
// it or shared as a system template.
func (s *workflowTemplateService) findVisibleTemplate(ctx context.Context, companyID, templateID string) (*domain.WorkflowTemplate, error) {
	template, err := s.templateRepo.FindTemplateByID(ctx, templateID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find workflow template",
				slog.String("template_id", templateID))
		}
		return nil, err
	}
	if template.DeletedAt != nil {
		return nil, apperrors.ErrNotFound
	}
	if template.CompanyID != companyID && !template.IsSystem {
		return nil, apperrors.ErrNotFound
	}
	return template, nil
}

// validateTemplateSteps checks structural consistency of a template's steps.
// Templates are declarative configuration: steps must be contiguous starting at
// 1, with unique names.
func validateTemplateSteps(steps []domain.TemplateStep) error {
	if len(steps) == 0 {
		return apperrors.NewAppError(400, "a template requires at least one step", apperrors.ErrValidation)
	}

	seenOrders := make(map[int]bool, len(steps))
	seenNames := make(map[string]bool, len(steps))
	for _, step := range steps {
		if seenOrders[step.Order] {
			return apperrors.NewAppError(400, "template step orders must be unique", apperrors.ErrValidation)
		}
		if seenNames[step.Name] {
			return apperrors.NewAppError(400, "template step names must be unique", apperrors.ErrValidation)
		}
		seenOrders[step.Order] = true
		seenNames[step.Name] = true
	}
	for i := 1; i <= len(steps); i++ {
		if !seenOrders[i] {
			return apperrors.NewAppError(400, "template step orders must be contiguous starting at 1", apperrors.ErrValidation)
		}
	}
	return nil
}
