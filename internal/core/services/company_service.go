package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tesoria/disbursement_ops_app/internal/apperrors"
	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
	portsrepo "github.com/tesoria/disbursement_ops_app/internal/core/ports/repositories"
	portssvc "github.com/tesoria/disbursement_ops_app/internal/core/ports/services"
)

// companyService implements the CompanySvcFacade interface
type companyService struct {
	BaseService
	companyRepo  portsrepo.CompanyRepositoryFacade
	templateRepo portsrepo.WorkflowTemplateReader
}

// NewCompanyService creates a new company service with the provided dependencies
func NewCompanyService(
	companyRepo portsrepo.CompanyRepositoryFacade,
	templateRepo portsrepo.WorkflowTemplateReader,
) portssvc.CompanySvcFacade {
	return &companyService{
		companyRepo:  companyRepo,
		templateRepo: templateRepo,
	}
}

// Ensure companyService implements the CompanySvcFacade interface
var _ portssvc.CompanySvcFacade = (*companyService)(nil)

// FindCompanyByID retrieves a company by its ID
func (s *companyService) FindCompanyByID(ctx context.Context, companyID string) (*domain.Company, error) {
	company, err := s.companyRepo.FindCompanyByID(ctx, companyID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find company by ID",
				slog.String("company_id", companyID))
		}
		return nil, err
	}

	s.LogDebug(ctx, "Company retrieved successfully",
		slog.String("company_id", company.CompanyID))
	return company, nil
}

// ListUserCompanies retrieves all companies a user belongs to
func (s *companyService) ListUserCompanies(ctx context.Context, userID string) ([]domain.Company, error) {
	companies, err := s.companyRepo.ListCompaniesByUserID(ctx, userID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list companies for user",
			slog.String("user_id", userID))
		return nil, err
	}

	if companies == nil {
		return []domain.Company{}, nil
	}

	s.LogDebug(ctx, "Companies listed successfully",
		slog.Int("count", len(companies)),
		slog.String("user_id", userID))
	return companies, nil
}

// GetApprovalSettings returns the company's current workflow policy snapshot
func (s *companyService) GetApprovalSettings(ctx context.Context, companyID string, requestingUserID string) (*domain.ApprovalSettings, error) {
	if err := s.AuthorizeUserAction(ctx, requestingUserID, companyID, domain.RoleReadOnly); err != nil {
		return nil, err
	}

	company, err := s.FindCompanyByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	settings := company.ApprovalSettings
	return &settings, nil
}

// GetUserCompanyRole retrieves a user's membership in a company
func (s *companyService) GetUserCompanyRole(ctx context.Context, userID, companyID string) (*domain.UserCompany, error) {
	membership, err := s.companyRepo.FindUserCompanyRole(ctx, userID, companyID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find user company role",
				slog.String("user_id", userID),
				slog.String("company_id", companyID))
		}
		return nil, err
	}
	return membership, nil
}

// CreateCompany creates a new company with default workflow settings
func (s *companyService) CreateCompany(ctx context.Context, name, defaultCurrencyCode, creatorUserID string) (*domain.Company, error) {
	if name == "" {
		return nil, apperrors.NewAppError(400, "company name is required", apperrors.ErrValidation)
	}

	now := time.Now()
	companyID := uuid.NewString()

	company := domain.Company{
		CompanyID: companyID,
		Name:      name,
		IsActive:  true,
		// New companies require every stage until an admin relaxes the policy.
		ApprovalSettings: domain.ApprovalSettings{
			RequireDeptHeadApproval:  true,
			RequireValidatorApproval: true,
			RequireCashierExecution:  true,
		},
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if defaultCurrencyCode != "" {
		company.DefaultCurrencyCode = &defaultCurrencyCode
	}

	err := s.companyRepo.SaveCompany(ctx, company)
	if err != nil {
		s.LogError(ctx, err, "Failed to save company",
			slog.String("company_id", company.CompanyID))
		return nil, err
	}

	// Add creator as an admin to the new company
	membershipErr := s.AddUserToCompany(ctx, creatorUserID, creatorUserID, companyID, domain.RoleAdmin)
	if membershipErr != nil {
		s.LogError(ctx, membershipErr, "Failed to add creator as admin to new company",
			slog.String("company_id", company.CompanyID),
			slog.String("user_id", creatorUserID))
		// The company itself was created; membership can be repaired manually.
	}

	s.LogInfo(ctx, "Company created successfully",
		slog.String("company_id", company.CompanyID),
		slog.String("creator_id", creatorUserID))
	return &company, nil
}

// UpdateApprovalSettings replaces the company's workflow policy
func (s *companyService) UpdateApprovalSettings(ctx context.Context, companyID string, settings domain.ApprovalSettings, requestingUserID string) (*domain.Company, error) {
	if err := s.AuthorizeUserAction(ctx, requestingUserID, companyID, domain.RoleAdmin); err != nil {
		s.LogError(ctx, err, "User not authorized to update approval settings",
			slog.String("user_id", requestingUserID),
			slog.String("company_id", companyID))
		return nil, err
	}

	if settings.MaxAmountNoApproval.IsNegative() {
		return nil, apperrors.NewAppError(400, "maxAmountNoApproval must not be negative", apperrors.ErrValidation)
	}

	company, err := s.FindCompanyByID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	if err := s.companyRepo.UpdateApprovalSettings(ctx, companyID, settings, requestingUserID); err != nil {
		s.LogError(ctx, err, "Failed to update approval settings",
			slog.String("company_id", companyID))
		return nil, err
	}

	company.ApprovalSettings = settings
	company.LastUpdatedAt = time.Now()
	company.LastUpdatedBy = requestingUserID

	s.LogInfo(ctx, "Approval settings updated",
		slog.String("company_id", companyID),
		slog.Bool("require_dept_head", settings.RequireDeptHeadApproval),
		slog.Bool("require_validator", settings.RequireValidatorApproval),
		slog.Bool("require_cashier", settings.RequireCashierExecution),
		slog.String("max_amount_no_approval", settings.MaxAmountNoApproval.String()))
	return company, nil
}

// SetActiveWorkflowTemplate points the company at a template for display purposes
func (s *companyService) SetActiveWorkflowTemplate(ctx context.Context, companyID string, templateID *string, requestingUserID string) error {
	if err := s.AuthorizeUserAction(ctx, requestingUserID, companyID, domain.RoleAdmin); err != nil {
		return err
	}

	if templateID != nil {
		template, err := s.templateRepo.FindTemplateByID(ctx, *templateID)
		if err != nil {
			s.LogError(ctx, err, "Failed to resolve workflow template",
				slog.String("template_id", *templateID))
			return fmt.Errorf("invalid workflow template: %w", err)
		}
		if template.CompanyID != companyID && !template.IsSystem {
			return apperrors.ErrForbidden
		}
	}

	if err := s.companyRepo.UpdateActiveTemplate(ctx, companyID, templateID, requestingUserID); err != nil {
		s.LogError(ctx, err, "Failed to set active workflow template",
			slog.String("company_id", companyID))
		return err
	}

	s.LogInfo(ctx, "Active workflow template updated",
		slog.String("company_id", companyID))
	return nil
}

// AddUserToCompany adds a user to a company with a specific role
func (s *companyService) AddUserToCompany(ctx context.Context, addingUserID, targetUserID, companyID string, role domain.UserCompanyRole) error {
	// Check if adding user has permission (must be admin)
	if addingUserID != targetUserID { // Self-assignment is permitted (e.g., creator adding self as admin)
		err := s.AuthorizeUserAction(ctx, addingUserID, companyID, domain.RoleAdmin)
		if err != nil {
			s.LogError(ctx, err, "User not authorized to add members to company",
				slog.String("adding_user_id", addingUserID),
				slog.String("company_id", companyID))
			return err
		}
	}

	if role == domain.RoleRemoved {
		return apperrors.NewAppError(400, "cannot add a user with the REMOVED role", apperrors.ErrValidation)
	}

	membership := domain.UserCompany{
		UserID:    targetUserID,
		CompanyID: companyID,
		Role:      role,
		JoinedAt:  time.Now(),
	}

	err := s.companyRepo.AddUserToCompany(ctx, membership)
	if err != nil {
		s.LogError(ctx, err, "Failed to add user to company",
			slog.String("target_user_id", targetUserID),
			slog.String("company_id", companyID))
		return err
	}

	s.LogInfo(ctx, "User added to company successfully",
		slog.String("target_user_id", targetUserID),
		slog.String("company_id", companyID),
		slog.String("role", string(role)))
	return nil
}

// RemoveUserFromCompany removes a user from a company
func (s *companyService) RemoveUserFromCompany(ctx context.Context, requestingUserID, targetUserID, companyID string) error {
	if err := s.AuthorizeUserAction(ctx, requestingUserID, companyID, domain.RoleAdmin); err != nil {
		s.LogError(ctx, err, "User not authorized to remove members from company",
			slog.String("requesting_user_id", requestingUserID),
			slog.String("company_id", companyID))
		return err
	}

	if requestingUserID == targetUserID {
		return apperrors.NewAppError(400, "admins cannot remove themselves from a company", apperrors.ErrValidation)
	}

	// Removal is a role change: the membership row survives for audit trails.
	err := s.companyRepo.UpdateUserCompanyRole(ctx, targetUserID, companyID, domain.RoleRemoved, requestingUserID)
	if err != nil {
		s.LogError(ctx, err, "Failed to remove user from company",
			slog.String("target_user_id", targetUserID),
			slog.String("company_id", companyID))
		return err
	}

	s.LogInfo(ctx, "User removed from company",
		slog.String("target_user_id", targetUserID),
		slog.String("company_id", companyID))
	return nil
}

// UpdateUserCompanyRole updates a user's role in a company
func (s *companyService) UpdateUserCompanyRole(ctx context.Context, requestingUserID, targetUserID, companyID string, newRole domain.UserCompanyRole) error {
	if err := s.AuthorizeUserAction(ctx, requestingUserID, companyID, domain.RoleAdmin); err != nil {
		s.LogError(ctx, err, "User not authorized to update member roles",
			slog.String("requesting_user_id", requestingUserID),
			slog.String("company_id", companyID))
		return err
	}

	if newRole == domain.RoleRemoved {
		return apperrors.NewAppError(400, "use member removal instead of assigning the REMOVED role", apperrors.ErrValidation)
	}

	err := s.companyRepo.UpdateUserCompanyRole(ctx, targetUserID, companyID, newRole, requestingUserID)
	if err != nil {
		s.LogError(ctx, err, "Failed to update user company role",
			slog.String("target_user_id", targetUserID),
			slog.String("company_id", companyID))
		return err
	}

	s.LogInfo(ctx, "User company role updated",
		slog.String("target_user_id", targetUserID),
		slog.String("company_id", companyID),
		slog.String("new_role", string(newRole)))
	return nil
}

// AuthorizeUserAction checks if a user has required permissions for a company
func (s *companyService) AuthorizeUserAction(ctx context.Context, userID, companyID string, requiredRole domain.UserCompanyRole) error {
	membership, err := s.companyRepo.FindUserCompanyRole(ctx, userID, companyID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.LogDebug(ctx, "User not a member of company",
				slog.String("user_id", userID),
				slog.String("company_id", companyID))
			return apperrors.ErrForbidden
		}
		s.LogError(ctx, err, "Failed to find user company role",
			slog.String("user_id", userID),
			slog.String("company_id", companyID))
		return err
	}

	if !hasRequiredRole(membership.Role, requiredRole) {
		s.LogDebug(ctx, "User does not have required role",
			slog.String("user_id", userID),
			slog.String("company_id", companyID),
			slog.String("user_role", string(membership.Role)),
			slog.String("required_role", string(requiredRole)))
		return apperrors.ErrForbidden
	}

	return nil
}

// hasRequiredRole checks if the user's role meets or exceeds the required role.
// ADMIN satisfies every requirement; the workflow roles are distinct duties and
// match only themselves; READONLY is satisfied by any active membership.
func hasRequiredRole(userRole, requiredRole domain.UserCompanyRole) bool {
	if userRole == domain.RoleRemoved {
		return false
	}
	if userRole == domain.RoleAdmin {
		return true
	}
	switch requiredRole {
	case domain.RoleReadOnly:
		return true
	case domain.RoleAgent, domain.RoleDeptHead, domain.RoleValidator, domain.RoleCashier:
		return userRole == requiredRole
	default:
		return false
	}
}
