package services

import (
	"context"

	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
)

// CompanyReaderSvc defines read operations for company data
type CompanyReaderSvc interface {
	// FindCompanyByID retrieves a specific company by its ID.
	FindCompanyByID(ctx context.Context, companyID string) (*domain.Company, error)

	// ListUserCompanies retrieves companies a user belongs to.
	ListUserCompanies(ctx context.Context, userID string) ([]domain.Company, error)

	// GetApprovalSettings returns the company's current workflow policy snapshot.
	GetApprovalSettings(ctx context.Context, companyID string, requestingUserID string) (*domain.ApprovalSettings, error)

	// GetUserCompanyRole retrieves a user's membership in a company.
	GetUserCompanyRole(ctx context.Context, userID, companyID string) (*domain.UserCompany, error)
}

// CompanyWriterSvc defines write operations for company data
type CompanyWriterSvc interface {
	// CreateCompany persists a new company with default workflow settings.
	CreateCompany(ctx context.Context, name, defaultCurrencyCode, creatorUserID string) (*domain.Company, error)

	// UpdateApprovalSettings replaces the company's workflow policy. Only admins may change it.
	UpdateApprovalSettings(ctx context.Context, companyID string, settings domain.ApprovalSettings, requestingUserID string) (*domain.Company, error)

	// SetActiveWorkflowTemplate points the company at a template for display purposes.
	// A nil templateID clears the association.
	SetActiveWorkflowTemplate(ctx context.Context, companyID string, templateID *string, requestingUserID string) error
}

// CompanyMembershipSvc defines operations for managing company membership
type CompanyMembershipSvc interface {
	// AddUserToCompany adds a user to a company with a specific role.
	AddUserToCompany(ctx context.Context, addingUserID, targetUserID, companyID string, role domain.UserCompanyRole) error

	// RemoveUserFromCompany removes a user from a company.
	// Only company admins can remove users from a company.
	RemoveUserFromCompany(ctx context.Context, requestingUserID, targetUserID, companyID string) error

	// UpdateUserCompanyRole updates a user's role in a company.
	// Only company admins can update user roles.
	UpdateUserCompanyRole(ctx context.Context, requestingUserID, targetUserID, companyID string, newRole domain.UserCompanyRole) error
}

// CompanyAuthorizerSvc defines operations for company authorization
type CompanyAuthorizerSvc interface {
	// AuthorizeUserAction checks if a user has required permissions for a company.
	AuthorizeUserAction(ctx context.Context, userID, companyID string, requiredRole domain.UserCompanyRole) error
}

// CompanySvcFacade combines all company-related service interfaces
// This is a facade for clients that need access to all operations
type CompanySvcFacade interface {
	CompanyReaderSvc
	CompanyWriterSvc
	CompanyMembershipSvc
	CompanyAuthorizerSvc
}
