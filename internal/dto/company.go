package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
)

// --- Company DTOs ---

// CreateCompanyRequest defines data for creating a new company.
type CreateCompanyRequest struct {
	Name                string `json:"name" binding:"required"`
	DefaultCurrencyCode string `json:"defaultCurrencyCode" binding:"omitempty,len=3"`
}

// ApprovalSettingsRequest defines data for replacing a company's workflow policy.
type ApprovalSettingsRequest struct {
	RequireDeptHeadApproval  bool            `json:"requireDeptHeadApproval"`
	RequireValidatorApproval bool            `json:"requireValidatorApproval"`
	RequireCashierExecution  bool            `json:"requireCashierExecution"`
	MaxAmountNoApproval      decimal.Decimal `json:"maxAmountNoApproval" binding:"dgte0"`
}

// ToApprovalSettings converts the request into the domain snapshot.
func (r ApprovalSettingsRequest) ToApprovalSettings() domain.ApprovalSettings {
	return domain.ApprovalSettings{
		RequireDeptHeadApproval:  r.RequireDeptHeadApproval,
		RequireValidatorApproval: r.RequireValidatorApproval,
		RequireCashierExecution:  r.RequireCashierExecution,
		MaxAmountNoApproval:      r.MaxAmountNoApproval,
	}
}

// ApprovalSettingsResponse defines the workflow policy data returned for a company.
type ApprovalSettingsResponse struct {
	RequireDeptHeadApproval  bool            `json:"requireDeptHeadApproval"`
	RequireValidatorApproval bool            `json:"requireValidatorApproval"`
	RequireCashierExecution  bool            `json:"requireCashierExecution"`
	MaxAmountNoApproval      decimal.Decimal `json:"maxAmountNoApproval"`
}

// CompanyResponse defines data returned for a company.
type CompanyResponse struct {
	CompanyID           string                   `json:"companyID"`
	Name                string                   `json:"name"`
	DefaultCurrencyCode *string                  `json:"defaultCurrencyCode,omitempty"`
	IsActive            bool                     `json:"isActive"`
	ApprovalSettings    ApprovalSettingsResponse `json:"approvalSettings"`
	ActiveTemplateID    *string                  `json:"activeTemplateID,omitempty"`
	CreatedAt           time.Time                `json:"createdAt"`
	CreatedBy           string                   `json:"createdBy"`
	LastUpdatedAt       time.Time                `json:"lastUpdatedAt"`
	LastUpdatedBy       string                   `json:"lastUpdatedBy"`
}

// ToCompanyResponse converts domain.Company to DTO.
func ToCompanyResponse(c *domain.Company) CompanyResponse {
	return CompanyResponse{
		CompanyID:           c.CompanyID,
		Name:                c.Name,
		DefaultCurrencyCode: c.DefaultCurrencyCode,
		IsActive:            c.IsActive,
		ApprovalSettings: ApprovalSettingsResponse{
			RequireDeptHeadApproval:  c.ApprovalSettings.RequireDeptHeadApproval,
			RequireValidatorApproval: c.ApprovalSettings.RequireValidatorApproval,
			RequireCashierExecution:  c.ApprovalSettings.RequireCashierExecution,
			MaxAmountNoApproval:      c.ApprovalSettings.MaxAmountNoApproval,
		},
		ActiveTemplateID: c.ActiveTemplateID,
		CreatedAt:        c.CreatedAt,
		CreatedBy:        c.CreatedBy,
		LastUpdatedAt:    c.LastUpdatedAt,
		LastUpdatedBy:    c.LastUpdatedBy,
	}
}

// ListCompaniesResponse wraps a list of companies.
type ListCompaniesResponse struct {
	Companies []CompanyResponse `json:"companies"`
}

// ToListCompaniesResponse converts a slice of domain.Company to DTO.
func ToListCompaniesResponse(cs []domain.Company) ListCompaniesResponse {
	list := make([]CompanyResponse, len(cs))
	for i := range cs {
		list[i] = ToCompanyResponse(&cs[i])
	}
	return ListCompaniesResponse{Companies: list}
}

// --- User Company Membership DTOs ---

// AddUserToCompanyRequest defines data for adding a user to a company.
type AddUserToCompanyRequest struct {
	UserID string                 `json:"userID" binding:"required"`
	Role   domain.UserCompanyRole `json:"role" binding:"required,oneof=ADMIN AGENT DEPT_HEAD VALIDATOR CASHIER READONLY"`
}

// UpdateUserRoleRequest defines data for changing a member's role.
type UpdateUserRoleRequest struct {
	Role domain.UserCompanyRole `json:"role" binding:"required,oneof=ADMIN AGENT DEPT_HEAD VALIDATOR CASHIER READONLY"`
}

// UserCompanyResponse defines data returned about a user's membership.
type UserCompanyResponse struct {
	UserID    string                 `json:"userID"`
	UserName  string                 `json:"userName,omitempty"`
	CompanyID string                 `json:"companyID"`
	Role      domain.UserCompanyRole `json:"role"`
	JoinedAt  time.Time              `json:"joinedAt"`
}

// ToUserCompanyResponse converts domain.UserCompany to DTO.
func ToUserCompanyResponse(uc *domain.UserCompany) UserCompanyResponse {
	return UserCompanyResponse{
		UserID:    uc.UserID,
		UserName:  uc.UserName,
		CompanyID: uc.CompanyID,
		Role:      uc.Role,
		JoinedAt:  uc.JoinedAt,
	}
}
