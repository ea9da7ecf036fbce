package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApprovalSettings is the company-level policy input read by the workflow
// engine. It is passed into policy evaluation as an immutable snapshot, never
// looked up ambiently at transition time.
type ApprovalSettings struct {
	RequireDeptHeadApproval  bool `json:"requireDeptHeadApproval"`
	RequireValidatorApproval bool `json:"requireValidatorApproval"`
	RequireCashierExecution  bool `json:"requireCashierExecution"`
	// MaxAmountNoApproval is the threshold at or below which approval stages
	// are auto-skipped. Amounts strictly greater require approval.
	MaxAmountNoApproval decimal.Decimal `json:"maxAmountNoApproval"`
}

// Company represents a tenant owning disbursements, members and templates.
type Company struct {
	CompanyID           string           `json:"companyID"` // Primary key (UUID)
	Name                string           `json:"name"`
	DefaultCurrencyCode *string          `json:"defaultCurrencyCode"`
	IsActive            bool             `json:"isActive"`
	ApprovalSettings    ApprovalSettings `json:"approvalSettings"`
	// ActiveTemplateID points at the company's active workflow template.
	// Display-only: the execution engine derives its stage plan from
	// ApprovalSettings, not from the template.
	ActiveTemplateID *string `json:"activeTemplateID,omitempty"`
	AuditFields
}

// UserCompanyRole defines the roles a user can hold within a company.
type UserCompanyRole string

const (
	RoleAdmin     UserCompanyRole = "ADMIN"
	RoleAgent     UserCompanyRole = "AGENT"
	RoleDeptHead  UserCompanyRole = "DEPT_HEAD"
	RoleValidator UserCompanyRole = "VALIDATOR"
	RoleCashier   UserCompanyRole = "CASHIER"
	RoleReadOnly  UserCompanyRole = "READONLY"
	RoleRemoved   UserCompanyRole = "REMOVED"
)

// UserCompany represents the membership of a User in a Company.
type UserCompany struct {
	UserID    string          `json:"userID"`
	UserName  string          `json:"userName"`
	CompanyID string          `json:"companyID"`
	Role      UserCompanyRole `json:"role"`
	JoinedAt  time.Time       `json:"joinedAt"`
}

// Actor is the identity attached to every workflow transition. It is supplied
// by the identity provider and trusted as-is; the engine records the asserted
// role for audit but does not enforce role preconditions itself.
type Actor struct {
	ActorID string `json:"actorID"`
	Name    string `json:"name"`
	Role    string `json:"role"`
}
