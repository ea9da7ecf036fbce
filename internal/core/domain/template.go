package domain

import "time"

// TemplateStep is one ordered entry in a workflow template.
type TemplateStep struct {
	Order            int                `json:"order"`
	Name             string             `json:"name"`
	RoleRequired     UserCompanyRole    `json:"roleRequired"`
	IsOptional       bool               `json:"isOptional"`
	StatusOnPending  DisbursementStatus `json:"statusOnPending"`
	StatusOnComplete DisbursementStatus `json:"statusOnComplete"`
}

// WorkflowTemplate is a company-definable ordered pipeline declaration. It has
// its own lifecycle, independent of any disbursement. The execution engine
// keeps its fixed four-stage plan; templates are declarative configuration
// surfaced to clients, not an execution input.
type WorkflowTemplate struct {
	TemplateID string         `json:"templateID"` // Primary key (UUID)
	CompanyID  string         `json:"companyID"`
	Name       string         `json:"name"`
	Steps      []TemplateStep `json:"steps"`
	IsDefault  bool           `json:"isDefault"`
	IsSystem   bool           `json:"isSystem"`
	AuditFields
	DeletedAt *time.Time `json:"deletedAt,omitempty"` // Soft delete marker
}
