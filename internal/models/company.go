package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Company is the database row shape of a tenant.
type Company struct {
	CompanyID           string         `db:"company_id"`
	Name                string         `db:"name"`
	DefaultCurrencyCode sql.NullString `db:"default_currency_code"`
	IsActive            bool           `db:"is_active"`

	RequireDeptHeadApproval  bool            `db:"require_dept_head_approval"`
	RequireValidatorApproval bool            `db:"require_validator_approval"`
	RequireCashierExecution  bool            `db:"require_cashier_execution"`
	MaxAmountNoApproval      decimal.Decimal `db:"max_amount_no_approval"`

	ActiveTemplateID sql.NullString `db:"active_template_id"`

	AuditFields
}

// UserCompany is one membership row. Removed members keep their row with the
// REMOVED role.
type UserCompany struct {
	UserID    string    `db:"user_id"`
	CompanyID string    `db:"company_id"`
	Role      string    `db:"role"`
	JoinedAt  time.Time `db:"joined_at"`
}
