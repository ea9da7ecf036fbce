package mapping

import (
	"database/sql"

	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
	"github.com/tesoria/disbursement_ops_app/internal/models"
)

// ToModelCompany converts a domain Company to a model Company
func ToModelCompany(d domain.Company) models.Company {
	m := models.Company{
		CompanyID:                d.CompanyID,
		Name:                     d.Name,
		IsActive:                 d.IsActive,
		RequireDeptHeadApproval:  d.ApprovalSettings.RequireDeptHeadApproval,
		RequireValidatorApproval: d.ApprovalSettings.RequireValidatorApproval,
		RequireCashierExecution:  d.ApprovalSettings.RequireCashierExecution,
		MaxAmountNoApproval:      d.ApprovalSettings.MaxAmountNoApproval,
		AuditFields:              ToModelAuditFields(d.AuditFields),
	}
	if d.DefaultCurrencyCode != nil {
		m.DefaultCurrencyCode = sql.NullString{String: *d.DefaultCurrencyCode, Valid: true}
	}
	if d.ActiveTemplateID != nil {
		m.ActiveTemplateID = sql.NullString{String: *d.ActiveTemplateID, Valid: true}
	}
	return m
}

// ToDomainCompany converts a model Company to a domain Company
func ToDomainCompany(m models.Company) domain.Company {
	d := domain.Company{
		CompanyID: m.CompanyID,
		Name:      m.Name,
		IsActive:  m.IsActive,
		ApprovalSettings: domain.ApprovalSettings{
			RequireDeptHeadApproval:  m.RequireDeptHeadApproval,
			RequireValidatorApproval: m.RequireValidatorApproval,
			RequireCashierExecution:  m.RequireCashierExecution,
			MaxAmountNoApproval:      m.MaxAmountNoApproval,
		},
		AuditFields: ToDomainAuditFields(m.AuditFields),
	}
	if m.DefaultCurrencyCode.Valid {
		currencyCode := m.DefaultCurrencyCode.String
		d.DefaultCurrencyCode = &currencyCode
	}
	if m.ActiveTemplateID.Valid {
		templateID := m.ActiveTemplateID.String
		d.ActiveTemplateID = &templateID
	}
	return d
}

// ToDomainCompanySlice converts a slice of model Companies to domain Companies
func ToDomainCompanySlice(ms []models.Company) []domain.Company {
	ds := make([]domain.Company, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainCompany(m)
	}
	return ds
}

// ToModelUserCompany converts a domain membership to its row shape
func ToModelUserCompany(d domain.UserCompany) models.UserCompany {
	return models.UserCompany{
		UserID:    d.UserID,
		CompanyID: d.CompanyID,
		Role:      string(d.Role),
		JoinedAt:  d.JoinedAt,
	}
}

// ToDomainUserCompany converts a membership row to its domain shape
func ToDomainUserCompany(m models.UserCompany) domain.UserCompany {
	return domain.UserCompany{
		UserID:    m.UserID,
		CompanyID: m.CompanyID,
		Role:      domain.UserCompanyRole(m.Role),
		JoinedAt:  m.JoinedAt,
	}
}
