package mapping

import (
	"encoding/json"
	"fmt"

	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
	"github.com/tesoria/disbursement_ops_app/internal/models"
)

// ToModelWorkflowTemplate converts a domain template to its row shape,
// serializing the step list to JSONB bytes.
func ToModelWorkflowTemplate(d domain.WorkflowTemplate) (models.WorkflowTemplate, error) {
	steps, err := json.Marshal(d.Steps)
	if err != nil {
		return models.WorkflowTemplate{}, fmt.Errorf("failed to marshal template steps: %w", err)
	}
	return models.WorkflowTemplate{
		TemplateID:  d.TemplateID,
		CompanyID:   d.CompanyID,
		Name:        d.Name,
		Steps:       steps,
		IsDefault:   d.IsDefault,
		IsSystem:    d.IsSystem,
		AuditFields: ToModelAuditFields(d.AuditFields),
		DeletedAt:   d.DeletedAt,
	}, nil
}

// ToDomainWorkflowTemplate converts a template row to its domain shape.
func ToDomainWorkflowTemplate(m models.WorkflowTemplate) (domain.WorkflowTemplate, error) {
	var steps []domain.TemplateStep
	if len(m.Steps) > 0 {
		if err := json.Unmarshal(m.Steps, &steps); err != nil {
			return domain.WorkflowTemplate{}, fmt.Errorf("failed to unmarshal template steps: %w", err)
		}
	}
	return domain.WorkflowTemplate{
		TemplateID:  m.TemplateID,
		CompanyID:   m.CompanyID,
		Name:        m.Name,
		Steps:       steps,
		IsDefault:   m.IsDefault,
		IsSystem:    m.IsSystem,
		AuditFields: ToDomainAuditFields(m.AuditFields),
		DeletedAt:   m.DeletedAt,
	}, nil
}
