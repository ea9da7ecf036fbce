package models

import "time"

// WorkflowTemplate is the database row shape of a template. Steps are a JSONB
// array carried as raw bytes.
type WorkflowTemplate struct {
	TemplateID string `db:"template_id"`
	CompanyID  string `db:"company_id"`
	Name       string `db:"name"`
	Steps      []byte `db:"steps"` // JSONB
	IsDefault  bool   `db:"is_default"`
	IsSystem   bool   `db:"is_system"`
	AuditFields
	DeletedAt *time.Time `db:"deleted_at"`
}
