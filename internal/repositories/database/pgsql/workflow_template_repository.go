package pgsql

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tesoria/disbursement_ops_app/internal/apperrors"
	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
	portsrepo "github.com/tesoria/disbursement_ops_app/internal/core/ports/repositories"
	"github.com/tesoria/disbursement_ops_app/internal/models"
	"github.com/tesoria/disbursement_ops_app/internal/utils/mapping"
)

type PgxWorkflowTemplateRepository struct {
	BaseRepository
}

// newPgxWorkflowTemplateRepository creates a new repository for workflow template data.
func newPgxWorkflowTemplateRepository(pool *pgxpool.Pool) portsrepo.WorkflowTemplateRepositoryFacade {
	return &PgxWorkflowTemplateRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxWorkflowTemplateRepository implements portsrepo.WorkflowTemplateRepositoryFacade
var _ portsrepo.WorkflowTemplateRepositoryFacade = (*PgxWorkflowTemplateRepository)(nil)

const templateColumns = `
	t.template_id, t.company_id, t.name, t.steps, t.is_default, t.is_system,
	t.created_at, t.created_by, t.last_updated_at, t.last_updated_by, t.deleted_at
`

func scanTemplate(row pgx.Row) (models.WorkflowTemplate, error) {
	var m models.WorkflowTemplate
	err := row.Scan(
		&m.TemplateID, &m.CompanyID, &m.Name, &m.Steps, &m.IsDefault, &m.IsSystem,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy, &m.DeletedAt,
	)
	return m, err
}

func (r *PgxWorkflowTemplateRepository) FindTemplateByID(ctx context.Context, templateID string) (*domain.WorkflowTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM workflow_templates t WHERE t.template_id = $1;`
	m, err := scanTemplate(r.Pool.QueryRow(ctx, query, templateID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find workflow template "+templateID, err)
	}
	template, err := mapping.ToDomainWorkflowTemplate(m)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to decode workflow template "+templateID, err)
	}
	return &template, nil
}

// ListTemplatesByCompany retrieves all live templates visible to a company:
// its own plus the shared system templates.
func (r *PgxWorkflowTemplateRepository) ListTemplatesByCompany(ctx context.Context, companyID string) ([]domain.WorkflowTemplate, error) {
	query := `SELECT ` + templateColumns + `
		FROM workflow_templates t
		WHERE (t.company_id = $1 OR t.is_system = TRUE) AND t.deleted_at IS NULL
		ORDER BY t.is_system DESC, t.name ASC;
	`
	rows, err := r.Pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query workflow templates for company "+companyID, err)
	}
	defer rows.Close()

	templates := make([]domain.WorkflowTemplate, 0)
	for rows.Next() {
		m, scanErr := scanTemplate(rows)
		if scanErr != nil {
			return nil, apperrors.NewAppError(500, "failed to scan template row for company "+companyID, scanErr)
		}
		template, mapErr := mapping.ToDomainWorkflowTemplate(m)
		if mapErr != nil {
			return nil, apperrors.NewAppError(500, "failed to decode workflow template "+m.TemplateID, mapErr)
		}
		templates = append(templates, template)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating template rows for company "+companyID, err)
	}
	return templates, nil
}

func (r *PgxWorkflowTemplateRepository) SaveTemplate(ctx context.Context, template domain.WorkflowTemplate) error {
	m, err := mapping.ToModelWorkflowTemplate(template)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode workflow template "+template.TemplateID, err)
	}
	query := `
		INSERT INTO workflow_templates (
			template_id, company_id, name, steps, is_default, is_system,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err = r.Pool.Exec(ctx, query,
		m.TemplateID, m.CompanyID, m.Name, m.Steps, m.IsDefault, m.IsSystem,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return apperrors.NewDuplicateError("workflow template ID " + template.TemplateID + " already exists")
			}
			if pgErr.Code == "23503" { // foreign_key_violation
				return apperrors.NewValidationFailedError("referenced company does not exist")
			}
		}
		return apperrors.NewAppError(500, "failed to save workflow template "+template.TemplateID, err)
	}
	return nil
}

func (r *PgxWorkflowTemplateRepository) UpdateTemplate(ctx context.Context, template domain.WorkflowTemplate) error {
	m, err := mapping.ToModelWorkflowTemplate(template)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode workflow template "+template.TemplateID, err)
	}
	query := `
		UPDATE workflow_templates SET
			name = $1, steps = $2, is_default = $3,
			last_updated_at = $4, last_updated_by = $5
		WHERE template_id = $6 AND deleted_at IS NULL;
	`
	tag, err := r.Pool.Exec(ctx, query,
		m.Name, m.Steps, m.IsDefault,
		m.LastUpdatedAt, m.LastUpdatedBy,
		m.TemplateID,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update workflow template "+template.TemplateID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PgxWorkflowTemplateRepository) MarkTemplateDeleted(ctx context.Context, templateID string, deletedAt time.Time, deletedBy string) error {
	query := `
		UPDATE workflow_templates
		SET deleted_at = $1, last_updated_at = $1, last_updated_by = $2
		WHERE template_id = $3 AND deleted_at IS NULL;
	`
	tag, err := r.Pool.Exec(ctx, query, deletedAt, deletedBy, templateID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark workflow template "+templateID+" deleted", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
