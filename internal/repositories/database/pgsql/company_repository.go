package pgsql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tesoria/disbursement_ops_app/internal/apperrors"
	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
	portsrepo "github.com/tesoria/disbursement_ops_app/internal/core/ports/repositories"
	"github.com/tesoria/disbursement_ops_app/internal/models"
	"github.com/tesoria/disbursement_ops_app/internal/utils/mapping"
)

type PgxCompanyRepository struct {
	BaseRepository
}

// newPgxCompanyRepository creates a new repository for company data.
func newPgxCompanyRepository(pool *pgxpool.Pool) portsrepo.CompanyRepositoryWithTx {
	return &PgxCompanyRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxCompanyRepository implements portsrepo.CompanyRepositoryWithTx
var _ portsrepo.CompanyRepositoryWithTx = (*PgxCompanyRepository)(nil)

const companyColumns = `
	c.company_id, c.name, c.default_currency_code, c.is_active,
	c.require_dept_head_approval, c.require_validator_approval, c.require_cashier_execution,
	c.max_amount_no_approval, c.active_template_id,
	c.created_at, c.created_by, c.last_updated_at, c.last_updated_by
`

func scanCompany(row pgx.Row) (models.Company, error) {
	var m models.Company
	err := row.Scan(
		&m.CompanyID, &m.Name, &m.DefaultCurrencyCode, &m.IsActive,
		&m.RequireDeptHeadApproval, &m.RequireValidatorApproval, &m.RequireCashierExecution,
		&m.MaxAmountNoApproval, &m.ActiveTemplateID,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy,
	)
	return m, err
}

func (r *PgxCompanyRepository) FindCompanyByID(ctx context.Context, companyID string) (*domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies c WHERE c.company_id = $1;`
	m, err := scanCompany(r.Pool.QueryRow(ctx, query, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find company "+companyID, err)
	}
	company := mapping.ToDomainCompany(m)
	return &company, nil
}

func (r *PgxCompanyRepository) ListCompaniesByUserID(ctx context.Context, userID string) ([]domain.Company, error) {
	// Members with the REMOVED role no longer see the company.
	query := `SELECT ` + companyColumns + `
		FROM companies c
		JOIN user_companies uc ON c.company_id = uc.company_id
		WHERE uc.user_id = $1 AND uc.role != 'REMOVED' AND c.is_active = TRUE
		ORDER BY c.name ASC;
	`
	rows, err := r.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query companies for user "+userID, err)
	}
	defer rows.Close()

	modelCompanies := make([]models.Company, 0)
	for rows.Next() {
		m, scanErr := scanCompany(rows)
		if scanErr != nil {
			return nil, apperrors.NewAppError(500, "failed to scan company row for user "+userID, scanErr)
		}
		modelCompanies = append(modelCompanies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating company rows for user "+userID, err)
	}

	return mapping.ToDomainCompanySlice(modelCompanies), nil
}

func (r *PgxCompanyRepository) SaveCompany(ctx context.Context, company domain.Company) error {
	m := mapping.ToModelCompany(company)
	query := `
		INSERT INTO companies (
			company_id, name, default_currency_code, is_active,
			require_dept_head_approval, require_validator_approval, require_cashier_execution,
			max_amount_no_approval, active_template_id,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.CompanyID, m.Name, m.DefaultCurrencyCode, m.IsActive,
		m.RequireDeptHeadApproval, m.RequireValidatorApproval, m.RequireCashierExecution,
		m.MaxAmountNoApproval, m.ActiveTemplateID,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return apperrors.NewDuplicateError("company ID " + company.CompanyID + " already exists")
		}
		return apperrors.NewAppError(500, "failed to save company "+company.CompanyID, err)
	}
	return nil
}

func (r *PgxCompanyRepository) UpdateApprovalSettings(ctx context.Context, companyID string, settings domain.ApprovalSettings, updatedByUserID string) error {
	query := `
		UPDATE companies SET
			require_dept_head_approval = $1,
			require_validator_approval = $2,
			require_cashier_execution = $3,
			max_amount_no_approval = $4,
			last_updated_at = NOW(),
			last_updated_by = $5
		WHERE company_id = $6;
	`
	tag, err := r.Pool.Exec(ctx, query,
		settings.RequireDeptHeadApproval,
		settings.RequireValidatorApproval,
		settings.RequireCashierExecution,
		settings.MaxAmountNoApproval,
		updatedByUserID,
		companyID,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update approval settings for company "+companyID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PgxCompanyRepository) UpdateActiveTemplate(ctx context.Context, companyID string, templateID *string, updatedByUserID string) error {
	query := `
		UPDATE companies SET
			active_template_id = $1,
			last_updated_at = NOW(),
			last_updated_by = $2
		WHERE company_id = $3;
	`
	tag, err := r.Pool.Exec(ctx, query, templateID, updatedByUserID, companyID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
			return apperrors.NewValidationFailedError("workflow template does not exist")
		}
		return apperrors.NewAppError(500, "failed to set active template for company "+companyID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PgxCompanyRepository) AddUserToCompany(ctx context.Context, membership domain.UserCompany) error {
	m := mapping.ToModelUserCompany(membership)
	query := `
		INSERT INTO user_companies (user_id, company_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, company_id) DO UPDATE SET role = EXCLUDED.role;
	` // Upsert: add user or update their role if they already exist
	_, err := r.Pool.Exec(ctx, query, m.UserID, m.CompanyID, m.Role, m.JoinedAt)
	if err != nil {
		return apperrors.NewAppError(500, "failed to add/update user "+membership.UserID+" in company "+membership.CompanyID, err)
	}
	return nil
}

func (r *PgxCompanyRepository) FindUserCompanyRole(ctx context.Context, userID, companyID string) (*domain.UserCompany, error) {
	query := `
		SELECT user_id, company_id, role, joined_at
		FROM user_companies
		WHERE user_id = $1 AND company_id = $2;
	`
	var m models.UserCompany
	err := r.Pool.QueryRow(ctx, query, userID, companyID).Scan(
		&m.UserID,
		&m.CompanyID,
		&m.Role,
		&m.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("user " + userID + " is not a member of company " + companyID)
		}
		return nil, apperrors.NewAppError(500, "failed to find user "+userID+" company role in "+companyID, err)
	}
	membership := mapping.ToDomainUserCompany(m)
	return &membership, nil
}

func (r *PgxCompanyRepository) UpdateUserCompanyRole(ctx context.Context, userID, companyID string, role domain.UserCompanyRole, updatedByUserID string) error {
	query := `
		UPDATE user_companies SET role = $1
		WHERE user_id = $2 AND company_id = $3;
	`
	tag, err := r.Pool.Exec(ctx, query, string(role), userID, companyID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update role of user "+userID+" in company "+companyID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
