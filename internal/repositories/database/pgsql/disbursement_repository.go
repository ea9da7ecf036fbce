package pgsql

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tesoria/disbursement_ops_app/internal/apperrors"
	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
	portsrepo "github.com/tesoria/disbursement_ops_app/internal/core/ports/repositories"
	"github.com/tesoria/disbursement_ops_app/internal/models"
	"github.com/tesoria/disbursement_ops_app/internal/utils/mapping"
	"github.com/tesoria/disbursement_ops_app/internal/utils/pagination"
)

type PgxDisbursementRepository struct {
	BaseRepository
}

// newPgxDisbursementRepository creates a new repository for disbursement data.
func newPgxDisbursementRepository(pool *pgxpool.Pool) portsrepo.DisbursementRepositoryWithTx {
	return &PgxDisbursementRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxDisbursementRepository implements portsrepo.DisbursementRepositoryWithTx
var _ portsrepo.DisbursementRepositoryWithTx = (*PgxDisbursementRepository)(nil)

const disbursementColumns = `
	d.disbursement_id, d.company_id, d.reference_number,
	d.amount, d.currency_code, d.disbursement_type_id, d.beneficiary_id,
	d.department, d.office_id, d.payment_method, d.priority, d.is_urgent,
	d.status, d.steps, d.status_timeline, d.current_rejection,
	d.rejection_history, d.undo_permissions,
	d.force_completed, d.force_completed_by, d.force_completion_reason, d.force_completion_undone,
	d.is_retroactive, d.retroactive_reason,
	d.is_completed, d.completed_at, d.version,
	d.created_at, d.created_by, d.last_updated_at, d.last_updated_by,
	d.deleted_at, d.purge_at
`

func scanDisbursement(row pgx.Row) (models.Disbursement, error) {
	var m models.Disbursement
	err := row.Scan(
		&m.DisbursementID, &m.CompanyID, &m.ReferenceNumber,
		&m.Amount, &m.CurrencyCode, &m.DisbursementTypeID, &m.BeneficiaryID,
		&m.Department, &m.OfficeID, &m.PaymentMethod, &m.Priority, &m.IsUrgent,
		&m.Status, &m.Steps, &m.StatusTimeline, &m.CurrentRejection,
		&m.RejectionHistory, &m.UndoPermissions,
		&m.ForceCompleted, &m.ForceCompletedBy, &m.ForceCompletionReason, &m.ForceCompletionUndone,
		&m.IsRetroactive, &m.RetroactiveReason,
		&m.IsCompleted, &m.CompletedAt, &m.Version,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy,
		&m.DeletedAt, &m.PurgeAt,
	)
	return m, err
}

func (r *PgxDisbursementRepository) FindDisbursementByID(ctx context.Context, disbursementID string) (*domain.Disbursement, error) {
	query := `SELECT ` + disbursementColumns + ` FROM disbursements d WHERE d.disbursement_id = $1;`
	m, err := scanDisbursement(r.Pool.QueryRow(ctx, query, disbursementID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find disbursement "+disbursementID, err)
	}

	disbursement, err := mapping.ToDomainDisbursement(m)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to decode disbursement "+disbursementID, err)
	}

	actions, err := r.ListActionsByDisbursement(ctx, disbursementID)
	if err != nil {
		return nil, err
	}
	disbursement.ActionHistory = actions
	return &disbursement, nil
}

// ListDisbursementsByCompany retrieves a paginated list of disbursements for a company
// using token-based pagination. Results are returned newest first; a non-empty
// status narrows the listing. Action histories are not loaded for listings.
func (r *PgxDisbursementRepository) ListDisbursementsByCompany(ctx context.Context, companyID string, status domain.DisbursementStatus, limit int, nextToken *string) ([]domain.Disbursement, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	// We fetch one extra item to determine if there's a next page.
	fetchLimit := limit + 1

	filterClause := `WHERE d.company_id = $1 AND d.deleted_at IS NULL`
	args := []any{companyID}
	if status != "" {
		args = append(args, string(status))
		filterClause += ` AND d.status = $` + strconv.Itoa(len(args))
	}

	// Ordering must be stable: created_at DESC with disbursement_id as the
	// tie-breaker (UUIDs compare lexicographically in Postgres).
	orderByClause := `ORDER BY d.created_at DESC, d.disbursement_id DESC`

	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastID, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}
		args = append(args, lastCreatedAt, lastID)
		filterClause += ` AND (d.created_at, d.disbursement_id) < ($` + strconv.Itoa(len(args)-1) + `, $` + strconv.Itoa(len(args)) + `)`
	}

	args = append(args, fetchLimit)
	query := `SELECT ` + disbursementColumns + ` FROM disbursements d ` +
		filterClause + ` ` + orderByClause + ` LIMIT $` + strconv.Itoa(len(args)) + `;`

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query disbursements for company "+companyID, err)
	}
	defer rows.Close()

	modelDisbursements := make([]models.Disbursement, 0, fetchLimit)
	for rows.Next() {
		m, scanErr := scanDisbursement(rows)
		if scanErr != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to scan disbursement row for company "+companyID, scanErr)
		}
		modelDisbursements = append(modelDisbursements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "error iterating disbursement rows for company "+companyID, err)
	}

	// Determine the next token; it points at the last item included in this page.
	var nextTokenVal *string
	results := modelDisbursements
	if len(modelDisbursements) > limit {
		last := modelDisbursements[limit-1]
		token := pagination.EncodeToken(last.CreatedAt, last.DisbursementID)
		nextTokenVal = &token
		results = modelDisbursements[:limit]
	}

	domainDisbursements := make([]domain.Disbursement, len(results))
	for i, m := range results {
		d, mapErr := mapping.ToDomainDisbursement(m)
		if mapErr != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to decode disbursement "+m.DisbursementID, mapErr)
		}
		domainDisbursements[i] = d
	}

	return domainDisbursements, nextTokenVal, nil
}

func (r *PgxDisbursementRepository) SaveDisbursement(ctx context.Context, disbursement domain.Disbursement) error {
	m, err := mapping.ToModelDisbursement(disbursement)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode disbursement "+disbursement.DisbursementID, err)
	}

	query := `
		INSERT INTO disbursements (
			disbursement_id, company_id, reference_number,
			amount, currency_code, disbursement_type_id, beneficiary_id,
			department, office_id, payment_method, priority, is_urgent,
			status, steps, status_timeline, current_rejection,
			rejection_history, undo_permissions,
			force_completed, force_completed_by, force_completion_reason, force_completion_undone,
			is_retroactive, retroactive_reason,
			is_completed, completed_at, version,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31
		);
	`
	_, err = r.Pool.Exec(ctx, query,
		m.DisbursementID, m.CompanyID, m.ReferenceNumber,
		m.Amount, m.CurrencyCode, m.DisbursementTypeID, m.BeneficiaryID,
		m.Department, m.OfficeID, m.PaymentMethod, m.Priority, m.IsUrgent,
		m.Status, m.Steps, m.StatusTimeline, m.CurrentRejection,
		m.RejectionHistory, m.UndoPermissions,
		m.ForceCompleted, m.ForceCompletedBy, m.ForceCompletionReason, m.ForceCompletionUndone,
		m.IsRetroactive, m.RetroactiveReason,
		m.IsCompleted, m.CompletedAt, m.Version,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				if pgErr.ConstraintName == "uq_disbursements_company_reference" {
					return apperrors.NewDuplicateError("reference number " + disbursement.ReferenceNumber + " already exists in this company")
				}
				return apperrors.NewDuplicateError("disbursement ID " + disbursement.DisbursementID + " already exists")
			}
			if pgErr.Code == "23503" { // foreign_key_violation
				return apperrors.NewValidationFailedError("referenced company does not exist")
			}
		}
		return apperrors.NewAppError(500, "failed to save disbursement "+disbursement.DisbursementID, err)
	}
	return nil
}

// UpdateDisbursement persists the full aggregate state guarded by the stored
// version, and appends the new action records in the same transaction. A stale
// version writes nothing and returns ErrConflict.
func (r *PgxDisbursementRepository) UpdateDisbursement(ctx context.Context, disbursement domain.Disbursement, expectedVersion int64, newActions []domain.ActionRecord) error {
	m, err := mapping.ToModelDisbursement(disbursement)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode disbursement "+disbursement.DisbursementID, err)
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	query := `
		UPDATE disbursements SET
			reference_number = $1,
			amount = $2, currency_code = $3, disbursement_type_id = $4, beneficiary_id = $5,
			department = $6, office_id = $7, payment_method = $8, priority = $9, is_urgent = $10,
			status = $11, steps = $12, status_timeline = $13, current_rejection = $14,
			rejection_history = $15, undo_permissions = $16,
			force_completed = $17, force_completed_by = $18, force_completion_reason = $19, force_completion_undone = $20,
			is_retroactive = $21, retroactive_reason = $22,
			is_completed = $23, completed_at = $24, version = $25,
			last_updated_at = $26, last_updated_by = $27
		WHERE disbursement_id = $28 AND version = $29;
	`
	tag, err := tx.Exec(ctx, query,
		m.ReferenceNumber,
		m.Amount, m.CurrencyCode, m.DisbursementTypeID, m.BeneficiaryID,
		m.Department, m.OfficeID, m.PaymentMethod, m.Priority, m.IsUrgent,
		m.Status, m.Steps, m.StatusTimeline, m.CurrentRejection,
		m.RejectionHistory, m.UndoPermissions,
		m.ForceCompleted, m.ForceCompletedBy, m.ForceCompletionReason, m.ForceCompletionUndone,
		m.IsRetroactive, m.RetroactiveReason,
		m.IsCompleted, m.CompletedAt, m.Version,
		m.LastUpdatedAt, m.LastUpdatedBy,
		m.DisbursementID, expectedVersion,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update disbursement "+disbursement.DisbursementID, err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row is gone or another writer bumped the version first.
		return apperrors.NewConflictError("disbursement " + disbursement.DisbursementID + " was modified concurrently")
	}

	for _, record := range newActions {
		actionModel, mapErr := mapping.ToModelDisbursementAction(disbursement.DisbursementID, record)
		if mapErr != nil {
			return apperrors.NewAppError(500, "failed to encode action record "+record.ActionID, mapErr)
		}
		insertQuery := `
			INSERT INTO disbursement_actions (
				action_id, disbursement_id, action, actor_id, actor_name, actor_role,
				performed_at, notes, reason, metadata
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
		`
		_, err = tx.Exec(ctx, insertQuery,
			actionModel.ActionID, actionModel.DisbursementID, actionModel.Action,
			actionModel.ActorID, actionModel.ActorName, actionModel.ActorRole,
			actionModel.PerformedAt, actionModel.Notes, actionModel.Reason, actionModel.Metadata,
		)
		if err != nil {
			return apperrors.NewAppError(500, "failed to append action record "+record.ActionID, err)
		}
	}

	return r.Commit(ctx, tx)
}

func (r *PgxDisbursementRepository) MarkDisbursementDeleted(ctx context.Context, disbursementID string, deletedAt time.Time, purgeAt time.Time, deletedBy string) error {
	query := `
		UPDATE disbursements
		SET deleted_at = $1, purge_at = $2, last_updated_at = $1, last_updated_by = $3
		WHERE disbursement_id = $4 AND deleted_at IS NULL;
	`
	tag, err := r.Pool.Exec(ctx, query, deletedAt, purgeAt, deletedBy, disbursementID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark disbursement "+disbursementID+" deleted", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListActionsByDisbursement retrieves the full action log, oldest first.
func (r *PgxDisbursementRepository) ListActionsByDisbursement(ctx context.Context, disbursementID string) ([]domain.ActionRecord, error) {
	query := `
		SELECT action_id, disbursement_id, action, actor_id, actor_name, actor_role,
		       performed_at, notes, reason, metadata
		FROM disbursement_actions
		WHERE disbursement_id = $1
		ORDER BY performed_at ASC, action_id ASC;
	`
	rows, err := r.Pool.Query(ctx, query, disbursementID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query actions for disbursement "+disbursementID, err)
	}
	defer rows.Close()

	records := make([]domain.ActionRecord, 0)
	for rows.Next() {
		var m models.DisbursementAction
		scanErr := rows.Scan(
			&m.ActionID, &m.DisbursementID, &m.Action, &m.ActorID, &m.ActorName, &m.ActorRole,
			&m.PerformedAt, &m.Notes, &m.Reason, &m.Metadata,
		)
		if scanErr != nil {
			return nil, apperrors.NewAppError(500, "failed to scan action row for disbursement "+disbursementID, scanErr)
		}
		record, mapErr := mapping.ToDomainActionRecord(m)
		if mapErr != nil {
			return nil, apperrors.NewAppError(500, "failed to decode action record "+m.ActionID, mapErr)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating action rows for disbursement "+disbursementID, err)
	}
	return records, nil
}
