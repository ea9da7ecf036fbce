package repositories

import (
	"context"
	"time"

	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
)

// DisbursementReader defines read operations for disbursement data
type DisbursementReader interface {
	// FindDisbursementByID retrieves a specific disbursement by its unique identifier.
	FindDisbursementByID(ctx context.Context, disbursementID string) (*domain.Disbursement, error)

	// ListDisbursementsByCompany retrieves a paginated list of disbursements for a given company using token-based pagination.
	// A non-empty status narrows the listing to that workflow status.
	// It returns the disbursements, a token for the next page, and an error.
	ListDisbursementsByCompany(ctx context.Context, companyID string, status domain.DisbursementStatus, limit int, nextToken *string) ([]domain.Disbursement, *string, error)
}

// DisbursementWriter defines write operations for disbursement data
type DisbursementWriter interface {
	// SaveDisbursement persists a new disbursement draft.
	SaveDisbursement(ctx context.Context, disbursement domain.Disbursement) error

	// UpdateDisbursement persists the full aggregate state and appends the new
	// action records in the same database transaction. The update only applies
	// when the stored version still equals expectedVersion; a stale version
	// returns apperrors.ErrConflict and writes nothing.
	UpdateDisbursement(ctx context.Context, disbursement domain.Disbursement, expectedVersion int64, newActions []domain.ActionRecord) error
}

// DisbursementLifecycleManager defines operations for managing disbursement lifecycle
type DisbursementLifecycleManager interface {
	// MarkDisbursementDeleted marks a disbursement as deleted (soft delete) and stamps its purge horizon.
	MarkDisbursementDeleted(ctx context.Context, disbursementID string, deletedAt time.Time, purgeAt time.Time, deletedBy string) error
}

// ActionReader defines read operations over the append-only action log.
type ActionReader interface {
	// ListActionsByDisbursement retrieves the full action log of a disbursement, oldest first.
	ListActionsByDisbursement(ctx context.Context, disbursementID string) ([]domain.ActionRecord, error)
}

// DisbursementRepositoryFacade combines all disbursement-related repository interfaces
// This is a facade for clients that need access to all operations
type DisbursementRepositoryFacade interface {
	DisbursementReader
	DisbursementWriter
	DisbursementLifecycleManager
	ActionReader
}

// DisbursementRepositoryWithTx extends DisbursementRepositoryFacade with transaction capabilities
type DisbursementRepositoryWithTx interface {
	DisbursementRepositoryFacade
	TransactionManager
}
