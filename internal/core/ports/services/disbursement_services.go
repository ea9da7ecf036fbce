package services

import (
	"context"

	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
	"github.com/tesoria/disbursement_ops_app/internal/dto"
)

// DisbursementReaderSvc defines read operations for disbursement data
type DisbursementReaderSvc interface {
	// GetDisbursementByID retrieves a specific disbursement by its ID.
	GetDisbursementByID(ctx context.Context, companyID string, disbursementID string, requestingUserID string) (*domain.Disbursement, error)

	// ListDisbursements retrieves a paginated list of disbursements in a company.
	ListDisbursements(ctx context.Context, companyID string, userID string, params dto.ListDisbursementsParams) (*dto.ListDisbursementsResponse, error)

	// GetActionHistory retrieves the full action log of a disbursement, oldest first.
	GetActionHistory(ctx context.Context, companyID string, disbursementID string, requestingUserID string) ([]domain.ActionRecord, error)
}

// DisbursementWriterSvc defines draft lifecycle operations for disbursement data
type DisbursementWriterSvc interface {
	// CreateDisbursement persists a new disbursement draft.
	CreateDisbursement(ctx context.Context, companyID string, req dto.CreateDisbursementRequest, creatorUserID string) (*domain.Disbursement, error)

	// UpdateDisbursement edits a draft's details. Only DRAFT disbursements are editable.
	UpdateDisbursement(ctx context.Context, companyID string, disbursementID string, req dto.UpdateDisbursementRequest, requestingUserID string) (*domain.Disbursement, error)

	// DeleteDisbursement marks a disbursement as deleted (soft delete).
	DeleteDisbursement(ctx context.Context, companyID string, disbursementID string, requestingUserID string) error
}

// DisbursementWorkflowSvc defines the workflow transitions of a disbursement.
// Every method loads the aggregate, applies the transition through the workflow
// engine against the company's current policy snapshot, and persists the result
// under optimistic concurrency.
type DisbursementWorkflowSvc interface {
	// SubmitDisbursement moves a draft into the approval pipeline.
	SubmitDisbursement(ctx context.Context, companyID string, disbursementID string, userID string, notes string) (*domain.Disbursement, error)

	// ValidateStage approves the currently pending stage (dept head or validator).
	ValidateStage(ctx context.Context, companyID string, disbursementID string, stage domain.StageKey, userID string, notes string) (*domain.Disbursement, error)

	// RejectStage rejects the currently pending stage with a mandatory reason.
	RejectStage(ctx context.Context, companyID string, disbursementID string, stage domain.StageKey, userID string, reason string) (*domain.Disbursement, error)

	// ExecuteDisbursement records the cashier's payment execution.
	ExecuteDisbursement(ctx context.Context, companyID string, disbursementID string, userID string, notes string) (*domain.Disbursement, error)

	// UndoStage reverts the most recently approved stage.
	UndoStage(ctx context.Context, companyID string, disbursementID string, stage domain.StageKey, userID string, reason string) (*domain.Disbursement, error)

	// UndoRejection reverts an active rejection and restores the pre-rejection status.
	UndoRejection(ctx context.Context, companyID string, disbursementID string, userID string, reason string) (*domain.Disbursement, error)

	// ForceComplete bypasses all remaining stages with a mandatory reason.
	ForceComplete(ctx context.Context, companyID string, disbursementID string, userID string, reason string) (*domain.Disbursement, error)

	// UndoForceCompletion reverts a force completion and restores the interrupted stage.
	UndoForceCompletion(ctx context.Context, companyID string, disbursementID string, userID string, reason string) (*domain.Disbursement, error)

	// MarkRetroactive flags a disbursement as recorded after the fact.
	MarkRetroactive(ctx context.Context, companyID string, disbursementID string, userID string, reason string) (*domain.Disbursement, error)

	// CancelDisbursement withdraws a draft or pending disbursement.
	CancelDisbursement(ctx context.Context, companyID string, disbursementID string, userID string, reason string) (*domain.Disbursement, error)

	// ResubmitDisbursement reopens a rejected disbursement at the rejected stage.
	ResubmitDisbursement(ctx context.Context, companyID string, disbursementID string, userID string, notes string) (*domain.Disbursement, error)
}

// DisbursementSvcFacade combines all disbursement-related service interfaces
// This is a facade for clients that need access to all operations
type DisbursementSvcFacade interface {
	DisbursementReaderSvc
	DisbursementWriterSvc
	DisbursementWorkflowSvc
}
