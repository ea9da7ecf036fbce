package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tesoria/disbursement_ops_app/internal/apperrors"
	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
	portsrepo "github.com/tesoria/disbursement_ops_app/internal/core/ports/repositories"
	portssvc "github.com/tesoria/disbursement_ops_app/internal/core/ports/services"
	"github.com/tesoria/disbursement_ops_app/internal/core/workflow"
	"github.com/tesoria/disbursement_ops_app/internal/dto"
	"github.com/tesoria/disbursement_ops_app/internal/utils"
)

// maxConflictRetries bounds how often a transition is replayed when the
// optimistic version check loses against a concurrent writer.
const maxConflictRetries = 3

// deletedRetentionPeriod is how long a soft-deleted disbursement is kept
// before the retention job may purge it.
const deletedRetentionPeriod = 90 * 24 * time.Hour

// disbursementService implements the DisbursementSvcFacade interface
type disbursementService struct {
	BaseService
	disbursementRepo portsrepo.DisbursementRepositoryFacade
	companySvc       portssvc.CompanySvcFacade
	userSvc          portssvc.UserReaderSvc
	notifier         portssvc.NotifierSvc
	engine           *workflow.Engine
}

// NewDisbursementService creates a new disbursement service with the provided dependencies
func NewDisbursementService(
	disbursementRepo portsrepo.DisbursementRepositoryFacade,
	companySvc portssvc.CompanySvcFacade,
	userSvc portssvc.UserReaderSvc,
	notifier portssvc.NotifierSvc,
) portssvc.DisbursementSvcFacade {
	return &disbursementService{
		BaseService:      BaseService{CompanyAuthorizer: companySvc},
		disbursementRepo: disbursementRepo,
		companySvc:       companySvc,
		userSvc:          userSvc,
		notifier:         notifier,
		engine:           workflow.NewEngine(),
	}
}

// Ensure disbursementService implements the DisbursementSvcFacade interface
var _ portssvc.DisbursementSvcFacade = (*disbursementService)(nil)

// --- Reads ---

// GetDisbursementByID retrieves a specific disbursement by its ID
func (s *disbursementService) GetDisbursementByID(ctx context.Context, companyID string, disbursementID string, requestingUserID string) (*domain.Disbursement, error) {
	if err := s.AuthorizeUser(ctx, requestingUserID, companyID, domain.RoleReadOnly); err != nil {
		return nil, err
	}
	return s.findInCompany(ctx, companyID, disbursementID)
}

// ListDisbursements retrieves a paginated list of disbursements in a company
func (s *disbursementService) ListDisbursements(ctx context.Context, companyID string, userID string, params dto.ListDisbursementsParams) (*dto.ListDisbursementsResponse, error) {
	if err := s.AuthorizeUser(ctx, userID, companyID, domain.RoleReadOnly); err != nil {
		s.LogWarn(ctx, "Authorization failed for ListDisbursements", slog.String("user_id", userID))
		return nil, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	disbursements, nextToken, err := s.disbursementRepo.ListDisbursementsByCompany(ctx, companyID, params.Status, limit, params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list disbursements from repository",
			slog.String("company_id", companyID))
		return nil, fmt.Errorf("failed to retrieve disbursements: %w", err)
	}

	resp := dto.ToListDisbursementsResponse(disbursements, nextToken)
	return &resp, nil
}

// GetActionHistory retrieves the full action log of a disbursement
func (s *disbursementService) GetActionHistory(ctx context.Context, companyID string, disbursementID string, requestingUserID string) ([]domain.ActionRecord, error) {
	if err := s.AuthorizeUser(ctx, requestingUserID, companyID, domain.RoleReadOnly); err != nil {
		return nil, err
	}

	if _, err := s.findInCompany(ctx, companyID, disbursementID); err != nil {
		return nil, err
	}

	actions, err := s.disbursementRepo.ListActionsByDisbursement(ctx, disbursementID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list disbursement actions",
			slog.String("disbursement_id", disbursementID))
		return nil, err
	}
	return actions, nil
}

// --- Draft lifecycle ---

// CreateDisbursement persists a new disbursement draft
func (s *disbursementService) CreateDisbursement(ctx context.Context, companyID string, req dto.CreateDisbursementRequest, creatorUserID string) (*domain.Disbursement, error) {
	if err := s.AuthorizeUser(ctx, creatorUserID, companyID, domain.RoleAgent); err != nil {
		s.LogWarn(ctx, "Authorization failed for CreateDisbursement", slog.String("user_id", creatorUserID))
		return nil, err
	}

	if req.Amount.IsNegative() {
		return nil, apperrors.NewAppError(400, "disbursement amount must not be negative", apperrors.ErrValidation)
	}

	referenceNumber := req.ReferenceNumber
	if referenceNumber == "" {
		suffix, err := utils.GenerateSecureRandomString(5)
		if err != nil {
			return nil, fmt.Errorf("failed to generate reference number: %w", err)
		}
		referenceNumber = "DSB-" + strings.ToUpper(suffix)
	}

	priority := req.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}

	now := time.Now()
	disbursement := domain.Disbursement{
		DisbursementID:     uuid.NewString(),
		CompanyID:          companyID,
		ReferenceNumber:    referenceNumber,
		Amount:             req.Amount,
		CurrencyCode:       strings.ToUpper(req.CurrencyCode),
		DisbursementTypeID: req.DisbursementTypeID,
		BeneficiaryID:      req.BeneficiaryID,
		Department:         req.Department,
		OfficeID:           req.OfficeID,
		PaymentMethod:      req.PaymentMethod,
		Priority:           priority,
		IsUrgent:           req.IsUrgent,
		Status:             domain.StatusDraft,
		AgentSubmission:    domain.NewWorkflowStep(),
		DeptHeadValidation: domain.NewWorkflowStep(),
		ValidatorApproval:  domain.NewWorkflowStep(),
		CashierExecution:   domain.NewWorkflowStep(),
		StatusTimeline:     map[domain.DisbursementStatus]time.Time{domain.StatusDraft: now},
		ActionHistory:      []domain.ActionRecord{},
		RejectionHistory:   []domain.Rejection{},
		Version:            1,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.disbursementRepo.SaveDisbursement(ctx, disbursement); err != nil {
		s.LogError(ctx, err, "Failed to save disbursement",
			slog.String("disbursement_id", disbursement.DisbursementID))
		return nil, err
	}

	s.LogInfo(ctx, "Disbursement draft created",
		slog.String("disbursement_id", disbursement.DisbursementID),
		slog.String("company_id", companyID),
		slog.String("reference_number", referenceNumber))
	return &disbursement, nil
}

// UpdateDisbursement edits a draft's details. Only DRAFT disbursements are editable.
func (s *disbursementService) UpdateDisbursement(ctx context.Context, companyID string, disbursementID string, req dto.UpdateDisbursementRequest, requestingUserID string) (*domain.Disbursement, error) {
	if err := s.AuthorizeUser(ctx, requestingUserID, companyID, domain.RoleAgent); err != nil {
		return nil, err
	}

	disbursement, err := s.findInCompany(ctx, companyID, disbursementID)
	if err != nil {
		return nil, err
	}

	if disbursement.Status != domain.StatusDraft {
		return nil, apperrors.NewAppError(400, "only draft disbursements can be edited", apperrors.ErrValidation)
	}

	if req.Amount != nil {
		if req.Amount.IsNegative() {
			return nil, apperrors.NewAppError(400, "disbursement amount must not be negative", apperrors.ErrValidation)
		}
		disbursement.Amount = *req.Amount
	}
	if req.CurrencyCode != nil {
		disbursement.CurrencyCode = strings.ToUpper(*req.CurrencyCode)
	}
	if req.DisbursementTypeID != nil {
		disbursement.DisbursementTypeID = *req.DisbursementTypeID
	}
	if req.BeneficiaryID != nil {
		disbursement.BeneficiaryID = *req.BeneficiaryID
	}
	if req.Department != nil {
		disbursement.Department = *req.Department
	}
	if req.OfficeID != nil {
		disbursement.OfficeID = req.OfficeID
	}
	if req.PaymentMethod != nil {
		disbursement.PaymentMethod = *req.PaymentMethod
	}
	if req.Priority != nil {
		disbursement.Priority = *req.Priority
	}
	if req.IsUrgent != nil {
		disbursement.IsUrgent = *req.IsUrgent
	}

	expected := disbursement.Version
	disbursement.Version = expected + 1
	disbursement.LastUpdatedAt = time.Now()
	disbursement.LastUpdatedBy = requestingUserID

	if err := s.disbursementRepo.UpdateDisbursement(ctx, *disbursement, expected, nil); err != nil {
		s.LogError(ctx, err, "Failed to update disbursement draft",
			slog.String("disbursement_id", disbursementID))
		return nil, err
	}

	s.LogInfo(ctx, "Disbursement draft updated",
		slog.String("disbursement_id", disbursementID))
	return disbursement, nil
}

// DeleteDisbursement marks a disbursement as deleted (soft delete)
func (s *disbursementService) DeleteDisbursement(ctx context.Context, companyID string, disbursementID string, requestingUserID string) error {
	if err := s.AuthorizeUser(ctx, requestingUserID, companyID, domain.RoleAdmin); err != nil {
		return err
	}

	disbursement, err := s.findInCompany(ctx, companyID, disbursementID)
	if err != nil {
		return err
	}

	if disbursement.Status.IsPending() {
		return apperrors.NewAppError(400, "pending disbursements must be cancelled before deletion", apperrors.ErrValidation)
	}

	now := time.Now()
	if err := s.disbursementRepo.MarkDisbursementDeleted(ctx, disbursementID, now, now.Add(deletedRetentionPeriod), requestingUserID); err != nil {
		s.LogError(ctx, err, "Failed to soft delete disbursement",
			slog.String("disbursement_id", disbursementID))
		return err
	}

	s.LogInfo(ctx, "Disbursement soft deleted",
		slog.String("disbursement_id", disbursementID),
		slog.String("deleted_by", requestingUserID))
	return nil
}

// --- Workflow transitions ---

// SubmitDisbursement moves a draft into the approval pipeline
func (s *disbursementService) SubmitDisbursement(ctx context.Context, companyID string, disbursementID string, userID string, notes string) (*domain.Disbursement, error) {
	return s.runTransition(ctx, companyID, disbursementID, userID, domain.RoleAgent,
		func(d *domain.Disbursement, actor domain.Actor, settings domain.ApprovalSettings) error {
			return s.engine.Submit(d, actor, notes, settings)
		})
}

// ValidateStage approves the currently pending stage
func (s *disbursementService) ValidateStage(ctx context.Context, companyID string, disbursementID string, stage domain.StageKey, userID string, notes string) (*domain.Disbursement, error) {
	return s.runTransition(ctx, companyID, disbursementID, userID, roleForStage(stage),
		func(d *domain.Disbursement, actor domain.Actor, settings domain.ApprovalSettings) error {
			return s.engine.Validate(d, stage, actor, notes, settings)
		})
}

// RejectStage rejects the currently pending stage with a mandatory reason
func (s *disbursementService) RejectStage(ctx context.Context, companyID string, disbursementID string, stage domain.StageKey, userID string, reason string) (*domain.Disbursement, error) {
	return s.runTransition(ctx, companyID, disbursementID, userID, roleForStage(stage),
		func(d *domain.Disbursement, actor domain.Actor, settings domain.ApprovalSettings) error {
			return s.engine.Reject(d, stage, actor, reason)
		})
}

// ExecuteDisbursement records the cashier's payment execution
func (s *disbursementService) ExecuteDisbursement(ctx context.Context, companyID string, disbursementID string, userID string, notes string) (*domain.Disbursement, error) {
	return s.runTransition(ctx, companyID, disbursementID, userID, domain.RoleCashier,
		func(d *domain.Disbursement, actor domain.Actor, settings domain.ApprovalSettings) error {
			return s.engine.Execute(d, actor, notes)
		})
}

// UndoStage reverts the most recently approved stage
func (s *disbursementService) UndoStage(ctx context.Context, companyID string, disbursementID string, stage domain.StageKey, userID string, reason string) (*domain.Disbursement, error) {
	return s.runTransition(ctx, companyID, disbursementID, userID, domain.RoleAdmin,
		func(d *domain.Disbursement, actor domain.Actor, settings domain.ApprovalSettings) error {
			return s.engine.UndoStage(d, stage, actor, reason)
		})
}

// UndoRejection reverts an active rejection and restores the pre-rejection status
func (s *disbursementService) UndoRejection(ctx context.Context, companyID string, disbursementID string, userID string, reason string) (*domain.Disbursement, error) {
	return s.runTransition(ctx, companyID, disbursementID, userID, domain.RoleAdmin,
		func(d *domain.Disbursement, actor domain.Actor, settings domain.ApprovalSettings) error {
			return s.engine.UndoRejection(d, actor, reason)
		})
}

// ForceComplete bypasses all remaining stages with a mandatory reason
func (s *disbursementService) ForceComplete(ctx context.Context, companyID string, disbursementID string, userID string, reason string) (*domain.Disbursement, error) {
	return s.runTransition(ctx, companyID, disbursementID, userID, domain.RoleAdmin,
		func(d *domain.Disbursement, actor domain.Actor, settings domain.ApprovalSettings) error {
			return s.engine.ForceComplete(d, actor, reason)
		})
}

// UndoForceCompletion reverts a force completion and restores the interrupted stage
func (s *disbursementService) UndoForceCompletion(ctx context.Context, companyID string, disbursementID string, userID string, reason string) (*domain.Disbursement, error) {
	return s.runTransition(ctx, companyID, disbursementID, userID, domain.RoleAdmin,
		func(d *domain.Disbursement, actor domain.Actor, settings domain.ApprovalSettings) error {
			return s.engine.UndoForceCompletion(d, actor, reason)
		})
}

// MarkRetroactive flags a disbursement as recorded after the fact
func (s *disbursementService) MarkRetroactive(ctx context.Context, companyID string, disbursementID string, userID string, reason string) (*domain.Disbursement, error) {
	return s.runTransition(ctx, companyID, disbursementID, userID, domain.RoleAgent,
		func(d *domain.Disbursement, actor domain.Actor, settings domain.ApprovalSettings) error {
			return s.engine.MarkRetroactive(d, actor, reason)
		})
}

// CancelDisbursement withdraws a draft or pending disbursement
func (s *disbursementService) CancelDisbursement(ctx context.Context, companyID string, disbursementID string, userID string, reason string) (*domain.Disbursement, error) {
	return s.runTransition(ctx, companyID, disbursementID, userID, domain.RoleAgent,
		func(d *domain.Disbursement, actor domain.Actor, settings domain.ApprovalSettings) error {
			return s.engine.Cancel(d, actor, reason)
		})
}

// ResubmitDisbursement reopens a rejected disbursement at the rejected stage
func (s *disbursementService) ResubmitDisbursement(ctx context.Context, companyID string, disbursementID string, userID string, notes string) (*domain.Disbursement, error) {
	return s.runTransition(ctx, companyID, disbursementID, userID, domain.RoleAgent,
		func(d *domain.Disbursement, actor domain.Actor, settings domain.ApprovalSettings) error {
			return s.engine.Resubmit(d, actor, notes)
		})
}

// --- Internals ---

// findInCompany loads a live disbursement and verifies company ownership.
// Cross-tenant reads report not-found rather than forbidden so that IDs from
// other tenants are not confirmed to exist.
func (s *disbursementService) findInCompany(ctx context.Context, companyID, disbursementID string) (*domain.Disbursement, error) {
	disbursement, err := s.disbursementRepo.FindDisbursementByID(ctx, disbursementID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find disbursement by ID",
				slog.String("disbursement_id", disbursementID))
		}
		return nil, err
	}
	if disbursement.CompanyID != companyID || disbursement.DeletedAt != nil {
		return nil, apperrors.ErrNotFound
	}
	return disbursement, nil
}

// buildActor resolves the acting user's identity and asserted company role for
// the audit trail.
func (s *disbursementService) buildActor(ctx context.Context, userID, companyID string) (domain.Actor, error) {
	user, err := s.userSvc.GetUserByID(ctx, userID)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("failed to resolve acting user: %w", err)
	}

	membership, err := s.companySvc.GetUserCompanyRole(ctx, userID, companyID)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("failed to resolve acting user's role: %w", err)
	}

	return domain.Actor{
		ActorID: user.UserID,
		Name:    user.Name,
		Role:    string(membership.Role),
	}, nil
}

// runTransition is the shared skeleton of every workflow operation: authorize,
// snapshot the company policy, then load-apply-save under optimistic
// concurrency, replaying the transition on version conflicts.
func (s *disbursementService) runTransition(
	ctx context.Context,
	companyID string,
	disbursementID string,
	userID string,
	requiredRole domain.UserCompanyRole,
	apply func(d *domain.Disbursement, actor domain.Actor, settings domain.ApprovalSettings) error,
) (*domain.Disbursement, error) {
	if err := s.AuthorizeUser(ctx, userID, companyID, requiredRole); err != nil {
		s.LogWarn(ctx, "Authorization failed for workflow transition",
			slog.String("user_id", userID),
			slog.String("company_id", companyID),
			slog.String("required_role", string(requiredRole)))
		return nil, err
	}

	company, err := s.companySvc.FindCompanyByID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	actor, err := s.buildActor(ctx, userID, companyID)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		disbursement, err := s.findInCompany(ctx, companyID, disbursementID)
		if err != nil {
			return nil, err
		}

		historyBefore := len(disbursement.ActionHistory)
		if err := apply(disbursement, actor, company.ApprovalSettings); err != nil {
			return nil, err
		}
		newActions := disbursement.ActionHistory[historyBefore:]

		expected := disbursement.Version
		disbursement.Version = expected + 1
		disbursement.LastUpdatedAt = time.Now()
		disbursement.LastUpdatedBy = userID

		err = s.disbursementRepo.UpdateDisbursement(ctx, *disbursement, expected, newActions)
		if err == nil {
			s.LogInfo(ctx, "Workflow transition applied",
				slog.String("disbursement_id", disbursementID),
				slog.String("status", string(disbursement.Status)),
				slog.Int64("version", disbursement.Version))
			s.publishEvent(ctx, disbursement, newActions)
			return disbursement, nil
		}

		if errors.Is(err, apperrors.ErrConflict) && attempt < maxConflictRetries {
			s.LogWarn(ctx, "Version conflict on disbursement update, retrying",
				slog.String("disbursement_id", disbursementID),
				slog.Int("attempt", attempt))
			continue
		}

		s.LogError(ctx, err, "Failed to persist workflow transition",
			slog.String("disbursement_id", disbursementID))
		return nil, err
	}
}

// publishEvent forwards the last applied action to the notifier. Best effort:
// the notifier swallows its own failures.
func (s *disbursementService) publishEvent(ctx context.Context, d *domain.Disbursement, newActions []domain.ActionRecord) {
	if s.notifier == nil || len(newActions) == 0 {
		return
	}
	last := newActions[len(newActions)-1]
	s.notifier.PublishWorkflowEvent(ctx, portssvc.WorkflowEvent{
		EventType:      last.Action,
		CompanyID:      d.CompanyID,
		DisbursementID: d.DisbursementID,
		ActorID:        last.ActorID,
		NewStatus:      d.Status,
		Reason:         last.Reason,
	})
}

// roleForStage maps a workflow stage to the membership role allowed to act on it.
func roleForStage(stage domain.StageKey) domain.UserCompanyRole {
	switch stage {
	case domain.StageDeptHeadValidation:
		return domain.RoleDeptHead
	case domain.StageValidatorApproval:
		return domain.RoleValidator
	case domain.StageCashierExecution:
		return domain.RoleCashier
	default:
		return domain.RoleAgent
	}
}
