package mapping

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
	"github.com/tesoria/disbursement_ops_app/internal/models"
)

// disbursementSteps is the JSONB shape of the four stage sub-states.
type disbursementSteps struct {
	AgentSubmission    domain.WorkflowStep `json:"agentSubmission"`
	DeptHeadValidation domain.WorkflowStep `json:"deptHeadValidation"`
	ValidatorApproval  domain.WorkflowStep `json:"validatorApproval"`
	CashierExecution   domain.WorkflowStep `json:"cashierExecution"`
}

// ToModelDisbursement converts a domain Disbursement into its row shape,
// serializing workflow sub-documents to JSONB bytes. The action history is not
// part of the row; it lives in its own table.
func ToModelDisbursement(d domain.Disbursement) (models.Disbursement, error) {
	steps, err := json.Marshal(disbursementSteps{
		AgentSubmission:    d.AgentSubmission,
		DeptHeadValidation: d.DeptHeadValidation,
		ValidatorApproval:  d.ValidatorApproval,
		CashierExecution:   d.CashierExecution,
	})
	if err != nil {
		return models.Disbursement{}, fmt.Errorf("failed to marshal workflow steps: %w", err)
	}

	timeline, err := json.Marshal(d.StatusTimeline)
	if err != nil {
		return models.Disbursement{}, fmt.Errorf("failed to marshal status timeline: %w", err)
	}

	var currentRejection []byte
	if d.CurrentRejection != nil {
		currentRejection, err = json.Marshal(d.CurrentRejection)
		if err != nil {
			return models.Disbursement{}, fmt.Errorf("failed to marshal current rejection: %w", err)
		}
	}

	rejectionHistory, err := json.Marshal(d.RejectionHistory)
	if err != nil {
		return models.Disbursement{}, fmt.Errorf("failed to marshal rejection history: %w", err)
	}

	undoPermissions, err := json.Marshal(d.UndoPermissions)
	if err != nil {
		return models.Disbursement{}, fmt.Errorf("failed to marshal undo permissions: %w", err)
	}

	m := models.Disbursement{
		DisbursementID:        d.DisbursementID,
		CompanyID:             d.CompanyID,
		ReferenceNumber:       d.ReferenceNumber,
		Amount:                d.Amount,
		CurrencyCode:          d.CurrencyCode,
		DisbursementTypeID:    d.DisbursementTypeID,
		BeneficiaryID:         d.BeneficiaryID,
		Department:            d.Department,
		PaymentMethod:         d.PaymentMethod,
		Priority:              string(d.Priority),
		IsUrgent:              d.IsUrgent,
		Status:                string(d.Status),
		Steps:                 steps,
		StatusTimeline:        timeline,
		CurrentRejection:      currentRejection,
		RejectionHistory:      rejectionHistory,
		UndoPermissions:       undoPermissions,
		ForceCompleted:        d.ForceCompleted,
		ForceCompletionUndone: d.ForceCompletionUndone,
		IsRetroactive:         d.IsRetroactive,
		IsCompleted:           d.IsCompleted,
		Version:               d.Version,
		AuditFields:           ToModelAuditFields(d.AuditFields),
		DeletedAt:             d.DeletedAt,
		PurgeAt:               d.PurgeAt,
	}
	if d.OfficeID != nil {
		m.OfficeID = sql.NullString{String: *d.OfficeID, Valid: true}
	}
	if d.ForceCompletedBy != "" {
		m.ForceCompletedBy = sql.NullString{String: d.ForceCompletedBy, Valid: true}
	}
	if d.ForceCompletionReason != "" {
		m.ForceCompletionReason = sql.NullString{String: d.ForceCompletionReason, Valid: true}
	}
	if d.RetroactiveReason != "" {
		m.RetroactiveReason = sql.NullString{String: d.RetroactiveReason, Valid: true}
	}
	if d.CompletedAt != nil {
		m.CompletedAt = sql.NullTime{Time: *d.CompletedAt, Valid: true}
	}
	return m, nil
}

// ToDomainDisbursement converts a row back into the domain aggregate. The
// caller attaches the action history separately.
func ToDomainDisbursement(m models.Disbursement) (domain.Disbursement, error) {
	var steps disbursementSteps
	if err := json.Unmarshal(m.Steps, &steps); err != nil {
		return domain.Disbursement{}, fmt.Errorf("failed to unmarshal workflow steps: %w", err)
	}

	var timeline map[domain.DisbursementStatus]time.Time
	if err := json.Unmarshal(m.StatusTimeline, &timeline); err != nil {
		return domain.Disbursement{}, fmt.Errorf("failed to unmarshal status timeline: %w", err)
	}

	var currentRejection *domain.Rejection
	if len(m.CurrentRejection) > 0 {
		currentRejection = &domain.Rejection{}
		if err := json.Unmarshal(m.CurrentRejection, currentRejection); err != nil {
			return domain.Disbursement{}, fmt.Errorf("failed to unmarshal current rejection: %w", err)
		}
	}

	var rejectionHistory []domain.Rejection
	if len(m.RejectionHistory) > 0 {
		if err := json.Unmarshal(m.RejectionHistory, &rejectionHistory); err != nil {
			return domain.Disbursement{}, fmt.Errorf("failed to unmarshal rejection history: %w", err)
		}
	}

	var undoPermissions domain.UndoPermissions
	if len(m.UndoPermissions) > 0 {
		if err := json.Unmarshal(m.UndoPermissions, &undoPermissions); err != nil {
			return domain.Disbursement{}, fmt.Errorf("failed to unmarshal undo permissions: %w", err)
		}
	}

	d := domain.Disbursement{
		DisbursementID:        m.DisbursementID,
		CompanyID:             m.CompanyID,
		ReferenceNumber:       m.ReferenceNumber,
		Amount:                m.Amount,
		CurrencyCode:          m.CurrencyCode,
		DisbursementTypeID:    m.DisbursementTypeID,
		BeneficiaryID:         m.BeneficiaryID,
		Department:            m.Department,
		PaymentMethod:         m.PaymentMethod,
		Priority:              domain.Priority(m.Priority),
		IsUrgent:              m.IsUrgent,
		Status:                domain.DisbursementStatus(m.Status),
		AgentSubmission:       steps.AgentSubmission,
		DeptHeadValidation:    steps.DeptHeadValidation,
		ValidatorApproval:     steps.ValidatorApproval,
		CashierExecution:      steps.CashierExecution,
		StatusTimeline:        timeline,
		CurrentRejection:      currentRejection,
		RejectionHistory:      rejectionHistory,
		UndoPermissions:       undoPermissions,
		ForceCompleted:        m.ForceCompleted,
		ForceCompletionUndone: m.ForceCompletionUndone,
		IsRetroactive:         m.IsRetroactive,
		IsCompleted:           m.IsCompleted,
		Version:               m.Version,
		AuditFields:           ToDomainAuditFields(m.AuditFields),
		DeletedAt:             m.DeletedAt,
		PurgeAt:               m.PurgeAt,
	}
	if m.OfficeID.Valid {
		officeID := m.OfficeID.String
		d.OfficeID = &officeID
	}
	if m.ForceCompletedBy.Valid {
		d.ForceCompletedBy = m.ForceCompletedBy.String
	}
	if m.ForceCompletionReason.Valid {
		d.ForceCompletionReason = m.ForceCompletionReason.String
	}
	if m.RetroactiveReason.Valid {
		d.RetroactiveReason = m.RetroactiveReason.String
	}
	if m.CompletedAt.Valid {
		completedAt := m.CompletedAt.Time
		d.CompletedAt = &completedAt
	}
	return d, nil
}

// ToModelDisbursementAction converts a domain ActionRecord into its row shape.
func ToModelDisbursementAction(disbursementID string, record domain.ActionRecord) (models.DisbursementAction, error) {
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return models.DisbursementAction{}, fmt.Errorf("failed to marshal action metadata: %w", err)
	}
	return models.DisbursementAction{
		ActionID:       record.ActionID,
		DisbursementID: disbursementID,
		Action:         string(record.Action),
		ActorID:        record.ActorID,
		ActorName:      record.ActorName,
		ActorRole:      record.ActorRole,
		PerformedAt:    record.PerformedAt,
		Notes:          record.Notes,
		Reason:         record.Reason,
		Metadata:       metadata,
	}, nil
}

// ToDomainActionRecord converts an action row back into a domain record.
func ToDomainActionRecord(m models.DisbursementAction) (domain.ActionRecord, error) {
	var metadata domain.ActionMetadata
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &metadata); err != nil {
			return domain.ActionRecord{}, fmt.Errorf("failed to unmarshal action metadata: %w", err)
		}
	}
	return domain.ActionRecord{
		ActionID:    m.ActionID,
		Action:      domain.ActionType(m.Action),
		ActorID:     m.ActorID,
		ActorName:   m.ActorName,
		ActorRole:   m.ActorRole,
		PerformedAt: m.PerformedAt,
		Notes:       m.Notes,
		Reason:      m.Reason,
		Metadata:    metadata,
	}, nil
}
