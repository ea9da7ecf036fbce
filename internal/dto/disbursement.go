package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
)

// --- Disbursement request DTOs ---

// CreateDisbursementRequest defines data for creating a new disbursement draft.
type CreateDisbursementRequest struct {
	ReferenceNumber    string          `json:"referenceNumber"` // Generated when blank
	Amount             decimal.Decimal `json:"amount" binding:"required,dpos"`
	CurrencyCode       string          `json:"currencyCode" binding:"required,len=3"`
	DisbursementTypeID string          `json:"disbursementTypeID" binding:"required"`
	BeneficiaryID      string          `json:"beneficiaryID" binding:"required"`
	Department         string          `json:"department"`
	OfficeID           *string         `json:"officeID"`
	PaymentMethod      string          `json:"paymentMethod"`
	Priority           domain.Priority `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	IsUrgent           bool            `json:"isUrgent"`
}

// UpdateDisbursementRequest defines draft-only edits. Nil fields are left unchanged.
type UpdateDisbursementRequest struct {
	Amount             *decimal.Decimal `json:"amount" binding:"omitempty,dpos"`
	CurrencyCode       *string          `json:"currencyCode" binding:"omitempty,len=3"`
	DisbursementTypeID *string          `json:"disbursementTypeID"`
	BeneficiaryID      *string          `json:"beneficiaryID"`
	Department         *string          `json:"department"`
	OfficeID           *string          `json:"officeID"`
	PaymentMethod      *string          `json:"paymentMethod"`
	Priority           *domain.Priority `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	IsUrgent           *bool            `json:"isUrgent"`
}

// TransitionRequest carries optional notes for a forward workflow action
// (submit, validate, approve, execute, resubmit).
type TransitionRequest struct {
	Notes string `json:"notes"`
}

// ReasonRequest carries the mandatory reason for a rejection, an undo, a force
// completion, a retroactive marking or a cancellation.
type ReasonRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ListDisbursementsParams holds query parameters for listing disbursements.
type ListDisbursementsParams struct {
	Status    domain.DisbursementStatus `form:"status" binding:"omitempty,oneof=DRAFT PENDING_DEPT_HEAD PENDING_VALIDATOR PENDING_CASHIER COMPLETED REJECTED CANCELLED"`
	Limit     int                       `form:"limit"`
	NextToken *string                   `form:"nextToken"`
}

// --- Disbursement response DTOs ---

// WorkflowStepResponse defines the data returned for one workflow stage.
type WorkflowStepResponse struct {
	Status          domain.StepStatus `json:"status"`
	IsCompleted     bool              `json:"isCompleted"`
	CompletedAt     *time.Time        `json:"completedAt,omitempty"`
	CompletedBy     string            `json:"completedBy,omitempty"`
	RejectionReason string            `json:"rejectionReason,omitempty"`
	WasSkipped      bool              `json:"wasSkipped"`
	WasUndone       bool              `json:"wasUndone"`
	UndoneBy        string            `json:"undoneBy,omitempty"`
	UndoneAt        *time.Time        `json:"undoneAt,omitempty"`
	UndoReason      string            `json:"undoReason,omitempty"`
}

// ActionRecordResponse defines the data returned for one action log entry.
type ActionRecordResponse struct {
	ActionID    string            `json:"actionID"`
	Action      domain.ActionType `json:"action"`
	ActorID     string            `json:"actorID"`
	ActorName   string            `json:"actorName"`
	ActorRole   string            `json:"actorRole"`
	PerformedAt time.Time         `json:"performedAt"`
	Notes       string            `json:"notes,omitempty"`
	Reason      string            `json:"reason,omitempty"`
}

// RejectionResponse defines the data returned for a rejection record.
type RejectionResponse struct {
	RejectionID    string          `json:"rejectionID"`
	Stage          domain.StageKey `json:"stage"`
	RejectedBy     string          `json:"rejectedBy"`
	RejectedByName string          `json:"rejectedByName"`
	RejectedAt     time.Time       `json:"rejectedAt"`
	Reason         string          `json:"reason"`
	WasUndone      bool            `json:"wasUndone"`
	UndoneBy       string          `json:"undoneBy,omitempty"`
	UndoneAt       *time.Time      `json:"undoneAt,omitempty"`
	UndoReason     string          `json:"undoReason,omitempty"`
}

// DisbursementResponse defines the full aggregate view returned to clients.
type DisbursementResponse struct {
	DisbursementID     string                    `json:"disbursementID"`
	CompanyID          string                    `json:"companyID"`
	ReferenceNumber    string                    `json:"referenceNumber"`
	Amount             decimal.Decimal           `json:"amount"`
	CurrencyCode       string                    `json:"currencyCode"`
	DisbursementTypeID string                    `json:"disbursementTypeID"`
	BeneficiaryID      string                    `json:"beneficiaryID"`
	Department         string                    `json:"department,omitempty"`
	OfficeID           *string                   `json:"officeID,omitempty"`
	PaymentMethod      string                    `json:"paymentMethod,omitempty"`
	Priority           domain.Priority           `json:"priority"`
	IsUrgent           bool                      `json:"isUrgent"`
	Status             domain.DisbursementStatus `json:"status"`

	AgentSubmission    WorkflowStepResponse `json:"agentSubmission"`
	DeptHeadValidation WorkflowStepResponse `json:"deptHeadValidation"`
	ValidatorApproval  WorkflowStepResponse `json:"validatorApproval"`
	CashierExecution   WorkflowStepResponse `json:"cashierExecution"`

	StatusTimeline   map[domain.DisbursementStatus]time.Time `json:"statusTimeline"`
	CurrentRejection *RejectionResponse                      `json:"currentRejection,omitempty"`
	RejectionHistory []RejectionResponse                     `json:"rejectionHistory"`

	ForceCompleted        bool   `json:"forceCompleted"`
	ForceCompletedBy      string `json:"forceCompletedBy,omitempty"`
	ForceCompletionReason string `json:"forceCompletionReason,omitempty"`
	ForceCompletionUndone bool   `json:"forceCompletionUndone"`

	IsRetroactive     bool   `json:"isRetroactive"`
	RetroactiveReason string `json:"retroactiveReason,omitempty"`

	IsCompleted bool       `json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	UndoPermissions domain.UndoPermissions `json:"undoPermissions"`
	Version         int64                  `json:"version"`

	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"`
}

// ListDisbursementsResponse wraps a page of disbursements with the pagination token.
type ListDisbursementsResponse struct {
	Disbursements []DisbursementResponse `json:"disbursements"`
	NextToken     *string                `json:"nextToken,omitempty"`
}

// ActionHistoryResponse wraps the full action log of a disbursement.
type ActionHistoryResponse struct {
	DisbursementID string                 `json:"disbursementID"`
	Actions        []ActionRecordResponse `json:"actions"`
}

// --- Mapping ---

// ToWorkflowStepResponse converts a domain.WorkflowStep to its DTO.
func ToWorkflowStepResponse(s *domain.WorkflowStep) WorkflowStepResponse {
	return WorkflowStepResponse{
		Status:          s.Status,
		IsCompleted:     s.IsCompleted,
		CompletedAt:     s.CompletedAt,
		CompletedBy:     s.CompletedBy,
		RejectionReason: s.RejectionReason,
		WasSkipped:      s.WasSkipped,
		WasUndone:       s.WasUndone,
		UndoneBy:        s.UndoneBy,
		UndoneAt:        s.UndoneAt,
		UndoReason:      s.UndoReason,
	}
}

// ToActionRecordResponse converts a domain.ActionRecord to its DTO.
func ToActionRecordResponse(r *domain.ActionRecord) ActionRecordResponse {
	return ActionRecordResponse{
		ActionID:    r.ActionID,
		Action:      r.Action,
		ActorID:     r.ActorID,
		ActorName:   r.ActorName,
		ActorRole:   r.ActorRole,
		PerformedAt: r.PerformedAt,
		Notes:       r.Notes,
		Reason:      r.Reason,
	}
}

// ToActionRecordResponses converts a slice of domain.ActionRecord to DTOs.
func ToActionRecordResponses(records []domain.ActionRecord) []ActionRecordResponse {
	responses := make([]ActionRecordResponse, len(records))
	for i := range records {
		responses[i] = ToActionRecordResponse(&records[i])
	}
	return responses
}

// ToRejectionResponse converts a domain.Rejection to its DTO.
func ToRejectionResponse(r *domain.Rejection) RejectionResponse {
	return RejectionResponse{
		RejectionID:    r.RejectionID,
		Stage:          r.Stage,
		RejectedBy:     r.RejectedBy,
		RejectedByName: r.RejectedByName,
		RejectedAt:     r.RejectedAt,
		Reason:         r.Reason,
		WasUndone:      r.WasUndone,
		UndoneBy:       r.UndoneBy,
		UndoneAt:       r.UndoneAt,
		UndoReason:     r.UndoReason,
	}
}

// ToDisbursementResponse converts a domain.Disbursement to its DTO.
func ToDisbursementResponse(d *domain.Disbursement) DisbursementResponse {
	resp := DisbursementResponse{
		DisbursementID:     d.DisbursementID,
		CompanyID:          d.CompanyID,
		ReferenceNumber:    d.ReferenceNumber,
		Amount:             d.Amount,
		CurrencyCode:       d.CurrencyCode,
		DisbursementTypeID: d.DisbursementTypeID,
		BeneficiaryID:      d.BeneficiaryID,
		Department:         d.Department,
		OfficeID:           d.OfficeID,
		PaymentMethod:      d.PaymentMethod,
		Priority:           d.Priority,
		IsUrgent:           d.IsUrgent,
		Status:             d.Status,

		AgentSubmission:    ToWorkflowStepResponse(&d.AgentSubmission),
		DeptHeadValidation: ToWorkflowStepResponse(&d.DeptHeadValidation),
		ValidatorApproval:  ToWorkflowStepResponse(&d.ValidatorApproval),
		CashierExecution:   ToWorkflowStepResponse(&d.CashierExecution),

		StatusTimeline: d.StatusTimeline,

		ForceCompleted:        d.ForceCompleted,
		ForceCompletedBy:      d.ForceCompletedBy,
		ForceCompletionReason: d.ForceCompletionReason,
		ForceCompletionUndone: d.ForceCompletionUndone,

		IsRetroactive:     d.IsRetroactive,
		RetroactiveReason: d.RetroactiveReason,

		IsCompleted: d.IsCompleted,
		CompletedAt: d.CompletedAt,

		UndoPermissions: d.UndoPermissions,
		Version:         d.Version,

		CreatedAt:     d.CreatedAt,
		CreatedBy:     d.CreatedBy,
		LastUpdatedAt: d.LastUpdatedAt,
		LastUpdatedBy: d.LastUpdatedBy,
	}
	if d.CurrentRejection != nil {
		current := ToRejectionResponse(d.CurrentRejection)
		resp.CurrentRejection = &current
	}
	resp.RejectionHistory = make([]RejectionResponse, len(d.RejectionHistory))
	for i := range d.RejectionHistory {
		resp.RejectionHistory[i] = ToRejectionResponse(&d.RejectionHistory[i])
	}
	return resp
}

// ToListDisbursementsResponse converts a page of domain.Disbursement to its DTO.
func ToListDisbursementsResponse(ds []domain.Disbursement, nextToken *string) ListDisbursementsResponse {
	list := make([]DisbursementResponse, len(ds))
	for i := range ds {
		list[i] = ToDisbursementResponse(&ds[i])
	}
	return ListDisbursementsResponse{Disbursements: list, NextToken: nextToken}
}
