package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DisbursementStatus indicates the overall workflow state of a disbursement.
type DisbursementStatus string

const (
	StatusDraft            DisbursementStatus = "DRAFT"
	StatusPendingDeptHead  DisbursementStatus = "PENDING_DEPT_HEAD"
	StatusPendingValidator DisbursementStatus = "PENDING_VALIDATOR"
	StatusPendingCashier   DisbursementStatus = "PENDING_CASHIER"
	StatusCompleted        DisbursementStatus = "COMPLETED"
	StatusRejected         DisbursementStatus = "REJECTED"
	StatusCancelled        DisbursementStatus = "CANCELLED"
)

// IsTerminal returns true for states with no outgoing transitions other than
// explicit escape hatches (resubmit from REJECTED, undo of force completion).
func (s DisbursementStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsPending returns true while the disbursement sits in an approval stage.
func (s DisbursementStatus) IsPending() bool {
	switch s {
	case StatusPendingDeptHead, StatusPendingValidator, StatusPendingCashier:
		return true
	}
	return false
}

// Priority classifies how urgently a disbursement should be processed.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// UndoPermissions holds the derived per-state undo flags. They are recomputed
// by the workflow engine on every transition and persisted for rendering.
type UndoPermissions struct {
	CanUndoDeptHeadValidation bool `json:"canUndoDeptHeadValidation"`
	CanUndoValidatorApproval  bool `json:"canUndoValidatorApproval"`
	CanUndoCashierExecution   bool `json:"canUndoCashierExecution"`
	CanUndoRejection          bool `json:"canUndoRejection"`
	CanUndoForceCompletion    bool `json:"canUndoForceCompletion"`
}

// Disbursement is the aggregate root of the approval workflow. It is mutated
// exclusively through the workflow engine's transition functions; direct field
// writes bypass the invariants and are disallowed.
type Disbursement struct {
	DisbursementID  string `json:"disbursementID"`  // Primary key (UUID)
	CompanyID       string `json:"companyID"`       // FK -> companies.company_id
	ReferenceNumber string `json:"referenceNumber"` // Unique per company

	Amount             decimal.Decimal `json:"amount"` // Non-negative
	CurrencyCode       string          `json:"currencyCode"`
	DisbursementTypeID string          `json:"disbursementTypeID"`
	BeneficiaryID      string          `json:"beneficiaryID"`
	Department         string          `json:"department"`
	OfficeID           *string         `json:"officeID,omitempty"`
	PaymentMethod      string          `json:"paymentMethod"`
	Priority           Priority        `json:"priority"`
	IsUrgent           bool            `json:"isUrgent"`

	Status             DisbursementStatus `json:"status"`
	AgentSubmission    WorkflowStep       `json:"agentSubmission"`
	DeptHeadValidation WorkflowStep       `json:"deptHeadValidation"`
	ValidatorApproval  WorkflowStep       `json:"validatorApproval"`
	CashierExecution   WorkflowStep       `json:"cashierExecution"`

	// StatusTimeline maps each status to the instant it was first entered.
	// Entries are never overwritten once set.
	StatusTimeline map[DisbursementStatus]time.Time `json:"statusTimeline"`
	// ActionHistory is the ordered, append-only log of every action across
	// all stages.
	ActionHistory []ActionRecord `json:"actionHistory"`

	CurrentRejection *Rejection  `json:"currentRejection,omitempty"`
	RejectionHistory []Rejection `json:"rejectionHistory"`

	ForceCompleted        bool   `json:"forceCompleted"`
	ForceCompletedBy      string `json:"forceCompletedBy,omitempty"`
	ForceCompletionReason string `json:"forceCompletionReason,omitempty"`
	ForceCompletionUndone bool   `json:"forceCompletionUndone"`

	IsRetroactive     bool   `json:"isRetroactive"`
	RetroactiveReason string `json:"retroactiveReason,omitempty"`

	IsCompleted bool       `json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	UndoPermissions UndoPermissions `json:"undoPermissions"`

	// Version backs optimistic concurrency on the aggregate write.
	Version int64 `json:"version"`

	AuditFields
	DeletedAt *time.Time `json:"deletedAt,omitempty"` // Soft delete marker
	PurgeAt   *time.Time `json:"purgeAt,omitempty"`   // Scheduled permanent deletion, owned by the retention job
}

// Step returns a pointer to the embedded WorkflowStep for the given stage key,
// or nil for an unknown key.
func (d *Disbursement) Step(key StageKey) *WorkflowStep {
	switch key {
	case StageAgentSubmission:
		return &d.AgentSubmission
	case StageDeptHeadValidation:
		return &d.DeptHeadValidation
	case StageValidatorApproval:
		return &d.ValidatorApproval
	case StageCashierExecution:
		return &d.CashierExecution
	}
	return nil
}

// PendingStage maps the current status to the stage awaiting action, if any.
func (d *Disbursement) PendingStage() (StageKey, bool) {
	switch d.Status {
	case StatusPendingDeptHead:
		return StageDeptHeadValidation, true
	case StatusPendingValidator:
		return StageValidatorApproval, true
	case StatusPendingCashier:
		return StageCashierExecution, true
	}
	return "", false
}
