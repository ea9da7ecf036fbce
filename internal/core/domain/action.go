package domain

import "time"

// ActionType enumerates every state-changing event recorded in the action log.
type ActionType string

const (
	ActionSubmitted             ActionType = "SUBMITTED"
	ActionResubmitted           ActionType = "RESUBMITTED"
	ActionDeptHeadValidated     ActionType = "DEPT_HEAD_VALIDATED"
	ActionDeptHeadRejected      ActionType = "DEPT_HEAD_REJECTED"
	ActionValidatorApproved     ActionType = "VALIDATOR_APPROVED"
	ActionValidatorRejected     ActionType = "VALIDATOR_REJECTED"
	ActionCashierRejected       ActionType = "CASHIER_REJECTED"
	ActionCashierExecuted       ActionType = "CASHIER_EXECUTED"
	ActionForceCompleted        ActionType = "FORCE_COMPLETED"
	ActionForceCompletionUndone ActionType = "FORCE_COMPLETION_UNDONE"
	ActionRejectionUndone       ActionType = "REJECTION_UNDONE"
	ActionStageUndone           ActionType = "STAGE_UNDONE"
	ActionMarkedRetroactive     ActionType = "MARKED_RETROACTIVE"
	ActionCancelled             ActionType = "CANCELLED"
)

// ActionMetadata captures before/after values so that undo records can be
// reconstructed from the log alone.
type ActionMetadata struct {
	PreviousStatus     DisbursementStatus `json:"previousStatus,omitempty"`
	NewStatus          DisbursementStatus `json:"newStatus,omitempty"`
	Stage              StageKey           `json:"stage,omitempty"`
	PreviousStepStatus StepStatus         `json:"previousStepStatus,omitempty"`
	NewStepStatus      StepStatus         `json:"newStepStatus,omitempty"`
	// UndoneActionID points at the original action a counter-action reverses.
	UndoneActionID string `json:"undoneActionID,omitempty"`
	RequestID      string `json:"requestID,omitempty"`
}

// ActionRecord is a single immutable audit entry. Records are only ever
// appended; reversal happens through counter-actions, never by mutation.
type ActionRecord struct {
	ActionID    string         `json:"actionID"` // Primary key (UUID)
	Action      ActionType     `json:"action"`
	ActorID     string         `json:"actorID"`
	ActorName   string         `json:"actorName"` // Denormalized for audit rendering
	ActorRole   string         `json:"actorRole"` // Role asserted by the identity provider
	PerformedAt time.Time      `json:"performedAt"`
	Notes       string         `json:"notes,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	Metadata    ActionMetadata `json:"metadata"`
}
