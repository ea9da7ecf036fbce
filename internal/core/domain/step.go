package domain

import "time"

// StepStatus indicates the sub-state of a single workflow stage.
type StepStatus string

const (
	StepPending  StepStatus = "PENDING"
	StepApproved StepStatus = "APPROVED"
	StepRejected StepStatus = "REJECTED"
	StepSkipped  StepStatus = "SKIPPED"
	StepUndone   StepStatus = "UNDONE"
)

// WorkflowStep is the embedded sub-state of one stage. It is owned exclusively
// by its parent Disbursement and is never addressed independently.
type WorkflowStep struct {
	Status          StepStatus `json:"status"`
	IsCompleted     bool       `json:"isCompleted"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	CompletedBy     string     `json:"completedBy,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	WasSkipped      bool       `json:"wasSkipped"`
	SkippedBy       string     `json:"skippedBy,omitempty"`
	SkippedAt       *time.Time `json:"skippedAt,omitempty"`
	WasUndone       bool       `json:"wasUndone"`
	UndoneBy        string     `json:"undoneBy,omitempty"`
	UndoneAt        *time.Time `json:"undoneAt,omitempty"`
	UndoReason      string     `json:"undoReason,omitempty"`
	// History is this stage's own slice of the disbursement-level action log.
	History []ActionRecord `json:"history"`
}

// NewWorkflowStep returns a pending step with an empty history.
func NewWorkflowStep() WorkflowStep {
	return WorkflowStep{Status: StepPending}
}
