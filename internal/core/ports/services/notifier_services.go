package services

import (
	"context"

	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
)

// WorkflowEvent describes one completed workflow transition for downstream
// notification delivery.
type WorkflowEvent struct {
	EventType      domain.ActionType         `json:"eventType"`
	CompanyID      string                    `json:"companyID"`
	DisbursementID string                    `json:"disbursementID"`
	ActorID        string                    `json:"actorID"`
	NewStatus      domain.DisbursementStatus `json:"newStatus"`
	Reason         string                    `json:"reason,omitempty"`
}

// NotifierSvc publishes workflow events to interested parties. Implementations
// must be best-effort: delivery failures are logged by the implementation and
// never propagated, so notification problems cannot interrupt workflow
// operations.
type NotifierSvc interface {
	PublishWorkflowEvent(ctx context.Context, event WorkflowEvent)
}
