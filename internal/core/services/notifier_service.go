package services

import (
	"context"
	"log/slog"

	portssvc "github.com/tesoria/disbursement_ops_app/internal/core/ports/services"
)

// logNotifier is the default NotifierSvc: it records workflow events on the
// request logger. A broker-backed implementation can replace it without
// touching the services that publish.
type logNotifier struct {
	BaseService
}

// NewLogNotifier creates a notifier that logs workflow events.
func NewLogNotifier() portssvc.NotifierSvc {
	return &logNotifier{}
}

// Ensure logNotifier implements the NotifierSvc interface
var _ portssvc.NotifierSvc = (*logNotifier)(nil)

// PublishWorkflowEvent logs the event. Never fails.
func (n *logNotifier) PublishWorkflowEvent(ctx context.Context, event portssvc.WorkflowEvent) {
	n.LogInfo(ctx, "Workflow event published",
		slog.String("event_type", string(event.EventType)),
		slog.String("company_id", event.CompanyID),
		slog.String("disbursement_id", event.DisbursementID),
		slog.String("actor_id", event.ActorID),
		slog.String("new_status", string(event.NewStatus)))
}
