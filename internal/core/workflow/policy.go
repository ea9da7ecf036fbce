package workflow

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
)

// Policy derives which stages are mandatory for a disbursement and which undo
// operations are currently permitted. Settings always arrive as an explicit
// immutable snapshot so evaluation is deterministic and testable without a
// database.
type Policy struct{}

// RequiredStages returns the stages that must complete for a disbursement of
// the given amount under the given company settings, in pipeline order.
//
// Agent submission is always required. Department-head and validator approval
// are required only when their flag is set AND the amount is strictly greater
// than MaxAmountNoApproval: an amount exactly equal to the threshold is
// auto-approved. Cashier execution depends on its flag alone — funds must be
// marked disbursed regardless of amount, unless the company has switched the
// stage off entirely.
func (Policy) RequiredStages(amount decimal.Decimal, settings domain.ApprovalSettings) ([]domain.StageKey, error) {
	if settings.MaxAmountNoApproval.IsNegative() {
		return nil, policyError(fmt.Sprintf("maxAmountNoApproval must not be negative, got %s", settings.MaxAmountNoApproval))
	}

	required := []domain.StageKey{domain.StageAgentSubmission}
	needsApproval := amount.GreaterThan(settings.MaxAmountNoApproval)

	if settings.RequireDeptHeadApproval && needsApproval {
		required = append(required, domain.StageDeptHeadValidation)
	}
	if settings.RequireValidatorApproval && needsApproval {
		required = append(required, domain.StageValidatorApproval)
	}
	if settings.RequireCashierExecution {
		required = append(required, domain.StageCashierExecution)
	}
	return required, nil
}

// StageRequired reports whether a single stage is mandatory under the settings.
func (p Policy) StageRequired(stage domain.StageKey, amount decimal.Decimal, settings domain.ApprovalSettings) (bool, error) {
	required, err := p.RequiredStages(amount, settings)
	if err != nil {
		return false, err
	}
	for _, key := range required {
		if key == stage {
			return true, nil
		}
	}
	return false, nil
}

// ComputeUndoPermissions evaluates which undo operations are legal in the
// aggregate's current state. A stage may be undone only while it is the most
// recently completed approval and nothing has superseded it; a rejection only
// while it is current and untouched; a force completion only while no genuine
// stage completion followed it.
func (Policy) ComputeUndoPermissions(d *domain.Disbursement) domain.UndoPermissions {
	perms := domain.UndoPermissions{}

	if d.Status == domain.StatusCancelled {
		return perms
	}

	perms.CanUndoRejection = canUndoRejection(d)
	perms.CanUndoForceCompletion = canUndoForceCompletion(d)

	// Stage undo is blocked while a rejection is live or the record was
	// force-completed: those must be unwound through their own counter-actions.
	if d.Status == domain.StatusRejected || (d.ForceCompleted && !d.ForceCompletionUndone) {
		return perms
	}

	latest, ok := mostRecentlyApprovedStage(d)
	if !ok {
		return perms
	}
	switch latest {
	case domain.StageDeptHeadValidation:
		perms.CanUndoDeptHeadValidation = true
	case domain.StageValidatorApproval:
		perms.CanUndoValidatorApproval = true
	case domain.StageCashierExecution:
		perms.CanUndoCashierExecution = true
	}
	return perms
}

// mostRecentlyApprovedStage finds the approval stage with the latest
// CompletedAt amongst the three approval/execution stages. Ties on identical
// timestamps are broken by pipeline order: the later stage wins.
func mostRecentlyApprovedStage(d *domain.Disbursement) (domain.StageKey, bool) {
	var (
		found  bool
		winner domain.StageKey
		best   *domain.WorkflowStep
	)
	for _, key := range domain.OrderedStages {
		if key == domain.StageAgentSubmission {
			continue // submission itself is never undoable
		}
		step := d.Step(key)
		if !step.IsCompleted || step.Status != domain.StepApproved || step.CompletedAt == nil {
			continue
		}
		if !found || !step.CompletedAt.Before(*best.CompletedAt) {
			found = true
			winner = key
			best = step
		}
	}
	return winner, found
}

func canUndoRejection(d *domain.Disbursement) bool {
	if d.CurrentRejection == nil || d.CurrentRejection.WasUndone {
		return false
	}
	if d.Status != domain.StatusRejected {
		return false
	}
	// No subsequent action may have occurred: the rejection must still be the
	// newest entry in the action log.
	if len(d.ActionHistory) == 0 {
		return false
	}
	last := d.ActionHistory[len(d.ActionHistory)-1]
	switch last.Action {
	case domain.ActionDeptHeadRejected, domain.ActionValidatorRejected, domain.ActionCashierRejected:
		return true
	}
	return false
}

func canUndoForceCompletion(d *domain.Disbursement) bool {
	if !d.ForceCompleted || d.ForceCompletionUndone {
		return false
	}
	forceIdx := lastActionIndex(d.ActionHistory, domain.ActionForceCompleted)
	if forceIdx < 0 {
		return false
	}
	// Any genuine approval recorded after the force completion supersedes it.
	// Ordering comes from the action log itself, not from timestamps, which
	// lose precision across persistence.
	for _, record := range d.ActionHistory[forceIdx+1:] {
		for _, t := range approvalActionTypes {
			if record.Action == t {
				return false
			}
		}
	}
	return true
}
