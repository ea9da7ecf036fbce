package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
)

// Engine is the disbursement workflow state machine. Every method validates
// its preconditions against the aggregate snapshot, then applies the full
// transition in memory: stage mutations, one appended ActionRecord, the
// status-timeline stamp and recomputed undo permissions. The caller persists
// the mutated aggregate as a single conditional write.
//
// The engine enforces state preconditions only; whether the actor's role may
// perform the transition is the authorization collaborator's concern. The
// asserted role is recorded in each ActionRecord for audit.
type Engine struct {
	policy Policy
}

// NewEngine creates a workflow engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Policy exposes the engine's policy evaluator.
func (e *Engine) Policy() Policy {
	return e.policy
}

// statusForStage maps each stage to the overall status that awaits it.
var statusForStage = map[domain.StageKey]domain.DisbursementStatus{
	domain.StageDeptHeadValidation: domain.StatusPendingDeptHead,
	domain.StageValidatorApproval:  domain.StatusPendingValidator,
	domain.StageCashierExecution:   domain.StatusPendingCashier,
}

// Submit moves a draft disbursement into its first required stage. Stages the
// policy does not require are marked skipped immediately; when nothing beyond
// submission is required the disbursement completes outright.
func (e *Engine) Submit(d *domain.Disbursement, actor domain.Actor, notes string, settings domain.ApprovalSettings) error {
	if err := requireActor(d, domain.ActionSubmitted, actor); err != nil {
		return err
	}
	if d.Status != domain.StatusDraft {
		return invalidTransition(d, domain.ActionSubmitted, "submit requires DRAFT")
	}
	required, err := e.policy.RequiredStages(d.Amount, settings)
	if err != nil {
		return e.withContext(err, d, domain.ActionSubmitted)
	}

	now := time.Now().UTC()
	prev := d.Status

	sub := &d.AgentSubmission
	sub.Status = domain.StepApproved
	sub.IsCompleted = true
	sub.CompletedAt = &now
	sub.CompletedBy = actor.ActorID

	e.advance(d, domain.StageAgentSubmission, required, actor, now)

	record := e.appendAction(d, actor, domain.ActionSubmitted, now, notes, "", domain.ActionMetadata{
		PreviousStatus:     prev,
		NewStatus:          d.Status,
		Stage:              domain.StageAgentSubmission,
		PreviousStepStatus: domain.StepPending,
		NewStepStatus:      domain.StepApproved,
	})
	sub.History = append(sub.History, record)

	e.finishTransition(d, now)
	return nil
}

// Validate approves the department-head or validator stage and advances the
// disbursement to the next required stage.
func (e *Engine) Validate(d *domain.Disbursement, stage domain.StageKey, actor domain.Actor, notes string, settings domain.ApprovalSettings) error {
	action, ok := approvalActionForStage(stage)
	if !ok {
		return invalidTransition(d, domain.ActionType(fmt.Sprintf("VALIDATE_%s", stage)), "stage cannot be validated")
	}
	if err := requireActor(d, action, actor); err != nil {
		return err
	}
	pending, isPending := d.PendingStage()
	if !isPending || pending != stage {
		return invalidTransition(d, action, fmt.Sprintf("stage %s is not awaiting validation", stage))
	}
	required, err := e.policy.RequiredStages(d.Amount, settings)
	if err != nil {
		return e.withContext(err, d, action)
	}

	now := time.Now().UTC()
	prev := d.Status

	step := d.Step(stage)
	step.Status = domain.StepApproved
	step.IsCompleted = true
	step.CompletedAt = &now
	step.CompletedBy = actor.ActorID

	e.advance(d, stage, required, actor, now)

	record := e.appendAction(d, actor, action, now, notes, "", domain.ActionMetadata{
		PreviousStatus:     prev,
		NewStatus:          d.Status,
		Stage:              stage,
		PreviousStepStatus: domain.StepPending,
		NewStepStatus:      domain.StepApproved,
	})
	step.History = append(step.History, record)

	e.finishTransition(d, now)
	return nil
}

// Reject marks the currently pending stage rejected and parks the whole
// disbursement in REJECTED until the rejection is undone or resubmitted.
func (e *Engine) Reject(d *domain.Disbursement, stage domain.StageKey, actor domain.Actor, reason string) error {
	action, ok := rejectionActionForStage(stage)
	if !ok {
		return invalidTransition(d, domain.ActionType(fmt.Sprintf("REJECT_%s", stage)), "stage cannot be rejected")
	}
	if err := requireActor(d, action, actor); err != nil {
		return err
	}
	if reason == "" {
		return invalidTransition(d, action, "rejection requires a reason")
	}
	pending, isPending := d.PendingStage()
	if !isPending || pending != stage {
		return invalidTransition(d, action, fmt.Sprintf("stage %s is not awaiting action", stage))
	}

	now := time.Now().UTC()
	prev := d.Status

	step := d.Step(stage)
	step.Status = domain.StepRejected
	step.IsCompleted = true
	step.CompletedAt = &now
	step.CompletedBy = actor.ActorID
	step.RejectionReason = reason

	rejection := domain.Rejection{
		RejectionID:    uuid.NewString(),
		Stage:          stage,
		RejectedBy:     actor.ActorID,
		RejectedByName: actor.Name,
		RejectedAt:     now,
		Reason:         reason,
	}
	d.RejectionHistory = append(d.RejectionHistory, rejection)
	d.CurrentRejection = &rejection

	d.Status = domain.StatusRejected

	record := e.appendAction(d, actor, action, now, "", reason, domain.ActionMetadata{
		PreviousStatus:     prev,
		NewStatus:          d.Status,
		Stage:              stage,
		PreviousStepStatus: domain.StepPending,
		NewStepStatus:      domain.StepRejected,
	})
	step.History = append(step.History, record)

	e.finishTransition(d, now)
	return nil
}

// UndoRejection reverses the current rejection and reopens the stage it
// interrupted. The rejection record stays in the history with its undo fields
// filled in; only a live, most-recent rejection can be undone.
func (e *Engine) UndoRejection(d *domain.Disbursement, actor domain.Actor, reason string) error {
	if err := requireActor(d, domain.ActionRejectionUndone, actor); err != nil {
		return err
	}
	if !e.policy.ComputeUndoPermissions(d).CanUndoRejection {
		return undoNotPermitted(d, domain.ActionRejectionUndone, "no undoable rejection")
	}

	now := time.Now().UTC()
	prev := d.Status
	rejection := d.CurrentRejection
	stage := rejection.Stage

	// Flip the undo fields on the history entry; the record itself is kept.
	for i := range d.RejectionHistory {
		if d.RejectionHistory[i].RejectionID == rejection.RejectionID {
			d.RejectionHistory[i].WasUndone = true
			d.RejectionHistory[i].UndoneBy = actor.ActorID
			d.RejectionHistory[i].UndoneAt = &now
			d.RejectionHistory[i].UndoReason = reason
		}
	}
	d.CurrentRejection = nil

	step := d.Step(stage)
	rejectingActionID := lastActionID(step.History, rejectionActionTypes...)
	reopenStep(step)

	d.Status = statusForStage[stage]

	record := e.appendAction(d, actor, domain.ActionRejectionUndone, now, "", reason, domain.ActionMetadata{
		PreviousStatus:     prev,
		NewStatus:          d.Status,
		Stage:              stage,
		PreviousStepStatus: domain.StepRejected,
		NewStepStatus:      domain.StepPending,
		UndoneActionID:     rejectingActionID,
	})
	step.History = append(step.History, record)

	e.finishTransition(d, now)
	return nil
}

// UndoStage reverses the most recent stage approval, reopening that stage and
// moving the overall status back to it.
func (e *Engine) UndoStage(d *domain.Disbursement, stage domain.StageKey, actor domain.Actor, reason string) error {
	if err := requireActor(d, domain.ActionStageUndone, actor); err != nil {
		return err
	}
	perms := e.policy.ComputeUndoPermissions(d)
	allowed := false
	switch stage {
	case domain.StageDeptHeadValidation:
		allowed = perms.CanUndoDeptHeadValidation
	case domain.StageValidatorApproval:
		allowed = perms.CanUndoValidatorApproval
	case domain.StageCashierExecution:
		allowed = perms.CanUndoCashierExecution
	}
	if !allowed {
		return undoNotPermitted(d, domain.ActionStageUndone, fmt.Sprintf("stage %s cannot be undone", stage))
	}

	now := time.Now().UTC()
	prev := d.Status

	step := d.Step(stage)
	originalActionID := lastActionID(step.History, approvalActionTypes...)
	reopenStep(step)
	step.WasUndone = true
	step.UndoneBy = actor.ActorID
	step.UndoneAt = &now
	step.UndoReason = reason

	d.Status = statusForStage[stage]
	if stage == domain.StageCashierExecution {
		d.IsCompleted = false
		d.CompletedAt = nil
	}

	record := e.appendAction(d, actor, domain.ActionStageUndone, now, "", reason, domain.ActionMetadata{
		PreviousStatus:     prev,
		NewStatus:          d.Status,
		Stage:              stage,
		PreviousStepStatus: domain.StepApproved,
		NewStepStatus:      domain.StepPending,
		UndoneActionID:     originalActionID,
	})
	step.History = append(step.History, record)

	e.finishTransition(d, now)
	return nil
}

// Execute completes the cashier stage, marking the funds disbursed and the
// workflow completed.
func (e *Engine) Execute(d *domain.Disbursement, actor domain.Actor, notes string) error {
	if err := requireActor(d, domain.ActionCashierExecuted, actor); err != nil {
		return err
	}
	if d.Status != domain.StatusPendingCashier {
		return invalidTransition(d, domain.ActionCashierExecuted, "execute requires PENDING_CASHIER")
	}

	now := time.Now().UTC()
	prev := d.Status

	step := &d.CashierExecution
	step.Status = domain.StepApproved
	step.IsCompleted = true
	step.CompletedAt = &now
	step.CompletedBy = actor.ActorID

	d.Status = domain.StatusCompleted
	d.IsCompleted = true
	d.CompletedAt = &now

	record := e.appendAction(d, actor, domain.ActionCashierExecuted, now, notes, "", domain.ActionMetadata{
		PreviousStatus:     prev,
		NewStatus:          d.Status,
		Stage:              domain.StageCashierExecution,
		PreviousStepStatus: domain.StepPending,
		NewStepStatus:      domain.StepApproved,
	})
	step.History = append(step.History, record)

	e.finishTransition(d, now)
	return nil
}

// ForceComplete administratively closes a pending disbursement, skipping every
// stage that has not yet completed. Each skipped stage receives a copy of the
// force-completion record in its history.
func (e *Engine) ForceComplete(d *domain.Disbursement, actor domain.Actor, reason string) error {
	if err := requireActor(d, domain.ActionForceCompleted, actor); err != nil {
		return err
	}
	if !d.Status.IsPending() {
		return invalidTransition(d, domain.ActionForceCompleted, "force completion requires a pending stage")
	}
	if reason == "" {
		return invalidTransition(d, domain.ActionForceCompleted, "force completion requires a reason")
	}

	now := time.Now().UTC()
	prev := d.Status

	d.ForceCompleted = true
	d.ForceCompletedBy = actor.ActorID
	d.ForceCompletionReason = reason
	d.ForceCompletionUndone = false
	d.Status = domain.StatusCompleted
	d.IsCompleted = true
	d.CompletedAt = &now

	record := e.appendAction(d, actor, domain.ActionForceCompleted, now, "", reason, domain.ActionMetadata{
		PreviousStatus: prev,
		NewStatus:      d.Status,
	})

	for _, key := range domain.OrderedStages {
		step := d.Step(key)
		if step.IsCompleted {
			continue
		}
		step.Status = domain.StepSkipped
		step.IsCompleted = true
		step.WasSkipped = true
		step.SkippedBy = actor.ActorID
		step.SkippedAt = &now
		step.History = append(step.History, record)
	}

	e.finishTransition(d, now)
	return nil
}

// UndoForceCompletion reverses a force completion, restoring the stages it
// skipped and reverting the overall status to the stage that was pending when
// the override happened.
func (e *Engine) UndoForceCompletion(d *domain.Disbursement, actor domain.Actor, reason string) error {
	if err := requireActor(d, domain.ActionForceCompletionUndone, actor); err != nil {
		return err
	}
	if !e.policy.ComputeUndoPermissions(d).CanUndoForceCompletion {
		return undoNotPermitted(d, domain.ActionForceCompletionUndone, "force completion cannot be undone")
	}

	now := time.Now().UTC()
	prev := d.Status
	forceActionID := lastActionID(d.ActionHistory, domain.ActionForceCompleted)

	// Restore only the stages the force completion itself skipped; stages the
	// policy skipped at submit time keep their skip. The force record was
	// appended to each affected stage's history, so match on its identity —
	// timestamps do not survive persistence at full precision.
	for _, key := range domain.OrderedStages {
		step := d.Step(key)
		if step.WasSkipped && lastActionID(step.History, domain.ActionForceCompleted) == forceActionID {
			step.Status = domain.StepPending
			step.IsCompleted = false
			step.WasSkipped = false
			step.SkippedBy = ""
			step.SkippedAt = nil
		}
	}

	d.ForceCompletionUndone = true
	d.IsCompleted = false
	d.CompletedAt = nil
	d.Status = revertedStatus(d)

	e.appendAction(d, actor, domain.ActionForceCompletionUndone, now, "", reason, domain.ActionMetadata{
		PreviousStatus: prev,
		NewStatus:      d.Status,
		UndoneActionID: forceActionID,
	})

	e.finishTransition(d, now)
	return nil
}

// MarkRetroactive flags a disbursement as recorded after the fact. The flag is
// orthogonal to the workflow position and never alters the status.
func (e *Engine) MarkRetroactive(d *domain.Disbursement, actor domain.Actor, reason string) error {
	if err := requireActor(d, domain.ActionMarkedRetroactive, actor); err != nil {
		return err
	}
	if d.IsCompleted || d.Status == domain.StatusCancelled {
		return invalidTransition(d, domain.ActionMarkedRetroactive, "retroactive marking requires an open disbursement")
	}
	if d.IsRetroactive {
		return invalidTransition(d, domain.ActionMarkedRetroactive, "already marked retroactive")
	}

	now := time.Now().UTC()
	d.IsRetroactive = true
	d.RetroactiveReason = reason

	e.appendAction(d, actor, domain.ActionMarkedRetroactive, now, "", reason, domain.ActionMetadata{
		PreviousStatus: d.Status,
		NewStatus:      d.Status,
	})

	e.finishTransition(d, now)
	return nil
}

// Cancel terminally abandons a draft or pending disbursement.
func (e *Engine) Cancel(d *domain.Disbursement, actor domain.Actor, reason string) error {
	if err := requireActor(d, domain.ActionCancelled, actor); err != nil {
		return err
	}
	if d.Status != domain.StatusDraft && !d.Status.IsPending() {
		return invalidTransition(d, domain.ActionCancelled, "cancel requires DRAFT or a pending stage")
	}

	now := time.Now().UTC()
	prev := d.Status
	d.Status = domain.StatusCancelled

	e.appendAction(d, actor, domain.ActionCancelled, now, "", reason, domain.ActionMetadata{
		PreviousStatus: prev,
		NewStatus:      d.Status,
	})

	e.finishTransition(d, now)
	return nil
}

// Resubmit explicitly reopens a rejected disbursement at the stage the
// rejection interrupted. Rejections never silently reopen a stage; this is the
// only path back from REJECTED besides undoing the rejection itself.
func (e *Engine) Resubmit(d *domain.Disbursement, actor domain.Actor, notes string) error {
	if err := requireActor(d, domain.ActionResubmitted, actor); err != nil {
		return err
	}
	if d.Status != domain.StatusRejected || d.CurrentRejection == nil {
		return invalidTransition(d, domain.ActionResubmitted, "resubmit requires REJECTED")
	}

	now := time.Now().UTC()
	prev := d.Status
	stage := d.CurrentRejection.Stage

	// The rejection is superseded, not undone: its WasUndone flag stays false
	// in the history.
	d.CurrentRejection = nil

	step := d.Step(stage)
	reopenStep(step)
	d.Status = statusForStage[stage]

	record := e.appendAction(d, actor, domain.ActionResubmitted, now, notes, "", domain.ActionMetadata{
		PreviousStatus:     prev,
		NewStatus:          d.Status,
		Stage:              stage,
		PreviousStepStatus: domain.StepRejected,
		NewStepStatus:      domain.StepPending,
	})
	step.History = append(step.History, record)

	e.finishTransition(d, now)
	return nil
}

// ── internals ──

// advance moves the overall status to the next required stage after `from`,
// marking every non-required stage in between as skipped. When no stage
// remains the disbursement completes.
func (e *Engine) advance(d *domain.Disbursement, from domain.StageKey, required []domain.StageKey, actor domain.Actor, now time.Time) {
	requiredSet := make(map[domain.StageKey]bool, len(required))
	for _, key := range required {
		requiredSet[key] = true
	}

	for _, key := range domain.OrderedStages {
		if key.Order() <= from.Order() {
			continue
		}
		step := d.Step(key)
		if step.IsCompleted {
			continue
		}
		if requiredSet[key] {
			d.Status = statusForStage[key]
			return
		}
		step.Status = domain.StepSkipped
		step.IsCompleted = true
		step.WasSkipped = true
		step.SkippedBy = actor.ActorID
		step.SkippedAt = &now
	}

	d.Status = domain.StatusCompleted
	d.IsCompleted = true
	d.CompletedAt = &now
}

// appendAction builds the immutable record for this transition and appends it
// to the disbursement-level log. Callers append the same record to the
// affected stage's own history.
func (e *Engine) appendAction(d *domain.Disbursement, actor domain.Actor, action domain.ActionType, now time.Time, notes, reason string, meta domain.ActionMetadata) domain.ActionRecord {
	record := domain.ActionRecord{
		ActionID:    uuid.NewString(),
		Action:      action,
		ActorID:     actor.ActorID,
		ActorName:   actor.Name,
		ActorRole:   actor.Role,
		PerformedAt: now,
		Notes:       notes,
		Reason:      reason,
		Metadata:    meta,
	}
	d.ActionHistory = append(d.ActionHistory, record)
	return record
}

// finishTransition stamps the status timeline (first entry only) and
// recomputes the derived undo permissions.
func (e *Engine) finishTransition(d *domain.Disbursement, now time.Time) {
	if d.StatusTimeline == nil {
		d.StatusTimeline = make(map[domain.DisbursementStatus]time.Time)
	}
	if _, seen := d.StatusTimeline[d.Status]; !seen {
		d.StatusTimeline[d.Status] = now
	}
	d.UndoPermissions = e.policy.ComputeUndoPermissions(d)
}

// withContext decorates a policy error with the transition context.
func (e *Engine) withContext(err error, d *domain.Disbursement, action domain.ActionType) error {
	var wErr *Error
	if errors.As(err, &wErr) {
		wErr.DisbursementID = d.DisbursementID
		wErr.Action = action
		wErr.CurrentStatus = d.Status
		return wErr
	}
	return err
}

func requireActor(d *domain.Disbursement, action domain.ActionType, actor domain.Actor) error {
	if actor.ActorID == "" {
		return invalidTransition(d, action, "missing actor identity")
	}
	return nil
}

// reopenStep resets a step to pending, clearing completion and rejection
// state. The step's history keeps every prior record.
func reopenStep(step *domain.WorkflowStep) {
	step.Status = domain.StepPending
	step.IsCompleted = false
	step.CompletedAt = nil
	step.CompletedBy = ""
	step.RejectionReason = ""
}

var approvalActionTypes = []domain.ActionType{
	domain.ActionSubmitted,
	domain.ActionDeptHeadValidated,
	domain.ActionValidatorApproved,
	domain.ActionCashierExecuted,
}

var rejectionActionTypes = []domain.ActionType{
	domain.ActionDeptHeadRejected,
	domain.ActionValidatorRejected,
	domain.ActionCashierRejected,
}

func approvalActionForStage(stage domain.StageKey) (domain.ActionType, bool) {
	switch stage {
	case domain.StageDeptHeadValidation:
		return domain.ActionDeptHeadValidated, true
	case domain.StageValidatorApproval:
		return domain.ActionValidatorApproved, true
	}
	return "", false
}

func rejectionActionForStage(stage domain.StageKey) (domain.ActionType, bool) {
	switch stage {
	case domain.StageDeptHeadValidation:
		return domain.ActionDeptHeadRejected, true
	case domain.StageValidatorApproval:
		return domain.ActionValidatorRejected, true
	case domain.StageCashierExecution:
		return domain.ActionCashierRejected, true
	}
	return "", false
}

// lastActionID returns the ActionID of the newest record matching any of the
// given types, or empty when none exists.
func lastActionID(history []domain.ActionRecord, types ...domain.ActionType) string {
	if i := lastActionIndex(history, types...); i >= 0 {
		return history[i].ActionID
	}
	return ""
}

// lastActionIndex returns the index of the newest record matching any of the
// given types, or -1 when none exists.
func lastActionIndex(history []domain.ActionRecord, types ...domain.ActionType) int {
	for i := len(history) - 1; i >= 0; i-- {
		for _, t := range types {
			if history[i].Action == t {
				return i
			}
		}
	}
	return -1
}

// revertedStatus derives the status to return to after undoing a force
// completion: the first stage left pending, or DRAFT when submission itself
// never happened.
func revertedStatus(d *domain.Disbursement) domain.DisbursementStatus {
	for _, key := range domain.OrderedStages {
		step := d.Step(key)
		if step.Status != domain.StepPending {
			continue
		}
		if key == domain.StageAgentSubmission {
			return domain.StatusDraft
		}
		return statusForStage[key]
	}
	return domain.StatusDraft
}
