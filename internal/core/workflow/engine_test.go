package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
	"github.com/tesoria/disbursement_ops_app/internal/utils/mapping"
)

var (
	agent     = domain.Actor{ActorID: "u-agent", Name: "Amina Agent", Role: string(domain.RoleAgent)}
	deptHead  = domain.Actor{ActorID: "u-dept", Name: "Daniel Head", Role: string(domain.RoleDeptHead)}
	validator = domain.Actor{ActorID: "u-val", Name: "Vera Validator", Role: string(domain.RoleValidator)}
	cashier   = domain.Actor{ActorID: "u-cash", Name: "Carl Cashier", Role: string(domain.RoleCashier)}
	admin     = domain.Actor{ActorID: "u-admin", Name: "Ada Admin", Role: string(domain.RoleAdmin)}
)

func newDraft(amount int64) *domain.Disbursement {
	return &domain.Disbursement{
		DisbursementID:     uuid.NewString(),
		CompanyID:          uuid.NewString(),
		ReferenceNumber:    "DSB-2026-0001",
		Amount:             decimal.NewFromInt(amount),
		CurrencyCode:       "KES",
		Status:             domain.StatusDraft,
		Priority:           domain.PriorityMedium,
		AgentSubmission:    domain.NewWorkflowStep(),
		DeptHeadValidation: domain.NewWorkflowStep(),
		ValidatorApproval:  domain.NewWorkflowStep(),
		CashierExecution:   domain.NewWorkflowStep(),
	}
}

// Scenario A: amount below the threshold skips every approval stage; cashier
// execution alone decides whether the submit lands in PENDING_CASHIER or
// COMPLETED.
func TestSubmit_BelowThreshold(t *testing.T) {
	engine := NewEngine()

	t.Run("cashier required lands in pending cashier", func(t *testing.T) {
		d := newDraft(100000)
		require.NoError(t, engine.Submit(d, agent, "", allStagesRequired()))

		assert.Equal(t, domain.StatusPendingCashier, d.Status)
		assert.Equal(t, domain.StepApproved, d.AgentSubmission.Status)
		assert.True(t, d.DeptHeadValidation.WasSkipped)
		assert.True(t, d.ValidatorApproval.WasSkipped)
		assert.False(t, d.CashierExecution.IsCompleted)
	})

	t.Run("cashier not required completes outright", func(t *testing.T) {
		settings := allStagesRequired()
		settings.RequireCashierExecution = false

		d := newDraft(100000)
		require.NoError(t, engine.Submit(d, agent, "", settings))

		assert.Equal(t, domain.StatusCompleted, d.Status)
		assert.True(t, d.IsCompleted)
		assert.True(t, d.DeptHeadValidation.WasSkipped)
		assert.True(t, d.ValidatorApproval.WasSkipped)
		assert.True(t, d.CashierExecution.WasSkipped)
		assert.NotNil(t, d.CompletedAt)
	})
}

// Scenario B: full pipeline with a validator rejection and its undo.
func TestRejectAndUndoRejection(t *testing.T) {
	engine := NewEngine()
	settings := allStagesRequired()

	d := newDraft(1000000)
	require.NoError(t, engine.Submit(d, agent, "", settings))
	assert.Equal(t, domain.StatusPendingDeptHead, d.Status)

	require.NoError(t, engine.Validate(d, domain.StageDeptHeadValidation, deptHead, "looks fine", settings))
	assert.Equal(t, domain.StatusPendingValidator, d.Status)

	require.NoError(t, engine.Reject(d, domain.StageValidatorApproval, validator, "insufficient documentation"))
	assert.Equal(t, domain.StatusRejected, d.Status)
	require.NotNil(t, d.CurrentRejection)
	assert.Equal(t, domain.StageValidatorApproval, d.CurrentRejection.Stage)
	assert.False(t, d.CurrentRejection.WasUndone)
	assert.True(t, d.UndoPermissions.CanUndoRejection)

	require.NoError(t, engine.UndoRejection(d, admin, "rejected in error"))
	assert.Equal(t, domain.StatusPendingValidator, d.Status)
	assert.Nil(t, d.CurrentRejection)
	assert.Equal(t, domain.StepApproved, d.DeptHeadValidation.Status, "earlier approval must survive the undo")
	assert.Equal(t, domain.StepPending, d.ValidatorApproval.Status)

	require.Len(t, d.RejectionHistory, 1)
	assert.True(t, d.RejectionHistory[0].WasUndone)
	assert.Equal(t, admin.ActorID, d.RejectionHistory[0].UndoneBy)
}

// Scenario C: force completion from PENDING_VALIDATOR and its undo.
func TestForceCompleteAndUndo(t *testing.T) {
	engine := NewEngine()
	settings := allStagesRequired()

	d := newDraft(1000000)
	require.NoError(t, engine.Submit(d, agent, "", settings))
	require.NoError(t, engine.Validate(d, domain.StageDeptHeadValidation, deptHead, "", settings))
	require.Equal(t, domain.StatusPendingValidator, d.Status)

	require.NoError(t, engine.ForceComplete(d, admin, "emergency payment"))
	assert.Equal(t, domain.StatusCompleted, d.Status)
	assert.True(t, d.ForceCompleted)
	assert.Equal(t, domain.StepSkipped, d.ValidatorApproval.Status)
	assert.Equal(t, domain.StepSkipped, d.CashierExecution.Status)
	assert.True(t, d.UndoPermissions.CanUndoForceCompletion)

	require.NoError(t, engine.UndoForceCompletion(d, admin, "override issued by mistake"))
	assert.Equal(t, domain.StatusPendingValidator, d.Status)
	assert.True(t, d.ForceCompletionUndone)
	assert.False(t, d.IsCompleted)
	assert.Equal(t, domain.StepPending, d.ValidatorApproval.Status)
	assert.Equal(t, domain.StepPending, d.CashierExecution.Status)
	assert.Equal(t, domain.StepApproved, d.DeptHeadValidation.Status)

	err := engine.UndoForceCompletion(d, admin, "twice")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUndoNotPermitted))
}

// reloadThroughStore round-trips the aggregate the way the repository does:
// the document columns via the mapping layer, and the action log via the
// audit table, whose TIMESTAMPTZ column rounds timestamps to microseconds.
func reloadThroughStore(t *testing.T, d *domain.Disbursement) *domain.Disbursement {
	t.Helper()

	row, err := mapping.ToModelDisbursement(*d)
	require.NoError(t, err)
	reloaded, err := mapping.ToDomainDisbursement(row)
	require.NoError(t, err)

	actions := make([]domain.ActionRecord, len(d.ActionHistory))
	copy(actions, d.ActionHistory)
	for i := range actions {
		actions[i].PerformedAt = actions[i].PerformedAt.Truncate(time.Microsecond)
	}
	reloaded.ActionHistory = actions
	return &reloaded
}

// Step timestamps survive persistence at nanosecond precision while action
// timestamps are rounded to microseconds, so undoing a force completion on a
// reloaded aggregate must not depend on the two matching.
func TestUndoForceCompletionAfterReload(t *testing.T) {
	engine := NewEngine()
	settings := allStagesRequired()

	d := newDraft(1000000)
	require.NoError(t, engine.Submit(d, agent, "", settings))
	require.NoError(t, engine.Validate(d, domain.StageDeptHeadValidation, deptHead, "", settings))
	require.NoError(t, engine.ForceComplete(d, admin, "emergency payment"))

	reloaded := reloadThroughStore(t, d)
	require.NoError(t, engine.UndoForceCompletion(reloaded, admin, "override issued by mistake"))

	assert.Equal(t, domain.StatusPendingValidator, reloaded.Status)
	assert.True(t, reloaded.ForceCompletionUndone)
	assert.Equal(t, domain.StepPending, reloaded.ValidatorApproval.Status)
	assert.Equal(t, domain.StepPending, reloaded.CashierExecution.Status)
	assert.Equal(t, domain.StepApproved, reloaded.DeptHeadValidation.Status)
}

// A policy skip at submit time must keep its skip when a later force
// completion is undone, even after a reload: only the stages the force
// completion itself skipped come back.
func TestUndoForceCompletionPreservesPolicySkips(t *testing.T) {
	engine := NewEngine()
	settings := allStagesRequired()
	settings.RequireValidatorApproval = false

	d := newDraft(1000000)
	require.NoError(t, engine.Submit(d, agent, "", settings))
	require.NoError(t, engine.Validate(d, domain.StageDeptHeadValidation, deptHead, "", settings))
	require.Equal(t, domain.StatusPendingCashier, d.Status)
	require.True(t, d.ValidatorApproval.WasSkipped)

	require.NoError(t, engine.ForceComplete(d, admin, "emergency payment"))

	reloaded := reloadThroughStore(t, d)
	require.NoError(t, engine.UndoForceCompletion(reloaded, admin, "not warranted"))

	assert.Equal(t, domain.StatusPendingCashier, reloaded.Status)
	assert.True(t, reloaded.ValidatorApproval.WasSkipped, "policy skip must survive the undo")
	assert.Equal(t, domain.StepPending, reloaded.CashierExecution.Status)
}

func TestFullHappyPath(t *testing.T) {
	engine := NewEngine()
	settings := allStagesRequired()

	d := newDraft(1000000)
	require.NoError(t, engine.Submit(d, agent, "Q3 supplier payment", settings))
	require.NoError(t, engine.Validate(d, domain.StageDeptHeadValidation, deptHead, "", settings))
	require.NoError(t, engine.Validate(d, domain.StageValidatorApproval, validator, "", settings))
	require.Equal(t, domain.StatusPendingCashier, d.Status)
	require.NoError(t, engine.Execute(d, cashier, "paid via EFT"))

	assert.Equal(t, domain.StatusCompleted, d.Status)
	assert.True(t, d.IsCompleted)
	assert.True(t, d.CashierExecution.IsCompleted)
	assert.Len(t, d.ActionHistory, 4)

	// Every status the aggregate passed through is stamped exactly once.
	for _, status := range []domain.DisbursementStatus{
		domain.StatusPendingDeptHead,
		domain.StatusPendingValidator,
		domain.StatusPendingCashier,
		domain.StatusCompleted,
	} {
		_, ok := d.StatusTimeline[status]
		assert.True(t, ok, "missing timeline entry for %s", status)
	}
}

func TestActionHistoryIsMonotonic(t *testing.T) {
	engine := NewEngine()
	settings := allStagesRequired()

	d := newDraft(1000000)
	prevLen := 0
	firstIDs := []string{}

	check := func() {
		require.GreaterOrEqual(t, len(d.ActionHistory), prevLen, "action history must never shrink")
		prevLen = len(d.ActionHistory)
		for i, id := range firstIDs {
			assert.Equal(t, id, d.ActionHistory[i].ActionID, "existing records must not change")
		}
		firstIDs = firstIDs[:0]
		for _, rec := range d.ActionHistory {
			firstIDs = append(firstIDs, rec.ActionID)
		}
	}

	require.NoError(t, engine.Submit(d, agent, "", settings))
	check()
	require.NoError(t, engine.Validate(d, domain.StageDeptHeadValidation, deptHead, "", settings))
	check()
	require.NoError(t, engine.Reject(d, domain.StageValidatorApproval, validator, "missing invoice"))
	check()
	require.NoError(t, engine.UndoRejection(d, admin, "invoice supplied"))
	check()
	require.NoError(t, engine.Validate(d, domain.StageValidatorApproval, validator, "", settings))
	check()
	require.NoError(t, engine.Execute(d, cashier, ""))
	check()
}

func TestUndoStage(t *testing.T) {
	engine := NewEngine()
	settings := allStagesRequired()

	t.Run("undo succeeds once then is refused", func(t *testing.T) {
		d := newDraft(1000000)
		require.NoError(t, engine.Submit(d, agent, "", settings))
		require.NoError(t, engine.Validate(d, domain.StageDeptHeadValidation, deptHead, "", settings))
		require.True(t, d.UndoPermissions.CanUndoDeptHeadValidation)

		require.NoError(t, engine.UndoStage(d, domain.StageDeptHeadValidation, admin, "wrong amount reviewed"))
		assert.Equal(t, domain.StatusPendingDeptHead, d.Status)
		assert.Equal(t, domain.StepPending, d.DeptHeadValidation.Status)
		assert.True(t, d.DeptHeadValidation.WasUndone)

		err := engine.UndoStage(d, domain.StageDeptHeadValidation, admin, "again")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUndoNotPermitted))
	})

	t.Run("only the most recently completed stage may be undone", func(t *testing.T) {
		d := newDraft(1000000)
		require.NoError(t, engine.Submit(d, agent, "", settings))
		require.NoError(t, engine.Validate(d, domain.StageDeptHeadValidation, deptHead, "", settings))
		require.NoError(t, engine.Validate(d, domain.StageValidatorApproval, validator, "", settings))

		err := engine.UndoStage(d, domain.StageDeptHeadValidation, admin, "stale")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUndoNotPermitted))

		require.NoError(t, engine.UndoStage(d, domain.StageValidatorApproval, admin, "fresh"))
		assert.Equal(t, domain.StatusPendingValidator, d.Status)
	})

	t.Run("cashier execution can be undone after completion", func(t *testing.T) {
		d := newDraft(1000000)
		require.NoError(t, engine.Submit(d, agent, "", settings))
		require.NoError(t, engine.Validate(d, domain.StageDeptHeadValidation, deptHead, "", settings))
		require.NoError(t, engine.Validate(d, domain.StageValidatorApproval, validator, "", settings))
		require.NoError(t, engine.Execute(d, cashier, ""))
		require.True(t, d.UndoPermissions.CanUndoCashierExecution)

		require.NoError(t, engine.UndoStage(d, domain.StageCashierExecution, admin, "wrong beneficiary account"))
		assert.Equal(t, domain.StatusPendingCashier, d.Status)
		assert.False(t, d.IsCompleted)
		assert.Nil(t, d.CompletedAt)
	})
}

func TestStatusStageConsistency(t *testing.T) {
	engine := NewEngine()
	settings := allStagesRequired()

	t.Run("completed implies cashier completion or force flag", func(t *testing.T) {
		d := newDraft(1000000)
		require.NoError(t, engine.Submit(d, agent, "", settings))
		require.NoError(t, engine.Validate(d, domain.StageDeptHeadValidation, deptHead, "", settings))
		require.NoError(t, engine.ForceComplete(d, admin, "board directive"))

		assert.Equal(t, domain.StatusCompleted, d.Status)
		assert.True(t, d.CashierExecution.IsCompleted || d.ForceCompleted)
	})

	t.Run("rejected implies exactly one rejected stage and a live rejection", func(t *testing.T) {
		d := newDraft(1000000)
		require.NoError(t, engine.Submit(d, agent, "", settings))
		require.NoError(t, engine.Reject(d, domain.StageDeptHeadValidation, deptHead, "duplicate request"))

		rejected := 0
		for _, key := range domain.OrderedStages {
			if d.Step(key).Status == domain.StepRejected {
				rejected++
			}
		}
		assert.Equal(t, 1, rejected)
		require.NotNil(t, d.CurrentRejection)
		assert.False(t, d.CurrentRejection.WasUndone)
	})
}

func TestInvalidTransitions(t *testing.T) {
	engine := NewEngine()
	settings := allStagesRequired()

	t.Run("validate out of order", func(t *testing.T) {
		d := newDraft(1000000)
		require.NoError(t, engine.Submit(d, agent, "", settings))

		err := engine.Validate(d, domain.StageValidatorApproval, validator, "", settings)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidTransition))

		var wErr *Error
		require.True(t, errors.As(err, &wErr))
		assert.Equal(t, d.DisbursementID, wErr.DisbursementID)
		assert.Equal(t, domain.StatusPendingDeptHead, wErr.CurrentStatus)
	})

	t.Run("submit twice", func(t *testing.T) {
		d := newDraft(1000000)
		require.NoError(t, engine.Submit(d, agent, "", settings))
		err := engine.Submit(d, agent, "", settings)
		assert.True(t, errors.Is(err, ErrInvalidTransition))
	})

	t.Run("execute before cashier stage", func(t *testing.T) {
		d := newDraft(1000000)
		require.NoError(t, engine.Submit(d, agent, "", settings))
		err := engine.Execute(d, cashier, "")
		assert.True(t, errors.Is(err, ErrInvalidTransition))
	})

	t.Run("missing actor identity", func(t *testing.T) {
		d := newDraft(1000000)
		err := engine.Submit(d, domain.Actor{}, "", settings)
		assert.True(t, errors.Is(err, ErrInvalidTransition))
	})

	t.Run("failed transition leaves aggregate untouched", func(t *testing.T) {
		d := newDraft(1000000)
		require.NoError(t, engine.Submit(d, agent, "", settings))
		before := len(d.ActionHistory)

		_ = engine.Execute(d, cashier, "")
		assert.Equal(t, before, len(d.ActionHistory))
		assert.Equal(t, domain.StatusPendingDeptHead, d.Status)
	})
}

func TestCancel(t *testing.T) {
	engine := NewEngine()
	settings := allStagesRequired()

	d := newDraft(1000000)
	require.NoError(t, engine.Submit(d, agent, "", settings))
	require.NoError(t, engine.Cancel(d, agent, "request withdrawn"))
	assert.Equal(t, domain.StatusCancelled, d.Status)

	err := engine.Validate(d, domain.StageDeptHeadValidation, deptHead, "", settings)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	err = engine.Cancel(d, agent, "again")
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestMarkRetroactive(t *testing.T) {
	engine := NewEngine()
	settings := allStagesRequired()

	d := newDraft(1000000)
	require.NoError(t, engine.Submit(d, agent, "", settings))
	statusBefore := d.Status

	require.NoError(t, engine.MarkRetroactive(d, agent, "recorded after the event"))
	assert.True(t, d.IsRetroactive)
	assert.Equal(t, statusBefore, d.Status, "retroactive marking must not alter status")

	err := engine.MarkRetroactive(d, agent, "twice")
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestResubmitAfterRejection(t *testing.T) {
	engine := NewEngine()
	settings := allStagesRequired()

	d := newDraft(1000000)
	require.NoError(t, engine.Submit(d, agent, "", settings))
	require.NoError(t, engine.Validate(d, domain.StageDeptHeadValidation, deptHead, "", settings))
	require.NoError(t, engine.Reject(d, domain.StageValidatorApproval, validator, "budget line exhausted"))

	require.NoError(t, engine.Resubmit(d, agent, "budget reallocated"))
	assert.Equal(t, domain.StatusPendingValidator, d.Status)
	assert.Nil(t, d.CurrentRejection)
	assert.Equal(t, domain.StepPending, d.ValidatorApproval.Status)

	// Superseded, not undone: the historical record keeps WasUndone false.
	require.Len(t, d.RejectionHistory, 1)
	assert.False(t, d.RejectionHistory[0].WasUndone)
}

func TestRejectionBlocksStageUndo(t *testing.T) {
	engine := NewEngine()
	settings := allStagesRequired()

	d := newDraft(1000000)
	require.NoError(t, engine.Submit(d, agent, "", settings))
	require.NoError(t, engine.Validate(d, domain.StageDeptHeadValidation, deptHead, "", settings))
	require.NoError(t, engine.Reject(d, domain.StageValidatorApproval, validator, "not compliant"))

	err := engine.UndoStage(d, domain.StageDeptHeadValidation, admin, "try anyway")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUndoNotPermitted))
}
