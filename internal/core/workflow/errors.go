package workflow

import (
	"errors"
	"fmt"

	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
)

var (
	// ErrInvalidTransition is returned when a transition is not legal from the
	// aggregate's current state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrUndoNotPermitted is returned when an undo is requested but the
	// permission policy denies it.
	ErrUndoNotPermitted = errors.New("undo not permitted")

	// ErrPolicyEvaluation is returned when company approval settings are
	// missing or malformed.
	ErrPolicyEvaluation = errors.New("policy evaluation failed")
)

// Error is the structured error returned by every failed transition. Callers
// and tests match on kind via errors.Is rather than string comparison.
type Error struct {
	Kind           error
	DisbursementID string
	Action         domain.ActionType
	CurrentStatus  domain.DisbursementStatus
	Detail         string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%v: action %s on disbursement %s in status %s",
		e.Kind, e.Action, e.DisbursementID, e.CurrentStatus)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func invalidTransition(d *domain.Disbursement, action domain.ActionType, detail string) *Error {
	return &Error{
		Kind:           ErrInvalidTransition,
		DisbursementID: d.DisbursementID,
		Action:         action,
		CurrentStatus:  d.Status,
		Detail:         detail,
	}
}

func undoNotPermitted(d *domain.Disbursement, action domain.ActionType, detail string) *Error {
	return &Error{
		Kind:           ErrUndoNotPermitted,
		DisbursementID: d.DisbursementID,
		Action:         action,
		CurrentStatus:  d.Status,
		Detail:         detail,
	}
}

func policyError(detail string) *Error {
	return &Error{Kind: ErrPolicyEvaluation, Detail: detail}
}
