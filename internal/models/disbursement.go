package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Disbursement is the database row shape of the aggregate. Workflow
// sub-documents (steps, timeline, rejections, undo flags) are stored as JSONB
// and carried here as raw bytes; the mapping layer owns their encoding.
type Disbursement struct {
	DisbursementID  string `db:"disbursement_id"`
	CompanyID       string `db:"company_id"`
	ReferenceNumber string `db:"reference_number"`

	Amount             decimal.Decimal `db:"amount"`
	CurrencyCode       string          `db:"currency_code"`
	DisbursementTypeID string          `db:"disbursement_type_id"`
	BeneficiaryID      string          `db:"beneficiary_id"`
	Department         string          `db:"department"`
	OfficeID           sql.NullString  `db:"office_id"`
	PaymentMethod      string          `db:"payment_method"`
	Priority           string          `db:"priority"`
	IsUrgent           bool            `db:"is_urgent"`

	Status string `db:"status"`

	Steps            []byte `db:"steps"`             // JSONB: the four stage sub-states
	StatusTimeline   []byte `db:"status_timeline"`   // JSONB: status -> first-entered instant
	CurrentRejection []byte `db:"current_rejection"` // JSONB, NULL when no active rejection
	RejectionHistory []byte `db:"rejection_history"` // JSONB array
	UndoPermissions  []byte `db:"undo_permissions"`  // JSONB

	ForceCompleted        bool           `db:"force_completed"`
	ForceCompletedBy      sql.NullString `db:"force_completed_by"`
	ForceCompletionReason sql.NullString `db:"force_completion_reason"`
	ForceCompletionUndone bool           `db:"force_completion_undone"`

	IsRetroactive     bool           `db:"is_retroactive"`
	RetroactiveReason sql.NullString `db:"retroactive_reason"`

	IsCompleted bool         `db:"is_completed"`
	CompletedAt sql.NullTime `db:"completed_at"`

	Version int64 `db:"version"`

	AuditFields
	DeletedAt *time.Time `db:"deleted_at"`
	PurgeAt   *time.Time `db:"purge_at"`
}

// DisbursementAction is one row of the append-only action log.
type DisbursementAction struct {
	ActionID       string    `db:"action_id"`
	DisbursementID string    `db:"disbursement_id"`
	Action         string    `db:"action"`
	ActorID        string    `db:"actor_id"`
	ActorName      string    `db:"actor_name"`
	ActorRole      string    `db:"actor_role"`
	PerformedAt    time.Time `db:"performed_at"`
	Notes          string    `db:"notes"`
	Reason         string    `db:"reason"`
	Metadata       []byte    `db:"metadata"` // JSONB
}
