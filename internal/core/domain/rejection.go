package domain

import "time"

// Rejection records one rejection event. The most recent non-undone rejection
// is mirrored in Disbursement.CurrentRejection; all of them live in
// RejectionHistory, append-only.
type Rejection struct {
	RejectionID    string     `json:"rejectionID"` // Primary key (UUID)
	Stage          StageKey   `json:"stage"`
	RejectedBy     string     `json:"rejectedBy"`
	RejectedByName string     `json:"rejectedByName"`
	RejectedAt     time.Time  `json:"rejectedAt"`
	Reason         string     `json:"reason"`
	WasUndone      bool       `json:"wasUndone"`
	UndoneBy       string     `json:"undoneBy,omitempty"`
	UndoneAt       *time.Time `json:"undoneAt,omitempty"`
	UndoReason     string     `json:"undoReason,omitempty"`
}
