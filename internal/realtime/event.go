package realtime

import "github.com/google/uuid"

// Event is a creation or state transition pushed to connected sessions.
// Payload is a read-only snapshot of the record; sessions never see the
// engine's live state.
type Event struct {
	ID      uuid.UUID `json:"id"`
	Type    string    `json:"type"`
	UserID  int64     `json:"user_id,omitempty"`
	Payload any       `json:"payload,omitempty"`
}

// Event types published by the lifecycle engine.
const (
	EventTopupCreated       = "topup_created"
	EventTopupApproved      = "topup_approved"
	EventTopupRejected      = "topup_rejected"
	EventWithdrawCreated    = "withdraw_created"
	EventWithdrawPaid       = "withdraw_paid"
	EventWithdrawRejected   = "withdraw_rejected"
	EventSubmissionCreated  = "submission_created"
	EventSubmissionPaid     = "submission_paid"
	EventSubmissionRejected = "submission_rejected"
	EventTaskCreated        = "task_created"
	EventTaskDeleted        = "task_deleted"
)
