package models

import "time"

// Request statuses. Pending is the only non-terminal status; approved,
// paid and rejected are terminal and a record never leaves them.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusPaid     = "paid"
	StatusRejected = "rejected"
)

// Terminal reports whether a request status permits no further transition.
func Terminal(status string) bool {
	return status == StatusApproved || status == StatusPaid || status == StatusRejected
}

// TopupRequest is a user's claim of an out-of-band balance payment,
// identified to the operator by the manual code. Approval credits the
// amount; rejection changes no balance.
type TopupRequest struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Username  string     `json:"username"`
	Amount    int64      `json:"amount"`
	Code      string     `json:"code"`
	Status    string     `json:"status"`
	Reason    string     `json:"reason,omitempty"`
	HandledBy string     `json:"handled_by,omitempty"`
	HandledAt *time.Time `json:"handled_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// WithdrawRequest carries an optimistic hold: Held is the amount actually
// debited at creation (min of balance and Amount, so the balance clamps at
// zero). Rejection credits Held back; marking paid moves no money because
// the hold already removed it.
type WithdrawRequest struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Username  string     `json:"username"`
	Amount    int64      `json:"amount"`
	Held      int64      `json:"held"`
	Bank      string     `json:"bank"`
	Name      string     `json:"name"`
	Card      string     `json:"card"`
	Status    string     `json:"status"`
	Reason    string     `json:"reason,omitempty"`
	HandledBy string     `json:"handled_by,omitempty"`
	HandledAt *time.Time `json:"handled_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// WorkSubmission is a proof of a completed task. Amount is copied from the
// task budget at submission time so later task edits cannot change the
// payout. Payment credits the amount and bumps the submitter's counters;
// rejection clears the platform cooldown slot set at submission.
type WorkSubmission struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Username  string     `json:"username"`
	TaskID    int64      `json:"task_id"`
	Platform  string     `json:"platform"`
	Content   string     `json:"content"`
	ProofURL  string     `json:"proof_url"`
	Amount    int64      `json:"amount"`
	Status    string     `json:"status"`
	Reason    string     `json:"reason,omitempty"`
	HandledBy string     `json:"handled_by,omitempty"`
	HandledAt *time.Time `json:"handled_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
