// Package engine owns the request lifecycle: admission control for new
// topups, withdrawals, tasks and work submissions, the pending-to-terminal
// state machine for each, and every balance mutation. All writes for a
// transition ride one transaction, with the affected rows locked FOR
// UPDATE, so concurrent transitions on the same record or user serialize
// and the terminal-status conflict check is race-free.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/reviewcash/backend/internal/ident"
	"github.com/reviewcash/backend/internal/models"
	"github.com/reviewcash/backend/internal/notify"
	"github.com/reviewcash/backend/internal/ratelimit"
	"github.com/reviewcash/backend/internal/realtime"
)

// TxBeginner abstracts transaction creation so tests don't need a
// pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// UserStore is the minimal user-profile interface for the engine.
type UserStore interface {
	GetOrCreate(ctx context.Context, id int64, username string) (*models.UserProfile, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.UserProfile, error)
	Credit(ctx context.Context, tx pgx.Tx, id int64, amount int64) (int64, error)
	Debit(ctx context.Context, tx pgx.Tx, id int64, amount int64) (int64, error)
	ApplyEarning(ctx context.Context, tx pgx.Tx, id int64, amount int64) (int64, error)
	RecordSubmissionTime(ctx context.Context, tx pgx.Tx, id int64, platform string, at time.Time) error
	ClearSubmissionTime(ctx context.Context, tx pgx.Tx, id int64, platform string) error
}

type TopupStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.TopupRequest) error
	GetByID(ctx context.Context, id int64) (*models.TopupRequest, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.TopupRequest, error)
	MarkHandledTx(ctx context.Context, tx pgx.Tx, id int64, status, handledBy, reason string, handledAt time.Time) error
}

type WithdrawStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, w *models.WithdrawRequest) error
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.WithdrawRequest, error)
	MarkHandledTx(ctx context.Context, tx pgx.Tx, id int64, status, handledBy, reason string, handledAt time.Time) error
}

type TaskStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.Task) error
	GetByID(ctx context.Context, id int64) (*models.Task, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.Task, error)
	SoftDeleteTx(ctx context.Context, tx pgx.Tx, id int64, deletedBy, reason string, deletedAt time.Time) error
}

type SubmissionStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, s *models.WorkSubmission) error
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.WorkSubmission, error)
	MarkHandledTx(ctx context.Context, tx pgx.Tx, id int64, status, handledBy, reason string, handledAt time.Time) error
}

// Notifier pushes an event to connected sessions. Implementations must be
// best-effort: a Publish never blocks a transition and returns nothing.
type Notifier interface {
	Publish(ev realtime.Event)
}

// InsertAdminAlertTxFunc enqueues a Telegram admin alert within the given
// transaction. Provided by main as a closure over river.Client.InsertTx,
// so the alert is delivered only if the record write commits.
type InsertAdminAlertTxFunc func(ctx context.Context, tx pgx.Tx, args notify.AdminAlertArgs) error

// Engine is the lifecycle engine. Construct it as a literal, the zero
// value of optional fields (Notifier, InsertAlert, Now) is handled.
type Engine struct {
	Pool        TxBeginner
	Users       UserStore
	Topups      TopupStore
	Withdraws   WithdrawStore
	Tasks       TaskStore
	Submissions SubmissionStore
	Limiter     *ratelimit.Policy
	IDs         *ident.Generator
	Notifier    Notifier
	InsertAlert InsertAdminAlertTxFunc
	Logger      *slog.Logger

	MinTopup    int64
	MinWithdraw int64
	Banks       []string

	// Now is the engine clock; defaults to time.Now.
	Now func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Profile returns the user's profile, creating it lazily on first
// interaction.
func (e *Engine) Profile(ctx context.Context, userID int64, username string) (*models.UserProfile, error) {
	return e.Users.GetOrCreate(ctx, userID, username)
}

// publish sends an event to the fan-out after a committed transition.
// Fan-out is a side channel: it can never fail the caller.
func (e *Engine) publish(eventType string, userID int64, payload any) {
	if e.Notifier == nil {
		return
	}
	e.Notifier.Publish(realtime.Event{
		ID:      uuid.New(),
		Type:    eventType,
		UserID:  userID,
		Payload: payload,
	})
}

// alert enqueues a Telegram admin alert inside the transaction.
func (e *Engine) alert(ctx context.Context, tx pgx.Tx, text string) error {
	if e.InsertAlert == nil {
		return nil
	}
	return e.InsertAlert(ctx, tx, notify.AdminAlertArgs{Text: text})
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func defaultReason(reason string) string {
	if reason == "" {
		return "rejected by administrator"
	}
	return reason
}

// retryRounding keeps cooldown messages readable.
const retryRounding = time.Minute
