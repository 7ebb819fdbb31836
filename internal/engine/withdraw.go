package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/reviewcash/backend/internal/models"
	"github.com/reviewcash/backend/internal/realtime"
	"github.com/reviewcash/backend/internal/token"
)

// RequestWithdraw admits a withdrawal and immediately debits the hold.
// The hold is the part of the amount the balance could cover, so the
// balance clamps at zero instead of going negative.
func (e *Engine) RequestWithdraw(ctx context.Context, userID int64, username string, amount int64, bank, name, card string) (*models.WithdrawRequest, error) {
	if amount < e.MinWithdraw {
		return nil, validationf("minimum withdrawal is %d", e.MinWithdraw)
	}
	if !e.bankRecognized(bank) {
		return nil, validationf("unrecognized bank %q", bank)
	}
	if strings.TrimSpace(name) == "" || strings.TrimSpace(card) == "" {
		return nil, validationf("recipient name and card are required")
	}
	if _, err := e.Users.GetOrCreate(ctx, userID, username); err != nil {
		return nil, err
	}

	tx, err := e.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	profile, err := e.Users.GetByIDForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, mapNoRows(err)
	}
	held := amount
	if profile.Balance < held {
		held = profile.Balance
	}
	if held > 0 {
		if _, err := e.Users.Debit(ctx, tx, userID, held); err != nil {
			return nil, err
		}
	}

	withdraw := &models.WithdrawRequest{
		ID:       e.IDs.Next(),
		UserID:   userID,
		Username: username,
		Amount:   amount,
		Held:     held,
		Bank:     bank,
		Name:     name,
		Card:     card,
		Status:   models.StatusPending,
	}
	if err := e.Withdraws.CreateTx(ctx, tx, withdraw); err != nil {
		return nil, err
	}
	text := fmt.Sprintf("New withdrawal request #%d\nUser: %s (%d)\nAmount: %d\nBank: %s\nName: %s\nCard: %s",
		withdraw.ID, username, userID, amount, bank, name, card)
	if err := e.alert(ctx, tx, text); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	e.publish(realtime.EventWithdrawCreated, userID, withdraw)
	return withdraw, nil
}

// MarkWithdrawPaid settles a withdrawal. The hold already removed the
// funds, so the only mutation is the status flip.
func (e *Engine) MarkWithdrawPaid(ctx context.Context, admin token.Identity, withdrawID int64) (*models.WithdrawRequest, error) {
	tx, err := e.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	withdraw, err := e.Withdraws.GetByIDForUpdate(ctx, tx, withdrawID)
	if err != nil {
		return nil, mapNoRows(err)
	}
	if models.Terminal(withdraw.Status) {
		return nil, ErrConflict
	}

	handledAt := e.now()
	if err := e.Withdraws.MarkHandledTx(ctx, tx, withdrawID, models.StatusPaid, admin.Label(), "", handledAt); err != nil {
		return nil, mapNoRows(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	withdraw.Status = models.StatusPaid
	withdraw.HandledBy = admin.Label()
	withdraw.HandledAt = &handledAt
	e.publish(realtime.EventWithdrawPaid, withdraw.UserID, withdraw)
	return withdraw, nil
}

// RejectWithdraw credits the held amount back, restoring the balance the
// user had when the request was created.
func (e *Engine) RejectWithdraw(ctx context.Context, admin token.Identity, withdrawID int64, reason string) (*models.WithdrawRequest, error) {
	reason = defaultReason(reason)

	tx, err := e.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	withdraw, err := e.Withdraws.GetByIDForUpdate(ctx, tx, withdrawID)
	if err != nil {
		return nil, mapNoRows(err)
	}
	if models.Terminal(withdraw.Status) {
		return nil, ErrConflict
	}

	if withdraw.Held > 0 {
		if _, err := e.Users.GetByIDForUpdate(ctx, tx, withdraw.UserID); err != nil {
			return nil, mapNoRows(err)
		}
		if _, err := e.Users.Credit(ctx, tx, withdraw.UserID, withdraw.Held); err != nil {
			return nil, err
		}
	}

	handledAt := e.now()
	if err := e.Withdraws.MarkHandledTx(ctx, tx, withdrawID, models.StatusRejected, admin.Label(), reason, handledAt); err != nil {
		return nil, mapNoRows(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	withdraw.Status = models.StatusRejected
	withdraw.Reason = reason
	withdraw.HandledBy = admin.Label()
	withdraw.HandledAt = &handledAt
	e.publish(realtime.EventWithdrawRejected, withdraw.UserID, withdraw)
	return withdraw, nil
}

// bankRecognized does a case-insensitive substring match of the submitted
// bank string against the allow-list.
func (e *Engine) bankRecognized(bank string) bool {
	lowered := strings.ToLower(bank)
	for _, known := range e.Banks {
		if known != "" && strings.Contains(lowered, strings.ToLower(known)) {
			return true
		}
	}
	return false
}
