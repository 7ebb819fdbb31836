package engine

import (
	"context"
	"fmt"

	"github.com/reviewcash/backend/internal/models"
	"github.com/reviewcash/backend/internal/realtime"
	"github.com/reviewcash/backend/internal/token"
)

// RequestTopup admits a new topup request. The manual code identifies the
// out-of-band payment to the operator checking the bank statement.
func (e *Engine) RequestTopup(ctx context.Context, userID int64, username string, amount int64) (*models.TopupRequest, error) {
	if amount < e.MinTopup {
		return nil, validationf("minimum topup is %d", e.MinTopup)
	}
	if _, err := e.Users.GetOrCreate(ctx, userID, username); err != nil {
		return nil, err
	}

	id := e.IDs.Next()
	topup := &models.TopupRequest{
		ID:       id,
		UserID:   userID,
		Username: username,
		Amount:   amount,
		Code:     fmt.Sprintf("RC-%d", id),
		Status:   models.StatusPending,
	}

	tx, err := e.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := e.Topups.CreateTx(ctx, tx, topup); err != nil {
		return nil, err
	}
	text := fmt.Sprintf("New topup request #%d\nUser: %s (%d)\nAmount: %d\nCode: %s",
		topup.ID, username, userID, amount, topup.Code)
	if err := e.alert(ctx, tx, text); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	e.publish(realtime.EventTopupCreated, userID, topup)
	return topup, nil
}

// ConfirmTopup re-alerts the administrators that the user claims to have
// paid. It changes no state; a confirm on a handled topup is a conflict.
func (e *Engine) ConfirmTopup(ctx context.Context, userID, topupID int64) error {
	topup, err := e.Topups.GetByID(ctx, topupID)
	if err != nil {
		return mapNoRows(err)
	}
	if topup.UserID != userID {
		return ErrNotFound
	}
	if models.Terminal(topup.Status) {
		return ErrConflict
	}

	tx, err := e.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	text := fmt.Sprintf("User %s (%d) marked topup #%d (%d, code %s) as paid. Check the payment.",
		topup.Username, userID, topup.ID, topup.Amount, topup.Code)
	if err := e.alert(ctx, tx, text); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ApproveTopup credits the amount to the user's balance and moves the
// record to its terminal approved status, all in one transaction.
func (e *Engine) ApproveTopup(ctx context.Context, admin token.Identity, topupID int64) (*models.TopupRequest, error) {
	tx, err := e.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	topup, err := e.Topups.GetByIDForUpdate(ctx, tx, topupID)
	if err != nil {
		return nil, mapNoRows(err)
	}
	if models.Terminal(topup.Status) {
		return nil, ErrConflict
	}

	if _, err := e.Users.GetByIDForUpdate(ctx, tx, topup.UserID); err != nil {
		return nil, mapNoRows(err)
	}
	if _, err := e.Users.Credit(ctx, tx, topup.UserID, topup.Amount); err != nil {
		return nil, err
	}

	handledAt := e.now()
	if err := e.Topups.MarkHandledTx(ctx, tx, topupID, models.StatusApproved, admin.Label(), "", handledAt); err != nil {
		return nil, mapNoRows(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	topup.Status = models.StatusApproved
	topup.HandledBy = admin.Label()
	topup.HandledAt = &handledAt
	e.publish(realtime.EventTopupApproved, topup.UserID, topup)
	return topup, nil
}

// RejectTopup moves the record to rejected. No balance was touched at
// creation, so none moves here either.
func (e *Engine) RejectTopup(ctx context.Context, admin token.Identity, topupID int64, reason string) (*models.TopupRequest, error) {
	reason = defaultReason(reason)

	tx, err := e.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	topup, err := e.Topups.GetByIDForUpdate(ctx, tx, topupID)
	if err != nil {
		return nil, mapNoRows(err)
	}
	if models.Terminal(topup.Status) {
		return nil, ErrConflict
	}

	handledAt := e.now()
	if err := e.Topups.MarkHandledTx(ctx, tx, topupID, models.StatusRejected, admin.Label(), reason, handledAt); err != nil {
		return nil, mapNoRows(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	topup.Status = models.StatusRejected
	topup.Reason = reason
	topup.HandledBy = admin.Label()
	topup.HandledAt = &handledAt
	e.publish(realtime.EventTopupRejected, topup.UserID, topup)
	return topup, nil
}
