package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/reviewcash/backend/internal/models"
	"github.com/reviewcash/backend/internal/realtime"
	"github.com/reviewcash/backend/internal/token"
)

// SubmitWork admits a proof of completed work against an active task.
// The payout amount is copied from the task budget now, and the platform
// cooldown slot is written in the same transaction as the record, so a
// submission that failed to persist never locks the user out.
func (e *Engine) SubmitWork(ctx context.Context, userID int64, username string, taskID int64, content, proofURL string) (*models.WorkSubmission, error) {
	profile, err := e.Users.GetOrCreate(ctx, userID, username)
	if err != nil {
		return nil, err
	}

	task, err := e.Tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, validationf("task not found")
	}
	if task.Status != models.TaskStatusActive {
		return nil, validationf("task is no longer active")
	}

	now := e.now()
	if allowed, retryAfter := e.Limiter.Check(profile, task.Platform, now); !allowed {
		return nil, cooldownError(task.Platform, retryAfter)
	}

	submission := &models.WorkSubmission{
		ID:       e.IDs.Next(),
		UserID:   userID,
		Username: username,
		TaskID:   taskID,
		Platform: task.Platform,
		Content:  content,
		ProofURL: proofURL,
		Amount:   task.Budget,
		Status:   models.StatusPending,
	}

	tx, err := e.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// The snapshot above predates the transaction; a concurrent submission
	// may have taken the slot since. Re-check on the locked row, which a
	// competing transaction holds until it commits its slot write.
	locked, err := e.Users.GetByIDForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, mapNoRows(err)
	}
	if allowed, retryAfter := e.Limiter.Check(locked, task.Platform, now); !allowed {
		return nil, cooldownError(task.Platform, retryAfter)
	}

	if err := e.Submissions.CreateTx(ctx, tx, submission); err != nil {
		return nil, err
	}
	// Reserve the cooldown slot only once the submission row exists.
	if err := e.Users.RecordSubmissionTime(ctx, tx, userID, task.Platform, now); err != nil {
		return nil, err
	}
	text := fmt.Sprintf("New work submission #%d\nUser: %s (%d)\nTask: %s (#%d)\nPlatform: %s\nReward: %d\nProof: %s",
		submission.ID, username, userID, task.Title, taskID, task.Platform, task.Budget, proofURL)
	if err := e.alert(ctx, tx, text); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	e.publish(realtime.EventSubmissionCreated, userID, submission)
	return submission, nil
}

func cooldownError(platform string, retryAfter time.Duration) error {
	return validationf("cooldown active for %s: try again in %s", platform, retryAfter.Round(retryRounding))
}

// ApproveSubmission pays the submitter: balance and total earned grow by
// the recorded amount, tasks done by one, in the transition's transaction.
func (e *Engine) ApproveSubmission(ctx context.Context, admin token.Identity, submissionID int64) (*models.WorkSubmission, error) {
	tx, err := e.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	submission, err := e.Submissions.GetByIDForUpdate(ctx, tx, submissionID)
	if err != nil {
		return nil, mapNoRows(err)
	}
	if models.Terminal(submission.Status) {
		return nil, ErrConflict
	}

	if _, err := e.Users.GetByIDForUpdate(ctx, tx, submission.UserID); err != nil {
		return nil, mapNoRows(err)
	}
	if _, err := e.Users.ApplyEarning(ctx, tx, submission.UserID, submission.Amount); err != nil {
		return nil, err
	}

	handledAt := e.now()
	if err := e.Submissions.MarkHandledTx(ctx, tx, submissionID, models.StatusPaid, admin.Label(), "", handledAt); err != nil {
		return nil, mapNoRows(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	submission.Status = models.StatusPaid
	submission.HandledBy = admin.Label()
	submission.HandledAt = &handledAt
	e.publish(realtime.EventSubmissionPaid, submission.UserID, submission)
	return submission, nil
}

// RejectSubmission clears the platform cooldown slot recorded at
// submission, so the user is not penalized for a rejected attempt.
func (e *Engine) RejectSubmission(ctx context.Context, admin token.Identity, submissionID int64, reason string) (*models.WorkSubmission, error) {
	reason = defaultReason(reason)

	tx, err := e.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	submission, err := e.Submissions.GetByIDForUpdate(ctx, tx, submissionID)
	if err != nil {
		return nil, mapNoRows(err)
	}
	if models.Terminal(submission.Status) {
		return nil, ErrConflict
	}

	if _, err := e.Users.GetByIDForUpdate(ctx, tx, submission.UserID); err != nil {
		return nil, mapNoRows(err)
	}
	if err := e.Users.ClearSubmissionTime(ctx, tx, submission.UserID, submission.Platform); err != nil {
		return nil, err
	}

	handledAt := e.now()
	if err := e.Submissions.MarkHandledTx(ctx, tx, submissionID, models.StatusRejected, admin.Label(), reason, handledAt); err != nil {
		return nil, mapNoRows(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	submission.Status = models.StatusRejected
	submission.Reason = reason
	submission.HandledBy = admin.Label()
	submission.HandledAt = &handledAt
	e.publish(realtime.EventSubmissionRejected, submission.UserID, submission)
	return submission, nil
}
