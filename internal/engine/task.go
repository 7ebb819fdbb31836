package engine

import (
	"context"
	"strings"

	"github.com/reviewcash/backend/internal/models"
	"github.com/reviewcash/backend/internal/realtime"
	"github.com/reviewcash/backend/internal/token"
)

// PublishTask admits a new task. The budget is debited from the owner's
// balance up front; an owner who cannot cover it gets a validation
// failure and no record.
func (e *Engine) PublishTask(ctx context.Context, userID int64, username, title, link, platform string, budget int64) (*models.Task, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(link) == "" {
		return nil, validationf("title and link are required")
	}
	if !models.KnownPlatform(platform) {
		return nil, validationf("unknown platform %q", platform)
	}
	if budget <= 0 {
		return nil, validationf("budget must be positive")
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
	if profile.Balance < budget {
		return nil, validationf("insufficient balance: task budget is %d, balance is %d", budget, profile.Balance)
	}
	if _, err := e.Users.Debit(ctx, tx, userID, budget); err != nil {
		return nil, err
	}

	task := &models.Task{
		ID:       e.IDs.Next(),
		UserID:   userID,
		Username: username,
		Title:    title,
		Link:     link,
		Platform: platform,
		Budget:   budget,
		Status:   models.TaskStatusActive,
	}
	if err := e.Tasks.CreateTx(ctx, tx, task); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	e.publish(realtime.EventTaskCreated, userID, task)
	return task, nil
}

// DeleteTask soft-deletes a task, recording the deleting administrator
// and reason. Deleting an already-deleted task is an idempotent no-op
// success: it is administrative cleanup, not a financial transition.
func (e *Engine) DeleteTask(ctx context.Context, admin token.Identity, taskID int64, reason string) (*models.Task, error) {
	reason = defaultReason(reason)

	tx, err := e.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	task, err := e.Tasks.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		return nil, mapNoRows(err)
	}
	if task.Status == models.TaskStatusDeleted {
		return task, nil
	}

	deletedAt := e.now()
	if err := e.Tasks.SoftDeleteTx(ctx, tx, taskID, admin.Label(), reason, deletedAt); err != nil {
		return nil, mapNoRows(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	task.Status = models.TaskStatusDeleted
	task.DeletedBy = admin.Label()
	task.DeletedReason = reason
	task.DeletedAt = &deletedAt
	e.publish(realtime.EventTaskDeleted, task.UserID, task)
	return task, nil
}
