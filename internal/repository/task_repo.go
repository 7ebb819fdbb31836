package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reviewcash/backend/internal/models"
)

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

const taskColumns = "id, user_id, username, title, link, platform, budget, status, deleted_by, deleted_reason, deleted_at, created_at"

func (r *TaskRepo) CreateTx(ctx context.Context, tx pgx.Tx, t *models.Task) error {
	return tx.QueryRow(ctx, `
		INSERT INTO tasks (id, user_id, username, title, link, platform, budget, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, t.ID, t.UserID, t.Username, t.Title, t.Link, t.Platform, t.Budget, t.Status).Scan(&t.CreatedAt)
}

func (r *TaskRepo) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = $1
	`, id))
}

// GetByIDForUpdate locks the task row for update. Call within a
// transaction.
func (r *TaskRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.Task, error) {
	return scanTask(tx.QueryRow(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE
	`, id))
}

// SoftDeleteTx marks an active task deleted, recording actor and reason.
// Rows are never physically removed.
func (r *TaskRepo) SoftDeleteTx(ctx context.Context, tx pgx.Tx, id int64, deletedBy, reason string, deletedAt time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE tasks SET status = 'deleted', deleted_by = $2, deleted_reason = $3, deleted_at = $4
		WHERE id = $1 AND status = 'active'
	`, id, deletedBy, reason, deletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *TaskRepo) ListActive(ctx context.Context) ([]*models.Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks WHERE status = 'active' ORDER BY id DESC`)
}

func (r *TaskRepo) ListAll(ctx context.Context) ([]*models.Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id DESC`)
}

func (r *TaskRepo) list(ctx context.Context, query string) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.UserID, &t.Username, &t.Title, &t.Link, &t.Platform, &t.Budget, &t.Status, &t.DeletedBy, &t.DeletedReason, &t.DeletedAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
