package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reviewcash/backend/internal/models"
)

type TopupRepo struct {
	pool *pgxpool.Pool
}

func NewTopupRepo(pool *pgxpool.Pool) *TopupRepo {
	return &TopupRepo{pool: pool}
}

const topupColumns = "id, user_id, username, amount, code, status, reason, handled_by, handled_at, created_at"

// CreateTx inserts a pending topup inside the given transaction.
func (r *TopupRepo) CreateTx(ctx context.Context, tx pgx.Tx, t *models.TopupRequest) error {
	return tx.QueryRow(ctx, `
		INSERT INTO topups (id, user_id, username, amount, code, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, t.ID, t.UserID, t.Username, t.Amount, t.Code, t.Status).Scan(&t.CreatedAt)
}

func (r *TopupRepo) GetByID(ctx context.Context, id int64) (*models.TopupRequest, error) {
	return scanTopup(r.pool.QueryRow(ctx, `
		SELECT `+topupColumns+` FROM topups WHERE id = $1
	`, id))
}

// GetByIDForUpdate locks the topup row so the terminal-status check and
// the transition happen race-free. Call within a transaction.
func (r *TopupRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.TopupRequest, error) {
	return scanTopup(tx.QueryRow(ctx, `
		SELECT `+topupColumns+` FROM topups WHERE id = $1 FOR UPDATE
	`, id))
}

// MarkHandledTx flips a pending topup to a terminal status. The status
// guard in the WHERE clause keeps the transition single-shot even if a
// caller skipped the row lock.
func (r *TopupRepo) MarkHandledTx(ctx context.Context, tx pgx.Tx, id int64, status, handledBy, reason string, handledAt time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE topups SET status = $2, handled_by = $3, reason = $4, handled_at = $5
		WHERE id = $1 AND status = 'pending'
	`, id, status, handledBy, reason, handledAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *TopupRepo) ListPending(ctx context.Context) ([]*models.TopupRequest, error) {
	return r.list(ctx, `SELECT `+topupColumns+` FROM topups WHERE status = 'pending' ORDER BY id DESC`)
}

func (r *TopupRepo) ListAll(ctx context.Context) ([]*models.TopupRequest, error) {
	return r.list(ctx, `SELECT `+topupColumns+` FROM topups ORDER BY id DESC`)
}

func (r *TopupRepo) list(ctx context.Context, query string) ([]*models.TopupRequest, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.TopupRequest
	for rows.Next() {
		t, err := scanTopup(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func scanTopup(row pgx.Row) (*models.TopupRequest, error) {
	var t models.TopupRequest
	err := row.Scan(&t.ID, &t.UserID, &t.Username, &t.Amount, &t.Code, &t.Status, &t.Reason, &t.HandledBy, &t.HandledAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
