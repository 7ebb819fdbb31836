package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reviewcash/backend/internal/models"
)

type WithdrawRepo struct {
	pool *pgxpool.Pool
}

func NewWithdrawRepo(pool *pgxpool.Pool) *WithdrawRepo {
	return &WithdrawRepo{pool: pool}
}

const withdrawColumns = "id, user_id, username, amount, held, bank, name, card, status, reason, handled_by, handled_at, created_at"

// CreateTx inserts a pending withdrawal inside the transaction that
// debited the hold, so the record and the hold land together or not at all.
func (r *WithdrawRepo) CreateTx(ctx context.Context, tx pgx.Tx, w *models.WithdrawRequest) error {
	return tx.QueryRow(ctx, `
		INSERT INTO withdraws (id, user_id, username, amount, held, bank, name, card, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, w.ID, w.UserID, w.Username, w.Amount, w.Held, w.Bank, w.Name, w.Card, w.Status).Scan(&w.CreatedAt)
}

func (r *WithdrawRepo) GetByID(ctx context.Context, id int64) (*models.WithdrawRequest, error) {
	return scanWithdraw(r.pool.QueryRow(ctx, `
		SELECT `+withdrawColumns+` FROM withdraws WHERE id = $1
	`, id))
}

// GetByIDForUpdate locks the withdrawal row for update. Call within a
// transaction.
func (r *WithdrawRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.WithdrawRequest, error) {
	return scanWithdraw(tx.QueryRow(ctx, `
		SELECT `+withdrawColumns+` FROM withdraws WHERE id = $1 FOR UPDATE
	`, id))
}

func (r *WithdrawRepo) MarkHandledTx(ctx context.Context, tx pgx.Tx, id int64, status, handledBy, reason string, handledAt time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE withdraws SET status = $2, handled_by = $3, reason = $4, handled_at = $5
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

func (r *WithdrawRepo) ListPending(ctx context.Context) ([]*models.WithdrawRequest, error) {
	return r.list(ctx, `SELECT `+withdrawColumns+` FROM withdraws WHERE status = 'pending' ORDER BY id DESC`)
}

func (r *WithdrawRepo) ListAll(ctx context.Context) ([]*models.WithdrawRequest, error) {
	return r.list(ctx, `SELECT `+withdrawColumns+` FROM withdraws ORDER BY id DESC`)
}

func (r *WithdrawRepo) list(ctx context.Context, query string) ([]*models.WithdrawRequest, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.WithdrawRequest
	for rows.Next() {
		w, err := scanWithdraw(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, w)
	}
	return list, rows.Err()
}

func scanWithdraw(row pgx.Row) (*models.WithdrawRequest, error) {
	var w models.WithdrawRequest
	err := row.Scan(&w.ID, &w.UserID, &w.Username, &w.Amount, &w.Held, &w.Bank, &w.Name, &w.Card, &w.Status, &w.Reason, &w.HandledBy, &w.HandledAt, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
