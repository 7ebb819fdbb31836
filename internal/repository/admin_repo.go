package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reviewcash/backend/internal/models"
)

// AdminRepo manages the dynamically maintained secondary-administrator
// list. The primary roster is configuration, not data, and never passes
// through here.
type AdminRepo struct {
	pool *pgxpool.Pool
}

func NewAdminRepo(pool *pgxpool.Pool) *AdminRepo {
	return &AdminRepo{pool: pool}
}

func (r *AdminRepo) Add(ctx context.Context, a *models.SecondaryAdmin) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO secondary_admins (user_id, username, added_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET username = EXCLUDED.username
		RETURNING added_at
	`, a.UserID, a.Username, a.AddedBy).Scan(&a.AddedAt)
}

func (r *AdminRepo) Remove(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM secondary_admins WHERE user_id = $1", userID)
	return err
}

func (r *AdminRepo) Exists(ctx context.Context, userID int64, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM secondary_admins
			WHERE user_id = $1 OR ($2 <> '' AND lower(username) = lower($2))
		)
	`, userID, username).Scan(&exists)
	return exists, err
}

func (r *AdminRepo) List(ctx context.Context) ([]*models.SecondaryAdmin, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, username, added_by, added_at FROM secondary_admins ORDER BY added_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.SecondaryAdmin
	for rows.Next() {
		var a models.SecondaryAdmin
		if err := rows.Scan(&a.UserID, &a.Username, &a.AddedBy, &a.AddedAt); err != nil {
			return nil, err
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}

// ChatIDs returns the numeric ids of all secondary admins that have one,
// for alert fan-out.
func (r *AdminRepo) ChatIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, "SELECT user_id FROM secondary_admins WHERE user_id <> 0")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
