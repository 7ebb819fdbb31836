package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reviewcash/backend/internal/models"
)

type SubmissionRepo struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepo(pool *pgxpool.Pool) *SubmissionRepo {
	return &SubmissionRepo{pool: pool}
}

const submissionColumns = "id, user_id, username, task_id, platform, content, proof_url, amount, status, reason, handled_by, handled_at, created_at"

func (r *SubmissionRepo) CreateTx(ctx context.Context, tx pgx.Tx, s *models.WorkSubmission) error {
	return tx.QueryRow(ctx, `
		INSERT INTO work_submissions (id, user_id, username, task_id, platform, content, proof_url, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, s.ID, s.UserID, s.Username, s.TaskID, s.Platform, s.Content, s.ProofURL, s.Amount, s.Status).Scan(&s.CreatedAt)
}

func (r *SubmissionRepo) GetByID(ctx context.Context, id int64) (*models.WorkSubmission, error) {
	return scanSubmission(r.pool.QueryRow(ctx, `
		SELECT `+submissionColumns+` FROM work_submissions WHERE id = $1
	`, id))
}

// GetByIDForUpdate locks the submission row for update. Call within a
// transaction.
func (r *SubmissionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.WorkSubmission, error) {
	return scanSubmission(tx.QueryRow(ctx, `
		SELECT `+submissionColumns+` FROM work_submissions WHERE id = $1 FOR UPDATE
	`, id))
}

func (r *SubmissionRepo) MarkHandledTx(ctx context.Context, tx pgx.Tx, id int64, status, handledBy, reason string, handledAt time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE work_submissions SET status = $2, handled_by = $3, reason = $4, handled_at = $5
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

func (r *SubmissionRepo) ListPending(ctx context.Context) ([]*models.WorkSubmission, error) {
	return r.list(ctx, `SELECT `+submissionColumns+` FROM work_submissions WHERE status = 'pending' ORDER BY id DESC`)
}

func (r *SubmissionRepo) ListAll(ctx context.Context) ([]*models.WorkSubmission, error) {
	return r.list(ctx, `SELECT `+submissionColumns+` FROM work_submissions ORDER BY id DESC`)
}

func (r *SubmissionRepo) list(ctx context.Context, query string) ([]*models.WorkSubmission, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.WorkSubmission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func scanSubmission(row pgx.Row) (*models.WorkSubmission, error) {
	var s models.WorkSubmission
	err := row.Scan(&s.ID, &s.UserID, &s.Username, &s.TaskID, &s.Platform, &s.Content, &s.ProofURL, &s.Amount, &s.Status, &s.Reason, &s.HandledBy, &s.HandledAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
