package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reviewcash/backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// GetOrCreate returns the profile for the user, creating an empty one on
// first interaction. The username is refreshed on every call.
func (r *UserRepo) GetOrCreate(ctx context.Context, id int64, username string) (*models.UserProfile, error) {
	var u models.UserProfile
	err := r.pool.QueryRow(ctx, `
		INSERT INTO user_profiles (id, username)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, updated_at = now()
		RETURNING id, username, balance, tasks_done, total_earned, last_submission, created_at, updated_at
	`, id, username).Scan(&u.ID, &u.Username, &u.Balance, &u.TasksDone, &u.TotalEarned, &u.LastSubmission, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*models.UserProfile, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT id, username, balance, tasks_done, total_earned, last_submission, created_at, updated_at
		FROM user_profiles WHERE id = $1
	`, id))
}

// GetByIDForUpdate locks the profile row for update. Call within a
// transaction; every balance mutation in the same transaction must follow
// this lock so concurrent transitions on the same user serialize.
func (r *UserRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.UserProfile, error) {
	return scanUser(tx.QueryRow(ctx, `
		SELECT id, username, balance, tasks_done, total_earned, last_submission, created_at, updated_at
		FROM user_profiles WHERE id = $1 FOR UPDATE
	`, id))
}

// Credit adds amount to the balance and returns the new balance.
func (r *UserRepo) Credit(ctx context.Context, tx pgx.Tx, id int64, amount int64) (newBalance int64, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE user_profiles SET balance = balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING balance
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}

// Debit subtracts amount from the balance. Callers compute the clamped
// hold under a row lock first, so the balance never goes negative.
func (r *UserRepo) Debit(ctx context.Context, tx pgx.Tx, id int64, amount int64) (newBalance int64, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE user_profiles SET balance = balance - $1, updated_at = now()
		WHERE id = $2 AND balance >= $1
		RETURNING balance
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}

// ApplyEarning credits an approved work submission: balance and
// total_earned grow by amount, tasks_done by one.
func (r *UserRepo) ApplyEarning(ctx context.Context, tx pgx.Tx, id int64, amount int64) (newBalance int64, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE user_profiles
		SET balance = balance + $1, total_earned = total_earned + $1, tasks_done = tasks_done + 1, updated_at = now()
		WHERE id = $2
		RETURNING balance
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}

// RecordSubmissionTime sets the last-submission slot for a platform.
// The slot is a single timestamp per platform, not a queue.
func (r *UserRepo) RecordSubmissionTime(ctx context.Context, tx pgx.Tx, id int64, platform string, at time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE user_profiles
		SET last_submission = last_submission || jsonb_build_object($2::text, to_jsonb($3::timestamptz)), updated_at = now()
		WHERE id = $1
	`, id, platform, at)
	return err
}

// ClearSubmissionTime removes the platform slot so a user whose
// submission was rejected regains eligibility immediately.
func (r *UserRepo) ClearSubmissionTime(ctx context.Context, tx pgx.Tx, id int64, platform string) error {
	_, err := tx.Exec(ctx, `
		UPDATE user_profiles SET last_submission = last_submission - $2, updated_at = now()
		WHERE id = $1
	`, id, platform)
	return err
}

func scanUser(row pgx.Row) (*models.UserProfile, error) {
	var u models.UserProfile
	err := row.Scan(&u.ID, &u.Username, &u.Balance, &u.TasksDone, &u.TotalEarned, &u.LastSubmission, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
