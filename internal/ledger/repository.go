package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gemforge/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *Repository) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	var balance int
	err := r.pool.QueryRow(ctx, `SELECT diamond_count FROM accounts WHERE id = $1`, userID).Scan(&balance)
	return balance, err
}

// DebitIfSufficient runs inside the caller's transaction. The balance check and
// the decrement are a single conditional UPDATE, so concurrent debits cannot
// push the balance below zero. ok is false when no row matched.
func (r *Repository) DebitIfSufficient(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int) (newBalance int, ok bool, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE accounts SET diamond_count = diamond_count - $1, updated_at = now()
		WHERE id = $2 AND diamond_count >= $1
		RETURNING diamond_count
	`, amount, userID).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return newBalance, true, nil
}

func (r *Repository) Exists(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, userID).Scan(&exists)
	return exists, err
}

// AddDiamonds increments the balance and returns the new value. pgx.ErrNoRows if the user is missing.
func (r *Repository) AddDiamonds(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int) (int, error) {
	var newBalance int
	err := tx.QueryRow(ctx, `
		UPDATE accounts SET diamond_count = diamond_count + $1, updated_at = now()
		WHERE id = $2
		RETURNING diamond_count
	`, amount, userID).Scan(&newBalance)
	return newBalance, err
}

func (r *Repository) InsertEntry(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error {
	return tx.QueryRow(ctx, `
		INSERT INTO diamond_ledger (id, user_id, amount, reason, description, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, e.ID, e.UserID, e.Amount, e.Reason, e.Description, e.BalanceAfter).Scan(&e.CreatedAt)
}

func (r *Repository) ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount, reason, description, balance_after, created_at
		FROM diamond_ledger WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Reason, &e.Description, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
