package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gemforge/backend/internal/models"
)

const accountColumns = `id, email, display_name, password_hash, diamond_count, tickets, is_admin, check_in_streak, last_check_in, created_at, updated_at`

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Email, &a.DisplayName, &a.PasswordHash, &a.DiamondCount, &a.Tickets, &a.IsAdmin, &a.CheckInStreak, &a.LastCheckIn, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) Create(ctx context.Context, a *models.Account) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, email, display_name, password_hash, diamond_count, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, a.ID, a.Email, a.DisplayName, a.PasswordHash, a.DiamondCount, a.IsAdmin).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email))
}

func (r *AccountRepo) List(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// GetByIDForUpdate locks the account row for update. Call within a transaction.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error) {
	return scanAccount(tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id))
}

// UpdateCheckIn stores the new streak and check-in time. Call after GetByIDForUpdate in same tx.
func (r *AccountRepo) UpdateCheckIn(ctx context.Context, tx pgx.Tx, id uuid.UUID, streak int, at time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE accounts SET check_in_streak = $2, last_check_in = $3, updated_at = now() WHERE id = $1
	`, id, streak, at)
	return err
}

// AddTickets adds n tickets and returns the new ticket count.
func (r *AccountRepo) AddTickets(ctx context.Context, tx pgx.Tx, id uuid.UUID, n int) (tickets int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE accounts SET tickets = tickets + $1, updated_at = now()
		WHERE id = $2
		RETURNING tickets
	`, n, id).Scan(&tickets)
	return tickets, err
}

// SetAdmin toggles the admin flag. pgx.ErrNoRows if the account does not exist.
func (r *AccountRepo) SetAdmin(ctx context.Context, id uuid.UUID, isAdmin bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET is_admin = $2, updated_at = now() WHERE id = $1`, id, isAdmin)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *AccountRepo) UpdateDisplayName(ctx context.Context, id uuid.UUID, name string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET display_name = $2, updated_at = now() WHERE id = $1`, id, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
