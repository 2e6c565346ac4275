package jobs

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gemforge/backend/internal/models"
)

const jobColumns = `id, user_id, kind, payload, status, result_url, cost, error, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.UserID, &j.Kind, &j.Payload, &j.Status, &j.ResultURL, &j.Cost, &j.Error, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// InsertTx inserts a job row inside the spending transaction. inserted is false
// when a row with the same id already exists.
func (r *Repository) InsertTx(ctx context.Context, tx pgx.Tx, j *models.Job) (inserted bool, err error) {
	err = tx.QueryRow(ctx, `
		INSERT INTO jobs (id, user_id, kind, payload, status, result_url, cost)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at, updated_at
	`, j.ID, j.UserID, j.Kind, j.Payload, j.Status, j.ResultURL, j.Cost).Scan(&j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	return scanJob(r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM jobs WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, j)
	}
	return list, rows.Err()
}

// AdvanceTx moves a job to status `to` only if its current status is an allowed
// predecessor. advanced is false when the job was already past that point.
// Empty resultURL keeps the stored value.
func (r *Repository) AdvanceTx(ctx context.Context, tx pgx.Tx, id, to, resultURL, errMsg string) (advanced bool, err error) {
	tag, err := tx.Exec(ctx, `
		UPDATE jobs SET status = $2, result_url = COALESCE(NULLIF($3, ''), result_url), error = $4, updated_at = now()
		WHERE id = $1 AND status = ANY($5)
	`, id, to, resultURL, errMsg, models.JobStatusPredecessors[to])
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
