package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gemforge/backend/internal/metrics"
	"github.com/gemforge/backend/internal/models"
)

// Store is the persistence the ledger needs. *Repository implements it.
type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (int, error)
	DebitIfSufficient(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int) (int, bool, error)
	Exists(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (bool, error)
	AddDiamonds(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int) (int, error)
	InsertEntry(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error
	ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.LedgerEntry, error)
}

// JobStore inserts pending job rows. inserted is false when the id already exists.
type JobStore interface {
	InsertTx(ctx context.Context, tx pgx.Tx, j *models.Job) (inserted bool, err error)
}

// Service is the balance-and-ledger API every paid or rewarded action composes.
// Mutating calls run inside the caller's transaction so that a compound action
// (spawn + debit + append) commits or rolls back as a whole.
type Service interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	CheckBalance(ctx context.Context, userID uuid.UUID, cost int) (bool, error)
	Debit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int, reason, description string) (int, error)
	Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int, reason, description string) (int, error)
	AppendEntry(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error
	SpawnJob(ctx context.Context, tx pgx.Tx, j *models.Job) error
	History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.LedgerEntry, error)
}

type service struct {
	store Store
	jobs  JobStore
}

func NewService(store Store, jobs JobStore) Service {
	return &service{store: store, jobs: jobs}
}

var _ Service = (*service)(nil)

func (s *service) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.store.Begin(ctx)
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	balance, err := s.store.GetBalance(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("%w: read balance: %w", ErrStorage, err)
	}
	return balance, nil
}

// CheckBalance is advisory. Debit re-checks atomically.
func (s *service) CheckBalance(ctx context.Context, userID uuid.UUID, cost int) (bool, error) {
	balance, err := s.Balance(ctx, userID)
	if err != nil {
		return false, err
	}
	return balance >= cost, nil
}

func (s *service) Debit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int, reason, description string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	newBalance, ok, err := s.store.DebitIfSufficient(ctx, tx, userID, amount)
	if err != nil {
		return 0, fmt.Errorf("%w: debit: %w", ErrStorage, err)
	}
	if !ok {
		exists, err := s.store.Exists(ctx, tx, userID)
		if err != nil {
			return 0, fmt.Errorf("%w: lookup account: %w", ErrStorage, err)
		}
		if !exists {
			return 0, ErrNotFound
		}
		return 0, ErrInsufficientFunds
	}
	if err := s.AppendEntry(ctx, tx, newEntry(userID, -amount, reason, description, newBalance)); err != nil {
		return 0, err
	}
	metrics.RecordDiamonds("debit", reason, amount)
	return newBalance, nil
}

func (s *service) Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int, reason, description string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	newBalance, err := s.store.AddDiamonds(ctx, tx, userID, amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("%w: credit: %w", ErrStorage, err)
	}
	if err := s.AppendEntry(ctx, tx, newEntry(userID, amount, reason, description, newBalance)); err != nil {
		return 0, err
	}
	metrics.RecordDiamonds("credit", reason, amount)
	return newBalance, nil
}

func (s *service) AppendEntry(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if err := s.store.InsertEntry(ctx, tx, e); err != nil {
		return fmt.Errorf("%w: append ledger entry: %w", ErrStorage, err)
	}
	return nil
}

func (s *service) SpawnJob(ctx context.Context, tx pgx.Tx, j *models.Job) error {
	j.Status = models.JobStatusInitializing
	if j.ResultURL == "" {
		j.ResultURL = models.JobResultPlaceholder
	}
	inserted, err := s.jobs.InsertTx(ctx, tx, j)
	if err != nil {
		return fmt.Errorf("%w: spawn job: %w", ErrStorage, err)
	}
	if !inserted {
		return ErrConflict
	}
	metrics.RecordJobSpawned(j.Kind)
	return nil
}

// History returns the user's entries, newest first.
func (s *service) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.LedgerEntry, error) {
	entries, err := s.store.ListEntries(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list ledger: %w", ErrStorage, err)
	}
	return entries, nil
}

func newEntry(userID uuid.UUID, amount int, reason, description string, balanceAfter int) *models.LedgerEntry {
	return &models.LedgerEntry{
		ID:           uuid.New(),
		UserID:       userID,
		Amount:       amount,
		Reason:       reason,
		Description:  description,
		BalanceAfter: &balanceAfter,
	}
}
