package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gemforge/backend/internal/ledger"
	"github.com/gemforge/backend/internal/models"
)

// AdminAccountRepo is the subset of repository.AccountRepo the admin tools need.
type AdminAccountRepo interface {
	List(ctx context.Context, limit, offset int) ([]*models.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	SetAdmin(ctx context.Context, id uuid.UUID, isAdmin bool) error
}

type AdminService struct {
	accounts AdminAccountRepo
	ledger   ledger.Service
	log      *slog.Logger
}

func NewAdminService(accounts AdminAccountRepo, l ledger.Service, log *slog.Logger) *AdminService {
	if log == nil {
		log = slog.Default()
	}
	return &AdminService{accounts: accounts, ledger: l, log: log}
}

func (s *AdminService) ListUsers(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	return s.accounts.List(ctx, limit, offset)
}

func (s *AdminService) GetUser(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	acc, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return acc, nil
}

// AdjustDiamonds credits a positive delta or debits a negative one. A debit
// larger than the balance fails with ledger.ErrInsufficientFunds.
func (s *AdminService) AdjustDiamonds(ctx context.Context, adminID, userID uuid.UUID, delta int, description string) (int, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return 0, ErrDescriptionRequired
	}
	if delta == 0 {
		return 0, ledger.ErrInvalidAmount
	}
	tx, err := s.ledger.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	note := fmt.Sprintf("%s (by admin %s)", description, adminID)
	var newBalance int
	if delta > 0 {
		newBalance, err = s.ledger.Credit(ctx, tx, userID, delta, models.ReasonAdminAdjustment, note)
	} else {
		newBalance, err = s.ledger.Debit(ctx, tx, userID, -delta, models.ReasonAdminAdjustment, note)
	}
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	s.log.Info("admin adjusted diamonds", "admin_id", adminID, "user_id", userID, "delta", delta)
	return newBalance, nil
}

func (s *AdminService) SetAdmin(ctx context.Context, adminID, userID uuid.UUID, isAdmin bool) error {
	if adminID == userID && !isAdmin {
		return ErrSelfDemotion
	}
	if err := s.accounts.SetAdmin(ctx, userID, isAdmin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	s.log.Info("admin flag changed", "admin_id", adminID, "user_id", userID, "is_admin", isAdmin)
	return nil
}

func (s *AdminService) UserLedger(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.LedgerEntry, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.ledger.History(ctx, userID, limit, offset)
}
