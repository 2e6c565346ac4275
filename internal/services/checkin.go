package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gemforge/backend/internal/ledger"
	"github.com/gemforge/backend/internal/models"
)

// Daily check-in reward: BaseCheckInReward + min(streak-1, MaxStreakBonus) * StreakBonusPerDay.
const (
	BaseCheckInReward = 2
	MaxStreakBonus    = 5
	StreakBonusPerDay = 1
)

// CheckInAccountRepo is the subset of repository.AccountRepo the check-in needs.
type CheckInAccountRepo interface {
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error)
	UpdateCheckIn(ctx context.Context, tx pgx.Tx, id uuid.UUID, streak int, at time.Time) error
}

type CheckInResult struct {
	Reward          int `json:"reward"`
	Streak          int `json:"streak"`
	NewDiamondCount int `json:"newDiamondCount"`
}

type CheckInService struct {
	accounts CheckInAccountRepo
	ledger   ledger.Service
	loc      *time.Location
	now      func() time.Time
	log      *slog.Logger
}

// NewCheckInService compares calendar days in loc. nil loc means UTC.
func NewCheckInService(accounts CheckInAccountRepo, l ledger.Service, loc *time.Location, log *slog.Logger) *CheckInService {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &CheckInService{accounts: accounts, ledger: l, loc: loc, now: time.Now, log: log}
}

// CheckInReward returns the diamonds granted for the given streak.
func CheckInReward(streak int) int {
	bonus := streak - 1
	if bonus < 0 {
		bonus = 0
	}
	if bonus > MaxStreakBonus {
		bonus = MaxStreakBonus
	}
	return BaseCheckInReward + bonus*StreakBonusPerDay
}

// NextStreak computes the streak after a check-in at now. sameDay reports a
// second check-in on the same calendar day, which must be rejected.
func NextStreak(last *time.Time, streak int, now time.Time, loc *time.Location) (next int, sameDay bool) {
	if last == nil {
		return 1, false
	}
	lastDay := calendarDay(*last, loc)
	today := calendarDay(now, loc)
	switch {
	case lastDay.Equal(today):
		return streak, true
	case lastDay.AddDate(0, 0, 1).Equal(today):
		return streak + 1, false
	default:
		return 1, false
	}
}

func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// CheckIn locks the account row so concurrent check-ins serialize, then
// updates the streak and credits the reward in the same transaction.
func (s *CheckInService) CheckIn(ctx context.Context, userID uuid.UUID) (*CheckInResult, error) {
	tx, err := s.ledger.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	acc, err := s.accounts.GetByIDForUpdate(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lock account: %w", err)
	}

	now := s.now()
	streak, sameDay := NextStreak(acc.LastCheckIn, acc.CheckInStreak, now, s.loc)
	if sameDay {
		return nil, ErrAlreadyCheckedIn
	}
	reward := CheckInReward(streak)

	if err := s.accounts.UpdateCheckIn(ctx, tx, userID, streak, now); err != nil {
		return nil, fmt.Errorf("update check-in: %w", err)
	}
	newBalance, err := s.ledger.Credit(ctx, tx, userID, reward, models.ReasonDailyCheckIn, fmt.Sprintf("daily check-in, streak %d", streak))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.log.Info("daily check-in", "user_id", userID, "streak", streak, "reward", reward)
	return &CheckInResult{Reward: reward, Streak: streak, NewDiamondCount: newBalance}, nil
}
