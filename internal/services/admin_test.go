package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemforge/backend/internal/ledger"
	"github.com/gemforge/backend/internal/models"
)

func TestAdjustDiamonds(t *testing.T) {
	admin, user := uuid.New(), uuid.New()
	db := newMemDB(acct(admin, 0), acct(user, 3))
	svc := NewAdminService(db, db.ledgerService(), nil)
	ctx := context.Background()

	newBalance, err := svc.AdjustDiamonds(ctx, admin, user, 10, "support compensation")
	require.NoError(t, err)
	assert.Equal(t, 13, newBalance)

	newBalance, err = svc.AdjustDiamonds(ctx, admin, user, -4, "chargeback")
	require.NoError(t, err)
	assert.Equal(t, 9, newBalance)

	entries := db.entriesFor(user)
	require.Len(t, entries, 2)
	assert.Equal(t, 10, entries[0].Amount)
	assert.Equal(t, -4, entries[1].Amount)
	for _, e := range entries {
		assert.Equal(t, models.ReasonAdminAdjustment, e.Reason)
		assert.Contains(t, e.Description, admin.String())
	}
}

func TestAdjustDiamonds_Errors(t *testing.T) {
	admin, user := uuid.New(), uuid.New()
	db := newMemDB(acct(admin, 0), acct(user, 3))
	svc := NewAdminService(db, db.ledgerService(), nil)
	ctx := context.Background()

	_, err := svc.AdjustDiamonds(ctx, admin, user, 5, "  ")
	assert.ErrorIs(t, err, ErrDescriptionRequired)

	_, err = svc.AdjustDiamonds(ctx, admin, user, 0, "noop")
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = svc.AdjustDiamonds(ctx, admin, user, -4, "too much")
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.Equal(t, 3, db.account(user).DiamondCount)

	_, err = svc.AdjustDiamonds(ctx, admin, uuid.New(), 1, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSetAdmin(t *testing.T) {
	admin, user := uuid.New(), uuid.New()
	db := newMemDB(acct(admin, 0), acct(user, 0))
	svc := NewAdminService(db, db.ledgerService(), nil)
	ctx := context.Background()

	require.NoError(t, svc.SetAdmin(ctx, admin, user, true))
	assert.True(t, db.account(user).IsAdmin)

	assert.ErrorIs(t, svc.SetAdmin(ctx, admin, admin, false), ErrSelfDemotion)
	assert.ErrorIs(t, svc.SetAdmin(ctx, admin, uuid.New(), true), ErrUserNotFound)
}

func TestUserLedger(t *testing.T) {
	admin, user := uuid.New(), uuid.New()
	db := newMemDB(acct(admin, 0), acct(user, 0))
	svc := NewAdminService(db, db.ledgerService(), nil)
	ctx := context.Background()

	_, err := svc.AdjustDiamonds(ctx, admin, user, 2, "a")
	require.NoError(t, err)
	_, err = svc.AdjustDiamonds(ctx, admin, user, 3, "b")
	require.NoError(t, err)

	entries, err := svc.UserLedger(ctx, user, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 3, entries[0].Amount)

	_, err = svc.UserLedger(ctx, uuid.New(), 10, 0)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestListUsers(t *testing.T) {
	db := newMemDB(acct(uuid.New(), 0), acct(uuid.New(), 0), acct(uuid.New(), 0))
	svc := NewAdminService(db, db.ledgerService(), nil)

	users, err := svc.ListUsers(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
