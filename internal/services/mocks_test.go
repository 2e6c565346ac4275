package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gemforge/backend/internal/ledger"
	"github.com/gemforge/backend/internal/models"
)

// --- noopTx satisfies pgx.Tx; the in-memory stores ignore it. ---

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

// memDB holds accounts and ledger entries. It implements ledger.Store and the
// account-side repo interfaces of this package.
type memDB struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*models.Account
	entries  []*models.LedgerEntry
}

func newMemDB(accs ...*models.Account) *memDB {
	db := &memDB{accounts: map[uuid.UUID]*models.Account{}}
	for _, a := range accs {
		cp := *a
		db.accounts[a.ID] = &cp
	}
	return db
}

func acct(id uuid.UUID, diamonds int) *models.Account {
	return &models.Account{ID: id, Email: id.String() + "@example.com", DiamondCount: diamonds}
}

func (db *memDB) ledgerService() ledger.Service {
	return ledger.NewService(db, nil)
}

func (db *memDB) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

func (db *memDB) GetBalance(_ context.Context, id uuid.UUID) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	a, ok := db.accounts[id]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	return a.DiamondCount, nil
}

func (db *memDB) DebitIfSufficient(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int) (int, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	a, ok := db.accounts[id]
	if !ok || a.DiamondCount < amount {
		return 0, false, nil
	}
	a.DiamondCount -= amount
	return a.DiamondCount, true, nil
}

func (db *memDB) Exists(_ context.Context, _ pgx.Tx, id uuid.UUID) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.accounts[id]
	return ok, nil
}

func (db *memDB) AddDiamonds(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	a, ok := db.accounts[id]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	a.DiamondCount += amount
	return a.DiamondCount, nil
}

func (db *memDB) InsertEntry(_ context.Context, _ pgx.Tx, e *models.LedgerEntry) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	cp := *e
	db.entries = append(db.entries, &cp)
	return nil
}

func (db *memDB) ListEntries(_ context.Context, id uuid.UUID, limit, offset int) ([]*models.LedgerEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []*models.LedgerEntry
	for i := len(db.entries) - 1; i >= 0; i-- {
		if db.entries[i].UserID == id {
			out = append(out, db.entries[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (db *memDB) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	a, ok := db.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (db *memDB) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*models.Account, error) {
	return db.GetByID(ctx, id)
}

func (db *memDB) UpdateCheckIn(_ context.Context, _ pgx.Tx, id uuid.UUID, streak int, at time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	a := db.accounts[id]
	a.CheckInStreak = streak
	a.LastCheckIn = &at
	return nil
}

func (db *memDB) AddTickets(_ context.Context, _ pgx.Tx, id uuid.UUID, n int) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	a := db.accounts[id]
	a.Tickets += n
	return a.Tickets, nil
}

func (db *memDB) List(_ context.Context, limit, offset int) ([]*models.Account, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []*models.Account
	for _, a := range db.accounts {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (db *memDB) SetAdmin(_ context.Context, id uuid.UUID, isAdmin bool) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	a, ok := db.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a.IsAdmin = isAdmin
	return nil
}

func (db *memDB) account(id uuid.UUID) models.Account {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.accounts[id]
}

func (db *memDB) entriesFor(id uuid.UUID) []*models.LedgerEntry {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []*models.LedgerEntry
	for _, e := range db.entries {
		if e.UserID == id {
			out = append(out, e)
		}
	}
	return out
}

// memImages implements ShareImageRepo.
type memImages struct {
	mu     sync.Mutex
	images map[uuid.UUID]*models.Image
}

func newMemImages(imgs ...*models.Image) *memImages {
	m := &memImages{images: map[uuid.UUID]*models.Image{}}
	for _, img := range imgs {
		cp := *img
		m.images[img.ID] = &cp
	}
	return m
}

func (m *memImages) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *img
	return &cp, nil
}

func (m *memImages) MarkPublic(_ context.Context, _ pgx.Tx, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img := m.images[id]
	if img.IsPublic {
		return false, nil
	}
	now := time.Now()
	img.IsPublic = true
	img.SharedAt = &now
	return true, nil
}
