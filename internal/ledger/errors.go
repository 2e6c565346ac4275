package ledger

import "errors"

var (
	// ErrInsufficientFunds is returned when the balance is lower than the requested debit.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNotFound is returned when the user row does not exist.
	ErrNotFound = errors.New("account not found")
	// ErrConflict is returned by SpawnJob when the job id is already taken.
	ErrConflict = errors.New("job already exists")
	// ErrInvalidAmount is returned for zero or negative debit/credit amounts.
	ErrInvalidAmount = errors.New("amount must be > 0")
	// ErrStorage wraps failures reported by the backing store.
	ErrStorage = errors.New("storage error")
)
