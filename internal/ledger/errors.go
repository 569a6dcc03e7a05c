package ledger

import "errors"

// Sentinel errors returned by the ledger engine. Handlers map these onto the
// wire envelope; none of them is retryable by the caller.
var (
	ErrEmptyUsername     = errors.New("username cannot be empty")
	ErrEmptyPassword     = errors.New("password cannot be empty")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrNegativeBalance   = errors.New("initial balance must be non negative")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("not enough balance in account")
	ErrNotFound          = errors.New("no such client exist")
)
