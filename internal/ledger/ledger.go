/**
 * @description
 * The ledger engine owns every account of a single bank and enforces the money
 * invariants: balances never go negative, statement logs are append-only, and
 * account numbers are assigned monotonically and never reused.
 *
 * Concurrency model: the Ledger mutex guards the two lookup indexes and the
 * account-number counter; each account carries its own mutex so credits and
 * debits against the same account serialize while different accounts proceed
 * in parallel. Lookups are O(1) by account number and by username.
 *
 * Mutating operations accept an optional caller-supplied idempotency key. The
 * outcome of an applied mutation is recorded per account, and a replay of the
 * same key returns the recorded balance instead of applying the mutation again,
 * so a retried RPC whose response was lost cannot double-apply.
 *
 * @notes
 * - The ledger hands out copies of accounts and statements, never internal
 *   pointers.
 */

package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/Vinit2244/Strife/internal/domain"
)

// AccountRef addresses an account by username or by number. Username wins when
// both are set; both keys resolve to the same account.
type AccountRef struct {
	Number   int64
	Username string
}

// ByUsername builds a reference keyed by username.
func ByUsername(username string) AccountRef { return AccountRef{Username: username} }

// ByNumber builds a reference keyed by account number.
func ByNumber(number int64) AccountRef { return AccountRef{Number: number} }

type account struct {
	mu           sync.Mutex
	number       int64
	username     string
	passwordHash []byte
	createdAt    time.Time
	balance      decimal.Decimal
	log          []domain.Transaction
	applied      map[string]decimal.Decimal // idempotency key -> balance after apply
}

// Ledger is the bank-local store of accounts.
type Ledger struct {
	mu         sync.RWMutex
	byNumber   map[int64]*account
	byUsername map[string]*account
	maxNumber  int64
}

// New returns an empty in-memory ledger.
func New() *Ledger {
	return &Ledger{
		byNumber:   make(map[int64]*account),
		byUsername: make(map[string]*account),
	}
}

// CreateAccount registers a new account and returns its number. The number is
// max(existing)+1, computed and assigned under the ledger's exclusive lock so
// concurrent creations serialize and never collide.
func (l *Ledger) CreateAccount(username, password string, initialBalance decimal.Decimal) (int64, error) {
	if username == "" {
		return 0, ErrEmptyUsername
	}
	if password == "" {
		return 0, ErrEmptyPassword
	}
	if initialBalance.IsNegative() {
		return 0, ErrNegativeBalance
	}

	// Hash outside the lock; bcrypt is deliberately slow.
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.byUsername[username]; taken {
		return 0, ErrUsernameTaken
	}
	l.maxNumber++
	a := &account{
		number:       l.maxNumber,
		username:     username,
		passwordHash: hash,
		createdAt:    time.Now(),
		balance:      initialBalance,
		applied:      make(map[string]decimal.Decimal),
	}
	l.byNumber[a.number] = a
	l.byUsername[a.username] = a
	return a.number, nil
}

func (l *Ledger) resolve(ref AccountRef) (*account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if ref.Username != "" {
		if a, ok := l.byUsername[ref.Username]; ok {
			return a, nil
		}
		return nil, ErrNotFound
	}
	if a, ok := l.byNumber[ref.Number]; ok {
		return a, nil
	}
	return nil, ErrNotFound
}

// Credit adds amount to the account balance and appends a statement entry of
// the given kind. Admin credits accept a zero amount; every other kind requires
// a strictly positive amount.
func (l *Ledger) Credit(ref AccountRef, amount decimal.Decimal, kind domain.TransactionKind, counterparty *domain.Counterparty, idemKey string) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	if kind != domain.KindAdminCredit && !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	a, err := l.resolve(ref)
	if err != nil {
		return decimal.Zero, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if idemKey != "" {
		if balance, seen := a.applied[idemKey]; seen {
			return balance, nil
		}
	}
	a.balance = a.balance.Add(amount)
	a.log = append(a.log, domain.Transaction{
		ID:           uuid.New(),
		Timestamp:    time.Now(),
		Kind:         kind,
		Amount:       amount,
		Counterparty: counterparty,
	})
	if idemKey != "" {
		a.applied[idemKey] = a.balance
	}
	return a.balance, nil
}

// Debit subtracts amount from the account balance. The amount must be strictly
// positive and covered by the balance; a rejected debit leaves the account
// untouched, there is no partial debit.
func (l *Ledger) Debit(ref AccountRef, amount decimal.Decimal, kind domain.TransactionKind, counterparty *domain.Counterparty, idemKey string) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	a, err := l.resolve(ref)
	if err != nil {
		return decimal.Zero, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if idemKey != "" {
		if balance, seen := a.applied[idemKey]; seen {
			return balance, nil
		}
	}
	if a.balance.LessThan(amount) {
		return decimal.Zero, ErrInsufficientFunds
	}
	a.balance = a.balance.Sub(amount)
	a.log = append(a.log, domain.Transaction{
		ID:           uuid.New(),
		Timestamp:    time.Now(),
		Kind:         kind,
		Amount:       amount,
		Counterparty: counterparty,
	})
	if idemKey != "" {
		a.applied[idemKey] = a.balance
	}
	return a.balance, nil
}

// Balance returns the current balance of the referenced account.
func (l *Ledger) Balance(ref AccountRef) (decimal.Decimal, error) {
	a, err := l.resolve(ref)
	if err != nil {
		return decimal.Zero, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance, nil
}

// History returns a copy of the full statement in append order. A fresh call
// returns the complete current log.
func (l *Ledger) History(ref AccountRef) ([]domain.Transaction, error) {
	a, err := l.resolve(ref)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.Transaction, len(a.log))
	copy(out, a.log)
	return out, nil
}

// Lookup returns a snapshot of the referenced account.
func (l *Ledger) Lookup(ref AccountRef) (*domain.Account, error) {
	a, err := l.resolve(ref)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return &domain.Account{
		Number:    a.number,
		Username:  a.username,
		Balance:   a.balance,
		CreatedAt: a.createdAt,
	}, nil
}

// VerifyCredentials reports whether the username, account number and password
// all match one account.
func (l *Ledger) VerifyCredentials(username string, number int64, password string) bool {
	a, err := l.resolve(ByUsername(username))
	if err != nil || a.number != number {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) == nil
}

// Exists reports whether the username and account number identify one account.
func (l *Ledger) Exists(username string, number int64) bool {
	a, err := l.resolve(ByUsername(username))
	return err == nil && a.number == number
}
