package ledger

import (
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Vinit2244/Strife/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCreateAccount_AssignsDenseMonotonicNumbers(t *testing.T) {
	l := New()
	for i := 1; i <= 5; i++ {
		number, err := l.CreateAccount(fmt.Sprintf("user%d", i), "pw", decimal.Zero)
		if err != nil {
			t.Fatalf("CreateAccount returned error: %v", err)
		}
		if number != int64(i) {
			t.Fatalf("expected account number %d, got %d", i, number)
		}
	}
}

func TestCreateAccount_RejectsInvalidInput(t *testing.T) {
	l := New()
	if _, err := l.CreateAccount("", "pw", decimal.Zero); err != ErrEmptyUsername {
		t.Fatalf("expected ErrEmptyUsername, got %v", err)
	}
	if _, err := l.CreateAccount("alice", "", decimal.Zero); err != ErrEmptyPassword {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
	if _, err := l.CreateAccount("alice", "pw", dec("-1")); err != ErrNegativeBalance {
		t.Fatalf("expected ErrNegativeBalance, got %v", err)
	}
	if _, err := l.CreateAccount("alice", "pw", dec("100")); err != nil {
		t.Fatalf("CreateAccount returned error: %v", err)
	}
	if _, err := l.CreateAccount("alice", "pw2", decimal.Zero); err != ErrUsernameTaken {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestDebit_WithdrawScenario(t *testing.T) {
	l := New()
	number, err := l.CreateAccount("alice", "pw", dec("100"))
	if err != nil {
		t.Fatalf("CreateAccount returned error: %v", err)
	}
	if number != 1 {
		t.Fatalf("expected account number 1, got %d", number)
	}

	balance, err := l.Debit(ByNumber(1), dec("30"), domain.KindWithdraw, nil, "")
	if err != nil {
		t.Fatalf("Debit returned error: %v", err)
	}
	if !balance.Equal(dec("70")) {
		t.Fatalf("expected balance 70, got %s", balance)
	}

	if _, err := l.Debit(ByNumber(1), dec("1000"), domain.KindWithdraw, nil, ""); err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	balance, err = l.Balance(ByNumber(1))
	if err != nil {
		t.Fatalf("Balance returned error: %v", err)
	}
	if !balance.Equal(dec("70")) {
		t.Fatalf("rejected debit must not move money, balance = %s", balance)
	}

	log, err := l.History(ByNumber(1))
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(log) != 1 {
		t.Fatalf("expected one statement entry, got %d", len(log))
	}
	if log[0].Kind != domain.KindWithdraw {
		t.Fatalf("expected withdraw entry, got %s", log[0].Kind)
	}
}

func TestDebitThenCredit_RestoresBalanceExactly(t *testing.T) {
	l := New()
	if _, err := l.CreateAccount("alice", "pw", dec("123.45")); err != nil {
		t.Fatalf("CreateAccount returned error: %v", err)
	}
	if _, err := l.Debit(ByUsername("alice"), dec("0.45"), domain.KindWithdraw, nil, ""); err != nil {
		t.Fatalf("Debit returned error: %v", err)
	}
	if _, err := l.Credit(ByUsername("alice"), dec("0.45"), domain.KindDeposit, nil, ""); err != nil {
		t.Fatalf("Credit returned error: %v", err)
	}
	balance, err := l.Balance(ByUsername("alice"))
	if err != nil {
		t.Fatalf("Balance returned error: %v", err)
	}
	if !balance.Equal(dec("123.45")) {
		t.Fatalf("expected exact round-trip to 123.45, got %s", balance)
	}
}

func TestCredit_AmountRules(t *testing.T) {
	l := New()
	if _, err := l.CreateAccount("alice", "pw", dec("10")); err != nil {
		t.Fatalf("CreateAccount returned error: %v", err)
	}

	// Deposits must be strictly positive.
	if _, err := l.Credit(ByUsername("alice"), decimal.Zero, domain.KindDeposit, nil, ""); err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount for zero deposit, got %v", err)
	}
	// Admin credits accept zero but never negative amounts.
	if _, err := l.Credit(ByUsername("alice"), decimal.Zero, domain.KindAdminCredit, nil, ""); err != nil {
		t.Fatalf("zero admin credit should be a no-op success, got %v", err)
	}
	if _, err := l.Credit(ByUsername("alice"), dec("-5"), domain.KindAdminCredit, nil, ""); err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount for negative admin credit, got %v", err)
	}
	balance, err := l.Balance(ByUsername("alice"))
	if err != nil {
		t.Fatalf("Balance returned error: %v", err)
	}
	if !balance.Equal(dec("10")) {
		t.Fatalf("rejected credit must not move money, balance = %s", balance)
	}
}

func TestLookup_ResolvesBothKeysToSameAccount(t *testing.T) {
	l := New()
	number, err := l.CreateAccount("alice", "pw", dec("50"))
	if err != nil {
		t.Fatalf("CreateAccount returned error: %v", err)
	}
	byName, err := l.Lookup(ByUsername("alice"))
	if err != nil {
		t.Fatalf("Lookup by username returned error: %v", err)
	}
	byNumber, err := l.Lookup(ByNumber(number))
	if err != nil {
		t.Fatalf("Lookup by number returned error: %v", err)
	}
	if byName.Number != byNumber.Number || byName.Username != byNumber.Username {
		t.Fatalf("username and number resolved to different accounts: %+v vs %+v", byName, byNumber)
	}
	if _, err := l.Lookup(ByUsername("nobody")); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVerifyCredentials(t *testing.T) {
	l := New()
	number, err := l.CreateAccount("alice", "secret", decimal.Zero)
	if err != nil {
		t.Fatalf("CreateAccount returned error: %v", err)
	}
	if !l.VerifyCredentials("alice", number, "secret") {
		t.Fatal("expected matching credentials to verify")
	}
	if l.VerifyCredentials("alice", number, "wrong") {
		t.Fatal("expected wrong password to fail")
	}
	if l.VerifyCredentials("alice", number+1, "secret") {
		t.Fatal("expected wrong account number to fail")
	}
	if l.VerifyCredentials("bob", number, "secret") {
		t.Fatal("expected unknown username to fail")
	}
}

func TestIdempotencyKey_ReplayDoesNotDoubleApply(t *testing.T) {
	l := New()
	if _, err := l.CreateAccount("alice", "pw", dec("100")); err != nil {
		t.Fatalf("CreateAccount returned error: %v", err)
	}

	first, err := l.Credit(ByUsername("alice"), dec("25"), domain.KindDeposit, nil, "op-1")
	if err != nil {
		t.Fatalf("Credit returned error: %v", err)
	}
	replay, err := l.Credit(ByUsername("alice"), dec("25"), domain.KindDeposit, nil, "op-1")
	if err != nil {
		t.Fatalf("replayed Credit returned error: %v", err)
	}
	if !first.Equal(replay) {
		t.Fatalf("replay must return the recorded balance, got %s vs %s", first, replay)
	}
	balance, _ := l.Balance(ByUsername("alice"))
	if !balance.Equal(dec("125")) {
		t.Fatalf("replay double-applied the credit, balance = %s", balance)
	}

	log, _ := l.History(ByUsername("alice"))
	if len(log) != 1 {
		t.Fatalf("replay must not append a second statement entry, got %d", len(log))
	}

	// A failed debit records nothing, so a later retry with the same key applies.
	if _, err := l.Debit(ByUsername("alice"), dec("1000"), domain.KindWithdraw, nil, "op-2"); err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if _, err := l.Credit(ByUsername("alice"), dec("875"), domain.KindDeposit, nil, "op-3"); err != nil {
		t.Fatalf("Credit returned error: %v", err)
	}
	if _, err := l.Debit(ByUsername("alice"), dec("1000"), domain.KindWithdraw, nil, "op-2"); err != nil {
		t.Fatalf("retry after rejected debit should apply, got %v", err)
	}
}

func TestConcurrentCreateAccount_UniqueNumbers(t *testing.T) {
	l := New()
	const workers = 8

	var wg sync.WaitGroup
	numbers := make([]int64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			number, err := l.CreateAccount(fmt.Sprintf("user%d", i), "pw", decimal.Zero)
			if err != nil {
				t.Errorf("CreateAccount returned error: %v", err)
				return
			}
			numbers[i] = number
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, n := range numbers {
		if n < 1 || n > workers {
			t.Fatalf("account number %d outside dense range [1,%d]", n, workers)
		}
		if seen[n] {
			t.Fatalf("account number %d assigned twice", n)
		}
		seen[n] = true
	}
}

func TestConcurrentCreditDebit_BalanceNeverNegative(t *testing.T) {
	l := New()
	if _, err := l.CreateAccount("alice", "pw", dec("100")); err != nil {
		t.Fatalf("CreateAccount returned error: %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if i%2 == 0 {
					_, _ = l.Credit(ByUsername("alice"), dec("3"), domain.KindDeposit, nil, "")
				} else {
					_, _ = l.Debit(ByUsername("alice"), dec("7"), domain.KindWithdraw, nil, "")
				}
				balance, err := l.Balance(ByUsername("alice"))
				if err != nil {
					t.Errorf("Balance returned error: %v", err)
					return
				}
				if balance.IsNegative() {
					t.Errorf("balance went negative: %s", balance)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}
