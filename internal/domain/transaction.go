/**
 * @description
 * This file defines the core domain models shared by the bank and gateway services:
 * accounts, immutable transaction records, and the counterparty identity attached
 * to cross-bank transfer legs.
 *
 * @notes
 * - Balances and amounts use shopspring/decimal so that money arithmetic is exact.
 * - Transaction records are append-only; nothing in the codebase mutates or deletes
 *   an entry once it has been added to an account statement.
 */

package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind classifies an entry in an account statement.
type TransactionKind string

const (
	KindDeposit       TransactionKind = "deposit"
	KindWithdraw      TransactionKind = "withdraw"
	KindTransferIn    TransactionKind = "transfer-in"
	KindTransferOut   TransactionKind = "transfer-out"
	KindReimbursement TransactionKind = "reimbursement"
	KindAdminCredit   TransactionKind = "admin-credit"
)

// Counterparty identifies the other side of a cross-bank transfer leg.
type Counterparty struct {
	BankID        int64  `json:"bank_id"`
	AccountNumber string `json:"account_number"`
	Username      string `json:"username"`
}

// Transaction is one immutable statement entry. Append order defines statement order.
type Transaction struct {
	ID           uuid.UUID       `json:"id"`
	Timestamp    time.Time       `json:"timestamp"`
	Kind         TransactionKind `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	Counterparty *Counterparty   `json:"counterparty,omitempty"`
}

// String renders a human-readable statement line for CLI display.
func (t Transaction) String() string {
	when := t.Timestamp.Format("January 2, 2006 - 15:04:05")
	switch t.Kind {
	case KindDeposit:
		return fmt.Sprintf("%s : %s deposited in account", when, t.Amount)
	case KindWithdraw:
		return fmt.Sprintf("%s : %s withdrawn from account", when, t.Amount)
	case KindTransferIn:
		if t.Counterparty != nil {
			return fmt.Sprintf("%s : %s credited from %s | Bank id: %d | Acc No: %s",
				when, t.Amount, t.Counterparty.Username, t.Counterparty.BankID, t.Counterparty.AccountNumber)
		}
		return fmt.Sprintf("%s : %s credited to account", when, t.Amount)
	case KindTransferOut:
		if t.Counterparty != nil {
			return fmt.Sprintf("%s : %s debited to %s | Bank id: %d | Acc No: %s",
				when, t.Amount, t.Counterparty.Username, t.Counterparty.BankID, t.Counterparty.AccountNumber)
		}
		return fmt.Sprintf("%s : %s debited from account", when, t.Amount)
	case KindReimbursement:
		return fmt.Sprintf("%s : %s recredited in account", when, t.Amount)
	case KindAdminCredit:
		return fmt.Sprintf("%s : %s added to account by admin", when, t.Amount)
	}
	return fmt.Sprintf("%s : %s %s", when, t.Amount, t.Kind)
}

// Account is a read-only snapshot of a ledger account. The ledger hands out copies,
// never its internal state.
type Account struct {
	Number    int64           `json:"account_number"`
	Username  string          `json:"username"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}
