/**
 * @description
 * Cross-bank transfer coordinator. A transfer is a saga: the sender's bank is
 * debited first, then the receiver's bank is credited. The two legs are
 * independent RPCs with no shared transaction context, so a failed credit leg
 * is compensated with a reimbursement credit back to the sender instead of a
 * rollback. Money is never silently destroyed: the saga ends Committed,
 * Reimbursed, or — when the compensating credit itself cannot be delivered —
 * ReimburseFailed, which is logged at error level and surfaced to the caller.
 *
 * The state machine is explicit so partial-failure paths are testable in
 * isolation: Debiting -> Crediting -> {Committed | Reimbursing -> {Reimbursed |
 * ReimburseFailed}}.
 *
 * Each leg carries an idempotency key derived from the transfer key, so a
 * retried saga cannot double-apply any leg at either bank.
 */

package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Vinit2244/Strife/internal/domain"
	"github.com/Vinit2244/Strife/pkg/rabbitmq"
)

// State names one step of the transfer saga.
type State string

const (
	StateDebiting        State = "debiting"
	StateCrediting       State = "crediting"
	StateCommitted       State = "committed"
	StateReimbursing     State = "reimbursing"
	StateReimbursed      State = "reimbursed"
	StateReimburseFailed State = "reimburse_failed"
)

var (
	// ErrDebitRejected means the debit leg failed and no money moved.
	ErrDebitRejected = errors.New("debit leg rejected")
	// ErrCreditRejected means the credit leg failed and the sender was reimbursed.
	ErrCreditRejected = errors.New("credit leg rejected")
	// ErrReimburseFailed means the compensating credit could not be delivered.
	ErrReimburseFailed = errors.New("reimbursement failed")
)

// BankAPI is the slice of the bank RPC surface the coordinator needs.
type BankAPI interface {
	Debit(ctx context.Context, req domain.DebitRequest, meta domain.CallMeta) (*domain.AmountTransferResponse, error)
	Credit(ctx context.Context, req domain.CreditRequest, meta domain.CallMeta) (*domain.AmountTransferResponse, error)
}

// Party identifies one side of a transfer together with the client for its bank.
type Party struct {
	BankID        int64
	Username      string
	AccountNumber string
	Bank          BankAPI
}

// Order describes one transfer to execute. Key is the caller-supplied
// idempotency key for the whole transfer; per-leg keys are derived from it.
type Order struct {
	Sender   Party
	Receiver Party
	Amount   decimal.Decimal
	Key      string
	Meta     domain.CallMeta
}

// Result reports the terminal state of a saga run.
type Result struct {
	State         State
	SenderBalance decimal.Decimal
	Reason        string
}

// Event is published on every state transition when a broker is configured.
type Event struct {
	TransferKey  string          `json:"transfer_key"`
	State        State           `json:"state"`
	Amount       decimal.Decimal `json:"amount"`
	SenderBank   int64           `json:"sender_bank"`
	ReceiverBank int64           `json:"receiver_bank"`
	Reason       string          `json:"reason,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// Coordinator runs transfer sagas sequentially: the credit leg is never issued
// before the debit leg has completed.
type Coordinator struct {
	logger            *zap.Logger
	producer          rabbitmq.Publisher
	exchange          string
	reimburseAttempts int
}

// NewCoordinator builds a coordinator. producer may be nil when no broker is
// configured.
func NewCoordinator(logger *zap.Logger, producer rabbitmq.Publisher, exchange string) *Coordinator {
	return &Coordinator{
		logger:            logger,
		producer:          producer,
		exchange:          exchange,
		reimburseAttempts: 3,
	}
}

func (c *Coordinator) transition(ctx context.Context, order Order, state State, reason string) {
	c.logger.Info("transfer state",
		zap.String("transfer_key", order.Key),
		zap.String("state", string(state)),
		zap.String("amount", order.Amount.String()),
		zap.Int64("sender_bank", order.Sender.BankID),
		zap.Int64("receiver_bank", order.Receiver.BankID),
	)
	if c.producer == nil {
		return
	}
	event := Event{
		TransferKey:  order.Key,
		State:        state,
		Amount:       order.Amount,
		SenderBank:   order.Sender.BankID,
		ReceiverBank: order.Receiver.BankID,
		Reason:       reason,
		Timestamp:    time.Now(),
	}
	if err := c.producer.Publish(ctx, c.exchange, "transfer.saga."+string(state), event); err != nil {
		c.logger.Warn("transfer event publish failed", zap.String("transfer_key", order.Key), zap.Error(err))
	}
}

// Execute walks the saga for one order. The returned result always names the
// terminal state; the error is non-nil whenever the transfer did not commit.
func (c *Coordinator) Execute(ctx context.Context, order Order) (*Result, error) {
	c.transition(ctx, order, StateDebiting, "")

	debitResp, err := order.Sender.Bank.Debit(ctx, domain.DebitRequest{
		SenderUsername:   order.Sender.Username,
		Amount:           order.Amount,
		Type:             domain.TransferTypeTransfer,
		ReceiverUsername: order.Receiver.Username,
		ReceiverBankID:   order.Receiver.BankID,
		ReceiverAccNo:    order.Receiver.AccountNumber,
		IdempotencyKey:   order.Key + ":debit",
	}, order.Meta)
	if err != nil {
		// Debit leg unreachable: abort, no money moved.
		return &Result{State: StateDebiting, Reason: err.Error()}, fmt.Errorf("%w: %v", ErrDebitRejected, err)
	}
	if debitResp.ErrCode != 0 {
		return &Result{State: StateDebiting, Reason: debitResp.Text}, fmt.Errorf("%w: %s", ErrDebitRejected, debitResp.Text)
	}

	c.transition(ctx, order, StateCrediting, "")

	creditResp, err := order.Receiver.Bank.Credit(ctx, domain.CreditRequest{
		ReceiverUsername: order.Receiver.Username,
		Amount:           order.Amount,
		Type:             domain.TransferTypeTransfer,
		SenderUsername:   order.Sender.Username,
		SenderBankID:     order.Sender.BankID,
		SenderAccNo:      order.Sender.AccountNumber,
		IdempotencyKey:   order.Key + ":credit",
	}, order.Meta)
	if err == nil && creditResp.ErrCode == 0 {
		c.transition(ctx, order, StateCommitted, "")
		return &Result{State: StateCommitted, SenderBalance: debitResp.Balance}, nil
	}

	reason := "receiver bank unreachable"
	if err != nil {
		reason = err.Error()
	} else if creditResp.Text != "" {
		reason = creditResp.Text
	}
	c.transition(ctx, order, StateReimbursing, reason)

	result, rerr := c.reimburse(ctx, order, debitResp.Balance)
	if rerr != nil {
		return result, rerr
	}
	result.Reason = reason
	return result, fmt.Errorf("%w: %s", ErrCreditRejected, reason)
}

// reimburse issues the compensating credit back to the sender. Delivery is
// retried a small fixed number of times; a saga must not block forever inside
// a synchronous gateway call.
func (c *Coordinator) reimburse(ctx context.Context, order Order, balanceAfterDebit decimal.Decimal) (*Result, error) {
	var lastErr error
	for attempt := 0; attempt < c.reimburseAttempts; attempt++ {
		resp, err := order.Sender.Bank.Credit(ctx, domain.CreditRequest{
			ReceiverUsername: order.Sender.Username,
			Amount:           order.Amount,
			Type:             domain.TransferTypeReimbursement,
			IdempotencyKey:   order.Key + ":reimburse",
		}, order.Meta)
		if err == nil && resp.ErrCode == 0 {
			c.transition(ctx, order, StateReimbursed, "")
			return &Result{State: StateReimbursed, SenderBalance: resp.Balance}, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = errors.New(resp.Text)
		}
	}

	c.logger.Error("reimbursement could not be delivered",
		zap.String("transfer_key", order.Key),
		zap.String("amount", order.Amount.String()),
		zap.Int64("sender_bank", order.Sender.BankID),
		zap.Error(lastErr),
	)
	c.transition(ctx, order, StateReimburseFailed, lastErr.Error())
	return &Result{State: StateReimburseFailed, SenderBalance: balanceAfterDebit, Reason: lastErr.Error()},
		fmt.Errorf("%w: %v", ErrReimburseFailed, lastErr)
}
