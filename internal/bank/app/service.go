/**
 * @description
 * This file contains the bank's application service. It sits between the HTTP
 * handlers and the ledger engine: it translates wire-level credit/debit types
 * into statement kinds, attaches counterparty identity to cross-bank legs, and
 * owns the bank's registration with the gateway.
 *
 * The bank does not know its own id until the gateway assigns one; until then
 * the id is the -1 sentinel and the bank serves local traffic normally.
 */

package app

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Vinit2244/Strife/internal/domain"
	"github.com/Vinit2244/Strife/internal/ledger"
	"github.com/Vinit2244/Strife/pkg/retry"
)

// UnregisteredBankID is the id a bank carries before the gateway assigns one.
const UnregisteredBankID int64 = -1

// GatewayRegistrar is the slice of the gateway surface the bank needs at startup.
type GatewayRegistrar interface {
	RegisterBank(ctx context.Context, req domain.RegisterBankRequest) (*domain.RegisterBankResponse, error)
}

// Service implements the bank's business operations on top of the ledger.
type Service struct {
	logger *zap.Logger
	ledger *ledger.Ledger
	bankID atomic.Int64
}

// NewService creates the bank application service.
func NewService(logger *zap.Logger, l *ledger.Ledger) *Service {
	s := &Service{logger: logger, ledger: l}
	s.bankID.Store(UnregisteredBankID)
	return s
}

// BankID returns the gateway-assigned bank id, or the -1 sentinel.
func (s *Service) BankID() int64 { return s.bankID.Load() }

// RegisterWithGateway announces this bank to the gateway and stores the
// assigned id. Registration is retried until ctx expires; the gateway may come
// up after the bank does.
func (s *Service) RegisterWithGateway(ctx context.Context, gateway GatewayRegistrar, address string, port int) error {
	policy := retry.Unbounded()
	err := policy.Do(ctx, func(ctx context.Context) error {
		resp, err := gateway.RegisterBank(ctx, domain.RegisterBankRequest{Address: address, Port: port})
		if err != nil {
			s.logger.Warn("gateway registration attempt failed", zap.Error(err))
			return err
		}
		if resp.ErrCode != 0 {
			s.logger.Warn("gateway rejected registration", zap.String("reason", resp.Text))
			return fmt.Errorf("gateway rejected registration: %s", resp.Text)
		}
		s.bankID.Store(resp.ID)
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("registered with gateway", zap.Int64("bank_id", s.bankID.Load()))
	return nil
}

// CreateClient opens a new account and returns its number.
func (s *Service) CreateClient(ctx context.Context, username, password string, initialBalance decimal.Decimal) (int64, error) {
	number, err := s.ledger.CreateAccount(username, password, initialBalance)
	if err != nil {
		return 0, err
	}
	s.logger.Info("account created", zap.String("username", username), zap.Int64("account_number", number))
	return number, nil
}

// VerifyClient checks a username/account/password triple.
func (s *Service) VerifyClient(username string, accountNumber int64, password string) bool {
	return s.ledger.VerifyCredentials(username, accountNumber, password)
}

// ClientExists checks a username/account pair without touching the password.
func (s *Service) ClientExists(username string, accountNumber int64) bool {
	return s.ledger.Exists(username, accountNumber)
}

// Balance returns the current balance of the account.
func (s *Service) Balance(ref ledger.AccountRef) (decimal.Decimal, error) {
	return s.ledger.Balance(ref)
}

// Transactions returns the account statement in append order.
func (s *Service) Transactions(username string) ([]domain.Transaction, error) {
	return s.ledger.History(ledger.ByUsername(username))
}

// AddBalance applies an administrative credit. Zero amounts are accepted as a
// no-op success.
func (s *Service) AddBalance(username string, amount decimal.Decimal, idemKey string) error {
	balance, err := s.ledger.Credit(ledger.ByUsername(username), amount, domain.KindAdminCredit, nil, idemKey)
	if err != nil {
		return err
	}
	s.logger.Info("admin credit applied",
		zap.String("username", username),
		zap.String("amount", amount.String()),
		zap.String("balance", balance.String()),
	)
	return nil
}

// Credit applies a deposit, an incoming transfer leg, or a reimbursement.
func (s *Service) Credit(req domain.CreditRequest) (decimal.Decimal, error) {
	kind := domain.KindDeposit
	var counterparty *domain.Counterparty
	switch req.Type {
	case domain.TransferTypeTransfer:
		kind = domain.KindTransferIn
		counterparty = &domain.Counterparty{
			BankID:        req.SenderBankID,
			AccountNumber: req.SenderAccNo,
			Username:      req.SenderUsername,
		}
	case domain.TransferTypeReimbursement:
		kind = domain.KindReimbursement
	}

	balance, err := s.ledger.Credit(ledger.ByUsername(req.ReceiverUsername), req.Amount, kind, counterparty, req.IdempotencyKey)
	if err != nil {
		return decimal.Zero, err
	}
	s.logger.Info("credit applied",
		zap.String("username", req.ReceiverUsername),
		zap.String("kind", string(kind)),
		zap.String("amount", req.Amount.String()),
	)
	return balance, nil
}

// Debit applies a withdrawal or an outgoing transfer leg. A rejected debit
// moves no money.
func (s *Service) Debit(req domain.DebitRequest) (decimal.Decimal, error) {
	kind := domain.KindWithdraw
	var counterparty *domain.Counterparty
	if req.Type == domain.TransferTypeTransfer {
		kind = domain.KindTransferOut
		counterparty = &domain.Counterparty{
			BankID:        req.ReceiverBankID,
			AccountNumber: req.ReceiverAccNo,
			Username:      req.ReceiverUsername,
		}
	}

	balance, err := s.ledger.Debit(ledger.ByUsername(req.SenderUsername), req.Amount, kind, counterparty, req.IdempotencyKey)
	if err != nil {
		return decimal.Zero, err
	}
	s.logger.Info("debit applied",
		zap.String("username", req.SenderUsername),
		zap.String("kind", string(kind)),
		zap.String("amount", req.Amount.String()),
	)
	return balance, nil
}
