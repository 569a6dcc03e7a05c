package transfer

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Vinit2244/Strife/internal/domain"
)

type bankStub struct {
	debitErr  error
	debitResp *domain.AmountTransferResponse

	creditErr   error
	creditResp  *domain.AmountTransferResponse
	creditCalls []domain.CreditRequest
	debitCalls  []domain.DebitRequest
}

func (s *bankStub) Debit(ctx context.Context, req domain.DebitRequest, meta domain.CallMeta) (*domain.AmountTransferResponse, error) {
	s.debitCalls = append(s.debitCalls, req)
	if s.debitErr != nil {
		return nil, s.debitErr
	}
	return s.debitResp, nil
}

func (s *bankStub) Credit(ctx context.Context, req domain.CreditRequest, meta domain.CallMeta) (*domain.AmountTransferResponse, error) {
	s.creditCalls = append(s.creditCalls, req)
	if s.creditErr != nil {
		return nil, s.creditErr
	}
	return s.creditResp, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func order(sender, receiver BankAPI) Order {
	return Order{
		Sender:   Party{BankID: 1, Username: "alice", AccountNumber: "1", Bank: sender},
		Receiver: Party{BankID: 2, Username: "bob", AccountNumber: "4", Bank: receiver},
		Amount:   dec("50"),
		Key:      "xfer-1",
	}
}

func TestExecute_CommitsWhenBothLegsSucceed(t *testing.T) {
	sender := &bankStub{debitResp: &domain.AmountTransferResponse{Envelope: domain.OK("Amount Debited"), Balance: dec("150")}}
	receiver := &bankStub{creditResp: &domain.AmountTransferResponse{Envelope: domain.OK("Amount Credited"), Balance: dec("50")}}

	c := NewCoordinator(zap.NewNop(), nil, "")
	result, err := c.Execute(context.Background(), order(sender, receiver))
	if err != nil {
		t.Fatalf("expected committed saga, got %v", err)
	}
	if result.State != StateCommitted {
		t.Fatalf("expected state committed, got %s", result.State)
	}
	if !result.SenderBalance.Equal(dec("150")) {
		t.Fatalf("expected sender balance 150, got %s", result.SenderBalance)
	}
	if len(sender.creditCalls) != 0 {
		t.Fatal("committed transfer must not reimburse the sender")
	}
	if got := sender.debitCalls[0].IdempotencyKey; got != "xfer-1:debit" {
		t.Fatalf("unexpected debit idempotency key %q", got)
	}
	if got := receiver.creditCalls[0].IdempotencyKey; got != "xfer-1:credit" {
		t.Fatalf("unexpected credit idempotency key %q", got)
	}
}

func TestExecute_AbortsWhenDebitRejected(t *testing.T) {
	sender := &bankStub{debitResp: &domain.AmountTransferResponse{Envelope: domain.Failure("Not enough balance in account")}}
	receiver := &bankStub{}

	c := NewCoordinator(zap.NewNop(), nil, "")
	result, err := c.Execute(context.Background(), order(sender, receiver))
	if !errors.Is(err, ErrDebitRejected) {
		t.Fatalf("expected ErrDebitRejected, got %v", err)
	}
	if result.State != StateDebiting {
		t.Fatalf("expected terminal state debiting, got %s", result.State)
	}
	if len(receiver.creditCalls) != 0 {
		t.Fatal("no credit leg may be issued after a rejected debit")
	}
	if len(sender.creditCalls) != 0 {
		t.Fatal("nothing to reimburse when no money moved")
	}
}

func TestExecute_ReimbursesSenderWhenCreditLegFails(t *testing.T) {
	sender := &bankStub{
		debitResp:  &domain.AmountTransferResponse{Envelope: domain.OK("Amount Debited"), Balance: dec("150")},
		creditResp: &domain.AmountTransferResponse{Envelope: domain.OK("Amount Credited"), Balance: dec("200")},
	}
	receiver := &bankStub{creditErr: errors.New("dial tcp: connection refused")}

	c := NewCoordinator(zap.NewNop(), nil, "")
	result, err := c.Execute(context.Background(), order(sender, receiver))
	if !errors.Is(err, ErrCreditRejected) {
		t.Fatalf("expected ErrCreditRejected, got %v", err)
	}
	if result.State != StateReimbursed {
		t.Fatalf("expected state reimbursed, got %s", result.State)
	}
	if !result.SenderBalance.Equal(dec("200")) {
		t.Fatalf("expected sender restored to 200, got %s", result.SenderBalance)
	}
	if len(sender.creditCalls) != 1 {
		t.Fatalf("expected exactly one reimbursement credit, got %d", len(sender.creditCalls))
	}
	reimburse := sender.creditCalls[0]
	if reimburse.Type != domain.TransferTypeReimbursement {
		t.Fatalf("expected reimbursement credit, got %q", reimburse.Type)
	}
	if reimburse.IdempotencyKey != "xfer-1:reimburse" {
		t.Fatalf("unexpected reimbursement idempotency key %q", reimburse.IdempotencyKey)
	}
	if !reimburse.Amount.Equal(dec("50")) {
		t.Fatalf("reimbursement must return the full debited amount, got %s", reimburse.Amount)
	}
}

func TestExecute_ReportsReimburseFailure(t *testing.T) {
	sender := &bankStub{
		debitResp: &domain.AmountTransferResponse{Envelope: domain.OK("Amount Debited"), Balance: dec("150")},
		creditErr: errors.New("sender bank went away"),
	}
	receiver := &bankStub{creditErr: errors.New("receiver bank unreachable")}

	c := NewCoordinator(zap.NewNop(), nil, "")
	result, err := c.Execute(context.Background(), order(sender, receiver))
	if !errors.Is(err, ErrReimburseFailed) {
		t.Fatalf("expected ErrReimburseFailed, got %v", err)
	}
	if result.State != StateReimburseFailed {
		t.Fatalf("expected state reimburse_failed, got %s", result.State)
	}
	if len(sender.creditCalls) != 3 {
		t.Fatalf("expected 3 bounded reimbursement attempts, got %d", len(sender.creditCalls))
	}
}
