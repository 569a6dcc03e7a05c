package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Vinit2244/Strife/internal/bank/app"
	"github.com/Vinit2244/Strife/internal/domain"
	"github.com/Vinit2244/Strife/internal/ledger"
)

const testAPIKey = "test-internal-key"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	service := app.NewService(zap.NewNop(), ledger.New())
	handlers := NewBankHandlers(service, zap.NewNop())
	srv := httptest.NewServer(BankRoutes(handlers, testAPIKey))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, path string, payload interface{}, headers map[string]string, out interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req, err := http.NewRequest("POST", srv.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(domain.HeaderInternalKey, testAPIKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("execute request: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

func createClient(t *testing.T, srv *httptest.Server, username string, balance string) string {
	t.Helper()
	var resp domain.CreateNewClientResponse
	call(t, srv, "/internal/clients", domain.CreateNewClientRequest{
		Username:       username,
		Password:       "pw",
		InitialBalance: decimal.RequireFromString(balance),
	}, nil, &resp)
	if resp.ErrCode != 0 {
		t.Fatalf("account creation rejected: %s", resp.Text)
	}
	return resp.AccountNumber
}

func TestBankAPI_RejectsMissingInternalKey(t *testing.T) {
	srv := newTestServer(t)

	req, _ := http.NewRequest("POST", srv.URL+"/internal/balance", bytes.NewReader([]byte("{}")))
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("execute request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without internal key, got %d", resp.StatusCode)
	}
}

func TestBankAPI_CreateClientAndFetchBalance(t *testing.T) {
	srv := newTestServer(t)
	accNo := createClient(t, srv, "alice", "100")
	if accNo != "1" {
		t.Fatalf("expected first account number 1, got %q", accNo)
	}

	var balance domain.FetchBalanceResponse
	call(t, srv, "/internal/balance", domain.FetchBalanceRequest{AccountNumber: accNo}, nil, &balance)
	if balance.ErrCode != 0 {
		t.Fatalf("balance fetch rejected: %s", balance.Text)
	}
	if !balance.Balance.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("expected balance 100, got %s", balance.Balance)
	}

	var dup domain.CreateNewClientResponse
	call(t, srv, "/internal/clients", domain.CreateNewClientRequest{
		Username: "alice", Password: "pw2", InitialBalance: decimal.Zero,
	}, nil, &dup)
	if dup.ErrCode != 1 {
		t.Fatal("duplicate username must be rejected")
	}
}

func TestBankAPI_DebitRejectsClaimedAmountMismatch(t *testing.T) {
	srv := newTestServer(t)
	createClient(t, srv, "alice", "100")

	headers := map[string]string{domain.HeaderClaimedAmount: "5"}
	var resp domain.AmountTransferResponse
	call(t, srv, "/internal/debit", domain.DebitRequest{
		SenderUsername: "alice",
		Amount:         decimal.RequireFromString("30"),
		Type:           domain.TransferTypeWithdraw,
	}, headers, &resp)
	if resp.ErrCode != 1 {
		t.Fatal("mismatched claimed amount must be rejected")
	}

	var balance domain.FetchBalanceResponse
	call(t, srv, "/internal/balance", domain.FetchBalanceRequest{AccountNumber: "1"}, nil, &balance)
	if !balance.Balance.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("rejected call must not move money, balance = %s", balance.Balance)
	}
}

func TestBankAPI_ZeroClaimIsStillAClaim(t *testing.T) {
	srv := newTestServer(t)
	createClient(t, srv, "alice", "100")

	headers := map[string]string{domain.HeaderClaimedAmount: "0"}
	var resp domain.AmountTransferResponse
	call(t, srv, "/internal/debit", domain.DebitRequest{
		SenderUsername: "alice",
		Amount:         decimal.RequireFromString("30"),
		Type:           domain.TransferTypeWithdraw,
	}, headers, &resp)
	if resp.ErrCode != 1 {
		t.Fatal("a zero claim against a non-zero amount must be rejected")
	}

	var balance domain.FetchBalanceResponse
	call(t, srv, "/internal/balance", domain.FetchBalanceRequest{AccountNumber: "1"}, nil, &balance)
	if !balance.Balance.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("rejected call must not move money, balance = %s", balance.Balance)
	}
}

func TestBankAPI_CreditAndDebitRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	createClient(t, srv, "alice", "100")

	headers := map[string]string{domain.HeaderClaimedAmount: "30"}
	var debit domain.AmountTransferResponse
	call(t, srv, "/internal/debit", domain.DebitRequest{
		SenderUsername: "alice",
		Amount:         decimal.RequireFromString("30"),
		Type:           domain.TransferTypeWithdraw,
	}, headers, &debit)
	if debit.ErrCode != 0 {
		t.Fatalf("debit rejected: %s", debit.Text)
	}
	if !debit.Balance.Equal(decimal.RequireFromString("70")) {
		t.Fatalf("expected balance 70 after debit, got %s", debit.Balance)
	}

	var insufficient domain.AmountTransferResponse
	call(t, srv, "/internal/debit", domain.DebitRequest{
		SenderUsername: "alice",
		Amount:         decimal.RequireFromString("1000"),
		Type:           domain.TransferTypeWithdraw,
	}, map[string]string{domain.HeaderClaimedAmount: "1000"}, &insufficient)
	if insufficient.ErrCode != 1 {
		t.Fatal("overdraft debit must be rejected")
	}

	var credit domain.AmountTransferResponse
	call(t, srv, "/internal/credit", domain.CreditRequest{
		ReceiverUsername: "alice",
		Amount:           decimal.RequireFromString("30"),
		Type:             domain.TransferTypeDeposit,
	}, headers, &credit)
	if credit.ErrCode != 0 {
		t.Fatalf("credit rejected: %s", credit.Text)
	}
	if !credit.Balance.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("expected balance restored to 100, got %s", credit.Balance)
	}
}

func TestBankAPI_TransferLegRecordsCounterparty(t *testing.T) {
	srv := newTestServer(t)
	createClient(t, srv, "bob", "0")

	var credit domain.AmountTransferResponse
	call(t, srv, "/internal/credit", domain.CreditRequest{
		ReceiverUsername: "bob",
		Amount:           decimal.RequireFromString("50"),
		Type:             domain.TransferTypeTransfer,
		SenderUsername:   "alice",
		SenderBankID:     2,
		SenderAccNo:      "7",
	}, map[string]string{domain.HeaderClaimedAmount: "50"}, &credit)
	if credit.ErrCode != 0 {
		t.Fatalf("transfer credit rejected: %s", credit.Text)
	}

	var statement domain.TransactionsResponse
	call(t, srv, "/internal/transactions", domain.GetTransactionsRequest{Username: "bob"}, nil, &statement)
	if len(statement.Transactions) != 1 {
		t.Fatalf("expected one statement entry, got %d", len(statement.Transactions))
	}
	entry := statement.Transactions[0]
	if entry.Kind != domain.KindTransferIn {
		t.Fatalf("expected transfer-in entry, got %s", entry.Kind)
	}
	if entry.Counterparty == nil || entry.Counterparty.Username != "alice" || entry.Counterparty.BankID != 2 {
		t.Fatalf("counterparty not recorded: %+v", entry.Counterparty)
	}
}

func TestBankAPI_VerifyAndExists(t *testing.T) {
	srv := newTestServer(t)
	accNo := createClient(t, srv, "alice", "0")

	var verify domain.VerifyClientInfoResponse
	call(t, srv, "/internal/clients/verify", domain.VerifyClientInfoRequest{
		Username: "alice", AccountNumber: accNo, Password: "pw",
	}, nil, &verify)
	if !verify.Present {
		t.Fatal("expected matching credentials to verify")
	}

	call(t, srv, "/internal/clients/verify", domain.VerifyClientInfoRequest{
		Username: "alice", AccountNumber: accNo, Password: "wrong",
	}, nil, &verify)
	if verify.Present {
		t.Fatal("expected wrong password to fail verification")
	}

	var exists domain.CheckClientExistResponse
	call(t, srv, "/internal/clients/exists", domain.CheckClientExistRequest{Username: "alice", AccNo: accNo}, nil, &exists)
	if exists.ErrCode != 0 {
		t.Fatalf("expected client to exist, got %s", exists.Text)
	}
	call(t, srv, "/internal/clients/exists", domain.CheckClientExistRequest{Username: "alice", AccNo: "999"}, nil, &exists)
	if exists.ErrCode != 1 {
		t.Fatal("expected mismatched account number to be rejected")
	}
}

func TestBankAPI_AddBalanceIdempotency(t *testing.T) {
	srv := newTestServer(t)
	createClient(t, srv, "alice", "10")

	req := domain.AddBalanceRequest{
		Username:       "alice",
		Amount:         decimal.RequireFromString("40"),
		IdempotencyKey: "admin-op-1",
	}
	headers := map[string]string{domain.HeaderClaimedAmount: "40"}
	var resp domain.AddBalanceResponse
	call(t, srv, "/internal/balance/add", req, headers, &resp)
	if resp.ErrCode != 0 {
		t.Fatalf("admin credit rejected: %s", resp.Text)
	}
	call(t, srv, "/internal/balance/add", req, headers, &resp)
	if resp.ErrCode != 0 {
		t.Fatalf("replayed admin credit rejected: %s", resp.Text)
	}

	var balance domain.FetchBalanceResponse
	call(t, srv, "/internal/balance", domain.FetchBalanceRequest{AccountNumber: "1"}, nil, &balance)
	if !balance.Balance.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("replay double-applied the credit, balance = %s", balance.Balance)
	}
}
