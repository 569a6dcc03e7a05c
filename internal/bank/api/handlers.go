/**
 * @description
 * This file contains the HTTP handlers for the bank RPC surface. Handlers parse
 * the request, enforce the claimed-amount check before any money moves, call
 * the application service, and write the uniform response envelope.
 *
 * Every response is a JSON envelope with err_code 0 on success and 1 on
 * failure; business rejections are not HTTP errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Vinit2244/Strife/internal/bank/app"
	"github.com/Vinit2244/Strife/internal/domain"
	"github.com/Vinit2244/Strife/internal/ledger"
)

// BankHandlers holds the application service the handlers use.
type BankHandlers struct {
	service *app.Service
	logger  *zap.Logger
}

// NewBankHandlers creates a new instance of BankHandlers.
func NewBankHandlers(service *app.Service, logger *zap.Logger) *BankHandlers {
	return &BankHandlers{service: service, logger: logger}
}

func (h *BankHandlers) writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func rejectionText(err error) string {
	switch {
	case errors.Is(err, ledger.ErrEmptyUsername):
		return "Username cannot be empty"
	case errors.Is(err, ledger.ErrEmptyPassword):
		return "Password cannot be empty"
	case errors.Is(err, ledger.ErrUsernameTaken):
		return "Username already taken"
	case errors.Is(err, ledger.ErrNegativeBalance):
		return "Initial balance cannot be negative"
	case errors.Is(err, ledger.ErrInvalidAmount):
		return "Invalid amount"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "Not enough balance in account"
	case errors.Is(err, ledger.ErrNotFound):
		return "No such account"
	}
	return err.Error()
}

// claimedAmountMatches enforces the metadata amount against the amount encoded
// in the body. The check runs before any mutation, so a mismatched call moves
// no money. Only a call that made no claim at all skips the comparison; a
// claim of zero is checked like any other.
func claimedAmountMatches(meta domain.CallMeta, amount decimal.Decimal) bool {
	if !meta.AmountClaimed {
		return true
	}
	return meta.ClaimedAmount.Equal(amount)
}

// CreateNewClientHandler opens a new account.
func (h *BankHandlers) CreateNewClientHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateNewClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, domain.CreateNewClientResponse{Envelope: domain.Failure("Invalid request body")})
		return
	}

	number, err := h.service.CreateClient(r.Context(), req.Username, req.Password, req.InitialBalance)
	if err != nil {
		h.writeJSON(w, domain.CreateNewClientResponse{Envelope: domain.Failure(rejectionText(err))})
		return
	}
	h.writeJSON(w, domain.CreateNewClientResponse{
		Envelope:      domain.OK("New client account created"),
		AccountNumber: strconv.FormatInt(number, 10),
	})
}

// VerifyClientInfoHandler checks a username/account/password triple.
func (h *BankHandlers) VerifyClientInfoHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyClientInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, domain.VerifyClientInfoResponse{Envelope: domain.Failure("Invalid request body")})
		return
	}

	number, err := strconv.ParseInt(req.AccountNumber, 10, 64)
	if err != nil {
		h.writeJSON(w, domain.VerifyClientInfoResponse{Envelope: domain.Failure("Invalid account number")})
		return
	}
	present := h.service.VerifyClient(req.Username, number, req.Password)
	h.writeJSON(w, domain.VerifyClientInfoResponse{Envelope: domain.OK(""), Present: present})
}

// CheckClientExistHandler checks a username/account pair.
func (h *BankHandlers) CheckClientExistHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckClientExistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, domain.CheckClientExistResponse{Envelope: domain.Failure("Invalid request body")})
		return
	}

	number, err := strconv.ParseInt(req.AccNo, 10, 64)
	if err != nil {
		h.writeJSON(w, domain.CheckClientExistResponse{Envelope: domain.Failure("Invalid account number")})
		return
	}
	if !h.service.ClientExists(req.Username, number) {
		h.writeJSON(w, domain.CheckClientExistResponse{Envelope: domain.Failure("No such client at this bank")})
		return
	}
	h.writeJSON(w, domain.CheckClientExistResponse{Envelope: domain.OK("Client exists")})
}

// FetchBalanceHandler returns the current balance of an account.
func (h *BankHandlers) FetchBalanceHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.FetchBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, domain.FetchBalanceResponse{Envelope: domain.Failure("Invalid request body")})
		return
	}

	number, err := strconv.ParseInt(req.AccountNumber, 10, 64)
	if err != nil {
		h.writeJSON(w, domain.FetchBalanceResponse{Envelope: domain.Failure("Invalid account number")})
		return
	}
	balance, err := h.service.Balance(ledger.ByNumber(number))
	if err != nil {
		h.writeJSON(w, domain.FetchBalanceResponse{Envelope: domain.Failure(rejectionText(err))})
		return
	}
	h.writeJSON(w, domain.FetchBalanceResponse{Envelope: domain.OK(""), Balance: balance})
}

// AddBalanceHandler applies an administrative credit.
func (h *BankHandlers) AddBalanceHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.AddBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, domain.AddBalanceResponse{Envelope: domain.Failure("Invalid request body")})
		return
	}

	if !claimedAmountMatches(GetCallMeta(r.Context()), req.Amount) {
		h.writeJSON(w, domain.AddBalanceResponse{Envelope: domain.Failure("Claimed amount does not match request amount")})
		return
	}
	if err := h.service.AddBalance(req.Username, req.Amount, req.IdempotencyKey); err != nil {
		h.writeJSON(w, domain.AddBalanceResponse{Envelope: domain.Failure(rejectionText(err))})
		return
	}
	h.writeJSON(w, domain.AddBalanceResponse{Envelope: domain.OK("Balance added successfully")})
}

// CreditHandler applies a deposit, an incoming transfer leg, or a reimbursement.
func (h *BankHandlers) CreditHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, domain.AmountTransferResponse{Envelope: domain.Failure("Invalid request body")})
		return
	}

	if !claimedAmountMatches(GetCallMeta(r.Context()), req.Amount) {
		h.writeJSON(w, domain.AmountTransferResponse{Envelope: domain.Failure("Claimed amount does not match request amount")})
		return
	}
	balance, err := h.service.Credit(req)
	if err != nil {
		h.writeJSON(w, domain.AmountTransferResponse{Envelope: domain.Failure(rejectionText(err))})
		return
	}
	h.writeJSON(w, domain.AmountTransferResponse{Envelope: domain.OK("Amount Credited"), Balance: balance})
}

// DebitHandler applies a withdrawal or an outgoing transfer leg.
func (h *BankHandlers) DebitHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.DebitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, domain.AmountTransferResponse{Envelope: domain.Failure("Invalid request body")})
		return
	}

	if !claimedAmountMatches(GetCallMeta(r.Context()), req.Amount) {
		h.writeJSON(w, domain.AmountTransferResponse{Envelope: domain.Failure("Claimed amount does not match request amount")})
		return
	}
	balance, err := h.service.Debit(req)
	if err != nil {
		h.writeJSON(w, domain.AmountTransferResponse{Envelope: domain.Failure(rejectionText(err))})
		return
	}
	h.writeJSON(w, domain.AmountTransferResponse{Envelope: domain.OK("Amount Debited"), Balance: balance})
}

// GetTransactionsHandler returns the full statement of an account.
func (h *BankHandlers) GetTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.GetTransactionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, domain.TransactionsResponse{Envelope: domain.Failure("Invalid request body")})
		return
	}

	transactions, err := h.service.Transactions(req.Username)
	if err != nil {
		h.writeJSON(w, domain.TransactionsResponse{Envelope: domain.Failure(rejectionText(err))})
		return
	}
	h.writeJSON(w, domain.TransactionsResponse{Envelope: domain.OK(""), Transactions: transactions})
}
