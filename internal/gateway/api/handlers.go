/**
 * @description
 * This file contains the HTTP handlers for the gateway API. The gateway speaks
 * the same uniform envelope as the banks: err_code 0 on success, 1 on failure,
 * business rejections are not HTTP errors.
 *
 * Amount-carrying endpoints enforce the claimed-amount header against the body
 * before any bank is contacted, so a mismatched call never moves money.
 */

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Vinit2244/Strife/internal/domain"
	"github.com/Vinit2244/Strife/internal/gateway/app"
	"github.com/Vinit2244/Strife/internal/transfer"
)

// GatewayHandlers holds the application service the handlers use.
type GatewayHandlers struct {
	service *app.Service
	logger  *zap.Logger
}

// NewGatewayHandlers creates a new instance of GatewayHandlers.
func NewGatewayHandlers(service *app.Service, logger *zap.Logger) *GatewayHandlers {
	return &GatewayHandlers{service: service, logger: logger}
}

func (h *GatewayHandlers) writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// meta rebuilds the call metadata forwarded to banks from the request context.
func (h *GatewayHandlers) meta(r *http.Request) domain.CallMeta {
	return domain.CallMeta{
		Authorization: r.Header.Get(domain.HeaderAuthorization),
		CallerIP:      GetCallerIP(r.Context()),
	}
}

// metaWithAmount additionally claims the amount of the operation at hand, so
// the bank re-checks it against the forwarded body.
func (h *GatewayHandlers) metaWithAmount(r *http.Request, amount decimal.Decimal) domain.CallMeta {
	m := h.meta(r)
	m.ClaimedAmount = amount
	m.AmountClaimed = true
	return m
}

func claimedAmountMatches(r *http.Request, amount decimal.Decimal) bool {
	raw := r.Header.Get(domain.HeaderClaimedAmount)
	if raw == "" {
		return true
	}
	claimed, err := decimal.NewFromString(raw)
	if err != nil {
		return false
	}
	return claimed.Equal(amount)
}

// AuthenticateHandler verifies credentials and issues a session token.
func (h *GatewayHandlers) AuthenticateHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, domain.AuthResponse{Envelope: domain.Failure("Invalid request body")})
		return
	}

	role, token, err := h.service.Authenticate(r.Context(), req.Username, req.Password, GetCallerIP(r.Context()))
	if err != nil {
		if errors.Is(err, app.ErrAuthFailed) {
			h.writeJSON(w, domain.AuthResponse{Envelope: domain.Failure("Authentication failed")})
			return
		}
		h.logger.Error("authentication error", zap.String("username", req.Username), zap.Error(err))
		h.writeJSON(w, domain.AuthResponse{Envelope: domain.Failure("Authentication unavailable, try again")})
		return
	}
	h.writeJSON(w, domain.AuthResponse{Envelope: domain.OK("Authenticated"), Role: role, Token: token})
}

// RegisterBankHandler adds a bank to the registry and returns its id.
func (h *GatewayHandlers) RegisterBankHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterBankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, domain.RegisterBankResponse{Envelope: domain.Failure("Invalid request body")})
		return
	}

	id, err := h.service.RegisterBank(req.Address, req.Port)
	if err != nil {
		h.writeJSON(w, domain.RegisterBankResponse{Envelope: domain.Failure(err.Error())})
		return
	}
	h.writeJSON(w, domain.RegisterBankResponse{Envelope: domain.OK("Bank registered"), ID: id})
}

// RegisterClientHandler binds a username to its bank account in the directory.
func (h *GatewayHandlers) RegisterClientHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, domain.RegisterClientResponse{Envelope: domain.Failure("Invalid request body")})
		return
	}

	if err := h.service.RegisterClient(r.Context(), req, h.meta(r)); err != nil {
		h.writeJSON(w, domain.RegisterClientResponse{Envelope: domain.Failure(err.Error())})
		return
	}
	h.writeJSON(w, domain.RegisterClientResponse{Envelope: domain.OK("Client registered")})
}

// CheckBalanceHandler returns the session holder's balance.
func (h *GatewayHandlers) CheckBalanceHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := GetSession(r.Context())
	if !ok {
		h.writeJSON(w, domain.CheckBalanceResponse{Envelope: domain.Failure("No session")})
		return
	}

	balance, err := h.service.CheckBalance(r.Context(), session, h.meta(r))
	if err != nil {
		h.writeJSON(w, domain.CheckBalanceResponse{Envelope: domain.Failure(err.Error())})
		return
	}
	h.writeJSON(w, domain.CheckBalanceResponse{Envelope: domain.OK(""), Balance: balance})
}

// TransferAmountHandler runs deposits, withdrawals and cross-bank transfers.
func (h *GatewayHandlers) TransferAmountHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := GetSession(r.Context())
	if !ok {
		h.writeJSON(w, domain.TransferAmountResponse{Envelope: domain.Failure("No session")})
		return
	}

	var req domain.TransferAmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, domain.TransferAmountResponse{Envelope: domain.Failure("Invalid request body")})
		return
	}
	if !claimedAmountMatches(r, req.Amount) {
		h.writeJSON(w, domain.TransferAmountResponse{Envelope: domain.Failure("Claimed amount does not match request amount")})
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}

	balance, err := h.service.Transfer(r.Context(), session, req, h.metaWithAmount(r, req.Amount))
	if err != nil {
		if errors.Is(err, transfer.ErrReimburseFailed) {
			h.logger.Error("transfer left unreconciled",
				zap.String("username", session.Username),
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Error(err),
			)
			h.writeJSON(w, domain.TransferAmountResponse{Envelope: domain.Failure("Transfer failed and reimbursement is pending, contact support")})
			return
		}
		h.writeJSON(w, domain.TransferAmountResponse{Envelope: domain.Failure(err.Error())})
		return
	}
	h.writeJSON(w, domain.TransferAmountResponse{Envelope: domain.OK("Transfer complete"), Balance: balance})
}

// TransactionHistoryHandler returns the session holder's statement.
func (h *GatewayHandlers) TransactionHistoryHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := GetSession(r.Context())
	if !ok {
		h.writeJSON(w, domain.TransactionHistoryResponse{Envelope: domain.Failure("No session")})
		return
	}

	transactions, err := h.service.TransactionHistory(r.Context(), session, h.meta(r))
	if err != nil {
		h.writeJSON(w, domain.TransactionHistoryResponse{Envelope: domain.Failure(err.Error())})
		return
	}
	h.writeJSON(w, domain.TransactionHistoryResponse{Envelope: domain.OK(""), Transactions: transactions})
}

// AdminCreateClientHandler opens an account at a bank on behalf of the admin.
func (h *GatewayHandlers) AdminCreateClientHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := GetSession(r.Context())
	if !ok {
		h.writeJSON(w, domain.AdminCreateClientResponse{Envelope: domain.Failure("No session")})
		return
	}

	var req domain.AdminCreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, domain.AdminCreateClientResponse{Envelope: domain.Failure("Invalid request body")})
		return
	}

	accNo, err := h.service.AdminCreateClient(r.Context(), session, req, h.meta(r))
	if err != nil {
		if errors.Is(err, app.ErrForbidden) {
			h.writeJSON(w, domain.AdminCreateClientResponse{Envelope: domain.Failure("Admin access required")})
			return
		}
		h.writeJSON(w, domain.AdminCreateClientResponse{Envelope: domain.Failure(err.Error())})
		return
	}
	h.writeJSON(w, domain.AdminCreateClientResponse{Envelope: domain.OK("Client account created"), AccountNumber: accNo})
}

// AdminAddBalanceHandler applies an administrative credit at a client's bank.
func (h *GatewayHandlers) AdminAddBalanceHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := GetSession(r.Context())
	if !ok {
		h.writeJSON(w, domain.AdminAddBalanceResponse{Envelope: domain.Failure("No session")})
		return
	}

	var req domain.AdminAddBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, domain.AdminAddBalanceResponse{Envelope: domain.Failure("Invalid request body")})
		return
	}
	if !claimedAmountMatches(r, req.Amount) {
		h.writeJSON(w, domain.AdminAddBalanceResponse{Envelope: domain.Failure("Claimed amount does not match request amount")})
		return
	}

	err := h.service.AdminAddBalance(r.Context(), session, req, h.metaWithAmount(r, req.Amount), uuid.NewString())
	if err != nil {
		if errors.Is(err, app.ErrForbidden) {
			h.writeJSON(w, domain.AdminAddBalanceResponse{Envelope: domain.Failure("Admin access required")})
			return
		}
		h.writeJSON(w, domain.AdminAddBalanceResponse{Envelope: domain.Failure(err.Error())})
		return
	}
	h.writeJSON(w, domain.AdminAddBalanceResponse{Envelope: domain.OK("Balance added successfully")})
}
