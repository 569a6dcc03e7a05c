/**
 * @description
 * Wire-level request/response types for the bank RPC surface and the gateway API.
 * Every response embeds the uniform envelope: err_code 0 on success, 1 on failure
 * with a human-readable text. Account numbers travel as strings on the wire.
 *
 * Call metadata (authorization marker, caller IP, claimed amount) is carried outside
 * the typed payload in headers and bound into a typed CallMeta by middleware, so an
 * intermediary can enforce authorization and limits without decoding the body.
 */

package domain

import "github.com/shopspring/decimal"

// Envelope is the uniform result shape carried by every RPC response.
type Envelope struct {
	ErrCode int    `json:"err_code"`
	Text    string `json:"text,omitempty"`
}

// Failure builds a failed envelope with the given text.
func Failure(text string) Envelope { return Envelope{ErrCode: 1, Text: text} }

// OK builds a successful envelope with an optional text.
func OK(text string) Envelope { return Envelope{ErrCode: 0, Text: text} }

// CallMeta is the typed view of the per-call metadata headers. ClaimedAmount is
// refreshed by the caller before every amount-sensitive call and must match the
// amount encoded in the request body. AmountClaimed records whether the header
// was present at all: a claim of zero is still a claim and is checked, only a
// truly absent header skips the comparison.
type CallMeta struct {
	Authorization string
	CallerIP      string
	ClaimedAmount decimal.Decimal
	AmountClaimed bool
}

// Metadata header names shared by all services.
const (
	HeaderAuthorization = "Authorization"
	HeaderCallerIP      = "X-Caller-IP"
	HeaderClaimedAmount = "X-Claimed-Amount"
	HeaderInternalKey   = "X-Internal-API-Key"
)

// Session roles issued by the gateway at authentication time.
const (
	RoleClient = "client"
	RoleAdmin  = "admin"
	RoleBank   = "bank"
)

// Credit/debit type markers accepted on the wire.
const (
	TransferTypeDeposit       = "deposit"
	TransferTypeWithdraw      = "withdraw"
	TransferTypeTransfer      = "transfer"
	TransferTypeReimbursement = "reimbursement"
)

// --- Bank service surface (consumed by the gateway) ---

type CreateNewClientRequest struct {
	Username       string          `json:"username"`
	Password       string          `json:"password"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

type CreateNewClientResponse struct {
	Envelope
	AccountNumber string `json:"account_number,omitempty"`
}

type VerifyClientInfoRequest struct {
	Username      string `json:"username"`
	AccountNumber string `json:"account_number"`
	Password      string `json:"password"`
}

type VerifyClientInfoResponse struct {
	Envelope
	Present bool `json:"present"`
}

type FetchBalanceRequest struct {
	AccountNumber string `json:"account_number"`
}

type FetchBalanceResponse struct {
	Envelope
	Balance decimal.Decimal `json:"balance"`
}

type AddBalanceRequest struct {
	Username       string          `json:"username"`
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

type AddBalanceResponse struct {
	Envelope
}

type CreditRequest struct {
	ReceiverUsername string          `json:"receiver_username"`
	Amount           decimal.Decimal `json:"amount"`
	Type             string          `json:"type"`
	SenderUsername   string          `json:"sender_username,omitempty"`
	SenderBankID     int64           `json:"sender_bank_id,omitempty"`
	SenderAccNo      string          `json:"sender_acc_no,omitempty"`
	IdempotencyKey   string          `json:"idempotency_key,omitempty"`
}

type DebitRequest struct {
	SenderUsername   string          `json:"sender_username"`
	Amount           decimal.Decimal `json:"amount"`
	Type             string          `json:"type"`
	ReceiverUsername string          `json:"receiver_username,omitempty"`
	ReceiverBankID   int64           `json:"receiver_bank_id,omitempty"`
	ReceiverAccNo    string          `json:"receiver_acc_no,omitempty"`
	IdempotencyKey   string          `json:"idempotency_key,omitempty"`
}

// AmountTransferResponse is shared by Credit and Debit.
type AmountTransferResponse struct {
	Envelope
	Balance decimal.Decimal `json:"balance"`
}

type GetTransactionsRequest struct {
	Username string `json:"username"`
}

type TransactionsResponse struct {
	Envelope
	Transactions []Transaction `json:"transactions,omitempty"`
}

type CheckClientExistRequest struct {
	Username string `json:"username"`
	AccNo    string `json:"acc_no"`
}

type CheckClientExistResponse struct {
	Envelope
}

// --- Gateway surface (consumed by clients and banks) ---

type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Envelope
	Role  string `json:"role,omitempty"`
	Token string `json:"token,omitempty"`
}

type RegisterBankRequest struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
}

type RegisterBankResponse struct {
	Envelope
	ID int64 `json:"id"`
}

type RegisterClientRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	BankID        int64  `json:"bank_id"`
	AccountNumber string `json:"account_number"`
}

type RegisterClientResponse struct {
	Envelope
}

type CheckBalanceResponse struct {
	Envelope
	Balance decimal.Decimal `json:"balance"`
}

// TransferAmountRequest carries transfers as well as the degenerate deposit and
// withdraw cases, which leave the receiver fields empty.
type TransferAmountRequest struct {
	ReceiverUsername string          `json:"receiver_username,omitempty"`
	ReceiverBankID   int64           `json:"receiver_bank_id,omitempty"`
	ReceiverAccNo    string          `json:"receiver_acc_no,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Type             string          `json:"type"`
	IdempotencyKey   string          `json:"idempotency_key,omitempty"`
}

type TransferAmountResponse struct {
	Envelope
	Balance decimal.Decimal `json:"balance"`
}

type TransactionHistoryResponse struct {
	Envelope
	Transactions []Transaction `json:"transactions,omitempty"`
}

type AdminCreateClientRequest struct {
	NewClientUsername string          `json:"new_client_username"`
	NewClientPassword string          `json:"new_client_password"`
	NewClientBankID   int64           `json:"new_client_bank_id"`
	InitialBalance    decimal.Decimal `json:"initial_balance"`
}

type AdminCreateClientResponse struct {
	Envelope
	AccountNumber string `json:"account_number,omitempty"`
}

type AdminAddBalanceRequest struct {
	Username string          `json:"username"`
	BankID   int64           `json:"bank_id"`
	Amount   decimal.Decimal `json:"amount"`
}

type AdminAddBalanceResponse struct {
	Envelope
}
