/**
 * @description
 * This package provides the client for the gateway API, used by the CLI and by
 * banks registering themselves. It owns the session token obtained at
 * authentication, stamps the metadata headers on every call, and wraps each
 * operation in the retry policy: ordinary operations retry with backoff until
 * the caller's context expires, authentication gives up after three attempts.
 *
 * Each mutating operation carries an idempotency key minted once per logical
 * operation and reused across retries, so a retry of a call whose response was
 * lost cannot apply the operation twice.
 */
package gatewayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Vinit2244/Strife/internal/domain"
	"github.com/Vinit2244/Strife/pkg/retry"
)

// AuthAttempts caps authentication retries; a wrong password does not improve
// with patience.
const AuthAttempts = 3

// Client is a client for the gateway service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	role       string
}

// NewClient creates a new gateway client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Token returns the session token obtained at authentication.
func (c *Client) Token() string { return c.token }

// Role returns the role the gateway assigned at authentication.
func (c *Client) Role() string { return c.role }

// NewIdempotencyKey mints a fresh key for one logical operation. The caller
// reuses the key across retries of that operation.
func NewIdempotencyKey() string { return uuid.NewString() }

func (c *Client) post(ctx context.Context, path string, payload interface{}, claimedAmount *decimal.Decimal, out interface{}) error {
	if c.baseURL == "" {
		return fmt.Errorf("gateway base url is empty")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set(domain.HeaderAuthorization, "Bearer "+c.token)
	}
	// The claimed amount is refreshed on every call, retries included. A claim
	// of zero is still sent; only claim-free calls omit the header.
	if claimedAmount != nil {
		req.Header.Set(domain.HeaderClaimedAmount, claimedAmount.String())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request to gateway: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode gateway response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

// Authenticate logs in and stores the session token on success. Only transport
// failures are retried; a rejected login is final for that attempt's password.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*domain.AuthResponse, error) {
	var resp domain.AuthResponse
	policy := retry.Capped(AuthAttempts)
	err := policy.Do(ctx, func(ctx context.Context) error {
		return c.post(ctx, "/auth", domain.AuthRequest{Username: username, Password: password}, nil, &resp)
	})
	if err != nil {
		return nil, err
	}
	if resp.ErrCode == 0 {
		c.token = resp.Token
		c.role = resp.Role
	}
	return &resp, nil
}

// RegisterBank announces a bank to the gateway and returns the assigned id.
func (c *Client) RegisterBank(ctx context.Context, req domain.RegisterBankRequest) (*domain.RegisterBankResponse, error) {
	var resp domain.RegisterBankResponse
	if err := c.post(ctx, "/banks/register", req, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RegisterClient registers an existing bank account with the gateway directory.
func (c *Client) RegisterClient(ctx context.Context, req domain.RegisterClientRequest) (*domain.RegisterClientResponse, error) {
	var resp domain.RegisterClientResponse
	err := retry.Unbounded().Do(ctx, func(ctx context.Context) error {
		return c.post(ctx, "/clients/register", req, nil, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// CheckBalance returns the caller's current balance.
func (c *Client) CheckBalance(ctx context.Context) (*domain.CheckBalanceResponse, error) {
	var resp domain.CheckBalanceResponse
	err := retry.Unbounded().Do(ctx, func(ctx context.Context) error {
		return c.post(ctx, "/balance", struct{}{}, nil, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// TransferAmount runs a deposit, a withdrawal, or a cross-bank transfer. The
// idempotency key on the request must be minted once and reused across retries.
func (c *Client) TransferAmount(ctx context.Context, req domain.TransferAmountRequest) (*domain.TransferAmountResponse, error) {
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = NewIdempotencyKey()
	}
	var resp domain.TransferAmountResponse
	err := retry.Unbounded().Do(ctx, func(ctx context.Context) error {
		return c.post(ctx, "/transfer", req, &req.Amount, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetTransactionHistory fetches the caller's statement.
func (c *Client) GetTransactionHistory(ctx context.Context) (*domain.TransactionHistoryResponse, error) {
	var resp domain.TransactionHistoryResponse
	err := retry.Unbounded().Do(ctx, func(ctx context.Context) error {
		return c.post(ctx, "/transactions", struct{}{}, nil, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// AdminCreateClient opens an account at a bank on behalf of the admin.
func (c *Client) AdminCreateClient(ctx context.Context, req domain.AdminCreateClientRequest) (*domain.AdminCreateClientResponse, error) {
	var resp domain.AdminCreateClientResponse
	err := retry.Unbounded().Do(ctx, func(ctx context.Context) error {
		return c.post(ctx, "/admin/clients", req, nil, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// AdminAddBalance applies an administrative credit to a client's account.
func (c *Client) AdminAddBalance(ctx context.Context, req domain.AdminAddBalanceRequest) (*domain.AdminAddBalanceResponse, error) {
	var resp domain.AdminAddBalanceResponse
	err := retry.Unbounded().Do(ctx, func(ctx context.Context) error {
		return c.post(ctx, "/admin/balance", req, &req.Amount, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
