/**
 * @description
 * This package provides the gateway's client for the bank RPC surface. It
 * encapsulates the HTTP plumbing for every bank endpoint: the internal API key
 * on the bank-to-gateway channel and the per-call metadata headers travel here,
 * so callers work with typed requests and responses only.
 *
 * Transport failures are returned as errors; a decoded response with a non-zero
 * err_code is NOT an error at this layer, callers inspect the envelope.
 */
package bankclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Vinit2244/Strife/internal/domain"
)

// Client is a client for one bank service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new bank client for the given base URL.
func NewClient(baseURL string, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, meta domain.CallMeta, out interface{}) error {
	if c.baseURL == "" {
		return fmt.Errorf("bank base url is empty")
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
	if strings.TrimSpace(c.apiKey) != "" {
		req.Header.Set(domain.HeaderInternalKey, strings.TrimSpace(c.apiKey))
	}
	if meta.Authorization != "" {
		req.Header.Set(domain.HeaderAuthorization, meta.Authorization)
	}
	if meta.CallerIP != "" {
		req.Header.Set(domain.HeaderCallerIP, meta.CallerIP)
	}
	if meta.AmountClaimed {
		req.Header.Set(domain.HeaderClaimedAmount, meta.ClaimedAmount.String())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request to bank: %w", err)
	}
	defer resp.Body.Close()

	// Rejections also arrive as enveloped bodies, so decode before judging the
	// status code.
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode bank response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

// CreateNewClient opens an account at the bank and returns its number.
func (c *Client) CreateNewClient(ctx context.Context, req domain.CreateNewClientRequest, meta domain.CallMeta) (*domain.CreateNewClientResponse, error) {
	var resp domain.CreateNewClientResponse
	if err := c.post(ctx, "/internal/clients", req, meta, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyClientInfo checks a username/account/password triple against the ledger.
func (c *Client) VerifyClientInfo(ctx context.Context, req domain.VerifyClientInfoRequest, meta domain.CallMeta) (*domain.VerifyClientInfoResponse, error) {
	var resp domain.VerifyClientInfoResponse
	if err := c.post(ctx, "/internal/clients/verify", req, meta, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchBalance returns the current balance of an account.
func (c *Client) FetchBalance(ctx context.Context, req domain.FetchBalanceRequest, meta domain.CallMeta) (*domain.FetchBalanceResponse, error) {
	var resp domain.FetchBalanceResponse
	if err := c.post(ctx, "/internal/balance", req, meta, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddBalance applies an administrative credit to an account.
func (c *Client) AddBalance(ctx context.Context, req domain.AddBalanceRequest, meta domain.CallMeta) (*domain.AddBalanceResponse, error) {
	var resp domain.AddBalanceResponse
	if err := c.post(ctx, "/internal/balance/add", req, meta, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Credit applies a deposit or an incoming transfer leg.
func (c *Client) Credit(ctx context.Context, req domain.CreditRequest, meta domain.CallMeta) (*domain.AmountTransferResponse, error) {
	var resp domain.AmountTransferResponse
	if err := c.post(ctx, "/internal/credit", req, meta, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Debit applies a withdrawal or an outgoing transfer leg.
func (c *Client) Debit(ctx context.Context, req domain.DebitRequest, meta domain.CallMeta) (*domain.AmountTransferResponse, error) {
	var resp domain.AmountTransferResponse
	if err := c.post(ctx, "/internal/debit", req, meta, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetTransactions fetches the full statement of an account.
func (c *Client) GetTransactions(ctx context.Context, req domain.GetTransactionsRequest, meta domain.CallMeta) (*domain.TransactionsResponse, error) {
	var resp domain.TransactionsResponse
	if err := c.post(ctx, "/internal/transactions", req, meta, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CheckClientExist reports whether the username and account number identify a
// client at this bank.
func (c *Client) CheckClientExist(ctx context.Context, req domain.CheckClientExistRequest, meta domain.CallMeta) (*domain.CheckClientExistResponse, error) {
	var resp domain.CheckClientExistResponse
	if err := c.post(ctx, "/internal/clients/exists", req, meta, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
