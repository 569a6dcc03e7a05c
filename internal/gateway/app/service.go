/**
 * @description
 * This file contains the gateway's application service. The gateway is the
 * only party clients talk to: it keeps the registry of live banks, the
 * directory mapping usernames to their bank and account, and the session
 * tokens it issues at authentication. Every client operation is resolved to
 * one or two bank RPCs; cross-bank transfers run through the saga coordinator.
 *
 * Sessions are JWTs signed with the gateway's secret. The token binds the
 * username, role, home bank, account number and the IP the session was opened
 * from; a request presenting the token from a different IP is rejected.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Vinit2244/Strife/internal/domain"
	"github.com/Vinit2244/Strife/internal/transfer"
)

var (
	// ErrAuthFailed means the credentials did not match any known principal.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrUnknownBank means no bank with the given id is registered.
	ErrUnknownBank = errors.New("no such bank registered")
	// ErrUnknownClient means the username is not in the gateway directory.
	ErrUnknownClient = errors.New("no such client registered")
	// ErrClientTaken means the username is already bound in the directory.
	ErrClientTaken = errors.New("username already registered")
	// ErrForbidden means the session role does not permit the operation.
	ErrForbidden = errors.New("operation not permitted for this role")
	// ErrInvalidToken means the session token failed validation.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrIPMismatch means the token was presented from a different IP than it
	// was issued to.
	ErrIPMismatch = errors.New("session bound to a different address")
)

// BankConn is the full bank RPC surface the gateway drives.
type BankConn interface {
	CreateNewClient(ctx context.Context, req domain.CreateNewClientRequest, meta domain.CallMeta) (*domain.CreateNewClientResponse, error)
	VerifyClientInfo(ctx context.Context, req domain.VerifyClientInfoRequest, meta domain.CallMeta) (*domain.VerifyClientInfoResponse, error)
	FetchBalance(ctx context.Context, req domain.FetchBalanceRequest, meta domain.CallMeta) (*domain.FetchBalanceResponse, error)
	AddBalance(ctx context.Context, req domain.AddBalanceRequest, meta domain.CallMeta) (*domain.AddBalanceResponse, error)
	Credit(ctx context.Context, req domain.CreditRequest, meta domain.CallMeta) (*domain.AmountTransferResponse, error)
	Debit(ctx context.Context, req domain.DebitRequest, meta domain.CallMeta) (*domain.AmountTransferResponse, error)
	GetTransactions(ctx context.Context, req domain.GetTransactionsRequest, meta domain.CallMeta) (*domain.TransactionsResponse, error)
	CheckClientExist(ctx context.Context, req domain.CheckClientExistRequest, meta domain.CallMeta) (*domain.CheckClientExistResponse, error)
}

// BankDialer builds a connection to the bank listening at baseURL.
type BankDialer func(baseURL string) BankConn

// Session is the authenticated principal decoded from a token.
type Session struct {
	Username      string
	Role          string
	BankID        int64
	AccountNumber string
	IP            string
}

type bankEntry struct {
	id      int64
	baseURL string
	conn    BankConn
}

type clientRecord struct {
	bankID        int64
	accountNumber string
}

// Service implements the gateway operations.
type Service struct {
	logger      *zap.Logger
	dial        BankDialer
	coordinator *transfer.Coordinator

	jwtSecret     []byte
	tokenTTL      time.Duration
	adminUsername string
	adminPassword string

	mu         sync.RWMutex
	banks      map[int64]*bankEntry
	clients    map[string]clientRecord
	nextBankID int64
}

// Config carries the service's static settings.
type Config struct {
	JWTSecret     string
	TokenTTL      time.Duration
	AdminUsername string
	AdminPassword string
}

// NewService creates the gateway application service.
func NewService(logger *zap.Logger, cfg Config, dial BankDialer, coordinator *transfer.Coordinator) *Service {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		logger:        logger,
		dial:          dial,
		coordinator:   coordinator,
		jwtSecret:     []byte(cfg.JWTSecret),
		tokenTTL:      ttl,
		adminUsername: cfg.AdminUsername,
		adminPassword: cfg.AdminPassword,
		banks:         make(map[int64]*bankEntry),
		clients:       make(map[string]clientRecord),
	}
}

// RegisterBank adds a bank to the registry and returns its assigned id. Ids
// are monotonic and never reused.
func (s *Service) RegisterBank(address string, port int) (int64, error) {
	if address == "" || port <= 0 {
		return 0, fmt.Errorf("bank address and port are required")
	}
	baseURL := fmt.Sprintf("http://%s:%d", address, port)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextBankID++
	entry := &bankEntry{id: s.nextBankID, baseURL: baseURL, conn: s.dial(baseURL)}
	s.banks[entry.id] = entry

	s.logger.Info("bank registered", zap.Int64("bank_id", entry.id), zap.String("base_url", baseURL))
	return entry.id, nil
}

func (s *Service) bank(id int64) (BankConn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if entry, ok := s.banks[id]; ok {
		return entry.conn, nil
	}
	return nil, ErrUnknownBank
}

func (s *Service) client(username string) (clientRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.clients[username]; ok {
		return rec, nil
	}
	return clientRecord{}, ErrUnknownClient
}

// RegisterClient binds a username to its bank and account in the directory.
// The owning bank must confirm the full credential triple before the binding
// is made; directory slots are first-come-first-served, so an existence check
// alone would let anyone squat another user's username.
func (s *Service) RegisterClient(ctx context.Context, req domain.RegisterClientRequest, meta domain.CallMeta) error {
	conn, err := s.bank(req.BankID)
	if err != nil {
		return err
	}

	resp, err := conn.VerifyClientInfo(ctx, domain.VerifyClientInfoRequest{
		Username:      req.Username,
		AccountNumber: req.AccountNumber,
		Password:      req.Password,
	}, meta)
	if err != nil {
		return fmt.Errorf("bank verification failed: %w", err)
	}
	if resp.ErrCode != 0 || !resp.Present {
		return ErrAuthFailed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.clients[req.Username]; taken {
		return ErrClientTaken
	}
	s.clients[req.Username] = clientRecord{bankID: req.BankID, accountNumber: req.AccountNumber}
	s.logger.Info("client registered", zap.String("username", req.Username), zap.Int64("bank_id", req.BankID))
	return nil
}

func (s *Service) issueToken(session Session) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":            session.Username,
		"role":           session.Role,
		"bank_id":        session.BankID,
		"account_number": session.AccountNumber,
		"ip":             session.IP,
		"iat":            now.Unix(),
		"exp":            now.Add(s.tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// Authenticate verifies credentials and returns a session token. Admin
// credentials come from configuration; client credentials are verified by the
// client's home bank.
func (s *Service) Authenticate(ctx context.Context, username, password, callerIP string) (role string, token string, err error) {
	if s.adminUsername != "" && username == s.adminUsername {
		if password != s.adminPassword {
			return "", "", ErrAuthFailed
		}
		token, err := s.issueToken(Session{Username: username, Role: domain.RoleAdmin, IP: callerIP})
		if err != nil {
			return "", "", err
		}
		return domain.RoleAdmin, token, nil
	}

	rec, err := s.client(username)
	if err != nil {
		return "", "", ErrAuthFailed
	}
	conn, err := s.bank(rec.bankID)
	if err != nil {
		return "", "", err
	}
	resp, err := conn.VerifyClientInfo(ctx, domain.VerifyClientInfoRequest{
		Username:      username,
		AccountNumber: rec.accountNumber,
		Password:      password,
	}, domain.CallMeta{CallerIP: callerIP})
	if err != nil {
		return "", "", fmt.Errorf("bank verification failed: %w", err)
	}
	if resp.ErrCode != 0 || !resp.Present {
		return "", "", ErrAuthFailed
	}

	session := Session{
		Username:      username,
		Role:          domain.RoleClient,
		BankID:        rec.bankID,
		AccountNumber: rec.accountNumber,
		IP:            callerIP,
	}
	token, err = s.issueToken(session)
	if err != nil {
		return "", "", err
	}
	s.logger.Info("session opened", zap.String("username", username), zap.String("ip", callerIP))
	return domain.RoleClient, token, nil
}

// ParseToken validates a session token and binds it to the presenting IP.
func (s *Service) ParseToken(tokenString, callerIP string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	session := &Session{}
	if sub, ok := claims["sub"].(string); ok {
		session.Username = sub
	}
	if role, ok := claims["role"].(string); ok {
		session.Role = role
	}
	if bankID, ok := claims["bank_id"].(float64); ok {
		session.BankID = int64(bankID)
	}
	if accNo, ok := claims["account_number"].(string); ok {
		session.AccountNumber = accNo
	}
	if ip, ok := claims["ip"].(string); ok {
		session.IP = ip
	}
	if session.Username == "" || session.Role == "" {
		return nil, ErrInvalidToken
	}
	if session.IP != "" && callerIP != "" && session.IP != callerIP {
		return nil, ErrIPMismatch
	}
	return session, nil
}

// CheckBalance returns the session holder's balance from their home bank.
func (s *Service) CheckBalance(ctx context.Context, session *Session, meta domain.CallMeta) (decimal.Decimal, error) {
	conn, err := s.bank(session.BankID)
	if err != nil {
		return decimal.Zero, err
	}
	resp, err := conn.FetchBalance(ctx, domain.FetchBalanceRequest{AccountNumber: session.AccountNumber}, meta)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bank balance fetch failed: %w", err)
	}
	if resp.ErrCode != 0 {
		return decimal.Zero, errors.New(resp.Text)
	}
	return resp.Balance, nil
}

// TransactionHistory returns the session holder's statement from their home bank.
func (s *Service) TransactionHistory(ctx context.Context, session *Session, meta domain.CallMeta) ([]domain.Transaction, error) {
	conn, err := s.bank(session.BankID)
	if err != nil {
		return nil, err
	}
	resp, err := conn.GetTransactions(ctx, domain.GetTransactionsRequest{Username: session.Username}, meta)
	if err != nil {
		return nil, fmt.Errorf("bank statement fetch failed: %w", err)
	}
	if resp.ErrCode != 0 {
		return nil, errors.New(resp.Text)
	}
	return resp.Transactions, nil
}

// Transfer runs a deposit, a withdrawal, or a cross-bank transfer for the
// session holder and returns the resulting sender balance.
func (s *Service) Transfer(ctx context.Context, session *Session, req domain.TransferAmountRequest, meta domain.CallMeta) (decimal.Decimal, error) {
	conn, err := s.bank(session.BankID)
	if err != nil {
		return decimal.Zero, err
	}

	switch req.Type {
	case domain.TransferTypeDeposit:
		resp, err := conn.Credit(ctx, domain.CreditRequest{
			ReceiverUsername: session.Username,
			Amount:           req.Amount,
			Type:             domain.TransferTypeDeposit,
			IdempotencyKey:   req.IdempotencyKey,
		}, meta)
		if err != nil {
			return decimal.Zero, fmt.Errorf("bank credit failed: %w", err)
		}
		if resp.ErrCode != 0 {
			return decimal.Zero, errors.New(resp.Text)
		}
		return resp.Balance, nil

	case domain.TransferTypeWithdraw:
		resp, err := conn.Debit(ctx, domain.DebitRequest{
			SenderUsername: session.Username,
			Amount:         req.Amount,
			Type:           domain.TransferTypeWithdraw,
			IdempotencyKey: req.IdempotencyKey,
		}, meta)
		if err != nil {
			return decimal.Zero, fmt.Errorf("bank debit failed: %w", err)
		}
		if resp.ErrCode != 0 {
			return decimal.Zero, errors.New(resp.Text)
		}
		return resp.Balance, nil

	case domain.TransferTypeTransfer:
		return s.crossBankTransfer(ctx, session, req, meta)
	}
	return decimal.Zero, fmt.Errorf("unknown transfer type %q", req.Type)
}

func (s *Service) crossBankTransfer(ctx context.Context, session *Session, req domain.TransferAmountRequest, meta domain.CallMeta) (decimal.Decimal, error) {
	senderConn, err := s.bank(session.BankID)
	if err != nil {
		return decimal.Zero, err
	}
	receiverConn, err := s.bank(req.ReceiverBankID)
	if err != nil {
		return decimal.Zero, err
	}

	// Confirm the receiver before any money moves.
	exists, err := receiverConn.CheckClientExist(ctx, domain.CheckClientExistRequest{
		Username: req.ReceiverUsername,
		AccNo:    req.ReceiverAccNo,
	}, meta)
	if err != nil {
		return decimal.Zero, fmt.Errorf("receiver lookup failed: %w", err)
	}
	if exists.ErrCode != 0 {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownClient, exists.Text)
	}

	result, err := s.coordinator.Execute(ctx, transfer.Order{
		Sender: transfer.Party{
			BankID:        session.BankID,
			Username:      session.Username,
			AccountNumber: session.AccountNumber,
			Bank:          senderConn,
		},
		Receiver: transfer.Party{
			BankID:        req.ReceiverBankID,
			Username:      req.ReceiverUsername,
			AccountNumber: req.ReceiverAccNo,
			Bank:          receiverConn,
		},
		Amount: req.Amount,
		Key:    req.IdempotencyKey,
		Meta:   meta,
	})
	if err != nil {
		return decimal.Zero, err
	}
	return result.SenderBalance, nil
}

// AdminCreateClient opens an account at the target bank and registers it in
// the directory.
func (s *Service) AdminCreateClient(ctx context.Context, session *Session, req domain.AdminCreateClientRequest, meta domain.CallMeta) (string, error) {
	if session.Role != domain.RoleAdmin {
		return "", ErrForbidden
	}
	conn, err := s.bank(req.NewClientBankID)
	if err != nil {
		return "", err
	}

	resp, err := conn.CreateNewClient(ctx, domain.CreateNewClientRequest{
		Username:       req.NewClientUsername,
		Password:       req.NewClientPassword,
		InitialBalance: req.InitialBalance,
	}, meta)
	if err != nil {
		return "", fmt.Errorf("bank account creation failed: %w", err)
	}
	if resp.ErrCode != 0 {
		return "", errors.New(resp.Text)
	}

	s.mu.Lock()
	s.clients[req.NewClientUsername] = clientRecord{bankID: req.NewClientBankID, accountNumber: resp.AccountNumber}
	s.mu.Unlock()

	s.logger.Info("admin created client",
		zap.String("username", req.NewClientUsername),
		zap.Int64("bank_id", req.NewClientBankID),
		zap.String("account_number", resp.AccountNumber),
	)
	return resp.AccountNumber, nil
}

// AdminAddBalance applies an administrative credit at the client's bank.
func (s *Service) AdminAddBalance(ctx context.Context, session *Session, req domain.AdminAddBalanceRequest, meta domain.CallMeta, idemKey string) error {
	if session.Role != domain.RoleAdmin {
		return ErrForbidden
	}
	conn, err := s.bank(req.BankID)
	if err != nil {
		return err
	}

	resp, err := conn.AddBalance(ctx, domain.AddBalanceRequest{
		Username:       req.Username,
		Amount:         req.Amount,
		IdempotencyKey: idemKey,
	}, meta)
	if err != nil {
		return fmt.Errorf("bank admin credit failed: %w", err)
	}
	if resp.ErrCode != 0 {
		return errors.New(resp.Text)
	}
	return nil
}
