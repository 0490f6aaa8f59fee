package recharge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shopnest/wallet-service/internal/gateway"
	"github.com/shopnest/wallet-service/internal/wallet"
)

// Service reconciles external gateway payments into wallet credits. The
// wallet's Balance Mutator performs the actual credit; this service decides
// whether and exactly once.
type Service struct {
	repo     Repository
	wallets  *wallet.Service
	gateway  gateway.Gateway
	currency string
}

// NewService constructs a recharge service. A nil gateway falls back to the
// static stub, matching DB-less development mode.
func NewService(repo Repository, wallets *wallet.Service, gw gateway.Gateway, currency string) (*Service, error) {
	if wallets == nil {
		return nil, fmt.Errorf("wallet service is required")
	}
	if gw == nil {
		gw = gateway.Static{Key: "key_dev", Secret: "secret_dev"}
	}
	if currency == "" {
		currency = "INR"
	}
	return &Service{repo: repo, wallets: wallets, gateway: gw, currency: currency}, nil
}

// KeyID exposes the gateway's public key identifier for the admin console.
func (s *Service) KeyID() string {
	return s.gateway.KeyID()
}

// Request opens a new recharge request in the initiated state.
func (s *Service) Request(ctx context.Context, walletID string, amount int64) (Request, error) {
	if amount <= 0 {
		return Request{}, ErrInvalidAmount
	}
	if _, err := s.wallets.Get(ctx, walletID); err != nil {
		return Request{}, err
	}

	now := time.Now().UTC()
	req := Request{
		ID:        uuid.NewString(),
		WalletID:  walletID,
		Amount:    amount,
		Status:    StatusInitiated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return Request{}, err
	}
	return req, nil
}

// OpenOrderResult carries what the admin console needs to launch checkout.
type OpenOrderResult struct {
	Request  Request
	OrderID  string
	Amount   int64
	Currency string
	KeyID    string
}

// OpenOrder asks the gateway for an order covering the request's amount. A
// gateway failure marks the request failed rather than leaving it pending.
// Re-invoking for a request whose order already exists returns that order.
func (s *Service) OpenOrder(ctx context.Context, requestID string, amount int64) (OpenOrderResult, error) {
	req, err := s.repo.Get(ctx, requestID)
	if err != nil {
		return OpenOrderResult{}, err
	}

	if req.Status == StatusOrderCreated && req.GatewayOrderID != "" {
		return OpenOrderResult{Request: req, OrderID: req.GatewayOrderID, Amount: req.Amount, Currency: s.currency, KeyID: s.gateway.KeyID()}, nil
	}
	if req.Status != StatusInitiated {
		return OpenOrderResult{}, ErrInvalidState
	}
	if amount != 0 && amount != req.Amount {
		return OpenOrderResult{}, fmt.Errorf("%w: order amount %d does not match requested %d", ErrInvalidAmount, amount, req.Amount)
	}

	order, err := s.gateway.OpenOrder(ctx, req.Amount, req.ID)
	if err != nil {
		_ = s.repo.Transition(ctx, req.ID, StatusInitiated, StatusFailed, "")
		return OpenOrderResult{}, err
	}
	if order.Currency == "" {
		order.Currency = s.currency
	}

	if err := s.repo.Transition(ctx, req.ID, StatusInitiated, StatusOrderCreated, order.ID); err != nil {
		if errors.Is(err, ErrStateConflict) {
			cur, gerr := s.repo.Get(ctx, req.ID)
			if gerr == nil && cur.Status == StatusOrderCreated {
				return OpenOrderResult{Request: cur, OrderID: cur.GatewayOrderID, Amount: cur.Amount, Currency: order.Currency, KeyID: s.gateway.KeyID()}, nil
			}
		}
		return OpenOrderResult{}, err
	}

	req.Status = StatusOrderCreated
	req.GatewayOrderID = order.ID
	return OpenOrderResult{Request: req, OrderID: order.ID, Amount: order.Amount, Currency: order.Currency, KeyID: s.gateway.KeyID()}, nil
}

// VerifyInput is the gateway callback payload forwarded by the admin console.
type VerifyInput struct {
	RequestID string
	OrderID   string
	PaymentID string
	Signature string
	ActorID   string
}

// VerifyAndCredit validates the callback and credits the wallet exactly once.
// It is safe under at-least-once, concurrent callback delivery: the status
// compare-and-swap picks one winner, and the ledger's reference uniqueness
// guarantees a single recharge transaction even if two callers race past it.
func (s *Service) VerifyAndCredit(ctx context.Context, in VerifyInput) (Request, error) {
	req, err := s.repo.Get(ctx, in.RequestID)
	if err != nil {
		return Request{}, err
	}

	switch req.Status {
	case StatusCredited:
		// terminal; retried callbacks are no-ops
		return req, nil
	case StatusOrderCreated, StatusVerified:
	default:
		return req, ErrInvalidState
	}

	if req.GatewayOrderID == "" || in.OrderID != req.GatewayOrderID {
		_ = s.repo.Transition(ctx, req.ID, req.Status, StatusFailed, "")
		return req, fmt.Errorf("%w: order id mismatch", ErrVerificationFailed)
	}
	if !s.gateway.VerifySignature(in.OrderID, in.PaymentID, in.Signature) {
		_ = s.repo.Transition(ctx, req.ID, req.Status, StatusFailed, "")
		return req, fmt.Errorf("%w: bad signature", ErrVerificationFailed)
	}

	if req.Status == StatusOrderCreated {
		if err := s.repo.Transition(ctx, req.ID, StatusOrderCreated, StatusVerified, ""); err != nil {
			if !errors.Is(err, ErrStateConflict) {
				return req, err
			}
			cur, gerr := s.repo.Get(ctx, req.ID)
			if gerr != nil {
				return Request{}, gerr
			}
			switch cur.Status {
			case StatusCredited:
				return cur, nil
			case StatusVerified:
				// another caller is mid-credit; fall through, the duplicate
				// guard below keeps the credit single
			default:
				return cur, ErrInvalidState
			}
		}
	}

	_, err = s.wallets.Apply(ctx, wallet.ApplyInput{
		WalletID:      req.WalletID,
		Delta:         req.Amount,
		Type:          wallet.TypeRecharge,
		ReferenceType: wallet.RefRechargeRequest,
		ReferenceID:   req.ID,
		ActorID:       in.ActorID,
		Description:   fmt.Sprintf("wallet recharge via gateway order %s", req.GatewayOrderID),
	})
	if err != nil && !errors.Is(err, wallet.ErrDuplicateTransaction) {
		// nothing persisted; the request stays verified and may be retried
		return req, err
	}

	_ = s.repo.Transition(ctx, req.ID, StatusVerified, StatusCredited, "")
	return s.repo.Get(ctx, in.RequestID)
}
