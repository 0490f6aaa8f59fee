package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// REST talks to the payment gateway's order API over HTTP with basic-auth
// credentials. Timeouts and transport errors surface as ErrUnavailable so a
// recharge request is never left pending on a dead gateway.
type REST struct {
	baseURL  string
	keyID    string
	secret   string
	currency string
	client   *http.Client
}

// NewREST builds a REST gateway connector with an explicit request timeout.
func NewREST(baseURL, keyID, secret, currency string, timeout time.Duration) *REST {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &REST{
		baseURL:  baseURL,
		keyID:    keyID,
		secret:   secret,
		currency: currency,
		client:   &http.Client{Timeout: timeout},
	}
}

type openOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type openOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// OpenOrder creates an order with the gateway for the given amount.
func (g *REST) OpenOrder(ctx context.Context, amount int64, receipt string) (Order, error) {
	payload, err := json.Marshal(openOrderRequest{Amount: amount, Currency: g.currency, Receipt: receipt})
	if err != nil {
		return Order{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return Order{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.secret)

	resp, err := g.client.Do(req)
	if err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Order{}, fmt.Errorf("%w: gateway returned %d", ErrUnavailable, resp.StatusCode)
	}

	var out openOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Order{}, fmt.Errorf("%w: decode order: %v", ErrUnavailable, err)
	}
	if out.ID == "" {
		return Order{}, fmt.Errorf("%w: gateway returned no order id", ErrUnavailable)
	}
	return Order{ID: out.ID, Amount: out.Amount, Currency: out.Currency}, nil
}

// VerifySignature validates the callback signature against the key secret.
func (g *REST) VerifySignature(orderID, paymentID, signature string) bool {
	return verify(g.secret, orderID, paymentID, signature)
}

// KeyID returns the public key identifier handed to the admin console.
func (g *REST) KeyID() string { return g.keyID }
