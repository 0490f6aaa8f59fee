package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
)

// ErrUnavailable indicates the payment gateway timed out or failed while
// opening an order. The recharge request must not stay pending.
var ErrUnavailable = errors.New("payment gateway unavailable")

// Order is an order opened with the external payment gateway.
type Order struct {
	ID       string
	Amount   int64
	Currency string
}

// Gateway is the narrow contract to the external payment provider. The
// reconciliation logic only decides whether to proceed; the gateway owns
// order creation and signature validation.
type Gateway interface {
	OpenOrder(ctx context.Context, amount int64, receipt string) (Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	KeyID() string
}

// Signature computes the checkout-gateway payment signature: HMAC-SHA256 of
// "orderID|paymentID" keyed with the gateway secret, hex encoded.
func Signature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func verify(secret, orderID, paymentID, signature string) bool {
	expected := Signature(secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Static simulates a gateway that always opens orders and verifies
// signatures against a fixed secret. Used by tests and DB-less dev mode.
type Static struct {
	Key      string
	Secret   string
	Currency string
}

// OpenOrder returns a synthetic order id.
func (s Static) OpenOrder(_ context.Context, amount int64, _ string) (Order, error) {
	currency := s.Currency
	if currency == "" {
		currency = "INR"
	}
	return Order{ID: "order_" + uuid.NewString(), Amount: amount, Currency: currency}, nil
}

// VerifySignature checks the payload signature against the static secret.
func (s Static) VerifySignature(orderID, paymentID, signature string) bool {
	return verify(s.Secret, orderID, paymentID, signature)
}

// KeyID returns the public key identifier handed to the admin console.
func (s Static) KeyID() string { return s.Key }
