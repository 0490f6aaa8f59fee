package recharge

import (
	"errors"
	"time"
)

// Request lifecycle statuses. A request that reaches StatusCredited is
// terminal; reprocessing it is a no-op.
const (
	StatusInitiated    = "initiated"
	StatusOrderCreated = "order_created"
	StatusVerified     = "verified"
	StatusCredited     = "credited"
	StatusFailed       = "failed"
)

var (
	// ErrNotFound indicates an unknown recharge request id.
	ErrNotFound = errors.New("recharge request not found")

	// ErrVerificationFailed indicates the callback signature or amount did
	// not match the recorded request. No credit is applied.
	ErrVerificationFailed = errors.New("payment verification failed")

	// ErrInvalidState rejects a transition the lifecycle does not permit,
	// e.g. verifying a request that never opened a gateway order.
	ErrInvalidState = errors.New("recharge request in invalid state")

	// ErrStateConflict is returned by repositories when a status transition
	// loses a compare-and-swap race.
	ErrStateConflict = errors.New("recharge request state conflict")

	// ErrInvalidAmount rejects non-positive or mismatched amounts.
	ErrInvalidAmount = errors.New("invalid recharge amount")
)

// Request bridges a wallet credit to the external payment gateway.
type Request struct {
	ID             string
	WalletID       string
	Amount         int64
	Status         string
	GatewayOrderID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
