package wallet

import "errors"

var (
	// ErrNotFound indicates the referenced wallet does not exist.
	ErrNotFound = errors.New("wallet not found")

	// ErrInsufficientFunds occurs when a debit-class mutation would drive the
	// balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrFrozen indicates a debit-class mutation was attempted on a frozen
	// wallet. Credits remain permitted while frozen.
	ErrFrozen = errors.New("wallet is frozen")

	// ErrAlreadyFrozen and ErrNotFrozen signal freeze state machine misuse.
	ErrAlreadyFrozen = errors.New("wallet is already frozen")
	ErrNotFrozen     = errors.New("wallet is not frozen")

	// ErrVersionConflict is returned by repositories when a write observes a
	// stale wallet version. The service retries the whole mutation.
	ErrVersionConflict = errors.New("wallet version conflict")

	// ErrConflict surfaces when the optimistic retry budget is exhausted.
	ErrConflict = errors.New("concurrent wallet update conflict")

	// ErrDuplicateTransaction indicates a transaction with the same type and
	// reference already exists, so the mutation must not be applied again.
	ErrDuplicateTransaction = errors.New("duplicate transaction reference")

	// ErrInvalidAmount covers zero, negative, or sign/type-mismatched amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrReasonRequired is returned when a freeze or mutation description is
	// mandatory but empty.
	ErrReasonRequired = errors.New("reason is required")

	// ErrSameWallet rejects transfers where source and destination match.
	ErrSameWallet = errors.New("source and destination wallets are the same")
)
