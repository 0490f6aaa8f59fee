package wallet

import "time"

// Owner kinds. Every wallet belongs to exactly one user or admin.
const (
	OwnerUser  = "user"
	OwnerAdmin = "admin"
)

// Wallet lifecycle statuses.
const (
	StatusActive = "active"
	StatusFrozen = "frozen"
)

// Transaction types. Credit-class types raise the balance, debit-class
// types lower it, freeze/unfreeze record state changes with amount 0.
const (
	TypeCredit      = "credit"
	TypeDebit       = "debit"
	TypeFreeze      = "freeze"
	TypeUnfreeze    = "unfreeze"
	TypeTransferIn  = "transfer_in"
	TypeTransferOut = "transfer_out"
	TypeRecharge    = "recharge"
)

// Transaction statuses.
const (
	TxPending   = "pending"
	TxCompleted = "completed"
	TxFailed    = "failed"
)

// Reference kinds correlating a transaction with its cause.
const (
	RefAdminAction     = "admin_action"
	RefTransfer        = "transfer"
	RefRechargeRequest = "recharge_request"
)

// Wallet is a stored-value account holding a non-negative balance in minor
// currency units. Version increases on every write and backs the optimistic
// concurrency check.
type Wallet struct {
	ID           string
	OwnerID      string
	OwnerKind    string
	Balance      int64
	Status       string
	FrozenReason string
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Frozen reports whether debit-class mutations are currently blocked.
func (w Wallet) Frozen() bool {
	return w.Status == StatusFrozen
}

// Transaction is one immutable ledger row. Amount is a magnitude; the type
// determines its sign. BalanceBefore/BalanceAfter snapshot the wallet at the
// instant of the mutation; freeze/unfreeze rows have Amount 0 and carry the
// unchanged balance in both snapshots.
type Transaction struct {
	ID            string
	WalletID      string
	Type          string
	Amount        int64
	BalanceBefore int64
	BalanceAfter  int64
	ReferenceType string
	ReferenceID   string
	ActorID       string
	Status        string
	Description   string
	CreatedAt     time.Time
}

// Signed returns the transaction's signed contribution to the balance.
// Replaying Signed over a wallet's completed history reproduces its balance.
func (t Transaction) Signed() int64 {
	switch t.Type {
	case TypeCredit, TypeTransferIn, TypeRecharge:
		return t.Amount
	case TypeDebit, TypeTransferOut:
		return -t.Amount
	default:
		return 0
	}
}

// Stats is the read-only aggregate projection for dashboards.
type Stats struct {
	TotalWallets      int64 `json:"totalWallets"`
	TotalBalance      int64 `json:"totalBalance"`
	TotalTransactions int64 `json:"totalTransactions"`
}

func debitClass(txType string) bool {
	return txType == TypeDebit || txType == TypeTransferOut
}
