package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu       sync.RWMutex
	wallets  map[string]Wallet            // wallet id -> wallet
	byOwner  map[string]string            // owner key -> wallet id
	history  map[string][]Transaction     // wallet id -> ledger rows, oldest first
	txByRef  map[string]struct{}          // type|reference_type|reference_id
}

// NewMemoryRepository constructs an in-memory repository mirroring the
// Postgres semantics, including version checks and reference uniqueness.
// Used by tests and DB-less development mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		wallets: make(map[string]Wallet),
		byOwner: make(map[string]string),
		history: make(map[string][]Transaction),
		txByRef: make(map[string]struct{}),
	}
}

func ownerKey(ownerID, ownerKind string) string {
	return ownerKind + ":" + ownerID
}

func refKey(t Transaction) string {
	return t.Type + "|" + t.ReferenceType + "|" + t.ReferenceID
}

func (r *memoryRepository) GetOrCreate(_ context.Context, ownerID, ownerKind string) (Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byOwner[ownerKey(ownerID, ownerKind)]; ok {
		return r.wallets[id], nil
	}

	now := time.Now().UTC()
	w := Wallet{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		OwnerKind: ownerKind,
		Balance:   0,
		Status:    StatusActive,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.wallets[w.ID] = w
	r.byOwner[ownerKey(ownerID, ownerKind)] = w.ID
	return w, nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return w, nil
}

func (r *memoryRepository) GetByOwner(_ context.Context, ownerID, ownerKind string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byOwner[ownerKey(ownerID, ownerKind)]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return r.wallets[id], nil
}

func (r *memoryRepository) Commit(_ context.Context, muts ...Mutation) error {
	if len(muts) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Validate everything before touching state so the commit is all-or-nothing.
	for _, m := range muts {
		w, ok := r.wallets[m.WalletID]
		if !ok {
			return ErrNotFound
		}
		if w.Version != m.Version {
			return ErrVersionConflict
		}
		if m.Tx.ReferenceID != "" {
			if _, dup := r.txByRef[refKey(m.Tx)]; dup {
				return ErrDuplicateTransaction
			}
		}
	}

	now := time.Now().UTC()
	for _, m := range muts {
		w := r.wallets[m.WalletID]
		w.Balance = m.Balance
		w.Status = m.Status
		w.FrozenReason = m.FrozenReason
		w.Version++
		w.UpdatedAt = now
		r.wallets[m.WalletID] = w

		r.history[m.WalletID] = append(r.history[m.WalletID], m.Tx)
		if m.Tx.ReferenceID != "" {
			r.txByRef[refKey(m.Tx)] = struct{}{}
		}
	}
	return nil
}

func (r *memoryRepository) Transactions(_ context.Context, walletID string, limit int) ([]Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.wallets[walletID]; !ok {
		return nil, ErrNotFound
	}
	if limit <= 0 {
		limit = 50
	}

	rows := r.history[walletID]
	out := make([]Transaction, 0, limit)
	for i := len(rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, rows[i])
	}
	return out, nil
}

func (r *memoryRepository) Aggregate(_ context.Context) (Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var s Stats
	for _, w := range r.wallets {
		s.TotalWallets++
		s.TotalBalance += w.Balance
	}
	for _, rows := range r.history {
		s.TotalTransactions += int64(len(rows))
	}
	return s, nil
}
