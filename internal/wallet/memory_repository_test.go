package wallet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMemoryRepositoryVersionConflict(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	w, err := repo.GetOrCreate(ctx, uuid.NewString(), OwnerUser)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}

	mutation := func(ref string) Mutation {
		return Mutation{
			WalletID: w.ID,
			Version:  w.Version,
			Balance:  100,
			Status:   w.Status,
			Tx: Transaction{
				ID: uuid.NewString(), WalletID: w.ID, Type: TypeCredit, Amount: 100,
				BalanceAfter: 100, ReferenceType: RefAdminAction, ReferenceID: ref,
				Status: TxCompleted, CreatedAt: time.Now().UTC(),
			},
		}
	}

	// Two writers computed from the same snapshot: the second must lose.
	if err := repo.Commit(ctx, mutation(uuid.NewString())); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if err := repo.Commit(ctx, mutation(uuid.NewString())); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	got, err := repo.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Balance != 100 || got.Version != w.Version+1 {
		t.Fatalf("losing commit must not change state, got balance=%d version=%d", got.Balance, got.Version)
	}
}

func TestMemoryRepositoryCommitIsAllOrNothing(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	a, _ := repo.GetOrCreate(ctx, uuid.NewString(), OwnerUser)
	b, _ := repo.GetOrCreate(ctx, uuid.NewString(), OwnerUser)

	good := Mutation{
		WalletID: a.ID, Version: a.Version, Balance: 50, Status: a.Status,
		Tx: Transaction{ID: uuid.NewString(), WalletID: a.ID, Type: TypeTransferIn, Amount: 50,
			BalanceAfter: 50, ReferenceType: RefTransfer, ReferenceID: "ref-1", Status: TxCompleted, CreatedAt: time.Now().UTC()},
	}
	stale := Mutation{
		WalletID: b.ID, Version: b.Version + 7, Balance: 10, Status: b.Status,
		Tx: Transaction{ID: uuid.NewString(), WalletID: b.ID, Type: TypeTransferOut, Amount: 10,
			ReferenceType: RefTransfer, ReferenceID: "ref-1", Status: TxCompleted, CreatedAt: time.Now().UTC()},
	}

	if err := repo.Commit(ctx, good, stale); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	aAfter, _ := repo.Get(ctx, a.ID)
	if aAfter.Balance != 0 || aAfter.Version != a.Version {
		t.Fatalf("partial commit leaked: balance=%d version=%d", aAfter.Balance, aAfter.Version)
	}
	rows, err := repo.Transactions(ctx, a.ID, 10)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("partial commit appended %d ledger rows", len(rows))
	}
}

func TestMemoryRepositoryTransactionsNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	w, _ := repo.GetOrCreate(ctx, uuid.NewString(), OwnerUser)

	balance := int64(0)
	version := w.Version
	for i := 0; i < 5; i++ {
		balance += 10
		m := Mutation{
			WalletID: w.ID, Version: version, Balance: balance, Status: w.Status,
			Tx: Transaction{ID: uuid.NewString(), WalletID: w.ID, Type: TypeCredit, Amount: 10,
				BalanceBefore: balance - 10, BalanceAfter: balance, Status: TxCompleted,
				CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Millisecond)},
		}
		if err := repo.Commit(ctx, m); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
		version++
	}

	rows, err := repo.Transactions(ctx, w.ID, 3)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].BalanceAfter != 50 || rows[2].BalanceAfter != 30 {
		t.Fatalf("rows out of order: first after=%d last after=%d", rows[0].BalanceAfter, rows[2].BalanceAfter)
	}
}

func TestMemoryRepositoryAggregate(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	a, _ := repo.GetOrCreate(ctx, uuid.NewString(), OwnerUser)
	b, _ := repo.GetOrCreate(ctx, uuid.NewString(), OwnerAdmin)

	for _, seed := range []struct {
		w      Wallet
		amount int64
	}{{a, 120}, {b, 80}} {
		m := Mutation{
			WalletID: seed.w.ID, Version: seed.w.Version, Balance: seed.amount, Status: seed.w.Status,
			Tx: Transaction{ID: uuid.NewString(), WalletID: seed.w.ID, Type: TypeCredit, Amount: seed.amount,
				BalanceAfter: seed.amount, Status: TxCompleted, CreatedAt: time.Now().UTC()},
		}
		if err := repo.Commit(ctx, m); err != nil {
			t.Fatalf("seed commit: %v", err)
		}
	}

	stats, err := repo.Aggregate(ctx)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if stats.TotalWallets != 2 || stats.TotalBalance != 200 || stats.TotalTransactions != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestMemoryRepositoryTransactionsUnknownWallet(t *testing.T) {
	repo := NewMemoryRepository()

	if _, err := repo.Transactions(context.Background(), uuid.NewString(), 10); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an unknown wallet, got %v", err)
	}
}
