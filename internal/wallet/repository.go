package wallet

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Mutation is one prepared wallet write: the new balance/status, the version
// the write was computed against, and the single ledger row it produces.
// Repositories commit mutations atomically and reject stale versions.
type Mutation struct {
	WalletID     string
	Version      int64
	Balance      int64
	Status       string
	FrozenReason string
	Tx           Transaction
}

// Repository persists wallets and their append-only transaction history.
type Repository interface {
	GetOrCreate(ctx context.Context, ownerID, ownerKind string) (Wallet, error)
	Get(ctx context.Context, id string) (Wallet, error)
	GetByOwner(ctx context.Context, ownerID, ownerKind string) (Wallet, error)
	// Commit applies the given mutations as one atomic unit. Every mutation's
	// version must still match the stored wallet or the whole commit fails
	// with ErrVersionConflict. A transaction whose (type, reference) already
	// exists fails the commit with ErrDuplicateTransaction.
	Commit(ctx context.Context, muts ...Mutation) error
	// Transactions lists the wallet's ledger rows newest first, or
	// ErrNotFound when the wallet does not exist.
	Transactions(ctx context.Context, walletID string, limit int) ([]Transaction, error)
	Aggregate(ctx context.Context) (Stats, error)
}

// PostgresRepository stores wallets and transactions in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const walletColumns = `id, owner_id, owner_kind, balance, status, frozen_reason, version, created_at, updated_at`

// GetOrCreate returns the owner's wallet, creating it with a zero balance on
// first reference. The (owner_id, owner_kind) unique constraint makes the
// create race-free.
func (r *PostgresRepository) GetOrCreate(ctx context.Context, ownerID, ownerKind string) (Wallet, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return Wallet{}, fmt.Errorf("%w: bad owner id", ErrNotFound)
	}
	now := time.Now().UTC()
	_, err = r.db.Exec(ctx, `INSERT INTO wallets (id, owner_id, owner_kind, balance, status, frozen_reason, version, created_at, updated_at)
        VALUES ($1, $2, $3, 0, $4, '', 1, $5, $5)
        ON CONFLICT (owner_id, owner_kind) DO NOTHING`, uuid.New(), owner, ownerKind, StatusActive, now)
	if err != nil {
		return Wallet{}, err
	}
	return r.GetByOwner(ctx, ownerID, ownerKind)
}

// Get fetches a wallet by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Wallet, error) {
	walletID, err := uuid.Parse(id)
	if err != nil {
		return Wallet{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, walletID)
	return scanWallet(row)
}

// GetByOwner fetches a wallet by its owner reference.
func (r *PostgresRepository) GetByOwner(ctx context.Context, ownerID, ownerKind string) (Wallet, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return Wallet{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE owner_id = $1 AND owner_kind = $2`, owner, ownerKind)
	return scanWallet(row)
}

// Commit applies all mutations inside one database transaction. Wallet rows
// are locked in ascending id order so concurrent transfers over the same pair
// cannot deadlock.
func (r *PostgresRepository) Commit(ctx context.Context, muts ...Mutation) error {
	if len(muts) == 0 {
		return nil
	}

	ordered := make([]Mutation, len(muts))
	copy(ordered, muts)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].WalletID < ordered[j].WalletID })

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	for _, m := range ordered {
		walletID, err := uuid.Parse(m.WalletID)
		if err != nil {
			return ErrNotFound
		}

		var locked uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM wallets WHERE id = $1 FOR UPDATE`, walletID).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		tag, err := tx.Exec(ctx, `UPDATE wallets
            SET balance = $1, status = $2, frozen_reason = $3, version = version + 1, updated_at = $4
            WHERE id = $5 AND version = $6`,
			m.Balance, m.Status, m.FrozenReason, time.Now().UTC(), walletID, m.Version)
		if err != nil {
			return err
		}
		if tag.RowsAffected() != 1 {
			return ErrVersionConflict
		}

		if err := insertTransaction(ctx, tx, m.Tx); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func insertTransaction(ctx context.Context, tx pgx.Tx, t Transaction) error {
	txID, err := uuid.Parse(t.ID)
	if err != nil {
		return fmt.Errorf("bad transaction id: %w", err)
	}
	walletID, err := uuid.Parse(t.WalletID)
	if err != nil {
		return fmt.Errorf("bad wallet id: %w", err)
	}
	_, err = tx.Exec(ctx, `INSERT INTO transactions
        (id, wallet_id, type, amount, balance_before, balance_after, reference_type, reference_id, actor_id, status, description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		txID, walletID, t.Type, t.Amount, t.BalanceBefore, t.BalanceAfter,
		t.ReferenceType, t.ReferenceID, t.ActorID, t.Status, t.Description, t.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateTransaction
		}
		return err
	}
	return nil
}

// Transactions returns the wallet's ledger rows, newest first. An unknown
// wallet yields ErrNotFound rather than an empty page.
func (r *PostgresRepository) Transactions(ctx context.Context, walletID string, limit int) ([]Transaction, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return nil, ErrNotFound
	}
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wallets WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT id, wallet_id, type, amount, balance_before, balance_after,
            reference_type, reference_id, actor_id, status, description, created_at
        FROM transactions WHERE wallet_id = $1
        ORDER BY created_at DESC, id DESC LIMIT $2`, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		var txID, wID uuid.UUID
		var createdAt time.Time
		if err := rows.Scan(&txID, &wID, &t.Type, &t.Amount, &t.BalanceBefore, &t.BalanceAfter,
			&t.ReferenceType, &t.ReferenceID, &t.ActorID, &t.Status, &t.Description, &createdAt); err != nil {
			return nil, err
		}
		t.ID = txID.String()
		t.WalletID = wID.String()
		t.CreatedAt = createdAt.UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

// Aggregate scans the wallet and transaction tables for the dashboard projection.
func (r *PostgresRepository) Aggregate(ctx context.Context) (Stats, error) {
	var s Stats
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(balance), 0) FROM wallets`).
		Scan(&s.TotalWallets, &s.TotalBalance); err != nil {
		return Stats{}, err
	}
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&s.TotalTransactions); err != nil {
		return Stats{}, err
	}
	return s, nil
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var w Wallet
	var id, owner uuid.UUID
	var createdAt, updatedAt time.Time
	err := row.Scan(&id, &owner, &w.OwnerKind, &w.Balance, &w.Status, &w.FrozenReason, &w.Version, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}
	w.ID = id.String()
	w.OwnerID = owner.String()
	w.CreatedAt = createdAt.UTC()
	w.UpdatedAt = updatedAt.UTC()
	return w, nil
}
