package recharge

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists recharge requests. Status moves only through
// compare-and-swap transitions so concurrent callbacks cannot both win.
type Repository interface {
	Create(ctx context.Context, req Request) error
	Get(ctx context.Context, id string) (Request, error)
	// Transition moves the request from one status to another, recording the
	// gateway order id when provided. It fails with ErrStateConflict if the
	// stored status no longer matches from.
	Transition(ctx context.Context, id, from, to, gatewayOrderID string) error
}

// PostgresRepository stores recharge requests in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed recharge repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new recharge request.
func (r *PostgresRepository) Create(ctx context.Context, req Request) error {
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return err
	}
	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO recharge_requests
        (id, wallet_id, requested_amount, status, gateway_order_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		id, walletID, req.Amount, req.Status, req.GatewayOrderID, req.CreatedAt.UTC())
	return err
}

// Get fetches a recharge request by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Request, error) {
	reqID, err := uuid.Parse(id)
	if err != nil {
		return Request{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, wallet_id, requested_amount, status, gateway_order_id, created_at, updated_at
        FROM recharge_requests WHERE id = $1`, reqID)

	var req Request
	var rid, wid uuid.UUID
	var createdAt, updatedAt time.Time
	if err := row.Scan(&rid, &wid, &req.Amount, &req.Status, &req.GatewayOrderID, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrNotFound
		}
		return Request{}, err
	}
	req.ID = rid.String()
	req.WalletID = wid.String()
	req.CreatedAt = createdAt.UTC()
	req.UpdatedAt = updatedAt.UTC()
	return req, nil
}

// Transition performs the status compare-and-swap.
func (r *PostgresRepository) Transition(ctx context.Context, id, from, to, gatewayOrderID string) error {
	reqID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}

	var tag int64
	if gatewayOrderID != "" {
		t, err := r.db.Exec(ctx, `UPDATE recharge_requests
            SET status = $1, gateway_order_id = $2, updated_at = $3
            WHERE id = $4 AND status = $5`, to, gatewayOrderID, time.Now().UTC(), reqID, from)
		if err != nil {
			return err
		}
		tag = t.RowsAffected()
	} else {
		t, err := r.db.Exec(ctx, `UPDATE recharge_requests
            SET status = $1, updated_at = $2
            WHERE id = $3 AND status = $4`, to, time.Now().UTC(), reqID, from)
		if err != nil {
			return err
		}
		tag = t.RowsAffected()
	}

	if tag != 1 {
		return ErrStateConflict
	}
	return nil
}
