package infra

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema holds the DDL for the wallet service. Statements are idempotent so
// the migrate command can be re-run safely.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id          UUID PRIMARY KEY,
    email       TEXT NOT NULL,
    kind        TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS wallets (
    id            UUID PRIMARY KEY,
    owner_id      UUID NOT NULL,
    owner_kind    TEXT NOT NULL,
    balance       BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
    status        TEXT NOT NULL DEFAULT 'active',
    frozen_reason TEXT NOT NULL DEFAULT '',
    version       BIGINT NOT NULL DEFAULT 1,
    created_at    TIMESTAMPTZ NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL,
    UNIQUE (owner_id, owner_kind)
);

CREATE TABLE IF NOT EXISTS transactions (
    id             UUID PRIMARY KEY,
    wallet_id      UUID NOT NULL REFERENCES wallets (id),
    type           TEXT NOT NULL,
    amount         BIGINT NOT NULL CHECK (amount >= 0),
    balance_before BIGINT NOT NULL,
    balance_after  BIGINT NOT NULL,
    reference_type TEXT NOT NULL DEFAULT '',
    reference_id   TEXT NOT NULL DEFAULT '',
    actor_id       TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL,
    description    TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS transactions_reference_uniq
    ON transactions (type, reference_type, reference_id)
    WHERE reference_id <> '';

CREATE INDEX IF NOT EXISTS transactions_wallet_created_idx
    ON transactions (wallet_id, created_at DESC);

CREATE TABLE IF NOT EXISTS recharge_requests (
    id               UUID PRIMARY KEY,
    wallet_id        UUID NOT NULL REFERENCES wallets (id),
    requested_amount BIGINT NOT NULL CHECK (requested_amount > 0),
    status           TEXT NOT NULL,
    gateway_order_id TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL,
    updated_at       TIMESTAMPTZ NOT NULL
);
`

// Migrate applies the schema to the connected database.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, Schema)
	return err
}
