package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations is the ordered DDL applied at startup. Statements are
// idempotent so Apply can run on every boot. Amounts use NUMERIC(78,0),
// wide enough for 256-bit integers.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id              BIGSERIAL PRIMARY KEY,
		identity        TEXT NOT NULL UNIQUE,
		credential_hash TEXT NOT NULL,
		recovery_hash   TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS account_memos (
		memo       TEXT PRIMARY KEY,
		account_id BIGINT NOT NULL REFERENCES accounts(id),
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS balances (
		account_id   BIGINT NOT NULL,
		asset        TEXT NOT NULL,
		amount       NUMERIC(78,0) NOT NULL CHECK (amount >= 0),
		last_accrual TIMESTAMPTZ,
		updated_at   TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (account_id, asset)
	)`,
	`CREATE TABLE IF NOT EXISTS pools (
		pool       TEXT NOT NULL,
		asset      TEXT NOT NULL,
		amount     NUMERIC(78,0) NOT NULL CHECK (amount >= 0),
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (pool, asset)
	)`,
	`CREATE TABLE IF NOT EXISTS loans (
		id               BIGSERIAL PRIMARY KEY,
		account_id       BIGINT NOT NULL,
		principal        NUMERIC(78,0) NOT NULL CHECK (principal >= 0),
		collateral       NUMERIC(78,0) NOT NULL CHECK (collateral >= 0),
		principal_asset  TEXT NOT NULL,
		collateral_asset TEXT NOT NULL,
		status           TEXT NOT NULL,
		liquidated       BOOLEAN NOT NULL DEFAULT FALSE,
		originated_at    TIMESTAMPTZ NOT NULL,
		closed_at        TIMESTAMPTZ,
		updated_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS loans_one_open_per_account
		ON loans (account_id) WHERE status = 'open'`,
	`CREATE TABLE IF NOT EXISTS bridge_chains (
		domain        TEXT PRIMARY KEY,
		remote_bridge TEXT NOT NULL,
		enabled       BOOLEAN NOT NULL,
		registered_at TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bridge_pending_transfers (
		id             TEXT PRIMARY KEY,
		sender_id      BIGINT NOT NULL,
		asset          TEXT NOT NULL,
		amount         NUMERIC(78,0) NOT NULL CHECK (amount >= 0),
		target_domain  TEXT NOT NULL,
		target_address TEXT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL,
		processed      BOOLEAN NOT NULL DEFAULT FALSE,
		processed_at   TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS bridge_processed_remote (
		tx_id        TEXT PRIMARY KEY,
		processed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS system_singletons (
		name       TEXT PRIMARY KEY,
		payload    JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

// ApplyMigrations executes the schema migrations in order.
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
