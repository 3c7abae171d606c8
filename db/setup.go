package db

import (
	"context"
	"database/sql"
	"fmt"
)

// statements выполняются по порядку при старте. Все операторы идемпотентны.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            SERIAL PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'user',
		referral_code TEXT NOT NULL UNIQUE,
		referred_by   INTEGER REFERENCES users(id),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS wallets (
		user_id INTEGER PRIMARY KEY REFERENCES users(id),
		balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS wallet_transactions (
		id         SERIAL PRIMARY KEY,
		user_id    INTEGER NOT NULL REFERENCES users(id),
		direction  TEXT NOT NULL CHECK (direction IN ('credit', 'debit')),
		amount     BIGINT NOT NULL CHECK (amount > 0),
		note       TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS wallet_transactions_user_id_idx ON wallet_transactions (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS admin_deposits (
		id                  SERIAL PRIMARY KEY,
		external_txn_id     TEXT NOT NULL,
		normalized_txn_id   TEXT NOT NULL UNIQUE,
		amount              BIGINT NOT NULL CHECK (amount > 0),
		note                TEXT NOT NULL DEFAULT '',
		status              TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'claimed')),
		registered_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		claimed_at          TIMESTAMPTZ,
		claimed_by_user_id  INTEGER REFERENCES users(id),
		claimed_by_username TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS withdrawals (
		id             SERIAL PRIMARY KEY,
		reference      TEXT NOT NULL UNIQUE,
		user_id        INTEGER NOT NULL REFERENCES users(id),
		username       TEXT NOT NULL,
		amount         BIGINT NOT NULL CHECK (amount > 0),
		payout_address TEXT NOT NULL,
		status         TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'paid')),
		requested_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		processed_at   TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS tournaments (
		id                SERIAL PRIMARY KEY,
		name              TEXT NOT NULL,
		description       TEXT,
		mode              TEXT NOT NULL CHECK (mode IN ('solo', 'duo', 'squad', 'custom')),
		map_name          TEXT,
		start_at          TEXT NOT NULL DEFAULT '',
		entry_fee         BIGINT NOT NULL DEFAULT 0 CHECK (entry_fee >= 0),
		prize_pool        BIGINT NOT NULL DEFAULT 0,
		max_slots         INTEGER NOT NULL CHECK (max_slots > 0),
		manual_sold_slots INTEGER NOT NULL DEFAULT 0 CHECK (manual_sold_slots >= 0),
		booked_slots      INTEGER NOT NULL DEFAULT 0,
		status            TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'full', 'completed')),
		room_id           TEXT,
		room_pass         TEXT,
		banner_key        TEXT,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id            SERIAL PRIMARY KEY,
		tournament_id INTEGER NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
		user_id       INTEGER NOT NULL REFERENCES users(id),
		username      TEXT NOT NULL,
		player_name   TEXT NOT NULL,
		team_members  TEXT[] NOT NULL,
		slot_number   INTEGER NOT NULL CHECK (slot_number > 0),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (tournament_id, slot_number)
	)`,
	`CREATE TABLE IF NOT EXISTS booking_members (
		booking_id    INTEGER NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
		tournament_id INTEGER NOT NULL,
		name_key      TEXT NOT NULL,
		UNIQUE (tournament_id, name_key)
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id         SERIAL PRIMARY KEY,
		user_id    INTEGER NOT NULL REFERENCES users(id),
		type       TEXT NOT NULL,
		title      TEXT NOT NULL,
		body       TEXT NOT NULL DEFAULT '',
		read       BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS notifications_user_id_idx ON notifications (user_id, created_at DESC)`,
}

// Setup создаёт недостающие таблицы и индексы.
func Setup(ctx context.Context, db *sql.DB) error {
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
