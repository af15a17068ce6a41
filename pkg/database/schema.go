package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The app owns its schema; Migrate runs at startup and is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          BIGSERIAL PRIMARY KEY,
		email       TEXT NOT NULL UNIQUE,
		name        TEXT NOT NULL DEFAULT '',
		cell        TEXT NOT NULL DEFAULT '',
		is_verified BOOLEAN NOT NULL DEFAULT false,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS verification_codes (
		email      TEXT PRIMARY KEY,
		code_hash  TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS food_orders (
		id         BIGSERIAL PRIMARY KEY,
		owner_id   BIGINT NOT NULL REFERENCES users(id),
		restaurant TEXT NOT NULL,
		expiration TIMESTAMPTZ NOT NULL,
		loc        TEXT NOT NULL,
		is_open    BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS order_members (
		id        BIGSERIAL PRIMARY KEY,
		order_id  BIGINT NOT NULL REFERENCES food_orders(id) ON DELETE CASCADE,
		user_id   BIGINT NOT NULL REFERENCES users(id),
		joined_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (order_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_food_orders_expiration ON food_orders (expiration) WHERE is_open`,
	`CREATE INDEX IF NOT EXISTS idx_order_members_order ON order_members (order_id, joined_at, id)`,
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
