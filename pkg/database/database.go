package database

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPool(dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, err
	}

	log.Println("Database connected successfully")

	return pool, nil
}

// EnsureSchema creates the tables the service needs if they do not exist.
// The unique constraint on users.login is what actually guarantees that
// concurrent duplicate registrations cannot both succeed.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			first_name VARCHAR(64) NOT NULL,
			last_name VARCHAR(64) NOT NULL,
			login VARCHAR(64) NOT NULL UNIQUE,
			password_hash VARCHAR(128) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS checks (
			id BIGSERIAL PRIMARY KEY,
			type VARCHAR(16) NOT NULL,
			amount NUMERIC(10,2) NOT NULL,
			total NUMERIC(10,2) NOT NULL,
			rest NUMERIC(10,2) NOT NULL,
			public_uuid UUID NOT NULL UNIQUE,
			user_id BIGINT NOT NULL REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS check_items (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(128) NOT NULL,
			price NUMERIC(10,2) NOT NULL,
			quantity INT NOT NULL,
			total NUMERIC(10,2) NOT NULL,
			check_id BIGINT NOT NULL REFERENCES checks(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_checks_user_id ON checks(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_checks_created_at ON checks(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_check_items_check_id ON check_items(check_id)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
