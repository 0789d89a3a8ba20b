package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations creates the database schema.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS roles (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			role_id INTEGER NOT NULL REFERENCES roles(id)
		)`,

		`CREATE TABLE IF NOT EXISTS statuses (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,

		`CREATE TABLE IF NOT EXISTS types (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,

		`CREATE TABLE IF NOT EXISTS reimbursements (
			id SERIAL PRIMARY KEY,
			amount DECIMAL(12, 2) NOT NULL,
			submitted TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			resolved TIMESTAMPTZ,
			description TEXT NOT NULL,
			author_id INTEGER NOT NULL REFERENCES users(id),
			resolver_id INTEGER REFERENCES users(id),
			status_id INTEGER NOT NULL REFERENCES statuses(id),
			type_id INTEGER NOT NULL REFERENCES types(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_reimbursements_author_id ON reimbursements(author_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reimbursements_status_id ON reimbursements(status_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reimbursements_type_id ON reimbursements(type_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reimbursements_submitted ON reimbursements(submitted)`,
	}

	for i, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

// SeedLookups inserts the role, status and type lookup rows the lifecycle
// depends on. Safe to run repeatedly.
func SeedLookups(ctx context.Context, pool *pgxpool.Pool) error {
	seeds := map[string][]string{
		"roles":    {"admin", "manager", "employee"},
		"statuses": {"pending", "approved", "denied"},
		"types":    {"travel", "lodging", "food", "supplies", "other"},
	}

	for _, table := range []string{"roles", "statuses", "types"} {
		for _, name := range seeds[table] {
			_, err := pool.Exec(ctx,
				fmt.Sprintf(`INSERT INTO %s (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, table),
				name,
			)
			if err != nil {
				return fmt.Errorf("failed to seed %s %q: %w", table, name, err)
			}
		}
	}

	return nil
}
