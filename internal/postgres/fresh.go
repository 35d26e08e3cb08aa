package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var resetStatements = []string{
	`drop schema if exists public cascade`,
	`create schema public`,
	`grant all on schema public to public`,
	`grant all on schema public to current_user`,
}

// ResetSchema drops and recreates the public schema. The CLI only allows it in
// development.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reset schema: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, stmt := range resetStatements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("reset schema (%s): %w", stmt, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reset schema: %w", err)
	}
	return nil
}
