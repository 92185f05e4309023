package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// migrateLockKey serialises migrations when the server and worker start together.
const migrateLockKey int64 = 0x70726f63

// Migrate applies idempotent DDL statements in a single transaction.
func Migrate(ctx context.Context, db TxStarter, statements ...string) error {
	return WithTx(ctx, db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrateLockKey); err != nil {
			return fmt.Errorf("platform/db: migrate lock: %w", err)
		}
		for i, stmt := range statements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("platform/db: migrate statement %d: %w", i+1, err)
			}
		}
		return nil
	})
}
