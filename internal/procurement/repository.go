package procurement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/procureflow/procureflow/internal/platform/db"
)

// Schema creates the snapshot table.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS workflow_snapshots (
	id BIGSERIAL PRIMARY KEY,
	taken_at TIMESTAMPTZ NOT NULL,
	payload JSONB NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS workflow_snapshots_taken_at_idx ON workflow_snapshots (taken_at DESC)`,
}

// DefaultSnapshotRetention is how many snapshots Save keeps.
const DefaultSnapshotRetention = 20

// Repository provides PostgreSQL backed snapshot persistence.
type Repository struct {
	pool   *pgxpool.Pool
	retain int
}

// NewRepository constructs a repository keeping the newest retain snapshots.
func NewRepository(pool *pgxpool.Pool, retain int) *Repository {
	if retain <= 0 {
		retain = DefaultSnapshotRetention
	}
	return &Repository{pool: pool, retain: retain}
}

// Save writes snap and prunes old rows in one transaction.
func (r *Repository) Save(ctx context.Context, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("procurement: encode snapshot: %w", err)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO workflow_snapshots (taken_at, payload) VALUES ($1, $2)`, snap.TakenAt, payload); err != nil {
			return fmt.Errorf("procurement: insert snapshot: %w", err)
		}
		_, err := tx.Exec(ctx, `DELETE FROM workflow_snapshots WHERE id NOT IN (
	SELECT id FROM workflow_snapshots ORDER BY id DESC LIMIT $1
)`, r.retain)
		if err != nil {
			return fmt.Errorf("procurement: prune snapshots: %w", err)
		}
		return nil
	})
}

// Latest loads the newest snapshot or ErrNotFound.
func (r *Repository) Latest(ctx context.Context) (Snapshot, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `SELECT payload FROM workflow_snapshots ORDER BY id DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("procurement: decode snapshot: %w", err)
	}
	return snap, nil
}
