package procurement

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procureflow/procureflow/internal/platform/db"
)

func newTestRepository(t *testing.T, retain int) *Repository {
	t.Helper()
	dsn := os.Getenv("PROCUREFLOW_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("PROCUREFLOW_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	pool, err := db.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(ctx, pool, Schema...))
	_, err = pool.Exec(ctx, `TRUNCATE workflow_snapshots`)
	require.NoError(t, err)
	return NewRepository(pool, retain)
}

func TestRepositoryLatestEmpty(t *testing.T) {
	repo := newTestRepository(t, 3)
	_, err := repo.Latest(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositorySaveLatestAndPrune(t *testing.T) {
	repo := newTestRepository(t, 2)
	ctx := context.Background()
	store := newTestStore(t, true)

	for i := 0; i < 3; i++ {
		snap := store.Snapshot()
		snap.TakenAt = time.Date(2024, 3, 15, 9, i, 0, 0, time.UTC)
		require.NoError(t, repo.Save(ctx, snap))
	}

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.TakenAt.Minute())
	assert.Len(t, latest.PurchaseOrders, len(store.ListPurchaseOrders("")))

	var rows int
	require.NoError(t, repo.pool.QueryRow(ctx, `SELECT COUNT(*) FROM workflow_snapshots`).Scan(&rows))
	assert.Equal(t, 2, rows)

	restored := NewStore()
	require.NoError(t, restored.Restore(latest))
	assert.Equal(t, store.Counts(), restored.Counts())
}
