package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procureflow/procureflow/internal/procurement"
)

type stubQueue struct {
	triggered []string
	closed    bool
}

func (q *stubQueue) Trigger(_ context.Context, name string) (*asynq.TaskInfo, error) {
	if _, err := taskFor(name); err != nil {
		return nil, err
	}
	q.triggered = append(q.triggered, name)
	return &asynq.TaskInfo{ID: "task-1", Type: name, Queue: "default"}, nil
}

func (q *stubQueue) InspectQueue(context.Context) (QueueStats, error) {
	return QueueStats{Queue: "default", Pending: 2}, nil
}

func (q *stubQueue) Close() error {
	q.closed = true
	return nil
}

func run(t *testing.T, deps Deps, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(deps)
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRouteCommand(t *testing.T) {
	out, err := run(t, Deps{}, "route", "25000")
	require.NoError(t, err)

	var routing procurement.Routing
	require.NoError(t, json.Unmarshal([]byte(out), &routing))
	assert.True(t, routing.DualApproval)
	assert.Equal(t, procurement.SignatoryFinanceAndMD, routing.Signatory)

	_, err = run(t, Deps{}, "route", "abc")
	assert.Error(t, err)
	_, err = run(t, Deps{}, "route", "-5")
	assert.Error(t, err)
}

func TestStockCheckUsesSampleDataWithoutDatabase(t *testing.T) {
	store := procurement.NewStore()
	require.NoError(t, procurement.SeedSampleData(store))
	name := store.ListInventory("")[0].Name

	out, err := run(t, Deps{}, "stock-check", "--name", name, "--qty", "1")
	require.NoError(t, err)
	var availability procurement.Availability
	require.NoError(t, json.Unmarshal([]byte(out), &availability))
	assert.NotNil(t, availability.Item)

	out, err = run(t, Deps{}, "stock-check", "--name", "Unobtainium", "--qty", "3")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &availability))
	assert.False(t, availability.Available)
	assert.Equal(t, procurement.ReasonNotInInventory, availability.Reason)

	_, err = run(t, Deps{}, "stock-check", "--qty", "3")
	assert.Error(t, err)
}

func TestSnapshotShowReadsSource(t *testing.T) {
	store := procurement.NewStore()
	require.NoError(t, procurement.SeedSampleData(store))
	snap := store.Snapshot()

	deps := Deps{Snapshots: func(context.Context) (procurement.Snapshot, error) { return snap, nil }}
	out, err := run(t, deps, "snapshot", "show")
	require.NoError(t, err)

	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.EqualValues(t, len(snap.MRFs), summary["mrfs"])
	assert.EqualValues(t, len(snap.Inventory), summary["inventory"])

	failing := Deps{Snapshots: func(context.Context) (procurement.Snapshot, error) {
		return procurement.Snapshot{}, procurement.ErrNotFound
	}}
	_, err = run(t, failing, "snapshot", "show")
	assert.ErrorIs(t, err, procurement.ErrNotFound)
}

func TestJobsCommands(t *testing.T) {
	queue := &stubQueue{}
	deps := Deps{Jobs: func() (JobQueue, error) { return queue, nil }}

	out, err := run(t, deps, "jobs", "trigger", "procurement:workflow-scan")
	require.NoError(t, err)
	assert.Contains(t, out, "enqueued procurement:workflow-scan id=task-1")
	assert.True(t, queue.closed)

	_, err = run(t, deps, "jobs", "trigger", "ledger:rebuild")
	assert.Error(t, err)

	out, err = run(t, deps, "jobs", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, `"pending": 2`)

	_, err = run(t, Deps{Jobs: func() (JobQueue, error) { return nil, errors.New("no redis") }}, "jobs", "stats")
	assert.EqualError(t, err, "no redis")
}
