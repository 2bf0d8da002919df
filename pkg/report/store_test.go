package report

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"pubtools/pkg/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "reports", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreRecordsRun(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.BeginRun(ctx, "run-1", "/srv/res", started))

	rec := store.Recorder(ctx, "run-1")
	var obs core.Observer = rec
	obs.StageStarted(core.StageCompress)
	obs.FileCommitted(core.Event{Stage: core.StageCompress, Path: "a.json", Output: "a.json", Class: core.ClassJSON, BytesIn: 100, BytesOut: 40})
	obs.StageFinished(core.StageCompress, 1)
	obs.FileCommitted(core.Event{Stage: core.StageEncrypt, Path: "s/m.lua", Output: "s/m.luac", Class: core.ClassLua, BytesIn: 50, BytesOut: 52})
	require.NoError(t, rec.Err())

	require.NoError(t, store.FinishRun(ctx, "run-1", core.StateDone, nil))

	runs, err := store.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "/srv/res", runs[0].Root)
	assert.Equal(t, "done", runs[0].State)
	assert.True(t, runs[0].StartedAt.Equal(started))
	assert.False(t, runs[0].FinishedAt.IsZero())
	assert.Empty(t, runs[0].Error)
	assert.Equal(t, 2, runs[0].Files)

	transforms, err := store.Transforms(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, transforms, 2)
	assert.Equal(t, Transform{RunID: "run-1", Stage: "compress", Path: "a.json", Output: "a.json", Class: "json", BytesIn: 100, BytesOut: 40}, transforms[0])
	assert.Equal(t, "s/m.luac", transforms[1].Output)
	assert.Equal(t, "encrypt", transforms[1].Stage)
}

func TestStoreAbortedRunKeepsError(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.BeginRun(ctx, "run-2", "res", time.Now()))
	require.NoError(t, store.FinishRun(ctx, "run-2", core.StateAborted, errors.New("encryption failed: b.png")))

	runs, err := store.Runs(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "aborted", runs[0].State)
	assert.Equal(t, "encryption failed: b.png", runs[0].Error)
	assert.Zero(t, runs[0].Files)
}

func TestStoreFinishUnknownRun(t *testing.T) {
	store := openTestStore(t)
	assert.Error(t, store.FinishRun(context.Background(), "nope", core.StateDone, nil))
}

func TestRecorderKeepsFirstError(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	// No matching run row, so the foreign key rejects the insert.
	rec := store.Recorder(ctx, "missing-run")
	rec.FileCommitted(core.Event{Stage: core.StageCompress, Path: "a.json"})
	rec.FileCommitted(core.Event{Stage: core.StageCompress, Path: "b.json"})

	err := rec.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.json")
}

func TestOpenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	first, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.BeginRun(ctx, "run-1", "res", time.Now()))
	require.NoError(t, first.Close())

	second, err := Open(ctx, path)
	require.NoError(t, err)
	defer second.Close()
	runs, err := second.Runs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
