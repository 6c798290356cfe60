package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ffkit-console/session"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func snapshot(id int64, created time.Time) session.Snapshot {
	return session.Snapshot{
		ID:         id,
		Kind:       session.KindFFmpeg,
		Command:    "-hide_banner -y -i in.wav out.ogg",
		State:      session.StateCompleted,
		ReturnCode: session.ReturnCodeSuccess,
		CreateTime: created,
		StartTime:  created.Add(10 * time.Millisecond),
		EndTime:    created.Add(2 * time.Second),
		LogLines:   42,
	}
}

func TestOpen_AssignsRunID(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "history.db"))
	_, err := uuid.Parse(s.RunID())
	assert.NoError(t, err)
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "nested", "history.db"))
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, s.Record(ctx, snapshot(i, base.Add(time.Duration(i)*time.Minute))))
	}

	entries, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(3), entries[0].ID)
	assert.Equal(t, int64(2), entries[1].ID)

	got := entries[0]
	want := snapshot(3, base.Add(3*time.Minute))
	assert.Equal(t, s.RunID(), got.RunID)
	assert.Equal(t, want.Kind, got.Kind)
	assert.Equal(t, want.Command, got.Command)
	assert.Equal(t, want.State, got.State)
	assert.Equal(t, want.ReturnCode, got.ReturnCode)
	assert.Equal(t, want.LogLines, got.LogLines)
	assert.WithinDuration(t, want.CreateTime, got.CreateTime, time.Millisecond)
	assert.WithinDuration(t, want.EndTime, got.EndTime, time.Millisecond)
	assert.Equal(t, want.Duration(), got.Duration().Round(time.Millisecond))
}

func TestRecord_ReplacesSameSession(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "history.db"))
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	running := snapshot(1, created)
	running.State = session.StateRunning
	running.ReturnCode = session.ReturnCodeUnset
	running.EndTime = time.Time{}
	require.NoError(t, s.Record(ctx, running))
	require.NoError(t, s.Record(ctx, snapshot(1, created)))

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, session.StateCompleted, entries[0].State)
}

func TestRecord_NeverStartedSession(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "history.db"))
	ctx := context.Background()

	snap := session.Snapshot{
		ID:             7,
		Kind:           session.KindFFprobe,
		Command:        "-v error missing.mp4",
		State:          session.StateFailed,
		ReturnCode:     session.ReturnCodeUnset,
		FailStackTrace: "exec: \"ffprobe\": executable file not found in $PATH",
		CreateTime:     time.Now().UTC(),
	}
	require.NoError(t, s.Record(ctx, snap))

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].StartTime.IsZero())
	assert.True(t, entries[0].EndTime.IsZero())
	assert.Equal(t, snap.FailStackTrace, entries[0].FailStackTrace)
	assert.Equal(t, session.ReturnCodeUnset, entries[0].ReturnCode)
}

func TestReopenKeepsEarlierRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	first, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Record(ctx, snapshot(1, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))))
	firstRun := first.RunID()
	require.NoError(t, first.Close())

	second := openTestStore(t, path)
	assert.NotEqual(t, firstRun, second.RunID())
	require.NoError(t, second.Record(ctx, snapshot(1, time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC))))

	entries, err := second.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, second.RunID(), entries[0].RunID)
	assert.Equal(t, firstRun, entries[1].RunID)
}

func TestRecentPreviousSkipsCurrentRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	first, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Record(ctx, snapshot(4, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))))
	firstRun := first.RunID()
	require.NoError(t, first.Close())

	second := openTestStore(t, path)
	require.NoError(t, second.Record(ctx, snapshot(1, time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC))))

	entries, err := second.RecentPrevious(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, firstRun, entries[0].RunID)
	assert.Equal(t, int64(4), entries[0].ID)
}

func TestRecentPreviousEmptyOnFirstRun(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "history.db"))
	ctx := context.Background()
	require.NoError(t, s.Record(ctx, snapshot(1, time.Now().UTC())))

	entries, err := s.RecentPrevious(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStoreIsRecorder(t *testing.T) {
	var _ session.Recorder = (*Store)(nil)
}
