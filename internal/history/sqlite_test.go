package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s := NewSQLiteStore(&Config{
		Type:             "sqlite",
		ConnectionString: filepath.Join(t.TempDir(), "history.db"),
	})
	require.NoError(t, s.Connect())
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })

	return s
}

func sampleAlert(id string, firedAt time.Time) *FiredAlert {
	return &FiredAlert{
		ID:               id,
		NotificationID:   "n-" + id,
		NotificationName: "cpu high",
		UserID:           "u1",
		ChatAddress:      "chat-1",
		Operator:         ">",
		Threshold:        90,
		Value:            95.5,
		FiredAt:          firedAt,
		Delivered:        true,
	}
}

func TestSQLiteRecordAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	firedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.RecordFired(ctx, sampleAlert("a1", firedAt)))

	alerts, err := s.ListFired(ctx, 10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	got := alerts[0]
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, "n-a1", got.NotificationID)
	assert.Equal(t, "cpu high", got.NotificationName)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "chat-1", got.ChatAddress)
	assert.Equal(t, ">", got.Operator)
	assert.Equal(t, 90.0, got.Threshold)
	assert.Equal(t, 95.5, got.Value)
	assert.True(t, got.Delivered)
	assert.WithinDuration(t, firedAt, got.FiredAt, time.Second)
}

func TestSQLiteListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		a := sampleAlert(fmt.Sprintf("a%d", i), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, s.RecordFired(ctx, a))
	}

	alerts, err := s.ListFired(ctx, 3)
	require.NoError(t, err)
	require.Len(t, alerts, 3)
	assert.Equal(t, "a4", alerts[0].ID)
	assert.Equal(t, "a3", alerts[1].ID)
	assert.Equal(t, "a2", alerts[2].ID)
}

func TestSQLiteCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	count, err := s.CountFired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	require.NoError(t, s.RecordFired(ctx, sampleAlert("a1", time.Now().UTC())))
	require.NoError(t, s.RecordFired(ctx, sampleAlert("a2", time.Now().UTC())))

	count, err = s.CountFired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSQLiteCleanup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := sampleAlert("old", time.Now().UTC().AddDate(0, 0, -30))
	fresh := sampleAlert("fresh", time.Now().UTC())
	require.NoError(t, s.RecordFired(ctx, old))
	require.NoError(t, s.RecordFired(ctx, fresh))

	deleted, err := s.Cleanup(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	alerts, err := s.ListFired(ctx, 10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "fresh", alerts[0].ID)
}

func TestSQLiteCleanupDisabledRetention(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordFired(ctx, sampleAlert("a1", time.Now().UTC().AddDate(0, 0, -365))))

	deleted, err := s.Cleanup(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	count, err := s.CountFired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestHistoryFactory(t *testing.T) {
	s, err := New(&Config{Type: "sqlite", ConnectionString: "x.db"})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)

	s, err = New(&Config{Type: "postgres", ConnectionString: "postgres://localhost/x"})
	require.NoError(t, err)
	assert.IsType(t, &PostgresStore{}, s)

	_, err = New(&Config{Type: "mysql"})
	assert.Error(t, err)
}
