package usage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionchat/internal/config"
	"visionchat/internal/models"
	"visionchat/internal/storage"
)

func newTestRecorder(t *testing.T) *SQLRecorder {
	t.Helper()
	db, err := storage.Open(config.DatabaseConfig{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.Migrate(db, "sqlite3"))
	rec, err := NewSQLRecorder(db)
	require.NoError(t, err)
	return rec
}

func TestRecordAndSummary(t *testing.T) {
	ctx := context.Background()
	rec := newTestRecorder(t)

	entries := []models.UsageRecord{
		{SessionID: "a", App: "health", HasImage: true, Outcome: models.OutcomeOK, DurationMS: 1200},
		{SessionID: "a", App: "health", Outcome: models.OutcomeWarning},
		{SessionID: "b", App: "chat", HasText: true, Streamed: true, Outcome: models.OutcomeOK},
		{SessionID: "b", App: "chat", HasText: true, Streamed: true, Outcome: models.OutcomeError, Error: "upstream 503"},
		{SessionID: "c", App: "chat", HasText: true, Outcome: models.OutcomeOK},
	}
	for _, e := range entries {
		require.NoError(t, rec.Record(ctx, e))
	}

	summary, err := rec.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.UsageSummary{
		{App: "chat", Outcome: models.OutcomeError, Count: 1},
		{App: "chat", Outcome: models.OutcomeOK, Count: 2},
		{App: "health", Outcome: models.OutcomeOK, Count: 1},
		{App: "health", Outcome: models.OutcomeWarning, Count: 1},
	}, summary)
}

func TestRecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	rec := newTestRecorder(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, app := range []string{"vision", "invoice", "chat"} {
		require.NoError(t, rec.Record(ctx, models.UsageRecord{
			SessionID: "s", App: app, Outcome: models.OutcomeOK,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	recent, err := rec.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "chat", recent[0].App)
	assert.Equal(t, "invoice", recent[1].App)
	assert.True(t, recent[0].CreatedAt.Equal(base.Add(2*time.Minute)))
}

func TestNopRecorder(t *testing.T) {
	var r Recorder = Nop{}
	require.NoError(t, r.Record(context.Background(), models.UsageRecord{}))
	s, err := r.Summary(context.Background())
	require.NoError(t, err)
	assert.Empty(t, s)
}
