package sessionstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/parley/pkg/api"
)

func testSnapshot() Snapshot {
	limit := 2
	return Snapshot{
		Status:    "meet",
		SessionID: "s-1",
		UserID:    "u-1",
		TopicID:   "t-1",
		Transcript: []api.Message{
			{Sender: "interviewer", Text: "What is a goroutine?"},
			{Sender: "user", Text: "A lightweight thread."},
		},
		ActiveQuestion:   &api.Question{ID: "q-1", TopicID: "t-1", Text: "What is a goroutine?", TimeMinutes: &limit},
		ActiveQuestionID: "q-1",
		QuestionPool:     []api.Question{{ID: "q-1", TopicID: "t-1", Text: "What is a goroutine?", TimeMinutes: &limit}},
		Timer:            TimerState{IsActive: true, RemainingSeconds: 73, LimitMinutes: 2},
		SavedAtMs:        time.Now().UnixMilli(),
	}
}

func TestSQLiteStore_SaveLoadClear(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "parley.db")
	s, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	_, ok, err := s.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	snap := testSnapshot()
	require.NoError(t, s.Save(ctx, snap))

	loaded, ok, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, snap.SessionID, loaded.SessionID)
	require.Equal(t, snap.Transcript, loaded.Transcript)
	require.Equal(t, 73, loaded.Timer.RemainingSeconds)
	require.True(t, loaded.Timer.IsActive)
	require.NotNil(t, loaded.ActiveQuestion)
	require.Equal(t, "q-1", loaded.ActiveQuestion.ID)

	// Second save overwrites, never merges.
	snap.Timer.RemainingSeconds = 5
	snap.Transcript = snap.Transcript[:1]
	require.NoError(t, s.Save(ctx, snap))
	loaded, ok, err = s.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 5, loaded.Timer.RemainingSeconds)
	require.Len(t, loaded.Transcript, 1)

	require.NoError(t, s.Clear(ctx))
	_, ok, err = s.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSQLiteStore_CorruptPayloadIsAbsence(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "parley.db")
	s, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	_, err = s.db.ExecContext(ctx, `INSERT INTO session_snapshot (id, payload, saved_at_ms) VALUES (1, 'not json', 0)`)
	require.NoError(t, err)

	_, ok, err := s.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// The corrupt row was dropped; the store starts fresh.
	_, ok, err = s.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInMemoryStore_RoundTrip(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	_, ok, err := s.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	snap := testSnapshot()
	require.NoError(t, s.Save(ctx, snap))
	loaded, ok, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, snap, loaded)

	require.NoError(t, s.Clear(ctx))
	_, ok, err = s.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSQLiteStore_PendingSummarySurvivesSnapshotClear(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "parley.db")
	s, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	summary := &api.Summary{
		TechnicalScore:   7,
		GrammaticalScore: 8,
		StrongPoints:     []string{"clear explanations"},
		WeakPoints:       []string{"missed edge cases"},
	}
	require.NoError(t, s.Save(ctx, testSnapshot()))
	require.NoError(t, s.SavePendingSummary(ctx, "s-1", summary))

	require.NoError(t, s.Clear(ctx))
	loaded, ok, err := s.LoadPendingSummary(ctx, "s-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, summary, loaded)

	require.NoError(t, s.ClearPendingSummary(ctx, "s-1"))
	_, ok, err = s.LoadPendingSummary(ctx, "s-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInMemoryStore_PendingSummary(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	_, ok, err := s.LoadPendingSummary(ctx, "s-1")
	require.NoError(t, err)
	require.False(t, ok)

	summary := &api.Summary{TechnicalScore: 5, OffTopicCount: 2}
	require.NoError(t, s.SavePendingSummary(ctx, "s-1", summary))
	loaded, ok, err := s.LoadPendingSummary(ctx, "s-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, summary, loaded)

	require.Error(t, s.SavePendingSummary(ctx, "", summary))
	require.Error(t, s.SavePendingSummary(ctx, "s-1", nil))

	require.NoError(t, s.ClearPendingSummary(ctx, "s-1"))
	_, ok, err = s.LoadPendingSummary(ctx, "s-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSnapshot_Age(t *testing.T) {
	now := time.Now()
	snap := Snapshot{SavedAtMs: now.Add(-25 * time.Hour).UnixMilli()}
	require.Greater(t, snap.Age(now), 24*time.Hour)
	fresh := Snapshot{SavedAtMs: now.Add(-time.Minute).UnixMilli()}
	require.Less(t, fresh.Age(now), 24*time.Hour)
}
