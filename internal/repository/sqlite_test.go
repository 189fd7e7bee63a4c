package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/solace/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testRecord(recordID, sessionID string, start time.Time) *domain.SessionRecord {
	return &domain.SessionRecord{
		RecordID:   recordID,
		SessionID:  sessionID,
		OwnerID:    "u1",
		Emotion:    "anxiety",
		Intensity:  7,
		Status:     domain.SessionStatusEnded,
		StartTime:  start,
		EndTime:    start.Add(2 * time.Minute),
		DurationMs: 120000,
		Turns: []domain.Turn{
			{Timestamp: start.Add(time.Second), Role: domain.RoleUser, Content: "I feel overwhelmed"},
			{Timestamp: start.Add(2 * time.Second), Role: domain.RoleAssistant, Content: "Let's try a breathing exercise"},
		},
		Context:  domain.TherapeuticContext{PrimaryConcern: "anxiety management", SafetyLevel: domain.SafetyLevelStandard},
		Metadata: domain.Metadata{TotalMessages: 2, UserMessages: 1, AssistantMessages: 1, Sentiment: domain.SentimentNegative},
	}
}

func TestSaveAndGetSessionRecord(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	start := time.Now().Add(-time.Hour)

	require.NoError(t, store.SaveSessionRecord(ctx, testRecord("rec_1", "sess_1", start)))

	got, err := store.GetSessionRecord(ctx, "rec_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "sess_1", got.SessionID)
	assert.Equal(t, domain.SessionStatusEnded, got.Status)
	assert.Len(t, got.Turns, 2)
	assert.Equal(t, domain.RoleAssistant, got.Turns[1].Role)
	assert.Equal(t, "anxiety management", got.Context.PrimaryConcern)
	assert.Equal(t, 1, got.Metadata.UserMessages)
	assert.WithinDuration(t, start, got.StartTime, time.Millisecond)
	assert.False(t, got.CreatedAt.IsZero())

	missing, err := store.GetSessionRecord(ctx, "rec_missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSaveSessionRecordRejectsDuplicateSession(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	start := time.Now()

	require.NoError(t, store.SaveSessionRecord(ctx, testRecord("rec_1", "sess_1", start)))
	err := store.SaveSessionRecord(ctx, testRecord("rec_2", "sess_1", start))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestListSessionRecords(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	base := time.Now().Add(-3 * time.Hour)

	require.NoError(t, store.SaveSessionRecord(ctx, testRecord("rec_1", "sess_1", base)))
	require.NoError(t, store.SaveSessionRecord(ctx, testRecord("rec_2", "sess_2", base.Add(time.Hour))))

	records, err := store.ListSessionRecords(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "rec_2", records[0].RecordID)

	records, err = store.ListSessionRecords(ctx, "u1", 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	records, err = store.ListSessionRecords(ctx, "someone-else", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFindRecent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now()

	entries := []domain.HistoryEntry{
		{EntryID: "m1", OwnerID: "u1", Kind: domain.HistoryKindMood, Emotion: "anxiety", Intensity: 6, CreatedAt: now.Add(-48 * time.Hour)},
		{EntryID: "m2", OwnerID: "u1", Kind: domain.HistoryKindMood, Emotion: "sadness", Intensity: 4, CreatedAt: now.Add(-time.Hour)},
		{EntryID: "m3", OwnerID: "u1", Kind: domain.HistoryKindMood, Emotion: "anger", Intensity: 8, CreatedAt: now.Add(-30 * 24 * time.Hour)},
		{EntryID: "m4", OwnerID: "u2", Kind: domain.HistoryKindMood, Emotion: "anxiety", Intensity: 5, CreatedAt: now},
		{EntryID: "j1", OwnerID: "u1", Kind: domain.HistoryKindJournal, Content: "long day", CreatedAt: now.Add(-2 * time.Hour)},
	}
	for i := range entries {
		require.NoError(t, store.CreateHistoryEntry(ctx, &entries[i]))
	}
	require.NoError(t, store.SaveSessionRecord(ctx, testRecord("rec_1", "sess_1", now.Add(-24*time.Hour))))

	window := 14 * 24 * time.Hour

	moods, err := store.FindRecent(ctx, "u1", domain.HistoryKindMood, window)
	require.NoError(t, err)
	require.Len(t, moods, 2)
	assert.Equal(t, "m2", moods[0].EntryID)
	assert.Equal(t, "m1", moods[1].EntryID)
	assert.Equal(t, 6, moods[1].Intensity)

	journals, err := store.FindRecent(ctx, "u1", domain.HistoryKindJournal, window)
	require.NoError(t, err)
	require.Len(t, journals, 1)
	assert.Equal(t, "long day", journals[0].Content)

	sessions, err := store.FindRecent(ctx, "u1", domain.HistoryKindSession, window)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "rec_1", sessions[0].EntryID)
	assert.Equal(t, "anxiety", sessions[0].Emotion)
}

func TestCreateHistoryEntryRejectsSessionKind(t *testing.T) {
	store := newTestStore(t)
	err := store.CreateHistoryEntry(context.Background(), &domain.HistoryEntry{EntryID: "x", OwnerID: "u1", Kind: domain.HistoryKindSession})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
