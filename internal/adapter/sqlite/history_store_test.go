package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberline/empath/internal/adapter/sqlite"
	"github.com/emberline/empath/internal/domain"
)

func newTestStore(t *testing.T) *sqlite.HistoryStore {
	t.Helper()
	db, err := sqlite.Connect(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())
	return sqlite.NewHistoryStore(db)
}

func testRecord(userID string, ts time.Time) domain.EmotionRecord {
	return domain.EmotionRecord{
		ID:             uuid.New(),
		UserID:         userID,
		CompositeLabel: "positive-joy",
		Confidence:     0.92,
		SourceText:     "what a day",
		Timestamp:      ts,
	}
}

func TestHistoryStore_AppendAndReadRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var want []uuid.UUID
	for i := 0; i < 5; i++ {
		rec := testRecord("alice", base.Add(time.Duration(i)*time.Minute))
		id, err := store.Append(ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, id)
		want = append(want, rec.ID)
	}

	got, err := store.ReadRecent(ctx, "alice", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Most recent first.
	assert.Equal(t, want[4], got[0].ID)
	assert.Equal(t, want[3], got[1].ID)
	assert.Equal(t, want[2], got[2].ID)
	assert.Equal(t, base.Add(4*time.Minute), got[0].Timestamp)
}

func TestHistoryStore_ReadRecentIsolatesUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := store.Append(ctx, testRecord("alice", now))
	require.NoError(t, err)
	_, err = store.Append(ctx, testRecord("bob", now))
	require.NoError(t, err)

	got, err := store.ReadRecent(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].UserID)
}

func TestHistoryStore_ReadRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		_, err := store.Append(ctx, testRecord("alice", base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}

	got, err := store.ReadRange(ctx, "alice", base.Add(2*time.Hour), base.Add(5*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 4)

	// Ascending inside the window, bounds inclusive.
	assert.Equal(t, base.Add(2*time.Hour), got[0].Timestamp)
	assert.Equal(t, base.Add(5*time.Hour), got[3].Timestamp)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].Timestamp.Before(got[i-1].Timestamp))
	}
}

func TestHistoryStore_ValidationRejectsBeforeWrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*domain.EmotionRecord)
	}{
		{"missing user id", func(r *domain.EmotionRecord) { r.UserID = "" }},
		{"missing record id", func(r *domain.EmotionRecord) { r.ID = uuid.Nil }},
		{"confidence above one", func(r *domain.EmotionRecord) { r.Confidence = 1.5 }},
		{"negative confidence", func(r *domain.EmotionRecord) { r.Confidence = -0.1 }},
		{"zero timestamp", func(r *domain.EmotionRecord) { r.Timestamp = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testRecord("alice", time.Now().UTC())
			tt.mutate(&rec)
			_, err := store.Append(ctx, rec)
			assert.ErrorIs(t, err, domain.ErrInvalidRecord)
		})
	}

	// Nothing was written.
	got, err := store.ReadRecent(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHistoryStore_ReadRecentRejectsBadLimit(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ReadRecent(context.Background(), "alice", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRecord)

	_, err = store.ReadRecent(context.Background(), "alice", -5)
	assert.ErrorIs(t, err, domain.ErrInvalidRecord)
}

func TestHistoryStore_HealthCheck(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.HealthCheck(context.Background()))
}
