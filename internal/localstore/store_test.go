package localstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodquiz/backend/internal/models"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestAddUserAssignsIncreasingIDsWithinSameMillisecond(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStorage(), nil)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = fixedClock(now)

	a, err := s.AddUser(ctx, models.NewUser{Name: "Ana"})
	require.NoError(t, err)
	b, err := s.AddUser(ctx, models.NewUser{Name: "Ben"})
	require.NoError(t, err)

	assert.Equal(t, models.LocalID(now.UnixMilli()), a.ID)
	assert.Equal(t, models.LocalID(now.UnixMilli()+1), b.ID)
	assert.True(t, b.ID.IsLocal())
	assert.Equal(t, now, a.CreatedAt)
}

func TestAddResponseKeepsTimestampAndUserOrigin(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStorage(), nil)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = fixedClock(now)
	earlier := now.Add(-time.Hour)

	_, err := s.AddResponse(ctx, models.NewResponse{UserID: models.RemoteID(12), QuestionID: 1, Score: 4, Timestamp: earlier})
	require.NoError(t, err)
	_, err = s.AddResponse(ctx, models.NewResponse{UserID: models.LocalID(99), QuestionID: 2, Score: 2})
	require.NoError(t, err)

	got, err := s.Responses(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.RemoteID(12), got[0].UserID)
	assert.Equal(t, earlier, got[0].Timestamp)
	assert.Equal(t, models.LocalID(99), got[1].UserID)
	assert.Equal(t, now, got[1].Timestamp)
}

func TestConcurrentAddsAreNotLost(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStorage(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.AddResponse(ctx, models.NewResponse{UserID: models.LocalID(1), QuestionID: 1, Score: i % 5})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := s.Responses(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 20)
	seen := make(map[models.ID]bool)
	for _, r := range got {
		assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
		seen[r.ID] = true
	}
}

func TestCorruptCollectionReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	require.NoError(t, storage.SetCollection(ctx, CollectionUsers, []byte("{not json")))
	s := New(storage, nil)

	users, err := s.Users(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	u, err := s.AddUser(ctx, models.NewUser{Name: "Ana"})
	require.NoError(t, err)
	users, err = s.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.User{u}, users)
}

func TestClearEmptiesBothCollections(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStorage(), nil)
	_, err := s.AddUser(ctx, models.NewUser{Name: "Ana"})
	require.NoError(t, err)
	_, err = s.AddResponse(ctx, models.NewResponse{UserID: models.LocalID(1), QuestionID: 1, Score: 3})
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx))

	users, responses, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.Empty(t, responses)
}

func TestRemoveSyncedKeepsLaterRecords(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStorage(), nil)
	_, err := s.AddUser(ctx, models.NewUser{Name: "Ana"})
	require.NoError(t, err)
	_, err = s.AddResponse(ctx, models.NewResponse{UserID: models.LocalID(1), QuestionID: 1, Score: 3})
	require.NoError(t, err)

	users, responses, err := s.Snapshot(ctx)
	require.NoError(t, err)

	late, err := s.AddResponse(ctx, models.NewResponse{UserID: models.LocalID(1), QuestionID: 2, Score: 5})
	require.NoError(t, err)

	require.NoError(t, s.RemoveSynced(ctx, users, responses, nil))

	leftUsers, leftResponses, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, leftUsers)
	assert.Equal(t, []models.Response{late}, leftResponses)
}

func TestSQLiteStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	storage, err := OpenSQLite(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	raw, err := storage.GetCollection(ctx, CollectionUsers)
	require.NoError(t, err)
	assert.Nil(t, raw)

	s := New(storage, nil)
	u, err := s.AddUser(ctx, models.NewUser{Name: "Ana", Avatar: "🐱", Grade: "5", Gender: "f"})
	require.NoError(t, err)

	reopened := New(storage, nil)
	users, err := reopened.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, u.ID, users[0].ID)
	assert.Equal(t, "🐱", users[0].Avatar)

	require.NoError(t, reopened.Clear(ctx))
	raw, err = storage.GetCollection(ctx, CollectionUsers)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestStorageRejectsUnknownCollection(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStorage()
	_, err := m.GetCollection(ctx, "cookies")
	assert.ErrorIs(t, err, ErrUnknownCollection)
	assert.ErrorIs(t, m.SetCollection(ctx, "cookies", []byte("[]")), ErrUnknownCollection)
}

func TestRemoveSyncedRewritesOwnerOfLaterResponses(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStorage(), nil)
	u, err := s.AddUser(ctx, models.NewUser{Name: "Ana"})
	require.NoError(t, err)
	_, err = s.AddResponse(ctx, models.NewResponse{UserID: u.ID, QuestionID: 1, Score: 3})
	require.NoError(t, err)
	users, responses, err := s.Snapshot(ctx)
	require.NoError(t, err)

	late, err := s.AddResponse(ctx, models.NewResponse{UserID: u.ID, QuestionID: 2, Score: 5})
	require.NoError(t, err)
	other, err := s.AddResponse(ctx, models.NewResponse{UserID: models.RemoteID(3), QuestionID: 2, Score: 1})
	require.NoError(t, err)

	remap := map[models.ID]models.ID{u.ID: models.RemoteID(77)}
	require.NoError(t, s.RemoveSynced(ctx, users, responses, remap))

	leftUsers, left, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, leftUsers)
	require.Len(t, left, 2)
	assert.Equal(t, late.ID, left[0].ID)
	assert.Equal(t, models.RemoteID(77), left[0].UserID)
	assert.Equal(t, late.Timestamp, left[0].Timestamp)
	assert.Equal(t, other, left[1])
}

func TestSetAsideMovesRecordsOutOfPending(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStorage(), nil)
	u, err := s.AddUser(ctx, models.NewUser{Name: "Ana"})
	require.NoError(t, err)
	keep, err := s.AddResponse(ctx, models.NewResponse{UserID: u.ID, QuestionID: 1, Score: 3})
	require.NoError(t, err)
	bad, err := s.AddResponse(ctx, models.NewResponse{UserID: u.ID, QuestionID: 2, Score: 9})
	require.NoError(t, err)

	require.NoError(t, s.SetAside(ctx, []models.User{u}, []models.Response{bad}))

	users, pending, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.Equal(t, []models.Response{keep}, pending)

	rejectedUsers, rejectedResponses, err := s.Rejected(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.User{u}, rejectedUsers)
	assert.Equal(t, []models.Response{bad}, rejectedResponses)

	require.NoError(t, s.SetAside(ctx, nil, nil))
}
