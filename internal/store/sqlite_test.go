package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starzmeet/listing-agent/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(placeID string) model.ListingRecord {
	return model.ListingRecord{
		PlaceID:  placeID,
		Title:    "Bright Steps Therapy",
		Phone:    "(555) 010-0100",
		Address:  "123 Main St, Frisco, TX 75034",
		Location: "United States > TX > Frisco",
		Status:   model.StatusNew,
	}
}

func TestUpsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, sampleRecord("p1"), "Frisco, TX"))

	got, err := s.GetRecord(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Bright Steps Therapy", got.Record.Title)
	assert.Equal(t, "Frisco, TX", got.Location)
	assert.False(t, got.Sync.Synced)
	assert.WithinDuration(t, time.Now(), got.ScrapedAt, time.Minute)
}

func TestUpsertIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, sampleRecord("p1"), "Frisco, TX"))

	updated := sampleRecord("p1")
	updated.Title = "Bright Steps Therapy Center"
	require.NoError(t, s.Upsert(ctx, updated, "Frisco, TX"))

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Bright Steps Therapy Center", all[0].Record.Title)
}

func TestUpsertPreservesSyncState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, sampleRecord("p1"), "Frisco, TX"))

	postID := int64(42)
	now := time.Now().UTC()
	require.NoError(t, s.UpdateSyncState(ctx, "p1", model.SyncState{
		Synced: true, CMSPostID: &postID, LastSyncAt: &now,
	}))

	// Re-scrape overwrites the data but not the sync columns.
	require.NoError(t, s.Upsert(ctx, sampleRecord("p1"), "Frisco, TX"))

	got, err := s.GetRecord(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, got.Sync.Synced)
	require.NotNil(t, got.Sync.CMSPostID)
	assert.Equal(t, int64(42), *got.Sync.CMSPostID)
}

func TestExistingIDsSubstringMatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, sampleRecord("p1"), "Frisco, TX, USA"))
	require.NoError(t, s.Upsert(ctx, sampleRecord("p2"), "Austin, TX"))

	ids, err := s.ExistingIDs(ctx, "Frisco, TX")
	require.NoError(t, err)
	assert.Contains(t, ids, "p1")
	assert.NotContains(t, ids, "p2")
}

func TestExistingRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, sampleRecord("p1"), "Frisco, TX"))

	recs, err := s.ExistingRecords(ctx, "Frisco")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "p1", recs[0].PlaceID)
}

func TestGetRecordNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRecord(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRecordsByIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, sampleRecord("p1"), "Frisco, TX"))
	require.NoError(t, s.Upsert(ctx, sampleRecord("p2"), "Frisco, TX"))
	require.NoError(t, s.Upsert(ctx, sampleRecord("p3"), "Frisco, TX"))

	recs, err := s.RecordsByIDs(ctx, []string{"p1", "p3"})
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = s.RecordsByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestDeleteByLocation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, sampleRecord("p1"), "Frisco, TX"))
	require.NoError(t, s.Upsert(ctx, sampleRecord("p2"), "Austin, TX"))

	n, err := s.DeleteByLocation(ctx, "Frisco")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "p2", all[0].Record.PlaceID)
}

func TestDeleteAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, sampleRecord("p1"), "Frisco, TX"))
	require.NoError(t, s.Upsert(ctx, sampleRecord("p2"), "Austin, TX"))

	n, err := s.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	counts, err := s.SyncStatus(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts.Total)
}

func TestSyncStatusAndUnsynced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, sampleRecord("p1"), "Frisco, TX"))
	require.NoError(t, s.Upsert(ctx, sampleRecord("p2"), "Frisco, TX"))

	postID := int64(7)
	now := time.Now().UTC()
	require.NoError(t, s.UpdateSyncState(ctx, "p1", model.SyncState{
		Synced: true, CMSPostID: &postID, LastSyncAt: &now,
	}))

	counts, err := s.SyncStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncCounts{Total: 2, Synced: 1, Unsynced: 1}, counts)

	unsynced, err := s.UnsyncedRecords(ctx)
	require.NoError(t, err)
	require.Len(t, unsynced, 1)
	assert.Equal(t, "p2", unsynced[0].Record.PlaceID)
}

func TestUpdateSyncStateKeepsPostID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, sampleRecord("p1"), "Frisco, TX"))

	postID := int64(42)
	now := time.Now().UTC()
	require.NoError(t, s.UpdateSyncState(ctx, "p1", model.SyncState{
		Synced: true, CMSPostID: &postID, LastSyncAt: &now,
	}))

	// A later resync that does not report a post ID must not wipe the one
	// already on record.
	later := now.Add(time.Hour)
	require.NoError(t, s.UpdateSyncState(ctx, "p1", model.SyncState{
		Synced: true, LastSyncAt: &later,
	}))

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].Sync.CMSPostID)
	assert.Equal(t, int64(42), *all[0].Sync.CMSPostID)
	assert.True(t, all[0].Sync.Synced)
}

func TestUpdateSyncStateNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateSyncState(context.Background(), "missing", model.SyncState{Synced: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestKeywordCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	k, err := s.AddKeyword(ctx, "autism therapy centers", "Autism Core")
	require.NoError(t, err)
	assert.NotZero(t, k.ID)
	assert.True(t, k.Active)

	inactive := false
	require.NoError(t, s.UpdateKeyword(ctx, k.ID, nil, nil, &inactive))

	list, err := s.ListKeywords(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Active)

	active, err := s.ActiveKeywords(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	newText := "ABA providers"
	require.NoError(t, s.UpdateKeyword(ctx, k.ID, &newText, nil, nil))
	list, err = s.ListKeywords(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ABA providers", list[0].Keyword)

	require.NoError(t, s.DeleteKeyword(ctx, k.ID))
	list, err = s.ListKeywords(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Error(t, s.DeleteKeyword(ctx, k.ID))
}

func TestTouchKeywords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	k, err := s.AddKeyword(ctx, "ADHD therapy centers", "ADHD")
	require.NoError(t, err)

	require.NoError(t, s.TouchKeywords(ctx, []int64{k.ID}))

	list, err := s.ListKeywords(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].LastUsed)
	assert.WithinDuration(t, time.Now(), *list[0].LastUsed, time.Minute)
}

func TestSeedKeywordsOnlyWhenEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	defaults := []model.SearchKeyword{
		{Keyword: "autism therapy centers", Category: "Autism Core"},
		{Keyword: "ADHD therapy centers", Category: "ADHD"},
	}
	require.NoError(t, s.SeedKeywords(ctx, defaults))

	list, err := s.ListKeywords(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	// Second seed is a no-op.
	require.NoError(t, s.SeedKeywords(ctx, defaults))
	list, err = s.ListKeywords(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
