package store

import (
	"context"

	"github.com/starzmeet/listing-agent/internal/model"
)

// SyncCounts summarizes CMS sync coverage of the stored records.
type SyncCounts struct {
	Total    int `json:"total"`
	Synced   int `json:"synced"`
	Unsynced int `json:"unsynced"`
}

// Store defines the persistence interface for listings and search keywords.
// Location arguments match stored location tags by substring, so "Frisco, TX"
// finds records saved under "Frisco, TX, USA".
type Store interface {
	// Listings
	Upsert(ctx context.Context, rec model.ListingRecord, location string) error
	ExistingIDs(ctx context.Context, location string) (map[string]struct{}, error)
	ExistingRecords(ctx context.Context, location string) ([]model.ListingRecord, error)
	All(ctx context.Context) ([]model.StoredRecord, error)
	GetRecord(ctx context.Context, placeID string) (*model.StoredRecord, error)
	RecordsByIDs(ctx context.Context, placeIDs []string) ([]model.StoredRecord, error)
	UnsyncedRecords(ctx context.Context) ([]model.StoredRecord, error)
	DeleteByLocation(ctx context.Context, location string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)

	// Sync state
	UpdateSyncState(ctx context.Context, placeID string, state model.SyncState) error
	SyncStatus(ctx context.Context) (SyncCounts, error)

	// Search keywords
	ListKeywords(ctx context.Context) ([]model.SearchKeyword, error)
	ActiveKeywords(ctx context.Context) ([]model.SearchKeyword, error)
	AddKeyword(ctx context.Context, keyword, category string) (*model.SearchKeyword, error)
	UpdateKeyword(ctx context.Context, id int64, keyword, category *string, active *bool) error
	DeleteKeyword(ctx context.Context, id int64) error
	TouchKeywords(ctx context.Context, ids []int64) error
	SeedKeywords(ctx context.Context, defaults []model.SearchKeyword) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
