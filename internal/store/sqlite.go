package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/starzmeet/listing-agent/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS places (
	place_id     TEXT PRIMARY KEY,
	location     TEXT NOT NULL DEFAULT '',
	scraped_at   DATETIME NOT NULL,
	data         TEXT NOT NULL,
	synced       INTEGER NOT NULL DEFAULT 0,
	cms_post_id  INTEGER,
	last_sync_at DATETIME
);

CREATE TABLE IF NOT EXISTS search_keywords (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	keyword    TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT '',
	active     INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	last_used  DATETIME
);

CREATE INDEX IF NOT EXISTS idx_places_location ON places(location);
CREATE INDEX IF NOT EXISTS idx_places_synced ON places(synced);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Upsert writes rec keyed by its place ID. Re-upserting replaces the record
// data and location but keeps any existing sync state.
func (s *SQLiteStore) Upsert(ctx context.Context, rec model.ListingRecord, location string) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal record")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO places (place_id, location, scraped_at, data) VALUES (?, ?, ?, ?)
		 ON CONFLICT(place_id) DO UPDATE SET location = excluded.location,
			scraped_at = excluded.scraped_at, data = excluded.data`,
		rec.PlaceID, location, time.Now().UTC(), string(data),
	)
	return eris.Wrapf(err, "sqlite: upsert place %s", rec.PlaceID)
}

func (s *SQLiteStore) ExistingIDs(ctx context.Context, location string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT place_id FROM places WHERE location LIKE ?`, "%"+location+"%")
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query place ids")
	}
	defer rows.Close() //nolint:errcheck

	ids := map[string]struct{}{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan place id")
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) ExistingRecords(ctx context.Context, location string) ([]model.ListingRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM places WHERE location LIKE ?`, "%"+location+"%")
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query places")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.ListingRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan place")
		}
		var rec model.ListingRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal place")
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

const storedColumns = `data, location, scraped_at, synced, cms_post_id, last_sync_at`

func (s *SQLiteStore) All(ctx context.Context) ([]model.StoredRecord, error) {
	return s.queryStored(ctx, `SELECT `+storedColumns+` FROM places ORDER BY scraped_at DESC`)
}

func (s *SQLiteStore) UnsyncedRecords(ctx context.Context) ([]model.StoredRecord, error) {
	return s.queryStored(ctx, `SELECT `+storedColumns+` FROM places WHERE synced = 0 ORDER BY scraped_at DESC`)
}

func (s *SQLiteStore) RecordsByIDs(ctx context.Context, placeIDs []string) ([]model.StoredRecord, error) {
	if len(placeIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(placeIDs)), ",")
	args := make([]any, len(placeIDs))
	for i, id := range placeIDs {
		args[i] = id
	}
	return s.queryStored(ctx,
		`SELECT `+storedColumns+` FROM places WHERE place_id IN (`+placeholders+`)`, args...)
}

func (s *SQLiteStore) queryStored(ctx context.Context, query string, args ...any) ([]model.StoredRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query stored records")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.StoredRecord
	for rows.Next() {
		rec, err := scanStored(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetRecord(ctx context.Context, placeID string) (*model.StoredRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+storedColumns+` FROM places WHERE place_id = ?`, placeID)
	rec, err := scanStored(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("place not found: %s", placeID)
	}
	return rec, err
}

func (s *SQLiteStore) DeleteByLocation(ctx context.Context, location string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM places WHERE location LIKE ?`, "%"+location+"%")
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: delete places for %s", location)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM places`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete all places")
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) UpdateSyncState(ctx context.Context, placeID string, state model.SyncState) error {
	// COALESCE keeps a previously recorded post ID when the caller only
	// reports sync completion, as the bulk path does.
	res, err := s.db.ExecContext(ctx,
		`UPDATE places SET synced = ?, cms_post_id = COALESCE(?, cms_post_id), last_sync_at = ? WHERE place_id = ?`,
		boolToInt(state.Synced), state.CMSPostID, state.LastSyncAt, placeID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update sync state %s", placeID)
	}
	return checkRowsAffected(res, "place", placeID)
}

func (s *SQLiteStore) SyncStatus(ctx context.Context) (SyncCounts, error) {
	var c SyncCounts
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(synced), 0) FROM places`).Scan(&c.Total, &c.Synced)
	if err != nil {
		return SyncCounts{}, eris.Wrap(err, "sqlite: sync status")
	}
	c.Unsynced = c.Total - c.Synced
	return c, nil
}

func (s *SQLiteStore) ListKeywords(ctx context.Context) ([]model.SearchKeyword, error) {
	return s.queryKeywords(ctx,
		`SELECT id, keyword, category, active, created_at, last_used
		 FROM search_keywords ORDER BY category, keyword`)
}

func (s *SQLiteStore) ActiveKeywords(ctx context.Context) ([]model.SearchKeyword, error) {
	return s.queryKeywords(ctx,
		`SELECT id, keyword, category, active, created_at, last_used
		 FROM search_keywords WHERE active = 1 ORDER BY category, keyword`)
}

func (s *SQLiteStore) queryKeywords(ctx context.Context, query string) ([]model.SearchKeyword, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query keywords")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.SearchKeyword
	for rows.Next() {
		var k model.SearchKeyword
		var active int
		var lastUsed sql.NullTime
		if err := rows.Scan(&k.ID, &k.Keyword, &k.Category, &active, &k.CreatedAt, &lastUsed); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan keyword")
		}
		k.Active = active != 0
		if lastUsed.Valid {
			t := lastUsed.Time
			k.LastUsed = &t
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddKeyword(ctx context.Context, keyword, category string) (*model.SearchKeyword, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO search_keywords (keyword, category, active, created_at) VALUES (?, ?, 1, ?)`,
		keyword, category, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert keyword %s", keyword)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: keyword id")
	}
	return &model.SearchKeyword{ID: id, Keyword: keyword, Category: category, Active: true, CreatedAt: now}, nil
}

func (s *SQLiteStore) UpdateKeyword(ctx context.Context, id int64, keyword, category *string, active *bool) error {
	sets := []string{}
	args := []any{}
	if keyword != nil {
		sets = append(sets, "keyword = ?")
		args = append(args, *keyword)
	}
	if category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *category)
	}
	if active != nil {
		sets = append(sets, "active = ?")
		args = append(args, boolToInt(*active))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		`UPDATE search_keywords SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update keyword %d", id)
	}
	return checkRowsAffected(res, "keyword", strconv.FormatInt(id, 10))
}

func (s *SQLiteStore) DeleteKeyword(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM search_keywords WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete keyword %d", id)
	}
	return checkRowsAffected(res, "keyword", strconv.FormatInt(id, 10))
}

func (s *SQLiteStore) TouchKeywords(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, time.Now().UTC())
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE search_keywords SET last_used = ? WHERE id IN (`+placeholders+`)`, args...)
	return eris.Wrap(err, "sqlite: touch keywords")
}

// SeedKeywords inserts defaults only when the keyword table is empty.
func (s *SQLiteStore) SeedKeywords(ctx context.Context, defaults []model.SearchKeyword) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM search_keywords`).Scan(&count); err != nil {
		return eris.Wrap(err, "sqlite: count keywords")
	}
	if count > 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, k := range defaults {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO search_keywords (keyword, category, active, created_at) VALUES (?, ?, 1, ?)`,
			k.Keyword, k.Category, now,
		); err != nil {
			return eris.Wrapf(err, "sqlite: seed keyword %s", k.Keyword)
		}
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanStored(row scannable) (*model.StoredRecord, error) {
	var data string
	var sr model.StoredRecord
	var synced int
	var postID sql.NullInt64
	var lastSync sql.NullTime

	err := row.Scan(&data, &sr.Location, &sr.ScrapedAt, &synced, &postID, &lastSync)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &sr.Record); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal record")
	}
	sr.Sync.Synced = synced != 0
	if postID.Valid {
		id := postID.Int64
		sr.Sync.CMSPostID = &id
	}
	if lastSync.Valid {
		t := lastSync.Time
		sr.Sync.LastSyncAt = &t
	}
	return &sr, nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
