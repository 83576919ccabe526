package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/starzmeet/listing-agent/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses, satisfied by pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS places (
	place_id     TEXT PRIMARY KEY,
	location     TEXT NOT NULL DEFAULT '',
	scraped_at   TIMESTAMPTZ NOT NULL,
	data         JSONB NOT NULL,
	synced       BOOLEAN NOT NULL DEFAULT false,
	cms_post_id  BIGINT,
	last_sync_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS search_keywords (
	id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	keyword    TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT '',
	active     BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_used  TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_places_location ON places(location);
CREATE INDEX IF NOT EXISTS idx_places_synced ON places(synced);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, rec model.ListingRecord, location string) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal record")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO places (place_id, location, scraped_at, data) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (place_id) DO UPDATE SET location = excluded.location,
			scraped_at = excluded.scraped_at, data = excluded.data`,
		rec.PlaceID, location, time.Now().UTC(), string(data),
	)
	return eris.Wrapf(err, "postgres: upsert place %s", rec.PlaceID)
}

func (s *PostgresStore) ExistingIDs(ctx context.Context, location string) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT place_id FROM places WHERE location LIKE $1`, "%"+location+"%")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query place ids")
	}
	defer rows.Close()

	ids := map[string]struct{}{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan place id")
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func (s *PostgresStore) ExistingRecords(ctx context.Context, location string) ([]model.ListingRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM places WHERE location LIKE $1`, "%"+location+"%")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query places")
	}
	defer rows.Close()

	var out []model.ListingRecord
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan place")
		}
		var rec model.ListingRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal place")
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

const pgStoredColumns = `data, location, scraped_at, synced, cms_post_id, last_sync_at`

func (s *PostgresStore) All(ctx context.Context) ([]model.StoredRecord, error) {
	return s.queryStored(ctx, `SELECT `+pgStoredColumns+` FROM places ORDER BY scraped_at DESC`)
}

func (s *PostgresStore) UnsyncedRecords(ctx context.Context) ([]model.StoredRecord, error) {
	return s.queryStored(ctx, `SELECT `+pgStoredColumns+` FROM places WHERE NOT synced ORDER BY scraped_at DESC`)
}

func (s *PostgresStore) RecordsByIDs(ctx context.Context, placeIDs []string) ([]model.StoredRecord, error) {
	if len(placeIDs) == 0 {
		return nil, nil
	}
	return s.queryStored(ctx,
		`SELECT `+pgStoredColumns+` FROM places WHERE place_id = ANY($1)`, placeIDs)
}

func (s *PostgresStore) queryStored(ctx context.Context, query string, args ...any) ([]model.StoredRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query stored records")
	}
	defer rows.Close()

	var out []model.StoredRecord
	for rows.Next() {
		rec, err := scanStoredPg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetRecord(ctx context.Context, placeID string) (*model.StoredRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgStoredColumns+` FROM places WHERE place_id = $1`, placeID)
	rec, err := scanStoredPg(row)
	if err == pgx.ErrNoRows {
		return nil, eris.Errorf("place not found: %s", placeID)
	}
	return rec, err
}

func (s *PostgresStore) DeleteByLocation(ctx context.Context, location string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM places WHERE location LIKE $1`, "%"+location+"%")
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: delete places for %s", location)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM places`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete all places")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) UpdateSyncState(ctx context.Context, placeID string, state model.SyncState) error {
	// COALESCE keeps a previously recorded post ID when the caller only
	// reports sync completion, as the bulk path does.
	tag, err := s.pool.Exec(ctx,
		`UPDATE places SET synced = $1, cms_post_id = COALESCE($2, cms_post_id), last_sync_at = $3 WHERE place_id = $4`,
		state.Synced, state.CMSPostID, state.LastSyncAt, placeID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update sync state %s", placeID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("place not found: %s", placeID)
	}
	return nil
}

func (s *PostgresStore) SyncStatus(ctx context.Context) (SyncCounts, error) {
	var c SyncCounts
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE synced) FROM places`).Scan(&c.Total, &c.Synced)
	if err != nil {
		return SyncCounts{}, eris.Wrap(err, "postgres: sync status")
	}
	c.Unsynced = c.Total - c.Synced
	return c, nil
}

func (s *PostgresStore) ListKeywords(ctx context.Context) ([]model.SearchKeyword, error) {
	return s.queryKeywords(ctx,
		`SELECT id, keyword, category, active, created_at, last_used
		 FROM search_keywords ORDER BY category, keyword`)
}

func (s *PostgresStore) ActiveKeywords(ctx context.Context) ([]model.SearchKeyword, error) {
	return s.queryKeywords(ctx,
		`SELECT id, keyword, category, active, created_at, last_used
		 FROM search_keywords WHERE active ORDER BY category, keyword`)
}

func (s *PostgresStore) queryKeywords(ctx context.Context, query string) ([]model.SearchKeyword, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query keywords")
	}
	defer rows.Close()

	var out []model.SearchKeyword
	for rows.Next() {
		var k model.SearchKeyword
		if err := rows.Scan(&k.ID, &k.Keyword, &k.Category, &k.Active, &k.CreatedAt, &k.LastUsed); err != nil {
			return nil, eris.Wrap(err, "postgres: scan keyword")
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AddKeyword(ctx context.Context, keyword, category string) (*model.SearchKeyword, error) {
	now := time.Now().UTC()
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO search_keywords (keyword, category, active, created_at) VALUES ($1, $2, true, $3) RETURNING id`,
		keyword, category, now,
	).Scan(&id)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert keyword %s", keyword)
	}
	return &model.SearchKeyword{ID: id, Keyword: keyword, Category: category, Active: true, CreatedAt: now}, nil
}

func (s *PostgresStore) UpdateKeyword(ctx context.Context, id int64, keyword, category *string, active *bool) error {
	sets := []string{}
	args := []any{}
	n := 1
	if keyword != nil {
		sets = append(sets, "keyword = $"+strconv.Itoa(n))
		args = append(args, *keyword)
		n++
	}
	if category != nil {
		sets = append(sets, "category = $"+strconv.Itoa(n))
		args = append(args, *category)
		n++
	}
	if active != nil {
		sets = append(sets, "active = $"+strconv.Itoa(n))
		args = append(args, *active)
		n++
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	query := `UPDATE search_keywords SET ` + joinSets(sets) + ` WHERE id = $` + strconv.Itoa(n)
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update keyword %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("keyword not found: %d", id)
	}
	return nil
}

func (s *PostgresStore) DeleteKeyword(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM search_keywords WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete keyword %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("keyword not found: %d", id)
	}
	return nil
}

func (s *PostgresStore) TouchKeywords(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE search_keywords SET last_used = $1 WHERE id = ANY($2)`,
		time.Now().UTC(), ids)
	return eris.Wrap(err, "postgres: touch keywords")
}

func (s *PostgresStore) SeedKeywords(ctx context.Context, defaults []model.SearchKeyword) error {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM search_keywords`).Scan(&count); err != nil {
		return eris.Wrap(err, "postgres: count keywords")
	}
	if count > 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, k := range defaults {
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO search_keywords (keyword, category, active, created_at) VALUES ($1, $2, true, $3)`,
			k.Keyword, k.Category, now,
		); err != nil {
			return eris.Wrapf(err, "postgres: seed keyword %s", k.Keyword)
		}
	}
	return nil
}

func scanStoredPg(row scannable) (*model.StoredRecord, error) {
	var data []byte
	var sr model.StoredRecord

	err := row.Scan(&data, &sr.Location, &sr.ScrapedAt, &sr.Sync.Synced, &sr.Sync.CMSPostID, &sr.Sync.LastSyncAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &sr.Record); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal record")
	}
	return &sr, nil
}

func joinSets(sets []string) string {
	out := sets[0]
	for _, s := range sets[1:] {
		out += ", " + s
	}
	return out
}
