package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"portrait-pipeline/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps both correlation keyspaces and the catalog in one
// SQLite database. Used for local runs and tests.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at dbPath and creates tables.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// Writers serialise on the file lock anyway.
	db.SetMaxOpenConns(1)

	s := NewSQLiteStore(db)
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an existing connection without migrating it.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Migrate creates tables if not exists
func (s *SQLiteStore) Migrate() error {
	processTable := `
	CREATE TABLE IF NOT EXISTS process_records (
		request_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		theme TEXT NOT NULL,
		gender TEXT NOT NULL,
		skin TEXT NOT NULL,
		base_image_key TEXT NOT NULL,
		base_story TEXT,
		status TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	);
	`
	displayTable := `
	CREATE TABLE IF NOT EXISTS display_records (
		user_id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		base_image_key TEXT,
		result_image_key TEXT NOT NULL,
		story TEXT,
		theme TEXT,
		gender TEXT,
		skin TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);
	`
	catalogTable := `
	CREATE TABLE IF NOT EXISTS base_resources (
		theme TEXT NOT NULL,
		gender TEXT NOT NULL,
		skin TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		base_image_key TEXT NOT NULL,
		story TEXT,
		PRIMARY KEY (theme, gender, skin, resource_id)
	);
	`

	for _, ddl := range []string{processTable, displayTable, catalogTable} {
		if _, err := s.db.Exec(ddl); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close releases the connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveProcess stores a new process record. Request ids are never reused.
func (s *SQLiteStore) SaveProcess(ctx context.Context, rec *model.ProcessRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO process_records
		(request_id, user_id, theme, gender, skin, base_image_key, base_story, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.UserID, rec.Theme, rec.Gender, rec.Skin,
		rec.BaseImageKey, rec.BaseStory, string(rec.Status),
		rec.CreatedAt.UTC(), rec.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save process %s: %w", rec.RequestID, err)
	}
	return nil
}

// GetProcess fetches a process record by request id
func (s *SQLiteStore) GetProcess(ctx context.Context, requestID string) (*model.ProcessRecord, error) {
	var rec model.ProcessRecord
	var status string
	var story sql.NullString

	err := s.db.QueryRowContext(ctx, `SELECT request_id, user_id, theme, gender, skin, base_image_key, base_story, status, created_at, updated_at
		FROM process_records WHERE request_id = ?`, requestID).
		Scan(&rec.RequestID, &rec.UserID, &rec.Theme, &rec.Gender, &rec.Skin,
			&rec.BaseImageKey, &story, &status, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get process %s: %w", requestID, err)
	}

	rec.BaseStory = story.String
	rec.Status = model.RequestStatus(status)
	return &rec, nil
}

// UpdateProcessStatus updates status and refreshes updated_at, but only
// while the stored status is still behind the new one.
func (s *SQLiteStore) UpdateProcessStatus(ctx context.Context, requestID string, status model.RequestStatus, at time.Time) error {
	// An empty status counts as requested.
	behind := append([]model.RequestStatus{""}, status.Predecessors()...)
	args := []interface{}{string(status), at.UTC(), requestID}
	placeholders := make([]string, 0, len(behind))
	for _, prev := range behind {
		placeholders = append(placeholders, "?")
		args = append(args, string(prev))
	}

	res, err := s.db.ExecContext(ctx, `UPDATE process_records SET status = ?, updated_at = ?
		WHERE request_id = ? AND status IN (`+strings.Join(placeholders, ", ")+`)`, args...)
	if err != nil {
		return fmt.Errorf("update process %s: %w", requestID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update process %s: %w", requestID, err)
	}
	if n > 0 {
		return nil
	}

	// Nothing changed: either the record is missing or already further along.
	var one int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM process_records WHERE request_id = ?`, requestID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update process %s: %w", requestID, err)
	}
	return nil
}

// UpsertDisplay writes the user's latest result, last writer wins.
func (s *SQLiteStore) UpsertDisplay(ctx context.Context, rec *model.DisplayRecord) error {
	now := rec.UpdatedAt.UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO display_records
		(user_id, request_id, base_image_key, result_image_key, story, theme, gender, skin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			request_id = excluded.request_id,
			base_image_key = excluded.base_image_key,
			result_image_key = excluded.result_image_key,
			story = excluded.story,
			theme = excluded.theme,
			gender = excluded.gender,
			skin = excluded.skin,
			updated_at = excluded.updated_at`,
		rec.UserID, rec.RequestID, rec.BaseImageKey, rec.ResultImageKey, rec.Story,
		rec.Theme, rec.Gender, rec.Skin, now, now)
	if err != nil {
		return fmt.Errorf("upsert display %s: %w", rec.UserID, err)
	}
	return nil
}

// GetDisplay fetches the display record for a user
func (s *SQLiteStore) GetDisplay(ctx context.Context, userID string) (*model.DisplayRecord, error) {
	var rec model.DisplayRecord
	var base, story, theme, gender, skin sql.NullString

	err := s.db.QueryRowContext(ctx, `SELECT user_id, request_id, base_image_key, result_image_key, story, theme, gender, skin, created_at, updated_at
		FROM display_records WHERE user_id = ?`, userID).
		Scan(&rec.UserID, &rec.RequestID, &base, &rec.ResultImageKey, &story,
			&theme, &gender, &skin, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get display %s: %w", userID, err)
	}

	rec.BaseImageKey = base.String
	rec.Story = story.String
	rec.Theme = theme.String
	rec.Gender = gender.String
	rec.Skin = skin.String
	return &rec, nil
}

// QueryBaseResources returns every catalog entry for the triple.
func (s *SQLiteStore) QueryBaseResources(ctx context.Context, theme, gender, skin string) ([]model.BaseResource, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT resource_id, theme, gender, skin, base_image_key, story
		FROM base_resources WHERE theme = ? AND gender = ? AND skin = ? ORDER BY resource_id`,
		theme, gender, skin)
	if err != nil {
		return nil, fmt.Errorf("query base resources: %w", err)
	}
	defer rows.Close()

	var out []model.BaseResource
	for rows.Next() {
		var res model.BaseResource
		var story sql.NullString
		if err := rows.Scan(&res.ResourceID, &res.Theme, &res.Gender, &res.Skin, &res.BaseImageKey, &story); err != nil {
			return nil, fmt.Errorf("scan base resource: %w", err)
		}
		res.Story = story.String
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query base resources: %w", err)
	}
	return out, nil
}

// PutBaseResource inserts or replaces a catalog entry.
func (s *SQLiteStore) PutBaseResource(ctx context.Context, res *model.BaseResource) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO base_resources
		(theme, gender, skin, resource_id, base_image_key, story) VALUES (?, ?, ?, ?, ?, ?)`,
		res.Theme, res.Gender, res.Skin, res.ResourceID, res.BaseImageKey, res.Story)
	if err != nil {
		return fmt.Errorf("put base resource %s: %w", res.ResourceID, err)
	}
	return nil
}
