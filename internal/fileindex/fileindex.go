package fileindex

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"siphon/internal/services"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; existing databases must be deleted and rebuilt from the archive.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// PlaneRef identifies the plane that owns a set of archive files.
type PlaneRef struct {
	Collection    string
	ObservationID string
	ProductID     string
}

// URI renders the reference in the observation scheme used by membership
// and provenance fields.
func (r PlaneRef) URI() string {
	return "obs:" + r.Collection + "/" + r.ObservationID + "/" + r.ProductID
}

func (r PlaneRef) validate() error {
	missing := make([]string, 0, 3)
	if strings.TrimSpace(r.Collection) == "" {
		missing = append(missing, "collection")
	}
	if strings.TrimSpace(r.ObservationID) == "" {
		missing = append(missing, "observation id")
	}
	if strings.TrimSpace(r.ProductID) == "" {
		missing = append(missing, "product id")
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrValidation, "fileindex", "record plane",
			"plane reference missing "+strings.Join(missing, ", "), nil)
	}
	return nil
}

// Index maps archive file ids to the planes that ingested them, backed by
// SQLite. Lookups resolve provenance references to files the current run
// never saw; successful ingestions record their file ids for future runs.
type Index struct {
	db   *sql.DB
	path string
}

// Open connects to the index database at path, creating the file and its
// schema when absent.
func Open(path string) (*Index, error) {
	if strings.TrimSpace(path) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "fileindex", "open", "index path is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	ix := &Index{db: db, path: path}
	if err := ix.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return ix, nil
}

// Close closes the underlying database connection.
func (ix *Index) Close() error {
	if ix == nil || ix.db == nil {
		return nil
	}
	return ix.db.Close()
}

// Path returns the database file location.
func (ix *Index) Path() string {
	if ix == nil {
		return ""
	}
	return ix.path
}

// Lookup returns the plane that ingested fileID. The second return value is
// false when the file id has never been recorded.
func (ix *Index) Lookup(ctx context.Context, fileID string) (PlaneRef, bool, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return PlaneRef{}, false, nil
	}

	row := ix.db.QueryRowContext(
		ctx,
		`SELECT collection, observation_id, product_id FROM archive_files WHERE file_id = ?`,
		fileID,
	)
	var ref PlaneRef
	err := row.Scan(&ref.Collection, &ref.ObservationID, &ref.ProductID)
	if errors.Is(err, sql.ErrNoRows) {
		return PlaneRef{}, false, nil
	}
	if err != nil {
		return PlaneRef{}, false, fmt.Errorf("lookup file id %s: %w", fileID, err)
	}
	return ref, true, nil
}

// RecordPlane upserts ownership rows for every file id in the plane. A file
// re-ingested into a different plane moves to the new owner.
func (ix *Index) RecordPlane(ctx context.Context, ref PlaneRef, fileIDs []string) error {
	if err := ref.validate(); err != nil {
		return err
	}
	if len(fileIDs) == 0 {
		return nil
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stamp := time.Now().UTC().Format(time.RFC3339Nano)
	for _, fileID := range fileIDs {
		fileID = strings.TrimSpace(fileID)
		if fileID == "" {
			continue
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO archive_files (file_id, collection, observation_id, product_id, recorded_at)
             VALUES (?, ?, ?, ?, ?)
             ON CONFLICT(file_id) DO UPDATE SET
                collection = excluded.collection,
                observation_id = excluded.observation_id,
                product_id = excluded.product_id,
                recorded_at = excluded.recorded_at`,
			fileID,
			ref.Collection,
			ref.ObservationID,
			ref.ProductID,
			stamp,
		); err != nil {
			return fmt.Errorf("record file id %s: %w", fileID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record tx: %w", err)
	}
	return nil
}

// Count returns the number of indexed file ids.
func (ix *Index) Count(ctx context.Context) (int64, error) {
	row := ix.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM archive_files`)
	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count file ids: %w", err)
	}
	return count, nil
}

func (ix *Index) initSchema(ctx context.Context) error {
	var tableExists int
	err := ix.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return ix.createSchema(ctx)
	}

	var version int
	err = ix.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to rebuild)",
			ErrSchemaMismatch, version, schemaVersion, ix.path)
	}
	return nil
}

func (ix *Index) createSchema(ctx context.Context) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}
