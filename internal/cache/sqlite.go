// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/research-agent/pkg/types"
)

const dbFile = "cache.db"

// SQLiteStore keeps the index and both blob kinds in one SQLite database
// at <dir>/cache.db. Blobs are stored as JSON text.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens or creates the database and its schema.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	path := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			paper_id TEXT PRIMARY KEY,
			content_hash TEXT NOT NULL,
			analyzed_at TEXT NOT NULL,
			title TEXT,
			significance_score REAL,
			categories TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			data TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS analyses (
			paper_id TEXT PRIMARY KEY,
			data TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Entries(ctx context.Context) ([]types.CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT paper_id, content_hash, analyzed_at, title, significance_score, categories
		 FROM entries ORDER BY paper_id`)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var out []types.CacheEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Entry(ctx context.Context, id string) (types.CacheEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT paper_id, content_hash, analyzed_at, title, significance_score, categories
		 FROM entries WHERE paper_id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.CacheEntry{}, ErrNotFound
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

// scanEntry decodes one entries row. An unparsable timestamp yields a zero
// AnalyzedAt so the Cache treats the record as invalid.
func scanEntry(row scanner) (types.CacheEntry, error) {
	var (
		e          types.CacheEntry
		analyzedAt string
		title      sql.NullString
		score      sql.NullFloat64
		categories sql.NullString
	)
	if err := row.Scan(&e.PaperID, &e.ContentHash, &analyzedAt, &title, &score, &categories); err != nil {
		return types.CacheEntry{}, err
	}
	if t, err := time.Parse(time.RFC3339Nano, analyzedAt); err == nil {
		e.AnalyzedAt = t
	}
	e.Title = title.String
	e.SignificanceScore = score.Float64
	if categories.Valid && categories.String != "" {
		_ = json.Unmarshal([]byte(categories.String), &e.Categories)
	}
	return e, nil
}

func (s *SQLiteStore) SaveEntry(ctx context.Context, e types.CacheEntry) error {
	catsJSON, _ := json.Marshal(e.Categories)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (paper_id, content_hash, analyzed_at, title, significance_score, categories)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(paper_id) DO UPDATE SET
			content_hash=excluded.content_hash, analyzed_at=excluded.analyzed_at,
			title=excluded.title, significance_score=excluded.significance_score,
			categories=excluded.categories`,
		e.PaperID, e.ContentHash, e.AnalyzedAt.UTC().Format(time.RFC3339Nano),
		e.Title, e.SignificanceScore, string(catsJSON),
	)
	if err != nil {
		return fmt.Errorf("upserting entry %s: %w", e.PaperID, err)
	}
	return nil
}

func (s *SQLiteStore) SavePaper(ctx context.Context, p types.Paper) error {
	return s.putBlob(ctx, "papers", "id", p.ID, p)
}

func (s *SQLiteStore) LoadPaper(ctx context.Context, id string) (types.Paper, error) {
	var p types.Paper
	err := s.getBlob(ctx, "papers", "id", id, &p)
	return p, err
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, a types.Analysis) error {
	return s.putBlob(ctx, "analyses", "paper_id", a.PaperID, a)
}

func (s *SQLiteStore) LoadAnalysis(ctx context.Context, id string) (types.Analysis, error) {
	var a types.Analysis
	err := s.getBlob(ctx, "analyses", "paper_id", id, &a)
	return a, err
}

// putBlob and getBlob take table and key column names from the constants
// above only, never from input.
func (s *SQLiteStore) putBlob(ctx context.Context, table, key, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s %s: %w", table, id, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO `+table+` (`+key+`, data) VALUES (?, ?)
		 ON CONFLICT(`+key+`) DO UPDATE SET data=excluded.data`,
		id, string(data))
	if err != nil {
		return fmt.Errorf("writing %s %s: %w", table, id, err)
	}
	return nil
}

func (s *SQLiteStore) getBlob(ctx context.Context, table, key, id string, v any) error {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM `+table+` WHERE `+key+` = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading %s %s: %w", table, id, err)
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("decoding %s %s: %w", table, id, err)
	}
	return nil
}

// Delete removes the entry and both blobs in one transaction.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM entries WHERE paper_id = ?`,
		`DELETE FROM papers WHERE id = ?`,
		`DELETE FROM analyses WHERE paper_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("deleting %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"entries", "papers", "analyses"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// Size reports the database size as page_count * page_size.
func (s *SQLiteStore) Size(ctx context.Context) (int64, error) {
	var pages, pageSize int64
	if err := s.db.QueryRowContext(ctx, `PRAGMA page_count`).Scan(&pages); err != nil {
		return 0, fmt.Errorf("reading page count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize); err != nil {
		return 0, fmt.Errorf("reading page size: %w", err)
	}
	return pages * pageSize, nil
}

func (s *SQLiteStore) Location() string { return s.path }

// Close releases the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }
