// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store indexes retained trial records in a SQLite database so
// successive runs can be queried side by side.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/trialsift/pkg/types"
)

// ErrNoRuns is returned by LatestRun when the database holds no runs.
var ErrNoRuns = errors.New("no runs recorded")

// Store manages the record index database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at path and ensures the schema
// exists. The parent directory is created if needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			root TEXT NOT NULL,
			output TEXT,
			started_at TEXT NOT NULL,
			discovered INTEGER NOT NULL,
			parsed INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			matched INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			path TEXT NOT NULL,
			condition TEXT,
			nct_id TEXT,
			sponsor TEXT,
			phase TEXT,
			study_type TEXT,
			url TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_nct_id ON records(nct_id)`,
		`CREATE INDEX IF NOT EXISTS idx_records_condition ON records(condition COLLATE NOCASE)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun stores the run summary and its retained records in a single
// transaction and returns the new run id. Absent fields are stored as NULL.
func (s *Store) SaveRun(ctx context.Context, summary types.RunSummary, records []types.Record) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (root, output, started_at, discovered, parsed, failed, matched)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		summary.Root, summary.Output, summary.StartedAt.UTC().Format(time.RFC3339Nano),
		summary.Discovered, summary.Parsed, summary.Failed, summary.Matched,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (run_id, position, path, condition, nct_id, sponsor, phase, study_type, url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		_, err := stmt.ExecContext(ctx,
			runID, i, r.Path,
			nullable(r.Condition), nullable(r.Identifier), nullable(r.Sponsor),
			nullable(r.Phase), nullable(r.StudyType), nullable(r.URL),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting record %s: %w", r.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// Records returns the records stored for runID in their original order.
func (s *Store) Records(ctx context.Context, runID int64) ([]types.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, condition, nct_id, sponsor, phase, study_type, url
		 FROM records WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []types.Record
	for rows.Next() {
		var r types.Record
		var condition, nctID, sponsor, phase, studyType, url sql.NullString
		if err := rows.Scan(&r.Path, &condition, &nctID, &sponsor, &phase, &studyType, &url); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r.Condition = fromNull(condition)
		r.Identifier = fromNull(nctID)
		r.Sponsor = fromNull(sponsor)
		r.Phase = fromNull(phase)
		r.StudyType = fromNull(studyType)
		r.URL = fromNull(url)
		records = append(records, r)
	}
	return records, rows.Err()
}

// LatestRun returns the id of the most recently stored run.
func (s *Store) LatestRun(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoRuns
	}
	if err != nil {
		return 0, fmt.Errorf("querying latest run: %w", err)
	}
	return id, nil
}

func nullable(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
