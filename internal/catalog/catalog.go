// Package catalog keeps a SQLite history of the record batches loaded into
// sweepview: where they came from, which files were skipped and what
// parameter space they spanned.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// File statuses.
const (
	StatusLoaded  = "loaded"
	StatusSkipped = "skipped"
)

// ErrBatchNotFound is returned when a batch id is unknown.
var ErrBatchNotFound = errors.New("batch not found")

// Catalog is the batch history database.
type Catalog struct {
	*sql.DB
	path string
}

// Open opens (creating if needed) the catalog at path and migrates it to
// the latest schema.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" catalogs on one database.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", p, err)
		}
	}

	c := &Catalog{DB: db, path: path}
	if err := c.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Path returns the database path the catalog was opened with.
func (c *Catalog) Path() string {
	return c.path
}

// AxisSummary is one axis of a loaded parameter space.
type AxisSummary struct {
	Header string   `json:"header"`
	Values []string `json:"values"`
}

// FileEntry is one file considered while loading a batch.
type FileEntry struct {
	Path   string `json:"path"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// BatchLoad describes a batch to record.
type BatchLoad struct {
	Source   string
	Layout   string
	Axes     []AxisSummary
	Series   int
	Files    []FileEntry
	LoadedAt time.Time
}

// Batch is a recorded batch.
type Batch struct {
	ID       string        `json:"id"`
	Source   string        `json:"source"`
	Layout   string        `json:"layout"`
	Loaded   int           `json:"loaded"`
	Skipped  int           `json:"skipped"`
	Series   int           `json:"series"`
	Axes     []AxisSummary `json:"axes"`
	LoadedAt time.Time     `json:"loaded_at"`
}

// RecordBatch stores a batch and its files in one transaction and returns
// the new batch id.
func (c *Catalog) RecordBatch(ctx context.Context, load BatchLoad) (string, error) {
	id := uuid.NewString()
	loadedAt := load.LoadedAt
	if loadedAt.IsZero() {
		loadedAt = time.Now()
	}

	var loaded, skipped int
	for _, f := range load.Files {
		switch f.Status {
		case StatusLoaded:
			loaded++
		case StatusSkipped:
			skipped++
		default:
			return "", fmt.Errorf("file %s: invalid status %q", f.Path, f.Status)
		}
	}

	axes := load.Axes
	if axes == nil {
		axes = []AxisSummary{}
	}
	axesJSON, err := json.Marshal(axes)
	if err != nil {
		return "", fmt.Errorf("encode axes: %w", err)
	}

	tx, err := c.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO batches (batch_id, source, layout, loaded_count, skipped_count, axes_json, series_count, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, load.Source, load.Layout, loaded, skipped, string(axesJSON), load.Series, loadedAt.UnixNano(),
	); err != nil {
		return "", fmt.Errorf("insert batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO batch_files (batch_id, position, path, status, error)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()
	for i, f := range load.Files {
		if _, err := stmt.ExecContext(ctx, id, i, f.Path, f.Status, f.Error); err != nil {
			return "", fmt.Errorf("insert file %s: %w", f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// Batches returns the most recently loaded batches, newest first.
// A non-positive limit returns all of them.
func (c *Catalog) Batches(ctx context.Context, limit int) ([]Batch, error) {
	query := `
		SELECT batch_id, source, layout, loaded_count, skipped_count, series_count, axes_json, loaded_at
		FROM batches
		ORDER BY loaded_at DESC, rowid DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := c.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Batch returns a single batch by id.
func (c *Catalog) Batch(ctx context.Context, id string) (Batch, error) {
	row := c.QueryRowContext(ctx, `
		SELECT batch_id, source, layout, loaded_count, skipped_count, series_count, axes_json, loaded_at
		FROM batches WHERE batch_id = ?`, id)
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Batch{}, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}
	return b, err
}

// BatchFiles returns the files of a batch in load order.
func (c *Catalog) BatchFiles(ctx context.Context, id string) ([]FileEntry, error) {
	if _, err := c.Batch(ctx, id); err != nil {
		return nil, err
	}

	rows, err := c.QueryContext(ctx, `
		SELECT path, status, error FROM batch_files
		WHERE batch_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FileEntry
	for rows.Next() {
		var f FileEntry
		if err := rows.Scan(&f.Path, &f.Status, &f.Error); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBatch(s scanner) (Batch, error) {
	var (
		b        Batch
		axesJSON string
		loadedAt int64
	)
	if err := s.Scan(&b.ID, &b.Source, &b.Layout, &b.Loaded, &b.Skipped, &b.Series, &axesJSON, &loadedAt); err != nil {
		return Batch{}, err
	}
	if err := json.Unmarshal([]byte(axesJSON), &b.Axes); err != nil {
		return Batch{}, fmt.Errorf("decode axes of batch %s: %w", b.ID, err)
	}
	b.LoadedAt = time.Unix(0, loadedAt).UTC()
	return b, nil
}
