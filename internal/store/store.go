// Package store persists detection results for editorial review.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/majalla/internal/model"
)

// ErrNotFound is returned when a document or correction does not exist
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id             TEXT PRIMARY KEY,
	path           TEXT NOT NULL DEFAULT '',
	source         TEXT NOT NULL,
	applied        TEXT NOT NULL DEFAULT '',
	revision       INTEGER NOT NULL DEFAULT 0,
	corrected_text TEXT NOT NULL DEFAULT '',
	confidence     REAL NOT NULL DEFAULT 0,
	provenance     TEXT NOT NULL DEFAULT '{}',
	detected_at    INTEGER NOT NULL,
	updated_at     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS corrections (
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	id          TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	kind        TEXT NOT NULL,
	original    TEXT NOT NULL,
	replacement TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	span_start  INTEGER NOT NULL,
	span_end    INTEGER NOT NULL,
	confidence  REAL NOT NULL,
	status      TEXT NOT NULL,
	PRIMARY KEY (document_id, id)
);

CREATE TABLE IF NOT EXISTS formatting_changes (
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	id          TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	kind        TEXT NOT NULL,
	text        TEXT NOT NULL,
	span_start  INTEGER NOT NULL,
	span_end    INTEGER NOT NULL,
	suggestion  TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	PRIMARY KEY (document_id, id)
);
`

// Document is a stored document with its review state
type Document struct {
	ID            string
	Path          string
	Source        string
	Applied       string // Text after the last apply, empty until then
	Revision      int
	CorrectedText string
	Confidence    float64
	Provenance    model.Provenance
	DetectedAt    time.Time
	UpdatedAt     time.Time
}

// Store is a sqlite-backed review store
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (and creates if needed) the database at path
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	logger.Debug("store opened", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveDetection stores the result of a detection run, replacing any earlier
// corrections for the document. Applied text and revision are kept.
func (s *Store) SaveDetection(ctx context.Context, documentID, path, source string, result model.DetectionResult) error {
	provenance, err := json.Marshal(result.Provenance)
	if err != nil {
		return fmt.Errorf("encode provenance: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, path, source, corrected_text, confidence, provenance, detected_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			source = excluded.source,
			corrected_text = excluded.corrected_text,
			confidence = excluded.confidence,
			provenance = excluded.provenance,
			detected_at = excluded.detected_at,
			updated_at = excluded.updated_at`,
		documentID, path, source, result.CorrectedText, result.Confidence, string(provenance), now, now)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}

	for _, table := range []string{"corrections", "formatting_changes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE document_id = ?", documentID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, c := range result.Corrections {
		status := c.Status
		if status == "" {
			status = model.StatusPending
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO corrections (document_id, id, seq, kind, original, replacement, reason, span_start, span_end, confidence, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			documentID, c.ID, i, string(c.Kind), c.Original, c.Replacement, c.Reason, c.Span.Start, c.Span.End, c.Confidence, string(status))
		if err != nil {
			return fmt.Errorf("save correction %s: %w", c.ID, err)
		}
	}

	for i, f := range result.FormattingChanges {
		status := f.Status
		if status == "" {
			status = model.StatusPending
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO formatting_changes (document_id, id, seq, kind, text, span_start, span_end, suggestion, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			documentID, f.ID, i, string(f.Kind), f.Text, f.Span.Start, f.Span.End, f.Suggestion, string(status))
		if err != nil {
			return fmt.Errorf("save formatting change %s: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Debug("detection saved",
		"document", documentID,
		"corrections", len(result.Corrections),
		"formatting", len(result.FormattingChanges))
	return nil
}

// Document loads one document
func (s *Store) Document(ctx context.Context, documentID string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, source, applied, revision, corrected_text, confidence, provenance, detected_at, updated_at
		FROM documents WHERE id = ?`, documentID)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", documentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return doc, nil
}

// Documents lists all stored documents ordered by id
func (s *Store) Documents(ctx context.Context) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, source, applied, revision, corrected_text, confidence, provenance, detected_at, updated_at
		FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*Document, error) {
	var (
		doc                   Document
		provenance            string
		detectedAt, updatedAt int64
	)
	err := row.Scan(&doc.ID, &doc.Path, &doc.Source, &doc.Applied, &doc.Revision,
		&doc.CorrectedText, &doc.Confidence, &provenance, &detectedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(provenance), &doc.Provenance); err != nil {
		return nil, fmt.Errorf("decode provenance: %w", err)
	}
	doc.DetectedAt = time.UnixMilli(detectedAt)
	doc.UpdatedAt = time.UnixMilli(updatedAt)
	return &doc, nil
}
