package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/majalla/internal/model"
)

// Corrections returns a document's corrections in detection order
func (s *Store) Corrections(ctx context.Context, documentID string) ([]model.Correction, error) {
	return s.queryCorrections(ctx, `
		SELECT id, kind, original, replacement, reason, span_start, span_end, confidence, status
		FROM corrections WHERE document_id = ? ORDER BY seq`, documentID)
}

// ApprovedCorrections returns the corrections the applier should splice
func (s *Store) ApprovedCorrections(ctx context.Context, documentID string) ([]model.Correction, error) {
	return s.queryCorrections(ctx, `
		SELECT id, kind, original, replacement, reason, span_start, span_end, confidence, status
		FROM corrections WHERE document_id = ? AND status IN (?, ?) ORDER BY seq`,
		documentID, string(model.StatusApproved), string(model.StatusDeleted))
}

func (s *Store) queryCorrections(ctx context.Context, query string, args ...any) ([]model.Correction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query corrections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	corrections := []model.Correction{}
	for rows.Next() {
		var (
			c            model.Correction
			kind, status string
		)
		if err := rows.Scan(&c.ID, &kind, &c.Original, &c.Replacement, &c.Reason,
			&c.Span.Start, &c.Span.End, &c.Confidence, &status); err != nil {
			return nil, fmt.Errorf("scan correction: %w", err)
		}
		c.Kind = model.CorrectionKind(kind)
		c.Status = model.Status(status)
		corrections = append(corrections, c)
	}
	return corrections, rows.Err()
}

// FormattingChanges returns a document's formatting changes in detection order
func (s *Store) FormattingChanges(ctx context.Context, documentID string) ([]model.FormattingChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, text, span_start, span_end, suggestion, status
		FROM formatting_changes WHERE document_id = ? ORDER BY seq`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query formatting changes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	changes := []model.FormattingChange{}
	for rows.Next() {
		var (
			f            model.FormattingChange
			kind, status string
		)
		if err := rows.Scan(&f.ID, &kind, &f.Text, &f.Span.Start, &f.Span.End, &f.Suggestion, &status); err != nil {
			return nil, fmt.Errorf("scan formatting change: %w", err)
		}
		f.Kind = model.FormattingKind(kind)
		f.Status = model.Status(status)
		changes = append(changes, f)
	}
	return changes, rows.Err()
}

// Result rebuilds the stored DetectionResult for a document
func (s *Store) Result(ctx context.Context, documentID string) (model.DetectionResult, error) {
	doc, err := s.Document(ctx, documentID)
	if err != nil {
		return model.DetectionResult{}, err
	}

	corrections, err := s.Corrections(ctx, documentID)
	if err != nil {
		return model.DetectionResult{}, err
	}
	changes, err := s.FormattingChanges(ctx, documentID)
	if err != nil {
		return model.DetectionResult{}, err
	}

	return model.DetectionResult{
		Corrections:       corrections,
		FormattingChanges: changes,
		CorrectedText:     doc.CorrectedText,
		Confidence:        doc.Confidence,
		Provenance:        doc.Provenance,
	}, nil
}

// SetStatus records a reviewer decision on a correction or formatting change
func (s *Store) SetStatus(ctx context.Context, documentID, id string, status model.Status) error {
	if _, ok := model.ParseStatus(string(status)); !ok {
		return fmt.Errorf("invalid status %q", status)
	}

	for _, table := range []string{"corrections", "formatting_changes"} {
		res, err := s.db.ExecContext(ctx,
			"UPDATE "+table+" SET status = ? WHERE document_id = ? AND id = ?",
			string(status), documentID, id)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if n > 0 {
			s.logger.Debug("status updated", "document", documentID, "id", id, "status", status)
			return s.touch(ctx, documentID)
		}
	}

	return fmt.Errorf("%s/%s: %w", documentID, id, ErrNotFound)
}

// SaveAppliedText stores the applier's output and returns the new revision
func (s *Store) SaveAppliedText(ctx context.Context, documentID, text string) (int, error) {
	var revision int
	err := s.db.QueryRowContext(ctx, `
		UPDATE documents SET applied = ?, revision = revision + 1, updated_at = ?
		WHERE id = ? RETURNING revision`,
		text, time.Now().UnixMilli(), documentID).Scan(&revision)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("document %s: %w", documentID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("save applied text: %w", err)
	}

	s.logger.Info("applied text saved", "document", documentID, "revision", revision)
	return revision, nil
}

func (s *Store) touch(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE documents SET updated_at = ? WHERE id = ?", time.Now().UnixMilli(), documentID)
	if err != nil {
		return fmt.Errorf("touch document: %w", err)
	}
	return nil
}
