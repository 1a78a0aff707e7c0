package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/starford/atrium/internal/models"
)

// DeleteLinksFrom removes every outgoing edge of a file.
func (s *Queries) DeleteLinksFrom(ctx context.Context, srcFileID string) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM links WHERE src_file_id = ?`, srcFileID); err != nil {
		return fmt.Errorf("store: delete links: %w", err)
	}
	return nil
}

// InsertLink adds one edge. An empty TargetFileID is stored as NULL.
func (s *Queries) InsertLink(ctx context.Context, l *models.Link) error {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO links (project_id, src_file_id, src_path, target_title, target_file_id)
		VALUES (?, ?, ?, ?, ?)
	`, l.ProjectID, l.SrcFileID, l.SrcPath, l.TargetTitle, nullString(l.TargetFileID))
	if err != nil {
		return fmt.Errorf("store: insert link: %w", err)
	}
	l.ID, _ = res.LastInsertId()
	return nil
}

// LinksFrom returns the outgoing edges of a file in insertion order.
func (s *Queries) LinksFrom(ctx context.Context, srcFileID string) ([]models.Link, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, project_id, src_file_id, src_path, target_title, target_file_id
		FROM links WHERE src_file_id = ? ORDER BY id
	`, srcFileID)
	if err != nil {
		return nil, fmt.Errorf("store: links from: %w", err)
	}
	defer rows.Close()

	var out []models.Link
	for rows.Next() {
		var (
			l      models.Link
			target sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.ProjectID, &l.SrcFileID, &l.SrcPath, &l.TargetTitle, &target); err != nil {
			return nil, err
		}
		l.TargetFileID = target.String
		out = append(out, l)
	}
	return out, rows.Err()
}

// Backlinks returns the distinct source files linking to fileID, either by
// resolved id or by an unresolved edge naming title.
func (s *Queries) Backlinks(ctx context.Context, projectID, fileID, title string) ([]models.FileRef, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT DISTINCT f.id, f.path, f.title
		FROM links l
		JOIN files f ON f.id = l.src_file_id
		WHERE l.target_file_id = ?
		   OR (l.target_file_id IS NULL AND l.project_id = ? AND l.target_title = ?)
		ORDER BY f.path
	`, fileID, projectID, title)
	if err != nil {
		return nil, fmt.Errorf("store: backlinks: %w", err)
	}
	defer rows.Close()

	var out []models.FileRef
	for rows.Next() {
		var r models.FileRef
		if err := rows.Scan(&r.ID, &r.Path, &r.Title); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UnresolveStale clears edges that resolved to fileID under a title other
// than the file's current one.
func (s *Queries) UnresolveStale(ctx context.Context, fileID, title string) (int, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE links SET target_file_id = NULL WHERE target_file_id = ? AND target_title != ?`, fileID, title)
	if err != nil {
		return 0, fmt.Errorf("store: unresolve links: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ResolvePending points unresolved edges naming title at fileID.
func (s *Queries) ResolvePending(ctx context.Context, projectID, fileID, title string) (int, error) {
	res, err := s.q.ExecContext(ctx, `
		UPDATE links SET target_file_id = ?
		WHERE project_id = ? AND target_file_id IS NULL AND target_title = ?
	`, fileID, projectID, title)
	if err != nil {
		return 0, fmt.Errorf("store: resolve links: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// PendingTitles returns the distinct titles named by unresolved edges of a
// project.
func (s *Queries) PendingTitles(ctx context.Context, projectID string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT DISTINCT target_title FROM links
		WHERE project_id = ? AND target_file_id IS NULL
		ORDER BY target_title
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("store: pending titles: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		out = append(out, title)
	}
	return out, rows.Err()
}

// DetachForeign clears edges pointing at fileID from any project other than
// projectID.
func (s *Queries) DetachForeign(ctx context.Context, fileID, projectID string) (int, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE links SET target_file_id = NULL WHERE target_file_id = ? AND project_id != ?`, fileID, projectID)
	if err != nil {
		return 0, fmt.Errorf("store: detach links: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
