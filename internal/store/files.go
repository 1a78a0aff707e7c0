package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/atrium/internal/apperr"
	"github.com/starford/atrium/internal/models"
)

const fileColumns = `id, project_id, path, title, content, rendered_html, tags, checksum, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(r rowScanner) (*models.File, error) {
	var (
		f    models.File
		tags string
	)
	if err := r.Scan(&f.ID, &f.ProjectID, &f.Path, &f.Title, &f.Content, &f.RenderedHTML,
		&tags, &f.Checksum, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &f.Tags); err != nil || f.Tags == nil {
		f.Tags = []string{}
	}
	return &f, nil
}

func (s *Queries) queryFiles(ctx context.Context, query string, args ...any) ([]*models.File, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query files: %w", err)
	}
	defer rows.Close()

	var out []*models.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// InsertFile creates a file row. A taken (project, path) yields ErrAlreadyExists.
func (s *Queries) InsertFile(ctx context.Context, f *models.File) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now
	if f.Tags == nil {
		f.Tags = []string{}
	}
	tagsJSON, _ := json.Marshal(f.Tags)

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO files (`+fileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.ID, f.ProjectID, f.Path, f.Title, f.Content, f.RenderedHTML, string(tagsJSON), f.Checksum, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.AlreadyExists("file %q", f.Path)
		}
		return fmt.Errorf("store: insert file: %w", err)
	}
	return nil
}

// UpdateFile persists every mutable column of f, including project and path.
func (s *Queries) UpdateFile(ctx context.Context, f *models.File) error {
	f.UpdatedAt = time.Now().UTC()
	if f.Tags == nil {
		f.Tags = []string{}
	}
	tagsJSON, _ := json.Marshal(f.Tags)

	res, err := s.q.ExecContext(ctx, `
		UPDATE files SET
			project_id    = ?,
			path          = ?,
			title         = ?,
			content       = ?,
			rendered_html = ?,
			tags          = ?,
			checksum      = ?,
			updated_at    = ?
		WHERE id = ?
	`, f.ProjectID, f.Path, f.Title, f.Content, f.RenderedHTML, string(tagsJSON), f.Checksum, f.UpdatedAt, f.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.AlreadyExists("file %q", f.Path)
		}
		return fmt.Errorf("store: update file: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("file")
	}
	return nil
}

// GetFile returns a file by id.
func (s *Queries) GetFile(ctx context.Context, id string) (*models.File, error) {
	f, err := scanFile(s.q.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("file")
		}
		return nil, fmt.Errorf("store: get file: %w", err)
	}
	return f, nil
}

// GetFileByPath returns the file at (projectID, path).
func (s *Queries) GetFileByPath(ctx context.Context, projectID, path string) (*models.File, error) {
	f, err := scanFile(s.q.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE project_id = ? AND path = ?`, projectID, path))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("file")
		}
		return nil, fmt.Errorf("store: get file by path: %w", err)
	}
	return f, nil
}

// FileExistsAt reports whether (projectID, path) is taken by a file.
func (s *Queries) FileExistsAt(ctx context.Context, projectID, path string) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		`SELECT count(*) FROM files WHERE project_id = ? AND path = ?`, projectID, path).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: file exists: %w", err)
	}
	return n > 0, nil
}

// ListFiles returns every file of a project ordered by path.
func (s *Queries) ListFiles(ctx context.Context, projectID string) ([]*models.File, error) {
	return s.queryFiles(ctx, `SELECT `+fileColumns+` FROM files WHERE project_id = ? ORDER BY path`, projectID)
}

// ListFilesUnder returns files whose path equals or is nested under prefix.
func (s *Queries) ListFilesUnder(ctx context.Context, projectID, prefix string) ([]*models.File, error) {
	args := append([]any{projectID}, prefixArgs(prefix)...)
	return s.queryFiles(ctx,
		`SELECT `+fileColumns+` FROM files WHERE project_id = ? AND `+prefixClause+` ORDER BY path`, args...)
}

// CountFilesUnder counts files whose path equals or is nested under prefix.
func (s *Queries) CountFilesUnder(ctx context.Context, projectID, prefix string) (int, error) {
	args := append([]any{projectID}, prefixArgs(prefix)...)
	var n int
	if err := s.q.QueryRowContext(ctx,
		`SELECT count(*) FROM files WHERE project_id = ? AND `+prefixClause, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count files: %w", err)
	}
	return n, nil
}

// FilesContaining returns files in the project whose content contains needle
// literally, excluding excludeID.
func (s *Queries) FilesContaining(ctx context.Context, projectID, needle, excludeID string) ([]*models.File, error) {
	return s.queryFiles(ctx, `
		SELECT `+fileColumns+` FROM files
		WHERE project_id = ? AND id != ? AND instr(content, ?) > 0
		ORDER BY path
	`, projectID, excludeID, needle)
}

// TitleIndex returns title → file id for a project. When titles collide the
// earliest created file wins.
func (s *Queries) TitleIndex(ctx context.Context, projectID string) (map[string]string, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, title FROM files WHERE project_id = ? ORDER BY created_at, rowid`, projectID)
	if err != nil {
		return nil, fmt.Errorf("store: title index: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, err
		}
		if _, taken := out[title]; !taken {
			out[title] = id
		}
	}
	return out, rows.Err()
}

// DeleteFile removes a file row. Outgoing links cascade, incoming links
// become unresolved.
func (s *Queries) DeleteFile(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete file: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("file")
	}
	return nil
}

// AllFilePaths returns project id → file paths for every project.
func (s *Queries) AllFilePaths(ctx context.Context) (map[string][]string, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT project_id, path FROM files ORDER BY project_id, path`)
	if err != nil {
		return nil, fmt.Errorf("store: all file paths: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var pid, p string
		if err := rows.Scan(&pid, &p); err != nil {
			return nil, err
		}
		out[pid] = append(out[pid], p)
	}
	return out, rows.Err()
}
