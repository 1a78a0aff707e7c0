package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/atrium/internal/apperr"
	"github.com/starford/atrium/internal/models"
)

const dirColumns = `id, project_id, path, name, created_at, updated_at`

func scanDir(r rowScanner) (*models.Directory, error) {
	var d models.Directory
	if err := r.Scan(&d.ID, &d.ProjectID, &d.Path, &d.Name, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Queries) queryDirs(ctx context.Context, query string, args ...any) ([]*models.Directory, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query directories: %w", err)
	}
	defer rows.Close()

	var out []*models.Directory
	for rows.Next() {
		d, err := scanDir(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// EnsureDir inserts a directory unless (project, path) already exists and
// returns the stored row together with whether it was created.
func (s *Queries) EnsureDir(ctx context.Context, d *models.Directory) (*models.Directory, bool, error) {
	if existing, err := s.GetDir(ctx, d.ProjectID, d.Path); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO directories (`+dirColumns+`) VALUES (?, ?, ?, ?, ?, ?)
	`, d.ID, d.ProjectID, d.Path, d.Name, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, false, apperr.AlreadyExists("directory %q", d.Path)
		}
		return nil, false, fmt.Errorf("store: insert directory: %w", err)
	}
	return d, true, nil
}

// GetDir returns the persisted directory at (projectID, path).
func (s *Queries) GetDir(ctx context.Context, projectID, path string) (*models.Directory, error) {
	d, err := scanDir(s.q.QueryRowContext(ctx,
		`SELECT `+dirColumns+` FROM directories WHERE project_id = ? AND path = ?`, projectID, path))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("directory")
		}
		return nil, fmt.Errorf("store: get directory: %w", err)
	}
	return d, nil
}

// ListDirs returns every persisted directory of a project ordered by path.
func (s *Queries) ListDirs(ctx context.Context, projectID string) ([]*models.Directory, error) {
	return s.queryDirs(ctx, `SELECT `+dirColumns+` FROM directories WHERE project_id = ? ORDER BY path`, projectID)
}

// ListDirsUnder returns directories whose path equals or is nested under prefix.
func (s *Queries) ListDirsUnder(ctx context.Context, projectID, prefix string) ([]*models.Directory, error) {
	args := append([]any{projectID}, prefixArgs(prefix)...)
	return s.queryDirs(ctx,
		`SELECT `+dirColumns+` FROM directories WHERE project_id = ? AND `+prefixClause+` ORDER BY path`, args...)
}

// CountDirsStrictlyUnder counts persisted directories nested below prefix.
func (s *Queries) CountDirsStrictlyUnder(ctx context.Context, projectID, prefix string) (int, error) {
	nested := prefix + "/"
	var n int
	err := s.q.QueryRowContext(ctx, `
		SELECT count(*) FROM directories
		WHERE project_id = ? AND substr(path, 1, length(?)) = ?
	`, projectID, nested, nested).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count directories: %w", err)
	}
	return n, nil
}

// MoveDir rewrites the path and name of one directory row.
func (s *Queries) MoveDir(ctx context.Context, id, path, name string) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE directories SET path = ?, name = ?, updated_at = ? WHERE id = ?`,
		path, name, time.Now().UTC(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.AlreadyExists("directory %q", path)
		}
		return fmt.Errorf("store: move directory: %w", err)
	}
	return nil
}

// DeleteDirsUnder removes the directory at prefix and every directory below
// it, returning the number of removed rows.
func (s *Queries) DeleteDirsUnder(ctx context.Context, projectID, prefix string) (int, error) {
	args := append([]any{projectID}, prefixArgs(prefix)...)
	res, err := s.q.ExecContext(ctx, `DELETE FROM directories WHERE project_id = ? AND `+prefixClause, args...)
	if err != nil {
		return 0, fmt.Errorf("store: delete directories: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
