package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/starford/atrium/internal/apperr"
	"github.com/starford/atrium/internal/models"
)

// CreateProject inserts p, assigning an id and timestamp when missing.
func (s *Queries) CreateProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO projects (id, slug, name, created_at) VALUES (?, ?, ?, ?)
	`, p.ID, p.Slug, p.Name, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.AlreadyExists("project %q", p.Slug)
		}
		return fmt.Errorf("store: create project: %w", err)
	}
	return nil
}

// GetProject returns a project by id.
func (s *Queries) GetProject(ctx context.Context, id string) (*models.Project, error) {
	return s.scanProject(s.q.QueryRowContext(ctx,
		`SELECT id, slug, name, created_at FROM projects WHERE id = ?`, id))
}

// GetProjectBySlug returns a project by slug.
func (s *Queries) GetProjectBySlug(ctx context.Context, slug string) (*models.Project, error) {
	return s.scanProject(s.q.QueryRowContext(ctx,
		`SELECT id, slug, name, created_at FROM projects WHERE slug = ?`, slug))
}

func (s *Queries) scanProject(row *sql.Row) (*models.Project, error) {
	var p models.Project
	if err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("project")
		}
		return nil, fmt.Errorf("store: get project: %w", err)
	}
	return &p, nil
}

// ListProjects returns every project ordered by name.
func (s *Queries) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id, slug, name, created_at FROM projects ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("store: list projects: %w", err)
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProject removes a project; files, directories and links cascade.
func (s *Queries) DeleteProject(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("project")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
