package workspace

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/starford/atrium/internal/apperr"
	"github.com/starford/atrium/internal/models"
	"github.com/starford/atrium/internal/notify"
)

var (
	slugRe      = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	slugStripRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify derives a project slug from a display name. Accents are dropped
// before anything outside [a-z0-9] collapses to a dash.
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, name)
	if err != nil {
		plain = name
	}
	return strings.Trim(slugStripRe.ReplaceAllString(strings.ToLower(plain), "-"), "-")
}

// CreateProject registers a project. An empty slug is derived from name.
func (e *Engine) CreateProject(ctx context.Context, name, slug string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if slug == "" {
		slug = Slugify(name)
	}
	err := validation.Errors{
		"name": validation.Validate(name, validation.Required, validation.Length(1, 200)),
		"slug": validation.Validate(slug, validation.Required, validation.Length(1, 64), validation.Match(slugRe)),
	}.Filter()
	if err != nil {
		return nil, apperr.Invalid("%s", err.Error())
	}

	p := &models.Project{Name: name, Slug: slug}
	if err := e.db.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	if err := e.files.MkdirAll(slug, ""); err != nil {
		e.logger.Warn("workspace: create project root failed",
			slog.String("project", slug), slog.String("error", err.Error()))
	}
	return p, nil
}

// GetProject returns a project by id.
func (e *Engine) GetProject(ctx context.Context, id string) (*models.Project, error) {
	return e.db.GetProject(ctx, id)
}

// ListProjects returns every project.
func (e *Engine) ListProjects(ctx context.Context) ([]models.Project, error) {
	out, err := e.db.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Project{}
	}
	return out, nil
}

// DeleteProject removes a project with its files, directories, links,
// search documents and on-disk tree.
func (e *Engine) DeleteProject(ctx context.Context, id string) error {
	p, err := e.db.GetProject(ctx, id)
	if err != nil {
		return err
	}
	files, err := e.db.ListFiles(ctx, id)
	if err != nil {
		return err
	}
	if err := e.db.DeleteProject(ctx, id); err != nil {
		return err
	}
	for _, f := range files {
		if err := e.index.Delete(ctx, f.ID); err != nil {
			e.logger.Warn("workspace: drop search document failed",
				slog.String("file_id", f.ID), slog.String("error", err.Error()))
		}
	}
	if err := e.files.DropProject(p.Slug); err != nil {
		e.logger.Warn("workspace: drop project tree failed",
			slog.String("project", p.Slug), slog.String("error", err.Error()))
	}
	e.invalidateTree(id)
	e.events.Fire(id, notify.ProjectDeleted, map[string]string{"project_id": id, "slug": p.Slug})
	return nil
}
