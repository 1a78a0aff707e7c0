package workspace

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/starford/atrium/internal/apperr"
	"github.com/starford/atrium/internal/checksum"
	"github.com/starford/atrium/internal/links"
	"github.com/starford/atrium/internal/models"
	"github.com/starford/atrium/internal/notify"
	"github.com/starford/atrium/internal/parser"
	"github.com/starford/atrium/internal/store"
	"github.com/starford/atrium/internal/vpath"
)

// CreateFileInput describes a new file.
type CreateFileInput struct {
	Path    string
	Title   string
	Content string
	Tags    []string
}

// UpdateFileInput changes selected fields of a file. Nil fields are kept.
// A non-empty IfMatch must equal the stored checksum.
type UpdateFileInput struct {
	Content *string
	Title   *string
	Tags    []string
	IfMatch string
}

// defaultTitle is the file name without its .md extension.
func defaultTitle(p string) string {
	return strings.TrimSuffix(vpath.Base(p), ".md")
}

// CreateFile writes a new file to disk and the store, then indexes and links it.
func (e *Engine) CreateFile(ctx context.Context, projectID string, in CreateFileInput) (*models.File, error) {
	p, err := vpath.Normalize(in.Path)
	if err != nil {
		return nil, err
	}
	proj, err := e.db.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	taken, err := e.db.FileExistsAt(ctx, projectID, p)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.AlreadyExists("file %q", p)
	}

	res := parser.Parse(in.Content)
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = res.Title
	}
	if title == "" {
		title = defaultTitle(p)
	}
	f := &models.File{
		ProjectID: projectID,
		Path:      p,
		Title:     title,
		Content:   in.Content,
		Tags:      parser.MergeTags(in.Tags, res.Tags),
	}
	if err := e.derive(f); err != nil {
		return nil, err
	}

	if err := e.files.Write(proj.Slug, p, []byte(f.Content)); err != nil {
		return nil, err
	}
	if err := e.db.InsertFile(ctx, f); err != nil {
		e.removeArtifact(proj.Slug, p)
		return nil, err
	}
	if err := e.syncDerived(ctx, f); err != nil {
		return nil, err
	}
	if err := e.graph.Retarget(ctx, f); err != nil {
		return nil, err
	}

	e.invalidateTree(projectID)
	e.events.Fire(projectID, notify.FileCreated, f.Ref())
	return f, nil
}

// GetFile returns a file. When its artifact is missing on disk the stored
// content is written back.
func (e *Engine) GetFile(ctx context.Context, id string) (*models.File, error) {
	f, err := e.db.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}
	proj, err := e.db.GetProject(ctx, f.ProjectID)
	if err != nil {
		return nil, err
	}
	if !e.files.Exists(proj.Slug, f.Path) {
		if err := e.files.Write(proj.Slug, f.Path, []byte(f.Content)); err != nil {
			e.logger.Warn("workspace: restore artifact failed",
				slog.String("path", f.Path), slog.String("error", err.Error()))
		} else {
			e.logger.Info("workspace: restored missing artifact",
				slog.String("project", proj.Slug), slog.String("path", f.Path))
		}
	}
	return f, nil
}

// ListFiles returns every file of a project.
func (e *Engine) ListFiles(ctx context.Context, projectID string) ([]*models.File, error) {
	if _, err := e.db.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	out, err := e.db.ListFiles(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*models.File{}
	}
	return out, nil
}

// UpdateFile edits content, title or tags. A title change re-targets links
// to the file but does not rewrite other files; use MoveFile for that.
func (e *Engine) UpdateFile(ctx context.Context, id string, in UpdateFileInput) (*models.File, error) {
	f, err := e.db.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.IfMatch != "" && in.IfMatch != f.Checksum {
		return nil, apperr.ErrConflict
	}
	proj, err := e.db.GetProject(ctx, f.ProjectID)
	if err != nil {
		return nil, err
	}

	oldTitle := f.Title
	if in.Content != nil {
		f.Content = *in.Content
		f.Tags = parser.MergeTags(in.Tags, parser.Parse(f.Content).Tags)
	} else if in.Tags != nil {
		f.Tags = parser.MergeTags(in.Tags, nil)
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperr.Invalid("title must not be blank")
		}
		f.Title = title
	}
	if err := e.derive(f); err != nil {
		return nil, err
	}

	if err := e.files.Write(proj.Slug, f.Path, []byte(f.Content)); err != nil {
		return nil, err
	}
	if err := e.db.UpdateFile(ctx, f); err != nil {
		return nil, err
	}
	if err := e.syncDerived(ctx, f); err != nil {
		return nil, err
	}
	if f.Title != oldTitle {
		if err := e.graph.Retarget(ctx, f); err != nil {
			return nil, err
		}
		e.invalidateTree(f.ProjectID)
	}

	e.events.Fire(f.ProjectID, notify.FileUpdated, f.Ref())
	return f, nil
}

// DeleteFile removes a file. Its outgoing links go with it. Links pointing at
// it move to another file with the same title, or become unresolved.
func (e *Engine) DeleteFile(ctx context.Context, id string) error {
	f, err := e.db.GetFile(ctx, id)
	if err != nil {
		return err
	}
	proj, err := e.db.GetProject(ctx, f.ProjectID)
	if err != nil {
		return err
	}
	if err := e.deleteFileRow(ctx, f); err != nil {
		return err
	}
	if err := e.index.Delete(ctx, id); err != nil {
		return err
	}
	e.removeArtifact(proj.Slug, f.Path)

	e.invalidateTree(f.ProjectID)
	e.events.Fire(f.ProjectID, notify.FileDeleted, f.Ref())
	return nil
}

// deleteFileRow drops the row of f and re-resolves the edges it released in
// the same transaction.
func (e *Engine) deleteFileRow(ctx context.Context, f *models.File) error {
	return e.db.InTx(ctx, func(q *store.Queries) error {
		if err := q.DeleteFile(ctx, f.ID); err != nil {
			return err
		}
		_, err := links.ResolveTx(ctx, q, f.ProjectID)
		return err
	})
}

// OutgoingLinks lists the wikilink edges of a file.
func (e *Engine) OutgoingLinks(ctx context.Context, id string) ([]models.Link, error) {
	if _, err := e.db.GetFile(ctx, id); err != nil {
		return nil, err
	}
	out, err := e.graph.Outgoing(ctx, id)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Link{}
	}
	return out, nil
}

// Backlinks lists the files linking to a file.
func (e *Engine) Backlinks(ctx context.Context, id string) ([]models.FileRef, error) {
	f, err := e.db.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.graph.Backlinks(ctx, f)
}

// RefreshLinks re-derives the outgoing links of a file from its content.
func (e *Engine) RefreshLinks(ctx context.Context, id string) (int, error) {
	f, err := e.db.GetFile(ctx, id)
	if err != nil {
		return 0, err
	}
	return e.graph.Upsert(ctx, f)
}

// ImportArtifact brings the store in line with content found on disk for
// (slug, path). Unknown paths are ignored.
func (e *Engine) ImportArtifact(ctx context.Context, slug, path string, content []byte) (bool, error) {
	proj, err := e.db.GetProjectBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	f, err := e.db.GetFileByPath(ctx, proj.ID, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if checksum.Sum(content) == f.Checksum {
		return false, nil
	}
	f.Content = string(content)
	f.Tags = parser.MergeTags(nil, parser.Parse(f.Content).Tags)
	if err := e.derive(f); err != nil {
		return false, err
	}
	if err := e.db.UpdateFile(ctx, f); err != nil {
		return false, err
	}
	if err := e.syncDerived(ctx, f); err != nil {
		return false, err
	}
	e.events.Fire(f.ProjectID, notify.FileUpdated, f.Ref())
	return true, nil
}
