package workspace

import (
	"context"
	"log/slog"

	"github.com/starford/atrium/internal/models"
	"github.com/starford/atrium/internal/parser"
)

// cascadeTargets returns the files of renamed's project, other than renamed
// itself, whose content holds the exact reference [[oldTitle]].
func (e *Engine) cascadeTargets(ctx context.Context, renamed *models.File, oldTitle string) ([]*models.File, error) {
	return e.db.FilesContaining(ctx, renamed.ProjectID, parser.Wikilink(oldTitle), renamed.ID)
}

// cascade rewrites [[oldTitle]] to [[newTitle]] in every target. Each file is
// committed on its own; a failing file is logged and skipped. It returns the
// number of files rewritten.
func (e *Engine) cascade(ctx context.Context, slug string, targets []*models.File, oldTitle, newTitle string) int {
	rewritten := 0
	for _, f := range targets {
		changed, err := e.rewriteOne(ctx, slug, f, oldTitle, newTitle)
		if err != nil {
			e.logger.Warn("workspace: cascade rewrite failed",
				slog.String("file_id", f.ID),
				slog.String("path", f.Path),
				slog.String("error", err.Error()))
			continue
		}
		if changed {
			rewritten++
		}
	}
	return rewritten
}

func (e *Engine) rewriteOne(ctx context.Context, slug string, f *models.File, oldTitle, newTitle string) (bool, error) {
	content, n := parser.RewriteWikilinks(f.Content, oldTitle, newTitle)
	if n == 0 {
		return false, nil
	}
	f.Content = content
	if err := e.derive(f); err != nil {
		return false, err
	}
	if err := e.files.Write(slug, f.Path, []byte(f.Content)); err != nil {
		return false, err
	}
	if err := e.db.UpdateFile(ctx, f); err != nil {
		return false, err
	}
	return true, e.syncDerived(ctx, f)
}
