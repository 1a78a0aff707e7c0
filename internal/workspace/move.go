package workspace

import (
	"context"
	"strings"

	"github.com/starford/atrium/internal/apperr"
	"github.com/starford/atrium/internal/models"
	"github.com/starford/atrium/internal/notify"
	"github.com/starford/atrium/internal/vpath"
)

// MoveFileRequest asks for a new path, a new title, or both. Empty fields
// keep the current value.
type MoveFileRequest struct {
	NewPath     string
	NewTitle    string
	UpdateLinks bool
	DryRun      bool
}

// TitleChange is the from/to pair of a rename.
type TitleChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// MoveFileResult is both the dry-run preview and the applied result.
type MoveFileResult struct {
	Applied        bool             `json:"applied"`
	WillMove       bool             `json:"will_move"`
	OldPath        string           `json:"old_path"`
	NewPath        string           `json:"new_path"`
	TitleChange    *TitleChange     `json:"title_change,omitempty"`
	FilesToRewrite []models.FileRef `json:"files_to_rewrite"`
	RewriteCount   int              `json:"rewrite_count"`
	Rewritten      int              `json:"rewritten"`
	File           *models.File     `json:"file,omitempty"`
}

// MoveFile moves and/or renames a file. With DryRun nothing is mutated and
// the result previews the path change and the files a cascade would rewrite.
func (e *Engine) MoveFile(ctx context.Context, fileID string, req MoveFileRequest) (*MoveFileResult, error) {
	f, err := e.db.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	proj, err := e.db.GetProject(ctx, f.ProjectID)
	if err != nil {
		return nil, err
	}
	res, targets, err := e.planFileMove(ctx, f, req)
	if err != nil || req.DryRun {
		return res, err
	}
	if err := e.applyFileMove(ctx, proj, f, res, targets, req.UpdateLinks); err != nil {
		return nil, err
	}
	e.events.Fire(f.ProjectID, notify.FileMoved, res)
	return res, nil
}

// planFileMove validates the request and computes the preview. It returns
// the cascade targets so apply does not query twice.
func (e *Engine) planFileMove(ctx context.Context, f *models.File, req MoveFileRequest) (*MoveFileResult, []*models.File, error) {
	newPath := f.Path
	if strings.TrimSpace(req.NewPath) != "" {
		p, err := vpath.Normalize(req.NewPath)
		if err != nil {
			return nil, nil, err
		}
		newPath = p
	}
	res := &MoveFileResult{
		WillMove:       newPath != f.Path,
		OldPath:        f.Path,
		NewPath:        newPath,
		FilesToRewrite: []models.FileRef{},
	}
	if res.WillMove {
		taken, err := e.db.FileExistsAt(ctx, f.ProjectID, newPath)
		if err != nil {
			return nil, nil, err
		}
		if taken {
			return nil, nil, apperr.AlreadyExists("file %q", newPath)
		}
	}

	var targets []*models.File
	if title := strings.TrimSpace(req.NewTitle); title != "" && title != f.Title {
		res.TitleChange = &TitleChange{From: f.Title, To: title}
		if req.UpdateLinks {
			var err error
			targets, err = e.cascadeTargets(ctx, f, f.Title)
			if err != nil {
				return nil, nil, err
			}
			for _, t := range targets {
				res.FilesToRewrite = append(res.FilesToRewrite, t.Ref())
			}
			res.RewriteCount = len(targets)
		}
	}
	return res, targets, nil
}

// applyFileMove mutates disk, store, search and links in that order.
func (e *Engine) applyFileMove(ctx context.Context, proj *models.Project, f *models.File, res *MoveFileResult, targets []*models.File, updateLinks bool) error {
	oldPath := f.Path
	f.Path = res.NewPath
	if res.TitleChange != nil {
		f.Title = res.TitleChange.To
	}

	if res.WillMove {
		if e.files.Exists(proj.Slug, oldPath) {
			if err := e.files.Rename(proj.Slug, oldPath, f.Path); err != nil {
				return err
			}
		} else if err := e.files.Write(proj.Slug, f.Path, []byte(f.Content)); err != nil {
			return err
		}
	}
	if err := e.db.UpdateFile(ctx, f); err != nil {
		return err
	}
	if err := e.syncDerived(ctx, f); err != nil {
		return err
	}
	if res.TitleChange != nil {
		if err := e.graph.Retarget(ctx, f); err != nil {
			return err
		}
		if updateLinks {
			res.Rewritten = e.cascade(ctx, proj.Slug, targets, res.TitleChange.From, res.TitleChange.To)
		}
	}
	if res.WillMove && oldPath != f.Path {
		e.removeArtifact(proj.Slug, oldPath)
	}

	res.Applied = true
	res.File = f
	e.invalidateTree(f.ProjectID)
	return nil
}
