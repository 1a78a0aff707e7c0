package workspace

import (
	"context"
	"log/slog"

	"github.com/starford/atrium/internal/apperr"
	"github.com/starford/atrium/internal/models"
	"github.com/starford/atrium/internal/notify"
	"github.com/starford/atrium/internal/store"
	"github.com/starford/atrium/internal/vpath"
)

// DirChange is one directory row relocated by a move.
type DirChange struct {
	ID   string `json:"id,omitempty"`
	From string `json:"from"`
	To   string `json:"to"`
}

// FileMove is one file relocated by a move.
type FileMove struct {
	FileID string `json:"file_id"`
	From   string `json:"from"`
	To     string `json:"to"`
}

// MoveDirResult is both the dry-run preview and the applied result of a
// directory move.
type MoveDirResult struct {
	Applied       bool        `json:"applied"`
	FromProjectID string      `json:"from_project_id"`
	ToProjectID   string      `json:"to_project_id"`
	OldPath       string      `json:"old_path"`
	NewPath       string      `json:"new_path"`
	DirChanges    []DirChange `json:"dir_changes"`
	FileMoves     []FileMove  `json:"file_moves"`
	DirsCount     int         `json:"dirs_count"`
	FilesCount    int         `json:"files_count"`
}

// dirPlan carries the rows a directory move touches.
type dirPlan struct {
	res   *MoveDirResult
	dirs  []*models.Directory
	files []*models.File
}

// MoveDir relocates every directory and file whose path equals or is nested
// under oldPath, keeping relative suffixes.
func (e *Engine) MoveDir(ctx context.Context, projectID, oldPath, newPath string, dryRun bool) (*MoveDirResult, error) {
	proj, err := e.db.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	res, err := e.moveDir(ctx, proj, oldPath, newPath, dryRun)
	if err != nil || !res.Applied || res.OldPath == res.NewPath {
		return res, err
	}
	event := notify.DirMoved
	if vpath.Dir(res.OldPath) == vpath.Dir(res.NewPath) {
		event = notify.DirRenamed
	}
	e.events.Fire(projectID, event, res)
	return res, nil
}

func (e *Engine) moveDir(ctx context.Context, proj *models.Project, rawOld, rawNew string, dryRun bool) (*MoveDirResult, error) {
	plan, err := e.planDirMove(ctx, proj, proj, rawOld, rawNew)
	if err != nil {
		return nil, err
	}
	res := plan.res
	if dryRun || res.OldPath == res.NewPath {
		res.Applied = !dryRun
		return res, nil
	}

	if err := e.moveSubtreeOnDisk(proj.Slug, plan); err != nil {
		return nil, err
	}
	err = e.db.InTx(ctx, func(q *store.Queries) error {
		for _, d := range plan.dirs {
			to := vpath.Rebase(d.Path, res.OldPath, res.NewPath)
			if err := q.MoveDir(ctx, d.ID, to, vpath.Base(to)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, f := range plan.files {
		f.Path = vpath.Rebase(f.Path, res.OldPath, res.NewPath)
		if err := e.db.UpdateFile(ctx, f); err != nil {
			return nil, err
		}
		if err := e.syncDerived(ctx, f); err != nil {
			return nil, err
		}
	}

	res.Applied = true
	e.invalidateTree(proj.ID)
	return res, nil
}

// planDirMove validates a directory move from src to dst and lists every
// affected row. It mutates nothing.
func (e *Engine) planDirMove(ctx context.Context, src, dst *models.Project, rawOld, rawNew string) (*dirPlan, error) {
	oldPath, err := vpath.Normalize(rawOld)
	if err != nil {
		return nil, err
	}
	newPath, err := vpath.Normalize(rawNew)
	if err != nil {
		return nil, err
	}
	sameProject := src.ID == dst.ID
	plan := &dirPlan{res: &MoveDirResult{
		FromProjectID: src.ID,
		ToProjectID:   dst.ID,
		OldPath:       oldPath,
		NewPath:       newPath,
		DirChanges:    []DirChange{},
		FileMoves:     []FileMove{},
	}}
	if sameProject && oldPath == newPath {
		return plan, nil
	}
	if sameProject && vpath.StrictlyUnder(newPath, oldPath) {
		return nil, apperr.BadPath("cannot move %q into itself", oldPath)
	}

	if plan.dirs, err = e.db.ListDirsUnder(ctx, src.ID, oldPath); err != nil {
		return nil, err
	}
	if plan.files, err = e.db.ListFilesUnder(ctx, src.ID, oldPath); err != nil {
		return nil, err
	}
	if len(plan.dirs) == 0 && len(plan.files) == 0 && !e.files.IsDir(src.Slug, oldPath) {
		return nil, apperr.NotFound("directory")
	}

	if sameProject {
		if vpath.StrictlyUnder(oldPath, newPath) || e.files.Exists(dst.Slug, newPath) {
			return nil, apperr.AlreadyExists("directory %q", newPath)
		}
	}
	for _, d := range plan.dirs {
		to := vpath.Rebase(d.Path, oldPath, newPath)
		if sameProject {
			if _, err := e.db.GetDir(ctx, dst.ID, to); err == nil {
				return nil, apperr.AlreadyExists("directory %q", to)
			}
		}
		plan.res.DirChanges = append(plan.res.DirChanges, DirChange{ID: d.ID, From: d.Path, To: to})
	}
	for _, f := range plan.files {
		to := vpath.Rebase(f.Path, oldPath, newPath)
		taken, err := e.db.FileExistsAt(ctx, dst.ID, to)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.AlreadyExists("file %q", to)
		}
		plan.res.FileMoves = append(plan.res.FileMoves, FileMove{FileID: f.ID, From: f.Path, To: to})
	}
	plan.res.DirsCount = len(plan.res.DirChanges)
	plan.res.FilesCount = len(plan.res.FileMoves)
	return plan, nil
}

// moveSubtreeOnDisk renames the subtree once. When the source is missing the
// destination is created and the stored content of each file written into it.
func (e *Engine) moveSubtreeOnDisk(slug string, plan *dirPlan) error {
	oldPath, newPath := plan.res.OldPath, plan.res.NewPath
	if e.files.IsDir(slug, oldPath) {
		return e.files.Rename(slug, oldPath, newPath)
	}
	e.logger.Warn("workspace: directory missing on disk, writing stored content",
		slog.String("project", slug), slog.String("path", oldPath))
	if err := e.files.MkdirAll(slug, newPath); err != nil {
		return err
	}
	for _, d := range plan.dirs {
		if err := e.files.MkdirAll(slug, vpath.Rebase(d.Path, oldPath, newPath)); err != nil {
			return err
		}
	}
	for _, f := range plan.files {
		if err := e.files.Write(slug, vpath.Rebase(f.Path, oldPath, newPath), []byte(f.Content)); err != nil {
			return err
		}
	}
	return nil
}
