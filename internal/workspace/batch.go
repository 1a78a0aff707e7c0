package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/atrium/internal/apperr"
	"github.com/starford/atrium/internal/models"
	"github.com/starford/atrium/internal/notify"
	"github.com/starford/atrium/internal/store"
	"github.com/starford/atrium/internal/vpath"
)

// DirMoveItem moves one directory subtree, optionally into another project.
type DirMoveItem struct {
	FromProjectID string `json:"from_project_id"`
	ToProjectID   string `json:"to_project_id,omitempty"`
	OldPath       string `json:"old_path"`
	NewPath       string `json:"new_path"`
}

// FileMoveItem moves one file, optionally into another project. An empty
// NewPath keeps the current path.
type FileMoveItem struct {
	FileID      string `json:"file_id"`
	ToProjectID string `json:"to_project_id,omitempty"`
	NewPath     string `json:"new_path,omitempty"`
}

// BatchMoveRequest is a heterogeneous list of moves.
type BatchMoveRequest struct {
	Dirs   []DirMoveItem  `json:"dirs"`
	Files  []FileMoveItem `json:"files"`
	DryRun bool           `json:"dry_run"`
}

// FileMoveOutcome is the preview or result of one file item.
type FileMoveOutcome struct {
	Applied       bool   `json:"applied"`
	FileID        string `json:"file_id"`
	FromProjectID string `json:"from_project_id"`
	ToProjectID   string `json:"to_project_id"`
	OldPath       string `json:"old_path"`
	NewPath       string `json:"new_path"`
}

// BatchMoveResult collects per-item outcomes. Failed items appear only in
// Failures, as "dir[i]: reason" or "file[i]: reason".
type BatchMoveResult struct {
	Applied      bool               `json:"applied"`
	AppliedDirs  []*MoveDirResult   `json:"applied_dirs"`
	AppliedFiles []*FileMoveOutcome `json:"applied_files"`
	Failures     []string           `json:"failures"`
	DirsCount    int                `json:"dirs_count"`
	FilesCount   int                `json:"files_count"`
}

// BatchMove runs every item independently. A failing item is recorded and
// the batch continues; applied items are never rolled back. One
// files.batch_moved event is published per project touched.
func (e *Engine) BatchMove(ctx context.Context, req BatchMoveRequest) *BatchMoveResult {
	out := &BatchMoveResult{
		Applied:      !req.DryRun,
		AppliedDirs:  []*MoveDirResult{},
		AppliedFiles: []*FileMoveOutcome{},
		Failures:     []string{},
	}
	touched := make(map[string]struct{})
	var order []string
	touch := func(ids ...string) {
		for _, id := range ids {
			if _, ok := touched[id]; !ok {
				touched[id] = struct{}{}
				order = append(order, id)
			}
		}
	}

	for i, item := range req.Dirs {
		res, err := e.batchDir(ctx, item, req.DryRun)
		if err != nil {
			out.Failures = append(out.Failures, fmt.Sprintf("dir[%d]: %v", i, err))
			continue
		}
		out.AppliedDirs = append(out.AppliedDirs, res)
		out.DirsCount += res.DirsCount
		out.FilesCount += res.FilesCount
		touch(res.FromProjectID, res.ToProjectID)
	}
	for i, item := range req.Files {
		res, err := e.batchFile(ctx, item, req.DryRun)
		if err != nil {
			out.Failures = append(out.Failures, fmt.Sprintf("file[%d]: %v", i, err))
			continue
		}
		out.AppliedFiles = append(out.AppliedFiles, res)
		out.FilesCount++
		touch(res.FromProjectID, res.ToProjectID)
	}

	if len(out.Failures) > 0 {
		e.logger.Info("workspace: batch move finished with failures",
			slog.Int("failures", len(out.Failures)), slog.Bool("dry_run", req.DryRun))
	}
	if req.DryRun {
		return out
	}
	for _, id := range order {
		e.invalidateTree(id)
		e.events.Fire(id, notify.FilesBatchMoved, map[string]any{
			"project_id":  id,
			"dirs_count":  out.DirsCount,
			"files_count": out.FilesCount,
		})
	}
	return out
}

func (e *Engine) batchProjects(ctx context.Context, fromID, toID string) (*models.Project, *models.Project, error) {
	src, err := e.db.GetProject(ctx, fromID)
	if err != nil {
		return nil, nil, err
	}
	if toID == "" || toID == src.ID {
		return src, src, nil
	}
	dst, err := e.db.GetProject(ctx, toID)
	if err != nil {
		return nil, nil, err
	}
	return src, dst, nil
}

func (e *Engine) batchDir(ctx context.Context, item DirMoveItem, dryRun bool) (*MoveDirResult, error) {
	src, dst, err := e.batchProjects(ctx, item.FromProjectID, item.ToProjectID)
	if err != nil {
		return nil, err
	}
	if src.ID == dst.ID {
		return e.moveDir(ctx, src, item.OldPath, item.NewPath, dryRun)
	}

	plan, err := e.planDirMove(ctx, src, dst, item.OldPath, item.NewPath)
	if err != nil {
		return nil, err
	}
	if dryRun {
		return plan.res, nil
	}
	res := plan.res

	if err := e.files.MkdirAll(dst.Slug, res.NewPath); err != nil {
		return nil, err
	}
	for _, f := range plan.files {
		if err := e.transferFile(ctx, f, src, dst, vpath.Rebase(f.Path, res.OldPath, res.NewPath)); err != nil {
			return nil, fmt.Errorf("%s: %w", f.Path, err)
		}
	}
	err = e.db.InTx(ctx, func(q *store.Queries) error {
		for _, d := range plan.dirs {
			to := vpath.Rebase(d.Path, res.OldPath, res.NewPath)
			if _, _, err := q.EnsureDir(ctx, &models.Directory{ProjectID: dst.ID, Path: to, Name: vpath.Base(to)}); err != nil {
				return err
			}
		}
		_, err := q.DeleteDirsUnder(ctx, src.ID, res.OldPath)
		return err
	})
	if err != nil {
		return nil, err
	}
	for _, d := range plan.dirs {
		if err := e.files.MkdirAll(dst.Slug, vpath.Rebase(d.Path, res.OldPath, res.NewPath)); err != nil {
			e.logger.Warn("workspace: create directory failed",
				slog.String("project", dst.Slug), slog.String("path", d.Path), slog.String("error", err.Error()))
		}
	}
	if err := e.files.RemoveAll(src.Slug, res.OldPath); err != nil {
		e.logger.Warn("workspace: remove source directory failed",
			slog.String("project", src.Slug), slog.String("path", res.OldPath), slog.String("error", err.Error()))
	}

	res.Applied = true
	return res, nil
}

func (e *Engine) batchFile(ctx context.Context, item FileMoveItem, dryRun bool) (*FileMoveOutcome, error) {
	f, err := e.db.GetFile(ctx, item.FileID)
	if err != nil {
		return nil, err
	}
	src, dst, err := e.batchProjects(ctx, f.ProjectID, item.ToProjectID)
	if err != nil {
		return nil, err
	}
	out := &FileMoveOutcome{
		FileID:        f.ID,
		FromProjectID: src.ID,
		ToProjectID:   dst.ID,
		OldPath:       f.Path,
		NewPath:       f.Path,
	}

	if src.ID == dst.ID {
		res, _, err := e.planFileMove(ctx, f, MoveFileRequest{NewPath: item.NewPath, DryRun: dryRun})
		if err != nil {
			return nil, err
		}
		out.NewPath = res.NewPath
		if dryRun {
			return out, nil
		}
		if err := e.applyFileMove(ctx, src, f, res, nil, false); err != nil {
			return nil, err
		}
		out.Applied = true
		return out, nil
	}

	if strings.TrimSpace(item.NewPath) != "" {
		if out.NewPath, err = vpath.Normalize(item.NewPath); err != nil {
			return nil, err
		}
	}
	taken, err := e.db.FileExistsAt(ctx, dst.ID, out.NewPath)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.AlreadyExists("file %q in project %s", out.NewPath, dst.Slug)
	}
	if dryRun {
		return out, nil
	}
	if err := e.transferFile(ctx, f, src, dst, out.NewPath); err != nil {
		return nil, err
	}
	out.Applied = true
	return out, nil
}

// transferFile moves f into another project: copy to the destination tree,
// re-home the row, re-index, re-link, then delete the source artifact.
func (e *Engine) transferFile(ctx context.Context, f *models.File, src, dst *models.Project, newPath string) error {
	oldPath := f.Path
	if err := e.files.Write(dst.Slug, newPath, []byte(f.Content)); err != nil {
		return err
	}
	f.ProjectID = dst.ID
	f.Path = newPath
	if err := e.db.UpdateFile(ctx, f); err != nil {
		return err
	}
	if err := e.syncDerived(ctx, f); err != nil {
		return err
	}
	if err := e.graph.Detach(ctx, f, src.ID); err != nil {
		return err
	}
	if err := e.graph.Retarget(ctx, f); err != nil {
		return err
	}
	e.removeArtifact(src.Slug, oldPath)
	return nil
}
