package workspace

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/text/cases"

	"github.com/starford/atrium/internal/apperr"
	"github.com/starford/atrium/internal/models"
	"github.com/starford/atrium/internal/notify"
	"github.com/starford/atrium/internal/vpath"
)

// DeleteDirResult reports what a directory delete removed.
type DeleteDirResult struct {
	Path         string `json:"path"`
	RemovedDirs  int    `json:"removed_dirs"`
	RemovedFiles int    `json:"removed_files"`
}

// CreateDir creates a directory on disk and, when directories are persisted,
// records it. Creating an existing directory returns it unchanged.
func (e *Engine) CreateDir(ctx context.Context, projectID, rawPath string) (*models.Directory, bool, error) {
	p, err := vpath.Normalize(rawPath)
	if err != nil {
		return nil, false, err
	}
	proj, err := e.db.GetProject(ctx, projectID)
	if err != nil {
		return nil, false, err
	}
	isFile, err := e.db.FileExistsAt(ctx, projectID, p)
	if err != nil {
		return nil, false, err
	}
	if isFile {
		return nil, false, apperr.AlreadyExists("file %q", p)
	}

	if err := e.files.MkdirAll(proj.Slug, p); err != nil {
		return nil, false, err
	}
	d := &models.Directory{ProjectID: projectID, Path: p, Name: vpath.Base(p)}
	created := true
	if e.dirsPersist {
		d, created, err = e.db.EnsureDir(ctx, d)
		if err != nil {
			return nil, false, err
		}
	}
	if created {
		e.invalidateTree(projectID)
		e.events.Fire(projectID, notify.DirCreated, map[string]string{"path": p})
	}
	return d, created, nil
}

// DeleteDir removes a directory subtree. Without force the subtree must hold
// no files and no other persisted directories.
func (e *Engine) DeleteDir(ctx context.Context, projectID, rawPath string, force bool) (*DeleteDirResult, error) {
	p, err := vpath.Normalize(rawPath)
	if err != nil {
		return nil, err
	}
	proj, err := e.db.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	nFiles, err := e.db.CountFilesUnder(ctx, projectID, p)
	if err != nil {
		return nil, err
	}
	nDirs, err := e.db.CountDirsStrictlyUnder(ctx, projectID, p)
	if err != nil {
		return nil, err
	}
	if !force && (nFiles > 0 || nDirs > 0) {
		return nil, apperr.DirNotEmpty(p)
	}
	if nFiles == 0 && nDirs == 0 && !e.files.IsDir(proj.Slug, p) {
		if _, err := e.db.GetDir(ctx, projectID, p); err != nil {
			return nil, err
		}
	}

	res := &DeleteDirResult{Path: p}
	if nFiles > 0 {
		files, err := e.db.ListFilesUnder(ctx, projectID, p)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if err := e.deleteFileRow(ctx, f); err != nil {
				return res, err
			}
			if err := e.index.Delete(ctx, f.ID); err != nil {
				return res, err
			}
			res.RemovedFiles++
		}
	}
	res.RemovedDirs, err = e.db.DeleteDirsUnder(ctx, projectID, p)
	if err != nil {
		return res, err
	}
	if err := e.files.RemoveAll(proj.Slug, p); err != nil {
		e.logger.Warn("workspace: remove directory failed",
			slog.String("project", proj.Slug), slog.String("path", p), slog.String("error", err.Error()))
	}

	e.invalidateTree(projectID)
	e.events.Fire(projectID, notify.DirDeleted, res)
	return res, nil
}

// Tree lists a project as nested directories and files. Directories implied
// by file paths always appear; persisted empty directories only when
// includeEmpty is set. Directories sort before files, case-insensitively.
func (e *Engine) Tree(ctx context.Context, projectID string, includeEmpty bool) ([]*models.TreeNode, error) {
	key := TreeKey{ProjectID: projectID, WithEmpty: includeEmpty}
	var gen uint64
	if e.trees != nil {
		if nodes, ok := e.trees.Get(key); ok {
			return nodes, nil
		}
		gen = e.trees.Generation()
	}
	if _, err := e.db.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	files, err := e.db.ListFiles(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var dirs []*models.Directory
	if includeEmpty {
		if dirs, err = e.db.ListDirs(ctx, projectID); err != nil {
			return nil, err
		}
	}
	nodes := BuildTree(files, dirs)
	if e.trees != nil {
		// A mutation committed while we read; leave the slot empty.
		e.trees.PutAt(key, nodes, gen)
	}
	return nodes, nil
}

// BuildTree assembles a tree from file paths and optional directory markers.
func BuildTree(files []*models.File, dirs []*models.Directory) []*models.TreeNode {
	root := &models.TreeNode{}
	index := map[string]*models.TreeNode{"": root}

	var ensureDir func(p string) *models.TreeNode
	ensureDir = func(p string) *models.TreeNode {
		if n, ok := index[p]; ok {
			return n
		}
		parent := ensureDir(vpath.Dir(p))
		n := &models.TreeNode{Name: vpath.Base(p), Path: p, Type: models.NodeDir}
		parent.Children = append(parent.Children, n)
		index[p] = n
		return n
	}

	for _, f := range files {
		parent := ensureDir(vpath.Dir(f.Path))
		parent.Children = append(parent.Children, &models.TreeNode{
			Name:   vpath.Base(f.Path),
			Path:   f.Path,
			Type:   models.NodeFile,
			FileID: f.ID,
			Title:  f.Title,
		})
	}
	for _, d := range dirs {
		ensureDir(d.Path)
	}

	sortTree(root.Children)
	if root.Children == nil {
		return []*models.TreeNode{}
	}
	return root.Children
}

func sortTree(nodes []*models.TreeNode) {
	sortLevel(cases.Fold(), nodes)
}

// sortLevel orders directories first, then by case-folded name.
func sortLevel(fold cases.Caser, nodes []*models.TreeNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.Type != b.Type {
			return a.Type == models.NodeDir
		}
		return fold.String(a.Name) < fold.String(b.Name)
	})
	for _, n := range nodes {
		if len(n.Children) > 0 {
			sortLevel(fold, n.Children)
		}
	}
}

// BackfillDirectories records a directory row for every ancestor of every
// file path and returns how many rows were created.
func (e *Engine) BackfillDirectories(ctx context.Context) (int, error) {
	byProject, err := e.db.AllFilePaths(ctx)
	if err != nil {
		return 0, err
	}
	created := 0
	for projectID, paths := range byProject {
		seen := make(map[string]struct{})
		for _, p := range paths {
			for _, dir := range vpath.Ancestors(p) {
				if _, ok := seen[dir]; ok {
					continue
				}
				seen[dir] = struct{}{}
				_, isNew, err := e.db.EnsureDir(ctx, &models.Directory{
					ProjectID: projectID,
					Path:      dir,
					Name:      vpath.Base(dir),
				})
				if err != nil {
					return created, err
				}
				if isNew {
					created++
				}
			}
		}
		e.invalidateTree(projectID)
	}
	if created > 0 {
		e.logger.Info("workspace: backfilled directories", slog.Int("created", created))
	}
	return created, nil
}
