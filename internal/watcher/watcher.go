// Package watcher reconciles artifacts edited outside the application back
// into the store.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Importer applies on-disk content to the file stored at (slug, path). It
// reports whether anything changed.
type Importer interface {
	ImportArtifact(ctx context.Context, slug, path string, content []byte) (bool, error)
}

// Watch starts an fsnotify watcher on the projects root (the directory
// holding <slug>/files/...) and imports changed Markdown artifacts until ctx
// is cancelled.
//
// New directories created at runtime are automatically added to the watch
// list and scanned. Removals and renames are only logged: the store stays the
// source of truth and a missing artifact is rewritten on next read.
func Watch(ctx context.Context, imp Importer, root string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					importDir(ctx, imp, root, absPath, logger)
					continue
				}
			}

			if !strings.HasSuffix(absPath, ".md") {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				importFile(ctx, imp, root, absPath, logger)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				logger.Debug("watcher: artifact left disk", slog.String("path", absPath))
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// splitArtifact maps an absolute artifact path to (slug, logical path).
func splitArtifact(root, absPath string) (string, string, bool) {
	rel, err := filepath.Rel(root, absPath)
	if err != nil {
		return "", "", false
	}
	parts := strings.SplitN(filepath.ToSlash(rel), "/", 3)
	if len(parts) != 3 || parts[1] != "files" || parts[0] == ".." || parts[2] == "" {
		return "", "", false
	}
	return parts[0], parts[2], true
}

func importFile(ctx context.Context, imp Importer, root, absPath string, logger *slog.Logger) {
	slug, p, ok := splitArtifact(root, absPath)
	if !ok {
		return
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		logger.Warn("watcher: read failed", slog.String("path", absPath), slog.String("error", err.Error()))
		return
	}
	changed, err := imp.ImportArtifact(ctx, slug, p, data)
	if err != nil {
		logger.Warn("watcher: import failed",
			slog.String("project", slug), slog.String("path", p), slog.String("error", err.Error()))
		return
	}
	if changed {
		logger.Debug("watcher: imported", slog.String("project", slug), slog.String("path", p))
	}
}

// importDir imports any .md files found in a newly created directory.
func importDir(ctx context.Context, imp Importer, root, dirPath string, logger *slog.Logger) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		importFile(ctx, imp, root, path, logger)
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
