package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type fakeImporter struct {
	mu      sync.Mutex
	imports map[string]string
}

func (f *fakeImporter) ImportArtifact(_ context.Context, slug, path string, content []byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.imports == nil {
		f.imports = make(map[string]string)
	}
	f.imports[slug+"|"+path] = string(content)
	return true, nil
}

func (f *fakeImporter) get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.imports[key]
	return v, ok
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSplitArtifact(t *testing.T) {
	root := filepath.Join("data", "projects")
	slug, p, ok := splitArtifact(root, filepath.Join(root, "alpha", "files", "docs", "a.md"))
	if !ok || slug != "alpha" || p != "docs/a.md" {
		t.Errorf("got %q %q %v", slug, p, ok)
	}
	for _, bad := range []string{
		filepath.Join(root, "alpha", "a.md"),
		filepath.Join(root, "alpha", "other", "a.md"),
		filepath.Join("elsewhere", "a.md"),
	} {
		if _, _, ok := splitArtifact(root, bad); ok {
			t.Errorf("%s accepted", bad)
		}
	}
}

func TestWatcher_ImportsEditedFile(t *testing.T) {
	root := t.TempDir()
	filesDir := filepath.Join(root, "alpha", "files")
	_ = os.MkdirAll(filesDir, 0o755)
	imp := &fakeImporter{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, imp, root, quietLogger())
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(filesDir, "note.md"), []byte("# Edited"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		v, ok := imp.get("alpha|note.md")
		return ok && v == "# Edited"
	}, "edited file not imported")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	root := t.TempDir()
	imp := &fakeImporter{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, imp, root, quietLogger())
	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(root, "beta", "files", "deep")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(200 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(subDir, "x.md"), []byte("deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, ok := imp.get("beta|deep/x.md")
		return ok
	}, "file in new subdir not imported")
}

func TestWatcher_IgnoresNonMarkdown(t *testing.T) {
	root := t.TempDir()
	filesDir := filepath.Join(root, "alpha", "files")
	_ = os.MkdirAll(filesDir, 0o755)
	imp := &fakeImporter{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, imp, root, quietLogger())
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(filesDir, "image.png"), []byte("png"), 0o644)
	time.Sleep(300 * time.Millisecond)
	if _, ok := imp.get("alpha|image.png"); ok {
		t.Error("non-markdown file imported")
	}
}
