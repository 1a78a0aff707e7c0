package storage

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// AssetsDir is where uploaded assets live, relative to a project directory.
const AssetsDir = "artifacts/assets"

// FS implements Provider on top of an afero filesystem. Each project lives
// under projects/<slug>/files/ relative to the filesystem root, and its
// uploaded assets under projects/<slug>/artifacts/assets/.
type FS struct {
	fs   afero.Fs
	root string // absolute on-disk root, empty for in-memory filesystems
}

// NewFS creates a Provider rooted at the given directory on the OS filesystem.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{fs: afero.NewBasePathFs(afero.NewOsFs(), abs), root: abs}, nil
}

// NewMemFS creates a Provider backed by an in-memory filesystem.
func NewMemFS() *FS {
	return &FS{fs: afero.NewMemMapFs()}
}

// Root returns the on-disk directory holding the project's files.
func (f *FS) Root(slug string) string {
	if f.root == "" {
		return ""
	}
	return filepath.Join(f.root, "projects", slug, "files")
}

func projectDir(slug string) (string, error) {
	if slug == "" || strings.ContainsAny(slug, `/\:`) || slug == "." || slug == ".." {
		return "", fmt.Errorf("storage: invalid project slug %q", slug)
	}
	return path.Join("/projects", slug, "files"), nil
}

// safePath maps a logical path into the project's file tree and rejects
// anything that would escape it.
func (f *FS) safePath(slug, rel string) (string, error) {
	base, err := projectDir(slug)
	if err != nil {
		return "", err
	}
	if rel == "" {
		return base, nil
	}
	if strings.Contains(rel, `\`) {
		return "", fmt.Errorf("storage: backslash not allowed: %s", rel)
	}
	joined := path.Join(base, rel)
	if joined != base && !strings.HasPrefix(joined, base+"/") {
		return "", fmt.Errorf("storage: path escapes project root: %s", rel)
	}
	return joined, nil
}

// Read returns the raw bytes of an artifact.
func (f *FS) Read(slug, p string) ([]byte, error) {
	abs, err := f.safePath(slug, p)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(f.fs, abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", p, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(slug, p string, content []byte) error {
	abs, err := f.safePath(slug, p)
	if err != nil {
		return err
	}
	dir := path.Dir(abs)
	if err := f.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := afero.TempFile(f.fs, dir, ".atrium-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = f.fs.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := f.fs.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Rename moves a file or directory within a project.
func (f *FS) Rename(slug, oldPath, newPath string) error {
	absOld, err := f.safePath(slug, oldPath)
	if err != nil {
		return err
	}
	absNew, err := f.safePath(slug, newPath)
	if err != nil {
		return err
	}
	if err := f.fs.MkdirAll(path.Dir(absNew), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for rename: %w", err)
	}
	if err := f.fs.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("storage: rename %s: %w", oldPath, err)
	}
	return nil
}

// Exists reports whether anything exists at p.
func (f *FS) Exists(slug, p string) bool {
	abs, err := f.safePath(slug, p)
	if err != nil {
		return false
	}
	ok, err := afero.Exists(f.fs, abs)
	return err == nil && ok
}

// IsDir reports whether p is an existing directory.
func (f *FS) IsDir(slug, p string) bool {
	abs, err := f.safePath(slug, p)
	if err != nil {
		return false
	}
	ok, err := afero.DirExists(f.fs, abs)
	return err == nil && ok
}

// MkdirAll creates a directory and its parents.
func (f *FS) MkdirAll(slug, p string) error {
	abs, err := f.safePath(slug, p)
	if err != nil {
		return err
	}
	if err := f.fs.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir %s: %w", p, err)
	}
	return nil
}

// Delete removes a single file or empty directory.
func (f *FS) Delete(slug, p string) error {
	abs, err := f.safePath(slug, p)
	if err != nil {
		return err
	}
	if err := f.fs.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", p, err)
	}
	return nil
}

// RemoveAll removes p and its subtree. Missing paths are not an error.
func (f *FS) RemoveAll(slug, p string) error {
	abs, err := f.safePath(slug, p)
	if err != nil {
		return err
	}
	if abs == path.Join("/projects", slug, "files") {
		return errors.New("storage: refusing to remove project root")
	}
	if err := f.fs.RemoveAll(abs); err != nil {
		return fmt.Errorf("storage: remove %s: %w", p, err)
	}
	return nil
}

// DropProject removes every artifact of a project.
func (f *FS) DropProject(slug string) error {
	base, err := projectDir(slug)
	if err != nil {
		return err
	}
	if err := f.fs.RemoveAll(path.Dir(base)); err != nil {
		return fmt.Errorf("storage: drop project %s: %w", slug, err)
	}
	return nil
}

// assetPath maps a plain asset name into the project's assets directory.
func assetPath(slug, name string) (string, error) {
	base, err := projectDir(slug)
	if err != nil {
		return "", err
	}
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("storage: invalid asset name %q", name)
	}
	return path.Join(path.Dir(base), AssetsDir, name), nil
}

// PutAsset writes data under a free name: when name is taken, -1, -2, ...
// is inserted before the extension until an exclusive create succeeds.
func (f *FS) PutAsset(slug, name string, data []byte) (string, error) {
	abs, err := assetPath(slug, name)
	if err != nil {
		return "", err
	}
	dir := path.Dir(abs)
	if err := f.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: mkdir: %w", err)
	}

	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 1; ; i++ {
		file, err := f.fs.OpenFile(path.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("storage: create asset: %w", err)
		}
		_, werr := file.Write(data)
		cerr := file.Close()
		if werr == nil {
			werr = cerr
		}
		if werr != nil {
			_ = f.fs.Remove(path.Join(dir, candidate))
			return "", fmt.Errorf("storage: write asset: %w", werr)
		}
		return path.Join(AssetsDir, candidate), nil
	}
}

// ReadAsset returns the bytes of an uploaded asset.
func (f *FS) ReadAsset(slug, name string) ([]byte, error) {
	abs, err := assetPath(slug, name)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(f.fs, abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read asset %s: %w", name, err)
	}
	return data, nil
}
