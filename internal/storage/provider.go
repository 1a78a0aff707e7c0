// Package storage defines the byte store that mirrors logical project paths.
package storage

// Provider is the byte store keyed by (project slug, logical path).
// Paths are slash-separated and already normalized by the caller.
type Provider interface {
	// Read returns the raw bytes of the artifact at path.
	Read(slug, path string) ([]byte, error)
	// Write atomically replaces the artifact at path, creating parents.
	Write(slug, path string, content []byte) error
	// Rename moves a file or a whole directory subtree within one project.
	Rename(slug, oldPath, newPath string) error
	// Exists reports whether a file or directory exists at path.
	Exists(slug, path string) bool
	// IsDir reports whether path exists and is a directory.
	IsDir(slug, path string) bool
	// MkdirAll creates the directory at path and all parents.
	MkdirAll(slug, path string) error
	// Delete removes a single file or empty directory.
	Delete(slug, path string) error
	// RemoveAll removes path and everything under it.
	RemoveAll(slug, path string) error
	// DropProject removes the whole tree of a project.
	DropProject(slug string) error
	// PutAsset stores an uploaded asset under the project's assets
	// directory without replacing an existing one, and returns the
	// project-relative path it was written to.
	PutAsset(slug, name string, data []byte) (string, error)
	// ReadAsset returns the bytes of a stored asset.
	ReadAsset(slug, name string) ([]byte, error)
	// Root returns the on-disk location of a project's file tree, if any.
	Root(slug string) string
}
