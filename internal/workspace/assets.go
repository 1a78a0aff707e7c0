package workspace

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/starford/atrium/internal/apperr"
	"github.com/starford/atrium/internal/notify"
)

var unsafeAssetChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Asset is an uploaded binary kept beside a project's Markdown files.
type Asset struct {
	Name string `json:"name"`
	// Path is relative to the project directory, ready for a Markdown link.
	Path string `json:"path"`
	Size int    `json:"size"`
}

// SanitizeAssetName turns a client-supplied filename into a plain name:
// spaces become dashes and anything outside [A-Za-z0-9._-] is dropped.
func SanitizeAssetName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "-")
	name = unsafeAssetChars.ReplaceAllString(name, "")
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}

// UploadAsset stores data as a project asset. An existing asset with the
// same name is never replaced; the stored name gets a numeric suffix.
func (e *Engine) UploadAsset(ctx context.Context, projectID, filename string, data []byte) (*Asset, error) {
	proj, err := e.db.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	rel, err := e.files.PutAsset(proj.Slug, SanitizeAssetName(filename), data)
	if err != nil {
		return nil, err
	}
	a := &Asset{Name: path.Base(rel), Path: rel, Size: len(data)}
	e.logger.Debug("workspace: asset stored",
		slog.String("project", proj.Slug),
		slog.String("path", rel),
		slog.Int("size", a.Size))
	e.events.Fire(projectID, notify.AssetUploaded, a)
	return a, nil
}

// ReadAsset returns the bytes of a stored asset.
func (e *Engine) ReadAsset(ctx context.Context, projectID, name string) ([]byte, error) {
	proj, err := e.db.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if SanitizeAssetName(name) != name {
		return nil, apperr.BadPath("invalid asset name %q", name)
	}
	data, err := e.files.ReadAsset(proj.Slug, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.NotFound("asset")
	}
	return data, err
}
