// Package workspace keeps the store, the byte storage, the link graph and the
// search index consistent while files and directories are created, edited,
// renamed, moved and deleted.
package workspace

import (
	"context"
	"log/slog"

	"github.com/starford/atrium/internal/cache"
	"github.com/starford/atrium/internal/checksum"
	"github.com/starford/atrium/internal/links"
	"github.com/starford/atrium/internal/models"
	"github.com/starford/atrium/internal/notify"
	"github.com/starford/atrium/internal/parser"
	"github.com/starford/atrium/internal/render"
	"github.com/starford/atrium/internal/search"
	"github.com/starford/atrium/internal/storage"
	"github.com/starford/atrium/internal/store"
)

// TreeKey identifies one cached tree listing.
type TreeKey struct {
	ProjectID string
	WithEmpty bool
}

// TreeCache holds rendered tree listings per project.
type TreeCache = cache.Cache[TreeKey, []*models.TreeNode]

// Engine coordinates every mutation of a workspace. The store is the source
// of truth; disk and the search index are kept in step after each commit.
type Engine struct {
	db       *store.DB
	files    storage.Provider
	index    search.Indexer
	graph    *links.Graph
	events   *notify.Dispatcher
	renderer render.Renderer
	trees    *TreeCache
	logger   *slog.Logger

	dirsPersist bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithNotifier sets the dispatcher receiving change events.
func WithNotifier(d *notify.Dispatcher) Option {
	return func(e *Engine) { e.events = d }
}

// WithRenderer overrides the Markdown renderer.
func WithRenderer(r render.Renderer) Option {
	return func(e *Engine) { e.renderer = r }
}

// WithTreeCache injects a shared tree cache. Without one every Tree call
// reads the store.
func WithTreeCache(c *TreeCache) Option {
	return func(e *Engine) { e.trees = c }
}

// WithDirsPersist controls whether explicit directories get store rows.
func WithDirsPersist(on bool) Option {
	return func(e *Engine) { e.dirsPersist = on }
}

// New builds an Engine over the durable store, the byte storage and the
// search index.
func New(db *store.DB, files storage.Provider, index search.Indexer, opts ...Option) *Engine {
	e := &Engine{
		db:          db,
		files:       files,
		index:       index,
		graph:       links.New(db),
		dirsPersist: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.renderer == nil {
		e.renderer = render.NewMarkdown()
	}
	return e
}

// Graph exposes the link graph for read-only queries.
func (e *Engine) Graph() *links.Graph {
	return e.graph
}

// derive recomputes the rendered copy and checksum of f from its content.
func (e *Engine) derive(f *models.File) error {
	html, err := e.renderer.Render(f.Content)
	if err != nil {
		return err
	}
	f.RenderedHTML = html
	f.Checksum = checksum.String(f.Content)
	return nil
}

// reindex replaces the search document of f.
func (e *Engine) reindex(ctx context.Context, f *models.File) error {
	res := parser.Parse(f.Content)
	return e.index.Index(ctx, search.Document{
		FileID:    f.ID,
		ProjectID: f.ProjectID,
		Path:      f.Path,
		Title:     f.Title,
		Body:      res.Body,
		Tags:      f.Tags,
	})
}

// syncDerived refreshes the search document and the outgoing links of f.
func (e *Engine) syncDerived(ctx context.Context, f *models.File) error {
	if err := e.reindex(ctx, f); err != nil {
		return err
	}
	_, err := e.graph.Upsert(ctx, f)
	return err
}

func (e *Engine) invalidateTree(projectIDs ...string) {
	if e.trees == nil {
		return
	}
	for _, id := range projectIDs {
		e.trees.DeleteFunc(func(k TreeKey) bool { return k.ProjectID == id })
	}
}

// removeArtifact deletes a superseded artifact; failures are only logged.
func (e *Engine) removeArtifact(slug, path string) {
	if !e.files.Exists(slug, path) {
		return
	}
	if err := e.files.Delete(slug, path); err != nil {
		e.logger.Warn("workspace: remove artifact failed",
			slog.String("project", slug),
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}
