// Package links maintains the wikilink graph: outgoing edges per file,
// title resolution within a project and backlink queries.
package links

import (
	"context"
	"fmt"

	"github.com/starford/atrium/internal/models"
	"github.com/starford/atrium/internal/parser"
	"github.com/starford/atrium/internal/store"
)

// Graph derives link rows from file content. Edges are disposable: every
// refresh replaces the full outgoing set of a file.
type Graph struct {
	db *store.DB
}

// New returns a Graph over db.
func New(db *store.DB) *Graph {
	return &Graph{db: db}
}

// Upsert replaces the outgoing edges of src with one row per wikilink in its
// content, duplicates and unresolved titles included. It commits as a unit and
// returns the number of edges written.
func (g *Graph) Upsert(ctx context.Context, src *models.File) (int, error) {
	var n int
	err := g.db.InTx(ctx, func(q *store.Queries) error {
		var err error
		n, err = UpsertTx(ctx, q, src)
		return err
	})
	return n, err
}

// UpsertTx is Upsert on an existing transaction.
func UpsertTx(ctx context.Context, q *store.Queries, src *models.File) (int, error) {
	if err := q.DeleteLinksFrom(ctx, src.ID); err != nil {
		return 0, err
	}
	titles := parser.ExtractWikilinks(src.Content)
	if len(titles) == 0 {
		return 0, nil
	}
	index, err := q.TitleIndex(ctx, src.ProjectID)
	if err != nil {
		return 0, err
	}
	for _, title := range titles {
		l := &models.Link{
			ProjectID:    src.ProjectID,
			SrcFileID:    src.ID,
			SrcPath:      src.Path,
			TargetTitle:  title,
			TargetFileID: index[title],
		}
		if err := q.InsertLink(ctx, l); err != nil {
			return 0, fmt.Errorf("links: upsert %s: %w", src.Path, err)
		}
	}
	return len(titles), nil
}

// Outgoing returns the edges of a file in document order.
func (g *Graph) Outgoing(ctx context.Context, fileID string) ([]models.Link, error) {
	return g.db.LinksFrom(ctx, fileID)
}

// Backlinks returns the files linking to f, by resolved id or by an
// unresolved edge naming f's current title.
func (g *Graph) Backlinks(ctx context.Context, f *models.File) ([]models.FileRef, error) {
	refs, err := g.db.Backlinks(ctx, f.ProjectID, f.ID, f.Title)
	if err != nil {
		return nil, err
	}
	if refs == nil {
		refs = []models.FileRef{}
	}
	return refs, nil
}

// Retarget realigns incoming edges after f's title changed: edges resolved
// under another title are released, then every pending edge of the project
// is matched against the current titles.
func (g *Graph) Retarget(ctx context.Context, f *models.File) error {
	return g.db.InTx(ctx, func(q *store.Queries) error {
		if _, err := q.UnresolveStale(ctx, f.ID, f.Title); err != nil {
			return err
		}
		_, err := ResolveTx(ctx, q, f.ProjectID)
		return err
	})
}

// Detach releases edges of fromProjectID that still point at f after it
// moved to another project, and hands them to any remaining file there with
// the same title.
func (g *Graph) Detach(ctx context.Context, f *models.File, fromProjectID string) error {
	return g.db.InTx(ctx, func(q *store.Queries) error {
		if _, err := q.DetachForeign(ctx, f.ID, f.ProjectID); err != nil {
			return err
		}
		_, err := ResolveTx(ctx, q, fromProjectID)
		return err
	})
}

// ResolveTx points every unresolved edge of a project at the file that
// currently owns its title, first created first. Titles no file carries stay
// pending. It returns the number of edges resolved.
func ResolveTx(ctx context.Context, q *store.Queries, projectID string) (int, error) {
	pending, err := q.PendingTitles(ctx, projectID)
	if err != nil || len(pending) == 0 {
		return 0, err
	}
	index, err := q.TitleIndex(ctx, projectID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, title := range pending {
		id, ok := index[title]
		if !ok {
			continue
		}
		n, err := q.ResolvePending(ctx, projectID, id, title)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
