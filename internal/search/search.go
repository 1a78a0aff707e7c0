// Package search keeps one full-text document per file and answers
// project-scoped queries. FTS5 is used when built with the sqlite_fts5 tag.
package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const docsSchemaSQL = `
CREATE TABLE IF NOT EXISTS search_docs (
	file_id    TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	path       TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL DEFAULT '',
	tags       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_search_docs_project ON search_docs(project_id);
`

const defaultLimit = 20

// Document is the denormalized, searchable view of one file.
type Document struct {
	FileID    string
	ProjectID string
	Path      string
	Title     string
	Body      string
	Tags      []string
}

// Hit is one search result.
type Hit struct {
	FileID    string `json:"file_id"`
	ProjectID string `json:"project_id"`
	Path      string `json:"path"`
	Title     string `json:"title"`
	Snippet   string `json:"snippet"`
}

// Indexer is the contract the workspace engine depends on. Index replaces
// the whole document for a file; it never merges.
type Indexer interface {
	Index(ctx context.Context, doc Document) error
	Delete(ctx context.Context, fileID string) error
}

// Searcher answers queries over indexed documents.
type Searcher interface {
	Search(ctx context.Context, projectID, query string, limit int) ([]Hit, error)
}

// Index is the SQLite implementation of Indexer and Searcher. It shares the
// connection pool of the durable store.
type Index struct {
	conn *sql.DB
}

var (
	_ Indexer  = (*Index)(nil)
	_ Searcher = (*Index)(nil)
)

// New applies the search schema on conn.
func New(conn *sql.DB) (*Index, error) {
	if _, err := conn.Exec(docsSchemaSQL); err != nil {
		return nil, fmt.Errorf("search: apply schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		return nil, fmt.Errorf("search: apply fts schema: %w", err)
	}
	return &Index{conn: conn}, nil
}

// Index replaces the document stored for doc.FileID.
func (ix *Index) Index(ctx context.Context, doc Document) error {
	tx, err := ix.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("search: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	tags := strings.Join(doc.Tags, " ")
	_, err = tx.ExecContext(ctx, `
		INSERT INTO search_docs (file_id, project_id, path, title, body, tags)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET
			project_id = excluded.project_id,
			path       = excluded.path,
			title      = excluded.title,
			body       = excluded.body,
			tags       = excluded.tags
	`, doc.FileID, doc.ProjectID, doc.Path, doc.Title, doc.Body, tags)
	if err != nil {
		return fmt.Errorf("search: upsert document: %w", err)
	}
	if err := ftsUpsert(ctx, tx, doc, tags); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("search: commit: %w", err)
	}
	return nil
}

// Delete removes the document of fileID. Deleting an unknown id is a no-op.
func (ix *Index) Delete(ctx context.Context, fileID string) error {
	tx, err := ix.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("search: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM search_docs WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("search: delete document: %w", err)
	}
	if err := ftsDelete(ctx, tx, fileID); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteProject drops every document of a project.
func (ix *Index) DeleteProject(ctx context.Context, projectID string) error {
	rows, err := ix.conn.QueryContext(ctx, `SELECT file_id FROM search_docs WHERE project_id = ?`, projectID)
	if err != nil {
		return fmt.Errorf("search: list project documents: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, id := range ids {
		if err := ix.Delete(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the stored document for fileID, or false when none exists.
func (ix *Index) Get(ctx context.Context, fileID string) (Document, bool, error) {
	var (
		doc  Document
		tags string
	)
	err := ix.conn.QueryRowContext(ctx, `
		SELECT file_id, project_id, path, title, body, tags FROM search_docs WHERE file_id = ?
	`, fileID).Scan(&doc.FileID, &doc.ProjectID, &doc.Path, &doc.Title, &doc.Body, &tags)
	if err == sql.ErrNoRows {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("search: get document: %w", err)
	}
	doc.Tags = strings.Fields(tags)
	return doc, true, nil
}

func scanHits(rows *sql.Rows) ([]Hit, error) {
	defer rows.Close()
	var out []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.FileID, &h.ProjectID, &h.Path, &h.Title, &h.Snippet); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
