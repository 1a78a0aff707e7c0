//go:build !sqlite_fts5

package search

import (
	"context"
	"database/sql"
	"fmt"
)

// Without FTS5 the search_docs table is queried with LIKE.
func initFTS(_ *sql.DB) error { return nil }

func ftsUpsert(_ context.Context, _ *sql.Tx, _ Document, _ string) error { return nil }

func ftsDelete(_ context.Context, _ *sql.Tx, _ string) error { return nil }

// Search performs a LIKE-based search, optionally scoped to one project.
func (ix *Index) Search(ctx context.Context, projectID, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	like := "%" + query + "%"
	rows, err := ix.conn.QueryContext(ctx, `
		SELECT file_id, project_id, path, title, substr(body, 1, 200)
		FROM search_docs
		WHERE (? = '' OR project_id = ?)
		  AND (title LIKE ? OR body LIKE ? OR tags LIKE ?)
		ORDER BY path
		LIMIT ?
	`, projectID, projectID, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("search: query: %w", err)
	}
	return scanHits(rows)
}
