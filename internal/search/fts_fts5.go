//go:build sqlite_fts5

package search

import (
	"context"
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS search_fts USING fts5(
			file_id UNINDEXED,
			project_id UNINDEXED,
			path UNINDEXED,
			title,
			body,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(ctx context.Context, tx *sql.Tx, doc Document, tags string) error {
	if err := ftsDelete(ctx, tx, doc.FileID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO search_fts (file_id, project_id, path, title, body, tags) VALUES (?, ?, ?, ?, ?, ?)
	`, doc.FileID, doc.ProjectID, doc.Path, doc.Title, doc.Body, tags)
	if err != nil {
		return fmt.Errorf("search: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(ctx context.Context, tx *sql.Tx, fileID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM search_fts WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("search: delete fts: %w", err)
	}
	return nil
}

// Search runs an FTS5 match, optionally scoped to one project.
func (ix *Index) Search(ctx context.Context, projectID, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := ix.conn.QueryContext(ctx, `
		SELECT file_id, project_id, path, title,
		       snippet(search_fts, 4, '<b>', '</b>', '...', 64)
		FROM search_fts
		WHERE search_fts MATCH ? AND (? = '' OR project_id = ?)
		ORDER BY rank
		LIMIT ?
	`, query, projectID, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("search: query: %w", err)
	}
	return scanHits(rows)
}
