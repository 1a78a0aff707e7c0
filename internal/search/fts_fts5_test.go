//go:build sqlite_fts5

package search

import (
	"context"
	"testing"
)

func TestFTS5_TableExists(t *testing.T) {
	ix := testIndex(t)
	var count int
	if err := ix.conn.QueryRow(`SELECT count(*) FROM search_fts`).Scan(&count); err != nil {
		t.Fatalf("search_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	ix := testIndex(t)
	ctx := context.Background()
	doc := Document{FileID: "fts", ProjectID: "p1", Path: "fts.md", Title: "FTS Note", Body: "Atrium provides powerful full-text search.", Tags: []string{"search"}}
	if err := ix.Index(ctx, doc); err != nil {
		t.Fatalf("Index: %v", err)
	}

	hits, err := ix.Search(ctx, "p1", "powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	ix := testIndex(t)
	ctx := context.Background()
	_ = ix.Index(ctx, Document{FileID: "gone", ProjectID: "p1", Path: "gone.md", Body: "vanishing content"})
	_ = ix.Delete(ctx, "gone")

	hits, _ := ix.Search(ctx, "", "vanishing", 10)
	if len(hits) != 0 {
		t.Errorf("deleted document still in FTS index: %+v", hits)
	}
}
