package workspace

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/atrium/internal/apperr"
	"github.com/starford/atrium/internal/notify"
)

func TestMoveDir_SuffixPreservation(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "p")
	ctx := context.Background()
	_, _, _ = e.eng.CreateDir(ctx, p.ID, "a/b")
	_, _, _ = e.eng.CreateDir(ctx, p.ID, "a/b/c")
	deep := e.file(t, p.ID, "a/b/c/d.md", "D", "deep")
	sibling := e.file(t, p.ID, "a/bc.md", "BC", "sibling")

	res, err := e.eng.MoveDir(ctx, p.ID, "a/b", "x/y", false)
	if err != nil {
		t.Fatalf("MoveDir: %v", err)
	}
	if !res.Applied || res.DirsCount != 2 || res.FilesCount != 1 {
		t.Errorf("result = %+v", res)
	}
	if got := e.reload(t, deep.ID).Path; got != "x/y/c/d.md" {
		t.Errorf("deep path = %q", got)
	}
	if got := e.reload(t, sibling.ID).Path; got != "a/bc.md" {
		t.Errorf("sibling moved to %q", got)
	}
	if e.disk(t, p.Slug, "x/y/c/d.md") != "deep" || e.fs.Exists(p.Slug, "a/b") {
		t.Error("disk subtree not moved")
	}
	if d, err := e.db.GetDir(ctx, p.ID, "x/y/c"); err != nil || d.Name != "c" {
		t.Errorf("nested dir row: %+v, %v", d, err)
	}
	if d, err := e.db.GetDir(ctx, p.ID, "x/y"); err != nil || d.Name != "y" {
		t.Errorf("root dir row: %+v, %v", d, err)
	}
	doc, _, _ := e.ix.Get(ctx, deep.ID)
	if doc.Path != "x/y/c/d.md" {
		t.Errorf("search path = %q", doc.Path)
	}
	if e.rec.Count(notify.DirMoved) != 1 {
		t.Error("dir.moved not published")
	}
}

func TestMoveDir_RenameInPlace(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "p")
	e.file(t, p.ID, "notes/old/a.md", "A", "")

	if _, err := e.eng.MoveDir(context.Background(), p.ID, "notes/old", "notes/new", false); err != nil {
		t.Fatalf("MoveDir: %v", err)
	}
	if e.rec.Count(notify.DirRenamed) != 1 {
		t.Error("dir.renamed not published")
	}
}

func TestMoveDir_DryRunIsSideEffectFree(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "p")
	ctx := context.Background()
	_, _, _ = e.eng.CreateDir(ctx, p.ID, "a/b")
	e.file(t, p.ID, "a/b/one.md", "One", "[[Two]]")
	e.file(t, p.ID, "a/b/two.md", "Two", "")

	before := e.snapshot(t, p)
	preview, err := e.eng.MoveDir(ctx, p.ID, "a/b", "z", true)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if after := e.snapshot(t, p); after != before {
		t.Errorf("dry run mutated state")
	}
	if preview.Applied || preview.DirsCount != 1 || preview.FilesCount != 2 {
		t.Errorf("preview = %+v", preview)
	}
	if !e.fs.Exists(p.Slug, "a/b/one.md") || e.fs.Exists(p.Slug, "z") {
		t.Error("dry run touched disk")
	}

	applied, err := e.eng.MoveDir(ctx, p.ID, "a/b", "z", false)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if applied.DirsCount != preview.DirsCount || applied.FilesCount != preview.FilesCount {
		t.Errorf("apply %+v differs from preview %+v", applied, preview)
	}
}

func TestMoveDir_Validation(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "p")
	ctx := context.Background()
	e.file(t, p.ID, "a/x.md", "X", "")
	e.file(t, p.ID, "b/x.md", "X2", "")

	if _, err := e.eng.MoveDir(ctx, p.ID, "a", "a/inner", false); !errors.Is(err, apperr.ErrBadPath) {
		t.Errorf("into itself: %v", err)
	}
	if _, err := e.eng.MoveDir(ctx, p.ID, "ghost", "elsewhere", false); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing source: %v", err)
	}
	if _, err := e.eng.MoveDir(ctx, p.ID, "a", "b", false); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("occupied destination: %v", err)
	}
	if _, err := e.eng.MoveDir(ctx, p.ID, "a", "../up", false); !errors.Is(err, apperr.ErrBadPath) {
		t.Errorf("bad destination: %v", err)
	}
	if !e.fs.Exists(p.Slug, "a/x.md") {
		t.Error("rejected move touched disk")
	}
}

func TestMoveDir_SamePathIsNoop(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "p")
	e.file(t, p.ID, "a/x.md", "X", "")

	res, err := e.eng.MoveDir(context.Background(), p.ID, "a", "/a/", false)
	if err != nil {
		t.Fatalf("MoveDir: %v", err)
	}
	if res.DirsCount != 0 || res.FilesCount != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(e.rec.Events()) != 1 {
		t.Errorf("events = %+v", e.rec.Events())
	}
}

func TestMoveDir_MissingOnDiskWritesStoredContent(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "p")
	ctx := context.Background()
	f := e.file(t, p.ID, "a/x.md", "X", "stored")
	if err := e.fs.RemoveAll(p.Slug, "a"); err != nil {
		t.Fatal(err)
	}

	if _, err := e.eng.MoveDir(ctx, p.ID, "a", "b", false); err != nil {
		t.Fatalf("MoveDir: %v", err)
	}
	if e.disk(t, p.Slug, "b/x.md") != "stored" {
		t.Error("stored content not written")
	}
	if e.reload(t, f.ID).Path != "b/x.md" {
		t.Error("row not moved")
	}
}
