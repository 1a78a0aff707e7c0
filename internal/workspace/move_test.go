package workspace

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/atrium/internal/apperr"
	"github.com/starford/atrium/internal/notify"
)

func TestRenameCascade_ExampleScenario(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "p")
	ctx := context.Background()
	a := e.file(t, p.ID, "docs/a.md", "Intro", "See [[Guide]]")
	b := e.file(t, p.ID, "docs/guide.md", "Guide", "")

	out, _ := e.eng.OutgoingLinks(ctx, a.ID)
	if len(out) != 1 || out[0].TargetTitle != "Guide" || out[0].TargetFileID != b.ID {
		t.Fatalf("before rename: %+v", out)
	}

	res, err := e.eng.MoveFile(ctx, b.ID, MoveFileRequest{NewTitle: "Handbook", UpdateLinks: true})
	if err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	if !res.Applied || res.WillMove || res.RewriteCount != 1 || res.Rewritten != 1 {
		t.Errorf("result = %+v", res)
	}
	if got := e.reload(t, a.ID).Content; got != "See [[Handbook]]" {
		t.Errorf("A content = %q", got)
	}
	if e.disk(t, p.Slug, "docs/a.md") != "See [[Handbook]]" {
		t.Error("A artifact not rewritten")
	}
	out, _ = e.eng.OutgoingLinks(ctx, a.ID)
	if len(out) != 1 || out[0].TargetTitle != "Handbook" || out[0].TargetFileID != b.ID {
		t.Errorf("after rename: %+v", out)
	}
	doc, _, _ := e.ix.Get(ctx, a.ID)
	if doc.Body != "See [[Handbook]]" {
		t.Errorf("search body = %q", doc.Body)
	}
}

func TestRenameCascade_ExactTitleOnly(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "p")
	ctx := context.Background()
	plan := e.file(t, p.ID, "plan.md", "Plan", "")
	hit := e.file(t, p.ID, "a.md", "A", "See [[Plan]] for details")
	miss := e.file(t, p.ID, "b.md", "B", "See [[Plan B]]")

	res, err := e.eng.MoveFile(ctx, plan.ID, MoveFileRequest{NewTitle: "Roadmap", UpdateLinks: true})
	if err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	if res.RewriteCount != 1 || res.FilesToRewrite[0].ID != hit.ID {
		t.Errorf("rewrite set = %+v", res.FilesToRewrite)
	}
	if got := e.reload(t, hit.ID).Content; got != "See [[Roadmap]] for details" {
		t.Errorf("hit = %q", got)
	}
	if got := e.reload(t, miss.ID).Content; got != "See [[Plan B]]" {
		t.Errorf("miss = %q", got)
	}
}

func TestRenameWithoutUpdateLinks_LeavesReferencesUnresolved(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "p")
	ctx := context.Background()
	b := e.file(t, p.ID, "guide.md", "Guide", "")
	a := e.file(t, p.ID, "a.md", "A", "See [[Guide]]")

	res, err := e.eng.MoveFile(ctx, b.ID, MoveFileRequest{NewTitle: "Handbook"})
	if err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	if res.RewriteCount != 0 {
		t.Errorf("rewrite_count = %d", res.RewriteCount)
	}
	if e.reload(t, a.ID).Content != "See [[Guide]]" {
		t.Error("content rewritten without update_links")
	}
	out, _ := e.eng.OutgoingLinks(ctx, a.ID)
	if out[0].Resolved() {
		t.Error("[[Guide]] still claims to resolve after the rename")
	}
}

func TestMoveFile_Path(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "p")
	ctx := context.Background()
	f := e.file(t, p.ID, "inbox/a.md", "A", "body")

	res, err := e.eng.MoveFile(ctx, f.ID, MoveFileRequest{NewPath: "archive/2024/a.md", UpdateLinks: true})
	if err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	if !res.WillMove || res.OldPath != "inbox/a.md" || res.NewPath != "archive/2024/a.md" {
		t.Errorf("result = %+v", res)
	}
	if e.fs.Exists(p.Slug, "inbox/a.md") {
		t.Error("old artifact survived")
	}
	if e.disk(t, p.Slug, "archive/2024/a.md") != "body" {
		t.Error("new artifact missing")
	}
	doc, _, _ := e.ix.Get(ctx, f.ID)
	if doc.Path != "archive/2024/a.md" {
		t.Errorf("search path = %q", doc.Path)
	}
	if e.rec.Count(notify.FileMoved) != 1 {
		t.Error("file.moved not published")
	}
}

func TestMoveFile_MissingSourceWritesStoredContent(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "p")
	f := e.file(t, p.ID, "a.md", "A", "stored")
	_ = e.fs.Delete(p.Slug, "a.md")

	if _, err := e.eng.MoveFile(context.Background(), f.ID, MoveFileRequest{NewPath: "b.md"}); err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	if e.disk(t, p.Slug, "b.md") != "stored" {
		t.Error("stored content not written at the new path")
	}
}

func TestMoveFile_Conflicts(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "p")
	ctx := context.Background()
	a := e.file(t, p.ID, "a.md", "A", "")
	e.file(t, p.ID, "b.md", "B", "")

	if _, err := e.eng.MoveFile(ctx, a.ID, MoveFileRequest{NewPath: "b.md"}); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
	if _, err := e.eng.MoveFile(ctx, a.ID, MoveFileRequest{NewPath: "../b.md"}); !errors.Is(err, apperr.ErrBadPath) {
		t.Errorf("err = %v, want ErrBadPath", err)
	}
	if _, err := e.eng.MoveFile(ctx, "nope", MoveFileRequest{NewPath: "c.md"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if !e.fs.Exists(p.Slug, "a.md") {
		t.Error("failed validation touched disk")
	}
}

func TestMoveFile_DryRunIsSideEffectFree(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "p")
	ctx := context.Background()
	plan := e.file(t, p.ID, "plan.md", "Plan", "")
	e.file(t, p.ID, "a.md", "A", "See [[Plan]]")
	e.file(t, p.ID, "b.md", "B", "[[Plan]] and [[Plan]]")
	e.rec.Reset()

	before := e.snapshot(t, p)
	req := MoveFileRequest{NewPath: "docs/roadmap.md", NewTitle: "Roadmap", UpdateLinks: true, DryRun: true}
	preview, err := e.eng.MoveFile(ctx, plan.ID, req)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if after := e.snapshot(t, p); after != before {
		t.Errorf("dry run mutated state\nbefore: %s\nafter:  %s", before, after)
	}
	if preview.Applied || !preview.WillMove || preview.TitleChange == nil || preview.RewriteCount != 2 {
		t.Errorf("preview = %+v", preview)
	}
	if len(e.rec.Events()) != 0 {
		t.Error("dry run published events")
	}

	req.DryRun = false
	applied, err := e.eng.MoveFile(ctx, plan.ID, req)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if applied.RewriteCount != preview.RewriteCount || applied.NewPath != preview.NewPath {
		t.Errorf("apply %+v differs from preview %+v", applied, preview)
	}
}

func TestRename_HandsBacklinksToDuplicateTitle(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "p")
	ctx := context.Background()
	b := e.file(t, p.ID, "b.md", "Guide", "")
	c := e.file(t, p.ID, "c.md", "Guide", "")
	a := e.file(t, p.ID, "a.md", "A", "[[Guide]]")

	if _, err := e.eng.MoveFile(ctx, b.ID, MoveFileRequest{NewTitle: "Handbook"}); err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	out, _ := e.eng.OutgoingLinks(ctx, a.ID)
	if len(out) != 1 || out[0].TargetFileID != c.ID {
		t.Errorf("outgoing = %+v, want [[Guide]] on %s", out, c.ID)
	}
}

func TestRenameCascade_RewrittenCountsFailures(t *testing.T) {
	e := newEnv(t)
	p := e.project(t, "p")
	ctx := context.Background()
	b := e.file(t, p.ID, "b.md", "Guide", "")
	e.file(t, p.ID, "a.md", "A", "[[Guide]]")
	c := e.file(t, p.ID, "c.md", "C", "[[Guide]]")

	// A directory where c.md lives makes its rewrite fail on disk.
	if err := e.fs.Delete(p.Slug, "c.md"); err != nil {
		t.Fatal(err)
	}
	if err := e.fs.MkdirAll(p.Slug, "c.md/blocked"); err != nil {
		t.Fatal(err)
	}

	res, err := e.eng.MoveFile(ctx, b.ID, MoveFileRequest{NewTitle: "Handbook", UpdateLinks: true})
	if err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	if res.RewriteCount != 2 || res.Rewritten != 1 {
		t.Errorf("rewrite_count = %d, rewritten = %d, want 2 and 1", res.RewriteCount, res.Rewritten)
	}
	if got := e.reload(t, c.ID).Content; got != "[[Guide]]" {
		t.Errorf("failed file content = %q", got)
	}
}
