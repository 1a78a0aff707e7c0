package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/atrium/internal/models"
	"github.com/starford/atrium/internal/testutil"
	"github.com/starford/atrium/internal/workspace"
)

func testServer(t *testing.T) (*Server, *workspace.Engine, *models.Project) {
	t.Helper()
	db := testutil.TestDB(t)
	ix := testutil.TestIndex(t, db)
	_, fs := testutil.TestStorage(t)
	eng := workspace.New(db, fs, ix)
	p, err := eng.CreateProject(context.Background(), "alpha", "")
	if err != nil {
		t.Fatal(err)
	}
	return New(eng, ix), eng, p
}

func mustFile(t *testing.T, eng *workspace.Engine, projectID, path, title, content string) *models.File {
	t.Helper()
	f, err := eng.CreateFile(context.Background(), projectID, workspace.CreateFileInput{Path: path, Title: title, Content: content})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" helper, so handlers are invoked by name.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_projects":
		result, err = srv.listProjects(ctx, req)
	case "search_files":
		result, err = srv.searchFiles(ctx, req)
	case "read_file":
		result, err = srv.readFile(ctx, req)
	case "list_tree":
		result, err = srv.listTree(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	case "move_file":
		result, err = srv.moveFile(ctx, req)
	case "move_dir":
		result, err = srv.moveDir(ctx, req)
	case "upload_asset":
		result, err = srv.uploadAsset(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestReadFile(t *testing.T) {
	srv, eng, p := testServer(t)
	f := mustFile(t, eng, p.ID, "a.md", "A", "# Hello")

	r := callTool(t, srv, "read_file", map[string]interface{}{"file_id": f.ID})
	var got models.File
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Content != "# Hello" || got.RenderedHTML != "" {
		t.Errorf("read = %+v", got)
	}
}

func TestReadFileMissing(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "read_file", map[string]interface{}{"file_id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing file")
	}
}

func TestSearchFiles(t *testing.T) {
	srv, eng, p := testServer(t)
	mustFile(t, eng, p.ID, "a.md", "A", "needle in a haystack")

	r := callTool(t, srv, "search_files", map[string]interface{}{"query": "needle", "project_id": p.ID})
	var hits []map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &hits); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(hits) != 1 || hits[0]["path"] != "a.md" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestListTree(t *testing.T) {
	srv, eng, p := testServer(t)
	mustFile(t, eng, p.ID, "docs/a.md", "A", "")

	text := resultText(callTool(t, srv, "list_tree", map[string]interface{}{"project_id": p.ID}))
	if !strings.HasPrefix(text, "docs/\n  a.md") {
		t.Errorf("tree = %q", text)
	}
}

func TestGetBacklinks(t *testing.T) {
	srv, eng, p := testServer(t)
	target := mustFile(t, eng, p.ID, "b.md", "B", "")
	mustFile(t, eng, p.ID, "a.md", "A", "links to [[B]]")

	r := callTool(t, srv, "get_backlinks", map[string]interface{}{"file_id": target.ID})
	if text := resultText(r); text != "a.md" {
		t.Errorf("backlinks = %q, want a.md", text)
	}
}

func TestMoveFile_DryRunThenApply(t *testing.T) {
	srv, eng, p := testServer(t)
	plan := mustFile(t, eng, p.ID, "plan.md", "Plan", "")
	a := mustFile(t, eng, p.ID, "a.md", "A", "See [[Plan]]")

	args := map[string]interface{}{"file_id": plan.ID, "new_title": "Roadmap", "update_links": true, "dry_run": true}
	var preview workspace.MoveFileResult
	if err := json.Unmarshal([]byte(resultText(callTool(t, srv, "move_file", args))), &preview); err != nil {
		t.Fatal(err)
	}
	if preview.Applied || preview.RewriteCount != 1 {
		t.Errorf("preview = %+v", preview)
	}

	args["dry_run"] = false
	r := callTool(t, srv, "move_file", args)
	if r.IsError {
		t.Fatalf("move: %s", resultText(r))
	}
	got, _ := eng.GetFile(context.Background(), a.ID)
	if got.Content != "See [[Roadmap]]" {
		t.Errorf("content = %q", got.Content)
	}
}

func TestMoveFile_RequiresTarget(t *testing.T) {
	srv, eng, p := testServer(t)
	f := mustFile(t, eng, p.ID, "a.md", "A", "")
	if r := callTool(t, srv, "move_file", map[string]interface{}{"file_id": f.ID}); !r.IsError {
		t.Error("expected error without new_path or new_title")
	}
}

func TestMoveDir(t *testing.T) {
	srv, eng, p := testServer(t)
	mustFile(t, eng, p.ID, "docs/a.md", "A", "")

	r := callTool(t, srv, "move_dir", map[string]interface{}{
		"project_id": p.ID, "old_path": "docs", "new_path": "archive",
	})
	var res workspace.MoveDirResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	if !res.Applied || res.FilesCount != 1 || res.FileMoves[0].To != "archive/a.md" {
		t.Errorf("result = %+v", res)
	}
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestUploadAsset_DataURI(t *testing.T) {
	srv, eng, p := testServer(t)
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)

	for _, want := range []string{"artifacts/assets/diagram.png", "artifacts/assets/diagram-1.png"} {
		r := callTool(t, srv, "upload_asset", map[string]interface{}{
			"project_id": p.ID, "url": uri, "filename": "diagram.png",
		})
		if r.IsError {
			t.Fatalf("upload_asset: %s", resultText(r))
		}
		var got struct {
			Path          string `json:"path"`
			MarkdownImage string `json:"markdownImage"`
		}
		if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Path != want || got.MarkdownImage != "![diagram"+strings.TrimPrefix(want, "artifacts/assets/diagram")+"]("+want+")" {
			t.Errorf("result = %+v, want path %s", got, want)
		}
	}

	data, err := eng.ReadAsset(context.Background(), p.ID, "diagram.png")
	if err != nil || string(data) != string(pngBytes) {
		t.Errorf("stored asset = %q, %v", data, err)
	}
}

func TestUploadAsset_Rejects(t *testing.T) {
	srv, _, p := testServer(t)
	png := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	cases := map[string]map[string]interface{}{
		"extension":  {"project_id": p.ID, "url": png, "filename": "notes.txt"},
		"magic":      {"project_id": p.ID, "url": "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("plain text")), "filename": "x.png"},
		"mime":       {"project_id": p.ID, "url": "data:text/plain;base64,aGk="},
		"not base64": {"project_id": p.ID, "url": "data:image/png,raw"},
		"loopback":   {"project_id": p.ID, "url": "http://127.0.0.1:1/x.png"},
		"scheme":     {"project_id": p.ID, "url": "ftp://example.com/x.png"},
		"project":    {"project_id": "missing", "url": png, "filename": "x.png"},
	}
	for name, args := range cases {
		if r := callTool(t, srv, "upload_asset", args); !r.IsError {
			t.Errorf("%s: accepted: %s", name, resultText(r))
		}
	}
}

func TestFilenameFromURL(t *testing.T) {
	if got := filenameFromURL("https://example.com/img/chart.png?x=1", ".png"); got != "chart.png" {
		t.Errorf("got %q", got)
	}
	if got := filenameFromURL("https://example.com/", ".jpg"); !strings.HasSuffix(got, ".jpg") {
		t.Errorf("fallback = %q", got)
	}
	if got := filenameFromURL("data:image/gif;base64,AAAA", ""); !strings.HasSuffix(got, ".bin") {
		t.Errorf("data fallback = %q", got)
	}
}
