// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes workspace tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/atrium/internal/models"
	"github.com/starford/atrium/internal/search"
	"github.com/starford/atrium/internal/workspace"
)

const contractURI = "atrium://file-format"

// Server wraps the MCP server with workspace tools.
type Server struct {
	mcp      *server.MCPServer
	eng      *workspace.Engine
	searcher search.Searcher
}

// New creates a new MCP server with all workspace tools registered.
func New(eng *workspace.Engine, searcher search.Searcher) *Server {
	s := &Server{eng: eng, searcher: searcher}

	s.mcp = server.NewMCPServer(
		"Atrium",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List projects with their ids and slugs."),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("search_files",
		mcp.WithDescription("Full-text search through file titles, bodies and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("project_id", mcp.Description("Optional project id to restrict results")),
	), s.searchFiles)

	s.mcp.AddTool(mcp.NewTool("read_file",
		mcp.WithDescription("Read a file with its title, path, tags and Markdown content."),
		mcp.WithString("file_id", mcp.Required(), mcp.Description("File id")),
	), s.readFile)

	s.mcp.AddTool(mcp.NewTool("list_tree",
		mcp.WithDescription("Return the directory tree of a project."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id")),
		mcp.WithBoolean("include_empty_dirs", mcp.Description("Include directories without files")),
	), s.listTree)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all files that link to the specified file."),
		mcp.WithString("file_id", mcp.Required(), mcp.Description("File id to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("move_file",
		mcp.WithDescription("Move and/or rename a file. With update_links the [[old title]] "+
			"wikilinks in other files of the project are rewritten. Use dry_run to preview."),
		mcp.WithString("file_id", mcp.Required(), mcp.Description("File id")),
		mcp.WithString("new_path", mcp.Description("New relative path (e.g. archive/plan.md)")),
		mcp.WithString("new_title", mcp.Description("New title")),
		mcp.WithBoolean("update_links", mcp.Description("Rewrite wikilinks naming the old title")),
		mcp.WithBoolean("dry_run", mcp.Description("Preview without changing anything")),
	), s.moveFile)

	s.mcp.AddTool(mcp.NewTool("move_dir",
		mcp.WithDescription("Move or rename a directory subtree inside a project. Use dry_run to preview."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id")),
		mcp.WithString("old_path", mcp.Required(), mcp.Description("Current directory path")),
		mcp.WithString("new_path", mcp.Required(), mcp.Description("New directory path")),
		mcp.WithBoolean("dry_run", mcp.Description("Preview without changing anything")),
	), s.moveDir)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Store an image or PDF as a project asset from an http(s) URL or a base64 data URI. "+
			"Returns the stored path and a Markdown image reference. Existing assets are never overwritten."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id")),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:<mime>;base64,<data> URI")),
		mcp.WithString("filename", mcp.Description("Optional filename; derived from the URL when empty")),
	), s.uploadAsset)

	s.mcp.AddTool(mcp.NewTool("get_file_contract",
		mcp.WithDescription("Returns the file format contract. "+
			"Call this before writing file content to ensure correct structure."),
	), s.getFileContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "File Format Contract",
			mcp.WithResourceDescription("Markdown file format used by the workspace."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listProjects(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.eng.ListProjects(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(projects)
}

func (s *Server) searchFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.searcher.Search(ctx, req.GetString("project_id", ""), query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if hits == nil {
		hits = []search.Hit{}
	}
	return jsonResult(hits)
}

func (s *Server) readFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("file_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := s.eng.GetFile(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	// Rendered HTML is noise for a model consumer.
	view := *f
	view.RenderedHTML = ""
	return jsonResult(view)
}

func (s *Server) listTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tree, err := s.eng.Tree(ctx, projectID, req.GetBool("include_empty_dirs", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var b strings.Builder
	writeTree(&b, tree, 0)
	if b.Len() == 0 {
		return mcp.NewToolResultText("(empty)"), nil
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

// writeTree renders nodes as an indented outline. Directories end in "/".
func writeTree(b *strings.Builder, nodes []*models.TreeNode, depth int) {
	for _, n := range nodes {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(n.Name)
		if n.Type == models.NodeDir {
			b.WriteString("/\n")
			writeTree(b, n.Children, depth+1)
			continue
		}
		if n.Title != "" {
			b.WriteString("  (" + n.Title + ", " + n.FileID + ")")
		}
		b.WriteString("\n")
	}
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("file_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	refs, err := s.eng.Backlinks(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(refs) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	paths := make([]string, 0, len(refs))
	for _, r := range refs {
		paths = append(paths, r.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) moveFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("file_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mr := workspace.MoveFileRequest{
		NewPath:     req.GetString("new_path", ""),
		NewTitle:    req.GetString("new_title", ""),
		UpdateLinks: req.GetBool("update_links", false),
		DryRun:      req.GetBool("dry_run", false),
	}
	if mr.NewPath == "" && mr.NewTitle == "" {
		return mcp.NewToolResultError("new_path or new_title is required"), nil
	}
	res, err := s.eng.MoveFile(ctx, id, mr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res.File != nil {
		view := *res.File
		view.RenderedHTML = ""
		res.File = &view
	}
	return jsonResult(res)
}

func (s *Server) moveDir(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	oldPath, err := req.RequireString("old_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newPath, err := req.RequireString("new_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.eng.MoveDir(ctx, projectID, oldPath, newPath, req.GetBool("dry_run", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) getFileContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FileFormatContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     FileFormatContract,
		},
	}, nil
}
