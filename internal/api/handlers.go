package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/atrium/internal/search"
	"github.com/starford/atrium/internal/workspace"
)

const maxBody = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	eng      *workspace.Engine
	searcher search.Searcher
}

// NewHandler creates a new Handler.
func NewHandler(eng *workspace.Engine, searcher search.Searcher) *Handler {
	return &Handler{eng: eng, searcher: searcher}
}

type validatable interface {
	Validate() error
}

// decode reads a JSON body into v and validates it. It writes the error
// response itself and reports whether the handler may continue.
func decode(w http.ResponseWriter, r *http.Request, v validatable) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid JSON body")
		return false
	}
	if err := v.Validate(); err != nil {
		badRequest(w, err.Error())
		return false
	}
	return true
}

func flag(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}

// ListProjects handles GET /api/projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.eng.ListProjects(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// CreateProject handles POST /api/projects.
//
//	@Summary	Create a project
//	@Tags		projects
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreateProjectRequest	true	"Project to create"
//	@Success	201		{object}	models.Project
//	@Failure	400		{object}	errResponse
//	@Failure	409		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/projects [post]
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.eng.CreateProject(r.Context(), req.Name, req.Slug)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// GetProject handles GET /api/projects/{projectID}.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.eng.GetProject(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProject handles DELETE /api/projects/{projectID}.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.eng.DeleteProject(r.Context(), chi.URLParam(r, "projectID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListFiles handles GET /api/projects/{projectID}/files.
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.eng.ListFiles(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FileListResponse{Files: files, Total: len(files)})
}

// CreateFile handles POST /api/projects/{projectID}/files.
//
//	@Summary	Create a file
//	@Tags		files
//	@Accept		json
//	@Produce	json
//	@Param		projectID	path		string				true	"Project id"
//	@Param		body		body		CreateFileRequest	true	"File to create"
//	@Success	201			{object}	models.File
//	@Failure	400			{object}	errResponse
//	@Failure	409			{object}	errResponse
//	@Security	BearerAuth
//	@Router		/projects/{projectID}/files [post]
func (h *Handler) CreateFile(w http.ResponseWriter, r *http.Request) {
	var req CreateFileRequest
	if !decode(w, r, &req) {
		return
	}
	f, err := h.eng.CreateFile(r.Context(), chi.URLParam(r, "projectID"), workspace.CreateFileInput{
		Path:    req.Path,
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// Tree handles GET /api/projects/{projectID}/files/tree.
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.eng.Tree(r.Context(), chi.URLParam(r, "projectID"), flag(r, "include_empty_dirs"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TreeResponse{Tree: tree})
}

// CreateDir handles POST /api/projects/{projectID}/dirs.
func (h *Handler) CreateDir(w http.ResponseWriter, r *http.Request) {
	var req CreateDirRequest
	if !decode(w, r, &req) {
		return
	}
	d, created, err := h.eng.CreateDir(r.Context(), chi.URLParam(r, "projectID"), req.Path)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, CreateDirResponse{Directory: d, Created: created})
}

// MoveDir handles PATCH /api/projects/{projectID}/dirs.
//
//	@Summary	Move or rename a directory subtree
//	@Tags		dirs
//	@Accept		json
//	@Produce	json
//	@Param		projectID	path		string			true	"Project id"
//	@Param		body		body		MoveDirRequest	true	"Old and new path"
//	@Success	200			{object}	workspace.MoveDirResult
//	@Failure	400			{object}	errResponse
//	@Failure	404			{object}	errResponse
//	@Failure	409			{object}	errResponse
//	@Security	BearerAuth
//	@Router		/projects/{projectID}/dirs [patch]
func (h *Handler) MoveDir(w http.ResponseWriter, r *http.Request) {
	var req MoveDirRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.eng.MoveDir(r.Context(), chi.URLParam(r, "projectID"), req.OldPath, req.NewPath, req.DryRun)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeleteDir handles DELETE /api/projects/{projectID}/dirs?path=&force=.
func (h *Handler) DeleteDir(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		badRequest(w, "query parameter 'path' is required")
		return
	}
	res, err := h.eng.DeleteDir(r.Context(), chi.URLParam(r, "projectID"), p, flag(r, "force"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetFile handles GET /api/files/{fileID}.
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	f, err := h.eng.GetFile(r.Context(), chi.URLParam(r, "fileID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", `"`+f.Checksum+`"`)
	writeJSON(w, http.StatusOK, f)
}

// UpdateFile handles PUT /api/files/{fileID}.
//
//	@Summary	Update a file with optional optimistic concurrency
//	@Tags		files
//	@Accept		json
//	@Produce	json
//	@Param		fileID		path		string				true	"File id"
//	@Param		If-Match	header		string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param		body		body		UpdateFileRequest	true	"Changed fields"
//	@Success	200			{object}	models.File
//	@Failure	404			{object}	errResponse
//	@Failure	409			{object}	errResponse
//	@Security	BearerAuth
//	@Router		/files/{fileID} [put]
func (h *Handler) UpdateFile(w http.ResponseWriter, r *http.Request) {
	var req UpdateFileRequest
	if !decode(w, r, &req) {
		return
	}
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	f, err := h.eng.UpdateFile(r.Context(), chi.URLParam(r, "fileID"), workspace.UpdateFileInput{
		Content: req.Content,
		Title:   req.Title,
		Tags:    req.Tags,
		IfMatch: ifMatch,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", `"`+f.Checksum+`"`)
	writeJSON(w, http.StatusOK, f)
}

// DeleteFile handles DELETE /api/files/{fileID}.
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := h.eng.DeleteFile(r.Context(), chi.URLParam(r, "fileID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OutgoingLinks handles GET /api/files/{fileID}/links.
func (h *Handler) OutgoingLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.eng.OutgoingLinks(r.Context(), chi.URLParam(r, "fileID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LinksResponse{Links: links})
}

// Backlinks handles GET /api/files/{fileID}/backlinks.
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	refs, err := h.eng.Backlinks(r.Context(), chi.URLParam(r, "fileID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Backlinks: refs})
}

// MoveFile handles POST /api/files/{fileID}/move.
//
//	@Summary	Move or rename a file, optionally rewriting wikilinks
//	@Tags		files
//	@Accept		json
//	@Produce	json
//	@Param		fileID	path		string			true	"File id"
//	@Param		body	body		MoveFileRequest	true	"Target path and title"
//	@Success	200		{object}	workspace.MoveFileResult
//	@Failure	400		{object}	errResponse
//	@Failure	404		{object}	errResponse
//	@Failure	409		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/files/{fileID}/move [post]
func (h *Handler) MoveFile(w http.ResponseWriter, r *http.Request) {
	var req MoveFileRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.eng.MoveFile(r.Context(), chi.URLParam(r, "fileID"), workspace.MoveFileRequest{
		NewPath:     req.NewPath,
		NewTitle:    req.NewTitle,
		UpdateLinks: req.UpdateLinks,
		DryRun:      req.DryRun,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// BatchMove handles POST /api/files/batch/move. Item failures are reported
// in the body; the request itself succeeds.
func (h *Handler) BatchMove(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var req BatchMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	writeJSON(w, http.StatusOK, h.eng.BatchMove(r.Context(), req))
}

// Search handles GET /api/search.
//
//	@Summary	Full-text search across files
//	@Tags		search
//	@Produce	json
//	@Param		q			query		string	true	"Search query"
//	@Param		project_id	query		string	false	"Restrict to one project"
//	@Param		limit		query		int		false	"Max results"
//	@Success	200			{object}	SearchResponse
//	@Failure	400			{object}	errResponse
//	@Security	BearerAuth
//	@Router		/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		badRequest(w, "query parameter 'q' is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	hits, err := h.searcher.Search(r.Context(), r.URL.Query().Get("project_id"), q, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if hits == nil {
		hits = []search.Hit{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: hits})
}
