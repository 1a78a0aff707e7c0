package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/atrium/internal/search"
	"github.com/starford/atrium/internal/workspace"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(eng *workspace.Engine, searcher search.Searcher, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(eng, searcher)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.ListProjects)
		r.Post("/", h.CreateProject)
		r.Route("/{projectID}", func(r chi.Router) {
			r.Get("/", h.GetProject)
			r.Delete("/", h.DeleteProject)

			r.Get("/files", h.ListFiles)
			r.Post("/files", h.CreateFile)
			r.Get("/files/tree", h.Tree)

			r.Post("/dirs", h.CreateDir)
			r.Patch("/dirs", h.MoveDir)
			r.Delete("/dirs", h.DeleteDir)

			r.Post("/attachments/upload", h.UploadAttachment)
			r.Get("/attachments/{name}", h.ServeAttachment)
		})
	})

	// Registered before /files/{fileID} so "batch" is not taken for an id.
	r.Post("/files/batch/move", h.BatchMove)
	r.Route("/files/{fileID}", func(r chi.Router) {
		r.Get("/", h.GetFile)
		r.Put("/", h.UpdateFile)
		r.Delete("/", h.DeleteFile)
		r.Get("/links", h.OutgoingLinks)
		r.Get("/backlinks", h.Backlinks)
		r.Post("/move", h.MoveFile)
	})

	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
