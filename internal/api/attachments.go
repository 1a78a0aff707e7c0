package api

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const maxUploadBytes = 50 << 20 // 50 MB

// UploadAttachment handles POST /projects/{projectID}/attachments/upload
// (multipart/form-data, field "file").
func (h *Handler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		badRequest(w, "file too large or invalid multipart")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "missing 'file' field in multipart form")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(w, "failed to read upload")
		return
	}
	name := header.Filename
	if name == "" {
		name = "upload"
	}
	asset, err := h.eng.UploadAsset(r.Context(), chi.URLParam(r, "projectID"), name, data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

// ServeAttachment handles GET /projects/{projectID}/attachments/{name}.
func (h *Handler) ServeAttachment(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	data, err := h.eng.ReadAsset(r.Context(), chi.URLParam(r, "projectID"), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(data))
}
