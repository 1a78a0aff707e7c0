package api

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/atrium/internal/workspace"
)

func uploadFile(t *testing.T, router http.Handler, target, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, bytes.NewReader(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadAndServeAttachment(t *testing.T) {
	h := testEnv(t, "")
	p := createProject(t, h, "Docs")
	target := "/projects/" + p.ID + "/attachments/upload"

	w := uploadFile(t, h, target, "my shot (1).png", []byte("fake-png-data"))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	first := decodeBody[workspace.Asset](t, w)
	if first.Path != "artifacts/assets/my-shot-1.png" || first.Size != len("fake-png-data") {
		t.Errorf("asset = %+v", first)
	}

	// Same name again: stored beside the first, never over it.
	w = uploadFile(t, h, target, "my shot (1).png", []byte("second"))
	second := decodeBody[workspace.Asset](t, w)
	if second.Path != "artifacts/assets/my-shot-1-1.png" {
		t.Errorf("second path = %q", second.Path)
	}

	w = do(t, h, http.MethodGet, "/projects/"+p.ID+"/attachments/"+first.Name, nil)
	if w.Code != http.StatusOK || w.Body.String() != "fake-png-data" {
		t.Errorf("serve = %d %q", w.Code, w.Body.String())
	}
}

func TestUploadAttachment_PathStripped(t *testing.T) {
	h := testEnv(t, "")
	p := createProject(t, h, "Docs")

	w := uploadFile(t, h, "/projects/"+p.ID+"/attachments/upload", "../escape.txt", []byte("bad"))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	if got := decodeBody[workspace.Asset](t, w).Path; got != "artifacts/assets/escape.txt" {
		t.Errorf("path = %q", got)
	}
}

func TestUploadAttachment_Errors(t *testing.T) {
	h := testEnv(t, "")
	p := createProject(t, h, "Docs")

	w := uploadFile(t, h, "/projects/missing/attachments/upload", "x.png", []byte("x"))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown project = %d, want 404", w.Code)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("wrong", "data")
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/projects/"+p.ID+"/attachments/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing field = %d, want 400", w.Code)
	}

	w = do(t, h, http.MethodGet, "/projects/"+p.ID+"/attachments/nope.png", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing asset = %d, want 404", w.Code)
	}
}

func TestUploadAttachment_AuthProtected(t *testing.T) {
	h := testEnv(t, "secret")
	w := uploadFile(t, h, "/projects/any/attachments/upload", "x.png", []byte("data"))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("upload no auth = %d, want 401", w.Code)
	}
}
