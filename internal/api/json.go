package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/starford/atrium/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func errorBody(code, msg string) errResponse {
	return errResponse{Code: code, Error: msg}
}

// statusFor maps a wire code to its HTTP status.
func statusFor(code string) int {
	switch code {
	case apperr.CodeBadPath, apperr.CodeInvalid:
		return http.StatusBadRequest
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeDirNotEmpty, apperr.CodeAlreadyExists, apperr.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err with its wire code. Internal failures are logged and
// their detail hidden from the caller.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperr.Code(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		slog.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		writeJSON(w, status, errorBody(code, "internal error"))
		return
	}
	writeJSON(w, status, errorBody(code, err.Error()))
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody(apperr.CodeInvalid, msg))
}
