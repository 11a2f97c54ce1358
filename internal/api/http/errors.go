package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ahrav/go-tender/internal/ports"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps an application error to an HTTP status.
func statusFor(err error) int {
	switch ports.KindOf(err) {
	case ports.KindValidation:
		return http.StatusUnprocessableEntity
	case ports.KindConflict:
		return http.StatusConflict
	case ports.KindNotFound:
		return http.StatusNotFound
	case ports.KindForbidden:
		return http.StatusForbidden
	case ports.KindStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.LogAttrs(r.Context(), slog.LevelError, "request failed",
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
	}
	writeMessage(w, status, err.Error())
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var errEmptyBody = errors.New("request body is empty")

// decode reads a JSON body into dst. It writes the error response itself
// and reports whether the handler should continue.
func (h *handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		writeMessage(w, http.StatusBadRequest, errEmptyBody.Error())
		return false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "bad json: "+err.Error())
		return false
	}
	return true
}

// decodeValid is decode followed by struct tag validation.
func (h *handlers) decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !h.decode(w, r, dst) {
		return false
	}
	if err := h.check.Struct(dst); err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	return true
}
