// Package httputil holds the response writers shared by the explorer's HTTP
// handlers. Every error body has the shape of ErrorBody.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/banshee-data/sweepview/internal/monitoring"
)

// ErrorBody is the JSON body of every non-2xx API response. Missing lists the
// axes with no checked value when a selection is insufficient.
type ErrorBody struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

// WriteJSON encodes data as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		monitoring.Logf("encode %d response: %v", status, err)
	}
}

// WriteJSONOK is WriteJSON with 200 OK.
func WriteJSONOK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}

func writeError(w http.ResponseWriter, status int, body ErrorBody) {
	WriteJSON(w, status, body)
}

// BadRequest rejects a malformed request or an unknown axis or value.
func BadRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, ErrorBody{Error: msg})
}

// NotFound reports a missing figure, batch, or catalog.
func NotFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, ErrorBody{Error: msg})
}

// InternalServerError reports a load, render, or storage failure.
func InternalServerError(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusInternalServerError, ErrorBody{Error: msg})
}

// Unprocessable answers a well-formed selection that cannot be plotted.
func Unprocessable(w http.ResponseWriter, msg string, missing []string) {
	writeError(w, http.StatusUnprocessableEntity, ErrorBody{Error: msg, Missing: missing})
}

// WriteHTML writes a rendered page.
func WriteHTML(w http.ResponseWriter, page []byte) {
	WriteBytes(w, "text/html; charset=utf-8", page, false)
}

// WriteBytes writes a raw body of the given content type. Set noStore for
// outputs that change on every render.
func WriteBytes(w http.ResponseWriter, contentType string, data []byte, noStore bool) {
	w.Header().Set("Content-Type", contentType)
	if noStore {
		w.Header().Set("Cache-Control", "no-store")
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		monitoring.Logf("write %s response: %v", contentType, err)
	}
}
