// Package api implements the HTTP/SSE surface in front of pkg/hub: method
// dispatch, CORS, request decoding, and error-to-status-code mapping. It
// holds no state of its own beyond a *server.Server.
package api

import (
	"encoding/json"
	"net/http"
)

// maxBodyBytes bounds every request body the API will decode.
const maxBodyBytes = 20 << 20

// decodeJSON decodes r.Body into v, capping the body at maxBodyBytes and
// rejecting unknown fields. The caller is still responsible for closing
// r.Body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeJSON encodes v as the response body with status and the standard
// Content-Type.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a plain {"error": message} body.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
