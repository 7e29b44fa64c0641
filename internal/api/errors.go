package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/collabhub/server/pkg/hub"
)

// conflictBody is the wire shape of a 409 response for a single-entity
// operation (spec §6.2).
type conflictBody struct {
	Project        string          `json:"project"`
	Entity         string          `json:"entity,omitempty"`
	EntityID       string          `json:"entityId,omitempty"`
	Version        int64           `json:"version"`
	ProjectVersion int64           `json:"projectVersion"`
	Deleted        bool            `json:"deleted,omitempty"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// writeMutationError maps a pkg/hub error to the HTTP status and body
// spec.md §7 assigns it. Every other error is a 500; its detail is
// logged (never echoed to the client) against log with the request id.
func writeMutationError(w http.ResponseWriter, log hclog.Logger, reqID string, err error) {
	var conflict *hub.ConflictError
	var invalid *hub.InvalidPayloadError

	switch {
	case errors.As(err, &conflict):
		if conflict.Document != nil {
			// Full-snapshot conflict: the authoritative document itself.
			writeJSON(w, http.StatusConflict, conflict.Document)
			return
		}
		writeJSON(w, http.StatusConflict, conflictBody{
			Project:        conflict.Project,
			Entity:         string(conflict.Entity),
			EntityID:       conflict.EntityID,
			Version:        conflict.Version,
			ProjectVersion: conflict.ProjectVersion,
			Deleted:        conflict.Deleted,
			UpdatedAt:      conflict.UpdatedAt,
			Payload:        conflict.Payload,
		})
	case errors.As(err, &invalid):
		writeJSONError(w, http.StatusBadRequest, invalid.Error())
	case errors.Is(err, hub.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "project not found")
	default:
		log.Error("storage failure", "request_id", reqID, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}
