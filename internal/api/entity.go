package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/collabhub/server/internal/server"
	"github.com/collabhub/server/pkg/hub"
)

// handleEntityMutation is the shared PUT/DELETE implementation for
// /api/glyph and /api/syntax: the two endpoints are symmetric in every
// respect but which hub methods and request field they use, matching
// pkg/hub's own glyph/syntax symmetry.
func handleEntityMutation(kind hub.EntityKind, srv *server.Server, w http.ResponseWriter, r *http.Request) {
	projectID := hub.SanitizeProjectID(r.URL.Query().Get("project"))

	switch r.Method {
	case http.MethodPut:
		defer r.Body.Close()

		var req entityUpsertRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if err := req.Validate(); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		payload := req.Glyph
		if kind == hub.Syntax {
			payload = req.Syntax
		}
		if len(payload) == 0 {
			writeJSONError(w, http.StatusBadRequest, string(kind)+" payload is required")
			return
		}

		result, err := upsert(srv.Hub, kind, projectID, req.ClientID, *req.BaseVersion, payload)
		if err != nil {
			writeMutationError(w, srv.Logger, uuid.NewString(), err)
			return
		}
		writeJSON(w, http.StatusOK, entityResponse(result))

	case http.MethodDelete:
		defer r.Body.Close()

		var req entityDeleteRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if err := req.Validate(); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		result, err := deleteEntity(srv.Hub, kind, projectID, req.ClientID, req.ID, *req.BaseVersion)
		if err != nil {
			writeMutationError(w, srv.Logger, uuid.NewString(), err)
			return
		}
		writeJSON(w, http.StatusOK, entityResponse(result))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func upsert(h *hub.Hub, kind hub.EntityKind, projectID, clientID string, baseVersion int64, payload json.RawMessage) (hub.EntityResult, error) {
	if kind == hub.Syntax {
		return h.UpsertSyntax(projectID, clientID, baseVersion, payload)
	}
	return h.UpsertGlyph(projectID, clientID, baseVersion, payload)
}

func deleteEntity(h *hub.Hub, kind hub.EntityKind, projectID, clientID, id string, baseVersion int64) (hub.EntityResult, error) {
	if kind == hub.Syntax {
		return h.DeleteSyntax(projectID, clientID, id, baseVersion)
	}
	return h.DeleteGlyph(projectID, clientID, id, baseVersion)
}

// entityResponseBody is the wire shape of a successful per-entity
// mutation response.
type entityResponseBody struct {
	EntityID       string          `json:"entityId"`
	Version        int64           `json:"version"`
	ProjectVersion int64           `json:"projectVersion"`
	Deleted        bool            `json:"deleted,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

func entityResponse(r hub.EntityResult) entityResponseBody {
	return entityResponseBody{
		EntityID:       r.EntityID,
		Version:        r.Version,
		ProjectVersion: r.ProjectVersion,
		Deleted:        r.Deleted,
		Payload:        r.Payload,
	}
}
