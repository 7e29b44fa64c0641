package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/collabhub/server/internal/server"
	"github.com/collabhub/server/pkg/hub"
)

func handleProject(srv *server.Server, w http.ResponseWriter, r *http.Request) {
	projectID := hub.SanitizeProjectID(r.URL.Query().Get("project"))

	switch r.Method {
	case http.MethodGet:
		doc, err := srv.Hub.GetProject(projectID)
		if err != nil {
			writeMutationError(w, srv.Logger, uuid.NewString(), err)
			return
		}
		writeJSON(w, http.StatusOK, doc)

	case http.MethodPut:
		defer r.Body.Close()

		var req projectRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if err := req.Validate(); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		doc, err := srv.Hub.ReplaceProject(
			projectID, req.ClientID, *req.BaseVersion, req.Glyphs, req.Syntaxes, req.Metrics,
		)
		if err != nil {
			writeMutationError(w, srv.Logger, uuid.NewString(), err)
			return
		}
		writeJSON(w, http.StatusOK, doc)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
