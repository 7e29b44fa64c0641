package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/collabhub/server/internal/server"
	"github.com/collabhub/server/pkg/hub"
)

func handleMetrics(srv *server.Server, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	projectID := hub.SanitizeProjectID(r.URL.Query().Get("project"))

	var req metricsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Metrics) == 0 {
		writeJSONError(w, http.StatusBadRequest, "metrics payload is required")
		return
	}

	result, err := srv.Hub.UpdateMetrics(projectID, req.ClientID, *req.BaseVersion, req.Metrics)
	if err != nil {
		writeMutationError(w, srv.Logger, uuid.NewString(), err)
		return
	}
	writeJSON(w, http.StatusOK, entityResponse(result))
}
