package api

import (
	"net/http"

	"github.com/collabhub/server/internal/server"
)

func handleHealth(srv *server.Server, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
