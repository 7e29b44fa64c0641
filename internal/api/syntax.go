package api

import (
	"net/http"

	"github.com/collabhub/server/internal/server"
	"github.com/collabhub/server/pkg/hub"
)

func handleSyntax(srv *server.Server, w http.ResponseWriter, r *http.Request) {
	handleEntityMutation(hub.Syntax, srv, w, r)
}
