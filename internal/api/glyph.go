package api

import (
	"net/http"

	"github.com/collabhub/server/internal/server"
	"github.com/collabhub/server/pkg/hub"
)

func handleGlyph(srv *server.Server, w http.ResponseWriter, r *http.Request) {
	handleEntityMutation(hub.Glyph, srv, w, r)
}
