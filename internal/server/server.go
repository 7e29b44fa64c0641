// Package server holds the shared, long-lived dependencies every HTTP
// handler needs: the hub, the logger, and the resolved configuration.
package server

import (
	"github.com/hashicorp/go-hclog"

	"github.com/collabhub/server/internal/config"
	"github.com/collabhub/server/pkg/hub"
)

// Server bundles the dependencies handlers in internal/api need. It has
// no behavior of its own; internal/cmd/commands/serve constructs one and
// internal/api reads from it.
type Server struct {
	// Hub is the authoritative in-memory state for every project.
	Hub *hub.Hub

	// Config is the resolved configuration (flags merged over any
	// --config file, merged over built-in defaults).
	Config *config.Config

	// Logger is the logger for the server.
	Logger hclog.Logger
}
