// Package serve implements the "serve" subcommand: resolve
// configuration, wire the hub/storage/API layers together, and run the
// HTTP server until it is told to shut down.
package serve

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"

	"github.com/collabhub/server/internal/api"
	"github.com/collabhub/server/internal/config"
	"github.com/collabhub/server/internal/server"
	"github.com/collabhub/server/pkg/hub"
	"github.com/collabhub/server/pkg/storage"
)

// shutdownDrain is the cooperative drain deadline spec.md §5 requires.
const shutdownDrain = 5 * time.Second

// Command implements the "serve" subcommand.
type Command struct {
	UI cli.Ui
}

func (c *Command) Synopsis() string {
	return "Run the collaboration hub server"
}

func (c *Command) Help() string {
	return "Usage: collabhub serve [options]\n\n" +
		"  -addr          listen address (default \":8090\")\n" +
		"  -data-dir      snapshot root directory (default \"./data\")\n" +
		"  -allow-origin  CORS allow-origin, or \"*\" (default \"*\")\n" +
		"  -ui-dir        optional static UI root\n" +
		"  -config        optional HCL file of defaults for the above\n" +
		"  -open-browser  open -addr in a browser once ready\n" +
		"  -log-level     trace, debug, info, warn, error (default \"info\")\n" +
		"  -log-json      emit JSON formatted logs\n"
}

// flagValues holds what the command line actually set, kept separate
// from cfg so the precedence chain — default < -config file < explicit
// flag — can be applied in that order after parsing.
type flagValues struct {
	addr, dataDir, allowOrigin, uiDir, configPath, logLevel string
	openBrowser, logJSON                                    bool
}

func (c *Command) Run(args []string) int {
	var v flagValues

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.StringVar(&v.addr, "addr", "", "listen address")
	fs.StringVar(&v.dataDir, "data-dir", "", "snapshot root directory")
	fs.StringVar(&v.allowOrigin, "allow-origin", "", "CORS allow-origin, or \"*\"")
	fs.StringVar(&v.uiDir, "ui-dir", "", "optional static UI root")
	fs.StringVar(&v.configPath, "config", "", "optional HCL config file")
	fs.BoolVar(&v.openBrowser, "open-browser", false, "open -addr in a browser once ready")
	fs.StringVar(&v.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	fs.BoolVar(&v.logJSON, "log-json", false, "emit JSON formatted logs")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg := config.Default()
	if v.configPath != "" {
		if err := config.LoadFile(v.configPath, cfg); err != nil {
			c.UI.Error(err.Error())
			return 1
		}
	}

	// Explicit flags win over both the built-in default and any -config
	// file value (spec.md §6.1). flag.Visit only calls back for flags
	// the user actually set, so unset flags never clobber cfg.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = v.addr
		case "data-dir":
			cfg.DataDir = v.dataDir
		case "allow-origin":
			cfg.AllowOrigin = v.allowOrigin
		case "ui-dir":
			cfg.UIDir = v.uiDir
		case "open-browser":
			cfg.OpenBrowser = v.openBrowser
		case "log-level":
			cfg.LogLevel = v.logLevel
		case "log-json":
			cfg.LogJSON = v.logJSON
		}
	})

	logger := hclog.New(&hclog.LoggerOptions{
		Name:       "collabhub",
		Level:      hclog.LevelFromString(cfg.LogLevel),
		JSONFormat: cfg.LogJSON,
	})

	store := storage.New(afero.NewOsFs(), cfg.DataDir)
	h := hub.New(store, logger.Named("hub"))
	srv := &server.Server{Hub: h, Config: cfg, Logger: logger}

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: api.NewRouter(srv),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownDrain)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error during shutdown", "error", err)
		}
	}()

	if cfg.OpenBrowser {
		go openWhenReady(fmt.Sprintf("http://localhost%s", cfg.Addr), 10*time.Second)
	}

	logger.Info("listening", "addr", cfg.Addr, "data_dir", cfg.DataDir)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("listen failed", "error", err)
		return 1
	}
	return 0
}
