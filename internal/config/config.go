// Package config resolves the server's configuration from, in ascending
// precedence: built-in defaults, an optional HCL file, and explicit CLI
// flags.
package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Config is the fully resolved configuration the server runs with.
type Config struct {
	Addr        string
	DataDir     string
	AllowOrigin string
	UIDir       string
	OpenBrowser bool
	LogLevel    string
	LogJSON     bool
}

// Default returns the built-in defaults from §6.1.
func Default() *Config {
	return &Config{
		Addr:        ":8090",
		DataDir:     "./data",
		AllowOrigin: "*",
		UIDir:       "",
		OpenBrowser: false,
		LogLevel:    "info",
		LogJSON:     false,
	}
}

// FileConfig is the shape of an optional --config HCL file. Every field
// is optional; fields left unset in the file don't override the
// built-in default (and are themselves overridden by an explicit flag).
type FileConfig struct {
	Addr        *string `hcl:"addr,optional"`
	DataDir     *string `hcl:"data_dir,optional"`
	AllowOrigin *string `hcl:"allow_origin,optional"`
	UIDir       *string `hcl:"ui_dir,optional"`
	OpenBrowser *bool   `hcl:"open_browser,optional"`
	LogLevel    *string `hcl:"log_level,optional"`
	LogJSON     *bool   `hcl:"log_json,optional"`
}

// LoadFile parses an HCL config file and applies any fields it sets onto
// cfg, in place.
func LoadFile(path string, cfg *Config) error {
	var fc FileConfig
	if err := hclsimple.DecodeFile(path, nil, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if fc.Addr != nil {
		cfg.Addr = *fc.Addr
	}
	if fc.DataDir != nil {
		cfg.DataDir = *fc.DataDir
	}
	if fc.AllowOrigin != nil {
		cfg.AllowOrigin = *fc.AllowOrigin
	}
	if fc.UIDir != nil {
		cfg.UIDir = *fc.UIDir
	}
	if fc.OpenBrowser != nil {
		cfg.OpenBrowser = *fc.OpenBrowser
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.LogJSON != nil {
		cfg.LogJSON = *fc.LogJSON
	}
	return nil
}
