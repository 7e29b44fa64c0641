// Package hub is the authoritative in-memory owner of every project's
// state: entity maps, per-entity and per-project version counters, and
// the subscriber set that receives change events. It serializes all
// mutation of a project behind one coarse read-write mutex, persists
// every successful mutation through pkg/storage, and publishes one event
// per mutation through pkg/fanout.
package hub

import (
	"encoding/json"
	"regexp"

	"github.com/collabhub/server/pkg/storage"
)

// Document is the wire-and-disk representation of a project: the
// aggregate snapshot plus per-entity version maps a client needs to
// resume editing against.
type Document = storage.Document

var projectIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// SanitizeProjectID coerces any id not matching the allowed character
// class to "default". Applied uniformly by every endpoint.
func SanitizeProjectID(raw string) string {
	if raw != "" && projectIDPattern.MatchString(raw) {
		return raw
	}
	return "default"
}

// EntityKind distinguishes glyph and syntax operations, which are
// symmetric in every respect but the map they act on.
type EntityKind string

const (
	Glyph   EntityKind = "glyph"
	Syntax  EntityKind = "syntax"
	Metrics EntityKind = "metrics"
)

// EntityResult is returned by the five per-entity mutation operations
// (glyph and syntax upsert/delete, and metrics update).
type EntityResult struct {
	EntityID       string
	Version        int64
	ProjectVersion int64
	Deleted        bool
	Payload        json.RawMessage
}
