// Package storage implements the crash-safe, atomic on-disk layout for a
// project: an authoritative aggregate snapshot plus per-entity files kept
// for human inspection only. All operations are pure functions over an
// afero.Fs so the atomic-write/rename/cleanup logic can be exercised
// against an in-memory filesystem in tests and a real one in production.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
)

const (
	dirMode  = 0o755
	fileMode = 0o644
)

// Document is the full on-disk (and wire) representation of one project.
type Document struct {
	Project        string            `json:"project"`
	Version        int64             `json:"version"`
	UpdatedAt      time.Time         `json:"updatedAt"`
	Glyphs         json.RawMessage   `json:"glyphs"`
	Syntaxes       json.RawMessage   `json:"syntaxes"`
	Metrics        json.RawMessage   `json:"metrics"`
	GlyphVersions  map[string]int64  `json:"glyphVersions"`
	SyntaxVersions map[string]int64  `json:"syntaxVersions"`
	MetricsVersion int64             `json:"metricsVersion"`
}

// EntityFiles is the set of per-entity payloads to mirror to disk,
// keyed by entity id, alongside the human-readable name used to derive a
// filename.
type EntityFiles struct {
	// Payload keyed by id.
	Payload map[string]json.RawMessage
	// Name keyed by id; may be empty, in which case the id itself (then
	// "unnamed") is used as the filename stem.
	Name map[string]string
}

// Store persists and loads project documents under a root directory.
type Store struct {
	fs      afero.Fs
	dataDir string
}

// New creates a Store rooted at dataDir on the given filesystem.
func New(fs afero.Fs, dataDir string) *Store {
	return &Store{fs: fs, dataDir: dataDir}
}

func (s *Store) projectFile(projectID string) string {
	return filepath.Join(s.dataDir, projectID+".json")
}

func (s *Store) entityDir(projectID, kind string) string {
	return filepath.Join(s.dataDir, projectID, kind)
}

func (s *Store) metricsFile(projectID string) string {
	return filepath.Join(s.dataDir, projectID, "metrics.json")
}

// Load reads the aggregate snapshot for projectID. existed is false and
// err is nil when no snapshot file is present (caller should treat the
// project as never-created, not as a storage failure).
func (s *Store) Load(projectID string) (doc *Document, existed bool, err error) {
	raw, err := afero.ReadFile(s.fs, s.projectFile(projectID))
	if err != nil {
		if isNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading project snapshot: %w", err)
	}

	d, err := decodeDocument(raw, projectID)
	if err != nil {
		return nil, false, fmt.Errorf("decoding project snapshot: %w", err)
	}
	return d, true, nil
}

// decodeDocument supports both the current aggregate format and the
// legacy flat format (only glyphs/syntaxes/metrics, no project/version).
func decodeDocument(raw []byte, projectID string) (*Document, error) {
	// Probe for the format first: a legacy updatedAt need not be
	// RFC-3339, so decoding it into Document.UpdatedAt could fail.
	var probe struct {
		Project string `json:"project"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	if probe.Project != "" {
		var full Document
		if err := json.Unmarshal(raw, &full); err != nil {
			return nil, err
		}
		if full.GlyphVersions == nil {
			full.GlyphVersions = map[string]int64{}
		}
		if full.SyntaxVersions == nil {
			full.SyntaxVersions = map[string]int64{}
		}
		return &full, nil
	}

	// Legacy flat format: only the three snapshot fields were ever written.
	var legacy struct {
		Glyphs    json.RawMessage `json:"glyphs"`
		Syntaxes  json.RawMessage `json:"syntaxes"`
		Metrics   json.RawMessage `json:"metrics"`
		UpdatedAt string          `json:"updatedAt"`
	}
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, err
	}

	updatedAt := time.Now().UTC()
	if legacy.UpdatedAt != "" {
		if t, err := dateparse.ParseAny(legacy.UpdatedAt); err == nil {
			updatedAt = t.UTC()
		}
	}

	return &Document{
		Project:        projectID,
		Version:        1,
		UpdatedAt:      updatedAt,
		Glyphs:         legacy.Glyphs,
		Syntaxes:       legacy.Syntaxes,
		Metrics:        legacy.Metrics,
		GlyphVersions:  map[string]int64{},
		SyntaxVersions: map[string]int64{},
	}, nil
}

// SaveResult reports the outcome of the best-effort half of Save.
type SaveResult struct {
	// EntityErr holds any error encountered mirroring or cleaning up
	// per-entity files. The aggregate write already succeeded when this
	// is non-nil; callers may log it without failing the mutation.
	EntityErr error
}

// Save atomically persists the aggregate document and mirrors glyph and
// syntax payloads to their per-entity files, then removes any stale
// per-entity file left over from a previous revision. The aggregate write
// is the authoritative step and only its failure is returned as err;
// per-entity mirroring is best-effort and its failures are reported in
// SaveResult.EntityErr instead.
func (s *Store) Save(doc *Document, glyphs, syntaxes EntityFiles) (SaveResult, error) {
	if err := s.fs.MkdirAll(s.dataDir, dirMode); err != nil {
		return SaveResult{}, fmt.Errorf("creating data dir: %w", err)
	}

	if err := atomicWriteJSON(s.fs, s.projectFile(doc.Project), doc); err != nil {
		return SaveResult{}, fmt.Errorf("writing project snapshot: %w", err)
	}

	var merr *multierror.Error

	if err := s.mirrorEntities(doc.Project, "glyphs", glyphs); err != nil {
		merr = multierror.Append(merr, err)
	}
	if err := s.mirrorEntities(doc.Project, "syntaxes", syntaxes); err != nil {
		merr = multierror.Append(merr, err)
	}
	if err := atomicWriteJSON(s.fs, s.metricsFile(doc.Project), json.RawMessage(doc.Metrics)); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("writing metrics file: %w", err))
	}

	return SaveResult{EntityErr: merr.ErrorOrNil()}, nil
}

func (s *Store) mirrorEntities(projectID, kind string, files EntityFiles) error {
	dir := s.entityDir(projectID, kind)
	if err := s.fs.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("creating %s dir: %w", kind, err)
	}

	expected := make(map[string]string, len(files.Payload)) // filename -> id
	ids := make([]string, 0, len(files.Payload))
	for id := range files.Payload {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	used := make(map[string]bool, len(ids))
	var merr *multierror.Error
	for _, id := range ids {
		filename := deriveFilename(files.Name[id], id, used)
		used[filename] = true
		expected[filename] = id

		path := filepath.Join(dir, filename)
		if err := atomicWriteJSON(s.fs, path, json.RawMessage(files.Payload[id])); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("writing %s/%s: %w", kind, filename, err))
		}
	}

	if err := s.cleanupStale(dir, expected); err != nil {
		merr = multierror.Append(merr, err)
	}

	return merr.ErrorOrNil()
}

// cleanupStale removes any *.json file in dir whose name is not in
// expected. Errors from individual removals are aggregated; the caller
// treats the aggregate as fatal to the "entity files" half of the
// mutation but not to the aggregate snapshot write.
func (s *Store) cleanupStale(dir string, expected map[string]string) error {
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		if isNotExist(err) {
			return nil
		}
		return fmt.Errorf("listing %s: %w", dir, err)
	}

	var merr *multierror.Error
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		if _, ok := expected[name]; ok {
			continue
		}
		if err := s.fs.Remove(filepath.Join(dir, name)); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("removing stale file %s: %w", name, err))
		}
	}
	return merr.ErrorOrNil()
}

// deriveFilename sanitizes name (falling back to id, then "unnamed") and
// resolves collisions against used by appending "--<id>" and then
// "-<N>".
func deriveFilename(name, id string, used map[string]bool) string {
	stem := sanitizeStem(name)
	if stem == "" {
		stem = sanitizeStem(id)
	}
	if stem == "" {
		stem = "unnamed"
	}

	candidate := stem + ".json"
	if !used[candidate] {
		return candidate
	}

	candidate = fmt.Sprintf("%s--%s.json", stem, sanitizeStem(id))
	if !used[candidate] {
		return candidate
	}

	for n := 2; ; n++ {
		candidate = fmt.Sprintf("%s-%d.json", stem, n)
		if !used[candidate] {
			return candidate
		}
	}
}

func sanitizeStem(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case r < 0x20 || r == 0x7f:
			return '_'
		default:
			return r
		}
	}, s)
	return strings.TrimSpace(s)
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
