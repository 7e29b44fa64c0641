// Package codec validates and canonicalizes the opaque JSON payloads
// (glyphs, syntaxes, metrics) that the hub stores without interpreting.
// Re-encoding is the only semantic the codec imposes: it gives the hub a
// deterministic byte form to compare for "did this change?" and a stable
// sort key (id) to serialize entity collections with.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/forPelevin/gomoji"
)

// InvalidPayloadError reports a client payload that failed structural
// validation. It always maps to HTTP 400 at the API boundary.
type InvalidPayloadError struct {
	Reason string
}

func (e *InvalidPayloadError) Error() string {
	return e.Reason
}

func invalid(format string, args ...any) error {
	return &InvalidPayloadError{Reason: fmt.Sprintf(format, args...)}
}

// defaultGlyphs, defaultSyntaxes, defaultMetrics are the canonical empty
// forms used whenever a snapshot field is missing or null.
var (
	defaultGlyphs   = json.RawMessage(`[]`)
	defaultSyntaxes = json.RawMessage(`[]`)
	defaultMetrics  = json.RawMessage(`{}`)
)

// Snapshot holds the three un-interpreted project fields after normalization.
type Snapshot struct {
	Glyphs   json.RawMessage
	Syntaxes json.RawMessage
	Metrics  json.RawMessage
}

// NormalizeSnapshot fills in canonical empty defaults for missing/null
// fields and otherwise validates that each field, if present, is valid
// JSON. It does not interpret array-vs-object shape; that is the job of
// ParseEntityArray and NormalizedRawObject downstream.
func NormalizeSnapshot(glyphs, syntaxes, metrics json.RawMessage) (Snapshot, error) {
	out := Snapshot{}

	var err error
	if out.Glyphs, err = normalizeOrDefault(glyphs, defaultGlyphs, "glyphs"); err != nil {
		return Snapshot{}, err
	}
	if out.Syntaxes, err = normalizeOrDefault(syntaxes, defaultSyntaxes, "syntaxes"); err != nil {
		return Snapshot{}, err
	}
	if out.Metrics, err = normalizeOrDefault(metrics, defaultMetrics, "metrics"); err != nil {
		return Snapshot{}, err
	}
	return out, nil
}

func normalizeOrDefault(raw, def json.RawMessage, field string) (json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return def, nil
	}
	if !json.Valid(raw) {
		return nil, invalid("%s is not valid JSON", field)
	}
	return raw, nil
}

// ParseEntityArray parses a JSON array of objects, each re-encoded to
// canonical bytes and indexed by its trimmed "id". Duplicate ids within
// the array overwrite earlier occurrences (later wins). Fails on
// non-array input, a non-object element, or a missing/empty id.
func ParseEntityArray(raw json.RawMessage) (map[string]json.RawMessage, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, invalid("expected a JSON array: %v", err)
	}

	out := make(map[string]json.RawMessage, len(elements))
	for i, elem := range elements {
		id, canonical, err := canonicalizeEntity(elem)
		if err != nil {
			return nil, invalid("element %d: %v", i, err)
		}
		out[id] = canonical
	}
	return out, nil
}

// ParseEntityItem parses a single JSON object using the same id rules as
// ParseEntityArray, returning the trimmed id and the canonical bytes.
func ParseEntityItem(raw json.RawMessage) (id string, canonical json.RawMessage, err error) {
	id, canonical, err = canonicalizeEntity(raw)
	if err != nil {
		return "", nil, invalid("%v", err)
	}
	return id, canonical, nil
}

func canonicalizeEntity(raw json.RawMessage) (id string, canonical json.RawMessage, err error) {
	canonical, obj, err := normalizedRawObjectWithMap(raw)
	if err != nil {
		return "", nil, err
	}

	rawID, ok := obj["id"]
	if !ok {
		return "", nil, fmt.Errorf("missing id")
	}
	idStr, ok := rawID.(string)
	if !ok {
		return "", nil, fmt.Errorf("id must be a string")
	}
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		return "", nil, fmt.Errorf("id must not be empty")
	}
	return idStr, canonical, nil
}

// NormalizedRawObject decodes raw as a JSON object and re-encodes it
// deterministically, returning the canonical bytes. It fails on non-object
// or invalid JSON. The returned bytes are what the hub compares for
// change detection.
func NormalizedRawObject(raw json.RawMessage) (json.RawMessage, error) {
	canonical, _, err := normalizedRawObjectWithMap(raw)
	if err != nil {
		return nil, invalid("%v", err)
	}
	return canonical, nil
}

func normalizedRawObjectWithMap(raw json.RawMessage) (json.RawMessage, map[string]any, error) {
	var obj map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return nil, nil, fmt.Errorf("expected a JSON object: %w", err)
	}

	canonical, err := json.Marshal(obj)
	if err != nil {
		return nil, nil, fmt.Errorf("re-encoding object: %w", err)
	}
	return canonical, obj, nil
}

// SerializeEntityMap emits the entity map as a JSON array sorted by id
// ascending. This ordering is an external contract: persisted snapshots
// and snapshot events are byte-stable modulo payload mutation.
func SerializeEntityMap(entities map[string]json.RawMessage) json.RawMessage {
	ids := make([]string, 0, len(entities))
	for id := range entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, id := range ids {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(entities[id])
	}
	buf.WriteByte(']')
	return json.RawMessage(buf.Bytes())
}

// EntityName extracts the best-effort human-readable "name" field from a
// canonical entity payload, stripped of emoji and control characters, for
// use by the persistence layer when deriving filenames. It never fails:
// an absent or non-string name yields "".
func EntityName(canonical json.RawMessage) string {
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(canonical, &obj); err != nil {
		return ""
	}
	clean := gomoji.RemoveEmojis(obj.Name)
	clean = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, clean)
	return strings.TrimSpace(clean)
}
