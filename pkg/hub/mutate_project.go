package hub

import (
	"encoding/json"

	"github.com/collabhub/server/pkg/codec"
)

// ReplaceProject applies a full-snapshot PUT: an arbitrary new glyph set,
// syntax set, and metrics value. baseVersion is compared against
// projectVersion, not any per-entity version. Per-entity versions are
// reconciled per id: new ids start at 1, changed ids increment,
// byte-identical ids are unchanged, and ids missing from the incoming
// payload are removed. projectVersion always advances by 1 on success,
// even if every entity happened to be byte-identical (a full-snapshot
// write is always treated as a new revision).
func (h *Hub) ReplaceProject(projectID, clientID string, baseVersion int64, glyphsRaw, syntaxesRaw, metricsRaw json.RawMessage) (*Document, error) {
	snapshot, err := codec.NormalizeSnapshot(glyphsRaw, syntaxesRaw, metricsRaw)
	if err != nil {
		return nil, err
	}
	newGlyphs, err := codec.ParseEntityArray(snapshot.Glyphs)
	if err != nil {
		return nil, err
	}
	newSyntaxes, err := codec.ParseEntityArray(snapshot.Syntaxes)
	if err != nil {
		return nil, err
	}
	newMetrics, err := codec.NormalizedRawObject(snapshot.Metrics)
	if err != nil {
		return nil, err
	}

	return h.mutate(projectID, clientID, func(st *projectState) (*Event, error) {
		if baseVersion != st.projectVersion {
			return nil, &ConflictError{
				Project:        st.projectID,
				ProjectVersion: st.projectVersion,
				Document:       st.document(),
			}
		}

		reconcileEntities(st, Glyph, newGlyphs)
		reconcileEntities(st, Syntax, newSyntaxes)

		if !bytesEqual(st.metrics, newMetrics) {
			st.metricsVersion++
		} else if st.metricsVersion == 0 {
			st.metricsVersion = 1
		}
		st.metrics = newMetrics

		// A full-snapshot write is always a new revision, even when
		// every entity was byte-identical to what was already stored.
		return &Event{Type: EventSnapshot}, nil
	})
}

// reconcileEntities replaces kind's map with incoming wholesale,
// preserving versions for unchanged ids, incrementing for changed ids,
// starting new ids at 1, and dropping ids no longer present.
func reconcileEntities(st *projectState, kind EntityKind, incoming map[string]json.RawMessage) {
	payload, versions, names := st.entityMaps(kind)

	for id := range payload {
		if _, ok := incoming[id]; !ok {
			delete(payload, id)
			delete(versions, id)
			delete(names, id)
		}
	}

	for id, canonical := range incoming {
		prior, existed := payload[id]
		payload[id] = canonical
		names[id] = codec.EntityName(canonical)

		switch {
		case !existed:
			versions[id] = 1
		case bytesEqual(prior, canonical):
			if versions[id] == 0 {
				versions[id] = 1
			}
		default:
			versions[id] = versions[id] + 1
		}
	}
}
