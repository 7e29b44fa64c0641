package hub

import (
	"encoding/json"

	"github.com/collabhub/server/pkg/codec"
)

func upsertEventType(kind EntityKind) EventType {
	if kind == Syntax {
		return EventSyntaxUpsert
	}
	return EventGlyphUpsert
}

func deleteEventType(kind EntityKind) EventType {
	if kind == Syntax {
		return EventSyntaxDelete
	}
	return EventGlyphDelete
}

// upsertEntity is the shared implementation of UpsertGlyph/UpsertSyntax:
// glyph and syntax mutation are symmetric in every respect but which map
// they touch.
func (h *Hub) upsertEntity(kind EntityKind, projectID, clientID string, baseVersion int64, raw json.RawMessage) (EntityResult, error) {
	id, canonical, err := codec.ParseEntityItem(raw)
	if err != nil {
		return EntityResult{}, err
	}
	name := codec.EntityName(canonical)

	var result EntityResult
	doc, err := h.mutate(projectID, clientID, func(st *projectState) (*Event, error) {
		current := st.currentVersion(kind, id)
		if baseVersion != current {
			payload, existed := entityPayload(st, kind, id)
			return nil, &ConflictError{
				Project:        st.projectID,
				Entity:         kind,
				EntityID:       id,
				Version:        current,
				ProjectVersion: st.projectVersion,
				Deleted:        !existed,
				UpdatedAt:      st.updatedAt,
				Payload:        payload,
			}
		}

		version, changed := st.upsertEntity(kind, id, canonical, name)
		result = EntityResult{EntityID: id, Version: version, Payload: canonical}
		if !changed {
			return nil, nil
		}

		return &Event{
			Type:     upsertEventType(kind),
			EntityID: id,
			Version:  version,
			Payload:  canonical,
		}, nil
	})
	if err != nil {
		return EntityResult{}, err
	}

	result.ProjectVersion = doc.Version
	return result, nil
}

// deleteEntityOp is the shared implementation of DeleteGlyph/DeleteSyntax.
func (h *Hub) deleteEntityOp(kind EntityKind, projectID, clientID, id string, baseVersion int64) (EntityResult, error) {
	var result EntityResult
	doc, err := h.mutate(projectID, clientID, func(st *projectState) (*Event, error) {
		current := st.currentVersion(kind, id)
		if baseVersion != current {
			payload, existed := entityPayload(st, kind, id)
			return nil, &ConflictError{
				Project:        st.projectID,
				Entity:         kind,
				EntityID:       id,
				Version:        current,
				ProjectVersion: st.projectVersion,
				Deleted:        !existed,
				UpdatedAt:      st.updatedAt,
				Payload:        payload,
			}
		}

		priorVersion, existed := st.deleteEntity(kind, id)
		if !existed {
			// Already absent: no-op per spec, no event.
			result = EntityResult{EntityID: id, Version: 0, Deleted: true}
			return nil, nil
		}

		result = EntityResult{EntityID: id, Version: priorVersion, Deleted: true}
		return &Event{
			Type:     deleteEventType(kind),
			EntityID: id,
			Version:  priorVersion,
			Deleted:  true,
		}, nil
	})
	if err != nil {
		return EntityResult{}, err
	}

	result.ProjectVersion = doc.Version
	return result, nil
}

func entityPayload(st *projectState, kind EntityKind, id string) (payload json.RawMessage, existed bool) {
	m, _, _ := st.entityMaps(kind)
	payload, existed = m[id]
	return payload, existed
}
