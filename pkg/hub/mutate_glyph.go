package hub

import "encoding/json"

// UpsertGlyph inserts or replaces the glyph named by raw's "id" field.
// baseVersion must equal glyphVersions[id] (0 if the glyph doesn't exist
// yet) or the call fails with a *ConflictError.
func (h *Hub) UpsertGlyph(projectID, clientID string, baseVersion int64, raw json.RawMessage) (EntityResult, error) {
	return h.upsertEntity(Glyph, projectID, clientID, baseVersion, raw)
}

// DeleteGlyph removes the glyph with the given id. A delete of an
// already-absent id is a no-op, not an error, as long as baseVersion is 0.
func (h *Hub) DeleteGlyph(projectID, clientID, id string, baseVersion int64) (EntityResult, error) {
	return h.deleteEntityOp(Glyph, projectID, clientID, id, baseVersion)
}
