package hub

import "encoding/json"

// UpsertSyntax is the syntax-map symmetric of UpsertGlyph.
func (h *Hub) UpsertSyntax(projectID, clientID string, baseVersion int64, raw json.RawMessage) (EntityResult, error) {
	return h.upsertEntity(Syntax, projectID, clientID, baseVersion, raw)
}

// DeleteSyntax is the syntax-map symmetric of DeleteGlyph.
func (h *Hub) DeleteSyntax(projectID, clientID, id string, baseVersion int64) (EntityResult, error) {
	return h.deleteEntityOp(Syntax, projectID, clientID, id, baseVersion)
}
