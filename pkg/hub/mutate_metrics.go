package hub

import (
	"encoding/json"

	"github.com/collabhub/server/pkg/codec"
)

// UpdateMetrics replaces the project's metrics payload. baseVersion must
// equal metricsVersion (0 if metrics have never been set).
func (h *Hub) UpdateMetrics(projectID, clientID string, baseVersion int64, raw json.RawMessage) (EntityResult, error) {
	canonical, err := codec.NormalizedRawObject(raw)
	if err != nil {
		return EntityResult{}, err
	}

	var result EntityResult
	doc, err := h.mutate(projectID, clientID, func(st *projectState) (*Event, error) {
		if baseVersion != st.metricsVersion {
			return nil, &ConflictError{
				Project:        st.projectID,
				Entity:         Metrics,
				Version:        st.metricsVersion,
				ProjectVersion: st.projectVersion,
				UpdatedAt:      st.updatedAt,
				Payload:        st.metrics,
			}
		}

		if bytesEqual(st.metrics, canonical) {
			result = EntityResult{Version: st.metricsVersion, Payload: canonical}
			return nil, nil
		}

		st.metrics = canonical
		st.metricsVersion++
		result = EntityResult{Version: st.metricsVersion, Payload: canonical}

		return &Event{
			Type:    EventMetricsUpdate,
			Version: st.metricsVersion,
			Payload: canonical,
		}, nil
	})
	if err != nil {
		return EntityResult{}, err
	}

	result.ProjectVersion = doc.Version
	return result, nil
}
