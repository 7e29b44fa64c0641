package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/collabhub/server/internal/server"
	"github.com/collabhub/server/pkg/hub"
)

const pingInterval = 20 * time.Second

func handleEvents(srv *server.Server, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	projectID := hub.SanitizeProjectID(r.URL.Query().Get("project"))

	sub, doc, preExisted, err := srv.Hub.Subscribe(projectID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer srv.Hub.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if preExisted {
		snapshot := hub.Event{
			Type:           hub.EventSnapshot,
			ProjectVersion: doc.Version,
			Document:       doc,
		}
		if !writeSSE(w, flusher, snapshot) {
			return
		}
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": ping %d\n\n", time.Now().UnixNano()); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if !writeSSE(w, flusher, event) {
				return
			}
		}
	}
}

// writeSSE writes one SSE frame (id, event, data, blank line) and
// flushes it. It reports whether the write succeeded; the caller should
// stop on false, as the connection is no longer usable.
func writeSSE(w http.ResponseWriter, flusher http.Flusher, event hub.Event) bool {
	payload, err := json.Marshal(event)
	if err != nil {
		return false
	}
	if _, err := fmt.Fprintf(w, "id: %d\n", event.ProjectVersion); err != nil {
		return false
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
		return false
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return false
	}
	flusher.Flush()
	return true
}
