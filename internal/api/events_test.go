package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsSSEEmitsSnapshotThenChangeEvent(t *testing.T) {
	srv := newTestServer()
	router := NewRouter(srv)

	// Seed the project so the SSE handler reports preExisted and emits
	// an initial snapshot event (spec.md S4).
	rec := doRequest(t, router, http.MethodPut, "/api/glyph?project=demo",
		`{"baseVersion":0,"glyph":{"id":"a"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events?project=demo", nil).WithContext(ctx)
	sseRec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		router.ServeHTTP(sseRec, req)
		close(done)
	}()

	// Give the subscriber a moment to receive the snapshot, then mutate
	// and let the handler see the change event before cancelling.
	time.Sleep(50 * time.Millisecond)
	rec = doRequest(t, router, http.MethodPut, "/api/metrics?project=demo",
		`{"baseVersion":0,"metrics":{"x":1}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := sseRec.Body.String()
	assert.Contains(t, body, "event: snapshot")
	assert.Contains(t, body, "event: metrics_update")
	assert.Contains(t, body, "id: 1")
	assert.Contains(t, body, "id: 2")
}

func TestEventsRejectsNonGet(t *testing.T) {
	router := NewRouter(newTestServer())
	rec := doRequest(t, router, http.MethodPost, "/api/events?project=demo", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
