package hub

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collabhub/server/pkg/storage"
)

func newTestHub() *Hub {
	store := storage.New(afero.NewMemMapFs(), "/data")
	return New(store, hclog.NewNullLogger())
}

// S1. Create-then-edit: first create, observed-identical no-op, then a
// real change.
func TestUpsertGlyphCreateEditIdempotent(t *testing.T) {
	h := newTestHub()

	result, err := h.UpsertGlyph("p", "c1", 0, json.RawMessage(`{"id":"a","name":"A"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Version)
	assert.Equal(t, int64(1), result.ProjectVersion)

	result, err = h.UpsertGlyph("p", "c1", 1, json.RawMessage(`{"id":"a","name":"A"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Version, "observed-identical overwrite does not bump entity version")
	assert.Equal(t, int64(1), result.ProjectVersion, "and does not bump projectVersion")

	result, err = h.UpsertGlyph("p", "c1", 1, json.RawMessage(`{"id":"a","name":"A2"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Version)
	assert.Equal(t, int64(2), result.ProjectVersion)
}

// S2. Delete conflict: a stale baseVersion on delete returns a 409-shaped
// ConflictError carrying the current version and payload.
func TestDeleteGlyphConflictCarriesCurrentState(t *testing.T) {
	h := newTestHub()
	_, err := h.UpsertGlyph("p", "c1", 0, json.RawMessage(`{"id":"a","name":"A"}`))
	require.NoError(t, err)
	_, err = h.UpsertGlyph("p", "c1", 1, json.RawMessage(`{"id":"a","name":"A2"}`))
	require.NoError(t, err)

	_, err = h.DeleteGlyph("p", "c1", "a", 1)
	require.Error(t, err)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(2), conflict.Version)
	assert.Contains(t, string(conflict.Payload), `"A2"`)
	assert.False(t, conflict.Deleted)
}

// S3. Full-snapshot reconciliation. The two creates leave a@1, b@1 and
// projectVersion 2, so the snapshot PUT is based on version 2.
func TestReplaceProjectReconcilesPerEntityVersions(t *testing.T) {
	h := newTestHub()
	_, err := h.UpsertGlyph("p", "c1", 0, json.RawMessage(`{"id":"a","name":"A"}`))
	require.NoError(t, err)
	_, err = h.UpsertGlyph("p", "c1", 0, json.RawMessage(`{"id":"b","name":"B"}`))
	require.NoError(t, err)

	glyphs := json.RawMessage(`[{"id":"a","name":"A"},{"id":"b","name":"B2"},{"id":"c","name":"C"}]`)
	doc, err := h.ReplaceProject("p", "c1", 2, glyphs, json.RawMessage(`[]`), json.RawMessage(`{}`))
	require.NoError(t, err)

	assert.Equal(t, int64(3), doc.Version)
	assert.Equal(t, int64(1), doc.GlyphVersions["a"])
	assert.Equal(t, int64(2), doc.GlyphVersions["b"])
	assert.Equal(t, int64(1), doc.GlyphVersions["c"])
}

func TestReplaceProjectConflictCarriesDocument(t *testing.T) {
	h := newTestHub()
	_, err := h.UpsertGlyph("p", "c1", 0, json.RawMessage(`{"id":"a"}`))
	require.NoError(t, err)

	_, err = h.ReplaceProject("p", "c1", 0, json.RawMessage(`[]`), json.RawMessage(`[]`), json.RawMessage(`{}`))
	require.Error(t, err)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.NotNil(t, conflict.Document)
	assert.Equal(t, int64(1), conflict.Document.Version)
}

// S4. Subscribe snapshot: subscribing to a project with prior state
// reports it as pre-existing and returns that state, then live events
// follow.
func TestSubscribeToExistingProjectReportsPreExisted(t *testing.T) {
	h := newTestHub()
	_, err := h.UpsertGlyph("p", "c1", 0, json.RawMessage(`{"id":"a"}`))
	require.NoError(t, err)

	sub, doc, preExisted, err := h.Subscribe("p")
	require.NoError(t, err)
	defer h.Unsubscribe(sub)

	assert.True(t, preExisted)
	assert.Equal(t, int64(1), doc.Version)

	_, err = h.UpdateMetrics("p", "c1", 0, json.RawMessage(`{"x":1}`))
	require.NoError(t, err)

	select {
	case event := <-sub.Events():
		assert.Equal(t, EventMetricsUpdate, event.Type)
		assert.Equal(t, int64(2), event.ProjectVersion)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for metrics_update event")
	}
}

func TestSubscribeToNewProjectReportsNotPreExisted(t *testing.T) {
	h := newTestHub()
	sub, _, preExisted, err := h.Subscribe("fresh")
	require.NoError(t, err)
	defer h.Unsubscribe(sub)
	assert.False(t, preExisted)
}

// Invariant 1 & ordering: projectVersion equals the count of
// change-producing mutations, and a draining subscriber sees them in
// order with strictly increasing projectVersion.
func TestProjectVersionCountsChangeProducingMutationsInOrder(t *testing.T) {
	h := newTestHub()
	sub, _, _, err := h.Subscribe("p")
	require.NoError(t, err)
	defer h.Unsubscribe(sub)

	for i := 0; i < 5; i++ {
		id := "g"
		_, err := h.UpsertGlyph("p", "c1", int64(i), json.RawMessage(`{"id":"`+id+`","n":`+fmt.Sprint(i)+`}`))
		require.NoError(t, err)
	}

	var last int64
	for i := 0; i < 5; i++ {
		select {
		case event := <-sub.Events():
			assert.Equal(t, last+1, event.ProjectVersion)
			last = event.ProjectVersion
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
	assert.Equal(t, int64(5), last)
}

// Invariant 4 / conflict totality: baseVersion mismatch always 409s and
// never mutates state.
func TestUpsertGlyphConflictLeavesStateUntouched(t *testing.T) {
	h := newTestHub()
	_, err := h.UpsertGlyph("p", "c1", 0, json.RawMessage(`{"id":"a","name":"A"}`))
	require.NoError(t, err)

	_, err = h.UpsertGlyph("p", "c1", 0, json.RawMessage(`{"id":"a","name":"Z"}`))
	require.Error(t, err)

	doc, err := h.GetProject("p")
	require.NoError(t, err)
	assert.Contains(t, string(doc.Glyphs), `"A"`)
	assert.NotContains(t, string(doc.Glyphs), `"Z"`)
	assert.Equal(t, int64(1), doc.Version)
}

// Invariant: deleting an already-absent id is a no-op, not an error, and
// does not advance projectVersion.
func TestDeleteAbsentGlyphIsNoop(t *testing.T) {
	h := newTestHub()
	result, err := h.DeleteGlyph("p", "c1", "nope", 0)
	require.NoError(t, err)
	assert.True(t, result.Deleted)
	assert.Equal(t, int64(0), result.ProjectVersion)
}

// S5 / fan-out liveness (invariant 7): a subscriber that never drains
// does not stall delivery to a subscriber that drains after every
// mutation.
func TestSlowSubscriberDoesNotStallFastSubscriber(t *testing.T) {
	h := newTestHub()

	fast, _, _, err := h.Subscribe("p")
	require.NoError(t, err)
	defer h.Unsubscribe(fast)

	slow, _, _, err := h.Subscribe("p")
	require.NoError(t, err)
	defer h.Unsubscribe(slow)

	const n = 50
	received := 0
	for i := 0; i < n; i++ {
		_, err := h.UpsertGlyph("p", "c1", int64(i), json.RawMessage(`{"id":"g","n":`+fmt.Sprint(i % 10)+`}`))
		require.NoError(t, err)

		select {
		case <-fast.Events():
			received++
		case <-time.After(time.Second):
			t.Fatalf("fast subscriber stalled after %d/%d events", received, n)
		}
	}
}

func TestGetProjectNotFound(t *testing.T) {
	h := newTestHub()
	_, err := h.GetProject("never-created")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSanitizeProjectID(t *testing.T) {
	assert.Equal(t, "valid-ID_1", SanitizeProjectID("valid-ID_1"))
	assert.Equal(t, "default", SanitizeProjectID(""))
	assert.Equal(t, "default", SanitizeProjectID("has space"))
	assert.Equal(t, "default", SanitizeProjectID("has/slash"))
}

func TestUpdateMetricsConflictAndSuccess(t *testing.T) {
	h := newTestHub()
	_, err := h.UpdateMetrics("p", "c1", 1, json.RawMessage(`{"x":1}`))
	require.Error(t, err)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(0), conflict.Version)

	result, err := h.UpdateMetrics("p", "c1", 0, json.RawMessage(`{"x":1}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Version)
	assert.Equal(t, int64(1), result.ProjectVersion)
}

// A persistence failure on the aggregate snapshot write must surface as
// a hard error, never a silent 200 (spec.md §7, SPEC_FULL.md §9).
func TestUpsertGlyphPropagatesStorageFailure(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	store := storage.New(fs, "/data")
	h := New(store, hclog.NewNullLogger())

	_, err := h.UpsertGlyph("p", "c1", 0, json.RawMessage(`{"id":"a"}`))
	require.Error(t, err)

	var storageErr *StorageError
	assert.ErrorAs(t, err, &storageErr)
}

// Round-trip persistence: save then reload produces the same entity
// state (invariant 5).
func TestMutationPersistsAndReloadsAcrossHubInstances(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := storage.New(fs, "/data")
	h1 := New(store, hclog.NewNullLogger())

	_, err := h1.UpsertGlyph("p", "c1", 0, json.RawMessage(`{"id":"a","name":"A"}`))
	require.NoError(t, err)

	h2 := New(store, hclog.NewNullLogger())
	doc, err := h2.GetProject("p")
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Version)
	assert.Contains(t, string(doc.Glyphs), `"A"`)
}
