package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/collabhub/server/pkg/codec"
	"github.com/collabhub/server/pkg/fanout"
)

// projectState is the in-memory representation of one project. It is
// exclusively owned by the hub and accessed only while holding the hub's
// mutex; it has no lock of its own for its in-memory fields.
//
// persistMu/persistCond/lastPersisted serialize the persist-then-publish
// step each mutation runs after releasing the hub's mutex: every mutation
// captures its own projectVersion as a ticket while still under the hub
// lock, then waits its turn here before touching disk or subscribers, so
// concurrent mutations of the same project always hit disk and fan out
// events in ascending projectVersion order even though the I/O itself
// happens unlocked.
type projectState struct {
	projectID string

	glyphs        map[string]json.RawMessage
	glyphVersions map[string]int64
	glyphNames    map[string]string

	syntaxes        map[string]json.RawMessage
	syntaxVersions  map[string]int64
	syntaxNames     map[string]string

	metrics        json.RawMessage
	metricsVersion int64

	projectVersion int64
	updatedAt      time.Time

	subs map[*Subscription]struct{}

	persistMu     sync.Mutex
	persistCond   *sync.Cond
	lastPersisted int64
}

func newEmptyState(projectID string) *projectState {
	st := &projectState{
		projectID:      projectID,
		glyphs:         map[string]json.RawMessage{},
		glyphVersions:  map[string]int64{},
		glyphNames:     map[string]string{},
		syntaxes:       map[string]json.RawMessage{},
		syntaxVersions: map[string]int64{},
		syntaxNames:    map[string]string{},
		metrics:        json.RawMessage(`{}`),
		metricsVersion: 0,
		projectVersion: 0,
		updatedAt:      time.Now().UTC(),
		subs:           map[*Subscription]struct{}{},
	}
	st.persistCond = sync.NewCond(&st.persistMu)
	return st
}

func newStateFromDocument(projectID string, doc *Document) (*projectState, error) {
	st := newEmptyState(projectID)
	st.projectVersion = doc.Version
	st.lastPersisted = doc.Version
	st.updatedAt = doc.UpdatedAt
	st.metricsVersion = doc.MetricsVersion

	glyphs, err := codec.ParseEntityArray(nonNull(doc.Glyphs, "[]"))
	if err != nil {
		return nil, err
	}
	syntaxes, err := codec.ParseEntityArray(nonNull(doc.Syntaxes, "[]"))
	if err != nil {
		return nil, err
	}
	metrics, err := codec.NormalizedRawObject(nonNull(doc.Metrics, "{}"))
	if err != nil {
		return nil, err
	}

	st.glyphs = glyphs
	st.syntaxes = syntaxes
	st.metrics = metrics
	for id, payload := range glyphs {
		st.glyphNames[id] = codec.EntityName(payload)
	}
	for id, payload := range syntaxes {
		st.syntaxNames[id] = codec.EntityName(payload)
	}

	for id, v := range doc.GlyphVersions {
		if _, ok := st.glyphs[id]; ok {
			st.glyphVersions[id] = v
		}
	}
	for id, v := range doc.SyntaxVersions {
		if _, ok := st.syntaxes[id]; ok {
			st.syntaxVersions[id] = v
		}
	}
	// Fill in any entity present on disk but missing from a legacy
	// version map with version 1, so the invariant "version is 0 iff
	// never existed" holds even after loading an old snapshot.
	for id := range st.glyphs {
		if st.glyphVersions[id] == 0 {
			st.glyphVersions[id] = 1
		}
	}
	for id := range st.syntaxes {
		if st.syntaxVersions[id] == 0 {
			st.syntaxVersions[id] = 1
		}
	}
	if st.metricsVersion == 0 && len(st.metrics) > 0 && string(st.metrics) != "{}" {
		st.metricsVersion = 1
	}

	return st, nil
}

func nonNull(raw json.RawMessage, def string) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(def)
	}
	return raw
}

// document builds the wire/disk snapshot for the current state. Callers
// must hold at least the hub's read lock.
func (st *projectState) document() *Document {
	glyphVersions := make(map[string]int64, len(st.glyphVersions))
	for k, v := range st.glyphVersions {
		glyphVersions[k] = v
	}
	syntaxVersions := make(map[string]int64, len(st.syntaxVersions))
	for k, v := range st.syntaxVersions {
		syntaxVersions[k] = v
	}

	return &Document{
		Project:        st.projectID,
		Version:        st.projectVersion,
		UpdatedAt:      st.updatedAt,
		Glyphs:         codec.SerializeEntityMap(st.glyphs),
		Syntaxes:       codec.SerializeEntityMap(st.syntaxes),
		Metrics:        st.metrics,
		GlyphVersions:  glyphVersions,
		SyntaxVersions: syntaxVersions,
		MetricsVersion: st.metricsVersion,
	}
}

// glyphFiles and syntaxFiles snapshot id->payload and id->name for the persistence
// layer. Callers must hold at least the hub's read lock; the returned
// maps are fresh copies safe to use after the lock is released.
func (st *projectState) glyphFiles() (payload map[string]json.RawMessage, name map[string]string) {
	return cloneRaw(st.glyphs), cloneNames(st.glyphNames)
}

func (st *projectState) syntaxFiles() (payload map[string]json.RawMessage, name map[string]string) {
	return cloneRaw(st.syntaxes), cloneNames(st.syntaxNames)
}

func cloneRaw(m map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneNames(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// entityMaps returns the payload, version, and name maps for kind. Glyph
// and syntax mutation are otherwise identical; this is the one place that
// knows which maps belong to which kind.
func (st *projectState) entityMaps(kind EntityKind) (payload map[string]json.RawMessage, version map[string]int64, name map[string]string) {
	switch kind {
	case Syntax:
		return st.syntaxes, st.syntaxVersions, st.syntaxNames
	default:
		return st.glyphs, st.glyphVersions, st.glyphNames
	}
}

// upsertEntity inserts or replaces id's payload. It returns the new
// version and whether the stored bytes actually changed (false means the
// overwrite was observed-identical and no event should be published).
func (st *projectState) upsertEntity(kind EntityKind, id string, canonical json.RawMessage, name string) (version int64, changed bool) {
	payload, versions, names := st.entityMaps(kind)

	prior, existed := payload[id]
	if existed && bytesEqual(prior, canonical) {
		return versions[id], false
	}

	payload[id] = canonical
	names[id] = name
	if existed {
		versions[id] = versions[id] + 1
	} else {
		versions[id] = 1
	}
	return versions[id], true
}

// deleteEntity removes id if present. existed reports whether there was
// anything to remove (a delete of an absent id is a no-op, per spec).
func (st *projectState) deleteEntity(kind EntityKind, id string) (priorVersion int64, existed bool) {
	payload, versions, names := st.entityMaps(kind)

	v, ok := versions[id]
	if !ok {
		return 0, false
	}
	delete(payload, id)
	delete(versions, id)
	delete(names, id)
	return v, true
}

// currentVersion reports the version the hub would compare baseVersion
// against for a single-entity op on id (0 if absent).
func (st *projectState) currentVersion(kind EntityKind, id string) int64 {
	_, versions, _ := st.entityMaps(kind)
	return versions[id]
}

func bytesEqual(a, b json.RawMessage) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// snapshotSubscribers returns the set of subscriber queues at this
// instant. Callers must hold at least the hub's read lock; publish
// happens after the lock is released.
func (st *projectState) snapshotSubscribers() []*fanout.Queue[Event] {
	out := make([]*fanout.Queue[Event], 0, len(st.subs))
	for sub := range st.subs {
		out = append(out, sub.queue)
	}
	return out
}

// awaitPersistTurn blocks until every mutation with a lower ticket has
// called donePersisting, so the caller is clear to write ticket's
// snapshot to disk and publish its event. Called without the hub lock
// held.
func (st *projectState) awaitPersistTurn(ticket int64) {
	st.persistMu.Lock()
	defer st.persistMu.Unlock()
	for st.lastPersisted != ticket-1 {
		st.persistCond.Wait()
	}
}

// donePersisting records ticket as persisted and wakes any mutation
// waiting for its turn. Called whether or not the persist attempt
// succeeded: a failed save still must not block every later mutation
// forever, and the failing caller surfaces its own error independently.
func (st *projectState) donePersisting(ticket int64) {
	st.persistMu.Lock()
	st.lastPersisted = ticket
	st.persistCond.Broadcast()
	st.persistMu.Unlock()
}
