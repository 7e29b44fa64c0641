package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/collabhub/server/pkg/fanout"
	"github.com/collabhub/server/pkg/storage"
)

// Hub owns every project's state. A single sync.RWMutex guards both the
// projectID->state map and every state's interior; readers that only
// inspect an existing state take the read lock, everything else
// (creation, every mutation, subscribe/unsubscribe) takes the write
// lock. Mutations are in-memory only while the lock is held: disk I/O and
// event publication both happen after it is released.
type Hub struct {
	mu       sync.RWMutex
	projects map[string]*projectState

	store         *storage.Store
	logger        hclog.Logger
	queueCapacity int
}

// Option configures a Hub at construction time.
type Option func(*Hub)

// WithQueueCapacity overrides the per-subscriber mailbox capacity
// (default 32).
func WithQueueCapacity(n int) Option {
	return func(h *Hub) { h.queueCapacity = n }
}

// New creates a Hub persisting through store and logging via logger.
func New(store *storage.Store, logger hclog.Logger, opts ...Option) *Hub {
	h := &Hub{
		projects:      map[string]*projectState{},
		store:         store,
		logger:        logger,
		queueCapacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GetProject returns the current document for projectID. It loads from
// disk and caches on first access if a snapshot exists; if neither
// in-memory state nor a snapshot exists it returns ErrNotFound without
// creating anything (a read must not fabricate a project).
func (h *Hub) GetProject(projectID string) (*Document, error) {
	h.mu.RLock()
	if st, ok := h.projects[projectID]; ok {
		doc := st.document()
		h.mu.RUnlock()
		return doc, nil
	}
	h.mu.RUnlock()

	h.mu.Lock()
	defer h.mu.Unlock()

	if st, ok := h.projects[projectID]; ok {
		return st.document(), nil
	}

	diskDoc, existed, err := h.store.Load(projectID)
	if err != nil {
		return nil, err
	}
	if !existed {
		return nil, ErrNotFound
	}

	st, err := newStateFromDocument(projectID, diskDoc)
	if err != nil {
		return nil, err
	}
	h.projects[projectID] = st
	return st.document(), nil
}

// ensureStateLocked returns the resident state for projectID, loading it
// from disk or creating an empty one if necessary. Callers must hold
// h.mu (write lock) for the duration of use.
func (h *Hub) ensureStateLocked(projectID string) (*projectState, error) {
	st, _, err := h.ensureStateLockedReportingLoad(projectID)
	return st, err
}

// ensureStateLockedReportingLoad is ensureStateLocked plus whether the
// project already had state (in memory or on disk) before this call,
// which Subscribe needs to report "pre-existed" accurately without a
// second disk read.
func (h *Hub) ensureStateLockedReportingLoad(projectID string) (st *projectState, preExisted bool, err error) {
	if st, ok := h.projects[projectID]; ok {
		return st, true, nil
	}

	diskDoc, existed, err := h.store.Load(projectID)
	if err != nil {
		return nil, false, err
	}

	if existed {
		st, err = newStateFromDocument(projectID, diskDoc)
		if err != nil {
			return nil, false, err
		}
	} else {
		st = newEmptyState(projectID)
	}

	h.projects[projectID] = st
	return st, existed, nil
}

// requestID returns a short correlation id for log lines. It is never
// part of the wire protocol or persisted state.
func requestID() string {
	return uuid.NewString()
}

// mutate runs fn against the resident state for projectID under the
// write lock, then — if fn reports a visible change — persists and
// publishes outside the lock. fn returns the event to publish, or nil if
// the mutation was an observed-identical no-op (no persist, no publish,
// no version bump).
func (h *Hub) mutate(projectID, clientID string, fn func(st *projectState) (*Event, error)) (*Document, error) {
	reqID := requestID()

	h.mu.Lock()
	st, err := h.ensureStateLocked(projectID)
	if err != nil {
		h.mu.Unlock()
		return nil, err
	}

	event, err := fn(st)
	if err != nil {
		h.mu.Unlock()
		return nil, err
	}

	if event == nil {
		doc := st.document()
		h.mu.Unlock()
		return doc, nil
	}

	st.projectVersion++
	ticket := st.projectVersion
	st.updatedAt = time.Now().UTC()
	event.ClientID = clientID
	event.ProjectVersion = st.projectVersion

	doc := st.document()
	if event.Type == EventSnapshot && event.Document == nil {
		event.Document = doc
	}
	glyphPayload, glyphNames := st.glyphFiles()
	syntaxPayload, syntaxNames := st.syntaxFiles()
	subs := st.snapshotSubscribers()
	h.mu.Unlock()

	// Concurrent mutations of the same project race past this point with
	// the hub lock already released; awaitPersistTurn/donePersisting make
	// sure they still hit disk and fan out to subscribers in the same
	// ascending order their projectVersion tickets were handed out in.
	// donePersisting must run even if persistAndPublish panics: skipping
	// it would wedge every later ticket on this project behind a
	// condition variable nothing ever signals again.
	st.awaitPersistTurn(ticket)
	func() {
		defer st.donePersisting(ticket)
		err = h.persistAndPublish(reqID, doc, glyphPayload, glyphNames, syntaxPayload, syntaxNames, subs, *event)
	}()
	if err != nil {
		return nil, &StorageError{Project: projectID, Err: err}
	}
	return doc, nil
}

// persistAndPublish writes the aggregate snapshot and, only on success,
// fans the event out to subscribers. A failure of the aggregate P.json
// write is fatal to the mutation (spec.md §7, SPEC_FULL.md §9): the
// caller must not report 200 or publish an event subscribers would have
// no matching persisted state for. Per-entity mirror-file errors are
// best-effort and only logged, matching the resolved partial-failure
// open question.
func (h *Hub) persistAndPublish(
	reqID string,
	doc *Document,
	glyphPayload map[string]json.RawMessage, glyphNames map[string]string,
	syntaxPayload map[string]json.RawMessage, syntaxNames map[string]string,
	subs []*fanout.Queue[Event],
	event Event,
) error {
	result, err := h.store.Save(doc,
		storage.EntityFiles{Payload: glyphPayload, Name: glyphNames},
		storage.EntityFiles{Payload: syntaxPayload, Name: syntaxNames},
	)
	if err != nil {
		h.logger.Error("failed to persist project snapshot",
			"request_id", reqID, "project", doc.Project, "error", err)
		return err
	}
	if result.EntityErr != nil {
		h.logger.Warn("per-entity file mirroring had errors (aggregate snapshot is authoritative)",
			"request_id", reqID, "project", doc.Project, "error", result.EntityErr)
	}

	h.publish(doc.Project, subs, event)
	return nil
}

func (h *Hub) publish(projectID string, subs []*fanout.Queue[Event], event Event) {
	for _, q := range subs {
		q.Publish(event)
	}
	h.logger.Debug("published event", "project", projectID, "type", event.Type, "project_version", event.ProjectVersion)
}
