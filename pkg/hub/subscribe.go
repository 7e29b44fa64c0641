package hub

// Subscribe attaches a new subscriber to projectID, creating the project
// (in memory, loading from disk if present) if it doesn't already exist.
// It returns the subscription, the document as of the moment of
// subscription, and whether the project pre-existed (in memory or on
// disk) at subscribe time.
func (h *Hub) Subscribe(projectID string) (*Subscription, *Document, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	st, preExisted, err := h.ensureStateLockedReportingLoad(projectID)
	if err != nil {
		return nil, nil, false, err
	}

	sub := newSubscription(projectID, h.queueCapacity)
	st.subs[sub] = struct{}{}

	return sub, st.document(), preExisted, nil
}

// Unsubscribe detaches sub from its project and closes its queue. It is
// safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	if st, ok := h.projects[sub.projectID]; ok {
		delete(st.subs, sub)
	}
	h.mu.Unlock()

	sub.queue.Close()
}
