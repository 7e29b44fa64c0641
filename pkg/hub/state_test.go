package hub

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mutations of the same project release the hub lock before their
// persist step, so nothing but the ticket sequencer itself stops a
// later-ticketed goroutine's save from finishing before an
// earlier-ticketed one's. Start the goroutines in reverse ticket order
// so an unsynchronized implementation would record [3,2,1]; the
// sequencer must still produce [1,2,3].
func TestPersistTicketsRunInAscendingOrder(t *testing.T) {
	st := newEmptyState("p")

	var mu sync.Mutex
	var order []int64
	record := func(ticket int64) {
		mu.Lock()
		order = append(order, ticket)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for _, ticket := range []int64{3, 2, 1} {
		ticket := ticket
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.awaitPersistTurn(ticket)
			record(ticket)
			time.Sleep(time.Millisecond)
			st.donePersisting(ticket)
		}()
		// Give the later tickets a head start into awaitPersistTurn
		// before the earlier ticket is even launched.
		time.Sleep(time.Millisecond)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for persist tickets to drain")
	}

	require.Len(t, order, 3)
	assert.Equal(t, []int64{1, 2, 3}, order)
}
