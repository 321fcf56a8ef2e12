package relay

import (
	"errors"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSender records delivered frames and can be told to fail.
type stubSender struct {
	mu     sync.Mutex
	frames [][]byte
	fail   bool
}

func (s *stubSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("connection closed")
	}
	s.frames = append(s.frames, data)
	return nil
}

func (s *stubSender) sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.frames...)
}

func (s *stubSender) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func newTestRegistry() *Registry {
	return NewRegistry(clockwork.NewFakeClock())
}

func TestRegistry_RegisterAssignsMonotonicIDs(t *testing.T) {
	registry := newTestRegistry()

	first := registry.Register(&stubSender{})
	second := registry.Register(&stubSender{})
	third := registry.Register(&stubSender{})

	assert.Less(t, first, second)
	assert.Less(t, second, third)
	assert.Equal(t, 3, registry.ConnCount())
}

func TestRegistry_RegisterRecordsConnectionTime(t *testing.T) {
	clock := clockwork.NewFakeClock()
	registry := NewRegistry(clock)

	connID := registry.Register(&stubSender{})

	connectedAt, ok := registry.ConnectedAt(connID)
	require.True(t, ok)
	assert.Equal(t, clock.Now(), connectedAt)
}

func TestRegistry_SubscribeFiltersInvalidFeedIDs(t *testing.T) {
	registry := newTestRegistry()
	connID := registry.Register(&stubSender{})

	accepted := registry.Subscribe(connID, []int64{6, 0, -3, 9})

	assert.Equal(t, []int64{6, 9}, accepted)
	assert.Equal(t, []int64{6, 9}, registry.Subscriptions(connID))
}

func TestRegistry_SubscribeDuplicateIsNoOpSuccess(t *testing.T) {
	registry := newTestRegistry()
	connID := registry.Register(&stubSender{})

	require.Equal(t, []int64{6}, registry.Subscribe(connID, []int64{6}))

	// Re-subscribing still reports the feed as accepted but the set is unchanged.
	assert.Equal(t, []int64{6, 7}, registry.Subscribe(connID, []int64{6, 7}))
	assert.Equal(t, []int64{6, 7}, registry.Subscriptions(connID))
}

func TestRegistry_SubscribeUnknownConnIsNoOp(t *testing.T) {
	registry := newTestRegistry()

	assert.Empty(t, registry.Subscribe(42, []int64{6}))
	assert.Empty(t, registry.SubscribersOf(6))
}

func TestRegistry_UnsubscribeReturnsOnlyRemoved(t *testing.T) {
	registry := newTestRegistry()
	connID := registry.Register(&stubSender{})
	registry.Subscribe(connID, []int64{6})

	removed := registry.Unsubscribe(connID, []int64{6, 99})

	assert.Equal(t, []int64{6}, removed)
	assert.Empty(t, registry.Subscriptions(connID))
}

func TestRegistry_UnsubscribeUnknownConnIsNoOp(t *testing.T) {
	registry := newTestRegistry()
	assert.Empty(t, registry.Unsubscribe(42, []int64{6}))
}

func TestRegistry_SetAlgebra(t *testing.T) {
	registry := newTestRegistry()
	connID := registry.Register(&stubSender{})

	registry.Subscribe(connID, []int64{1, 2, 3})
	registry.Unsubscribe(connID, []int64{2})
	registry.Subscribe(connID, []int64{2, 4})
	registry.Unsubscribe(connID, []int64{1, 5})
	registry.Subscribe(connID, []int64{3})

	assert.Equal(t, []int64{2, 3, 4}, registry.Subscriptions(connID))
}

func TestRegistry_UnregisterIdempotent(t *testing.T) {
	registry := newTestRegistry()
	connID := registry.Register(&stubSender{})
	registry.Subscribe(connID, []int64{6})

	registry.Unregister(connID)
	registry.Unregister(connID)

	assert.Equal(t, 0, registry.ConnCount())
	assert.Empty(t, registry.SubscribersOf(6))
}

func TestRegistry_SubscribersOfTracksLifecycle(t *testing.T) {
	registry := newTestRegistry()
	senderA := &stubSender{}
	connA := registry.Register(senderA)
	connB := registry.Register(&stubSender{})

	registry.Subscribe(connA, []int64{6})
	registry.Subscribe(connB, []int64{7})

	subscribers := registry.SubscribersOf(6)
	require.Len(t, subscribers, 1)
	assert.Equal(t, connA, subscribers[0].ConnID)
	assert.Same(t, Sender(senderA), subscribers[0].Sender)

	registry.Unregister(connA)
	assert.Empty(t, registry.SubscribersOf(6))
}

func TestRegistry_SubscribersOfIsSnapshot(t *testing.T) {
	registry := newTestRegistry()
	connID := registry.Register(&stubSender{})
	registry.Subscribe(connID, []int64{6})

	snapshot := registry.SubscribersOf(6)
	registry.Unregister(connID)

	// The snapshot is intentionally stale; the live registry is not.
	assert.Len(t, snapshot, 1)
	assert.Empty(t, registry.SubscribersOf(6))
}

func TestRegistry_ConcurrentChurn(t *testing.T) {
	registry := newTestRegistry()
	const workers = 16
	const iterations = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := 0; it < iterations; it++ {
				connID := registry.Register(&stubSender{})
				registry.Subscribe(connID, []int64{1, 2, 3})
				registry.SubscribersOf(2)
				registry.Unsubscribe(connID, []int64{2})
				registry.Unregister(connID)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, registry.ConnCount())
	assert.Empty(t, registry.SubscribersOf(1))
}
