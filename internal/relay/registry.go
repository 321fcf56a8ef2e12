package relay

import (
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/clementcyberknight/simple-websocket-sol-price/internal/metrics"
)

// Sender delivers one encoded frame to a client connection. Implementations
// must be safe for concurrent use and must fail fast once the connection is
// gone rather than blocking the caller.
type Sender interface {
	Send(data []byte) error
}

// Subscriber pairs a connection ID with the sender used to reach it.
type Subscriber struct {
	ConnID int64
	Sender Sender
}

type connection struct {
	id          int64
	sender      Sender
	feeds       map[int64]struct{}
	connectedAt time.Time
}

// Registry owns the mapping between live connections and the feed IDs each
// one subscribed to. All methods are safe for concurrent use; lookups return
// snapshots so callers never hold the lock while sending.
type Registry struct {
	clock clockwork.Clock

	mu     sync.RWMutex
	nextID int64
	conns  map[int64]*connection
}

func NewRegistry(clock clockwork.Clock) *Registry {
	return &Registry{
		clock: clock,
		conns: make(map[int64]*connection),
	}
}

// Register allocates a new connection ID for sender and records the
// connection time. It never fails.
func (r *Registry) Register(sender Sender) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	r.conns[id] = &connection{
		id:          id,
		sender:      sender,
		feeds:       make(map[int64]struct{}),
		connectedAt: r.clock.Now(),
	}
	metrics.ActiveConnections.Set(float64(len(r.conns)))
	return id
}

// Unregister removes all state for the connection. Idempotent: a second call
// for the same ID is a no-op.
func (r *Registry) Unregister(connID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.conns[connID]
	if !exists {
		return
	}
	metrics.SubscriptionsCurrent.Sub(float64(len(conn.feeds)))
	delete(r.conns, connID)
	metrics.ActiveConnections.Set(float64(len(r.conns)))
}

// Subscribe adds each positive feed ID to the connection's set and returns
// the accepted IDs in processing order. Non-positive IDs are skipped;
// re-subscribing an already-subscribed feed is a no-op success and still
// appears in the result. Unknown connection IDs are a no-op (an unregister
// may have raced ahead of an in-flight subscribe).
func (r *Registry) Subscribe(connID int64, feedIDs []int64) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.conns[connID]
	if !exists {
		return nil
	}

	accepted := make([]int64, 0, len(feedIDs))
	for _, feedID := range feedIDs {
		if feedID <= 0 {
			continue
		}
		if _, subscribed := conn.feeds[feedID]; !subscribed {
			conn.feeds[feedID] = struct{}{}
			metrics.SubscriptionsCurrent.Inc()
		}
		accepted = append(accepted, feedID)
	}
	return accepted
}

// Unsubscribe removes each listed feed ID that was present in the
// connection's set and returns only those actually removed.
func (r *Registry) Unsubscribe(connID int64, feedIDs []int64) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.conns[connID]
	if !exists {
		return nil
	}

	removed := make([]int64, 0, len(feedIDs))
	for _, feedID := range feedIDs {
		if _, subscribed := conn.feeds[feedID]; !subscribed {
			continue
		}
		delete(conn.feeds, feedID)
		metrics.SubscriptionsCurrent.Dec()
		removed = append(removed, feedID)
	}
	return removed
}

// SubscribersOf returns a snapshot of the connections currently subscribed to
// feedID. The snapshot may be stale by the time the caller uses it; delivery
// failures are resolved by pruning, not by locking the registry for the
// duration of a broadcast.
func (r *Registry) SubscribersOf(feedID int64) []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var subscribers []Subscriber
	for _, conn := range r.conns {
		if _, subscribed := conn.feeds[feedID]; subscribed {
			subscribers = append(subscribers, Subscriber{ConnID: conn.id, Sender: conn.sender})
		}
	}
	return subscribers
}

// Sender returns the sender handle for a registered connection.
func (r *Registry) Sender(connID int64) (Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, exists := r.conns[connID]
	if !exists {
		return nil, false
	}
	return conn.sender, true
}

// Subscriptions returns a sorted snapshot of the connection's feed set.
func (r *Registry) Subscriptions(connID int64) []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, exists := r.conns[connID]
	if !exists {
		return nil
	}
	feeds := make([]int64, 0, len(conn.feeds))
	for feedID := range conn.feeds {
		feeds = append(feeds, feedID)
	}
	slices.Sort(feeds)
	return feeds
}

// ConnectedAt returns when the connection was registered.
func (r *Registry) ConnectedAt(connID int64) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, exists := r.conns[connID]
	if !exists {
		return time.Time{}, false
	}
	return conn.connectedAt, true
}

// ConnCount returns the number of registered connections.
func (r *Registry) ConnCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
