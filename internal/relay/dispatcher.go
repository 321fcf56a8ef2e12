package relay

import (
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clementcyberknight/simple-websocket-sol-price/internal/metrics"
	"github.com/clementcyberknight/simple-websocket-sol-price/internal/protocol"
)

// FeedState is the latest published value for one feed. Not persisted; lost
// on restart.
type FeedState struct {
	FeedID    int64
	Price     decimal.Decimal
	UpdatedAt time.Time
}

// Dispatcher stores the latest value per feed and fans published updates out
// to the registry's subscribers. The feed map has its own lock since it is
// mutated by publishers, never by the client message path.
type Dispatcher struct {
	registry *Registry

	mu    sync.RWMutex
	feeds map[int64]FeedState
}

func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		feeds:    make(map[int64]FeedState),
	}
}

// Publish records price as feedID's latest value and delivers one priceUpdate
// frame to every currently subscribed connection. Delivery is independent per
// connection: a failed send prunes that connection and does not abort
// delivery to the rest. Every call produces exactly one outbound message per
// subscriber; there is no batching or coalescing.
func (d *Dispatcher) Publish(feedID int64, price decimal.Decimal, ts time.Time) {
	d.mu.Lock()
	d.feeds[feedID] = FeedState{FeedID: feedID, Price: price, UpdatedAt: ts}
	d.mu.Unlock()

	metrics.PublishesTotal.Inc()

	data := protocol.EncodePriceUpdate(ts, []protocol.PriceLevel{{FeedID: feedID, Price: price.String()}})
	for _, sub := range d.registry.SubscribersOf(feedID) {
		d.deliver(sub, data)
	}
}

// Subscribe adds the feeds to the connection via the registry, then sends the
// connection a point update for every accepted feed that already has a known
// value. Snapshots go out before the caller sends its ack.
func (d *Dispatcher) Subscribe(connID int64, feedIDs []int64) []int64 {
	accepted := d.registry.Subscribe(connID, feedIDs)
	if len(accepted) == 0 {
		return accepted
	}

	sender, exists := d.registry.Sender(connID)
	if !exists {
		return accepted
	}
	for _, feedID := range accepted {
		state, known := d.Snapshot(feedID)
		if !known {
			continue
		}
		data := protocol.EncodePriceUpdate(state.UpdatedAt, []protocol.PriceLevel{{FeedID: feedID, Price: state.Price.String()}})
		if !d.deliver(Subscriber{ConnID: connID, Sender: sender}, data) {
			break
		}
	}
	return accepted
}

// Snapshot returns the latest known state for feedID.
func (d *Dispatcher) Snapshot(feedID int64) (FeedState, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	state, known := d.feeds[feedID]
	return state, known
}

// FeedCount returns the number of feeds with a known value.
func (d *Dispatcher) FeedCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.feeds)
}

// deliver sends data to one subscriber, pruning the connection on failure. A
// dead connection discovered here is indistinguishable from one that reported
// closure, so it gets the same treatment.
func (d *Dispatcher) deliver(sub Subscriber, data []byte) bool {
	if err := sub.Sender.Send(data); err != nil {
		slog.Warn("Pruning connection after failed delivery", "conn_id", sub.ConnID, "error", err)
		metrics.DeliveryFailuresTotal.Inc()
		d.registry.Unregister(sub.ConnID)
		return false
	}
	metrics.MessagesSentTotal.WithLabelValues(protocol.TypePriceUpdate).Inc()
	return true
}
