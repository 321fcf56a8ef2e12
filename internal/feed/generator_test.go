package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	points map[int64][]decimal.Decimal
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{points: make(map[int64][]decimal.Decimal)}
}

func (p *recordingPublisher) Publish(feedID int64, price decimal.Decimal, _ time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.points[feedID] = append(p.points[feedID], price)
}

func (p *recordingPublisher) count(feedID int64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.points[feedID])
}

func (p *recordingPublisher) prices(feedID int64) []decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]decimal.Decimal(nil), p.points[feedID]...)
}

func waitForCount(p *recordingPublisher, feedID int64, expected int) bool {
	for i := 0; i < 200; i++ {
		if p.count(feedID) >= expected {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func TestGenerator_PublishesStartingPricesImmediately(t *testing.T) {
	clock := clockwork.NewFakeClock()
	publisher := newRecordingPublisher()
	catalog := &Catalog{Feeds: []Feed{
		{ID: 6, Symbol: "SOL/USD", StartPrice: decimal.NewFromInt(150), Volatility: 0.02},
	}}
	generator := NewGenerator(catalog, publisher, clock, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = generator.Run(ctx)
	}()

	require.True(t, waitForCount(publisher, 6, 1))
	assert.Equal(t, "150", publisher.prices(6)[0].String())

	cancel()
	<-done
}

func TestGenerator_PublishesEveryFeedEachTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	publisher := newRecordingPublisher()
	catalog := &Catalog{Feeds: []Feed{
		{ID: 6, Symbol: "SOL/USD", StartPrice: decimal.NewFromInt(150), Volatility: 0.02},
		{ID: 7, Symbol: "BTC/USD", StartPrice: decimal.NewFromInt(65000), Volatility: 0.01},
	}}
	generator := NewGenerator(catalog, publisher, clock, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = generator.Run(ctx)
	}()

	// Initial publish, then two ticks.
	require.True(t, waitForCount(publisher, 6, 1))
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	require.True(t, waitForCount(publisher, 6, 2))
	clock.Advance(time.Second)
	require.True(t, waitForCount(publisher, 6, 3))
	require.True(t, waitForCount(publisher, 7, 3))

	for _, price := range publisher.prices(6) {
		assert.True(t, price.IsPositive(), "price %s must stay positive", price)
	}

	cancel()
	<-done
}

func TestGenerator_WalkStaysNearStartPrice(t *testing.T) {
	clock := clockwork.NewFakeClock()
	publisher := newRecordingPublisher()
	start := decimal.NewFromInt(100)
	catalog := &Catalog{Feeds: []Feed{
		{ID: 1, Symbol: "TEST", StartPrice: start, Volatility: 0.01},
	}}
	generator := NewGenerator(catalog, publisher, clock, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = generator.Run(ctx)
	}()

	require.True(t, waitForCount(publisher, 1, 1))
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	require.True(t, waitForCount(publisher, 1, 2))

	// One ±1% step from 100 stays within [99, 101].
	second := publisher.prices(1)[1]
	assert.True(t, second.GreaterThanOrEqual(decimal.NewFromInt(99)), "got %s", second)
	assert.True(t, second.LessThanOrEqual(decimal.NewFromInt(101)), "got %s", second)

	cancel()
	<-done
}
