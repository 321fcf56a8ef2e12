package feed

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

// Publisher accepts one timestamped price point for a feed.
type Publisher interface {
	Publish(feedID int64, price decimal.Decimal, ts time.Time)
}

// Generator drives a bounded random walk for every feed in its catalog,
// publishing one value per feed per tick. It runs on its own schedule, fully
// decoupled from connection lifecycle.
type Generator struct {
	publisher Publisher
	clock     clockwork.Clock
	interval  time.Duration
	feeds     []Feed
	prices    map[int64]decimal.Decimal
}

func NewGenerator(catalog *Catalog, publisher Publisher, clock clockwork.Clock, interval time.Duration) *Generator {
	prices := make(map[int64]decimal.Decimal, len(catalog.Feeds))
	for _, f := range catalog.Feeds {
		prices[f.ID] = f.StartPrice
	}
	return &Generator{
		publisher: publisher,
		clock:     clock,
		interval:  interval,
		feeds:     catalog.Feeds,
		prices:    prices,
	}
}

// Run publishes until ctx is cancelled. The starting prices are published
// immediately so subscribers get snapshots before the first tick.
func (g *Generator) Run(ctx context.Context) error {
	slog.Info("Starting price generator", "feeds", len(g.feeds), "interval", g.interval)

	ticker := g.clock.NewTicker(g.interval)
	defer ticker.Stop()

	g.publishAll()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Price generator stopped")
			return nil
		case <-ticker.Chan():
			g.step()
			g.publishAll()
		}
	}
}

// step advances every feed's price by one random-walk move.
func (g *Generator) step() {
	for _, f := range g.feeds {
		drift := (rand.Float64()*2 - 1) * f.Volatility
		next := g.prices[f.ID].Mul(decimal.NewFromFloat(1 + drift)).Round(2)
		if !next.IsPositive() {
			next = decimal.NewFromFloat(0.01)
		}
		g.prices[f.ID] = next
	}
}

func (g *Generator) publishAll() {
	now := g.clock.Now()
	for _, f := range g.feeds {
		g.publisher.Publish(f.ID, g.prices[f.ID], now)
	}
}
