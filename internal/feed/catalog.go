package feed

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const defaultVolatility = 0.02

// Feed describes one simulated price feed.
type Feed struct {
	ID         int64
	Symbol     string
	StartPrice decimal.Decimal
	// Volatility bounds the per-tick relative move, e.g. 0.02 for ±2%.
	Volatility float64
}

// Catalog is the set of feeds the generator publishes.
type Catalog struct {
	Feeds []Feed
}

type catalogFile struct {
	Feeds []feedEntry `yaml:"feeds"`
}

type feedEntry struct {
	ID         int64   `yaml:"id"`
	Symbol     string  `yaml:"symbol"`
	StartPrice string  `yaml:"start_price"`
	Volatility float64 `yaml:"volatility"`
}

// LoadCatalog reads a YAML catalog file, expanding ${VAR} environment
// variables before parsing.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var file catalogFile
	if err := yaml.Unmarshal([]byte(expanded), &file); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}

	if len(file.Feeds) == 0 {
		return nil, fmt.Errorf("catalog %s defines no feeds", path)
	}

	catalog := &Catalog{Feeds: make([]Feed, 0, len(file.Feeds))}
	seen := make(map[int64]struct{}, len(file.Feeds))
	for i, entry := range file.Feeds {
		if entry.ID <= 0 {
			return nil, fmt.Errorf("feed %d: id must be a positive integer, got %d", i, entry.ID)
		}
		if _, duplicate := seen[entry.ID]; duplicate {
			return nil, fmt.Errorf("feed %d: duplicate id %d", i, entry.ID)
		}
		seen[entry.ID] = struct{}{}

		startPrice, err := decimal.NewFromString(entry.StartPrice)
		if err != nil {
			return nil, fmt.Errorf("feed %d: invalid start_price %q: %w", i, entry.StartPrice, err)
		}
		if !startPrice.IsPositive() {
			return nil, fmt.Errorf("feed %d: start_price must be positive, got %s", i, startPrice)
		}

		volatility := entry.Volatility
		if volatility == 0 {
			volatility = defaultVolatility
		}
		if volatility < 0 || volatility > 1 {
			return nil, fmt.Errorf("feed %d: volatility must be within (0, 1], got %v", i, volatility)
		}

		catalog.Feeds = append(catalog.Feeds, Feed{
			ID:         entry.ID,
			Symbol:     entry.Symbol,
			StartPrice: startPrice,
			Volatility: volatility,
		})
	}
	return catalog, nil
}

// DefaultCatalog returns the built-in feed set used when no catalog file is
// configured.
func DefaultCatalog() *Catalog {
	return &Catalog{Feeds: []Feed{
		{ID: 1, Symbol: "BTC/USD", StartPrice: decimal.NewFromInt(65000), Volatility: 0.015},
		{ID: 2, Symbol: "ETH/USD", StartPrice: decimal.NewFromInt(3300), Volatility: 0.02},
		{ID: 6, Symbol: "SOL/USD", StartPrice: decimal.NewFromInt(150), Volatility: 0.025},
	}}
}
