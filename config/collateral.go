package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// FeedSpec selects and parameterizes the price feed for one collateral asset.
// Kind is "http" (CoinGecko-style endpoint) or "manual" (seeded fixed price
// for development and incident overrides).
type FeedSpec struct {
	Kind     string `yaml:"kind"`
	AssetID  string `yaml:"assetId,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Price    string `yaml:"price,omitempty"`
}

// CollateralEntry maps an approved collateral asset to its feed. Entries keep
// their file order; the registry preserves it for valuation sweeps.
type CollateralEntry struct {
	Symbol string   `yaml:"symbol"`
	Asset  string   `yaml:"asset"`
	Feed   FeedSpec `yaml:"feed"`
}

// Address parses the entry's asset identifier.
func (e CollateralEntry) Address() (common.Address, error) {
	raw := strings.TrimSpace(e.Asset)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("collateral %q: invalid asset address %q", e.Symbol, e.Asset)
	}
	return common.HexToAddress(raw), nil
}

// LoadCollateral reads and validates the ordered collateral list.
func LoadCollateral(path string) ([]CollateralEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read collateral file: %w", err)
	}
	var doc struct {
		Collateral []CollateralEntry `yaml:"collateral"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse collateral file: %w", err)
	}
	if len(doc.Collateral) == 0 {
		return nil, fmt.Errorf("collateral file %s lists no assets", path)
	}

	seen := make(map[common.Address]struct{}, len(doc.Collateral))
	for _, entry := range doc.Collateral {
		addr, err := entry.Address()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[addr]; dup {
			return nil, fmt.Errorf("collateral %q: duplicate asset %s", entry.Symbol, addr.Hex())
		}
		seen[addr] = struct{}{}

		switch strings.ToLower(strings.TrimSpace(entry.Feed.Kind)) {
		case "http":
			if strings.TrimSpace(entry.Feed.AssetID) == "" {
				return nil, fmt.Errorf("collateral %q: http feed requires assetId", entry.Symbol)
			}
		case "manual":
			if strings.TrimSpace(entry.Feed.Price) == "" {
				return nil, fmt.Errorf("collateral %q: manual feed requires price", entry.Symbol)
			}
		default:
			return nil, fmt.Errorf("collateral %q: unknown feed kind %q", entry.Symbol, entry.Feed.Kind)
		}
	}
	return doc.Collateral, nil
}
