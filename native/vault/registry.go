package vault

import (
	"github.com/ethereum/go-ethereum/common"
)

// Registry is the static mapping of approved collateral assets to their
// oracle adapters. It is populated exactly once at construction and read-only
// afterwards, so lookups need no locking.
type Registry struct {
	order    []common.Address
	adapters map[common.Address]*OracleAdapter
}

// NewRegistry builds a registry from two equal-length ordered lists. The
// listing order of assets is preserved for deterministic valuation sweeps.
func NewRegistry(assets []common.Address, adapters []*OracleAdapter) (*Registry, error) {
	if len(assets) != len(adapters) {
		return nil, errLengthMismatch
	}
	r := &Registry{
		order:    make([]common.Address, 0, len(assets)),
		adapters: make(map[common.Address]*OracleAdapter, len(assets)),
	}
	for i, asset := range assets {
		if _, exists := r.adapters[asset]; exists {
			continue
		}
		r.order = append(r.order, asset)
		r.adapters[asset] = adapters[i]
	}
	return r, nil
}

// IsApproved reports whether the asset may be posted as collateral.
func (r *Registry) IsApproved(asset common.Address) bool {
	if r == nil {
		return false
	}
	_, ok := r.adapters[asset]
	return ok
}

// Adapter resolves the oracle adapter for an approved asset.
func (r *Registry) Adapter(asset common.Address) (*OracleAdapter, error) {
	if r == nil {
		return nil, errUnsupportedAsset
	}
	adapter, ok := r.adapters[asset]
	if !ok {
		return nil, errUnsupportedAsset
	}
	return adapter, nil
}

// Assets returns the registered asset identifiers in insertion order.
func (r *Registry) Assets() []common.Address {
	if r == nil {
		return nil
	}
	return append([]common.Address(nil), r.order...)
}
