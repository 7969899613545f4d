package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CollateralOf returns the amount of the asset posted by the account.
func (e *Engine) CollateralOf(account, asset common.Address) (*big.Int, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	if !e.registry.IsApproved(asset) {
		return nil, errUnsupportedAsset
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	pos, err := e.state.GetPosition(account)
	if err != nil {
		return nil, err
	}
	return pos.CollateralOf(asset), nil
}

// DebtOf returns the synthetic debt minted against the account.
func (e *Engine) DebtOf(account common.Address) (*big.Int, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	pos, err := e.state.GetPosition(account)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(pos.Debt), nil
}

// TotalCollateralValueUSD sums the USD value of the account's collateral over
// every registered asset in registry order, using the staleness-checked price
// path.
func (e *Engine) TotalCollateralValueUSD(account common.Address) (*big.Int, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	pos, err := e.state.GetPosition(account)
	if err != nil {
		return nil, err
	}
	return e.collateralValueChecked(pos)
}

// HealthFactor reports the account's live scalar risk metric.
func (e *Engine) HealthFactor(account common.Address) (*big.Int, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.accountHealthFactor(account)
}

// UsdValue is an informational getter converting a native collateral amount
// into USD at the latest feed answer. It deliberately reads the raw feed
// without the staleness check; solvency decisions never route through here.
func (e *Engine) UsdValue(asset common.Address, amount *big.Int) (*big.Int, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	adapter, err := e.registry.Adapter(asset)
	if err != nil {
		return nil, err
	}
	price, err := adapter.RawPrice()
	if err != nil {
		return nil, err
	}
	value := big.NewInt(0)
	if amount != nil {
		value = usdValue(price, amount)
	}
	return value, nil
}

// TokenAmountFromUsd is the informational inverse of UsdValue: how much of
// the asset the supplied 18-decimal USD amount buys at the latest feed
// answer. Raw price path, informational only.
func (e *Engine) TokenAmountFromUsd(asset common.Address, usdAmount *big.Int) (*big.Int, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	adapter, err := e.registry.Adapter(asset)
	if err != nil {
		return nil, err
	}
	price, err := adapter.RawPrice()
	if err != nil {
		return nil, err
	}
	amount := big.NewInt(0)
	if usdAmount != nil {
		amount = tokenAmountFromUsd(price, usdAmount)
	}
	return amount, nil
}

// Assets lists the registered collateral assets in registry order.
func (e *Engine) Assets() []common.Address {
	if e == nil || e.registry == nil {
		return nil
	}
	return e.registry.Assets()
}

// FeedFor resolves the oracle adapter registered for the asset.
func (e *Engine) FeedFor(asset common.Address) (*OracleAdapter, error) {
	if e == nil || e.registry == nil {
		return nil, errRegistryNotConfigured
	}
	return e.registry.Adapter(asset)
}
