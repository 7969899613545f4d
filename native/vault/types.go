package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Position is the per-account ledger entry: posted collateral per asset and
// the synthetic debt minted against it. Entries come into existence on first
// nonzero write and persist at zero indefinitely; there is no explicit
// account lifecycle.
type Position struct {
	Account    common.Address              `json:"account"`
	Collateral map[common.Address]*big.Int `json:"collateral"`
	Debt       *big.Int                    `json:"debt"`
}

// NewPosition returns an empty position for the account.
func NewPosition(account common.Address) *Position {
	return &Position{
		Account:    account,
		Collateral: make(map[common.Address]*big.Int),
		Debt:       big.NewInt(0),
	}
}

// CollateralOf returns the posted amount for the asset, defaulting to zero.
func (p *Position) CollateralOf(asset common.Address) *big.Int {
	if p == nil || p.Collateral == nil {
		return big.NewInt(0)
	}
	amount, ok := p.Collateral[asset]
	if !ok || amount == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(amount)
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := NewPosition(p.Account)
	if p.Debt != nil {
		clone.Debt.Set(p.Debt)
	}
	for asset, amount := range p.Collateral {
		if amount == nil {
			continue
		}
		clone.Collateral[asset] = new(big.Int).Set(amount)
	}
	return clone
}

func (p *Position) normalize() {
	if p.Collateral == nil {
		p.Collateral = make(map[common.Address]*big.Int)
	}
	if p.Debt == nil {
		p.Debt = big.NewInt(0)
	}
}
