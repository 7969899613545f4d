package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CollateralToken is the transfer primitive of an approved collateral asset.
// It is an untrusted external boundary: calls may fail and may attempt to
// reenter the engine, which is why every ledger mutation is committed to the
// journal before the call is made.
type CollateralToken interface {
	TransferFrom(from, to common.Address, amount *big.Int) error
}

// SyntheticToken is the owner-gated mint/burn primitive for the synthetic
// unit-of-account token. Like CollateralToken it is treated as untrusted.
type SyntheticToken interface {
	Mint(to common.Address, amount *big.Int) error
	Burn(from common.Address, amount *big.Int) error
	TransferFrom(from, to common.Address, amount *big.Int) error
}
