package vault

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	errNilState              = errors.New("vault engine: state not configured")
	errZeroAmount            = errors.New("vault engine: amount must be positive")
	errUnsupportedAsset      = errors.New("vault engine: collateral asset not registered")
	errLengthMismatch        = errors.New("vault engine: asset and feed lists differ in length")
	errTransferFailed        = errors.New("vault engine: collateral transfer failed")
	errMintFailed            = errors.New("vault engine: synthetic token mint failed")
	errBurnFailed            = errors.New("vault engine: synthetic token burn failed")
	errDebtUnderflow         = errors.New("vault engine: burn amount exceeds outstanding debt")
	errCollateralUnderflow   = errors.New("vault engine: redeem amount exceeds posted collateral")
	errHealthFactorOk        = errors.New("vault engine: target health factor is not below minimum")
	errHealthFactorStagnant  = errors.New("vault engine: liquidation did not improve target health factor")
	errStalePrice            = errors.New("vault oracle: price data exceeds staleness window")
	errFeedNotConfigured     = errors.New("vault oracle: price feed not configured")
	errTokenNotConfigured    = errors.New("vault engine: collateral token not configured for asset")
	errNegativeFeedAnswer    = errors.New("vault oracle: feed reported a non-positive price")
	errRegistryNotConfigured = errors.New("vault engine: collateral registry not configured")
)

// Exported aliases so callers can classify failures with errors.Is without
// reaching into the package internals.
var (
	ErrZeroAmount              = errZeroAmount
	ErrUnsupportedAsset        = errUnsupportedAsset
	ErrLengthMismatch          = errLengthMismatch
	ErrTransferFailed          = errTransferFailed
	ErrMintFailed              = errMintFailed
	ErrBurnFailed              = errBurnFailed
	ErrDebtUnderflow           = errDebtUnderflow
	ErrCollateralUnderflow     = errCollateralUnderflow
	ErrHealthFactorOk          = errHealthFactorOk
	ErrHealthFactorNotImproved = errHealthFactorStagnant
	ErrStalePrice              = errStalePrice
)

// HealthFactorError reports a state change that would leave (or has left) an
// account below the minimum health factor. The offending factor is carried for
// diagnostics and surfaced through RPC error data.
type HealthFactorError struct {
	Factor *big.Int
}

func (e *HealthFactorError) Error() string {
	if e == nil || e.Factor == nil {
		return "vault engine: operation breaks health factor"
	}
	return fmt.Sprintf("vault engine: operation breaks health factor (factor=%s)", e.Factor)
}

func breaksHealthFactor(factor *big.Int) *HealthFactorError {
	clone := new(big.Int)
	if factor != nil {
		clone.Set(factor)
	}
	return &HealthFactorError{Factor: clone}
}
