package vault

import (
	"math/big"

	ethmath "github.com/ethereum/go-ethereum/common/math"
)

var (
	// precision is the engine-wide 18-decimal fixed-point scale.
	precision = big.NewInt(1_000_000_000_000_000_000)
	// additionalFeedPrecision lifts 8-decimal feed answers to the engine scale.
	additionalFeedPrecision = big.NewInt(10_000_000_000)
	// liquidationThreshold is the percentage of collateral value counted when
	// judging solvency. Engine-wide, not per-asset.
	liquidationThreshold = big.NewInt(50)
	// liquidationBonus is the percentage of the covered collateral amount paid
	// to a liquidator on top of the debt they cover.
	liquidationBonus = big.NewInt(10)
	percentDivisor   = big.NewInt(100)
	// minHealthFactor is 1.0 in the engine's fixed-point scale.
	minHealthFactor = new(big.Int).Set(precision)
)

// Precision returns the 18-decimal fixed-point scale used for debt and USD
// values.
func Precision() *big.Int { return new(big.Int).Set(precision) }

// LiquidationThresholdPercent returns the engine-wide liquidation threshold.
func LiquidationThresholdPercent() *big.Int { return new(big.Int).Set(liquidationThreshold) }

// LiquidationBonusPercent returns the engine-wide liquidation bonus.
func LiquidationBonusPercent() *big.Int { return new(big.Int).Set(liquidationBonus) }

// MinHealthFactor returns the minimum healthy factor (1.0 fixed point).
func MinHealthFactor() *big.Int { return new(big.Int).Set(minHealthFactor) }

// CalculateHealthFactor derives the scalar risk metric from an account's debt
// and threshold-unadjusted collateral value. Both inputs are 18-decimal fixed
// point. A zero debt yields the maximum representable value so that empty
// positions are unconditionally healthy without dividing by zero.
func CalculateHealthFactor(debt, collateralValueUSD *big.Int) *big.Int {
	if debt == nil || debt.Sign() == 0 {
		return new(big.Int).Set(ethmath.MaxBig256)
	}
	adjusted := new(big.Int)
	if collateralValueUSD != nil {
		adjusted.Set(collateralValueUSD)
	}
	adjusted.Mul(adjusted, liquidationThreshold)
	adjusted.Quo(adjusted, percentDivisor)
	adjusted.Mul(adjusted, precision)
	return adjusted.Quo(adjusted, debt)
}

func healthy(factor *big.Int) bool {
	return factor != nil && factor.Cmp(minHealthFactor) >= 0
}

// usdValue converts a native collateral amount into its USD value at the
// supplied 18-decimal price. Collateral amounts are treated as 18-decimal
// native units.
func usdValue(price, amount *big.Int) *big.Int {
	value := new(big.Int).Mul(price, amount)
	return value.Quo(value, precision)
}

// tokenAmountFromUsd inverts usdValue: how much of the asset is worth the
// supplied USD amount at the given price.
func tokenAmountFromUsd(price, usdAmount *big.Int) *big.Int {
	amount := new(big.Int).Mul(usdAmount, precision)
	return amount.Quo(amount, price)
}
