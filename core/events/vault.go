package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// TypeCollateralDeposited is emitted when collateral is locked in the vault.
	TypeCollateralDeposited = "vault.collateral.deposited"
	// TypeDebtMinted is emitted when synthetic debt is created against a position.
	TypeDebtMinted = "vault.debt.minted"
	// TypeDebtBurned is emitted when synthetic debt is repaid and destroyed.
	TypeDebtBurned = "vault.debt.burned"
	// TypeCollateralRedeemed is emitted when collateral leaves the vault.
	TypeCollateralRedeemed = "vault.collateral.redeemed"
	// TypePositionLiquidated is emitted when an unhealthy position is liquidated.
	TypePositionLiquidated = "vault.position.liquidated"
)

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

type CollateralDeposited struct {
	Account common.Address
	Asset   common.Address
	Amount  *big.Int
}

func (CollateralDeposited) EventType() string { return TypeCollateralDeposited }

func (e CollateralDeposited) Attributes() map[string]string {
	return map[string]string{
		"account": e.Account.Hex(),
		"asset":   e.Asset.Hex(),
		"amount":  amountString(e.Amount),
	}
}

type DebtMinted struct {
	Account common.Address
	Amount  *big.Int
}

func (DebtMinted) EventType() string { return TypeDebtMinted }

func (e DebtMinted) Attributes() map[string]string {
	return map[string]string{
		"account": e.Account.Hex(),
		"amount":  amountString(e.Amount),
	}
}

type DebtBurned struct {
	Account common.Address
	Payer   common.Address
	Amount  *big.Int
}

func (DebtBurned) EventType() string { return TypeDebtBurned }

func (e DebtBurned) Attributes() map[string]string {
	return map[string]string{
		"account": e.Account.Hex(),
		"payer":   e.Payer.Hex(),
		"amount":  amountString(e.Amount),
	}
}

type CollateralRedeemed struct {
	Account   common.Address
	Recipient common.Address
	Asset     common.Address
	Amount    *big.Int
}

func (CollateralRedeemed) EventType() string { return TypeCollateralRedeemed }

func (e CollateralRedeemed) Attributes() map[string]string {
	return map[string]string{
		"account":   e.Account.Hex(),
		"recipient": e.Recipient.Hex(),
		"asset":     e.Asset.Hex(),
		"amount":    amountString(e.Amount),
	}
}

type PositionLiquidated struct {
	Target      common.Address
	Liquidator  common.Address
	Asset       common.Address
	DebtCovered *big.Int
	Seized      *big.Int
}

func (PositionLiquidated) EventType() string { return TypePositionLiquidated }

func (e PositionLiquidated) Attributes() map[string]string {
	return map[string]string{
		"target":      e.Target.Hex(),
		"liquidator":  e.Liquidator.Hex(),
		"asset":       e.Asset.Hex(),
		"debtCovered": amountString(e.DebtCovered),
		"seized":      amountString(e.Seized),
	}
}
